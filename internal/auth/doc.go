// Package auth provides authentication for Home Panel Core.
//
// The model is deliberately small: a single shared access token (compared
// in constant time) is exchanged at login for an HS256 JWT, and API
// requests carry that JWT as a bearer token. EventSource and WebSocket
// clients cannot set headers, so the middleware also accepts the token as
// a query parameter on streaming endpoints.
//
// There is no user store, no refresh flow, and no revocation. The service
// fronts a single household dashboard; anything beyond bearer validation
// would be ceremony.
package auth
