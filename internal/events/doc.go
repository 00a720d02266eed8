// Package events distributes real-time events from the upstream MQTT HTTP
// gateway to local subscribers.
//
// A Pool owns exactly one upstream SSE connection regardless of how many
// subscribers exist. The pool can be started explicitly, or implicitly by
// the first Subscribe on a stopped pool. Events are fanned out to
// per-subscriber bounded
// inboxes; a subscriber that cannot keep up loses its newest events rather
// than stalling the reader or its peers. Drops are counted and logged, not
// hidden.
//
// Subscribers receive events through Subscription.Next, which applies the
// subscriber's topic filter and emits a keepalive marker (nil event, nil
// error) after a configurable period of matching silence. Filters are
// comma-separated patterns with trailing-asterisk prefix matching; a topic
// containing a literal comma cannot be expressed, which in practice does
// not occur on MQTT topic trees.
//
// Delivery is at-most-once within a connection. The upstream reader
// reconnects forever on a fixed interval; events published while
// disconnected are lost, and no ordering is guaranteed across reconnects.
package events
