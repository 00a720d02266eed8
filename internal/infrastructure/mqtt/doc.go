// Package mqtt provides the optional broker status announcer.
//
// The backend's event feed arrives over the gateway's SSE stream, not a
// direct broker subscription, so this client never subscribes. Its job
// is presence: announce that the panel backend is online, and let the
// broker's Last Will and Testament mark it offline if the process dies
// without a graceful shutdown.
//
//   - Retained online status on homepanel/system/status at connect
//   - LWT publishing an offline status on unexpected disconnect
//   - Graceful offline status on Close, distinguishable from a crash
//   - Auto-reconnect with exponential backoff
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// Dashboards and automations watch homepanel/system/status to decide
// whether the panel backend is reachable.
package mqtt
