package collector

import (
	"context"
	"strings"

	"github.com/nerrad567/home-panel-core/internal/metrics"
	"github.com/nerrad567/home-panel-core/internal/store"
)

// deviceTopicFilter selects the topic families worth persisting.
const deviceTopicFilter = "zigbee2mqtt/*,automation/*"

// Excluded within the tracked families: bridge chatter, discovery
// announcements, and command/config topics that echo what we sent rather
// than reporting device state.
var (
	excludedPrefixes = []string{
		"homeassistant/",
		"zigbee2mqtt/bridge/",
	}
	excludedSuffixes = []string{
		"/set",
		"/get",
		"/cmd",
		"/config",
		"/availability",
	}
)

func shouldTrack(topic string) bool {
	for _, p := range excludedPrefixes {
		if strings.HasPrefix(topic, p) {
			return false
		}
	}
	for _, s := range excludedSuffixes {
		if strings.HasSuffix(topic, s) {
			return false
		}
	}
	return true
}

// trackDeviceStates persists the payload of every tracked device topic as
// it arrives on the event pool.
func (c *Collector) trackDeviceStates(ctx context.Context) {
	defer c.wg.Done()

	sub, err := c.pool.Subscribe(deviceTopicFilter)
	if err != nil {
		c.logger.Error("device tracker could not subscribe", "error", err)
		return
	}
	defer sub.Close()

	c.logger.Info("device tracker started", "filter", deviceTopicFilter)

	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			return
		}
		if ev == nil {
			// Keepalive marker.
			continue
		}
		if !shouldTrack(ev.Topic) {
			continue
		}

		d := store.DeviceState{
			Topic:     ev.Topic,
			Timestamp: ev.Timestamp,
			State:     ev.Payload,
		}
		if err := c.store.InsertDeviceState(ctx, d); err != nil {
			metrics.CollectorErrors.WithLabelValues("tracker").Inc()
			c.logger.Error("storing device state failed", "topic", ev.Topic, "error", err)
		}
	}
}
