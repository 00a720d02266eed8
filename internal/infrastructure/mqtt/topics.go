package mqtt

import "fmt"

// Topic prefixes for messages the backend publishes. The device topics
// the dashboard consumes (zigbee2mqtt/..., frigate/...) belong to their
// respective services and arrive via the gateway stream; only the
// backend's own presence lives under homepanel/.
const (
	// TopicPrefix is the base for all backend-owned topics.
	TopicPrefix = "homepanel"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "homepanel/system"
)

// Topics provides builders for backend-owned MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// SystemStatus returns the system status topic. Retained; carries the
// online/offline presence payload and the LWT.
//
// Example: homepanel/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
