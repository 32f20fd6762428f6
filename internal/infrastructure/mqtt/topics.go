package mqtt

import "fmt"

// Topic prefixes.
//
// Bridge topics use the flat scheme graylogic/{category}/{protocol}/{address}.
// Topics owned by the controller live under graylogic/core.
const (
	TopicPrefixBridge = "graylogic"
	TopicPrefixCore   = "graylogic/core"
	TopicPrefixSystem = "graylogic/system"
)

// Topics builds Gray Logic MQTT topic names.
//
//	topics := mqtt.Topics{}
//	topics.BridgeCommand("knx", "light-hall") // graylogic/command/knx/light-hall
type Topics struct{}

// BridgeState returns the topic a bridge publishes device state on.
//
// Example: graylogic/state/knx/door-front
func (Topics) BridgeState(protocol, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeCommand returns the topic a bridge receives commands on.
//
// Example: graylogic/command/knx/light-hall
func (Topics) BridgeCommand(protocol, address string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, protocol, address)
}

// CoreSensorState returns the retained topic carrying a sensor's committed state.
//
// Example: graylogic/core/sensor/kitchen-switch/state
func (Topics) CoreSensorState(sensorName string) string {
	return fmt.Sprintf("%s/sensor/%s/state", TopicPrefixCore, sensorName)
}

// SystemStatus returns the controller online/offline topic.
//
// Example: graylogic/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllBridgeStates matches every bridge state topic.
//
// Pattern: graylogic/state/+/+
func (Topics) AllBridgeStates() string {
	return TopicPrefixBridge + "/state/+/+"
}

// AllCoreSensorStates matches every committed sensor state topic.
//
// Pattern: graylogic/core/sensor/+/state
func (Topics) AllCoreSensorStates() string {
	return TopicPrefixCore + "/sensor/+/state"
}
