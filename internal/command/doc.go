// Package command provides named actuator commands and the Facade that
// event processors use to invoke them.
//
// A Facade is built once per deployment from the full command set and is
// immutable afterwards. Redeploying builds a new Facade and swaps it in
// wholesale; processors already holding the old one keep a consistent view.
//
// Commands are looked up by their user-visible name. When two commands share
// a name the later one wins.
//
// # Sending typed values
//
// Send converts an event.Value into the string parameter a Command expects:
//
//	switch  → "on" / "off"
//	range   → integer
//	level   → integer percentage
//	custom  → text as-is
//	unknown → ErrNoParameter
//
// # MQTT commands
//
// MQTTCommand publishes a JSON message to graylogic/command/{protocol}/{address}
// for a protocol bridge to execute.
package command
