// Package deploy loads the controller's deployment file and applies it to a
// running status cache.
//
// A deployment lists the sensors to read (MQTT topics or polled files), the
// commands rules may run (MQTT bridge commands), per-sensor value mappings and
// automation rules:
//
//	sensors:
//	  - id: 1
//	    name: hall-motion
//	    kind: switch
//	    mqtt:
//	      topic: graylogic/state/knx/1-1-7
//	      value_key: state.on
//	  - id: 2
//	    name: loft-temp
//	    kind: range
//	    min: -20
//	    max: 60
//	    file:
//	      path: /sys/bus/w1/devices/28-0000/w1_slave
//	      marker: "t="
//	      divisor: 1000
//	      interval: 30
//	commands:
//	  - name: hall-light
//	    protocol: knx
//	    address: 1-2-3
//	    action: set
//	rules:
//	  - name: hall light on motion
//	    sensor: hall-motion
//	    equals: "on"
//	    command: hall-light
//	    parameter: "on"
//
// Apply is safe to call again with a new deployment (SIGHUP redeploy):
// sensors whose definition is unchanged keep running and keep their value,
// changed ones are replaced, and ones no longer listed are unregistered.
package deploy
