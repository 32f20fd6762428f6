package deploy

import "errors"

// Sentinel errors for deployment loading and application.
var (
	// ErrInvalidDeployment indicates the deployment file failed validation.
	ErrInvalidDeployment = errors.New("deploy: invalid deployment")

	// ErrNoBroker indicates an MQTT sensor or command without an MQTT client.
	ErrNoBroker = errors.New("deploy: mqtt client required")
)
