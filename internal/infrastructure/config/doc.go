// Package config handles loading and validating Gray Logic Controller configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields and cross-field constraints
//   - Default value handling
//
// The device model itself (sensors, commands, rules) lives in a separate
// deployment file loaded by the deploy package, so it can be re-applied
// without restarting the process.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Controller.DeploymentFile)
package config
