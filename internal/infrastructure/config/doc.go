// Package config handles loading and validating FrameHub Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with FRAMEHUB_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Sensitive values (MQTT password, Hue username, InfluxDB token) should be
// set via environment variables rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/framehub.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Hub.Backend)
package config
