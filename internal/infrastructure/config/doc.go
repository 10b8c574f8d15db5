// Package config handles loading and validating the smart lock bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (SMARTLOCK_*)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The command PIN should be set via SMARTLOCK_PIN, not committed in YAML
//   - The config file should have restricted permissions (0600)
//   - MQTT credentials and the InfluxDB token also have environment overrides
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Broker.Host)
package config
