// Package config handles loading and validating SensorHub Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading an optional .env file beside the config
//   - Overriding with SENSORHUB_* environment variables
//   - Validation of required fields (all failures reported at once)
//
// Security Considerations:
//   - Broker passwords, database DSNs and InfluxDB tokens should be set via
//     environment variables or the .env file, not committed YAML
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Broker.Host)
package config
