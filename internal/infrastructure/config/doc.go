// Package config loads the lamp daemon's configuration.
//
// Settings resolve in three layers, each overriding the last:
// compiled-in defaults, the YAML file, then LUMEN_* environment
// variables. Validate runs after all three so a bad value is caught
// at startup rather than mid-animation.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//		return err
//	}
//	eng := engine.New(cfg.GetTickInterval(), ...)
//
// Secrets (broker passwords, the InfluxDB token) belong in the
// environment, not the file; the file itself should be mode 0600 if
// they end up there anyway. Configuration is read once at startup and
// never reloaded.
package config
