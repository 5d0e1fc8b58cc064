// Package config loads service configuration from a YAML file, a .env file
// and the environment using Viper.
//
//	var cfg MyConfig
//	err := config.LoadConfig("docflow", &cfg, config.WithConfigFile("docflow.yml"))
//
// Environment variables use the upper-cased service name as prefix, with
// underscores separating nested keys (DOCFLOW_LOGGING_LEVEL=debug).
package config
