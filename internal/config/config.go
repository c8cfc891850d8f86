package config

import (
	"fmt"
	"os"
	"strings"

	"clubcard-pipeline/pkg/utils"

	"github.com/spf13/viper"
)

// Config represents the application's configuration structure.
type Config struct {
	OutputDir      string `json:"output-dir" mapstructure:"output-dir"`
	RunsDB         string `json:"runs-db" mapstructure:"runs-db"`
	UploadEndpoint string `json:"upload-endpoint" mapstructure:"upload-endpoint"`
	Postcode       string `json:"postcode" mapstructure:"postcode"`
	HashFamily     string `json:"hash-family" mapstructure:"hash-family"`
	LogLevel       string `json:"log-level" mapstructure:"log-level"`
}

// field: default value
var defaults = map[string]interface{}{
	"output-dir":      "exports",
	"runs-db":         "clubcard.db",
	"upload-endpoint": "",
	"postcode":        "",
	"hash-family":     string(utils.HashSHA256),
	"log-level":       "INFO",
}

// InitConfig reads configuration from a JSON file and environment
// variables. Environment variables take precedence over the config
// file; the file itself is optional.
func InitConfig(configFilePath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configFilePath)
	v.SetConfigType("json")

	v.AutomaticEnv()
	v.SetEnvPrefix("clubcard")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	for field, defaultValue := range defaults {
		v.SetDefault(field, defaultValue)
		v.BindEnv(field)
	}

	if _, err := os.Stat(configFilePath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	// The hash family is committed per deployment; an unknown name is
	// a configuration error, never a silent downgrade.
	if _, err := utils.ParseHashFamily(config.HashFamily); err != nil {
		return nil, err
	}

	return &config, nil
}
