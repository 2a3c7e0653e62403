// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config keys, overridable via DATAQE_* environment variables.
const (
	cfgKeyListenAddr      = "listen_addr"
	cfgKeyDatabaseURL     = "database_url"
	cfgKeyJWTSecret       = "jwt_secret"
	cfgKeyDataRoot        = "data_root"
	cfgKeyLogLevel        = "log_level"
	cfgKeyLogStageTimings = "log_stage_timings"
	cfgKeySMTPHost        = "smtp_host"
	cfgKeySMTPPort        = "smtp_port"
	cfgKeySMTPUsername    = "smtp_username"
	cfgKeySMTPPassword    = "smtp_password"
	cfgKeySMTPFrom        = "smtp_from"
)

// Config is the resolved server configuration.
type Config struct {
	ListenAddr      string
	DatabaseURL     string
	JWTSecret       string
	DataRoot        string
	LogLevel        string
	LogStageTimings bool

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// loadConfig reads the optional YAML config file and layers DATAQE_*
// environment variables over it. A missing file is not an error; missing
// required values are reported by the commands that need them.
func loadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault(cfgKeyListenAddr, ":8080")
	v.SetDefault(cfgKeyDataRoot, "./data")
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetDefault(cfgKeySMTPPort, 25)

	v.SetEnvPrefix("DATAQE")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("dataqe")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if configFile != "" {
				return nil, fmt.Errorf("read config %s: %w", configFile, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Config{
		ListenAddr:      v.GetString(cfgKeyListenAddr),
		DatabaseURL:     v.GetString(cfgKeyDatabaseURL),
		JWTSecret:       v.GetString(cfgKeyJWTSecret),
		DataRoot:        v.GetString(cfgKeyDataRoot),
		LogLevel:        v.GetString(cfgKeyLogLevel),
		LogStageTimings: v.GetBool(cfgKeyLogStageTimings),
		SMTPHost:        v.GetString(cfgKeySMTPHost),
		SMTPPort:        v.GetInt(cfgKeySMTPPort),
		SMTPUsername:    v.GetString(cfgKeySMTPUsername),
		SMTPPassword:    v.GetString(cfgKeySMTPPassword),
		SMTPFrom:        v.GetString(cfgKeySMTPFrom),
	}, nil
}

// require reports a friendly error for a missing mandatory setting.
func (c *Config) require() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required (config file or DATAQE_DATABASE_URL)")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required (config file or DATAQE_JWT_SECRET)")
	}
	return nil
}
