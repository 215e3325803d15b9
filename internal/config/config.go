package config

import "time"

type Config interface {
	EnvConfig
	HTTPConfig
}

type EnvConfig interface {
	GetAppName() string
	GetBackendURL() string
	GetCredentialsFile() string
	GetEnv() string
}

type HTTPConfig interface {
	GetRequestTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
	HTTP
}

func New() Config {
	return mainConfig{}
}
