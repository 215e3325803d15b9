package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	appNameVar         = "APP_NAME"
	backendURLVar      = "BACKEND_URL"
	credentialsFileVar = "CREDENTIALS_FILE"
	requestTimeoutVar  = "REQUEST_TIMEOUT"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Console Auth")
}

// GetBackendURL returns the base URL of the admin backend
// (e.g. "https://admin-api.example.com"), without a trailing slash.
func (EnvVars) GetBackendURL() string {
	return GetEnv(backendURLVar, "http://localhost:8080")
}

func (EnvVars) GetCredentialsFile() string {
	if v := os.Getenv(credentialsFileVar); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "credentials.json"
	}
	return filepath.Join(home, ".console-auth", "credentials.json")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

type HTTP struct{}

var _ HTTPConfig = HTTP{}

func (HTTP) GetRequestTimeout() time.Duration {
	if v := os.Getenv(requestTimeoutVar); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return 15 * time.Second
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
