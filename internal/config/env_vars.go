package config

import (
	"os"
	"path/filepath"
)

const (
	appNameVar   = "APP_NAME"
	folderEnvVar = "FOLDER"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Partner Client")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

// GetCredentialsFile returns the path of the durable refresh-token file.
// Relative paths are resolved against the data folder.
func (e EnvVars) GetCredentialsFile() string {
	file := GetEnv("CREDENTIALS_FILE", "refresh-tokens.json")
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(e.GetDataFolder(), file)
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
