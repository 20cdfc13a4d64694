package config

type Config interface {
	EnvConfig
	PartnerConfig
	SessionConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetCredentialsFile() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Partner
	Session
}

func New() Config {
	return mainConfig{}
}
