package config

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	PolicyConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetTokenSecret() string
	GetLoginRatePerMinute() int
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Policies
	Store
}

// New loads a .env file when one exists, then the optional policy file named by
// CREC_CONFIG. Environment variables always win over the file.
func New() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}
	policies, err := LoadPolicies(GetEnv(configFileEnvVar, ""))
	if err != nil {
		log.Warn().Err(err).Msg("ignoring policy file")
		policies = Policies{}
	}
	return mainConfig{Policies: policies}
}
