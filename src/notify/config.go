package notify

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	EmailBaseURL string `envconfig:"EMAIL_BASE_URL" default:"https://api.tradelab.internal/email"`
	EmailAPIKey  string `envconfig:"EMAIL_API_KEY"`
	EmailFrom    string `envconfig:"EMAIL_FROM" default:"alerts@tradelab.app"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
