package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// AppConfig holds the complete service configuration.
type AppConfig struct {
	ListenAddr  string
	AnalyzerURL string
	SettleDelay time.Duration
	OpenBrowser bool
	LogsFolder  string
}

// Load reads configuration from a .env file (when present) and PQA_*
// environment variables, with sensible defaults for local use.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on environment variables")
	}

	v := viper.New()
	v.SetEnvPrefix("PQA")
	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":8085")
	v.SetDefault("ANALYZER_URL", "http://localhost:8000")
	v.SetDefault("SETTLE_DELAY_MS", 250)
	v.SetDefault("OPEN_BROWSER", false)
	v.SetDefault("LOGS_FOLDER", "logs")

	cfg := &AppConfig{
		ListenAddr:  v.GetString("LISTEN_ADDR"),
		AnalyzerURL: v.GetString("ANALYZER_URL"),
		SettleDelay: time.Duration(v.GetInt("SETTLE_DELAY_MS")) * time.Millisecond,
		OpenBrowser: v.GetBool("OPEN_BROWSER"),
		LogsFolder:  v.GetString("LOGS_FOLDER"),
	}
	return cfg, nil
}
