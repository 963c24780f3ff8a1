package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

var once sync.Once

var durationKeys = map[string]string{
	"alert_interval":       "ALERT_INTERVAL",
	"price_timeout":        "PRICE_TIMEOUT",
	"conversation_timeout": "CONVERSATION_TIMEOUT",
}

func InitConfig() {
	once.Do(func() {
		// a missing .env is fine, the environment may already be populated
		_ = gotenv.Load()

		viper.AutomaticEnv()

		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("cmc_api_key", "CMC_API_KEY")
		viper.BindEnv("api_pro_key", "API_PRO_KEY")
		viper.BindEnv("authorized_user_id", "AUTHORIZED_USER_ID")
		viper.BindEnv("price_source", "PRICE_SOURCE")
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("log_format", "LOG_FORMAT")
		viper.BindEnv("lang", "LANG")
		viper.BindEnv("alert_interval", "ALERT_INTERVAL")
		viper.BindEnv("price_timeout", "PRICE_TIMEOUT")
		viper.BindEnv("conversation_timeout", "CONVERSATION_TIMEOUT")
		viper.BindEnv("timezone", "TZ_NAME")

		viper.SetDefault("price_source", "coinmarketcap")
		viper.SetDefault("db_path", "crypto_tracker.db")
		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("debug", false)
		viper.SetDefault("log_format", "text")
		viper.SetDefault("lang", "en")
		viper.SetDefault("alert_interval", 5*time.Minute)
		viper.SetDefault("price_timeout", 10*time.Second)
		viper.SetDefault("conversation_timeout", 10*time.Minute)
		viper.SetDefault("timezone", "Local")
	})
}

// Validate reports every required key that is missing or malformed.
func Validate() error {
	InitConfig()

	var missing []string
	if viper.GetString("telegram_bot_token") == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if viper.GetInt64("authorized_user_id") == 0 {
		missing = append(missing, "AUTHORIZED_USER_ID")
	}
	switch source := strings.ToLower(viper.GetString("price_source")); source {
	case "", "coinmarketcap", "cmc":
		if viper.GetString("cmc_api_key") == "" {
			missing = append(missing, "CMC_API_KEY")
		}
	case "coinpaprika":
	default:
		return fmt.Errorf("unsupported PRICE_SOURCE %q", source)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	// malformed durations read back as zero
	for key, env := range durationKeys {
		if viper.GetDuration(key) <= 0 {
			return fmt.Errorf("%s must be a positive duration such as 5m, got %q", env, viper.GetString(key))
		}
	}

	if _, err := Location(); err != nil {
		return fmt.Errorf("invalid TZ_NAME: %w", err)
	}
	return nil
}

// Location resolves the timezone report times are expressed in.
func Location() (*time.Location, error) {
	return time.LoadLocation(GetString("timezone"))
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetInt64(key string) int64 {
	InitConfig()
	return viper.GetInt64(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

func GetDuration(key string) time.Duration {
	InitConfig()
	return viper.GetDuration(key)
}
