package config

import (
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"sync"
	"time"
)

const (
	TriggerModeTimer    = "timer"
	TriggerModeEndpoint = "endpoint"

	ProviderYahoo       = "yahoo"
	ProviderCoinpaprika = "coinpaprika"

	DeliveryAtMostOnce  = "at-most-once"
	DeliveryAtLeastOnce = "at-least-once"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Debugf("no .env file loaded: %v", err)
		}

		viper.AutomaticEnv()

		viper.BindEnv("port", "PORT")
		viper.BindEnv("telegram_bot_token", "BOT_TOKEN")
		viper.BindEnv("telegram_chat_id", "CHAT_ID")
		viper.BindEnv("telegram_api_endpoint", "TELEGRAM_API_ENDPOINT")
		viper.BindEnv("quote_provider", "QUOTE_PROVIDER")
		viper.BindEnv("yahoo_base_url", "YAHOO_BASE_URL")
		viper.BindEnv("api_pro_key", "API_PRO_KEY")
		viper.BindEnv("trigger_mode", "TRIGGER_MODE")
		viper.BindEnv("check_interval", "CHECK_INTERVAL")
		viper.BindEnv("request_timeout", "REQUEST_TIMEOUT")
		viper.BindEnv("delivery_policy", "DELIVERY_POLICY")
		viper.BindEnv("currency_symbol", "CURRENCY_SYMBOL")
		viper.BindEnv("metrics_db_path", "METRICS_DB_PATH")
		viper.BindEnv("metrics_save_interval", "METRICS_SAVE_INTERVAL")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "LANG")

		viper.SetDefault("port", 3000)
		viper.SetDefault("quote_provider", ProviderYahoo)
		viper.SetDefault("yahoo_base_url", "https://query1.finance.yahoo.com")
		viper.SetDefault("trigger_mode", TriggerModeTimer)
		viper.SetDefault("check_interval", time.Minute)
		viper.SetDefault("request_timeout", 10*time.Second)
		viper.SetDefault("delivery_policy", DeliveryAtMostOnce)
		viper.SetDefault("currency_symbol", "₹")
		viper.SetDefault("metrics_db_path", "data/metrics.db")
		viper.SetDefault("metrics_save_interval", 5*time.Minute)
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
	})
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

// Validate checks the secrets and enum settings the service cannot start without.
func Validate() error {
	InitConfig()

	if GetString("telegram_bot_token") == "" {
		return errors.New("BOT_TOKEN is required")
	}
	if GetInt64("telegram_chat_id") == 0 {
		return errors.New("CHAT_ID is required and must be a numeric chat id")
	}

	switch p := GetString("quote_provider"); p {
	case ProviderYahoo, ProviderCoinpaprika:
	default:
		return errors.Errorf("unknown quote provider %q", p)
	}

	switch m := GetString("trigger_mode"); m {
	case TriggerModeTimer, TriggerModeEndpoint:
	default:
		return errors.Errorf("unknown trigger mode %q", m)
	}

	switch d := GetString("delivery_policy"); d {
	case DeliveryAtMostOnce, DeliveryAtLeastOnce:
	default:
		return errors.Errorf("unknown delivery policy %q", d)
	}

	if GetString("trigger_mode") == TriggerModeTimer && GetDuration("check_interval") <= 0 {
		return errors.New("CHECK_INTERVAL must be positive")
	}
	if GetDuration("request_timeout") <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	return nil
}
