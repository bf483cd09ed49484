package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app/configs")

	viper.SetEnvPrefix("VOLTMESH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Allow common env vars without the prefix for Docker/VM deploys
	viper.BindEnv("http.port", "HTTP_PORT", "VOLTMESH_HTTP_PORT")
	viper.BindEnv("database.url", "DATABASE_URL", "VOLTMESH_DATABASE_URL")
	viper.BindEnv("redis.url", "REDIS_URL", "VOLTMESH_REDIS_URL")
	viper.BindEnv("queue.url", "QUEUE_URL", "VOLTMESH_QUEUE_URL")
	viper.BindEnv("jwt.secret", "JWT_SECRET", "VOLTMESH_JWT_SECRET")
	viper.BindEnv("payment.stripe.secret_key", "STRIPE_SECRET_KEY")
	viper.BindEnv("notification.email.api_key", "SENDGRID_API_KEY")
	viper.BindEnv("vault.address", "VAULT_ADDR")
	viper.BindEnv("vault.token", "VAULT_TOKEN")
	viper.BindEnv("app.environment", "APP_ENVIRONMENT")
	viper.BindEnv("logging.level", "LOG_LEVEL")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("app.name", "voltmesh")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("http.port", 8080)
	viper.SetDefault("queue.provider", "nats")
	viper.SetDefault("market.fee_bps", 200)
	viper.SetDefault("market.max_fee_bps", 1000)
	viper.SetDefault("market.platform_account", "platform:escrow")
	viper.SetDefault("certificates.threshold_kwh", 100)
	viper.SetDefault("certificates.allowed_sources",
		[]string{"solar", "wind", "hydro", "geothermal", "biomass"})
	viper.SetDefault("payment.stripe.currency", "usd")
	viper.SetDefault("notification.email.provider", "smtp")
	viper.SetDefault("notification.email.smtp_host", "localhost")
	viper.SetDefault("notification.email.smtp_port", 1025)
	viper.SetDefault("prometheus.enabled", true)
	viper.SetDefault("prometheus.path", "/metrics")
	viper.SetDefault("logging.level", "info")
}
