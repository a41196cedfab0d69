package config

import "fmt"

type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
	BaseURL string `mapstructure:"base_url"`
	// TrustedProxies lists proxies whose X-Forwarded-For may be believed.
	// Empty means no proxy is trusted and the TCP peer address is used,
	// which the IP-allowlist webhook authentication depends on.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// GatewayConfig is a single payment provider record. Credentials are stored
// encrypted and decrypted on demand through the secrets store.
type GatewayConfig struct {
	Type            string   `mapstructure:"type" validate:"required,oneof=yookassa telegram_stars cryptopay"`
	Enabled         bool     `mapstructure:"enabled"`
	Currency        string   `mapstructure:"currency" validate:"required,len=3"`
	ShopID          string   `mapstructure:"shop_id"`
	Credentials     string   `mapstructure:"credentials"`
	TrustedNetworks []string `mapstructure:"trusted_networks"`
	WebhookSecret   string   `mapstructure:"webhook_secret"`
	AllowUnsigned   bool     `mapstructure:"allow_unsigned"`
	APIBase         string   `mapstructure:"api_base"`
}

type PaymentConfig struct {
	Gateways          []GatewayConfig `mapstructure:"gateways" validate:"dive"`
	CreateTimeoutSecs int             `mapstructure:"create_timeout_secs"`
	PendingTTLMinutes int             `mapstructure:"pending_ttl_minutes"`
	SweepIntervalMins int             `mapstructure:"sweep_interval_mins"`
}

type TelegramConfig struct {
	BotToken      string `mapstructure:"bot_token"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	// AllowUnsigned lets updates through without a secret token. Off by
	// default: an empty secret otherwise rejects every update.
	AllowUnsigned bool `mapstructure:"allow_unsigned"`
}

type SecretsConfig struct {
	// MasterKey is hex-encoded, 32 bytes once decoded.
	MasterKey string `mapstructure:"master_key"`
}
