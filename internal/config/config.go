package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	MongoDB  MongoDBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Mpesa    MpesaConfig
	Pesapal  PesapalConfig
	SMS      SMSConfig
	Payments PaymentsConfig
	LogLevel string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// RedisConfig holds Redis cache configuration. An empty URL disables caching.
type RedisConfig struct {
	URL string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int
}

// MpesaConfig holds M-Pesa Daraja API configuration
type MpesaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
	MockAPI        bool
}

// PesapalConfig holds Pesapal API configuration
type PesapalConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	CallbackURL    string
	IPNID          string
	MockAPI        bool
}

// SMSConfig holds SMS gateway configuration
type SMSConfig struct {
	BaseURL  string
	Username string
	APIKey   string
	SenderID string
	MockSMS  bool
}

// PaymentsConfig holds tunables for the payment reconciliation flow
type PaymentsConfig struct {
	PollInterval   time.Duration
	PendingTimeout time.Duration
	StatusCacheTTL time.Duration
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	viper.SetDefault("Server.Port", "4000")
	viper.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	viper.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	viper.SetDefault("MongoDB.Database", "jamii-portal")
	viper.SetDefault("Redis.URL", "")
	viper.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	viper.SetDefault("LogLevel", "info")
	viper.SetDefault("Mpesa.BaseURL", "https://sandbox.safaricom.co.ke")
	viper.SetDefault("Mpesa.MockAPI", true)
	viper.SetDefault("Pesapal.BaseURL", "https://cybqa.pesapal.com/pesapalv3")
	viper.SetDefault("Pesapal.MockAPI", true)
	viper.SetDefault("SMS.SenderID", "JAMII")
	viper.SetDefault("SMS.MockSMS", true)
	viper.SetDefault("Payments.PollInterval", 2*time.Second)
	viper.SetDefault("Payments.PendingTimeout", 30*time.Minute)
	viper.SetDefault("Payments.StatusCacheTTL", 10*time.Minute)
}
