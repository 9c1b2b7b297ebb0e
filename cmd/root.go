package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/skillsync/internal/audit"
	"github.com/spigell/skillsync/internal/extract"
	"github.com/spigell/skillsync/internal/server"
)

const (
	app = "skillsync"
)

type Config struct {
	Catalog   string           `mapstructure:"catalog"`
	Server    server.Config    `mapstructure:"server"`
	Recommend *RecommendConfig `mapstructure:"recommend"`
	Extract   extract.Options  `mapstructure:"extract"`
	AI        *AIConfig        `mapstructure:"ai"`
	Cache     *CacheConfig     `mapstructure:"cache"`
	Audit     *AuditConfig     `mapstructure:"audit"`
}

type RecommendConfig struct {
	Limit int `mapstructure:"limit"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Model        string        `mapstructure:"model"`
	MaxRetries   int           `mapstructure:"max-retries"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	RedisURL string        `mapstructure:"redis-url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type AuditConfig struct {
	DatabaseURL string         `mapstructure:"database-url"`
	AMQP        *AMQPConfig    `mapstructure:"amqp"`
	S3          audit.S3Config `mapstructure:"s3"`
	Timeout     time.Duration  `mapstructure:"timeout"`
}

type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "skillsync evaluates resumes with Gemini and recommends matching internships",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

var envBindings = map[string]string{
	"ai.gemini.api-key":      "GEMINI_API_KEY",
	"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
	"audit.database-url":     "DATABASE_URL",
	"audit.amqp.url":         "AMQP_URL",
	"cache.redis-url":        "REDIS_URL",
	"catalog":                "SKILLSYNC_CATALOG",
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is skillsync.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("server.address", server.DefaultAddress)
	viper.SetDefault("server.max-upload-bytes", server.DefaultMaxUploadBytes)
	viper.SetDefault("recommend.limit", 6)
	viper.SetDefault("extract.allow-docx", true)
	viper.SetDefault("extract.allow-text", false)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-2.0-flash")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("ai.gemini.timeout", "30s")
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("audit.amqp.exchange", audit.DefaultExchange)
	viper.SetDefault("audit.s3.region", "auto")
	viper.SetDefault("audit.timeout", "10s")
}

func initConfig() {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional, but a broken one is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
