package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Env  string
	Port int

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	JWT struct {
		Secret           string
		AccessTTLMinutes int
		RefreshTTLDays   int
	}

	Admin struct {
		Email     string
		Password  string
		FirstName string
		LastName  string
	}

	Otel struct {
		Endpoint string
	}

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables and an optional config file.
// A local .env is loaded first so dev setups need no exported variables.
func Load() (Config, error) {
	_ = godotenv.Load() // optional

	v := viper.New()
	v.SetEnvPrefix("USERDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "dev")
	v.SetDefault("port", 8080)
	v.SetDefault("db.host", "127.0.0.1")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "userdeck")
	v.SetDefault("db.password", "userdeck")
	v.SetDefault("db.name", "userdeck")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "dev-secret-change-me")
	v.SetDefault("jwt.accessttlminutes", 15)
	v.SetDefault("jwt.refreshttldays", 7)
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("admin.firstname", "Admin")
	v.SetDefault("admin.lastname", "")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("corsallowedorigins", []string{"http://localhost:3000"})

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func (c Config) DBURL() string {
	return "postgres://" + c.DB.User + ":" + c.DB.Password +
		"@" + c.DB.Host + ":" + c.DB.Port +
		"/" + c.DB.Name + "?sslmode=" + c.DB.SSLMode
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWT.AccessTTLMinutes) * time.Minute
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWT.RefreshTTLDays) * 24 * time.Hour
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}
