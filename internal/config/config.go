package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"` // development | production

	DBDriver string `mapstructure:"DB_DRIVER"` // postgres | sqlite
	DBDSN    string `mapstructure:"DB_DSN"`

	// empty disables the stage catalog cache
	RedisURL         string        `mapstructure:"REDIS_URL"`
	ScheduleCacheTTL time.Duration `mapstructure:"SCHEDULE_CACHE_TTL"`

	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`
	SessionSecret      string `mapstructure:"SESSION_SECRET"`
	AdminEmail         string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword      string `mapstructure:"ADMIN_PASSWORD"`

	BlobDriver        string `mapstructure:"BLOB_DRIVER"` // fs | s3 | memory
	BlobFSRoot        string `mapstructure:"BLOB_FS_ROOT"`
	S3Bucket          string `mapstructure:"S3_BUCKET"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3PathStyle       bool   `mapstructure:"S3_PATH_STYLE"`

	// PhotoPublicBaseURL is the CDN/bucket URL photos are served from.
	// When empty photos are streamed by the API under /uploads/.
	PhotoPublicBaseURL string `mapstructure:"PHOTO_PUBLIC_BASE_URL"`
	// PublicBaseURL is this API's external URL, used for legacy relative photo paths.
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`

	Consultants string `mapstructure:"CONSULTANTS"` // "1:Jhonatan,2:Felipe"

	// comma separated; empty allows any origin
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
}

// Load reads the optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SCHEDULE_CACHE_TTL", "1h")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRATION_HOURS", 24)
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("ADMIN_EMAIL", "admin@agrocrm.local")
	v.SetDefault("ADMIN_PASSWORD", "Admin123!")
	v.SetDefault("BLOB_DRIVER", "fs")
	v.SetDefault("BLOB_FS_ROOT", "./uploads")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "auto")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY_ID", "")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "")
	v.SetDefault("S3_PATH_STYLE", false)
	v.SetDefault("PHOTO_PUBLIC_BASE_URL", "")
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("CONSULTANTS", "1:Jhonatan,2:Felipe,3:Everton,4:Pedro,5:Alexandre")
	v.SetDefault("CORS_ORIGINS", "")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case "postgres":
		if c.DBDSN == "" {
			return errors.New("DB_DSN is not set")
		}
	case "sqlite":
		if c.DBDSN == "" {
			c.DBDSN = "agrocrm.db"
		}
	default:
		return errors.New("DB_DRIVER must be postgres or sqlite")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is not set")
	}
	if c.JWTExpirationHours <= 0 {
		c.JWTExpirationHours = 24
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

// AllowedOrigins splits CORSOrigins.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
