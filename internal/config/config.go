package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string // TRIPWIRE_DATABASE_URL (required)
	HTTPAddr    string // TRIPWIRE_HTTP_ADDR (default ":8080")
	NATSURL     string // TRIPWIRE_NATS_URL (optional, empty = no events)
	AuthToken   string // TRIPWIRE_AUTH_TOKEN (optional, empty = auth disabled)

	// Oracle settings
	OracleURL string // TRIPWIRE_ORACLE_URL (required; base URL of the value feed service)

	// Auto-trigger: consume the condition flag as soon as a gate arms.
	// Requires NATSURL.
	AutoTrigger bool // TRIPWIRE_AUTO_TRIGGER (default false)

	// Export settings
	ExportInterval   time.Duration // TRIPWIRE_EXPORT_INTERVAL (default 3m; 0 = disabled)
	ExportS3Bucket   string        // TRIPWIRE_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string        // TRIPWIRE_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string        // TRIPWIRE_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Key      string        // TRIPWIRE_EXPORT_S3_KEY (default "tripwire/snapshot.jsonl")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:      os.Getenv("TRIPWIRE_DATABASE_URL"),
		HTTPAddr:         envOrDefault("TRIPWIRE_HTTP_ADDR", ":8080"),
		NATSURL:          os.Getenv("TRIPWIRE_NATS_URL"),
		AuthToken:        os.Getenv("TRIPWIRE_AUTH_TOKEN"),
		OracleURL:        os.Getenv("TRIPWIRE_ORACLE_URL"),
		ExportS3Bucket:   os.Getenv("TRIPWIRE_EXPORT_S3_BUCKET"),
		ExportS3Endpoint: os.Getenv("TRIPWIRE_EXPORT_S3_ENDPOINT"),
		ExportS3Region:   envOrDefault("TRIPWIRE_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Key:      envOrDefault("TRIPWIRE_EXPORT_S3_KEY", "tripwire/snapshot.jsonl"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("TRIPWIRE_DATABASE_URL is required")
	}
	if c.OracleURL == "" {
		return nil, fmt.Errorf("TRIPWIRE_ORACLE_URL is required")
	}

	if v := os.Getenv("TRIPWIRE_AUTO_TRIGGER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("TRIPWIRE_AUTO_TRIGGER: %w", err)
		}
		c.AutoTrigger = b
	}
	if c.AutoTrigger && c.NATSURL == "" {
		return nil, fmt.Errorf("TRIPWIRE_AUTO_TRIGGER requires TRIPWIRE_NATS_URL")
	}

	intervalStr := envOrDefault("TRIPWIRE_EXPORT_INTERVAL", "3m")
	if intervalStr != "" {
		d, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("TRIPWIRE_EXPORT_INTERVAL: %w", err)
		}
		c.ExportInterval = d
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
