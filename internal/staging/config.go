package staging

import (
	"errors"
	"fmt"
	"strings"

	"github.com/forgeci/pubforge/internal/platform/env"
)

type Config struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
}

func ConfigFromEnv() (Config, error) {
	enabled, err := env.Bool("PUBFORGE_STAGING_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	useSSL, err := env.Bool("PUBFORGE_STAGING_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Enabled:   enabled,
		Endpoint:  env.String("PUBFORGE_STAGING_ENDPOINT", "localhost:9000"),
		AccessKey: env.String("PUBFORGE_STAGING_ACCESS_KEY", ""),
		SecretKey: env.String("PUBFORGE_STAGING_SECRET_KEY", ""),
		Region:    env.String("PUBFORGE_STAGING_REGION", "us-east-1"),
		UseSSL:    useSSL,
		Bucket:    env.String("PUBFORGE_STAGING_BUCKET", "publish-staging"),
	}
	if !cfg.Enabled {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("staging endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("staging endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("staging access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("staging secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("staging region is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("staging bucket is required")
	}
	return nil
}
