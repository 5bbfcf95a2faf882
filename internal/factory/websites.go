package factory

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mycelian/postybirb/internal/config"
	"github.com/mycelian/postybirb/internal/websites"
	"github.com/mycelian/postybirb/internal/websites/bucket"
	"github.com/mycelian/postybirb/internal/websites/testsite"
	"github.com/mycelian/postybirb/internal/websites/webhook"
)

// NewRegistry registers every destination the config enables. The test destination is
// always present; webhook and bucket need their URL and bucket name.
func NewRegistry(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*websites.Registry, error) {
	reg := websites.NewRegistry()
	if err := testsite.New().Register(reg); err != nil {
		return nil, err
	}

	if cfg.WebhookURL != "" {
		site := webhook.New(webhook.Options{URL: cfg.WebhookURL, MaxRetries: cfg.WebhookMaxRetries})
		if err := site.Register(reg); err != nil {
			return nil, err
		}
	}

	if cfg.S3Bucket != "" {
		client, err := bucket.NewClient(ctx, bucket.Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		if err := bucket.New(client, cfg.S3Bucket).Register(reg); err != nil {
			return nil, err
		}
	}

	for _, d := range reg.Destinations() {
		log.Info().Str("website", d.Name).Interface("kinds", d.Kinds).Msg("destination registered")
	}
	return reg, nil
}
