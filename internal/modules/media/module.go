package media

import (
	"context"
	"fmt"

	"github.com/saransh1220/talentbook/internal/modules/media/application"
	"github.com/saransh1220/talentbook/internal/modules/media/infrastructure/s3"
	media_http "github.com/saransh1220/talentbook/internal/modules/media/interfaces/http"
	"github.com/saransh1220/talentbook/internal/shared/infrastructure/config"
	"github.com/saransh1220/talentbook/internal/shared/logging"
)

// Module represents the media upload module
type Module struct {
	service *application.MediaService
	handler *media_http.MediaHandler
}

func NewModule(ctx context.Context, cfg config.MediaConfig, log logging.Logger) (*Module, error) {
	storage, err := s3.NewS3Storage(ctx, s3.S3Config{
		BucketName:     cfg.Bucket,
		Region:         cfg.Region,
		Endpoint:       cfg.Endpoint,
		PublicEndpoint: cfg.PublicEndpoint,
		AccessKey:      cfg.AccessKey,
		SecretKey:      cfg.SecretKey,
		UseSSL:         cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
	}

	service := application.NewMediaService(storage, log, application.WithTTLs(cfg.UploadTTL, cfg.DownloadTTL))
	return &Module{
		service: service,
		handler: media_http.NewMediaHandler(service, log),
	}, nil
}

func (m *Module) Service() *application.MediaService {
	return m.service
}

func (m *Module) HTTPHandler() *media_http.MediaHandler {
	return m.handler
}
