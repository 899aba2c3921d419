package media

import (
	"context"
	"testing"
	"time"

	"github.com/saransh1220/talentbook/internal/shared/infrastructure/config"
	"github.com/saransh1220/talentbook/internal/shared/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModule(t *testing.T) {
	m, err := NewModule(context.Background(), config.MediaConfig{
		Bucket:      "media",
		Region:      "us-east-1",
		Endpoint:    "localhost:9000",
		AccessKey:   "minio",
		SecretKey:   "minio123",
		UploadTTL:   5 * time.Minute,
		DownloadTTL: time.Hour,
	}, logging.Nop())
	require.NoError(t, err)
	assert.NotNil(t, m.Service())
	assert.NotNil(t, m.HTTPHandler())

	_, err = NewModule(context.Background(), config.MediaConfig{}, logging.Nop())
	assert.ErrorContains(t, err, "bucket name is required")
}
