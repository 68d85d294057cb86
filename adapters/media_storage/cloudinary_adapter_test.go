package media_storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/devconnector/internal/config"
	"github.com/khoahotran/devconnector/pkg/logger"
)

func TestNewCloudinaryAdapter_NotConfigured(t *testing.T) {
	_, err := NewCloudinaryAdapter(config.Config{}, logger.NewNop())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewCloudinaryAdapter_Configured(t *testing.T) {
	var cfg config.Config
	cfg.Cloudinary.CloudName = "demo"
	cfg.Cloudinary.ApiKey = "key"
	cfg.Cloudinary.ApiSecret = "secret"

	uploader, err := NewCloudinaryAdapter(cfg, logger.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, uploader)
}
