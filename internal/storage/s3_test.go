package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"tutorhub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewThumbnailStoreRequiresBucket(t *testing.T) {
	_, err := NewThumbnailStore(context.Background(), &config.Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPresignGetUsesPathStyleEndpoint(t *testing.T) {
	cfg := &config.Config{
		S3URL:       "http://localhost:9000",
		S3Bucket:    "thumbnails",
		S3Region:    "us-east-1",
		S3AccessKey: "access",
		S3SecretKey: "secret",
	}
	store, err := NewThumbnailStore(context.Background(), cfg)
	require.NoError(t, err)

	signed, err := store.PresignGet(context.Background(), "courses/intro.png")
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.True(t, strings.HasPrefix(u.Path, "/thumbnails/courses/intro.png"))
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
}
