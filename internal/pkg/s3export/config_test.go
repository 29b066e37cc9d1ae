package s3export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDisabledByDefault(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.IsEnabled())
}

func TestLoadConfigEnabledRequiresCredentials(t *testing.T) {
	t.Setenv("S3_EXPORT_ENABLED", "true")
	t.Setenv("S3_ACCESS_KEY_ID", "")

	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("S3_BUCKET_NAME", "subfox-exports")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsEnabled())
	assert.Equal(t, "subfox-exports", cfg.GetBucketName())
}

func TestGetObjectKey(t *testing.T) {
	cfg := &Config{}
	at := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	key := cfg.GetObjectKey(42, at)
	assert.Equal(t, "exports/42/2026/08/subscriptions-1787911200.json", key)
}
