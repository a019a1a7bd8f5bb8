package storage_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/heic2pdf/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresignGetIsOffline(t *testing.T) {
	store, err := storage.NewS3Store(context.Background(), storage.S3Config{
		Endpoint:  "http://localhost:9000",
		Region:    "us-east-1",
		Bucket:    "conversions",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
	})
	require.NoError(t, err)

	raw, err := store.PresignGet(context.Background(), "conversions/u1/c1.pdf", "photo.pdf", 3*time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/conversions/conversions/u1/c1.pdf", u.Path)
	q := u.Query()
	assert.Equal(t, "10800", q.Get("X-Amz-Expires"))
	assert.Contains(t, q.Get("response-content-disposition"), "photo.pdf")
}
