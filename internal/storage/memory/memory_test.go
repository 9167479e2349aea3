package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princeprakhar/travel-review-backend/internal/storage"
)

func TestStorage_UploadAndDelete(t *testing.T) {
	s := New("reviews", "memory.local")
	ctx := context.Background()

	result, err := s.Upload(ctx, &storage.UploadInput{
		Key:         "1/abc_a.png",
		ContentType: "image/png",
		Size:        3,
		Body:        bytes.NewReader([]byte("png")),
		OwnerID:     "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://reviews.memory.local/1/abc_a.png", result.URL)
	assert.True(t, s.Has("1/abc_a.png"))
	assert.Equal(t, "1", s.Owner("1/abc_a.png"))

	key, err := s.KeyFromURL(result.URL)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, key))
	assert.False(t, s.Has(key))
	assert.Equal(t, 0, s.Len())
}

func TestStorage_DeleteMissing(t *testing.T) {
	s := New("reviews", "memory.local")

	err := s.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestStorage_FailDelete(t *testing.T) {
	s := New("reviews", "memory.local")
	boom := errors.New("boom")
	s.FailDelete = func(string) error { return boom }

	err := s.Delete(context.Background(), "any")
	assert.ErrorIs(t, err, boom)
}

func TestStorage_UploadHonoursCancelledContext(t *testing.T) {
	s := New("reviews", "memory.local")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Upload(ctx, &storage.UploadInput{Key: "k", Body: bytes.NewReader(nil)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, s.Has("k"))
}
