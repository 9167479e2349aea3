package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/princeprakhar/travel-review-backend/internal/database/testutil"
	"github.com/princeprakhar/travel-review-backend/internal/metrics"
	"github.com/princeprakhar/travel-review-backend/internal/models"
	"github.com/princeprakhar/travel-review-backend/internal/storage/memory"
)

const (
	testBucket = "reviews"
	testHost   = "memory.local"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake image body")

type fixture struct {
	db      *gorm.DB
	store   *memory.Storage
	metrics *metrics.Metrics
	images  *ImageService
	reviews *ReviewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	store := memory.New(testBucket, testHost)
	m := metrics.New(prometheus.NewRegistry())
	images := NewImageService(db, store, ImageConfig{
		AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
		MaxUploadSize:     1024,
		UploadTimeout:     5 * time.Second,
		ReaperCutoff:      time.Hour,
		Location:          time.UTC,
	}, m)

	return &fixture{
		db:      db,
		store:   store,
		metrics: m,
		images:  images,
		reviews: NewReviewService(db, images, m),
	}
}

func (f *fixture) createUser(t *testing.T, email, nickname string) models.User {
	t.Helper()
	user := models.User{Email: email, PasswordHash: "not-a-real-hash", Nickname: nickname, IsActive: true}
	require.NoError(t, f.db.Create(&user).Error)
	return user
}

func (f *fixture) createRoute(t *testing.T, userID uint) models.TravelRoute {
	t.Helper()
	route := models.TravelRoute{UserID: userID, Name: "Jeju loop"}
	require.NoError(t, f.db.Create(&route).Error)
	return route
}

func (f *fixture) createReview(t *testing.T, userID, routeID uint, title string, createdAt time.Time) models.Review {
	t.Helper()
	review := models.Review{
		UserID:        userID,
		TravelRouteID: routeID,
		Title:         title,
		Rating:        4,
		Content:       "content of " + title,
		IsActive:      true,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	require.NoError(t, f.db.Create(&review).Error)
	return review
}

func (f *fixture) upload(t *testing.T, userID uint, name string) string {
	t.Helper()
	resp, err := f.images.HandleFileOrURL(context.Background(), UploadImageInput{
		UserID:   userID,
		File:     bytes.NewReader(pngBytes),
		FileName: name,
	})
	require.NoError(t, err)
	return resp.URL
}

func (f *fixture) image(t *testing.T, url string) models.ReviewImage {
	t.Helper()
	var img models.ReviewImage
	require.NoError(t, f.db.Where("filepath = ?", url).First(&img).Error)
	return img
}

func (f *fixture) imageExists(t *testing.T, url string) bool {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.ReviewImage{}).Where("filepath = ?", url).Count(&count).Error)
	return count > 0
}

func (f *fixture) objectExists(t *testing.T, url string) bool {
	t.Helper()
	key, err := f.store.KeyFromURL(url)
	require.NoError(t, err)
	return f.store.Has(key)
}
