package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/princeprakhar/travel-review-backend/internal/metrics"
	"github.com/princeprakhar/travel-review-backend/internal/models"
	"github.com/princeprakhar/travel-review-backend/internal/storage"
	"github.com/princeprakhar/travel-review-backend/internal/utils"
	"github.com/princeprakhar/travel-review-backend/pkg/logger"
	"gorm.io/gorm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// errImageClaimed means the conditional delete matched no row: the image was
// associated with a review (or removed) after the sweep selected it.
var errImageClaimed = errors.New("image is no longer temporary")

type ImageConfig struct {
	AllowedExtensions []string
	MaxUploadSize     int64
	UploadTimeout     time.Duration
	ReaperCutoff      time.Duration
	Location          *time.Location
}

// ImageService owns the temporary image lifecycle: upload, association with a
// review, explicit deletion and the reaper sweep.
type ImageService struct {
	db         *gorm.DB
	storage    storage.Storage
	httpClient *http.Client
	cfg        ImageConfig
	metrics    *metrics.Metrics
}

func NewImageService(db *gorm.DB, store storage.Storage, cfg ImageConfig, m *metrics.Metrics) *ImageService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ImageService{
		db:         db,
		storage:    store,
		httpClient: &http.Client{},
		cfg:        cfg,
		metrics:    m,
	}
}

type UploadImageInput struct {
	UserID   uint
	File     io.Reader
	FileName string
	URL      string
}

type UploadImageResponse struct {
	URL        string                 `json:"url"`
	SourceType models.ImageSourceType `json:"source_type"`
}

// DeletionBatch carries the images a review edit detached until the edit has
// committed, and collects the URLs whose objects were then removed.
type DeletionBatch struct {
	mu      sync.Mutex
	pending []models.ReviewImage
	urls    []string
}

func (b *DeletionBatch) Add(url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.urls = append(b.urls, url)
}

func (b *DeletionBatch) URLs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.urls...)
}

// Pending returns the detached images not yet purged.
func (b *DeletionBatch) Pending() []models.ReviewImage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.ReviewImage(nil), b.pending...)
}

// HandleFileOrURL uploads exactly one of a file or a remote URL to storage and
// records it as a temporary image. The row is written only after storage
// confirms the transfer.
func (s *ImageService) HandleFileOrURL(ctx context.Context, input UploadImageInput) (*UploadImageResponse, error) {
	hasFile := input.File != nil
	hasURL := strings.TrimSpace(input.URL) != ""

	switch {
	case hasFile && hasURL:
		return nil, ValidationError("provide either a file or a url, not both")
	case !hasFile && !hasURL:
		return nil, ValidationError("no file or url provided")
	}

	var (
		data       []byte
		fileName   string
		sourceType models.ImageSourceType
		err        error
	)

	uploadCtx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()

	if hasFile {
		sourceType = models.ImageSourceUpload
		if input.FileName == "" {
			return nil, ValidationError("invalid file: filename is required")
		}
		fileName = filepath.Base(input.FileName)
		if err := s.validateExtension(fileName); err != nil {
			return nil, err
		}
		data, err = s.readLimited(input.File)
		if err != nil {
			return nil, err
		}
	} else {
		sourceType = models.ImageSourceLink
		data, fileName, err = s.fetchRemote(uploadCtx, strings.TrimSpace(input.URL))
		if err != nil {
			return nil, err
		}
	}

	key := fmt.Sprintf("%d/%s_%s", input.UserID, strings.ReplaceAll(uuid.New().String(), "-", ""), sanitizeFilename(fileName))

	result, err := s.storage.Upload(uploadCtx, &storage.UploadInput{
		Key:         key,
		ContentType: contentTypeFromExtension(fileName),
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
		OwnerID:     strconv.FormatUint(uint64(input.UserID), 10),
	})
	if err != nil {
		s.countUpload(sourceType, "failed")
		return nil, translateStorageError(err, "file upload failed")
	}

	image := models.ReviewImage{
		UserID:      input.UserID,
		Filepath:    result.URL,
		SourceType:  sourceType,
		IsTemporary: true,
	}
	if err := s.db.WithContext(ctx).Create(&image).Error; err != nil {
		// Attempt to clean up the uploaded object on DB failure.
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), result.Key); delErr != nil {
			logger.WithFields(logger.Fields{"key": result.Key, "error": delErr}).
				Error("failed to clean up storage after db error")
		}
		s.countUpload(sourceType, "failed")
		return nil, InternalError("failed to save image", err)
	}

	s.countUpload(sourceType, "success")
	logger.WithFields(logger.Fields{
		"image_id": image.ID,
		"user_id":  input.UserID,
		"source":   sourceType,
		"size":     len(data),
	}).Info("temporary image uploaded")

	return &UploadImageResponse{URL: result.URL, SourceType: sourceType}, nil
}

// ProcessImageDeletion removes the object behind url from storage and records
// the url in batch. A missing object counts as deleted.
func (s *ImageService) ProcessImageDeletion(ctx context.Context, url string, batch *DeletionBatch) error {
	key, err := s.storage.KeyFromURL(url)
	if err != nil {
		return ValidationError("invalid image url: %s", url)
	}

	if err := s.storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.countDeletion("failed")
		return translateStorageError(err, "failed to delete image")
	}

	s.countDeletion("success")
	if batch != nil {
		batch.Add(url)
	}
	return nil
}

// DeleteTemporaryImage lets the uploader discard an image before it is
// attached to a review. The row is removed only if the storage delete
// succeeds.
func (s *ImageService) DeleteTemporaryImage(ctx context.Context, userID uint, url string) error {
	var image models.ReviewImage
	if err := s.db.WithContext(ctx).Where("filepath = ?", url).First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFoundError("image")
		}
		return InternalError("failed to find image", err)
	}
	if image.UserID != userID {
		return PermissionError("you do not have permission to delete this image")
	}
	if !image.IsTemporary {
		return ValidationError("image is attached to a review; remove it by editing the review")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ? AND is_temporary = ?", image.ID, userID, true).
			Delete(&models.ReviewImage{})
		if res.Error != nil {
			return InternalError("failed to delete image", res.Error)
		}
		if res.RowsAffected == 0 {
			return ValidationError("image is attached to a review; remove it by editing the review")
		}
		return s.ProcessImageDeletion(ctx, url, nil)
	})
}

// AttachImages applies a review submission's image changes inside tx:
// uploaded URLs become permanent images of reviewID and deleted URLs are
// detached, turning back into temporary rows with no review. Any failure
// aborts the caller's transaction so no partial association is left behind.
// Storage is not touched here; the caller hands the returned batch to
// PurgeDetached once the transaction has committed.
func (s *ImageService) AttachImages(ctx context.Context, tx *gorm.DB, reviewID, userID uint, uploaded, deleted []string) (*DeletionBatch, error) {
	deleted = uniqueURLs(deleted)
	removed := make(map[string]bool, len(deleted))
	for _, u := range deleted {
		removed[u] = true
	}
	var toAttach []string
	for _, u := range uniqueURLs(uploaded) {
		if !removed[u] {
			toAttach = append(toAttach, u)
		}
	}

	batch := &DeletionBatch{}
	var doomed []models.ReviewImage
	if len(deleted) > 0 {
		if err := tx.Where("filepath IN ? AND user_id = ? AND (review_id = ? OR is_temporary = ?)", deleted, userID, reviewID, true).
			Find(&doomed).Error; err != nil {
			return nil, InternalError("failed to find images to delete", err)
		}
		if len(doomed) != len(deleted) {
			return nil, ValidationError("deleted_urls contains images that do not belong to this review")
		}
	}

	if err := s.associate(tx, reviewID, userID, toAttach); err != nil {
		return nil, err
	}

	if len(doomed) == 0 {
		return batch, nil
	}

	ids := make([]uint, 0, len(doomed))
	for _, img := range doomed {
		ids = append(ids, img.ID)
	}
	if err := tx.Model(&models.ReviewImage{}).
		Where("id IN ? AND user_id = ?", ids, userID).
		Updates(map[string]interface{}{
			"review_id":    nil,
			"is_temporary": true,
		}).Error; err != nil {
		return nil, InternalError("failed to detach images", err)
	}
	for i := range doomed {
		doomed[i].ReviewID = nil
		doomed[i].IsTemporary = true
	}
	batch.pending = doomed

	logger.WithFields(logger.Fields{"review_id": reviewID, "detached": len(doomed)}).
		Debug("review images detached")
	return batch, nil
}

// PurgeDetached deletes the rows and objects of images detached by a
// committed review edit, using the same compare-and-delete as the reaper. An
// image whose object cannot be removed keeps its temporary row, so a later
// sweep retries it. Returns the number of images left behind.
func (s *ImageService) PurgeDetached(ctx context.Context, batch *DeletionBatch) int {
	if batch == nil {
		return 0
	}
	var failed int
	for _, image := range batch.Pending() {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Where("id = ? AND is_temporary = ?", image.ID, true).Delete(&models.ReviewImage{})
			if res.Error != nil {
				return fmt.Errorf("delete image row: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return errImageClaimed
			}
			return s.ProcessImageDeletion(ctx, image.Filepath, batch)
		})
		if err != nil && !errors.Is(err, errImageClaimed) {
			failed++
			logger.WithFields(logger.Fields{
				"image_id": image.ID,
				"filepath": image.Filepath,
				"error":    err,
			}).Warn("failed to delete detached image, leaving it for the reaper")
		}
	}
	return failed
}

// associate flips pending temporary images of userID to reviewID with one
// conditional UPDATE. A row count short of the request means some URL was not
// a pending upload of this user, or was reaped in between.
func (s *ImageService) associate(tx *gorm.DB, reviewID, userID uint, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	// URLs already attached to this review are accepted as-is on update.
	var existing []string
	if err := tx.Model(&models.ReviewImage{}).
		Where("review_id = ? AND filepath IN ?", reviewID, urls).
		Pluck("filepath", &existing).Error; err != nil {
		return InternalError("failed to load review images", err)
	}
	already := make(map[string]bool, len(existing))
	for _, u := range existing {
		already[u] = true
	}
	var pending []string
	for _, u := range urls {
		if !already[u] {
			pending = append(pending, u)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	res := tx.Model(&models.ReviewImage{}).
		Where("user_id = ? AND filepath IN ? AND is_temporary = ?", userID, pending, true).
		Updates(map[string]interface{}{
			"review_id":    reviewID,
			"is_temporary": false,
		})
	if res.Error != nil {
		return InternalError("failed to attach images", res.Error)
	}
	if res.RowsAffected != int64(len(pending)) {
		return ValidationError("image_urls contains images that are not pending uploads of this user")
	}
	return nil
}

type SweepResult struct {
	Candidates int
	Reaped     int
	Skipped    int
	Failed     int
}

// CleanupTemporaryImages reaps temporary images older than the cutoff. Per
// image failures are logged and left for the next sweep.
func (s *ImageService) CleanupTemporaryImages(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	start := time.Now()
	cutoff := time.Now().In(s.cfg.Location).Add(-s.cfg.ReaperCutoff)

	var candidates []models.ReviewImage
	if err := s.db.WithContext(ctx).
		Where("is_temporary = ? AND created_at < ?", true, cutoff.UTC()).
		Order("id ASC").
		Find(&candidates).Error; err != nil {
		return result, fmt.Errorf("select expired temporary images: %w", err)
	}
	result.Candidates = len(candidates)

	for _, image := range candidates {
		if ctx.Err() != nil {
			break
		}
		err := s.reapImage(ctx, image)
		switch {
		case err == nil:
			result.Reaped++
		case errors.Is(err, errImageClaimed):
			result.Skipped++
		default:
			result.Failed++
			logger.WithFields(logger.Fields{
				"image_id": image.ID,
				"filepath": image.Filepath,
				"error":    err,
			}).Warn("failed to clean up temporary image")
		}
	}

	if s.metrics != nil {
		s.metrics.ReaperSweeps.Inc()
		s.metrics.ReaperReaped.Add(float64(result.Reaped))
		s.metrics.ReaperSkipped.Add(float64(result.Skipped))
		s.metrics.ReaperFailures.Add(float64(result.Failed))
		s.metrics.ReaperDuration.Observe(time.Since(start).Seconds())
	}

	return result, nil
}

// reapImage claims the row with a compare-and-delete evaluated by the
// datastore, then deletes the object. The row lock is held until commit, so a
// concurrent association either wins before the delete (zero rows) or waits
// and finds the row gone. A storage failure rolls the row back for retry.
func (s *ImageService) reapImage(ctx context.Context, image models.ReviewImage) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND is_temporary = ?", image.ID, true).Delete(&models.ReviewImage{})
		if res.Error != nil {
			return fmt.Errorf("delete image row: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errImageClaimed
		}
		return s.deleteFile(ctx, image)
	})
}

// deleteFile removes the stored object behind a reaped image. Uploaded files
// and mirrored links both live in the configured bucket.
func (s *ImageService) deleteFile(ctx context.Context, image models.ReviewImage) error {
	key, err := s.storage.KeyFromURL(image.Filepath)
	if err != nil {
		logger.WithFields(logger.Fields{"image_id": image.ID, "filepath": image.Filepath}).
			Warn("temporary image is outside the configured bucket, dropping row only")
		return nil
	}

	if err := s.storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("delete %s object %s: %w", strings.ToLower(string(image.SourceType)), key, err)
	}
	return nil
}

func (s *ImageService) validateExtension(fileName string) error {
	if utils.HasAllowedExtension(fileName, s.cfg.AllowedExtensions) {
		return nil
	}
	return ValidationError("file extension must be one of %s", strings.Join(s.cfg.AllowedExtensions, ", "))
}

// readLimited reads at most MaxUploadSize bytes and fails before any storage
// transfer when the content is larger.
func (s *ImageService) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUploadSize+1))
	if err != nil {
		return nil, ValidationError("failed to read file: %v", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadSize {
		return nil, PayloadTooLargeError(s.cfg.MaxUploadSize)
	}
	return data, nil
}

// fetchRemote checks the declared Content-Length with a HEAD request, then
// streams the body. The HEAD is best effort: servers that refuse it still get
// the GET, whose read is capped.
func (s *ImageService) fetchRemote(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, "", ValidationError("invalid url: %s", rawURL)
	}

	fileName := path.Base(u.Path)
	if err := s.validateExtension(fileName); err != nil {
		return nil, "", err
	}

	headReq, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, "", ValidationError("invalid url: %s", rawURL)
	}
	if headResp, err := s.httpClient.Do(headReq); err != nil {
		logger.WithFields(logger.Fields{"url": rawURL, "error": err}).
			Debug("HEAD request failed, relying on the capped GET")
	} else {
		headResp.Body.Close()
		if headResp.StatusCode < 300 && headResp.ContentLength > s.cfg.MaxUploadSize {
			return nil, "", PayloadTooLargeError(s.cfg.MaxUploadSize)
		}
	}

	getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", ValidationError("invalid url: %s", rawURL)
	}
	resp, err := s.httpClient.Do(getReq)
	if err != nil {
		return nil, "", UpstreamError("failed to fetch url content", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", UpstreamError(fmt.Sprintf("failed to fetch url content: status %d", resp.StatusCode), nil)
	}
	if resp.ContentLength > s.cfg.MaxUploadSize {
		return nil, "", PayloadTooLargeError(s.cfg.MaxUploadSize)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxUploadSize+1))
	if err != nil {
		return nil, "", UpstreamError("failed to read url content", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadSize {
		return nil, "", PayloadTooLargeError(s.cfg.MaxUploadSize)
	}
	return data, fileName, nil
}

func (s *ImageService) countUpload(source models.ImageSourceType, outcome string) {
	if s.metrics != nil {
		s.metrics.ImageUploads.WithLabelValues(string(source), outcome).Inc()
	}
}

func (s *ImageService) countDeletion(outcome string) {
	if s.metrics != nil {
		s.metrics.ImageDeletions.WithLabelValues(outcome).Inc()
	}
}

func translateStorageError(err error, message string) error {
	switch {
	case errors.Is(err, storage.ErrCredentials):
		return UpstreamError("storage credentials not available", err)
	case errors.Is(err, storage.ErrUnavailable):
		return UpstreamError("storage temporarily unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		return UpstreamError(message+": timed out", err)
	default:
		return UpstreamError(message, err)
	}
}

func contentTypeFromExtension(filename string) string {
	switch utils.FileExtension(filename) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func sanitizeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(filepath.Base(name), "_")
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}

func uniqueURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
