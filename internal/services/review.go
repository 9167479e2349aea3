package services

import (
	"context"
	"errors"

	"github.com/princeprakhar/travel-review-backend/internal/metrics"
	"github.com/princeprakhar/travel-review-backend/internal/models"
	"github.com/princeprakhar/travel-review-backend/internal/utils"
	"github.com/princeprakhar/travel-review-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Sortable columns for ListReviews. Anything else is rejected.
var reviewOrderColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"rating":     true,
	"like_count": true,
}

type ReviewService struct {
	db      *gorm.DB
	images  *ImageService
	metrics *metrics.Metrics
}

func NewReviewService(db *gorm.DB, images *ImageService, m *metrics.Metrics) *ReviewService {
	return &ReviewService{db: db, images: images, metrics: m}
}

type CreateReviewRequest struct {
	TravelRouteID uint     `json:"travelroute_id" binding:"required"`
	Title         string   `json:"title" binding:"required"`
	Rating        float64  `json:"rating"`
	Content       string   `json:"content" binding:"required"`
	ImageURLs     []string `json:"image_urls"`
}

type UpdateReviewRequest struct {
	Title       *string  `json:"title"`
	Rating      *float64 `json:"rating"`
	Content     *string  `json:"content"`
	ImageURLs   []string `json:"image_urls"`
	DeletedURLs []string `json:"deleted_urls"`
}

type ReviewResponse struct {
	ID            uint     `json:"id"`
	UserID        uint     `json:"user_id"`
	Nickname      string   `json:"nickname"`
	TravelRouteID uint     `json:"travelroute_id"`
	Title         string   `json:"title"`
	Rating        float64  `json:"rating"`
	Content       string   `json:"content"`
	LikeCount     int      `json:"like_count"`
	LikedByUser   bool     `json:"liked_by_user"`
	Images        []string `json:"images"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

// ListReviewsParams drives the listing engine. ViewerID only annotates
// liked_by_user; zero means an anonymous viewer.
type ListReviewsParams struct {
	Page          int
	Size          int
	OrderBy       string
	Order         string
	ViewerID      uint
	TravelRouteID *uint
}

type ReviewListResponse struct {
	Reviews    []ReviewResponse `json:"reviews"`
	Page       int              `json:"page"`
	Size       int              `json:"size"`
	TotalPages int              `json:"total_pages"`
	Total      int64            `json:"total"`
}

type LikeResponse struct {
	ReviewID  uint `json:"review_id"`
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

func (s *ReviewService) CreateReview(ctx context.Context, userID uint, req CreateReviewRequest) (*ReviewResponse, error) {
	title := utils.SanitizeString(req.Title)
	content := utils.SanitizeString(req.Content)
	if title == "" || content == "" {
		return nil, ValidationError("title and content are required")
	}
	if !utils.IsValidRating(req.Rating) {
		return nil, ValidationError("rating must be between 0 and 5")
	}

	var route models.TravelRoute
	if err := s.db.WithContext(ctx).First(&route, req.TravelRouteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("travel route")
		}
		return nil, InternalError("failed to find travel route", err)
	}

	review := models.Review{
		UserID:        userID,
		TravelRouteID: route.ID,
		Title:         title,
		Rating:        req.Rating,
		Content:       content,
		IsActive:      true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&review).Error; err != nil {
			return InternalError("failed to create review", err)
		}
		_, err := s.images.AttachImages(ctx, tx, review.ID, userID, req.ImageURLs, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"review_id": review.ID,
		"user_id":   userID,
		"images":    len(req.ImageURLs),
	}).Info("review created")

	return s.GetReview(ctx, review.ID, userID)
}

func (s *ReviewService) GetReview(ctx context.Context, reviewID, viewerID uint) (*ReviewResponse, error) {
	review, err := s.findActive(s.db.WithContext(ctx), reviewID)
	if err != nil {
		return nil, err
	}

	responses, err := s.buildResponses(ctx, []models.Review{*review}, viewerID)
	if err != nil {
		return nil, err
	}
	return &responses[0], nil
}

// ListReviews returns one page of active reviews. Ordering is (order_by,
// order) with id ascending as the tie-break, so pages never overlap. Sizes
// above MaxPageSize are clamped.
func (s *ReviewService) ListReviews(ctx context.Context, params ListReviewsParams) (*ReviewListResponse, error) {
	if params.Page < 1 {
		return nil, ValidationError("page must be at least 1")
	}
	if params.Size < 1 {
		return nil, ValidationError("size must be at least 1")
	}
	if params.Size > MaxPageSize {
		params.Size = MaxPageSize
	}
	if params.OrderBy == "" {
		params.OrderBy = "created_at"
	}
	if !reviewOrderColumns[params.OrderBy] {
		return nil, ValidationError("invalid order_by %q", params.OrderBy)
	}
	if params.Order == "" {
		params.Order = "desc"
	}
	if params.Order != "asc" && params.Order != "desc" {
		return nil, ValidationError("order must be asc or desc")
	}

	filter := func(db *gorm.DB) *gorm.DB {
		db = db.Where("is_active = ?", true)
		if params.TravelRouteID != nil {
			db = db.Where("travel_route_id = ?", *params.TravelRouteID)
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Review{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, InternalError("failed to count reviews", err)
	}

	var reviews []models.Review
	if err := s.db.WithContext(ctx).Scopes(filter).
		Order(clause.OrderByColumn{Column: clause.Column{Name: params.OrderBy}, Desc: params.Order == "desc"}).
		Order("id ASC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&reviews).Error; err != nil {
		return nil, InternalError("failed to fetch reviews", err)
	}

	responses, err := s.buildResponses(ctx, reviews, params.ViewerID)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ReviewListLength.Observe(float64(len(responses)))
	}

	return &ReviewListResponse{
		Reviews:    responses,
		Page:       params.Page,
		Size:       params.Size,
		TotalPages: int((total + int64(params.Size) - 1) / int64(params.Size)),
		Total:      total,
	}, nil
}

// UpdateReview applies field changes and image changes in one transaction.
// Objects of deleted images are removed only after the commit.
func (s *ReviewService) UpdateReview(ctx context.Context, userID, reviewID uint, req UpdateReviewRequest) (*ReviewResponse, error) {
	review, err := s.findActive(s.db.WithContext(ctx), reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, PermissionError("you do not have permission to edit this review")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := utils.SanitizeString(*req.Title)
		if title == "" {
			return nil, ValidationError("title must not be empty")
		}
		updates["title"] = title
	}
	if req.Content != nil {
		content := utils.SanitizeString(*req.Content)
		if content == "" {
			return nil, ValidationError("content must not be empty")
		}
		updates["content"] = content
	}
	if req.Rating != nil {
		if !utils.IsValidRating(*req.Rating) {
			return nil, ValidationError("rating must be between 0 and 5")
		}
		updates["rating"] = *req.Rating
	}

	var detached *DeletionBatch
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(review).Updates(updates).Error; err != nil {
				return InternalError("failed to update review", err)
			}
		}
		var err error
		detached, err = s.images.AttachImages(ctx, tx, review.ID, userID, req.ImageURLs, req.DeletedURLs)
		return err
	})
	if err != nil {
		return nil, err
	}

	if failed := s.images.PurgeDetached(context.WithoutCancel(ctx), detached); failed > 0 {
		logger.WithFields(logger.Fields{"review_id": review.ID, "failed": failed}).
			Warn("some deleted images await the reaper")
	}

	return s.GetReview(ctx, review.ID, userID)
}

// DeleteReview hides the review. Its images and likes stay in place.
func (s *ReviewService) DeleteReview(ctx context.Context, userID, reviewID uint) error {
	review, err := s.findActive(s.db.WithContext(ctx), reviewID)
	if err != nil {
		return err
	}
	if review.UserID != userID {
		return PermissionError("you do not have permission to delete this review")
	}

	if err := s.db.WithContext(ctx).Model(review).Update("is_active", false).Error; err != nil {
		return InternalError("failed to delete review", err)
	}
	return nil
}

// ToggleLike likes the review, or removes the like if the viewer already
// liked it. like_count moves only when a like row was actually inserted or
// deleted, keeping it equal to the number of rows.
func (s *ReviewService) ToggleLike(ctx context.Context, userID, reviewID uint) (*LikeResponse, error) {
	resp := &LikeResponse{ReviewID: reviewID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		review, err := s.findActive(tx, reviewID)
		if err != nil {
			return err
		}

		res := tx.Where("user_id = ? AND review_id = ?", userID, reviewID).Delete(&models.Like{})
		if res.Error != nil {
			return InternalError("failed to remove like", res.Error)
		}

		delta := -1
		if res.RowsAffected == 0 {
			res = tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.Like{UserID: userID, ReviewID: reviewID})
			if res.Error != nil {
				return InternalError("failed to add like", res.Error)
			}
			delta = 1
			resp.Liked = true
		}

		if res.RowsAffected == 1 {
			if err := tx.Model(&models.Review{}).Where("id = ?", review.ID).
				UpdateColumn("like_count", gorm.Expr("like_count + ?", delta)).Error; err != nil {
				return InternalError("failed to update like count", err)
			}
		}

		var current models.Review
		if err := tx.Select("id", "like_count").First(&current, review.ID).Error; err != nil {
			return InternalError("failed to reload like count", err)
		}
		resp.LikeCount = current.LikeCount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *ReviewService) findActive(db *gorm.DB, reviewID uint) (*models.Review, error) {
	var review models.Review
	if err := db.Where("id = ? AND is_active = ?", reviewID, true).First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("review")
		}
		return nil, InternalError("failed to find review", err)
	}
	return &review, nil
}

// buildResponses loads nicknames, images and the viewer's likes for a page of
// reviews with one query each.
func (s *ReviewService) buildResponses(ctx context.Context, reviews []models.Review, viewerID uint) ([]ReviewResponse, error) {
	responses := make([]ReviewResponse, 0, len(reviews))
	if len(reviews) == 0 {
		return responses, nil
	}

	reviewIDs := make([]uint, 0, len(reviews))
	userIDs := make([]uint, 0, len(reviews))
	for _, r := range reviews {
		reviewIDs = append(reviewIDs, r.ID)
		userIDs = append(userIDs, r.UserID)
	}

	db := s.db.WithContext(ctx)

	var users []models.User
	if err := db.Select("id", "nickname").Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, InternalError("failed to load review authors", err)
	}
	nicknames := make(map[uint]string, len(users))
	for _, u := range users {
		nicknames[u.ID] = u.Nickname
	}

	var images []models.ReviewImage
	if err := db.Where("review_id IN ?", reviewIDs).Order("id ASC").Find(&images).Error; err != nil {
		return nil, InternalError("failed to load review images", err)
	}
	imagesByReview := make(map[uint][]string, len(reviews))
	for _, img := range images {
		if img.ReviewID != nil {
			imagesByReview[*img.ReviewID] = append(imagesByReview[*img.ReviewID], img.Filepath)
		}
	}

	liked := make(map[uint]bool)
	if viewerID != 0 {
		var likedIDs []uint
		if err := db.Model(&models.Like{}).
			Where("user_id = ? AND review_id IN ?", viewerID, reviewIDs).
			Pluck("review_id", &likedIDs).Error; err != nil {
			return nil, InternalError("failed to load likes", err)
		}
		for _, id := range likedIDs {
			liked[id] = true
		}
	}

	for _, r := range reviews {
		urls := imagesByReview[r.ID]
		if urls == nil {
			urls = []string{}
		}
		responses = append(responses, ReviewResponse{
			ID:            r.ID,
			UserID:        r.UserID,
			Nickname:      nicknames[r.UserID],
			TravelRouteID: r.TravelRouteID,
			Title:         r.Title,
			Rating:        r.Rating,
			Content:       r.Content,
			LikeCount:     r.LikeCount,
			LikedByUser:   liked[r.ID],
			Images:        urls,
			CreatedAt:     r.CreatedAt.Format("2006-01-02 15:04:05"),
			UpdatedAt:     r.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return responses, nil
}
