package services

import (
	"context"
	"errors"

	"github.com/princeprakhar/travel-review-backend/internal/models"
	"github.com/princeprakhar/travel-review-backend/internal/utils"
	"github.com/princeprakhar/travel-review-backend/pkg/logger"
	"gorm.io/gorm"
)

// CommentNotifier tells a review author about a new comment.
type CommentNotifier interface {
	SendCommentNotification(to, reviewTitle, commenter, content string) error
}

type CommentService struct {
	db       *gorm.DB
	notifier CommentNotifier
}

// NewCommentService accepts a nil notifier when mail is not configured.
func NewCommentService(db *gorm.DB, notifier CommentNotifier) *CommentService {
	return &CommentService{db: db, notifier: notifier}
}

type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

type CommentResponse struct {
	ID        uint   `json:"id"`
	ReviewID  uint   `json:"review_id"`
	UserID    uint   `json:"user_id"`
	Nickname  string `json:"nickname"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (s *CommentService) CreateComment(ctx context.Context, userID, reviewID uint, req CommentRequest) (*CommentResponse, error) {
	content := utils.SanitizeString(req.Content)
	if content == "" {
		return nil, ValidationError("content is required")
	}

	var review models.Review
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", reviewID, true).First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("review")
		}
		return nil, InternalError("failed to find review", err)
	}

	comment := models.Comment{
		UserID:   userID,
		ReviewID: reviewID,
		Content:  content,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, InternalError("failed to create comment", err)
	}

	responses, err := s.buildResponses(ctx, []models.Comment{comment})
	if err != nil {
		return nil, err
	}

	if review.UserID != userID {
		s.notify(ctx, review, responses[0])
	}

	return &responses[0], nil
}

// ListComments returns the active comments of a review, oldest first.
func (s *CommentService) ListComments(ctx context.Context, reviewID uint) ([]CommentResponse, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Review{}).
		Where("id = ? AND is_active = ?", reviewID, true).Count(&count).Error; err != nil {
		return nil, InternalError("failed to find review", err)
	}
	if count == 0 {
		return nil, NotFoundError("review")
	}

	var comments []models.Comment
	if err := s.db.WithContext(ctx).
		Where("review_id = ? AND is_active = ?", reviewID, true).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error; err != nil {
		return nil, InternalError("failed to fetch comments", err)
	}

	return s.buildResponses(ctx, comments)
}

func (s *CommentService) UpdateComment(ctx context.Context, userID, commentID uint, req CommentRequest) (*CommentResponse, error) {
	content := utils.SanitizeString(req.Content)
	if content == "" {
		return nil, ValidationError("content is required")
	}

	comment, err := s.findOwned(ctx, userID, commentID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(comment).Update("content", content).Error; err != nil {
		return nil, InternalError("failed to update comment", err)
	}

	responses, err := s.buildResponses(ctx, []models.Comment{*comment})
	if err != nil {
		return nil, err
	}
	return &responses[0], nil
}

func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID uint) error {
	comment, err := s.findOwned(ctx, userID, commentID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(comment).Update("is_active", false).Error; err != nil {
		return InternalError("failed to delete comment", err)
	}
	return nil
}

func (s *CommentService) findOwned(ctx context.Context, userID, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", commentID, true).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("comment")
		}
		return nil, InternalError("failed to find comment", err)
	}
	if comment.UserID != userID {
		return nil, PermissionError("you do not have permission to modify this comment")
	}
	return &comment, nil
}

func (s *CommentService) buildResponses(ctx context.Context, comments []models.Comment) ([]CommentResponse, error) {
	responses := make([]CommentResponse, 0, len(comments))
	if len(comments) == 0 {
		return responses, nil
	}

	userIDs := make([]uint, 0, len(comments))
	for _, c := range comments {
		userIDs = append(userIDs, c.UserID)
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Select("id", "nickname").Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, InternalError("failed to load comment authors", err)
	}
	nicknames := make(map[uint]string, len(users))
	for _, u := range users {
		nicknames[u.ID] = u.Nickname
	}

	for _, c := range comments {
		responses = append(responses, CommentResponse{
			ID:        c.ID,
			ReviewID:  c.ReviewID,
			UserID:    c.UserID,
			Nickname:  nicknames[c.UserID],
			Content:   c.Content,
			CreatedAt: c.CreatedAt.Format("2006-01-02 15:04:05"),
			UpdatedAt: c.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return responses, nil
}

// notify mails the review author in the background. Failures are logged only.
func (s *CommentService) notify(ctx context.Context, review models.Review, comment CommentResponse) {
	if s.notifier == nil {
		return
	}

	var author models.User
	if err := s.db.WithContext(ctx).Select("id", "email").First(&author, review.UserID).Error; err != nil {
		logger.WithFields(logger.Fields{"review_id": review.ID, "error": err}).
			Warn("comment notification skipped: author not found")
		return
	}

	go func() {
		if err := s.notifier.SendCommentNotification(author.Email, review.Title, comment.Nickname, comment.Content); err != nil {
			logger.WithFields(logger.Fields{
				"review_id":  review.ID,
				"comment_id": comment.ID,
				"error":      err,
			}).Warn("failed to send comment notification")
		}
	}()
}
