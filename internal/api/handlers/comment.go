package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/princeprakhar/travel-review-backend/internal/services"
	"github.com/princeprakhar/travel-review-backend/internal/utils"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

func (h *CommentHandler) CreateComment(c *gin.Context) {
	reviewID, ok := parseIDParam(c, "review_id")
	if !ok {
		return
	}

	var req services.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request data")
		return
	}

	comment, err := h.commentService.CreateComment(c.Request.Context(), c.GetUint("user_id"), reviewID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SendCreated(c, "Comment created successfully", comment)
}

func (h *CommentHandler) ListComments(c *gin.Context) {
	reviewID, ok := parseIDParam(c, "review_id")
	if !ok {
		return
	}

	comments, err := h.commentService.ListComments(c.Request.Context(), reviewID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SendSuccess(c, "Comments retrieved successfully", comments)
}

func (h *CommentHandler) UpdateComment(c *gin.Context) {
	commentID, ok := parseIDParam(c, "comment_id")
	if !ok {
		return
	}

	var req services.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request data")
		return
	}

	comment, err := h.commentService.UpdateComment(c.Request.Context(), c.GetUint("user_id"), commentID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SendSuccess(c, "Comment updated successfully", comment)
}

func (h *CommentHandler) DeleteComment(c *gin.Context) {
	commentID, ok := parseIDParam(c, "comment_id")
	if !ok {
		return
	}

	if err := h.commentService.DeleteComment(c.Request.Context(), c.GetUint("user_id"), commentID); err != nil {
		respondError(c, err)
		return
	}

	utils.SendNoContent(c)
}
