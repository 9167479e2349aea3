package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/princeprakhar/travel-review-backend/internal/services"
	"github.com/princeprakhar/travel-review-backend/internal/utils"
)

type ReviewHandler struct {
	reviewService *services.ReviewService
}

func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

func (h *ReviewHandler) CreateReview(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req services.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request data")
		return
	}

	review, err := h.reviewService.CreateReview(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SendCreated(c, "Review created successfully", review)
}

func (h *ReviewHandler) GetReview(c *gin.Context) {
	reviewID, ok := parseIDParam(c, "review_id")
	if !ok {
		return
	}

	review, err := h.reviewService.GetReview(c.Request.Context(), reviewID, c.GetUint("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SendSuccess(c, "Review retrieved successfully", review)
}

// ListReviews reads page, size, order_by, order and travelroute_id from the
// query string. Malformed numbers are reported rather than defaulted.
func (h *ReviewHandler) ListReviews(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		utils.SendValidationError(c, "Invalid page")
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(services.DefaultPageSize)))
	if err != nil {
		utils.SendValidationError(c, "Invalid size")
		return
	}

	params := services.ListReviewsParams{
		Page:     page,
		Size:     size,
		OrderBy:  c.DefaultQuery("order_by", "created_at"),
		Order:    c.DefaultQuery("order", "desc"),
		ViewerID: c.GetUint("user_id"),
	}

	if raw := c.Query("travelroute_id"); raw != "" {
		routeID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			utils.SendValidationError(c, "Invalid travelroute_id")
			return
		}
		id := uint(routeID)
		params.TravelRouteID = &id
	}

	reviews, err := h.reviewService.ListReviews(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SendSuccess(c, "Reviews retrieved successfully", reviews)
}

func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	reviewID, ok := parseIDParam(c, "review_id")
	if !ok {
		return
	}

	var req services.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request data")
		return
	}

	review, err := h.reviewService.UpdateReview(c.Request.Context(), c.GetUint("user_id"), reviewID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SendSuccess(c, "Review updated successfully", review)
}

func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	reviewID, ok := parseIDParam(c, "review_id")
	if !ok {
		return
	}

	if err := h.reviewService.DeleteReview(c.Request.Context(), c.GetUint("user_id"), reviewID); err != nil {
		respondError(c, err)
		return
	}

	utils.SendNoContent(c)
}

func (h *ReviewHandler) ToggleLike(c *gin.Context) {
	reviewID, ok := parseIDParam(c, "review_id")
	if !ok {
		return
	}

	result, err := h.reviewService.ToggleLike(c.Request.Context(), c.GetUint("user_id"), reviewID)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Review liked successfully"
	if !result.Liked {
		message = "Review unliked successfully"
	}

	utils.SendSuccess(c, message, result)
}
