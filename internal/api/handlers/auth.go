package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/princeprakhar/travel-review-backend/internal/services"
	"github.com/princeprakhar/travel-review-backend/internal/types"
	"github.com/princeprakhar/travel-review-backend/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Signup creates an account and returns an access token for it.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req services.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "email, password and nickname are required")
		return
	}

	response, err := h.authService.Signup(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SendCreated(c, "Account created", response)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "email and password are required")
		return
	}

	response, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SendSuccess(c, "Logged in", response)
}

// Me returns the authenticated traveler's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	profile, err := h.authService.GetProfile(c.Request.Context(), c.GetUint("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SendSuccess(c, "Profile retrieved", profile)
}

func (h *AuthHandler) UpdateMe(c *gin.Context) {
	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body")
		return
	}

	profile, err := h.authService.UpdateProfile(c.Request.Context(), c.GetUint("user_id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SendSuccess(c, "Profile updated", profile)
}

// DeleteMe schedules the caller's account for deletion.
func (h *AuthHandler) DeleteMe(c *gin.Context) {
	if _, err := h.authService.ScheduleDeletion(c.Request.Context(), c.GetUint("user_id")); err != nil {
		respondError(c, err)
		return
	}

	utils.SendNoContent(c)
}

func (h *AuthHandler) CheckPassword(c *gin.Context) {
	var req services.PasswordCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "password is required")
		return
	}

	ok, err := h.authService.CheckPassword(c.Request.Context(), c.GetUint("user_id"), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SendSuccess(c, "Password checked", types.PasswordCheck{Authenticated: ok})
}
