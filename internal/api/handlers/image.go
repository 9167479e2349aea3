package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princeprakhar/travel-review-backend/internal/services"
	"github.com/princeprakhar/travel-review-backend/internal/utils"
)

type ImageHandler struct {
	imageService *services.ImageService
}

func NewImageHandler(imageService *services.ImageService) *ImageHandler {
	return &ImageHandler{imageService: imageService}
}

type imageURLRequest struct {
	URL string `json:"url"`
}

// UploadImage accepts a multipart form with a "file" part or a "url" field,
// or a JSON body {"url": "..."}.
func (h *ImageHandler) UploadImage(c *gin.Context) {
	input := services.UploadImageInput{UserID: c.GetUint("user_id")}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		input.URL = c.PostForm("url")

		fileHeader, err := c.FormFile("file")
		if err != nil && err != http.ErrMissingFile {
			utils.SendValidationError(c, "Failed to parse multipart form")
			return
		}
		if fileHeader != nil {
			file, err := fileHeader.Open()
			if err != nil {
				utils.SendValidationError(c, "Failed to read uploaded file")
				return
			}
			defer file.Close()
			input.File = file
			input.FileName = fileHeader.Filename
		}
	} else {
		var req imageURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendValidationError(c, "Invalid request data")
			return
		}
		input.URL = req.URL
	}

	response, err := h.imageService.HandleFileOrURL(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SendCreated(c, "Image uploaded successfully", response)
}

func (h *ImageHandler) DeleteImage(c *gin.Context) {
	var req imageURLRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		utils.SendValidationError(c, "url is required")
		return
	}

	if err := h.imageService.DeleteTemporaryImage(c.Request.Context(), c.GetUint("user_id"), strings.TrimSpace(req.URL)); err != nil {
		respondError(c, err)
		return
	}

	utils.SendNoContent(c)
}
