package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/princeprakhar/travel-review-backend/internal/services"
	"github.com/princeprakhar/travel-review-backend/internal/utils"
	"github.com/princeprakhar/travel-review-backend/pkg/logger"
)

var statusByKind = map[services.ErrorKind]int{
	services.KindValidation:      http.StatusBadRequest,
	services.KindNotFound:        http.StatusNotFound,
	services.KindPermission:      http.StatusForbidden,
	services.KindUnauthorized:    http.StatusUnauthorized,
	services.KindPayloadTooLarge: http.StatusRequestEntityTooLarge,
	services.KindUpstream:        http.StatusInternalServerError,
}

// respondError maps a service error onto the JSON error envelope. Upstream
// messages reach the client; anything untyped becomes a generic 500.
func respondError(c *gin.Context, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		svcErr = services.InternalError("internal server error", err)
	}

	status, ok := statusByKind[svcErr.Kind]
	if !ok {
		logger.WithFields(logger.Fields{"path": c.FullPath(), "error": err}).Error("request failed")
		utils.SendError(c, http.StatusInternalServerError, string(services.KindInternal), "internal server error")
		return
	}
	if svcErr.Kind == services.KindUpstream {
		logger.WithFields(logger.Fields{"path": c.FullPath(), "error": err}).Error("upstream failure")
	}
	utils.SendError(c, status, string(svcErr.Kind), svcErr.Message)
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		utils.SendValidationError(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}
