package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/princeprakhar/travel-review-backend/internal/services"
	"github.com/princeprakhar/travel-review-backend/internal/utils"
)

type TravelRouteHandler struct {
	routeService *services.TravelRouteService
}

func NewTravelRouteHandler(routeService *services.TravelRouteService) *TravelRouteHandler {
	return &TravelRouteHandler{routeService: routeService}
}

func (h *TravelRouteHandler) CreateTravelRoute(c *gin.Context) {
	var req services.CreateTravelRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request data")
		return
	}

	route, err := h.routeService.CreateTravelRoute(c.Request.Context(), c.GetUint("user_id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SendCreated(c, "Travel route created successfully", route)
}

func (h *TravelRouteHandler) GetTravelRoute(c *gin.Context) {
	routeID, ok := parseIDParam(c, "route_id")
	if !ok {
		return
	}

	route, err := h.routeService.GetTravelRoute(c.Request.Context(), routeID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SendSuccess(c, "Travel route retrieved successfully", route)
}
