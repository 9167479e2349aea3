package services

import (
	"context"
	"errors"
	"time"

	"github.com/princeprakhar/travel-review-backend/internal/models"
	"github.com/princeprakhar/travel-review-backend/internal/utils"
	"gorm.io/gorm"
)

type TravelRouteService struct {
	db *gorm.DB
}

func NewTravelRouteService(db *gorm.DB) *TravelRouteService {
	return &TravelRouteService{db: db}
}

type CreateTravelRouteRequest struct {
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

func (s *TravelRouteService) CreateTravelRoute(ctx context.Context, userID uint, req CreateTravelRouteRequest) (*models.TravelRoute, error) {
	name := utils.SanitizeString(req.Name)
	if name == "" {
		return nil, ValidationError("name is required")
	}
	if !req.StartDate.IsZero() && !req.EndDate.IsZero() && req.EndDate.Before(req.StartDate) {
		return nil, ValidationError("end_date must not be before start_date")
	}

	route := models.TravelRoute{
		UserID:      userID,
		Name:        name,
		Description: utils.SanitizeString(req.Description),
		StartDate:   req.StartDate.UTC(),
		EndDate:     req.EndDate.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&route).Error; err != nil {
		return nil, InternalError("failed to create travel route", err)
	}
	return &route, nil
}

func (s *TravelRouteService) GetTravelRoute(ctx context.Context, routeID uint) (*models.TravelRoute, error) {
	var route models.TravelRoute
	if err := s.db.WithContext(ctx).First(&route, routeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("travel route")
		}
		return nil, InternalError("failed to find travel route", err)
	}
	return &route, nil
}
