package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"linkup/apperrors"
	"linkup/models"
	"linkup/store"
)

type PlaceService struct {
	store store.Store
}

func NewPlaceService(st store.Store) *PlaceService {
	return &PlaceService{store: st}
}

// Create adds a meeting place to the catalog.
func (s *PlaceService) Create(ctx context.Context, name, address string) (*models.Place, error) {
	if name == "" || address == "" {
		return nil, fmt.Errorf("%w: name and address are required", apperrors.ErrInvalidInput)
	}
	p := &models.Place{
		ID:        uuid.NewString(),
		Name:      name,
		Address:   address,
		CreatedAt: time.Now(),
	}
	if err := s.store.Places().Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
