package categories

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/surplus-backend/pkg/db/models"
)

type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateCategoryInput is the validated vendor payload; Slug is derived from
// Name when empty.
type CreateCategoryInput struct {
	Name        string
	Slug        string
	Description *string
	ImageURL    *string
}

func FromModel(c *models.Category) *CategoryDTO {
	if c == nil {
		return nil
	}
	return &CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		ImageURL:    c.ImageURL,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
	}
}
