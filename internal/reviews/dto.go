package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/surplus-backend/pkg/db/models"
)

type CreateReviewInput struct {
	ProductID uuid.UUID
	Rating    int
	Title     *string
	Comment   *string
}

type ReviewDTO struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	ProductID          uuid.UUID `json:"product_id"`
	Rating             int       `json:"rating"`
	Title              *string   `json:"title,omitempty"`
	Comment            *string   `json:"comment,omitempty"`
	IsVerifiedPurchase bool      `json:"is_verified_purchase"`
	UserName           string    `json:"user_name"`
	CreatedAt          time.Time `json:"created_at"`
}

const anonymousReviewer = "Anonymous"

func FromModel(r *models.Review) ReviewDTO {
	name := anonymousReviewer
	if r.User != nil {
		if full := r.User.FullName(); full != "" {
			name = full
		}
	}
	return ReviewDTO{
		ID:                 r.ID,
		UserID:             r.UserID,
		ProductID:          r.ProductID,
		Rating:             r.Rating,
		Title:              r.Title,
		Comment:            r.Comment,
		IsVerifiedPurchase: r.IsVerifiedPurchase,
		UserName:           name,
		CreatedAt:          r.CreatedAt,
	}
}
