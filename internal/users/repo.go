// Package users persists accounts and maps them to their API shape.
package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplus-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds a copy of the repository to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// NormalizeEmail is the canonical form stored in users.email; lookups and
// inserts both go through it so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *Repository) Create(ctx context.Context, in CreateUserDTO) (*models.User, error) {
	user := in.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, r.db.Where("email = ?", NormalizeEmail(email)))
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, r.db.Where("id = ?", id))
}

// FindWithVendorProfile also loads the storefront profile of vendor users.
func (r *Repository) FindWithVendorProfile(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, r.db.Preload("VendorProfile").Where("id = ?", id))
}

func (r *Repository) first(ctx context.Context, q *gorm.DB) (*models.User, error) {
	user := new(models.User)
	if err := q.WithContext(ctx).Take(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	// UpdateColumn keeps updated_at as the last profile change.
	return r.row(ctx, id).UpdateColumn("last_login_at", at.UTC()).Error
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.row(ctx, id).Update("password_hash", hash).Error
}

// UpdateProfile writes the non-nil fields of patch. An empty patch is a
// no-op.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch) error {
	changes := patch.columns()
	if len(changes) == 0 {
		return nil
	}
	return r.row(ctx, id).Updates(changes).Error
}

func (r *Repository) row(ctx context.Context, id uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id)
}
