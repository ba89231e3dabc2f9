package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
)

func MustCreateUser(t *testing.T, tx *gorm.DB, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Email:        fmt.Sprintf("sp_test_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     true,
	}
	if err := tx.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func MustCreateVendor(t *testing.T, tx *gorm.DB) (*models.User, *models.VendorProfile) {
	t.Helper()
	user := MustCreateUser(t, tx, enums.RoleVendor)
	profile := &models.VendorProfile{
		UserID:       user.ID,
		BusinessName: "Test Store",
		BusinessType: "retail",
	}
	if err := tx.Create(profile).Error; err != nil {
		t.Fatalf("create vendor profile: %v", err)
	}
	return user, profile
}

func MustCreateCategory(t *testing.T, tx *gorm.DB) *models.Category {
	t.Helper()
	suffix := uuid.NewString()[:8]
	category := &models.Category{
		Name:     "Category " + suffix,
		Slug:     "category-" + suffix,
		IsActive: true,
	}
	if err := tx.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

// MustCreateProduct creates an active product priced 100 -> 80 with 10 in
// stock expiring in 30 days; mutate adjusts it before insert.
func MustCreateProduct(t *testing.T, tx *gorm.DB, vendorID, categoryID uuid.UUID, mutate func(*models.Product)) *models.Product {
	t.Helper()
	product := &models.Product{
		VendorID:        vendorID,
		CategoryID:      categoryID,
		Name:            "Product " + uuid.NewString()[:8],
		OriginalPrice:   decimal.NewFromInt(100),
		DiscountedPrice: decimal.NewFromInt(80),
		StockQuantity:   10,
		Unit:            "piece",
		ExpiryDate:      Today().AddDate(0, 0, 30),
		IsActive:        true,
	}
	if mutate != nil {
		mutate(product)
	}
	product.RefreshDiscount()
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// Today is midnight UTC of the current day.
func Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
