package vendors

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/surplus-backend/pkg/db/models"
)

// VendorProfileDTO is the storefront shape returned alongside a vendor user.
type VendorProfileDTO struct {
	ID           uuid.UUID `json:"id"`
	BusinessName string    `json:"business_name"`
	BusinessType string    `json:"business_type"`
	Description  *string   `json:"description,omitempty"`
	Address      *string   `json:"address,omitempty"`
	GSTNumber    *string   `json:"gst_number,omitempty"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProfilePatch carries optional storefront edits.
type ProfilePatch struct {
	BusinessName *string
	BusinessType *string
	Description  *string
	Address      *string
	GSTNumber    *string
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.BusinessName == nil && p.BusinessType == nil && p.Description == nil && p.Address == nil && p.GSTNumber == nil
}

// DashboardDTO summarises a vendor's catalog and sales.
type DashboardDTO struct {
	TotalProducts  int64           `json:"total_products"`
	ActiveProducts int64           `json:"active_products"`
	TotalStock     int64           `json:"total_stock"`
	TotalSold      int64           `json:"total_sold"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
}

func ProfileFromModel(p *models.VendorProfile) *VendorProfileDTO {
	if p == nil {
		return nil
	}
	return &VendorProfileDTO{
		ID:           p.ID,
		BusinessName: p.BusinessName,
		BusinessType: p.BusinessType,
		Description:  p.Description,
		Address:      p.Address,
		GSTNumber:    p.GSTNumber,
		IsVerified:   p.IsVerified,
		CreatedAt:    p.CreatedAt,
	}
}
