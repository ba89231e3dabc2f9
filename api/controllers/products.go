package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/surplus-backend/api/responses"
	"github.com/angelmondragon/surplus-backend/api/validators"
	productsvc "github.com/angelmondragon/surplus-backend/internal/products"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplus-backend/pkg/errors"
	"github.com/angelmondragon/surplus-backend/pkg/logger"
	"github.com/angelmondragon/surplus-backend/pkg/pagination"
)

const (
	defaultDiscoveryLimit = 10
	maxDiscoveryLimit     = 50
)

// ProductList serves the public browse endpoint.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}

		input, err := parseProductListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseProductListQuery(r *http.Request) (productsvc.ListProductsInput, error) {
	var input productsvc.ListProductsInput

	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
	if err != nil {
		return input, err
	}
	perPage, err := validators.ParseQueryInt(r, "per_page", pagination.DefaultPerPage, 1, pagination.MaxPerPage)
	if err != nil {
		return input, err
	}
	input.Page = pagination.NewPage(page, perPage)

	input.Filters.Search = validators.SanitizeString(r.URL.Query().Get("search"), 100)
	if input.Filters.CategoryID, err = validators.ParseQueryUUID(r, "category_id"); err != nil {
		return input, err
	}
	if input.Filters.MinPrice, err = validators.ParseQueryDecimal(r, "min_price"); err != nil {
		return input, err
	}
	if input.Filters.MaxPrice, err = validators.ParseQueryDecimal(r, "max_price"); err != nil {
		return input, err
	}
	if input.Filters.DaysToExpiry, err = validators.ParseOptionalQueryInt(r, "days_to_expiry", 0, 3650); err != nil {
		return input, err
	}

	sort, err := enums.ParseProductSort(r.URL.Query().Get("sort_by"))
	if err != nil {
		return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort_by").
			WithDetails(map[string]any{"field": "sort_by"})
	}
	input.Sort = sort
	return input, nil
}

func ProductFeatured(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultDiscoveryLimit, 1, maxDiscoveryLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		products, err := svc.Featured(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func ProductTrending(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultDiscoveryLimit, 1, maxDiscoveryLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		products, err := svc.Trending(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

// ProductDetail returns one product and bumps its view counter.
func ProductDetail(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		productID, err := validators.PathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type createProductRequest struct {
	Name              string          `json:"name" validate:"required,max=200"`
	Description       *string         `json:"description,omitempty"`
	Brand             *string         `json:"brand,omitempty"`
	SKU               *string         `json:"sku,omitempty"`
	CategoryID        uuid.UUID       `json:"category_id" validate:"required"`
	OriginalPrice     decimal.Decimal `json:"original_price"`
	DiscountedPrice   decimal.Decimal `json:"discounted_price"`
	StockQuantity     int             `json:"stock_quantity" validate:"gte=0"`
	Unit              string          `json:"unit,omitempty" validate:"omitempty,max=50"`
	ExpiryDate        string          `json:"expiry_date" validate:"required"`
	ManufacturingDate *string         `json:"manufacturing_date,omitempty"`
	ImageURL          *string         `json:"image_url,omitempty"`
	IsActive          *bool           `json:"is_active,omitempty"`
}

func (p createProductRequest) toInput() productsvc.CreateProductInput {
	return productsvc.CreateProductInput{
		Name:              validators.SanitizeString(p.Name, 200),
		Description:       p.Description,
		Brand:             p.Brand,
		SKU:               p.SKU,
		CategoryID:        p.CategoryID,
		OriginalPrice:     p.OriginalPrice,
		DiscountedPrice:   p.DiscountedPrice,
		StockQuantity:     p.StockQuantity,
		Unit:              p.Unit,
		ExpiryDate:        p.ExpiryDate,
		ManufacturingDate: p.ManufacturingDate,
		ImageURL:          p.ImageURL,
		IsActive:          p.IsActive,
	}
}

type updateProductRequest struct {
	Name              *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Description       *string          `json:"description,omitempty"`
	Brand             *string          `json:"brand,omitempty"`
	SKU               *string          `json:"sku,omitempty"`
	CategoryID        *uuid.UUID       `json:"category_id,omitempty"`
	OriginalPrice     *decimal.Decimal `json:"original_price,omitempty"`
	DiscountedPrice   *decimal.Decimal `json:"discounted_price,omitempty"`
	StockQuantity     *int             `json:"stock_quantity,omitempty" validate:"omitempty,gte=0"`
	Unit              *string          `json:"unit,omitempty" validate:"omitempty,max=50"`
	ExpiryDate        *string          `json:"expiry_date,omitempty"`
	ManufacturingDate *string          `json:"manufacturing_date,omitempty"`
	ImageURL          *string          `json:"image_url,omitempty"`
	IsActive          *bool            `json:"is_active,omitempty"`
}

func (p updateProductRequest) toInput() productsvc.UpdateProductInput {
	return productsvc.UpdateProductInput{
		Name:              p.Name,
		Description:       p.Description,
		Brand:             p.Brand,
		SKU:               p.SKU,
		CategoryID:        p.CategoryID,
		OriginalPrice:     p.OriginalPrice,
		DiscountedPrice:   p.DiscountedPrice,
		StockQuantity:     p.StockQuantity,
		Unit:              p.Unit,
		ExpiryDate:        p.ExpiryDate,
		ManufacturingDate: p.ManufacturingDate,
		ImageURL:          p.ImageURL,
		IsActive:          p.IsActive,
	}
}

// VendorCreateProduct handles product creation for the caller's storefront.
func VendorCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		vendorID, err := requireVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), vendorID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func VendorUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		vendorID, err := requireVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.PathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), vendorID, productID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func VendorDeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		vendorID, err := requireVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.PathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), vendorID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func VendorListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		vendorID, err := requireVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		perPage, err := validators.ParseQueryInt(r, "per_page", pagination.DefaultPerPage, 1, pagination.MaxPerPage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListVendorProducts(r.Context(), vendorID, pagination.NewPage(page, perPage))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type imageUploadRequest struct {
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes" validate:"gt=0"`
}

// VendorProductImageUpload issues a signed PUT URL for a product image.
func VendorProductImageUpload(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		vendorID, err := requireVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload imageUploadRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		upload, err := svc.CreateImageUpload(r.Context(), vendorID, productsvc.ImageUploadInput{
			Filename:    payload.Filename,
			ContentType: payload.ContentType,
			SizeBytes:   payload.SizeBytes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, upload)
	}
}
