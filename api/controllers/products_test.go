package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	productsvc "github.com/angelmondragon/surplus-backend/internal/products"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplus-backend/pkg/errors"
	"github.com/angelmondragon/surplus-backend/pkg/pagination"
)

type stubProductService struct {
	productsvc.Service

	listInput   productsvc.ListProductsInput
	createInput productsvc.CreateProductInput
	vendorID    uuid.UUID
	limit       int
	err         error
}

func (s *stubProductService) ListProducts(_ context.Context, input productsvc.ListProductsInput) (*productsvc.ProductListResult, error) {
	s.listInput = input
	return &productsvc.ProductListResult{Products: []productsvc.ProductDTO{}, Pagination: input.Page.MetaFor(0)}, s.err
}

func (s *stubProductService) Featured(_ context.Context, limit int) ([]productsvc.ProductDTO, error) {
	s.limit = limit
	return []productsvc.ProductDTO{}, nil
}

func (s *stubProductService) GetProduct(_ context.Context, id uuid.UUID) (*productsvc.ProductDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &productsvc.ProductDTO{ID: id}, nil
}

func (s *stubProductService) CreateProduct(_ context.Context, vendorID uuid.UUID, input productsvc.CreateProductInput) (*productsvc.ProductDTO, error) {
	s.vendorID = vendorID
	s.createInput = input
	return &productsvc.ProductDTO{ID: uuid.New(), Name: input.Name}, s.err
}

func TestProductListParsesFilters(t *testing.T) {
	svc := &stubProductService{}
	categoryID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?page=3&per_page=500&search=+milk+&category_id="+categoryID.String()+"&min_price=10&max_price=99.50&days_to_expiry=3&sort_by=price_low", nil)
	resp := httptest.NewRecorder()

	ProductList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("per_page above the cap should be rejected, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/products?page=3&per_page=50&search=+milk+&category_id="+categoryID.String()+"&min_price=10&max_price=99.50&days_to_expiry=3&sort_by=price_low", nil)
	resp = httptest.NewRecorder()
	ProductList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	in := svc.listInput
	if in.Page != (pagination.Page{Number: 3, PerPage: 50}) {
		t.Fatalf("unexpected page %+v", in.Page)
	}
	if in.Filters.Search != "milk" {
		t.Fatalf("unexpected search %q", in.Filters.Search)
	}
	if in.Filters.CategoryID == nil || *in.Filters.CategoryID != categoryID {
		t.Fatalf("category not parsed")
	}
	if in.Filters.MinPrice == nil || !in.Filters.MinPrice.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("min price not parsed")
	}
	if in.Filters.MaxPrice == nil || !in.Filters.MaxPrice.Equal(decimal.RequireFromString("99.5")) {
		t.Fatalf("max price not parsed")
	}
	if in.Filters.DaysToExpiry == nil || *in.Filters.DaysToExpiry != 3 {
		t.Fatalf("days_to_expiry not parsed")
	}
	if in.Sort != enums.ProductSortPriceLow {
		t.Fatalf("unexpected sort %s", in.Sort)
	}
}

func TestProductListDefaults(t *testing.T) {
	svc := &stubProductService{}
	resp := httptest.NewRecorder()
	ProductList(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.listInput.Page != (pagination.Page{Number: 1, PerPage: pagination.DefaultPerPage}) {
		t.Fatalf("unexpected page %+v", svc.listInput.Page)
	}
	if svc.listInput.Sort != enums.ProductSortNewest {
		t.Fatalf("unexpected sort %s", svc.listInput.Sort)
	}
}

func TestProductListRejectsBadSort(t *testing.T) {
	resp := httptest.NewRecorder()
	ProductList(&stubProductService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products?sort_by=random", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestProductFeaturedLimit(t *testing.T) {
	svc := &stubProductService{}
	resp := httptest.NewRecorder()
	ProductFeatured(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products/featured", nil))
	if resp.Code != http.StatusOK || svc.limit != defaultDiscoveryLimit {
		t.Fatalf("unexpected status %d limit %d", resp.Code, svc.limit)
	}

	resp = httptest.NewRecorder()
	ProductFeatured(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products/featured?limit=51", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestProductDetailNotFound(t *testing.T) {
	id := uuid.New()
	svc := &stubProductService{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}
	req := withParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id.String(), nil), "productId", id.String())
	resp := httptest.NewRecorder()

	ProductDetail(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestVendorCreateProduct(t *testing.T) {
	svc := &stubProductService{}
	vendorID := uuid.New()
	categoryID := uuid.New()
	body := `{"name":"  Greek Yogurt ","category_id":"` + categoryID.String() + `","original_price":"120.00","discounted_price":60,"stock_quantity":8,"unit":"cup","expiry_date":"2026-11-01"}`
	req := withVendor(httptest.NewRequest(http.MethodPost, "/api/v1/vendor/products", strings.NewReader(body)), uuid.NewString(), vendorID.String())
	resp := httptest.NewRecorder()

	VendorCreateProduct(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.vendorID != vendorID {
		t.Fatalf("vendor not passed through")
	}
	in := svc.createInput
	if in.Name != "Greek Yogurt" || in.CategoryID != categoryID || in.StockQuantity != 8 {
		t.Fatalf("unexpected input %+v", in)
	}
	if !in.OriginalPrice.Equal(decimal.NewFromInt(120)) || !in.DiscountedPrice.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("prices not parsed: %s %s", in.OriginalPrice, in.DiscountedPrice)
	}
}

func TestVendorCreateProductValidation(t *testing.T) {
	req := withVendor(httptest.NewRequest(http.MethodPost, "/api/v1/vendor/products", strings.NewReader(`{"name":"x","stock_quantity":-1}`)), uuid.NewString(), uuid.NewString())
	resp := httptest.NewRecorder()

	VendorCreateProduct(&stubProductService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	env := decodeError(t, resp.Body.Bytes())
	details, ok := env.Error.Details.(map[string]any)
	if !ok {
		t.Fatalf("expected field details, got %v", env.Error.Details)
	}
	for _, field := range []string{"category_id", "stock_quantity", "expiry_date"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("expected %s in details %v", field, details)
		}
	}
}

func TestVendorCreateProductWithoutUnit(t *testing.T) {
	svc := &stubProductService{}
	body := `{"name":"Rye Bread","category_id":"` + uuid.NewString() + `","original_price":"80","discounted_price":"40","stock_quantity":3,"expiry_date":"2026-11-01"}`
	req := withVendor(httptest.NewRequest(http.MethodPost, "/api/v1/vendor/products", strings.NewReader(body)), uuid.NewString(), uuid.NewString())
	resp := httptest.NewRecorder()

	VendorCreateProduct(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.createInput.Unit != "" {
		t.Fatalf("unit should be left for the service default, got %q", svc.createInput.Unit)
	}
}
