package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/surplus-backend/internal/auth"
	"github.com/angelmondragon/surplus-backend/internal/users"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplus-backend/pkg/errors"
)

type stubAuthService struct {
	auth.Service

	register  auth.RegisterRequest
	loggedOut string
	err       error
}

func (s *stubAuthService) Register(_ context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
	s.register = req
	if s.err != nil {
		return nil, s.err
	}
	return &auth.AuthResponse{
		TokenPair: auth.TokenPair{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", ExpiresIn: 1800},
		User:      &users.UserDTO{ID: uuid.New(), Email: req.Email, Role: req.Role},
	}, nil
}

func (s *stubAuthService) Login(_ context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &auth.AuthResponse{TokenPair: auth.TokenPair{AccessToken: "access"}}, nil
}

func (s *stubAuthService) Logout(_ context.Context, token string) error {
	s.loggedOut = token
	return s.err
}

func (s *stubAuthService) Me(_ context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID, Role: enums.RoleCustomer}, s.err
}

func TestAuthRegisterCreated(t *testing.T) {
	svc := &stubAuthService{}
	body := `{"email":"asha@example.com","password":"longenough","first_name":"Asha","last_name":"Rao","role":"vendor"}`
	resp := httptest.NewRecorder()

	AuthRegister(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body)))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.register.Role != enums.RoleVendor {
		t.Fatalf("unexpected role %s", svc.register.Role)
	}

	var envelope struct {
		Data auth.AuthResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.AccessToken != "access" || envelope.Data.User == nil {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestAuthRegisterValidation(t *testing.T) {
	body := `{"email":"not-an-email","password":"short","first_name":"","last_name":"Rao","role":"customer"}`
	resp := httptest.NewRecorder()

	AuthRegister(&stubAuthService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body)))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	details, _ := decodeError(t, resp.Body.Bytes()).Error.Details.(map[string]any)
	for _, field := range []string{"email", "password", "first_name"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("expected %s in details %v", field, details)
		}
	}
}

func TestAuthLoginUnauthorized(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")}
	resp := httptest.NewRecorder()

	AuthLogin(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@b.co","password":"x"}`)))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if msg := decodeError(t, resp.Body.Bytes()).Error.Message; msg != "invalid email or password" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestAuthLogoutPassesToken(t *testing.T) {
	svc := &stubAuthService{}
	resp := httptest.NewRecorder()

	AuthLogout(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", strings.NewReader(`{"refresh_token":"tok"}`)))

	if resp.Code != http.StatusOK || svc.loggedOut != "tok" {
		t.Fatalf("unexpected status %d token %q", resp.Code, svc.loggedOut)
	}
}

func TestAuthMeRequiresUser(t *testing.T) {
	resp := httptest.NewRecorder()
	AuthMe(&stubAuthService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	userID := uuid.New()
	resp = httptest.NewRecorder()
	AuthMe(&stubAuthService{}, nil).ServeHTTP(resp, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), userID.String()))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), userID.String()) {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}
}
