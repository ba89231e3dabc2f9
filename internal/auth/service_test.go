package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplus-backend/internal/users"
	"github.com/angelmondragon/surplus-backend/internal/vendors"
	pkgAuth "github.com/angelmondragon/surplus-backend/pkg/auth"
	"github.com/angelmondragon/surplus-backend/pkg/auth/session"
	"github.com/angelmondragon/surplus-backend/pkg/config"
	"github.com/angelmondragon/surplus-backend/pkg/db/dbtest"
	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplus-backend/pkg/errors"
)

var testJWT = config.JWTConfig{
	Secret:                 "secret",
	Issuer:                 "surplus",
	ExpirationMinutes:      30,
	RefreshTokenTTLMinutes: 60,
}

// memorySessions mimics the redis-backed manager: tokens rotate once.
type memorySessions struct {
	live map[string]session.Session
	seq  int
}

func (m *memorySessions) Generate(_ context.Context, userID uuid.UUID, role enums.UserRole) (session.Issued, error) {
	m.seq++
	token := fmt.Sprintf("refresh-%d", m.seq)
	sess := session.Session{UserID: userID, Role: role, AccessID: session.NewAccessID()}
	m.live[token] = sess
	return session.Issued{Session: sess, RefreshToken: token}, nil
}

func (m *memorySessions) Rotate(ctx context.Context, token string) (session.Issued, error) {
	sess, ok := m.live[token]
	if !ok {
		return session.Issued{}, session.ErrInvalidRefreshToken
	}
	delete(m.live, token)
	return m.Generate(ctx, sess.UserID, sess.Role)
}

func (m *memorySessions) Revoke(_ context.Context, token string) error {
	delete(m.live, token)
	return nil
}

func newTestService(t *testing.T) (Service, *gorm.DB, *memorySessions) {
	t.Helper()
	client, conn := dbtest.Client(t)
	sessions := &memorySessions{live: map[string]session.Session{}}
	svc, err := NewService(ServiceParams{
		Tx:             client,
		Users:          users.NewRepository(conn),
		Vendors:        vendors.NewRepository(conn),
		Sessions:       sessions,
		JWTConfig:      testJWT,
		PasswordConfig: config.PasswordConfig{},
	})
	require.NoError(t, err)
	return svc, conn, sessions
}

func registerCustomer(t *testing.T, svc Service, email string) *AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email: email, Password: "correct-horse", FirstName: "Asha", LastName: "Rao", Role: enums.RoleCustomer,
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterCustomerIssuesTokens(t *testing.T) {
	svc, conn, sessions := newTestService(t)

	resp := registerCustomer(t, svc, "  Asha@Example.com ")
	require.Equal(t, "asha@example.com", resp.User.Email)
	require.Equal(t, enums.RoleCustomer, resp.User.Role)
	require.Nil(t, resp.User.VendorProfile)
	require.Equal(t, "Bearer", resp.TokenType)
	require.EqualValues(t, 1800, resp.ExpiresIn)
	require.Contains(t, sessions.live, resp.RefreshToken)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, claims.UserID)
	require.Equal(t, enums.RoleCustomer, claims.Role)
	require.Equal(t, sessions.live[resp.RefreshToken].AccessID, claims.ID)

	var stored models.User
	require.NoError(t, conn.First(&stored, "id = ?", resp.User.ID).Error)
	require.NotEqual(t, "correct-horse", stored.PasswordHash)
}

func TestRegisterVendorCreatesProfileWithDefaults(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		Email: "shop@example.com", Password: "correct-horse", FirstName: "Meera", LastName: "K", Role: enums.RoleVendor,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.User.VendorProfile)
	require.Equal(t, "Meera's Store", resp.User.VendorProfile.BusinessName)
	require.Equal(t, "retail", resp.User.VendorProfile.BusinessType)

	name := "Green Grocer"
	resp, err = svc.Register(ctx, RegisterRequest{
		Email: "grocer@example.com", Password: "correct-horse", FirstName: "Ravi", LastName: "S",
		Role: enums.RoleVendor, BusinessName: &name,
	})
	require.NoError(t, err)

	var profile models.VendorProfile
	require.NoError(t, conn.First(&profile, "user_id = ?", resp.User.ID).Error)
	require.Equal(t, "Green Grocer", profile.BusinessName)
}

func TestRegisterRejections(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	registerCustomer(t, svc, "taken@example.com")

	_, err := svc.Register(ctx, RegisterRequest{
		Email: "TAKEN@example.com", Password: "correct-horse", FirstName: "A", LastName: "B", Role: enums.RoleCustomer,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	for _, role := range []enums.UserRole{"", enums.RoleAdmin, "guest"} {
		_, err = svc.Register(ctx, RegisterRequest{
			Email: "new@example.com", Password: "correct-horse", FirstName: "A", LastName: "B", Role: role,
		})
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "role %q: %v", role, err)
	}

	_, err = svc.Register(ctx, RegisterRequest{Email: "x@example.com", Password: "correct-horse", LastName: "B", Role: enums.RoleCustomer})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var count int64
	require.NoError(t, conn.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestLogin(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	registered := registerCustomer(t, svc, "login@example.com")

	resp, err := svc.Login(ctx, LoginRequest{Email: "LOGIN@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotNil(t, resp.User.LastLoginAt)

	_, err = svc.Login(ctx, LoginRequest{Email: "login@example.com", Password: "wrong"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "correct-horse"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	require.NoError(t, conn.Model(&models.User{}).Where("id = ?", registered.User.ID).Update("is_active", false).Error)
	_, err = svc.Login(ctx, LoginRequest{Email: "login@example.com", Password: "correct-horse"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	svc, conn, sessions := newTestService(t)
	ctx := context.Background()
	registered := registerCustomer(t, svc, "refresh@example.com")

	pair, err := svc.Refresh(ctx, registered.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, registered.RefreshToken, pair.RefreshToken)

	_, err = svc.Refresh(ctx, registered.RefreshToken)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	require.NoError(t, svc.Logout(ctx, pair.RefreshToken))
	require.Empty(t, sessions.live)
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	require.NoError(t, svc.Logout(ctx, ""))

	again, err := svc.Login(ctx, LoginRequest{Email: "refresh@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.User{}).Where("id = ?", registered.User.ID).Update("is_active", false).Error)
	_, err = svc.Refresh(ctx, again.RefreshToken)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	require.Empty(t, sessions.live)
}

func TestMeAndUpdateProfile(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	vendor, err := svc.Register(ctx, RegisterRequest{
		Email: "v@example.com", Password: "correct-horse", FirstName: "Meera", LastName: "K", Role: enums.RoleVendor,
	})
	require.NoError(t, err)

	first, phone, gst := "Meenakshi", "9999999999", "GST123"
	me, err := svc.UpdateProfile(ctx, vendor.User.ID, UpdateProfileRequest{
		FirstName:     &first,
		Phone:         &phone,
		VendorProfile: &VendorProfileUpdate{GSTNumber: &gst},
	})
	require.NoError(t, err)
	require.Equal(t, "Meenakshi", me.FirstName)
	require.Equal(t, "K", me.LastName)
	require.Equal(t, "9999999999", *me.Phone)
	require.Equal(t, "GST123", *me.VendorProfile.GSTNumber)
	require.Equal(t, "Meera's Store", me.VendorProfile.BusinessName)

	blank := " "
	_, err = svc.UpdateProfile(ctx, vendor.User.ID, UpdateProfileRequest{LastName: &blank})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	customer := registerCustomer(t, svc, "c@example.com")
	me, err = svc.UpdateProfile(ctx, customer.User.ID, UpdateProfileRequest{VendorProfile: &VendorProfileUpdate{GSTNumber: &gst}})
	require.NoError(t, err)
	require.Nil(t, me.VendorProfile)

	_, err = svc.Me(ctx, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	registered := registerCustomer(t, svc, "pw@example.com")

	err := svc.ChangePassword(ctx, registered.User.ID, ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "new-password"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	require.NoError(t, svc.ChangePassword(ctx, registered.User.ID, ChangePasswordRequest{
		CurrentPassword: "correct-horse", NewPassword: "new-password",
	}))

	_, err = svc.Login(ctx, LoginRequest{Email: "pw@example.com", Password: "correct-horse"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	_, err = svc.Login(ctx, LoginRequest{Email: "pw@example.com", Password: "new-password"})
	require.NoError(t, err)
}

func TestTokenLifetimeFollowsConfig(t *testing.T) {
	svc, _, _ := newTestService(t)
	resp := registerCustomer(t, svc, "ttl@example.com")
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	require.WithinDuration(t, claims.IssuedAt.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}
