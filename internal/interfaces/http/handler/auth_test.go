package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	identityapp "github.com/thirdhand/marketplace/internal/application/identity"
	appshared "github.com/thirdhand/marketplace/internal/application/shared"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"github.com/thirdhand/marketplace/internal/infrastructure/auth"
	"github.com/thirdhand/marketplace/internal/infrastructure/config"
	"github.com/thirdhand/marketplace/internal/interfaces/http/dto"
	"github.com/thirdhand/marketplace/tests/testutil"
	"go.uber.org/zap/zaptest"
)

func newAuthHandler(t *testing.T) (*AuthHandler, *testutil.MockUserRepository) {
	t.Helper()
	users := new(testutil.MockUserRepository)
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "access-secret-for-handler-tests-0123",
		RefreshSecret:          "refresh-secret-for-handler-tests-0123",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "thirdhand-test",
	})
	scope := appshared.NewNoOpTransactionScope(appshared.Repositories{UserRepo: users})
	service := identityapp.NewAuthService(scope, users, jwtService, auth.NewInMemoryTokenBlacklist(), zaptest.NewLogger(t))
	return NewAuthHandler(service), users
}

func TestAuthHandler_Register(t *testing.T) {
	h, users := newAuthHandler(t)
	users.On("ExistsByEmailOrUsername", mock.Anything, "mira@example.com", "mira").Return(false, nil)
	users.On("Create", mock.Anything, mock.AnythingOfType("*identity.User")).Return(nil)

	router := newRouter()
	router.POST("/auth/register", h.Register)

	w := serve(router, http.MethodPost, "/auth/register", map[string]any{
		"username": "mira",
		"email":    "mira@example.com",
		"password": "Secret123!",
		"role":     "artist",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	user := decodeData[identityapp.UserResponse](t, w)
	assert.Equal(t, "mira", user.Username)
	assert.Equal(t, identity.RoleArtist, user.Role)
	assert.False(t, user.IsVerified)
	users.AssertExpectations(t)
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{
			name:  "bad email",
			body:  map[string]any{"username": "mira", "email": "not-an-email", "password": "Secret123!", "role": "buyer"},
			field: "email",
		},
		{
			name:  "short password",
			body:  map[string]any{"username": "mira", "email": "mira@example.com", "password": "short", "role": "buyer"},
			field: "password",
		},
		{
			name:  "admin role",
			body:  map[string]any{"username": "mira", "email": "mira@example.com", "password": "Secret123!", "role": "admin"},
			field: "role",
		},
		{
			name:  "short username",
			body:  map[string]any{"username": "mi", "email": "mira@example.com", "password": "Secret123!", "role": "buyer"},
			field: "username",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, users := newAuthHandler(t)
			router := newRouter()
			router.POST("/auth/register", h.Register)

			w := serve(router, http.MethodPost, "/auth/register", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
			require.Len(t, resp.Error.Details, 1)
			assert.Equal(t, tt.field, resp.Error.Details[0].Field)
			users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthHandler_RegisterDuplicate(t *testing.T) {
	h, users := newAuthHandler(t)
	users.On("ExistsByEmailOrUsername", mock.Anything, "mira@example.com", "mira").Return(true, nil)

	router := newRouter()
	router.POST("/auth/register", h.Register)

	w := serve(router, http.MethodPost, "/auth/register", map[string]any{
		"username": "mira", "email": "mira@example.com", "password": "Secret123!", "role": "buyer",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeAlreadyExists, errorCode(t, w))
}

func TestAuthHandler_Login(t *testing.T) {
	h, users := newAuthHandler(t)
	user, otp, err := identity.NewUser("mira", "mira@example.com", "Secret123!", identity.RoleBuyer)
	require.NoError(t, err)
	require.NoError(t, user.Verify(otp, time.Now()))

	users.On("FindByEmail", mock.Anything, "mira@example.com").Return(user, nil)
	users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, shared.ErrNotFound)
	users.On("SetPresence", mock.Anything, user.ID, mock.Anything, mock.Anything).Return(nil)

	router := newRouter()
	router.POST("/auth/login", h.Login)

	w := serve(router, http.MethodPost, "/auth/login", map[string]any{"email": "mira@example.com", "password": "Secret123!"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decodeData[identityapp.AuthResult](t, w)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, user.ID, result.User.ID)

	w = serve(router, http.MethodPost, "/auth/login", map[string]any{"email": "mira@example.com", "password": "Wrong123!"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))

	w = serve(router, http.MethodPost, "/auth/login", map[string]any{"email": "ghost@example.com", "password": "Secret123!"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "INVALID_CREDENTIALS", resp.Error.Code)
	assert.Equal(t, "Invalid email or password", resp.Error.Message)
}

func TestAuthHandler_LoginUnverified(t *testing.T) {
	h, users := newAuthHandler(t)
	user, _, err := identity.NewUser("mira", "mira@example.com", "Secret123!", identity.RoleBuyer)
	require.NoError(t, err)
	users.On("FindByEmail", mock.Anything, "mira@example.com").Return(user, nil)

	router := newRouter()
	router.POST("/auth/login", h.Login)

	w := serve(router, http.MethodPost, "/auth/login", map[string]any{"email": "mira@example.com", "password": "Secret123!"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "EMAIL_NOT_VERIFIED", errorCode(t, w))
}

func TestAuthHandler_Me(t *testing.T) {
	h, users := newAuthHandler(t)
	user, _, err := identity.NewUser("mira", "mira@example.com", "Secret123!", identity.RoleArtist)
	require.NoError(t, err)
	users.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	router := newRouter(asUser(user.ID, identity.RoleArtist))
	router.GET("/auth/me", h.Me)

	w := serve(router, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mira@example.com", decodeData[identityapp.UserResponse](t, w).Email)
}
