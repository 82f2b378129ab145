package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/infrastructure/auth"
	"github.com/thirdhand/marketplace/internal/infrastructure/config"
	"github.com/thirdhand/marketplace/internal/interfaces/http/dto"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "test-issuer",
	})
}

// validatorFor checks signatures with jwtService and revocation with blacklist
func validatorFor(jwtService *auth.JWTService, blacklist auth.TokenBlacklist) TokenValidator {
	return TokenValidatorFunc(func(ctx context.Context, token string) (*auth.Claims, error) {
		claims, err := jwtService.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		revoked, err := blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, auth.ErrTokenBlacklisted
		}
		return claims, nil
	})
}

func issueToken(t *testing.T, jwtService *auth.JWTService, role identity.Role) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	pair, err := jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:   userID,
		Username: "painter",
		Role:     string(role),
	})
	require.NoError(t, err)
	return pair.AccessToken, userID
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestJWTAuth_ValidToken(t *testing.T) {
	jwtService := newTestJWTService()
	token, userID := issueToken(t, jwtService, identity.RoleArtist)

	router := gin.New()
	router.Use(JWTAuth(validatorFor(jwtService, auth.NewInMemoryTokenBlacklist()), nil))
	router.GET("/test", func(c *gin.Context) {
		assert.Equal(t, userID.String(), GetJWTUserID(c))
		assert.Equal(t, userID, GetUserUUID(c))
		assert.Equal(t, "artist", GetJWTRole(c))
		require.NotNil(t, GetJWTClaims(c))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuth_Rejections(t *testing.T) {
	jwtService := newTestJWTService()
	blacklist := auth.NewInMemoryTokenBlacklist()
	revoked, _ := issueToken(t, jwtService, identity.RoleBuyer)
	claims, err := jwtService.ValidateAccessToken(revoked)
	require.NoError(t, err)
	require.NoError(t, blacklist.AddToBlacklist(context.Background(), claims.ID, time.Hour))

	router := gin.New()
	router.Use(JWTAuth(validatorFor(jwtService, blacklist), nil))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{name: "missing header", header: "", code: dto.ErrCodeUnauthorized},
		{name: "wrong scheme", header: "Basic abc", code: dto.ErrCodeTokenInvalid},
		{name: "empty token", header: "Bearer ", code: dto.ErrCodeTokenInvalid},
		{name: "garbage token", header: "Bearer not-a-jwt", code: dto.ErrCodeTokenInvalid},
		{name: "revoked token", header: "Bearer " + revoked, code: dto.ErrCodeTokenRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestOptionalJWTAuth(t *testing.T) {
	jwtService := newTestJWTService()
	token, userID := issueToken(t, jwtService, identity.RoleBuyer)

	router := gin.New()
	router.Use(OptionalJWTAuth(validatorFor(jwtService, auth.NewInMemoryTokenBlacklist()), nil))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetUserUUID(c).String())
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, uuid.Nil.String(), rec.Body.String())
	})

	t.Run("authenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, userID.String(), rec.Body.String())
	})

	t.Run("invalid token is still rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(AuthHeaderKey, "Bearer broken")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRoles(t *testing.T) {
	jwtService := newTestJWTService()
	validator := validatorFor(jwtService, auth.NewInMemoryTokenBlacklist())

	router := gin.New()
	router.GET("/admin", JWTAuth(validator, nil), RequireRoles(identity.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/unguarded", RequireRoles(identity.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	call := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	adminToken, _ := issueToken(t, jwtService, identity.RoleAdmin)
	buyerToken, _ := issueToken(t, jwtService, identity.RoleBuyer)

	assert.Equal(t, http.StatusOK, call("/admin", adminToken).Code)

	rec := call("/admin", buyerToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, dto.ErrCodeForbidden, decodeError(t, rec).Code)

	assert.Equal(t, http.StatusUnauthorized, call("/unguarded", "").Code)
}
