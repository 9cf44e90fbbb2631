package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/medrex/clinic-backend/pkg/config"
	"github.com/medrex/clinic-backend/pkg/logger"
	"github.com/medrex/clinic-backend/pkg/monitoring"
	"github.com/medrex/clinic-backend/pkg/rbac"
	"github.com/medrex/clinic-backend/pkg/types"
)

const testSecret = "test-secret-key-for-unit-tests"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  15,
			WriteTimeout: 15,
			IdleTimeout:  60,
		},
		JWT: config.JWTConfig{
			SecretKey:      testSecret,
			AccessTokenTTL: 900,
			Issuer:         "clinic-backend",
		},
		RateLimit: config.RateLimitConfig{
			Enabled: false,
		},
		Monitoring: config.MonitoringConfig{
			Enabled: false,
		},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	health := monitoring.NewHealthManager("clinic-backend", "test")
	return New(testConfig(), logger.New("error"), nil, health, nil)
}

func signAccessToken(t *testing.T, userID, role string) string {
	t.Helper()

	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   userID + "@example.com",
		"role":    role,
		"exp":     now.Add(15 * time.Minute).Unix(),
		"iat":     now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	assert.NoError(t, err)
	return signed
}

func TestTokenValidator(t *testing.T) {
	validator := NewTokenValidator(&config.JWTConfig{SecretKey: testSecret})

	t.Run("valid access token", func(t *testing.T) {
		token := signAccessToken(t, "user-1", "patient")

		claims, err := validator.ValidateAccessToken(token)

		assert.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, types.RolePatient, claims.Role)
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		now := time.Now()
		refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": "user-1",
			"type":    "refresh",
			"exp":     now.Add(time.Hour).Unix(),
		}).SignedString([]byte(testSecret))
		assert.NoError(t, err)

		claims, err := validator.ValidateAccessToken(refresh)

		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": "user-1",
			"role":    "patient",
			"exp":     time.Now().Add(-time.Hour).Unix(),
		}).SignedString([]byte(testSecret))
		assert.NoError(t, err)

		_, err = validator.ValidateAccessToken(expired)

		assert.Error(t, err)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": "user-1",
			"role":    "admin",
			"exp":     time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("some-other-secret"))
		assert.NoError(t, err)

		_, err = validator.ValidateAccessToken(forged)

		assert.Error(t, err)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		token := signAccessToken(t, "user-1", "nurse")

		_, err := validator.ValidateAccessToken(token)

		assert.Error(t, err)
	})
}

func TestAuthMiddleware(t *testing.T) {
	server := newTestServer(t)
	server.Router().PathPrefix("/api/v1/appointments").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	t.Run("missing authorization header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/appointments", nil)
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed authorization header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/appointments", nil)
		req.Header.Set("Authorization", "Token abc123")
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token passes through", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/appointments", nil)
		req.Header.Set("Authorization", "Bearer "+signAccessToken(t, "patient-1", "patient"))
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("health endpoint needs no token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRBACMiddleware(t *testing.T) {
	server := newTestServer(t)
	okHandler := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	server.Router().PathPrefix("/api/v1/admin/doctors").HandlerFunc(okHandler).Methods("POST")
	server.Router().PathPrefix("/api/v1/appointments").HandlerFunc(okHandler).Methods("POST")
	server.Router().PathPrefix("/api/v1/reports").HandlerFunc(okHandler).Methods("POST")
	server.Router().PathPrefix("/api/v1/notifications/n-1/mark-as-read").HandlerFunc(okHandler).Methods("POST")

	do := func(method, path, role string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+signAccessToken(t, role+"-1", role))
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)
		return rec
	}

	t.Run("patient cannot reach admin endpoints", func(t *testing.T) {
		rec := do("POST", "/api/v1/admin/doctors", "patient")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin can reach admin endpoints", func(t *testing.T) {
		rec := do("POST", "/api/v1/admin/doctors", "admin")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("patient can book appointments", func(t *testing.T) {
		rec := do("POST", "/api/v1/appointments", "patient")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("doctor cannot create reports", func(t *testing.T) {
		rec := do("POST", "/api/v1/reports", "doctor")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("lab technician can create reports", func(t *testing.T) {
		rec := do("POST", "/api/v1/reports", "lab_technician")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("mark-as-read post counts as update", func(t *testing.T) {
		rec := do("POST", "/api/v1/notifications/n-1/mark-as-read", "patient")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestResourceForPath(t *testing.T) {
	cases := map[string]string{
		"/api/v1/appointments":            rbac.ResourceAppointment,
		"/api/v1/appointments/apt-1":      rbac.ResourceAppointment,
		"/api/v1/prescriptions/lab-queue": rbac.ResourcePrescription,
		"/api/v1/reports/r-1/download":    rbac.ResourceReport,
		"/api/v1/notifications":           rbac.ResourceNotification,
		"/api/v1/users/me":                rbac.ResourceUser,
		"/api/v1/doctors":                 rbac.ResourceDoctor,
		"/api/v1/admin/users/u-1":         rbac.ResourceAdmin,
		"/api/v1/unknown-thing":           "",
	}

	for path, expected := range cases {
		assert.Equal(t, expected, resourceForPath(path), path)
	}
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows up to the limit then denies", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)

		assert.True(t, limiter.Allow("user-1"))
		assert.True(t, limiter.Allow("user-1"))
		assert.True(t, limiter.Allow("user-1"))
		assert.False(t, limiter.Allow("user-1"))
	})

	t.Run("users are limited independently", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)

		assert.True(t, limiter.Allow("user-1"))
		assert.False(t, limiter.Allow("user-1"))
		assert.True(t, limiter.Allow("user-2"))
	})

	t.Run("reset restores capacity", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)

		assert.True(t, limiter.Allow("user-1"))
		assert.False(t, limiter.Allow("user-1"))

		limiter.Reset("user-1")
		assert.True(t, limiter.Allow("user-1"))
	})
}
