package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TechnoExperience/texnewweb-sub000/internal/auth"
	"github.com/TechnoExperience/texnewweb-sub000/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signed(t *testing.T, sub string, ttl time.Duration) string {
	t.Helper()
	tok, err := auth.SignToken(auth.Claims{
		Email: "ana@example.com",
		Role:  "customer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}, testSecret)
	require.NoError(t, err)
	return tok
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCors(t *testing.T) {
	handler := CORS([]string{"http://localhost:3000", "https://shop.example.com"})(okHandler())

	t.Run("OPTIONS request", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/test", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Allowed origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "https://shop.example.com")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Unknown origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuth(t *testing.T) {
	authenticate := Authenticate(testSecret)

	t.Run("Missing Token", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := utils.GetUserIDFromContext(r.Context())
			assert.False(t, ok, "Context should not contain user ID")
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest("GET", "/protected", nil)
		w := httptest.NewRecorder()

		authenticate(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Invalid Token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()

		authenticate(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Valid Token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+signed(t, "user-1", time.Hour))
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, "user-1", userID)
			assert.Equal(t, "ana@example.com", utils.GetUserEmailFromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		})

		authenticate(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Cookie Token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: signed(t, "user-2", time.Hour)})
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ := utils.GetUserIDFromContext(r.Context())
			assert.Equal(t, "user-2", userID)
			w.WriteHeader(http.StatusOK)
		})

		authenticate(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Expired Token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+signed(t, "user-1", -time.Hour))
		w := httptest.NewRecorder()

		authenticate(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Malformed Header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Basic user:pass")
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := utils.GetUserIDFromContext(r.Context())
			assert.False(t, ok)
			w.WriteHeader(http.StatusOK)
		})

		authenticate(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequireAuth(t *testing.T) {
	handler := Authenticate(testSecret)(RequireAuth(okHandler()))

	t.Run("Anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/protected", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Authenticated", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+signed(t, "user-1", time.Hour))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("Strict tier for payment signing", func(t *testing.T) {
		rl := NewRateLimiter("")
		handler := rl.Middleware(okHandler())

		codes := make([]int, 0, burstStrict+1)
		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest("POST", "/api/payments/sign", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}

		for i := 0; i < burstStrict; i++ {
			assert.Equal(t, http.StatusOK, codes[i])
		}
		assert.Equal(t, http.StatusTooManyRequests, codes[burstStrict])
	})

	t.Run("Gateway notifications are never throttled", func(t *testing.T) {
		rl := NewRateLimiter("")
		handler := rl.Middleware(okHandler())

		for i := 0; i < burstGeneral*2; i++ {
			req := httptest.NewRequest("POST", "/api/payments/notify", nil)
			req.RemoteAddr = "195.76.9.117:443"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code, "notification %d", i)
		}
		assert.Equal(t, 0, rl.size())
	})

	t.Run("Identities are isolated", func(t *testing.T) {
		rl := NewRateLimiter("")
		handler := rl.Middleware(okHandler())

		for i := 0; i < burstStrict; i++ {
			req := httptest.NewRequest("POST", "/api/payments/sign", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}

		req := httptest.NewRequest("POST", "/api/payments/sign", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Tier resolution", func(t *testing.T) {
		rl := NewRateLimiter("internal-key")

		req := httptest.NewRequest("GET", "/api/checkout/prefill", nil)
		_, _, tier := rl.resolveRateTier(req)
		assert.Equal(t, "general", tier)

		req = httptest.NewRequest("POST", "/api/checkout/submit", nil)
		_, _, tier = rl.resolveRateTier(req)
		assert.Equal(t, "strict", tier)

		req.Header.Set("X-Service-Auth", "internal-key")
		_, _, tier = rl.resolveRateTier(req)
		assert.Equal(t, "internal", tier)
	})

	t.Run("Identity prefers user then device", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.9:5555"
		assert.Equal(t, "ip:10.0.0.9", identity(req))

		req.Header.Set("X-Device-ID", "dev-1")
		assert.Equal(t, "device:dev-1", identity(req))

		req = req.WithContext(utils.SetUserContext(req.Context(), "42", ""))
		assert.Equal(t, "user:42", identity(req))
	})

	t.Run("Cleanup drops idle visitors", func(t *testing.T) {
		rl := NewRateLimiter("")
		now := time.Now()
		rl.now = func() time.Time { return now }

		rl.getVisitor("ip:a:general", limitGeneral, burstGeneral)
		assert.Equal(t, 1, rl.size())

		now = now.Add(visitorTTL + time.Second)
		rl.Cleanup()
		assert.Equal(t, 0, rl.size())
	})
}
