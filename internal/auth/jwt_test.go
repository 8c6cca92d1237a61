package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"socialfeed/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v := NewJWTVerifier("secret", "socialfeed", logging.Nop())
	user := uuid.New()

	token, err := v.IssueToken(user, time.Hour)
	require.NoError(t, err)

	got, err := v.ExtractUserIDFromToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestJWTVerifier_Rejects(t *testing.T) {
	v := NewJWTVerifier("secret", "socialfeed", logging.Nop())
	user := uuid.New()

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := jwt.RegisteredClaims{
		Subject:   user.String(),
		Issuer:    "socialfeed",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExpiry := valid
	noExpiry.ExpiresAt = nil
	otherIssuer := valid
	otherIssuer.Issuer = "elsewhere"
	badSubject := valid
	badSubject.Subject = "did:plc:someone"

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("other"), valid)},
		{"wrong algorithm", sign(jwt.SigningMethodHS512, []byte("secret"), valid)},
		{"expired", sign(jwt.SigningMethodHS256, []byte("secret"), expired)},
		{"no expiry", sign(jwt.SigningMethodHS256, []byte("secret"), noExpiry)},
		{"other issuer", sign(jwt.SigningMethodHS256, []byte("secret"), otherIssuer)},
		{"subject is not a uuid", sign(jwt.SigningMethodHS256, []byte("secret"), badSubject)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ExtractUserIDFromToken(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestJWTVerifier_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := NewJWTVerifier("secret", "", logging.Nop())
	user := uuid.New()
	token, err := v.IssueToken(user, time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", v.Middleware(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserID))
	})

	t.Run("authorized", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, user.String(), w.Body.String())
	})

	t.Run("unauthorized", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "User authentication required")
	})
}
