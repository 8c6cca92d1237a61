package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContextUserID is the gin context key holding the authenticated user id
const ContextUserID = "user_id"

// ErrMissingToken is returned when no bearer token was sent
var ErrMissingToken = errors.New("missing bearer token")

// JWTVerifier handles HS256 token issuing and verification
type JWTVerifier struct {
	secret []byte
	issuer string
	log    *zap.SugaredLogger
}

// NewJWTVerifier creates a new JWT verifier
func NewJWTVerifier(secret, issuer string, log *zap.SugaredLogger) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, log: log}
}

// IssueToken signs a token whose subject is userID
func (v *JWTVerifier) IssueToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// ExtractUserIDFromToken verifies the token and returns its subject
func (v *JWTVerifier) ExtractUserIDFromToken(tokenString string) (uuid.UUID, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return uuid.Nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to verify token: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, fmt.Errorf("token is not valid")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("sub is not a valid user id: %q", claims.Subject)
	}
	return id, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// user id under ContextUserID
func (v *JWTVerifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := v.ExtractUserIDFromToken(c.GetHeader("Authorization"))
		if err != nil {
			v.log.Debugw("JWT validation error", "path", c.FullPath(), "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "User authentication required",
			})
			return
		}
		c.Set(ContextUserID, userID.String())
		c.Next()
	}
}
