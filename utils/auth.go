// utils/auth.go
package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Token subjects
const (
	TokenStaff    = "staff"
	TokenCustomer = "customer"
)

// Context keys set by the auth middlewares
const (
	ContextUserID     = "userId"
	ContextRole       = "role"
	ContextCustomerID = "customerId"
)

// Hash password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// Check password
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

type Claims struct {
	Kind string `json:"kind"`
	ID   uint   `json:"id"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Generate JWT token
func GenerateToken(secret string, expiry time.Duration, kind string, id uint, role string) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET not set")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Kind: kind,
		ID:   id,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	return token.SignedString([]byte(secret))
}

// ParseToken validates the signature and expiry and returns the claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func bearerToken(c *gin.Context) string {
	tokenString := c.GetHeader("Authorization")
	if len(tokenString) > 7 && strings.ToUpper(tokenString[0:6]) == "BEARER" {
		tokenString = tokenString[7:]
	}
	return tokenString
}

// Auth middleware for admin/staff tokens
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(401, gin.H{"message": "Access token required"})
			return
		}

		claims, err := ParseToken(secret, tokenString)
		if err != nil || claims.Kind != TokenStaff {
			c.AbortWithStatusJSON(403, gin.H{"message": "Invalid or expired token"})
			return
		}

		c.Set(ContextUserID, claims.ID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// CustomerAuthMiddleware accepts only tokens issued after OTP verification.
func CustomerAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(401, gin.H{"message": "Access token required"})
			return
		}

		claims, err := ParseToken(secret, tokenString)
		if err != nil || claims.Kind != TokenCustomer {
			c.AbortWithStatusJSON(403, gin.H{"message": "Invalid or expired token"})
			return
		}

		c.Set(ContextCustomerID, claims.ID)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(403, gin.H{"message": "Insufficient permissions"})
	}
}
