package http

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/satriahrh/cocoa-fruit/ragchat/utils/log"
	"go.uber.org/zap"
)

const (
	JWTExpiry = 24 * time.Hour
	jwtIssuer = "ragchat"
)

type AuthHandler struct {
	jwtSecret []byte
	apiKey    string
	apiSecret string
}

type JWTClaims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

func NewAuthHandler(secret, apiKey, apiSecret string) *AuthHandler {
	return &AuthHandler{
		jwtSecret: []byte(secret),
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

// GenerateJWT issues a bearer token to clients presenting the configured API key pair
func (h *AuthHandler) GenerateJWT(c echo.Context) error {
	key := c.Request().Header.Get("X-API-Key")
	secret := c.Request().Header.Get("X-API-Secret")

	if h.apiKey == "" || !equal(key, h.apiKey) || !equal(secret, h.apiSecret) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	now := time.Now()
	claims := &JWTClaims{
		ClientID: key,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(JWTExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    jwtIssuer,
			Subject:   "chat",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		log.WithCtx(requestContext(c)).Error("Error signing JWT", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"token": tokenString,
		"type":  "Bearer",
	})
}

// JWTMiddleware rejects requests without a valid bearer token
func (h *AuthHandler) JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
		}

		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return h.jwtSecret, nil
		}, jwt.WithIssuer(jwtIssuer))
		if err != nil {
			log.WithCtx(requestContext(c)).Info("JWT validation error", zap.Error(err))
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}

		if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
			c.Set("client_id", claims.ClientID)
			return next(c)
		}

		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token claims")
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
