package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"kamuy/apperr"
)

// AccessTokenCookie is the HTTP-only session cookie carrying the JWT. It is
// re-validated on every protected request.
const AccessTokenCookie = "access_token"

// UserIDKey is the gin context key the middleware stores the authenticated
// user id under.
const UserIDKey = "userId"

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenFromRequest finds the access token: the session cookie first, then
// the Authorization header, then the token query parameter (used by the
// WebSocket upgrade, where browsers cannot set headers).
func TokenFromRequest(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", fmt.Errorf("%w: malformed Authorization header", apperr.ErrUnauthenticated)
		}
		return strings.TrimSpace(parts[1]), nil
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("%w: no access token", apperr.ErrUnauthenticated)
}

// VerifyToken parses and validates a token, returning the user id claim.
func VerifyToken(tokenString, secret string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid || claims.UserID == "" {
		return "", fmt.Errorf("%w: invalid token", apperr.ErrUnauthenticated)
	}
	return claims.UserID, nil
}

// Auth guards a route group. Any verification failure yields the same
// generic 401; the cause is not distinguishable to the caller.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		tokenString, err := TokenFromRequest(c.Request)
		if err == nil {
			var userID string
			if userID, err = VerifyToken(tokenString, secret); err == nil {
				c.Set(UserIDKey, userID)
				c.Next()
				return
			}
		}

		c.JSON(http.StatusUnauthorized, gin.H{"error": apperr.UnauthenticatedMessage})
		c.Abort()
	}
}
