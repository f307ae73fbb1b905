// Package identity works out who is editing the board. Tokens are issued by
// the external sign-in service; this package only verifies and reads them.
package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/KevinKickass/railboard/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Anonymous is used when a request carries no identity at all.
const Anonymous = "anonymous"

const contextKey = "editor"

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Resolver struct {
	secretKey    []byte
	editorHeader string
}

// NewResolver returns a resolver. An empty secret disables bearer tokens and
// the editor header is trusted instead.
func NewResolver(secret, editorHeader string) *Resolver {
	if editorHeader == "" {
		editorHeader = "X-Editor"
	}
	return &Resolver{secretKey: []byte(secret), editorHeader: editorHeader}
}

// ParseToken validates an HS256 token and returns its editor name.
func (r *Resolver) ParseToken(tokenString string) (string, error) {
	if len(r.secretKey) == 0 {
		return "", fmt.Errorf("%w: bearer tokens are disabled", ErrInvalidToken)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.secretKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Username != "" {
		return claims.Username, nil
	}
	if claims.Subject != "" {
		return claims.Subject, nil
	}
	return "", fmt.Errorf("%w: no username claim", ErrInvalidToken)
}

// Middleware stores the editor name in the gin context. A present but bad
// bearer token is rejected; no credentials at all fall back to the editor
// header and then to Anonymous.
func (r *Resolver) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, types.NewErrorResponse(
					types.CodeUnauthorized, "Invalid authorization header format", nil))
				return
			}

			editor, err := r.ParseToken(parts[1])
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, types.NewErrorResponse(
					types.CodeUnauthorized, "Invalid bearer token", err.Error()))
				return
			}
			c.Set(contextKey, editor)
			c.Next()
			return
		}

		editor := strings.TrimSpace(c.GetHeader(r.editorHeader))
		if editor == "" {
			editor = Anonymous
		}
		c.Set(contextKey, editor)
		c.Next()
	}
}

// Editor returns the name set by Middleware.
func Editor(c *gin.Context) string {
	if v := c.GetString(contextKey); v != "" {
		return v
	}
	return Anonymous
}
