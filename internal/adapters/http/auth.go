package http

import (
	"net/http"

	"github.com/dkeye/chatrelay/internal/adapters/signal"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/samber/oops"
)

const (
	codeUnauthorized = "unauthorized"
	codeBadRequest   = "bad_request"

	tokenCookie = "jwt"
)

type userClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

func errUnauthorized(msg string) error {
	return oops.In("auth").Code(codeUnauthorized).Errorf("%s", msg)
}

// HandshakeAuth resolves the identity of a WebSocket handshake and stores it
// under signal.UserIDKey. With a secret, a valid HS256 token (cookie "jwt" or
// query "token") is required and its userId claim, or sub, is the identity.
// Without one, the userId query parameter is trusted as is; a missing
// userId leaves the connection anonymous.
func HandshakeAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			if uid, err := domain.ParseUserID(c.Query("userId")); err == nil {
				c.Set(signal.UserIDKey, string(uid))
			}
			c.Next()
			return
		}

		raw, _ := c.Cookie(tokenCookie)
		if raw == "" {
			raw = c.Query("token")
		}
		uid, err := verifyToken(secret, raw)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("handshake rejected")
			abortWithError(c, err)
			return
		}
		c.Set(signal.UserIDKey, string(uid))
		c.Next()
	}
}

func verifyToken(secret, raw string) (domain.UserID, error) {
	if raw == "" {
		return "", errUnauthorized("missing token")
	}
	var claims userClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", oops.In("auth").Code(codeUnauthorized).Wrapf(err, "invalid token")
	}
	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	uid, err := domain.ParseUserID(id)
	if err != nil {
		return "", oops.In("auth").Code(codeUnauthorized).Wrapf(err, "token without user")
	}
	return uid, nil
}

// abortWithError maps coded errors to a status and a JSON body.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal"
	if oe, ok := oops.AsOops(err); ok {
		if s, ok := oe.Code().(string); ok && s != "" {
			code = s
		}
	}
	switch code {
	case codeUnauthorized:
		status = http.StatusUnauthorized
	case codeBadRequest:
		status = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": err.Error()})
}
