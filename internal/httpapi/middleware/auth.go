package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const identityKey = "identity"

// Identity is who the bearer token says is calling. Tokens are issued by the
// external auth system: "sub" carries the user id, "staff" the staff flag.
type Identity struct {
	UserID int64
	Staff  bool
}

type Authenticator struct {
	secret []byte
	issuer string
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// Require rejects requests without a valid bearer token and stores the Identity.
func (a *Authenticator) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauth(c, "invalid_request", "missing bearer token")
			return
		}

		opts := []jwt.ParserOption{
			jwt.WithLeeway(30 * time.Second),
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		}
		if a.issuer != "" {
			opts = append(opts, jwt.WithIssuer(a.issuer))
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), claims, func(*jwt.Token) (any, error) {
			return a.secret, nil
		}, opts...)
		if err != nil || !token.Valid {
			unauth(c, "invalid_token", "invalid jwt")
			return
		}

		sub, err := claims.GetSubject()
		if err != nil {
			unauth(c, "invalid_token", "missing subject")
			return
		}
		userID, err := strconv.ParseInt(sub, 10, 64)
		if err != nil || userID <= 0 {
			unauth(c, "invalid_token", "subject is not a user id")
			return
		}

		staff, _ := claims["staff"].(bool)
		c.Set(identityKey, Identity{UserID: userID, Staff: staff})

		c.Next()
	}
}

// RequireStaff must run after Require.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok || !id.Staff {
			forbidden(c, "insufficient_scope", "staff only")
			return
		}
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

func unauth(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code, "error_description": desc})
}

func forbidden(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": code, "error_description": desc})
}
