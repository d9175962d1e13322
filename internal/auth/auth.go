package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/airline/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalKey = "auth.principal"

var (
	errMissingToken = errors.New("authentication credentials were not provided")
	errInvalidToken = errors.New("given token not valid")
)

// Claims are read from tokens issued by the identity service. The user id is
// taken from user_id when present and from sub otherwise.
type Claims struct {
	UserID  *int64 `json:"user_id,omitempty"`
	IsStaff bool   `json:"is_staff"`
	jwt.RegisteredClaims
}

func (c Claims) Principal() (domain.Principal, error) {
	if c.UserID != nil {
		return domain.Principal{UserID: *c.UserID, IsStaff: c.IsStaff}, nil
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: subject is not a user id", errInvalidToken)
	}
	return domain.Principal{UserID: id, IsStaff: c.IsStaff}, nil
}

type Authenticator struct {
	secret []byte
	parser *jwt.Parser
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

func (a *Authenticator) Parse(raw string) (domain.Principal, error) {
	var claims Claims
	tok, err := a.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil || !tok.Valid {
		return domain.Principal{}, errInvalidToken
	}
	return claims.Principal()
}

// Sign issues a token for p. The API never issues tokens itself; this serves
// local tooling and tests.
func (a *Authenticator) Sign(p domain.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		IsStaff: p.IsStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Middleware requires a valid bearer token and stores the caller's principal
// in the gin context.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": errMissingToken.Error()})
			return
		}

		p, err := a.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": errInvalidToken.Error()})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireStaff rejects authenticated callers that are not staff.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !PrincipalFrom(c).IsStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
			return
		}
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) domain.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(domain.Principal); ok {
			return p
		}
	}
	return domain.Principal{}
}

func SetPrincipal(c *gin.Context, p domain.Principal) {
	c.Set(principalKey, p)
}
