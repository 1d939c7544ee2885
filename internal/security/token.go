package security

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a bearer token fails verification
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenVerifier validates bearer tokens issued by the family auth service.
// Tokens are HMAC-signed JWTs whose subject is the reader ID; issuance
// happens outside this service.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for tokens signed with the given secret
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// VerifyReaderToken parses and validates a bearer token and returns the
// reader ID it was issued for.
func (v *TokenVerifier) VerifyReaderToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, ErrInvalidToken
	}

	readerID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || readerID <= 0 {
		return 0, ErrInvalidToken
	}

	return readerID, nil
}

// SignReaderToken creates a token for a reader. Production tokens come from
// the auth service; this is used by tests and local development seeds.
func (v *TokenVerifier) SignReaderToken(readerID int64, claims jwt.MapClaims) (string, error) {
	if claims == nil {
		claims = jwt.MapClaims{}
	}
	claims["sub"] = strconv.FormatInt(readerID, 10)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
