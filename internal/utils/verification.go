package utils // package utils provides helpers for password hashing and verification tokens

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// verifyPurpose scopes verification tokens so that no other HS256 token
// signed with the same secret can be redeemed as one.
const verifyPurpose = "verify_identity"

// ErrInvalidVerification is returned for any token that fails signature,
// expiry, purpose or subject checks.  Callers do not learn which check failed.
var ErrInvalidVerification = errors.New("invalid verification token")

// VerificationToken is an issued identity verification token.  Token is the
// signed string delivered to the user, ID the jti stored with the user row.
type VerificationToken struct {
	Token string
	ID    string
	Exp   time.Time
}

type verificationClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// NewVerificationToken signs an HS256 token bound to userID that expires
// after ttl.  Each token carries a fresh random jti.
func NewVerificationToken(secret string, userID uint64, ttl time.Duration) (VerificationToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	jti := uuid.NewString()
	claims := verificationClaims{
		Purpose: verifyPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return VerificationToken{}, err
	}
	return VerificationToken{Token: signed, ID: jti, Exp: exp}, nil
}

// ParseVerificationToken validates raw for userID and returns its jti.  The
// caller still has to redeem the jti against the stored one to enforce
// single use.
func ParseVerificationToken(secret, raw string, userID uint64) (string, error) {
	var claims verificationClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return "", ErrInvalidVerification
	}
	if claims.Purpose != verifyPurpose || claims.ID == "" {
		return "", ErrInvalidVerification
	}
	if claims.Subject != strconv.FormatUint(userID, 10) {
		return "", ErrInvalidVerification
	}
	return claims.ID, nil
}
