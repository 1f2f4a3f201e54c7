package token

import (
	"errors"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of an access token's payload worth showing a user.
// The signature is not verified: these values are for display and log
// context only and never decide whether the token is still usable.
type Claims struct {
	UserID    string
	TokenType string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Inspect decodes the claims of a JWT access token without verifying it.
func Inspect(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.New("[Inspect] empty token")
	}

	unverifiedToken, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, err
	}

	mapClaims, ok := unverifiedToken.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("[Inspect] error extracting claims")
	}

	claims := &Claims{
		UserID:    claimString(mapClaims["user_id"]),
		TokenType: claimString(mapClaims["token_type"]),
		JTI:       claimString(mapClaims["jti"]),
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if claims.UserID == "" {
		claims.UserID = claimString(mapClaims["sub"])
	}
	return claims, nil
}

func claimString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
