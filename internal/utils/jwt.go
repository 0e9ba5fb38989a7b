package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PhoneClaims identifies a phone number that passed OTP verification.
type PhoneClaims struct {
	IsdCode     string `json:"isd_code"`
	PhoneNumber string `json:"phone_number"`
	jwt.RegisteredClaims
}

// GeneratePhoneToken creates a signed JWT for a verified phone number.
func GeneratePhoneToken(secret, isdCode, phone string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &PhoneClaims{
		IsdCode:     isdCode,
		PhoneNumber: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   isdCode + phone,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParsePhoneToken validates the token and returns its claims.
func ParsePhoneToken(secret, tokenString string) (*PhoneClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &PhoneClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*PhoneClaims); ok && token.Valid && claims.PhoneNumber != "" {
		return claims, nil
	}

	return nil, jwt.ErrTokenInvalidClaims
}
