package auth

import (
	"fmt"
	"skrytka-plikow/internal/models"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "skrytka-plikow"

// GenerateJWT wystawia token dostępowy dla użytkownika. Podmiotem (sub)
// jest username. Dozwolone są wyłącznie algorytmy z rodziny HMAC.
func GenerateJWT(user *models.User, secret, algorithm string, ttl time.Duration) (string, error) {
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return "", fmt.Errorf("unknown signing algorithm: %s", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return "", fmt.Errorf("signing algorithm %s is not an HMAC method", algorithm)
	}

	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Subject:   user.Username,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    tokenIssuer,
	}

	token := jwt.NewWithClaims(method, claims)

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// VerifyJWT sprawdza podpis i ważność tokenu. Zwraca claims tylko dla
// tokenów podpisanych metodą HMAC, z niepustym polem sub.
func VerifyJWT(tokenString, secret string) (*jwt.RegisteredClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, jwt.ErrTokenRequiredClaimMissing
	}

	return claims, nil
}
