package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt liczy tylko pierwsze 72 bajty hasła, wszystko powyżej odrzucamy
// zamiast po cichu ucinać.
const maxPasswordBytes = 72

var (
	ErrPasswordEmpty   = errors.New("password cannot be empty")
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrPasswordEmpty
	}
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
