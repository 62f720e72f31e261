package auth

import (
	"github.com/jaevor/go-nanoid"
)

// Alfabet kodów: wielkie litery i cyfry, bez znaków specjalnych.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	UsernameLength = 6
	KeyLength      = 10
)

// GenerateCode zwraca losowy kod o podanej długości z alfabetu A-Z0-9.
// Generator jest oparty na crypto/rand, nie na math/rand.
func GenerateCode(length int) (string, error) {
	generate, err := nanoid.CustomASCII(codeAlphabet, length)
	if err != nil {
		return "", err
	}
	return generate(), nil
}
