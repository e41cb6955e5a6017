package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// GenerateRandomString generates a random string of the specified length
func GenerateRandomString(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b)[:length], nil
}

// GenerateReference builds a merchant reference like "JAMII-20260828-X4T9QZ"
func GenerateReference(prefix string) (string, error) {
	suffix, err := GenerateRandomString(6)
	if err != nil {
		return "", err
	}
	suffix = strings.ToUpper(strings.NewReplacer("-", "A", "_", "B").Replace(suffix))
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().Format("20060102"), suffix), nil
}
