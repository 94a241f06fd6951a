package healthprofile

import (
	"crypto/rand"
	"fmt"
)

// publicIDAlphabet is URL safe and 64 symbols long, so each random byte maps
// to one symbol without bias.
const publicIDAlphabet = "useandom-26T198340PX75pxJACKVERYMINDBUSHWOLF_GQZbfghjklqvwyzrict"

const (
	publicIDLength = 8
	maxPublicIDLen = 32
)

// NewPublicID returns a random public emergency id.
func NewPublicID() (string, error) {
	buf := make([]byte, publicIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	id := make([]byte, publicIDLength)
	for i, b := range buf {
		id[i] = publicIDAlphabet[b&63]
	}
	return string(id), nil
}

func validPublicID(id string) bool {
	if id == "" || len(id) > maxPublicIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		ok := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
		if !ok {
			return false
		}
	}
	return true
}
