package pairing

import (
	"crypto/hmac"
	"encoding/base64"
	"errors"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2s"
)

const (
	// CodeLength is the number of characters in a pairing code.
	CodeLength   = 4
	digestPrefix = 5
)

// ErrMissingSecret is returned by NewGenerator when no signing secret is configured.
var ErrMissingSecret = errors.New("pairing secret is not configured")

// Generator derives pairing codes from device ids with a server-held secret.
type Generator struct {
	secret []byte
}

// NewGenerator returns a Generator keyed by secret.
func NewGenerator(secret string) (*Generator, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Generator{secret: []byte(secret)}, nil
}

func newBlake2s() hash.Hash {
	h, err := blake2s.New256(nil)
	if err != nil {
		// Unkeyed construction cannot fail.
		panic(err)
	}
	return h
}

// Code returns the pairing code for a persisted device id.
// The same id and secret always yield the same code.
func (g *Generator) Code(deviceID int64) string {
	mac := hmac.New(newBlake2s, g.secret)
	mac.Write([]byte(strconv.FormatInt(deviceID, 10)))
	sum := mac.Sum(nil)

	encoded := base64.StdEncoding.EncodeToString(sum[:digestPrefix])
	var b strings.Builder
	for _, r := range encoded {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}

	code := strings.ToUpper(b.String())
	if len(code) > CodeLength {
		code = code[:CodeLength]
	}
	for len(code) < CodeLength {
		code += "0"
	}
	return code
}

// Verify reports whether code matches the derived code for deviceID.
func (g *Generator) Verify(deviceID int64, code string) bool {
	return hmac.Equal([]byte(g.Code(deviceID)), []byte(strings.ToUpper(code)))
}
