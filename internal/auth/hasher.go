package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/crypto/bcrypt"
)

// Stored credentials are "<scheme>:<material>".
const (
	SchemeBcrypt        = "bcrypt"
	SchemeLegacyRolling = "legacy-rolling"
	SchemeLegacySHA256  = "legacy-sha256"
	// SchemeLegacyNumeric holds an all-digit legacy value that is either a
	// rolling hash or a plaintext numeric password. Both readings verify.
	SchemeLegacyNumeric = "legacy-numeric"
)

var ErrUnknownScheme = errors.New("unknown credential scheme")

// Hasher creates bcrypt credentials and verifies bcrypt and imported legacy
// credentials. Legacy schemes verify but are never produced.
type Hasher struct {
	Cost int
}

func NewHasher() Hasher { return Hasher{Cost: bcrypt.DefaultCost} }

func (h Hasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return SchemeBcrypt + ":" + string(b), nil
}

// Verify reports whether password matches credential.
func (h Hasher) Verify(credential, password string) (bool, error) {
	scheme, material, ok := strings.Cut(credential, ":")
	if !ok {
		return false, ErrUnknownScheme
	}
	switch scheme {
	case SchemeBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(material), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	case SchemeLegacyRolling:
		return subtle.ConstantTimeCompare([]byte(material), []byte(LegacyRollingHash(password))) == 1, nil
	case SchemeLegacySHA256:
		return subtle.ConstantTimeCompare([]byte(strings.ToLower(material)), []byte(LegacySHA256(password))) == 1, nil
	case SchemeLegacyNumeric:
		hashed := subtle.ConstantTimeCompare([]byte(material), []byte(LegacyRollingHash(password)))
		plain := subtle.ConstantTimeCompare([]byte(material), []byte(password))
		return hashed|plain == 1, nil
	default:
		return false, ErrUnknownScheme
	}
}

// NeedsUpgrade is true for any credential not already bcrypt.
func (h Hasher) NeedsUpgrade(credential string) bool {
	return !strings.HasPrefix(credential, SchemeBcrypt+":")
}

// LegacyRollingHash is h = h*31 + c over UTF-16 code units, wrapped to int32.
func LegacyRollingHash(s string) string {
	var h int32
	for _, cu := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(cu)
	}
	return strconv.FormatInt(int64(h), 10)
}

func LegacySHA256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
