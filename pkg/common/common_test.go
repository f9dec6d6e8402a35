package common

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUUIDint64(t *testing.T) {
	a := UUIDint64()
	b := UUIDint64()
	assert.Positive(t, a)
	assert.NotEqual(t, a, b)
}

func TestGenerateVoucherCode(t *testing.T) {
	code := GenerateVoucherCode("WF", 8)
	assert.Regexp(t, regexp.MustCompile(`^WF-[ABCDEFGHJKMNPQRSTUVWXYZ23456789]{8}$`), code)

	// No ambiguous characters ever appear.
	for _, ch := range "01OIL" {
		assert.NotContains(t, strings.TrimPrefix(code, "WF-"), string(ch))
	}

	// Without a prefix there is no separator.
	bare := GenerateVoucherCode("", 10)
	assert.Len(t, bare, 10)
	assert.NotContains(t, bare, "-")
}

func TestGenerateVoucherCodeUniqueEnough(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := GenerateVoucherCode("WF", 8)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestGenerateVoucherPassword(t *testing.T) {
	pwd := GenerateVoucherPassword(6)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), pwd)

	assert.Len(t, GenerateVoucherPassword(0), 6, "non-positive length falls back to 6")
}

func TestSha256HashWithSalt(t *testing.T) {
	h1 := Sha256HashWithSalt("hotspotbill", "salt-a")
	h2 := Sha256HashWithSalt("hotspotbill", "salt-a")
	h3 := Sha256HashWithSalt("hotspotbill", "salt-b")
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}
