package common

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var (
	snowflakeNode *snowflake.Node
	snowflakeOnce sync.Once
)

// UUIDint64 returns a snowflake int64 id.
func UUIDint64() int64 {
	snowflakeOnce.Do(func() {
		var err error
		snowflakeNode, err = snowflake.NewNode(1)
		if err != nil {
			panic(err)
		}
	})
	return snowflakeNode.Generate().Int64()
}

// Sha256HashWithSalt hashes a value with the given salt.
func Sha256HashWithSalt(value, salt string) string {
	h := sha256.New()
	h.Write([]byte(value + salt))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// GetSecretSalt returns the process salt, overridable via environment.
func GetSecretSalt() string {
	if salt := os.Getenv("HOTSPOTBILL_SECRET_SALT"); salt != "" {
		return salt
	}
	return "hotspotbill-default-salt"
}

// voucherAlphabet excludes ambiguous characters (0/O, 1/I/L) so codes
// survive being read over the phone or printed on thermal paper.
const voucherAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateVoucherCode returns a human-readable code like "WF-7K2M9XQT".
func GenerateVoucherCode(prefix string, length int) string {
	if length <= 0 {
		length = 8
	}
	var sb strings.Builder
	if prefix != "" {
		sb.WriteString(prefix)
		sb.WriteString("-")
	}
	sb.WriteString(randomString(voucherAlphabet, length))
	return sb.String()
}

// GenerateVoucherPassword returns a random numeric password.
func GenerateVoucherPassword(length int) string {
	if length <= 0 {
		length = 6
	}
	return randomString("0123456789", length)
}

func randomString(alphabet string, length int) string {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf)
}
