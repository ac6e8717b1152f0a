// Package tronaddr decodes and validates TRON account addresses.
// A TRON address is the Base58Check encoding of a 21-byte payload whose first
// byte is the 0x41 network prefix. This is a leaf package with no domain dependencies.
package tronaddr

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"

	"github.com/mr-tron/base58/base58"
)

// PrefixByte is the mainnet/testnet address prefix shared by all TRON networks.
const PrefixByte = 0x41

const checksumLen = 4

var (
	ErrInvalidBase58   = errors.New("invalid base58 character")
	ErrInvalidLength   = errors.New("invalid base58 length")
	ErrInvalidChecksum = errors.New("invalid base58 checksum")
)

var (
	// shapePattern is the cheap pre-I/O check: leading T, base58 alphabet, 30-40 chars total.
	shapePattern = regexp.MustCompile(`^T[1-9A-HJ-NP-Za-km-z]{29,39}$`)
	hexAddress   = regexp.MustCompile(`^[0-9a-fA-F]{42}$`)
)

// LooksValid reports whether s has the shape of a base58 TRON address.
// It does not verify the checksum; use DecodeCheck for that.
func LooksValid(s string) bool {
	return shapePattern.MatchString(s)
}

// DecodeCheck decodes a Base58Check string and returns the payload without checksum.
func DecodeCheck(s string) ([]byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, ErrInvalidBase58
	}
	if len(raw) < checksumLen {
		return nil, ErrInvalidLength
	}
	payload, checksum := raw[:len(raw)-checksumLen], raw[len(raw)-checksumLen:]
	if !bytes.Equal(doubleSHA256(payload)[:checksumLen], checksum) {
		return nil, ErrInvalidChecksum
	}
	return payload, nil
}

// EncodeCheck is the inverse of DecodeCheck.
func EncodeCheck(payload []byte) string {
	buf := make([]byte, 0, len(payload)+checksumLen)
	buf = append(buf, payload...)
	buf = append(buf, doubleSHA256(payload)[:checksumLen]...)
	return base58.Encode(buf)
}

// ToHex converts a base58 address into its lowercase hex payload (41 + 20 bytes).
func ToHex(address string) (string, error) {
	payload, err := DecodeCheck(address)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(payload), nil
}

// FromHex converts a hex payload (optionally 0x-prefixed) into a base58 address.
func FromHex(h string) (string, error) {
	payload, err := hex.DecodeString(strings.TrimPrefix(h, "0x"))
	if err != nil {
		return "", err
	}
	return EncodeCheck(payload), nil
}

// Normalized holds both encodings of an address. Base58 is empty when the
// input was given in hex form.
type Normalized struct {
	Base58 string
	Hex    string
}

// Matches reports whether two normalized addresses refer to the same account.
func (n Normalized) Matches(other Normalized) bool {
	if n.Base58 != "" && n.Base58 == other.Base58 {
		return true
	}
	return n.Hex != "" && n.Hex == other.Hex
}

// Normalize accepts either a base58 address or a 42-char hex address and
// returns both forms when derivable.
func Normalize(addressLike string) (Normalized, bool) {
	value := strings.TrimSpace(addressLike)
	if value == "" {
		return Normalized{}, false
	}

	if strings.HasPrefix(value, "T") {
		h, err := ToHex(value)
		if err != nil {
			return Normalized{}, false
		}
		return Normalized{Base58: value, Hex: h}, true
	}

	h := strings.TrimPrefix(value, "0x")
	if hexAddress.MatchString(h) {
		return Normalized{Hex: strings.ToLower(h)}, true
	}
	return Normalized{}, false
}

// Network returns "TRON" when the hex payload carries the TRON prefix.
func Network(addressHex string) string {
	if strings.HasPrefix(strings.ToLower(addressHex), "41") {
		return "TRON"
	}
	return "unknown"
}

func doubleSHA256(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}
