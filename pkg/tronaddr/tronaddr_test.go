package tronaddr

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func samplePayload() []byte {
	payload := make([]byte, 21)
	payload[0] = PrefixByte
	for i := 1; i < len(payload); i++ {
		payload[i] = byte(i * 7)
	}
	return payload
}

func TestEncodeDecodeCheck_RoundTrip(t *testing.T) {
	t.Parallel()

	payload := samplePayload()
	addr := EncodeCheck(payload)

	if !strings.HasPrefix(addr, "T") {
		t.Fatalf("EncodeCheck = %q; want leading T", addr)
	}
	if !LooksValid(addr) {
		t.Fatalf("LooksValid(%q) = false; want true", addr)
	}

	got, err := DecodeCheck(addr)
	if err != nil {
		t.Fatalf("DecodeCheck returned error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("DecodeCheck = %x; want %x", got, payload)
	}
}

func TestDecodeCheck_Errors(t *testing.T) {
	t.Parallel()

	addr := EncodeCheck(samplePayload())
	last := addr[len(addr)-1]
	replacement := byte('2')
	if last == replacement {
		replacement = '3'
	}
	tampered := addr[:len(addr)-1] + string(replacement)

	cases := []struct {
		name  string
		input string
		want  error
	}{
		{name: "bad alphabet", input: "T0OIl", want: ErrInvalidBase58},
		{name: "too short", input: "2", want: ErrInvalidLength},
		{name: "checksum mismatch", input: tampered, want: ErrInvalidChecksum},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeCheck(tc.input)
			if !errors.Is(err, tc.want) {
				t.Fatalf("DecodeCheck(%q) error = %v; want %v", tc.input, err, tc.want)
			}
		})
	}
}

func TestLooksValid(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t":        true,
		"T" + strings.Repeat("1", 29):               true,
		"T" + strings.Repeat("1", 28):               false,
		"T" + strings.Repeat("1", 40):               false,
		"AR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t":        false,
		"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6O":        false,
		"":                                          false,
		"410000000000000000000000000000000000000000": false,
	}
	for in, want := range cases {
		if got := LooksValid(in); got != want {
			t.Fatalf("LooksValid(%q) = %v; want %v", in, got, want)
		}
	}
}

func TestToHexAndFromHex(t *testing.T) {
	t.Parallel()

	payload := samplePayload()
	addr := EncodeCheck(payload)

	h, err := ToHex(addr)
	if err != nil {
		t.Fatalf("ToHex returned error: %v", err)
	}
	if len(h) != 42 || !strings.HasPrefix(h, "41") {
		t.Fatalf("ToHex = %q; want 42 hex chars with 41 prefix", h)
	}
	if Network(h) != "TRON" {
		t.Fatalf("Network(%q) = %q; want TRON", h, Network(h))
	}

	back, err := FromHex("0x" + h)
	if err != nil {
		t.Fatalf("FromHex returned error: %v", err)
	}
	if back != addr {
		t.Fatalf("FromHex = %q; want %q", back, addr)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	addr := EncodeCheck(samplePayload())
	h, _ := ToHex(addr)

	fromBase58, ok := Normalize(" " + addr + " ")
	if !ok || fromBase58.Base58 != addr || fromBase58.Hex != h {
		t.Fatalf("Normalize(base58) = %+v, %v", fromBase58, ok)
	}

	fromHex, ok := Normalize("0x" + strings.ToUpper(h))
	if !ok || fromHex.Base58 != "" || fromHex.Hex != h {
		t.Fatalf("Normalize(hex) = %+v, %v", fromHex, ok)
	}
	if !fromBase58.Matches(fromHex) {
		t.Fatalf("expected base58 and hex forms to match")
	}

	if _, ok := Normalize("not-an-address"); ok {
		t.Fatalf("Normalize accepted garbage input")
	}
	if _, ok := Normalize(""); ok {
		t.Fatalf("Normalize accepted empty input")
	}
}
