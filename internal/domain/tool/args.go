package tool

import (
	"encoding/json"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	txidPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
	hexPattern  = regexp.MustCompile(`^[0-9a-fA-F]+$`)
)

// asFloat accepts the numeric shapes args can carry: float64 from
// encoding/json, json.Number, and plain Go integers from in-process callers.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func stringArg(args map[string]any, key string) (string, bool) {
	s, ok := args[key].(string)
	return s, ok
}

func isValidTxID(v any) bool {
	s, ok := v.(string)
	return ok && txidPattern.MatchString(s)
}

// normalizeHex strips an optional 0x prefix and lowercases. It rejects empty,
// odd-length and non-hex input.
func normalizeHex(s string) (string, bool) {
	raw := strings.TrimPrefix(s, "0x")
	if raw == "" || len(raw)%2 != 0 || !hexPattern.MatchString(raw) {
		return "", false
	}
	return strings.ToLower(raw), true
}

// formatTokenAmount renders an integer amount of base units with the given
// decimals, trimming trailing zeros. Inputs that already contain a decimal
// point are returned unchanged; unparsable input renders as "0".
func formatTokenAmount(raw string, decimals int) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "0"
	}
	if strings.Contains(raw, ".") {
		return raw
	}

	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return "0"
	}
	if decimals == 0 {
		return n.String()
	}

	neg := n.Sign() < 0
	abs := new(big.Int).Abs(n)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	intPart, fracPart := new(big.Int).QuoRem(abs, scale, new(big.Int))

	out := intPart.String()
	frac := strings.TrimRight(leftPad(fracPart.String(), decimals), "0")
	if frac != "" {
		out += "." + frac
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

// hexWordToDecimal parses a big-endian hex word such as a constant_result.
func hexWordToDecimal(word string) string {
	word = strings.TrimPrefix(strings.TrimSpace(word), "0x")
	if word == "" {
		return "0"
	}
	n, ok := new(big.Int).SetString(word, 16)
	if !ok {
		return "0"
	}
	return n.String()
}

// fixed2 renders a decimal string with two fractional digits for summaries.
func fixed2(decimal string) string {
	f, err := strconv.ParseFloat(decimal, 64)
	if err != nil || math.IsNaN(f) {
		return "0.00"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// fixed renders f with n fractional digits.
func fixed(f float64, n int) string {
	return strconv.FormatFloat(f, 'f', n, 64)
}

// plainNumber renders a JSON number without exponent or trailing zeros.
func plainNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// isoMillis formats unix milliseconds like 2024-01-02T03:04:05.000Z.
func isoMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// lookup walks nested objects and arrays: lookup(tx, "raw_data", "contract", 0).
func lookup(v any, path ...any) any {
	cur := v
	for _, step := range path {
		switch key := step.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			cur = m[key]
		case int:
			arr, ok := cur.([]any)
			if !ok || key < 0 || key >= len(arr) {
				return nil
			}
			cur = arr[key]
		default:
			return nil
		}
	}
	return cur
}
