// Package pricing implements the constant-product bonding curve used by the
// local quoting tools. Every function is pure: a trade never mutates its input
// curve and returns the post-trade state as a new value.
package pricing

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidInput = errors.New("invalid pricing input")
	ErrInvalidCurve = errors.New("invalid curve")
)

const (
	MaxFeeBps = 5000
	MinParts  = 2
	MaxParts  = 50
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Curve is the virtual reserve pair of a bonding curve. FeeBps is charged on
// the input amount before the constant-product step.
type Curve struct {
	VirtualBase  float64 `json:"virtualBase"`
	VirtualToken float64 `json:"virtualToken"`
	FeeBps       float64 `json:"feeBps"`
}

// Quote is the outcome of a single simulated trade.
type Quote struct {
	Side            Side    `json:"side"`
	AmountIn        float64 `json:"amountIn"`
	AmountOut       float64 `json:"amountOut"`
	AvgPrice        float64 `json:"avgPrice"`
	SpotPriceBefore float64 `json:"spotPriceBefore"`
	SpotPriceAfter  float64 `json:"spotPriceAfter"`
	PriceImpactPct  float64 `json:"priceImpactPct"`
	NextCurve       Curve   `json:"nextCurve"`
}

// NormalizeCurve validates c and returns it unchanged when valid.
func NormalizeCurve(c Curve) (Curve, error) {
	if !positive(c.VirtualBase) {
		return Curve{}, curveError("curve.virtualBase must be a number > 0")
	}
	if !positive(c.VirtualToken) {
		return Curve{}, curveError("curve.virtualToken must be a number > 0")
	}
	if math.IsNaN(c.FeeBps) || math.IsInf(c.FeeBps, 0) || c.FeeBps < 0 || c.FeeBps > MaxFeeBps {
		return Curve{}, curveError("feeBps must be in [0, 5000]")
	}
	return c, nil
}

// SpotPrice is base per token.
func SpotPrice(c Curve) (float64, error) {
	n, err := NormalizeCurve(c)
	if err != nil {
		return 0, err
	}
	return n.VirtualBase / n.VirtualToken, nil
}

// QuoteBuy spends amountIn of base and receives tokens.
func QuoteBuy(c Curve, amountIn float64) (Quote, error) {
	n, err := NormalizeCurve(c)
	if err != nil {
		return Quote{}, err
	}
	if !positive(amountIn) {
		return Quote{}, inputError("amountIn must be a number > 0")
	}

	in := feeAdjusted(amountIn, n.FeeBps)
	k := n.VirtualBase * n.VirtualToken
	nextBase := n.VirtualBase + in
	nextToken := k / nextBase
	out := n.VirtualToken - nextToken

	before := n.VirtualBase / n.VirtualToken
	after := nextBase / nextToken
	return finiteQuote(Quote{
		Side:            SideBuy,
		AmountIn:        amountIn,
		AmountOut:       out,
		AvgPrice:        amountIn / out,
		SpotPriceBefore: before,
		SpotPriceAfter:  after,
		PriceImpactPct:  (after - before) / before * 100,
		NextCurve:       Curve{VirtualBase: nextBase, VirtualToken: nextToken, FeeBps: n.FeeBps},
	})
}

// QuoteSell spends amountIn of tokens and receives base.
func QuoteSell(c Curve, amountIn float64) (Quote, error) {
	n, err := NormalizeCurve(c)
	if err != nil {
		return Quote{}, err
	}
	if !positive(amountIn) {
		return Quote{}, inputError("amountIn must be a number > 0")
	}

	in := feeAdjusted(amountIn, n.FeeBps)
	k := n.VirtualBase * n.VirtualToken
	nextToken := n.VirtualToken + in
	nextBase := k / nextToken
	out := n.VirtualBase - nextBase

	before := n.VirtualBase / n.VirtualToken
	after := nextBase / nextToken
	return finiteQuote(Quote{
		Side:            SideSell,
		AmountIn:        amountIn,
		AmountOut:       out,
		AvgPrice:        out / amountIn,
		SpotPriceBefore: before,
		SpotPriceAfter:  after,
		PriceImpactPct:  (after - before) / before * 100,
		NextCurve:       Curve{VirtualBase: nextBase, VirtualToken: nextToken, FeeBps: n.FeeBps},
	})
}

// QuoteSide dispatches on side.
func QuoteSide(c Curve, side Side, amountIn float64) (Quote, error) {
	switch side {
	case SideBuy:
		return QuoteBuy(c, amountIn)
	case SideSell:
		return QuoteSell(c, amountIn)
	default:
		return Quote{}, inputError("side must be 'buy' or 'sell'")
	}
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// finiteQuote rejects trades so large that the curve arithmetic overflows or
// collapses a reserve to zero.
func finiteQuote(q Quote) (Quote, error) {
	for _, v := range []float64{
		q.AmountOut, q.AvgPrice, q.SpotPriceAfter, q.PriceImpactPct,
		q.NextCurve.VirtualBase, q.NextCurve.VirtualToken,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Quote{}, inputError("amountIn is too large for this curve")
		}
	}
	if !positive(q.NextCurve.VirtualBase) || !positive(q.NextCurve.VirtualToken) {
		return Quote{}, inputError("amountIn is too large for this curve")
	}
	return q, nil
}

func feeAdjusted(amountIn, feeBps float64) float64 {
	return amountIn * (1 - feeBps/10000)
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func inputError(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

func curveError(msg string) error {
	return fmt.Errorf("%w: %w: %s", ErrInvalidInput, ErrInvalidCurve, msg)
}
