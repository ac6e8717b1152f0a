package pricing

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

// closeTo compares a and b with a tolerance relative to the larger of the
// operands and scale, the magnitude of the reserves they were derived from.
func closeTo(a, b, scale float64) bool {
	bound := math.Max(1, math.Max(scale, math.Max(math.Abs(a), math.Abs(b))))
	return math.Abs(a-b) <= tolerance*bound
}

// randomCurves returns a fixed-seed sample of valid curves and trade sizes.
func randomCurves(n int) []struct {
	curve  Curve
	amount float64
} {
	r := rand.New(rand.NewPCG(7, 42))
	out := make([]struct {
		curve  Curve
		amount float64
	}, 0, n)
	for i := 0; i < n; i++ {
		c := Curve{
			VirtualBase:  1 + r.Float64()*1e7,
			VirtualToken: 1 + r.Float64()*1e7,
			FeeBps:       float64(r.IntN(MaxFeeBps + 1)),
		}
		out = append(out, struct {
			curve  Curve
			amount float64
		}{curve: c, amount: 0.001 + r.Float64()*c.VirtualBase})
	}
	return out
}

func TestQuoteBuy_PresetA(t *testing.T) {
	t.Parallel()

	c, ok := Preset("A")
	require.True(t, ok)

	q, err := QuoteSide(c, SideBuy, 1000)
	require.NoError(t, err)

	assert.Equal(t, SideBuy, q.Side)
	assert.Greater(t, q.AmountOut, 0.0)
	assert.Greater(t, q.PriceImpactPct, 0.0)
	assert.InDelta(t, 0.2, q.SpotPriceBefore, 1e-12)
	assert.InDelta(t, 1000/q.AmountOut, q.AvgPrice, 1e-12)

	// 1000 * 0.997 = 997 enters the base reserve.
	assert.InDelta(t, 100997, q.NextCurve.VirtualBase, 1e-9)
	assert.Equal(t, 30.0, q.NextCurve.FeeBps)
}

func TestQuote_PreservesConstantProduct(t *testing.T) {
	t.Parallel()

	for _, tc := range randomCurves(200) {
		k := tc.curve.VirtualBase * tc.curve.VirtualToken

		buy, err := QuoteBuy(tc.curve, tc.amount)
		require.NoError(t, err)
		if !closeTo(k, buy.NextCurve.VirtualBase*buy.NextCurve.VirtualToken, k) {
			t.Fatalf("buy broke k for %+v: %v vs %v", tc.curve, k, buy.NextCurve.VirtualBase*buy.NextCurve.VirtualToken)
		}
		if buy.AmountOut <= 0 || buy.AmountOut >= tc.curve.VirtualToken {
			t.Fatalf("buy amountOut = %v; want in (0, %v)", buy.AmountOut, tc.curve.VirtualToken)
		}

		sell, err := QuoteSell(tc.curve, tc.amount)
		require.NoError(t, err)
		if !closeTo(k, sell.NextCurve.VirtualBase*sell.NextCurve.VirtualToken, k) {
			t.Fatalf("sell broke k for %+v", tc.curve)
		}
		if sell.AmountOut <= 0 || sell.AmountOut >= tc.curve.VirtualBase {
			t.Fatalf("sell amountOut = %v; want in (0, %v)", sell.AmountOut, tc.curve.VirtualBase)
		}
		if sell.PriceImpactPct >= 0 {
			t.Fatalf("sell impact = %v; want negative", sell.PriceImpactPct)
		}
	}
}

func TestQuote_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	c := Curve{VirtualBase: 10, VirtualToken: 20, FeeBps: 0}
	_, err := QuoteBuy(c, 5)
	require.NoError(t, err)
	assert.Equal(t, Curve{VirtualBase: 10, VirtualToken: 20, FeeBps: 0}, c)
}

func TestQuoteBuy_RejectsOverflowingAmount(t *testing.T) {
	t.Parallel()

	c, _ := Preset("A")
	_, err := QuoteBuy(c, 1e200)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.NotErrorIs(t, err, ErrInvalidCurve)

	_, err = QuoteSide(c, SideBuy, math.MaxFloat64)
	require.ErrorIs(t, err, ErrInvalidInput)

	// Selling a huge amount drains the base reserve but stays finite.
	sell, err := QuoteSell(c, 1e200)
	require.NoError(t, err)
	assert.False(t, math.IsInf(sell.PriceImpactPct, 0) || math.IsNaN(sell.PriceImpactPct))
	assert.Less(t, sell.AmountOut, c.VirtualBase+1)
}

func TestQuote_BuyThenSellIsLossy(t *testing.T) {
	t.Parallel()

	for _, tc := range randomCurves(200) {
		buy, err := QuoteBuy(tc.curve, tc.amount)
		require.NoError(t, err)

		sell, err := QuoteSell(buy.NextCurve, buy.AmountOut)
		require.NoError(t, err)

		if sell.AmountOut > tc.amount && !closeTo(sell.AmountOut, tc.amount, tc.curve.VirtualBase) {
			t.Fatalf("round trip gained base: in=%v back=%v curve=%+v", tc.amount, sell.AmountOut, tc.curve)
		}
	}
}

func TestQuote_RoundTripWithFeeLosesStrictly(t *testing.T) {
	t.Parallel()

	c := Curve{VirtualBase: 100000, VirtualToken: 500000, FeeBps: 30}
	buy, err := QuoteBuy(c, 1000)
	require.NoError(t, err)
	sell, err := QuoteSell(buy.NextCurve, buy.AmountOut)
	require.NoError(t, err)

	assert.Less(t, sell.AmountOut, 1000.0)
}

func TestNormalizeCurve_Boundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		curve Curve
		ok    bool
	}{
		{name: "fee zero", curve: Curve{VirtualBase: 1, VirtualToken: 1, FeeBps: 0}, ok: true},
		{name: "fee max", curve: Curve{VirtualBase: 1, VirtualToken: 1, FeeBps: 5000}, ok: true},
		{name: "fee above max", curve: Curve{VirtualBase: 1, VirtualToken: 1, FeeBps: 5001}},
		{name: "negative fee", curve: Curve{VirtualBase: 1, VirtualToken: 1, FeeBps: -1}},
		{name: "zero base", curve: Curve{VirtualBase: 0, VirtualToken: 1}},
		{name: "negative token", curve: Curve{VirtualBase: 1, VirtualToken: -1}},
		{name: "nan base", curve: Curve{VirtualBase: math.NaN(), VirtualToken: 1}},
		{name: "inf token", curve: Curve{VirtualBase: 1, VirtualToken: math.Inf(1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NormalizeCurve(tc.curve)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCurve))
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestQuoteSide_RejectsBadInput(t *testing.T) {
	t.Parallel()

	c := Curve{VirtualBase: 1, VirtualToken: 1}

	_, err := QuoteSide(c, Side("hold"), 1)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.NotErrorIs(t, err, ErrInvalidCurve)

	for _, amount := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := QuoteSide(c, SideBuy, amount)
		require.ErrorIs(t, err, ErrInvalidInput, "amount %v", amount)
	}
}

func TestPreset(t *testing.T) {
	t.Parallel()

	b, ok := Preset("B")
	require.True(t, ok)
	assert.Equal(t, Curve{VirtualBase: 250000, VirtualToken: 350000, FeeBps: 50}, b)

	_, ok = Preset("C")
	assert.False(t, ok)
	assert.Equal(t, []string{"A", "B"}, PresetNames())
}
