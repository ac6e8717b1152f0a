package tool

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/domain/pricing"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/pkg/tronaddr"
)

const (
	nextStepCompareSplit = "Call rp_split_plan to compare single vs split."
	nextStepSplitTooWide = "Current split exceeds maxSlippageBps; increase parts or reduce totalAmountIn."
	nextStepSplitOK      = "Plan is within maxSlippageBps threshold."

	warnHasSignature  = "transaction carries a signature; it is not unsigned"
	warnBadOwner      = "owner_address is not a valid address"
	warnBadTo         = "to_address is not a valid address"
	warnNegativeValue = "amount must not be negative"
	warnExpired       = "transaction has expired"
)

// ─── rp_quote ────────────────────────────────────────────────────────────────

type QuoteExecutor struct{ spec Spec }

func NewQuoteExecutor(spec Spec) ToolExecutor {
	return &QuoteExecutor{spec: spec}
}

type quoteRequest struct {
	curve    pricing.Curve
	side     pricing.Side
	amountIn float64
}

type quoteFacts struct {
	AmountIn        float64 `json:"amountIn"`
	AmountOut       float64 `json:"amountOut"`
	AvgPrice        float64 `json:"avgPrice"`
	SpotPriceBefore float64 `json:"spotPriceBefore"`
	SpotPriceAfter  float64 `json:"spotPriceAfter"`
	PriceImpactPct  float64 `json:"priceImpactPct"`
}

type quoteReport struct {
	Summary   string        `json:"summary"`
	KeyFacts  quoteFacts    `json:"key_facts"`
	NextSteps []string      `json:"next_steps"`
	Raw       pricing.Quote `json:"raw"`
}

func (e *QuoteExecutor) Spec() Spec { return e.spec }

func (e *QuoteExecutor) Validate(args map[string]any) *Failure {
	_, f := parseQuoteRequest(args)
	return f
}

func (e *QuoteExecutor) Execute(_ context.Context, args map[string]any) (*Output, error) {
	req, f := parseQuoteRequest(args)
	if f != nil {
		return nil, f
	}
	q, err := pricing.QuoteSide(req.curve, req.side, req.amountIn)
	if err != nil {
		return nil, pricingFailure(err)
	}

	summary := Msg(msgQuote, string(req.side), fixed(q.AmountIn, 6), fixed(q.AmountOut, 6), fixed(q.PriceImpactPct, 4))
	return &Output{
		Data: quoteReport{
			Summary: fmt.Sprintf(summary.Key, summary.Args...),
			KeyFacts: quoteFacts{
				AmountIn:        q.AmountIn,
				AmountOut:       q.AmountOut,
				AvgPrice:        q.AvgPrice,
				SpotPriceBefore: q.SpotPriceBefore,
				SpotPriceAfter:  q.SpotPriceAfter,
				PriceImpactPct:  q.PriceImpactPct,
			},
			NextSteps: []string{nextStepCompareSplit},
			Raw:       q,
		},
		Summary: summary,
	}, nil
}

func parseQuoteRequest(args map[string]any) (quoteRequest, *Failure) {
	curve, f := curveArg(args)
	if f != nil {
		return quoteRequest{}, f
	}
	side, f := sideArg(args)
	if f != nil {
		return quoteRequest{}, f
	}
	amount, ok := asFloat(args["amountIn"])
	if !ok || !finitePositive(amount) {
		return quoteRequest{}, Invalid(CodeInvalidInput, "amountIn must be a number > 0")
	}
	return quoteRequest{curve: curve, side: side, amountIn: amount}, nil
}

// ─── rp_split_plan ───────────────────────────────────────────────────────────

type SplitPlanExecutor struct{ spec Spec }

func NewSplitPlanExecutor(spec Spec) ToolExecutor {
	return &SplitPlanExecutor{spec: spec}
}

type splitRequest struct {
	curve          pricing.Curve
	side           pricing.Side
	total          float64
	parts          int
	maxSlippageBps int
}

type splitComparison struct {
	SingleTradeImpactPct float64 `json:"singleTradeImpactPct"`
	SplitAvgImpactPct    float64 `json:"splitAvgImpactPct"`
	SplitTotalOut        float64 `json:"splitTotalOut"`
	SingleTotalOut       float64 `json:"singleTotalOut"`
}

type splitReport struct {
	Summary    string                  `json:"summary"`
	Plan       []pricing.SplitPlanStep `json:"plan"`
	Comparison splitComparison         `json:"comparison"`
	NextSteps  []string                `json:"next_steps"`
}

func (e *SplitPlanExecutor) Spec() Spec { return e.spec }

func (e *SplitPlanExecutor) Validate(args map[string]any) *Failure {
	_, f := parseSplitRequest(args)
	return f
}

func (e *SplitPlanExecutor) Execute(_ context.Context, args map[string]any) (*Output, error) {
	req, f := parseSplitRequest(args)
	if f != nil {
		return nil, f
	}
	res, err := pricing.SplitPlan(req.curve, req.side, req.total, req.parts)
	if err != nil {
		return nil, pricingFailure(err)
	}

	next := nextStepSplitOK
	if res.MaxTrancheImpactPct() > float64(req.maxSlippageBps)/100 {
		next = nextStepSplitTooWide
	}

	summary := Msg(msgSplitPlan, strconv.Itoa(req.parts), fixed(res.Single.PriceImpactPct, 4), fixed(res.SplitAvgImpactPct, 4))
	return &Output{
		Data: splitReport{
			Summary: fmt.Sprintf(summary.Key, summary.Args...),
			Plan:    res.Plan,
			Comparison: splitComparison{
				SingleTradeImpactPct: res.Single.PriceImpactPct,
				SplitAvgImpactPct:    res.SplitAvgImpactPct,
				SplitTotalOut:        res.SplitTotalOut,
				SingleTotalOut:       res.Single.AmountOut,
			},
			NextSteps: []string{next},
		},
		Summary: summary,
	}, nil
}

func parseSplitRequest(args map[string]any) (splitRequest, *Failure) {
	curve, f := curveArg(args)
	if f != nil {
		return splitRequest{}, f
	}
	side, f := sideArg(args)
	if f != nil {
		return splitRequest{}, f
	}
	total, ok := asFloat(args["totalAmountIn"])
	if !ok || !finitePositive(total) {
		return splitRequest{}, Invalid(CodeInvalidInput, "totalAmountIn must be a number > 0")
	}
	parts, ok := intArg(args["parts"], pricing.MinParts, pricing.MaxParts)
	if !ok {
		return splitRequest{}, Invalid(CodeInvalidInput, "parts must be an integer in [2, 50]")
	}
	bps, ok := intArg(args["maxSlippageBps"], 0, pricing.MaxFeeBps)
	if !ok {
		return splitRequest{}, Invalid(CodeInvalidInput, "maxSlippageBps must be an integer in [0, 5000]")
	}
	return splitRequest{curve: curve, side: side, total: total, parts: parts, maxSlippageBps: bps}, nil
}

// ─── verify_unsigned_tx ──────────────────────────────────────────────────────

type VerifyUnsignedTxExecutor struct {
	spec  Spec
	clock Clock
}

func NewVerifyUnsignedTxExecutor(spec Spec, clock Clock) ToolExecutor {
	if clock == nil {
		clock = time.Now
	}
	return &VerifyUnsignedTxExecutor{spec: spec, clock: clock}
}

type unsignedTxReport struct {
	Valid             bool     `json:"valid"`
	TxID              string   `json:"txid"`
	IsUnsigned        bool     `json:"isUnsigned"`
	HasSignature      bool     `json:"hasSignature"`
	ContractType      *string  `json:"contractType"`
	OwnerAddress      any      `json:"ownerAddress"`
	OwnerAddressValid *bool    `json:"ownerAddressValid"`
	ToAddress         any      `json:"toAddress"`
	ToAddressValid    *bool    `json:"toAddressValid"`
	AmountSun         *string  `json:"amountSun"`
	AmountTrx         *string  `json:"amountTrx"`
	Expiration        *int64   `json:"expiration"`
	Expired           *bool    `json:"expired"`
	Warnings          []string `json:"warnings"`
}

func (e *VerifyUnsignedTxExecutor) Spec() Spec { return e.spec }

func (e *VerifyUnsignedTxExecutor) Validate(args map[string]any) *Failure {
	_, _, f := unsignedTxArgs(args)
	return f
}

func (e *VerifyUnsignedTxExecutor) Execute(_ context.Context, args map[string]any) (*Output, error) {
	tx, rawHex, f := unsignedTxArgs(args)
	if f != nil {
		return nil, f
	}
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, Invalid(CodeInvalidRawDataHex, "rawDataHex must be even-length hex string")
	}
	sum := sha256.Sum256(raw)

	report := unsignedTxReport{TxID: hex.EncodeToString(sum[:]), Warnings: []string{}}

	if sigs, ok := tx["signature"].([]any); ok && len(sigs) > 0 {
		report.HasSignature = true
		report.Warnings = append(report.Warnings, warnHasSignature)
	}
	report.IsUnsigned = !report.HasSignature

	contract := lookup(tx, "raw_data", "contract", 0)
	if typ, ok := lookup(contract, "type").(string); ok {
		report.ContractType = &typ
	}
	value := lookup(contract, "parameter", "value")

	ownerOK := true
	if owner := lookup(value, "owner_address"); present(owner) {
		ownerOK = addressLike(owner)
		report.OwnerAddress, report.OwnerAddressValid = owner, &ownerOK
		if !ownerOK {
			report.Warnings = append(report.Warnings, warnBadOwner)
		}
	}
	toOK := true
	if to := lookup(value, "to_address"); present(to) {
		toOK = addressLike(to)
		report.ToAddress, report.ToAddressValid = to, &toOK
		if !toOK {
			report.Warnings = append(report.Warnings, warnBadTo)
		}
	}

	if amount := lookup(value, "amount"); amount != nil {
		sun := scalarText(amount)
		trx := formatTokenAmount(sun, trxDecimals)
		report.AmountSun, report.AmountTrx = &sun, &trx
		if n, err := strconv.ParseFloat(sun, 64); err == nil && n < 0 {
			report.Warnings = append(report.Warnings, warnNegativeValue)
		}
	}

	if exp, ok := asFloat(lookup(tx, "raw_data", "expiration")); ok && !math.IsInf(exp, 0) && !math.IsNaN(exp) {
		ms := int64(exp)
		expired := exp <= float64(e.clock().UnixMilli())
		report.Expiration, report.Expired = &ms, &expired
		if expired {
			report.Warnings = append(report.Warnings, warnExpired)
		}
	}

	report.Valid = !report.HasSignature && ownerOK && toOK &&
		(report.Expired == nil || !*report.Expired) && report.TxID != ""

	summary := Msg(msgUnsignedValid)
	if !report.Valid {
		summary = Msg(msgUnsignedInvalid, strconv.Itoa(max(len(report.Warnings), 1)))
	}
	return &Output{Data: report, Summary: summary}, nil
}

// unsignedTxArgs returns the optional transaction object and the normalized
// raw_data hex. An explicit rawDataHex wins over unsignedTx.raw_data_hex.
func unsignedTxArgs(args map[string]any) (map[string]any, string, *Failure) {
	var tx map[string]any
	if v, ok := args["unsignedTx"]; ok {
		obj, isObj := v.(map[string]any)
		if !isObj {
			return nil, "", Invalid(CodeInvalidUnsignedTx, "unsignedTx must be an object")
		}
		tx = obj
	}

	input, hasArg := args["rawDataHex"]
	if hasArg {
		if _, ok := input.(string); !ok {
			return nil, "", Invalid(CodeInvalidRawDataHex, "rawDataHex must be a string")
		}
	} else {
		input = tx["raw_data_hex"]
	}
	s, ok := input.(string)
	if !ok {
		return nil, "", Invalid(CodeMissingRawDataHex, "Provide rawDataHex or unsignedTx.raw_data_hex")
	}
	normalized, ok := normalizeHex(s)
	if !ok {
		return nil, "", Invalid(CodeInvalidRawDataHex, "rawDataHex must be even-length hex string")
	}
	return tx, normalized, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// curveArg resolves an explicit curve object, falling back to a named preset.
func curveArg(args map[string]any) (pricing.Curve, *Failure) {
	if obj, ok := args["curve"].(map[string]any); ok {
		c := pricing.Curve{
			VirtualBase:  numberOrNaN(obj["virtualBase"]),
			VirtualToken: numberOrNaN(obj["virtualToken"]),
		}
		if fee, ok := obj["feeBps"]; ok && fee != nil {
			c.FeeBps = numberOrNaN(fee)
		}
		n, err := pricing.NormalizeCurve(c)
		if err != nil {
			return pricing.Curve{}, pricingFailure(err)
		}
		return n, nil
	}
	if name, ok := stringArg(args, "preset"); ok {
		if c, ok := pricing.Preset(name); ok {
			return c, nil
		}
	}
	return pricing.Curve{}, Invalid(CodeInvalidCurve, "Provide curve or preset(A/B)")
}

func sideArg(args map[string]any) (pricing.Side, *Failure) {
	s, _ := stringArg(args, "side")
	switch side := pricing.Side(s); side {
	case pricing.SideBuy, pricing.SideSell:
		return side, nil
	default:
		return "", Invalid(CodeInvalidInput, "side must be 'buy' or 'sell'")
	}
}

// pricingFailure maps pricing errors onto tool codes, keeping only the
// human-readable tail of the wrapped message.
func pricingFailure(err error) *Failure {
	msg := err.Error()
	msg = strings.TrimPrefix(msg, pricing.ErrInvalidInput.Error()+": ")
	msg = strings.TrimPrefix(msg, pricing.ErrInvalidCurve.Error()+": ")
	code := CodeInvalidInput
	if errors.Is(err, pricing.ErrInvalidCurve) {
		code = CodeInvalidCurve
	}
	return &Failure{Code: code, Message: msg, Status: http.StatusBadRequest, Err: err}
}

func intArg(v any, lo, hi int) (int, bool) {
	n, ok := asFloat(v)
	if !ok || math.IsNaN(n) || n != math.Trunc(n) || n < float64(lo) || n > float64(hi) {
		return 0, false
	}
	return int(n), true
}

func numberOrNaN(v any) float64 {
	n, ok := asFloat(v)
	if !ok {
		return math.NaN()
	}
	return n
}

func finitePositive(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0) && n > 0
}

func present(v any) bool {
	if v == nil {
		return false
	}
	s, isString := v.(string)
	return !isString || s != ""
}

func addressLike(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, ok = tronaddr.Normalize(s)
	return ok
}

// scalarText renders a decoded JSON scalar the way it appeared on the wire.
func scalarText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if n, ok := asFloat(v); ok {
		return plainNumber(n)
	}
	return fmt.Sprint(v)
}
