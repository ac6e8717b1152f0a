package tool

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/infra/tron"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/pkg/tronaddr"
)

const (
	trxDecimals  = 6
	usdtDecimals = 6

	energyFeeKey      = "getEnergyFee"
	transactionFeeKey = "getTransactionFee"
	bandwidthPriceKey = "getBandwidthPrice"

	riskHintNone       = "no obvious risk found"
	riskHintBadPrefix  = "unexpected address network prefix"
	riskHintBadBase58  = "address failed Base58Check validation"
	invalidAddressText = "address must be a base58 TRON address starting with T (30-40 chars)"
)

// ─── get_network_status ──────────────────────────────────────────────────────

type NetworkStatusExecutor struct {
	spec Spec
	grid GridAPI
}

func NewNetworkStatusExecutor(spec Spec, grid GridAPI) ToolExecutor {
	return &NetworkStatusExecutor{spec: spec, grid: grid}
}

type latestBlock struct {
	Number    *int64 `json:"number"`
	Timestamp *int64 `json:"timestamp"`
}

type gasParameters struct {
	EnergyFee      *int64 `json:"energyFee"`
	TransactionFee *int64 `json:"transactionFee"`
	BandwidthPrice *int64 `json:"bandwidthPrice"`
}

type networkStatus struct {
	LatestBlock latestBlock   `json:"latestBlock"`
	Gas         gasParameters `json:"gas"`
	Health      string        `json:"health"`
}

func (e *NetworkStatusExecutor) Spec() Spec { return e.spec }

func (e *NetworkStatusExecutor) Validate(map[string]any) *Failure { return nil }

func (e *NetworkStatusExecutor) Execute(ctx context.Context, _ map[string]any) (*Output, error) {
	var (
		head   tron.BlockHead
		params tron.ChainParameters
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		head, err = e.grid.NowBlock(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		params, err = e.grid.ChainParameters(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Output{
		Data: networkStatus{
			LatestBlock: latestBlock{Number: head.Number, Timestamp: head.Timestamp},
			Gas: gasParameters{
				EnergyFee:      params.Value(energyFeeKey),
				TransactionFee: params.Value(transactionFeeKey),
				BandwidthPrice: params.Value(bandwidthPriceKey),
			},
			Health: "ok",
		},
		Summary: Msg(msgNetworkOK),
	}, nil
}

// ─── get_usdt_balance ────────────────────────────────────────────────────────

type USDTBalanceExecutor struct {
	spec     Spec
	grid     GridAPI
	contract string
}

func NewUSDTBalanceExecutor(spec Spec, grid GridAPI, contract string) ToolExecutor {
	return &USDTBalanceExecutor{spec: spec, grid: grid, contract: contract}
}

type trxBalance struct {
	Balance    string `json:"balance"`
	BalanceSun string `json:"balanceSun"`
}

type tokenBalance struct {
	Balance    string `json:"balance"`
	BalanceRaw string `json:"balanceRaw"`
	Decimals   int    `json:"decimals"`
	Contract   string `json:"contract"`
}

type addressMeta struct {
	Base58Valid bool    `json:"base58Valid"`
	AddressHex  *string `json:"addressHex"`
	Network     string  `json:"network"`
	RiskHint    string  `json:"riskHint"`
}

type balanceReport struct {
	Address     string       `json:"address"`
	TRX         trxBalance   `json:"trx"`
	USDT        tokenBalance `json:"usdt"`
	AddressMeta addressMeta  `json:"addressMeta"`
}

func (e *USDTBalanceExecutor) Spec() Spec { return e.spec }

func (e *USDTBalanceExecutor) Validate(args map[string]any) *Failure {
	return requireAddress(args, "address")
}

func (e *USDTBalanceExecutor) Execute(ctx context.Context, args map[string]any) (*Output, error) {
	address, _ := stringArg(args, "address")

	var (
		acct tron.Account
		word string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		acct, err = e.grid.Account(gctx, address)
		return err
	})
	g.Go(func() error {
		var err error
		word, err = e.grid.TRC20Balance(gctx, address, e.contract)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := newBalanceReport(address, e.contract, acct, word)
	return &Output{Data: report, Summary: balanceSummary(report)}, nil
}

// ─── get_account_profile ─────────────────────────────────────────────────────

type AccountProfileExecutor struct {
	spec     Spec
	grid     GridAPI
	contract string
}

func NewAccountProfileExecutor(spec Spec, grid GridAPI, contract string) ToolExecutor {
	return &AccountProfileExecutor{spec: spec, grid: grid, contract: contract}
}

type activitySummary struct {
	RecentCount   int     `json:"recentCount"`
	Inbound       int     `json:"inbound"`
	Outbound      int     `json:"outbound"`
	LastTimestamp *int64  `json:"lastTimestamp"`
	LastISO       *string `json:"lastIso"`
}

type profileReport struct {
	balanceReport
	Activity activitySummary `json:"activity"`
}

func (e *AccountProfileExecutor) Spec() Spec { return e.spec }

func (e *AccountProfileExecutor) Validate(args map[string]any) *Failure {
	return requireAddress(args, "address")
}

// Execute reads balances and recent history concurrently. Any failed read
// fails the whole profile.
func (e *AccountProfileExecutor) Execute(ctx context.Context, args map[string]any) (*Output, error) {
	address, _ := stringArg(args, "address")

	var (
		acct tron.Account
		word string
		txs  []tron.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		acct, err = e.grid.Account(gctx, address)
		return err
	})
	g.Go(func() error {
		var err error
		word, err = e.grid.TRC20Balance(gctx, address, e.contract)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = e.grid.AccountTransactions(gctx, address)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	activity := summarizeActivity(txs, address)
	var last any = Msg(msgUnknownTime)
	if activity.LastISO != nil {
		last = *activity.LastISO
	}

	return &Output{
		Data: profileReport{
			balanceReport: newBalanceReport(address, e.contract, acct, word),
			Activity:      activity,
		},
		Summary: Msg(msgProfile,
			strconv.Itoa(activity.RecentCount),
			strconv.Itoa(activity.Inbound),
			strconv.Itoa(activity.Outbound),
			last,
		),
	}, nil
}

// summarizeActivity counts transfers touching address. A transaction from
// the address to itself counts both ways.
func summarizeActivity(txs []tron.Transaction, address string) activitySummary {
	out := activitySummary{RecentCount: len(txs)}
	target, targetOK := tronaddr.Normalize(address)

	for _, tx := range txs {
		ts := tx.BlockTimestamp
		if ts == 0 {
			ts = tx.RawData.Timestamp
		}
		if out.LastTimestamp == nil && ts != 0 {
			v := ts
			out.LastTimestamp = &v
		}

		contract, ok := tx.FirstContract()
		if !ok || !targetOK {
			continue
		}
		if owner, ok := tronaddr.Normalize(contract.Parameter.Value.OwnerAddress); ok && owner.Matches(target) {
			out.Outbound++
		}
		if to, ok := tronaddr.Normalize(contract.Parameter.Value.ToAddress); ok && to.Matches(target) {
			out.Inbound++
		}
	}

	if out.LastTimestamp != nil {
		iso := isoMillis(*out.LastTimestamp)
		out.LastISO = &iso
	}
	return out
}

// ─── get_tx_status ───────────────────────────────────────────────────────────

type TxStatusExecutor struct {
	spec Spec
	scan ScanAPI
}

func NewTxStatusExecutor(spec Spec, scan ScanAPI) ToolExecutor {
	return &TxStatusExecutor{spec: spec, scan: scan}
}

type txStatus struct {
	TxID      string `json:"txid"`
	Status    string `json:"status"`
	Block     *int64 `json:"block"`
	Timestamp *int64 `json:"timestamp"`
}

func (e *TxStatusExecutor) Spec() Spec { return e.spec }

func (e *TxStatusExecutor) Validate(args map[string]any) *Failure {
	if !isValidTxID(args["txid"]) {
		return Invalid(CodeInvalidTxID, "txid must be 64 hex chars")
	}
	return nil
}

func (e *TxStatusExecutor) Execute(ctx context.Context, args map[string]any) (*Output, error) {
	txid, _ := stringArg(args, "txid")
	info, err := e.scan.TransactionInfo(ctx, txid)
	if err != nil {
		return nil, err
	}

	data := txStatus{TxID: txid, Status: info.Status(), Block: info.BlockRef(), Timestamp: info.Time()}
	summary := Msg(msgTxPending)
	if data.Status != tron.TxPending {
		var when any = Msg(msgUnknownTime)
		if data.Timestamp != nil {
			when = isoMillis(*data.Timestamp)
		}
		summary = Msg(msgTxConfirmed, when)
	}
	return &Output{Data: data, Summary: summary}, nil
}

// ─── create_unsigned_transfer ────────────────────────────────────────────────

type CreateTransferExecutor struct {
	spec Spec
	grid GridAPI
}

func NewCreateTransferExecutor(spec Spec, grid GridAPI) ToolExecutor {
	return &CreateTransferExecutor{spec: spec, grid: grid}
}

type transferCreated struct {
	Transaction json.RawMessage `json:"transaction"`
}

func (e *CreateTransferExecutor) Spec() Spec { return e.spec }

func (e *CreateTransferExecutor) Validate(args map[string]any) *Failure {
	from, _ := stringArg(args, "from")
	to, _ := stringArg(args, "to")
	if !tronaddr.LooksValid(from) || !tronaddr.LooksValid(to) {
		return Invalid(CodeInvalidAddress, "from/to must be valid TRON addresses")
	}
	if _, ok := amountSunArg(args); !ok {
		return Invalid(CodeInvalidAmount, "amountSun must be a positive integer")
	}
	return nil
}

func (e *CreateTransferExecutor) Execute(ctx context.Context, args map[string]any) (*Output, error) {
	from, _ := stringArg(args, "from")
	to, _ := stringArg(args, "to")
	amount, _ := amountSunArg(args)

	res, err := e.grid.CreateTransfer(ctx, from, to, amount)
	if err != nil {
		return nil, err
	}
	if res.Error != "" {
		summary := Msg(msgTransferRejected)
		return nil, &Failure{
			Code:    CodeUpstreamValidateError,
			Message: res.Error,
			Status:  http.StatusBadRequest,
			Summary: &summary,
		}
	}
	return &Output{Data: transferCreated{Transaction: res.Transaction}, Summary: Msg(msgTransferCreated)}, nil
}

func amountSunArg(args map[string]any) (int64, bool) {
	n, ok := asFloat(args["amountSun"])
	if !ok || math.IsNaN(n) || n <= 0 || n != math.Trunc(n) || n >= math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func requireAddress(args map[string]any, key string) *Failure {
	address, _ := stringArg(args, key)
	if !tronaddr.LooksValid(address) {
		return Invalid(CodeInvalidAddress, invalidAddressText)
	}
	return nil
}

func newBalanceReport(address, contract string, acct tron.Account, word string) balanceReport {
	sun := acct.Balance.String()
	if sun == "" {
		sun = "0"
	}
	raw := "0"
	if word != "" {
		raw = hexWordToDecimal(word)
	}
	return balanceReport{
		Address: address,
		TRX:     trxBalance{Balance: formatTokenAmount(sun, trxDecimals), BalanceSun: sun},
		USDT: tokenBalance{
			Balance:    formatTokenAmount(raw, usdtDecimals),
			BalanceRaw: raw,
			Decimals:   usdtDecimals,
			Contract:   contract,
		},
		AddressMeta: describeAddress(address),
	}
}

func balanceSummary(r balanceReport) Message {
	key := msgBalanceInvalid
	if r.AddressMeta.Base58Valid {
		key = msgBalanceValid
	}
	return Msg(key, fixed2(r.USDT.Balance), fixed2(r.TRX.Balance))
}

func describeAddress(address string) addressMeta {
	h, err := tronaddr.ToHex(address)
	if err != nil {
		return addressMeta{Network: "unknown", RiskHint: riskHintBadBase58}
	}
	meta := addressMeta{Base58Valid: true, AddressHex: &h, Network: tronaddr.Network(h), RiskHint: riskHintNone}
	if meta.Network != "TRON" {
		meta.RiskHint = riskHintBadPrefix
	}
	return meta
}
