package tool

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/infra/tron"
)

const (
	BuiltinGetNetworkStatus       = "get_network_status"
	BuiltinGetUSDTBalance         = "get_usdt_balance"
	BuiltinGetTxStatus            = "get_tx_status"
	BuiltinGetAccountProfile      = "get_account_profile"
	BuiltinRPQuote                = "rp_quote"
	BuiltinRPSplitPlan            = "rp_split_plan"
	BuiltinVerifyUnsignedTx       = "verify_unsigned_tx"
	BuiltinCreateUnsignedTransfer = "create_unsigned_transfer"
)

// GridAPI is the TronGrid surface the chain tools read from.
type GridAPI interface {
	NowBlock(ctx context.Context) (tron.BlockHead, error)
	ChainParameters(ctx context.Context) (tron.ChainParameters, error)
	Account(ctx context.Context, address string) (tron.Account, error)
	TRC20Balance(ctx context.Context, address, contract string) (string, error)
	AccountTransactions(ctx context.Context, address string) ([]tron.Transaction, error)
	CreateTransfer(ctx context.Context, from, to string, amountSun int64) (tron.TransferResult, error)
}

// ScanAPI is the TronScan surface used by get_tx_status.
type ScanAPI interface {
	TransactionInfo(ctx context.Context, txid string) (tron.TransactionInfo, error)
}

type BuiltinServices struct {
	Grid         GridAPI
	Scan         ScanAPI
	USDTContract string
	// Clock decides whether an unsigned transaction has expired.
	Clock Clock
}

var ErrBuiltinServiceMissing = errors.New("builtin tool service not configured")

type builtinDefinition struct {
	Name        string
	Description string
	Source      string
	InputSchema json.RawMessage
}

func (d builtinDefinition) spec() Spec {
	return Spec{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema, Source: d.Source}
}

const curveSchema = `{"type":"object","properties":{"virtualBase":{"type":"number"},"virtualToken":{"type":"number"},"feeBps":{"type":["number","null"]}},"required":["virtualBase","virtualToken"],"additionalProperties":false}`

func builtinDefinitions() map[string]builtinDefinition {
	defs := []builtinDefinition{
		{
			Name:        BuiltinGetNetworkStatus,
			Description: "Get TRON network status.",
			Source:      SourceTronGrid,
			InputSchema: json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`),
		},
		{
			Name:        BuiltinGetUSDTBalance,
			Description: "Get USDT balance for an address.",
			Source:      SourceTronGrid,
			InputSchema: json.RawMessage(`{"type":"object","properties":{"address":{"type":"string"}},"required":["address"],"additionalProperties":false}`),
		},
		{
			Name:        BuiltinGetTxStatus,
			Description: "Get transaction status by txid.",
			Source:      SourceTronScan,
			InputSchema: json.RawMessage(`{"type":"object","properties":{"txid":{"type":"string"}},"required":["txid"],"additionalProperties":false}`),
		},
		{
			Name:        BuiltinGetAccountProfile,
			Description: "Advanced account profile with balances and recent activity.",
			Source:      SourceTronGrid,
			InputSchema: json.RawMessage(`{"type":"object","properties":{"address":{"type":"string"}},"required":["address"],"additionalProperties":false}`),
		},
		{
			Name:        BuiltinRPQuote,
			Description: "Bonding-curve quote for buy/sell simulation.",
			Source:      SourceLocalRobinPump,
			InputSchema: json.RawMessage(`{"type":"object","properties":{"side":{"type":"string","enum":["buy","sell"]},"amountIn":{"type":"number","exclusiveMinimum":0},"curve":` + curveSchema + `,"preset":{"type":"string","enum":["A","B"]}},"required":["side","amountIn"],"additionalProperties":false}`),
		},
		{
			Name:        BuiltinRPSplitPlan,
			Description: "Split-order planning for bonding-curve trades.",
			Source:      SourceLocalRobinPump,
			InputSchema: json.RawMessage(`{"type":"object","properties":{"side":{"type":"string","enum":["buy","sell"]},"totalAmountIn":{"type":"number","exclusiveMinimum":0},"parts":{"type":"integer","minimum":2,"maximum":50},"maxSlippageBps":{"type":"integer","minimum":0,"maximum":5000},"curve":` + curveSchema + `,"preset":{"type":"string","enum":["A","B"]}},"required":["side","totalAmountIn","parts","maxSlippageBps"],"additionalProperties":false}`),
		},
		{
			Name:        BuiltinVerifyUnsignedTx,
			Description: "Verify an unsigned TRON transaction payload and derive txid from raw_data_hex.",
			Source:      SourceLocalValidation,
			InputSchema: json.RawMessage(`{"type":"object","properties":{"unsignedTx":{"type":"object"},"rawDataHex":{"type":"string"}},"anyOf":[{"required":["unsignedTx"]},{"required":["rawDataHex"]}],"additionalProperties":false}`),
		},
		{
			Name:        BuiltinCreateUnsignedTransfer,
			Description: "Create an unsigned TRX transfer transaction (Nile).",
			Source:      SourceTronGrid,
			InputSchema: json.RawMessage(`{"type":"object","properties":{"from":{"type":"string"},"to":{"type":"string"},"amountSun":{"type":"number"}},"required":["from","to","amountSun"],"additionalProperties":false}`),
		},
	}
	out := make(map[string]builtinDefinition, len(defs))
	for _, d := range defs {
		out[d.Name] = d
	}
	return out
}

// RegisterBuiltInExecutors registers the eight gateway tools in catalog order.
func RegisterBuiltInExecutors(registry *Registry, services BuiltinServices) error {
	if services.Grid == nil || services.Scan == nil {
		return ErrBuiltinServiceMissing
	}
	if services.Clock == nil {
		services.Clock = time.Now
	}

	defs := builtinDefinitions()
	executors := []ToolExecutor{
		NewNetworkStatusExecutor(defs[BuiltinGetNetworkStatus].spec(), services.Grid),
		NewUSDTBalanceExecutor(defs[BuiltinGetUSDTBalance].spec(), services.Grid, services.USDTContract),
		NewTxStatusExecutor(defs[BuiltinGetTxStatus].spec(), services.Scan),
		NewAccountProfileExecutor(defs[BuiltinGetAccountProfile].spec(), services.Grid, services.USDTContract),
		NewQuoteExecutor(defs[BuiltinRPQuote].spec()),
		NewSplitPlanExecutor(defs[BuiltinRPSplitPlan].spec()),
		NewVerifyUnsignedTxExecutor(defs[BuiltinVerifyUnsignedTx].spec(), services.Clock),
		NewCreateTransferExecutor(defs[BuiltinCreateUnsignedTransfer].spec(), services.Grid),
	}

	for _, executor := range executors {
		if err := registry.Register(executor); err != nil {
			return err
		}
	}
	return nil
}
