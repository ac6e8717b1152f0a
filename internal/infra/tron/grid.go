// Package tron wraps the two upstream providers the tools read from:
// the TronGrid full-node API and the TronScan explorer API.
// Request shapes live here so the tool layer only sees typed results.
package tron

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/infra/upstream"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/pkg/tronaddr"
)

const (
	headerAPIKey = "TRON-PRO-API-KEY"

	recentTxLimit = "20"
)

// Fetcher is the slice of *upstream.Client the providers need.
type Fetcher interface {
	FetchJSON(ctx context.Context, rawURL string, req upstream.Request) (*upstream.Result, error)
	PostJSON(ctx context.Context, rawURL string, headers map[string]string, payload any) (*upstream.Result, error)
}

// GridClient talks to a TronGrid-compatible full node.
type GridClient struct {
	base   string
	apiKey string
	http   Fetcher
}

func NewGridClient(base, apiKey string, f Fetcher) *GridClient {
	return &GridClient{base: strings.TrimRight(base, "/"), apiKey: apiKey, http: f}
}

// ─── response types ──────────────────────────────────────────────────────────

// BlockHead is the subset of /wallet/getnowblock the gateway reports.
// Fields are nil when the node omitted them.
type BlockHead struct {
	Number    *int64
	Timestamp *int64
}

type ChainParameter struct {
	Key   string `json:"key"`
	Value *int64 `json:"value"`
}

type ChainParameters []ChainParameter

// Value returns the parameter named key, or nil when absent.
func (p ChainParameters) Value(key string) *int64 {
	for _, item := range p {
		if item.Key == key {
			return item.Value
		}
	}
	return nil
}

// Account is the subset of /wallet/getaccount used for balances.
// Balance is in sun and is empty for never-activated accounts.
type Account struct {
	Balance json.Number `json:"balance"`
}

type contractCallResponse struct {
	ConstantResult []string `json:"constant_result"`
}

// TxContract is the first contract of a transaction's raw_data.
type TxContract struct {
	Type      string `json:"type"`
	Parameter struct {
		Value TxContractValue `json:"value"`
	} `json:"parameter"`
}

type TxContractValue struct {
	OwnerAddress string      `json:"owner_address"`
	ToAddress    string      `json:"to_address"`
	Amount       json.Number `json:"amount"`
}

type Transaction struct {
	TxID           string `json:"txID"`
	BlockTimestamp int64  `json:"block_timestamp"`
	RawData        struct {
		Timestamp  int64        `json:"timestamp"`
		Expiration int64        `json:"expiration"`
		Contract   []TxContract `json:"contract"`
	} `json:"raw_data"`
}

// FirstContract returns the first contract entry, if any.
func (t Transaction) FirstContract() (TxContract, bool) {
	if len(t.RawData.Contract) == 0 {
		return TxContract{}, false
	}
	return t.RawData.Contract[0], true
}

// TransferResult is the node's answer to /wallet/createtransaction. Error is
// set when the node rejected the transfer while still answering 200.
type TransferResult struct {
	Transaction json.RawMessage
	Error       string
}

// ─── endpoints ───────────────────────────────────────────────────────────────

// NowBlock reads the latest block header.
func (g *GridClient) NowBlock(ctx context.Context) (BlockHead, error) {
	res, err := g.post(ctx, "/wallet/getnowblock", struct{}{})
	if err != nil {
		return BlockHead{}, err
	}
	var body struct {
		BlockHeader struct {
			RawData struct {
				Number    *int64 `json:"number"`
				Timestamp *int64 `json:"timestamp"`
			} `json:"raw_data"`
		} `json:"block_header"`
	}
	if err := decode(res, &body); err != nil {
		return BlockHead{}, err
	}
	return BlockHead{Number: body.BlockHeader.RawData.Number, Timestamp: body.BlockHeader.RawData.Timestamp}, nil
}

// ChainParameters reads /wallet/getchainparameters.
func (g *GridClient) ChainParameters(ctx context.Context) (ChainParameters, error) {
	res, err := g.post(ctx, "/wallet/getchainparameters", struct{}{})
	if err != nil {
		return nil, err
	}
	var body struct {
		ChainParameter  ChainParameters `json:"chainParameter"`
		ChainParameters ChainParameters `json:"chain_parameters"`
	}
	if err := decode(res, &body); err != nil {
		return nil, err
	}
	if len(body.ChainParameter) > 0 {
		return body.ChainParameter, nil
	}
	return body.ChainParameters, nil
}

// Account reads the account record for a base58 address.
func (g *GridClient) Account(ctx context.Context, address string) (Account, error) {
	res, err := g.post(ctx, "/wallet/getaccount", map[string]any{
		"address": address,
		"visible": true,
	})
	if err != nil {
		return Account{}, err
	}
	var acct Account
	if err := decode(res, &acct); err != nil {
		return Account{}, err
	}
	return acct, nil
}

// TRC20Balance calls balanceOf(address) on contract and returns the raw hex
// word of the result, or "" when the node returned no constant result.
func (g *GridClient) TRC20Balance(ctx context.Context, address, contract string) (string, error) {
	param, err := BalanceOfParameter(address)
	if err != nil {
		return "", err
	}
	res, err := g.post(ctx, "/wallet/triggerconstantcontract", map[string]any{
		"contract_address":  contract,
		"function_selector": "balanceOf(address)",
		"parameter":         param,
		"owner_address":     address,
		"visible":           true,
	})
	if err != nil {
		return "", err
	}
	var body contractCallResponse
	if err := decode(res, &body); err != nil {
		return "", err
	}
	if len(body.ConstantResult) == 0 {
		return "", nil
	}
	return body.ConstantResult[0], nil
}

// AccountTransactions lists the most recent confirmed transactions, newest first.
func (g *GridClient) AccountTransactions(ctx context.Context, address string) ([]Transaction, error) {
	q := url.Values{}
	q.Set("limit", recentTxLimit)
	q.Set("only_confirmed", "true")
	q.Set("order_by", "block_timestamp,desc")
	endpoint := fmt.Sprintf("%s/v1/accounts/%s/transactions?%s", g.base, url.PathEscape(address), q.Encode())

	res, err := g.http.FetchJSON(ctx, endpoint, upstream.Request{Method: http.MethodGet, Headers: g.headers()})
	if err != nil {
		return nil, err
	}
	var body struct {
		Data []Transaction `json:"data"`
	}
	if err := decode(res, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// CreateTransfer asks the node to build an unsigned TRX transfer.
func (g *GridClient) CreateTransfer(ctx context.Context, from, to string, amountSun int64) (TransferResult, error) {
	res, err := g.post(ctx, "/wallet/createtransaction", map[string]any{
		"owner_address": from,
		"to_address":    to,
		"amount":        amountSun,
		"visible":       true,
	})
	if err != nil {
		return TransferResult{}, err
	}
	var probe struct {
		ErrorUpper json.RawMessage `json:"Error"`
		ErrorLower json.RawMessage `json:"error"`
	}
	// A non-object body (e.g. null) simply carries no error field.
	_ = json.Unmarshal(res.Data, &probe)

	return TransferResult{
		Transaction: res.Data,
		Error:       firstText(probe.ErrorUpper, probe.ErrorLower),
	}, nil
}

// BalanceOfParameter encodes address as the 32-byte ABI word for balanceOf.
func BalanceOfParameter(address string) (string, error) {
	h, err := tronaddr.ToHex(address)
	if err != nil {
		return "", fmt.Errorf("encode balanceOf parameter: %w", err)
	}
	return strings.Repeat("0", 64-len(h)) + h, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (g *GridClient) post(ctx context.Context, path string, payload any) (*upstream.Result, error) {
	return g.http.PostJSON(ctx, g.base+path, g.headers(), payload)
}

func (g *GridClient) headers() map[string]string {
	return apiKeyHeaders(g.apiKey)
}

func apiKeyHeaders(key string) map[string]string {
	if key == "" {
		return map[string]string{}
	}
	return map[string]string{headerAPIKey: key}
}

// decode tolerates a null body, leaving v at its zero value.
func decode(res *upstream.Result, v any) error {
	if res == nil || len(res.Data) == 0 || string(res.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(res.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", res.Meta.URL, err)
	}
	return nil
}

// firstText renders the first non-empty JSON value as text. Strings are unquoted.
func firstText(values ...json.RawMessage) string {
	for _, v := range values {
		if len(v) == 0 || string(v) == "null" || string(v) == `""` || string(v) == "false" {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
		return string(v)
	}
	return ""
}
