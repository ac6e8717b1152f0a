package tron

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/infra/upstream"
)

// Transaction confirmation states reported by get_tx_status.
const (
	TxPending = "PENDING"
	TxSuccess = "SUCCESS"
	TxFailed  = "FAILED"
)

// ScanClient talks to the TronScan explorer API.
type ScanClient struct {
	base   string
	apiKey string
	http   Fetcher
}

func NewScanClient(base, apiKey string, f Fetcher) *ScanClient {
	return &ScanClient{base: strings.TrimRight(base, "/"), apiKey: apiKey, http: f}
}

// TransactionInfo is the subset of /transaction-info used to derive a status.
// The explorer has used several spellings for the result field over time.
type TransactionInfo struct {
	Confirmed        bool   `json:"confirmed"`
	ContractRet      string `json:"contractRet"`
	FinalResult      string `json:"finalResult"`
	FinalResultSnake string `json:"final_result"`
	Revert           bool   `json:"revert"`
	Reverted         bool   `json:"reverted"`
	Block            *int64 `json:"block"`
	BlockNumber      *int64 `json:"blockNumber"`
	Timestamp        *int64 `json:"timestamp"`
	BlockTimestamp   *int64 `json:"block_timestamp"`
}

// Status maps the explorer record to PENDING, SUCCESS or FAILED.
func (i TransactionInfo) Status() string {
	if !i.Confirmed {
		return TxPending
	}
	if i.Revert || i.Reverted {
		return TxFailed
	}
	ret := i.ContractRet
	for _, alt := range []string{i.FinalResult, i.FinalResultSnake} {
		if ret == "" {
			ret = alt
		}
	}
	if ret == "" || strings.EqualFold(ret, TxSuccess) {
		return TxSuccess
	}
	return TxFailed
}

// BlockRef returns the block number under whichever key the explorer used.
func (i TransactionInfo) BlockRef() *int64 {
	if i.Block != nil {
		return i.Block
	}
	return i.BlockNumber
}

// Time returns the confirmation timestamp in unix milliseconds, if known.
func (i TransactionInfo) Time() *int64 {
	if i.Timestamp != nil {
		return i.Timestamp
	}
	return i.BlockTimestamp
}

// TransactionInfo looks up a transaction by hash.
func (s *ScanClient) TransactionInfo(ctx context.Context, txid string) (TransactionInfo, error) {
	endpoint := s.base + "/transaction-info?hash=" + url.QueryEscape(txid)
	res, err := s.http.FetchJSON(ctx, endpoint, upstream.Request{Method: http.MethodGet, Headers: apiKeyHeaders(s.apiKey)})
	if err != nil {
		return TransactionInfo{}, err
	}
	var info TransactionInfo
	if err := decode(res, &info); err != nil {
		return TransactionInfo{}, err
	}
	return info, nil
}
