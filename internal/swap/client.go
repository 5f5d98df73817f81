package swap

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/types"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/jsonx"
	"github.com/zeromicro/go-zero/rest/httpc"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// QuoteRequest 询价参数，Amount 为输入 token 的最小单位
type QuoteRequest struct {
	InputMint   types.Pubkey
	OutputMint  types.Pubkey
	Amount      uint64
	SlippageBps uint16
}

// Quote 聚合器返回的报价；Raw 为原始响应，下单时原样回传
type Quote struct {
	InputAmount    uint64
	OutputAmount   uint64
	PriceImpactPct decimal.Decimal
	RoutePlan      json.RawMessage
	Raw            json.RawMessage
}

type quoteResponse struct {
	InputAmount    *decimal.Decimal `json:"inputAmount"`
	OutputAmount   *decimal.Decimal `json:"outputAmount"`
	PriceImpactPct *decimal.Decimal `json:"priceImpactPct"`
	RoutePlan      json.RawMessage  `json:"routePlan"`
}

type transactionRequest struct {
	QuoteResponse json.RawMessage `json:"quoteResponse"`
	UserPublicKey string          `json:"userPublicKey"`
}

// 两种返回格式都接受：批量 transactions，或单笔 swapTransaction
type transactionResponse struct {
	Transactions    []string `json:"transactions"`
	SwapTransaction string   `json:"swapTransaction"`
}

// Client 聚合器 HTTP 客户端
type Client struct {
	baseURL string
	service httpc.Service
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		service: httpc.NewServiceWithClient("swap-aggregator", &http.Client{Timeout: timeout}),
	}
}

func (c *Client) do(ctx context.Context, op, method, target string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.service.DoRequest(req)
	if err != nil {
		return nil, &core.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &core.NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &core.NetworkError{Op: op, Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}
	return data, nil
}

// Quote GET {base}/quote
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if req.Amount == 0 {
		return nil, fmt.Errorf("%w: swap amount must be positive", core.ErrInvalidAmount)
	}
	if req.InputMint == req.OutputMint {
		return nil, fmt.Errorf("%w: input and output mint are the same", core.ErrInvalidAddress)
	}

	query := url.Values{}
	query.Set("inputMint", req.InputMint.String())
	query.Set("outputMint", req.OutputMint.String())
	query.Set("amount", strconv.FormatUint(req.Amount, 10))
	if req.SlippageBps > 0 {
		query.Set("slippageBps", strconv.FormatUint(uint64(req.SlippageBps), 10))
	}

	data, err := c.do(ctx, "swap quote", http.MethodGet, c.baseURL+"/quote?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return parseQuote(data)
}

func parseQuote(data []byte) (*Quote, error) {
	var resp quoteResponse
	if err := jsonx.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: quote response: %v", core.ErrMalformedTransaction, err)
	}
	if resp.InputAmount == nil || resp.OutputAmount == nil {
		return nil, fmt.Errorf("%w: quote response missing amounts", core.ErrMalformedTransaction)
	}
	in, err := toUint64(*resp.InputAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: inputAmount: %v", core.ErrMalformedTransaction, err)
	}
	out, err := toUint64(*resp.OutputAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: outputAmount: %v", core.ErrMalformedTransaction, err)
	}
	q := &Quote{
		InputAmount:  in,
		OutputAmount: out,
		RoutePlan:    resp.RoutePlan,
		Raw:          append(json.RawMessage(nil), data...),
	}
	if resp.PriceImpactPct != nil {
		q.PriceImpactPct = *resp.PriceImpactPct
	}
	return q, nil
}

func toUint64(d decimal.Decimal) (uint64, error) {
	if d.IsNegative() || !d.IsInteger() {
		return 0, fmt.Errorf("not an unsigned integer: %s", d)
	}
	return strconv.ParseUint(d.String(), 10, 64)
}

// Transactions POST {base}/transaction，返回一个或多个 base64 编码的交易
func (c *Client) Transactions(ctx context.Context, quote *Quote, user types.Pubkey) ([]string, error) {
	if quote == nil || len(quote.Raw) == 0 {
		return nil, fmt.Errorf("%w: missing quote", core.ErrMalformedTransaction)
	}
	body, err := jsonx.Marshal(transactionRequest{
		QuoteResponse: quote.Raw,
		UserPublicKey: user.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	data, err := c.do(ctx, "swap transaction", http.MethodPost, c.baseURL+"/transaction", body)
	if err != nil {
		return nil, err
	}
	return parseTransactions(data)
}

func parseTransactions(data []byte) ([]string, error) {
	var resp transactionResponse
	if err := jsonx.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: transaction response: %v", core.ErrMalformedTransaction, err)
	}
	blobs := resp.Transactions
	if len(blobs) == 0 && resp.SwapTransaction != "" {
		blobs = []string{resp.SwapTransaction}
	}
	if len(blobs) == 0 {
		return nil, fmt.Errorf("%w: transaction response has no transactions", core.ErrMalformedTransaction)
	}
	for i, blob := range blobs {
		if _, err := base64.StdEncoding.DecodeString(blob); err != nil {
			return nil, fmt.Errorf("%w: transaction %d is not base64: %v", core.ErrMalformedTransaction, i, err)
		}
	}
	return blobs, nil
}
