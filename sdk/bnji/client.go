// Package bnji is a Go client for the benjamins JSON-RPC endpoint.
package bnji

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
)

// Client wraps the node's JSON-RPC methods.
type Client struct {
	endpoint   string
	authToken  string
	httpClient *http.Client
	nextID     atomic.Int64
}

// Option mutates the client configuration during construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithAuthToken attaches a bearer token for the owner-gated methods.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = strings.TrimSpace(token)
	}
}

// New constructs a client pointed at the node's /rpc endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("endpoint required")
	}
	client := &Client{
		endpoint:   strings.TrimRight(trimmed, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = http.DefaultClient
	}
	return client, nil
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int64             `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is a JSON-RPC error returned by the node.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *Client) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	var rawParams []json.RawMessage
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
		rawParams = []json.RawMessage{raw}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  rawParams,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/rpc", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var decoded rpcResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(decoded.Result, out)
}

// Quote mirrors the result of bnji_quote and the settling operations: all
// amounts are decimal strings in cents, minor units aside.
type Quote struct {
	PrincipalCents  string `json:"principalCents"`
	FeeCents        string `json:"feeCents"`
	TotalCents      string `json:"totalCents"`
	TotalMinorUnits string `json:"totalMinorUnits"`
}

// Balance mirrors bnji_getBalance.
type Balance struct {
	Address    string `json:"address"`
	Balance    uint64 `json:"balance"`
	LockedBNJI uint64 `json:"lockedBNJI"`
}

// Supply mirrors bnji_getSupply.
type Supply struct {
	TotalSupply uint64 `json:"totalSupply"`
	BlockHeight uint64 `json:"blockHeight"`
	Paused      bool   `json:"paused"`
}

// DiscountInfo mirrors bnji_getDiscountInfo.
type DiscountInfo struct {
	Score        uint64 `json:"score"`
	Level        uint32 `json:"level"`
	Percent      uint32 `json:"percent"`
	LockedBNJI   uint64 `json:"lockedBNJI"`
	UnlockHeight uint64 `json:"unlockHeight"`
}

// Lockbox mirrors bnji_getLockbox.
type Lockbox struct {
	ID             uint64 `json:"id"`
	Owner          string `json:"owner"`
	Amount         uint64 `json:"amount"`
	DurationBlocks uint64 `json:"durationBlocks"`
	Score          uint64 `json:"score"`
	CreatedAt      uint64 `json:"createdAt"`
	UnlockHeight   uint64 `json:"unlockHeight"`
	Label          string `json:"label,omitempty"`
}

// Quote prices a prospective mint (or burn) without settling it.
func (c *Client) Quote(ctx context.Context, caller string, amount uint64, mint bool) (*Quote, error) {
	var out Quote
	err := c.call(ctx, "bnji_quote", map[string]interface{}{
		"caller": caller,
		"amount": amount,
		"mint":   mint,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Mint buys amount tokens for the caller at the curve price.
func (c *Client) Mint(ctx context.Context, caller string, amount uint64) (*Quote, error) {
	var out Quote
	err := c.call(ctx, "bnji_mint", map[string]interface{}{
		"caller": caller,
		"amount": amount,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MintTo buys amount tokens charged to caller and credited to recipient.
func (c *Client) MintTo(ctx context.Context, caller string, amount uint64, recipient string) (*Quote, error) {
	var out Quote
	err := c.call(ctx, "bnji_mintTo", map[string]interface{}{
		"caller":    caller,
		"amount":    amount,
		"recipient": recipient,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Burn sells amount of the caller's tokens back to the curve.
func (c *Client) Burn(ctx context.Context, caller string, amount uint64) (*Quote, error) {
	var out Quote
	err := c.call(ctx, "bnji_burn", map[string]interface{}{
		"caller": caller,
		"amount": amount,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// BurnTo sells amount of the caller's tokens, paying out to recipient.
func (c *Client) BurnTo(ctx context.Context, caller string, amount uint64, recipient string) (*Quote, error) {
	var out Quote
	err := c.call(ctx, "bnji_burnTo", map[string]interface{}{
		"caller":    caller,
		"amount":    amount,
		"recipient": recipient,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Transfer moves tokens from the caller to recipient; the caller pays the
// burn-leg fee in payment cents.
func (c *Client) Transfer(ctx context.Context, caller, recipient string, amount uint64) error {
	return c.call(ctx, "bnji_transfer", map[string]interface{}{
		"caller":    caller,
		"recipient": recipient,
		"amount":    amount,
	}, nil)
}

// CreateLockbox locks amount tokens for durationBlocks, returning the box ID.
func (c *Client) CreateLockbox(ctx context.Context, caller string, amount, durationBlocks uint64, label string) (uint64, error) {
	var out struct {
		ID uint64 `json:"id"`
	}
	err := c.call(ctx, "bnji_createLockbox", map[string]interface{}{
		"caller":         caller,
		"amount":         amount,
		"durationBlocks": durationBlocks,
		"label":          label,
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.ID, nil
}

// OpenLockbox opens and destroys a matured lockbox.
func (c *Client) OpenLockbox(ctx context.Context, caller string, id uint64) error {
	return c.call(ctx, "bnji_openLockbox", map[string]interface{}{
		"caller": caller,
		"id":     id,
	}, nil)
}

// IncreaseLevels purchases levels discount levels (levels edition only).
func (c *Client) IncreaseLevels(ctx context.Context, caller string, levels uint32) error {
	return c.call(ctx, "bnji_increaseLevels", map[string]interface{}{
		"caller": caller,
		"levels": levels,
	}, nil)
}

// ReleaseCommitment frees a matured level commitment, returning the amount.
func (c *Client) ReleaseCommitment(ctx context.Context, caller string) (uint64, error) {
	var out struct {
		Amount uint64 `json:"amount"`
	}
	err := c.call(ctx, "bnji_releaseCommitment", map[string]interface{}{
		"caller": caller,
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.Amount, nil
}

// Balance fetches the token and locked balances for an address.
func (c *Client) Balance(ctx context.Context, address string) (*Balance, error) {
	var out Balance
	if err := c.call(ctx, "bnji_getBalance", map[string]interface{}{"address": address}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Supply fetches the outstanding token count and node height.
func (c *Client) Supply(ctx context.Context) (*Supply, error) {
	var out Supply
	if err := c.call(ctx, "bnji_getSupply", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DiscountInfo fetches the discount standing for an address.
func (c *Client) DiscountInfo(ctx context.Context, address string) (*DiscountInfo, error) {
	var out DiscountInfo
	if err := c.call(ctx, "bnji_getDiscountInfo", map[string]interface{}{"address": address}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Lockbox fetches one of the owner's lockboxes.
func (c *Client) Lockbox(ctx context.Context, owner string, id uint64) (*Lockbox, error) {
	var out Lockbox
	err := c.call(ctx, "bnji_getLockbox", map[string]interface{}{
		"owner": owner,
		"id":    id,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Pause halts state-changing calls. Requires the configured bearer token and
// an owner caller.
func (c *Client) Pause(ctx context.Context, caller string) error {
	return c.call(ctx, "bnji_pause", map[string]interface{}{"caller": caller}, nil)
}

// Unpause reopens state-changing calls.
func (c *Client) Unpause(ctx context.Context, caller string) error {
	return c.call(ctx, "bnji_unpause", map[string]interface{}{"caller": caller}, nil)
}

// SetBlockHeight advances the node's view of the block height.
func (c *Client) SetBlockHeight(ctx context.Context, height uint64) error {
	return c.call(ctx, "bnji_setBlockHeight", map[string]interface{}{"height": height}, nil)
}
