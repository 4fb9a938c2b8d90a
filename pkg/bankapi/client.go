// Package bankapi is a thin HTTP client for the ledger backend consumed by the
// send-money page: account lookup, balance lookup and transaction submission.
package bankapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestIDHeader correlates frontend log lines with backend ones.
const RequestIDHeader = "X-Request-ID"

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

type Client struct {
	BaseURL string
	HTTP    *http.Client
	// Token is sent as a bearer token when set.
	Token string
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.Token = token }
}

// WithTimeout sets the per-request timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTP.Timeout = d }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTP = h }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// AccountForUser resolves the account owned by userID.
func (c *Client) AccountForUser(ctx context.Context, userID int64) (Account, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/accounts", userID), nil)
	if err != nil {
		return Account{}, err
	}
	if isEmptyPayload(body) {
		return Account{}, ErrNoAccount
	}
	var acc Account
	if err := json.Unmarshal(body, &acc); err != nil {
		return Account{}, fmt.Errorf("decode account: %w", err)
	}
	return acc, nil
}

// Balance fetches the current balance of accountID. A payload without an
// amount is ErrNoBalance.
func (c *Client) Balance(ctx context.Context, accountID int64) (Balance, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/accounts/%d/balances", accountID), nil)
	if err != nil {
		return Balance{}, err
	}
	var payload struct {
		Amount decimal.NullDecimal `json:"amount"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Balance{}, fmt.Errorf("decode balance: %w", err)
	}
	if !payload.Amount.Valid {
		return Balance{}, ErrNoBalance
	}
	return Balance{Amount: payload.Amount.Decimal}, nil
}

// CreateTransaction posts tx and returns the raw created record.
func (c *Client) CreateTransaction(ctx context.Context, tx TransactionRequest) (json.RawMessage, error) {
	payload, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, "/transactions", payload)
	if err != nil {
		return nil, err
	}
	if isEmptyPayload(body) {
		return nil, ErrEmptyResponse
	}
	return json.RawMessage(body), nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		log.Printf("bankapi %s %s request_id=%s failed: %v", method, path, reqID, err)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: messageFromBody(body)}
		log.Printf("bankapi %s %s request_id=%s status=%d msg=%q", method, path, reqID, resp.StatusCode, apiErr.Message)
		return nil, apiErr
	}
	return body, nil
}

func isEmptyPayload(body []byte) bool {
	b := bytes.TrimSpace(body)
	return len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`))
}
