package launchpad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// APIError is a non-2xx response from the launchpad API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("launchpad api: %d %s", e.Status, e.Message)
}

// Client calls the launchpad HTTP API.
type Client struct {
	BaseURL string
	// Token is sent as a bearer token; Caller is sent instead when the
	// server runs without authentication.
	Token  string
	Caller string
	HTTP   *http.Client
}

// NewClient returns a client with a bounded request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	} else if c.Caller != "" {
		req.Header.Set(CallerHeader, c.Caller)
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &payload)
		if payload.Error == "" {
			payload.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func salePath(sale common.Address, action string) string {
	path := "/v1/sales/" + sale.Hex()
	if action != "" {
		path += "/" + action
	}
	return path
}

// CreateSale opens a sale funded by the authenticated caller.
func (c *Client) CreateSale(ctx context.Context, body CreateSaleBody) (*SaleView, error) {
	var out SaleView
	if err := c.do(ctx, http.MethodPost, "/v1/sales", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sale fetches a sale snapshot.
func (c *Client) Sale(ctx context.Context, sale common.Address) (*SaleView, error) {
	var out SaleView
	if err := c.do(ctx, http.MethodGet, salePath(sale, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Participant fetches addr's position in sale.
func (c *Client) Participant(ctx context.Context, sale, addr common.Address) (*ParticipantView, error) {
	var out ParticipantView
	if err := c.do(ctx, http.MethodGet, salePath(sale, "participants/"+addr.Hex()), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Deposit adds amount base units to the caller's allocation.
func (c *Client) Deposit(ctx context.Context, sale common.Address, amount string) (*ParticipantView, error) {
	var out ParticipantView
	if err := c.do(ctx, http.MethodPost, salePath(sale, "deposit"), AmountRequest{Amount: amount}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Withdraw removes amount base units from the caller's allocation.
func (c *Client) Withdraw(ctx context.Context, sale common.Address, amount string) (*WithdrawResponse, error) {
	var out WithdrawResponse
	if err := c.do(ctx, http.MethodPost, salePath(sale, "withdraw"), AmountRequest{Amount: amount}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePool settles the sale.
func (c *Client) CreatePool(ctx context.Context, sale common.Address) (*SettlementView, error) {
	var out SettlementView
	if err := c.do(ctx, http.MethodPost, salePath(sale, "create-pool"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stop halts the sale; the caller must be the registry owner.
func (c *Client) Stop(ctx context.Context, sale common.Address) (*SaleView, error) {
	var out SaleView
	if err := c.do(ctx, http.MethodPost, salePath(sale, "stop"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Payout runs one of the claim actions: claim-liquidity, claim-incentives or
// emergency-withdraw.
func (c *Client) Payout(ctx context.Context, sale common.Address, action string) (string, error) {
	var out AmountResponse
	if err := c.do(ctx, http.MethodPost, salePath(sale, action), nil, &out); err != nil {
		return "", err
	}
	return out.Amount, nil
}
