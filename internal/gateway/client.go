package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/padipay/padipay/internal/ledger"
	"github.com/padipay/padipay/internal/money"
)

var (
	// ErrProviderFailure indicates the provider explicitly rejected the
	// request, or the call failed at the transport layer (including
	// timeout). The caller must not mutate any balance.
	ErrProviderFailure = errors.New("provider rejected request")

	// ErrProviderUnverifiable indicates the provider's reply could not be
	// parsed or carried no status, so the outcome of the call is unknown.
	// Distinct from ErrProviderFailure so the caller can surface the
	// ambiguity instead of silently treating money as not moved.
	ErrProviderUnverifiable = errors.New("provider response unverifiable")
)

const apiKeyHeader = "x-api-key"

// Client issues calls to the bank-transfer/airtime provider. It is a thin
// adapter: one POST endpoint with an action discriminator, API key auth and
// a bounded timeout so a hung provider cannot pin a request indefinitely.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a provider client with the given request timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// TransferRequest asks the provider to pay out to a bank account.
type TransferRequest struct {
	Amount        decimal.Decimal
	BankCode      string
	AccountNumber string
	Narration     string
	Reference     string
}

// AirtimeRequest asks the provider to deliver airtime to a phone number.
type AirtimeRequest struct {
	Amount      decimal.Decimal
	PhoneNumber string
	Network     string
	Reference   string
}

// Disbursement is the provider's confirmation of a transfer or airtime
// purchase.
type Disbursement struct {
	TransactionID string
	Reference     string
	Status        string
}

// Bank is one entry of the provider's bank directory.
type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type apiRequest struct {
	Action        string `json:"action"`
	Amount        string `json:"amount,omitempty"`
	BankCode      string `json:"bank_code,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	Network       string `json:"network,omitempty"`
	Narration     string `json:"narration,omitempty"`
	Reference     string `json:"reference,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	AccountName   string `json:"account_name,omitempty"`
}

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type disbursementData struct {
	TransactionID string `json:"transactionId"`
	Reference     string `json:"reference"`
	Status        string `json:"status"`
}

func (c *Client) call(ctx context.Context, req apiRequest) (json.RawMessage, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", req.Action, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", req.Action, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderFailure, req.Action, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderUnverifiable, req.Action, err)
	}

	switch envelope.Status {
	case "success", "true":
		return envelope.Data, nil
	case "":
		return nil, fmt.Errorf("%w: %s: missing status flag", ErrProviderUnverifiable, req.Action)
	default:
		if envelope.Message != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrProviderFailure, req.Action, envelope.Message)
		}
		return nil, fmt.Errorf("%w: %s: status %q", ErrProviderFailure, req.Action, envelope.Status)
	}
}

func decodeDisbursement(action string, data json.RawMessage) (Disbursement, error) {
	var d disbursementData
	if err := json.Unmarshal(data, &d); err != nil {
		return Disbursement{}, fmt.Errorf("%w: %s: %v", ErrProviderUnverifiable, action, err)
	}
	if d.TransactionID == "" && d.Reference == "" {
		return Disbursement{}, fmt.Errorf("%w: %s: empty disbursement payload", ErrProviderUnverifiable, action)
	}
	return Disbursement{TransactionID: d.TransactionID, Reference: d.Reference, Status: d.Status}, nil
}

// Transfer disburses funds to the destination bank account.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (Disbursement, error) {
	data, err := c.call(ctx, apiRequest{
		Action:        "transfer",
		Amount:        req.Amount.StringFixed(money.Places),
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
		Narration:     req.Narration,
		Reference:     req.Reference,
	})
	if err != nil {
		return Disbursement{}, err
	}
	return decodeDisbursement("transfer", data)
}

// BuyAirtime delivers airtime worth the given amount to the phone number.
func (c *Client) BuyAirtime(ctx context.Context, req AirtimeRequest) (Disbursement, error) {
	data, err := c.call(ctx, apiRequest{
		Action:      "airtime",
		Amount:      req.Amount.StringFixed(money.Places),
		PhoneNumber: req.PhoneNumber,
		Network:     req.Network,
		Reference:   req.Reference,
	})
	if err != nil {
		return Disbursement{}, err
	}
	return decodeDisbursement("airtime", data)
}

// LookupAccount resolves the holder name for a destination bank account.
func (c *Client) LookupAccount(ctx context.Context, bankCode, accountNumber string) (string, error) {
	data, err := c.call(ctx, apiRequest{
		Action:        "lookup",
		BankCode:      bankCode,
		AccountNumber: accountNumber,
	})
	if err != nil {
		return "", err
	}
	var out struct {
		AccountName string `json:"account_name"`
	}
	if err := json.Unmarshal(data, &out); err != nil || out.AccountName == "" {
		return "", fmt.Errorf("%w: lookup: missing account name", ErrProviderUnverifiable)
	}
	return out.AccountName, nil
}

// Banks fetches the provider's bank directory.
func (c *Client) Banks(ctx context.Context) ([]Bank, error) {
	data, err := c.call(ctx, apiRequest{Action: "getBanks"})
	if err != nil {
		return nil, err
	}
	var banks []Bank
	if err := json.Unmarshal(data, &banks); err != nil {
		return nil, fmt.Errorf("%w: getBanks: %v", ErrProviderUnverifiable, err)
	}
	return banks, nil
}

// ReserveAccount provisions a virtual deposit account for the user.
func (c *Client) ReserveAccount(ctx context.Context, userID, accountName string) (ledger.VirtualAccount, error) {
	data, err := c.call(ctx, apiRequest{
		Action:      "reserveAccount",
		UserID:      userID,
		AccountName: accountName,
	})
	if err != nil {
		return ledger.VirtualAccount{}, err
	}
	var out struct {
		BankName      string `json:"bank_name"`
		AccountNumber string `json:"account_number"`
		AccountName   string `json:"account_name"`
		Reference     string `json:"reference"`
	}
	if err := json.Unmarshal(data, &out); err != nil || out.AccountNumber == "" {
		return ledger.VirtualAccount{}, fmt.Errorf("%w: reserveAccount: missing account number", ErrProviderUnverifiable)
	}
	return ledger.VirtualAccount{
		BankName:      out.BankName,
		AccountNumber: out.AccountNumber,
		AccountName:   out.AccountName,
		Reference:     out.Reference,
	}, nil
}
