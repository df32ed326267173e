package payments

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"storefront/internal/domain"
)

const defaultMidtransBaseURL = "https://app.sandbox.midtrans.com"

type MidtransConfig struct {
	ServerKey  string
	BaseURL    string
	HTTPClient *http.Client
}

// MidtransProvider creates Snap transactions.
type MidtransProvider struct {
	serverKey string
	baseURL   string
	client    *http.Client
}

func NewMidtransProvider(cfg MidtransConfig) (*MidtransProvider, error) {
	key := strings.TrimSpace(cfg.ServerKey)
	if key == "" {
		return nil, errors.New("midtrans: server key is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultMidtransBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &MidtransProvider{serverKey: key, baseURL: base, client: client}, nil
}

func (p *MidtransProvider) Name() string { return ProviderMidtrans }

type snapRequest struct {
	TransactionDetails snapTransaction `json:"transaction_details"`
	CustomerDetails    *snapCustomer   `json:"customer_details,omitempty"`
	Callbacks          *snapCallbacks  `json:"callbacks,omitempty"`
}

type snapTransaction struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type snapCustomer struct {
	FirstName string `json:"first_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type snapCallbacks struct {
	Finish string `json:"finish,omitempty"`
}

type snapResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages"`
}

// CreateCheckoutSession creates a Snap transaction and returns its redirect URL.
func (p *MidtransProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	body := snapRequest{
		TransactionDetails: snapTransaction{OrderID: req.OrderID, GrossAmount: req.Amount},
	}
	if c := req.Customer; c.Name != "" || c.Email != "" || c.Phone != "" {
		body.CustomerDetails = &snapCustomer{FirstName: c.Name, Email: c.Email, Phone: c.Phone}
	}
	if req.SuccessURL != "" {
		body.Callbacks = &snapCallbacks{Finish: req.SuccessURL}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("midtrans: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/snap/v1/transactions", bytes.NewReader(payload))
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("midtrans: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(p.serverKey, "")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("midtrans: create transaction: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("midtrans: read response: %w", err)
	}
	var out snapResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return CheckoutSession{}, fmt.Errorf("midtrans: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || out.RedirectURL == "" {
		return CheckoutSession{}, fmt.Errorf("midtrans: create transaction failed with status %d: %s", resp.StatusCode, strings.Join(out.ErrorMessages, "; "))
	}

	return CheckoutSession{
		ID:          out.Token,
		Provider:    ProviderMidtrans,
		RedirectURL: out.RedirectURL,
	}, nil
}

// MidtransNotification is the HTTP notification body Midtrans posts on status changes.
type MidtransNotification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	FraudStatus       string `json:"fraud_status,omitempty"`
	PaymentType       string `json:"payment_type,omitempty"`
}

// EventID is the transaction id, or the order id when Midtrans omitted it.
func (n MidtransNotification) EventID() string {
	if id := strings.TrimSpace(n.TransactionID); id != "" {
		return id
	}
	return strings.TrimSpace(n.OrderID)
}

// MidtransSignature is hex(sha512(order_id + status_code + gross_amount + server_key)).
func MidtransSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifyMidtransSignature checks the notification signature in constant time.
func VerifyMidtransSignature(n MidtransNotification, serverKey string) error {
	if strings.TrimSpace(serverKey) == "" {
		return domain.ErrMissingServerKey
	}
	expected := MidtransSignature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	got := strings.ToLower(strings.TrimSpace(n.SignatureKey))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
		return domain.ErrInvalidSignature
	}
	return nil
}
