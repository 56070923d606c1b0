package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPGateway talks JSON over HTTP to the payment provider's intents API.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGateway(baseURL, apiKey string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type createIntentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type intentResponse struct {
	ID           string        `json:"id"`
	ClientSecret string        `json:"client_secret"`
	Status       string        `json:"status"`
	Error        *gatewayError `json:"error,omitempty"`
}

type gatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (g *HTTPGateway) CreateIntent(ctx context.Context, amount int64, currency string, meta Metadata) (*Intent, error) {
	body := createIntentRequest{
		Amount:   amount,
		Currency: currency,
		Metadata: map[string]string{
			"customer_email": meta.CustomerEmail,
			"customer_name":  meta.CustomerName,
			"item_summary":   meta.ItemSummary,
			"checkout_id":    meta.CheckoutID,
		},
	}

	var resp intentResponse
	if err := g.post(ctx, "/v1/payment_intents", body, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, &GatewayError{Kind: classifyCode(resp.Error.Code), Message: resp.Error.Message}
	}
	if resp.ID == "" || resp.ClientSecret == "" {
		return nil, &GatewayError{Kind: KindAPIError, Message: "gateway returned an incomplete intent"}
	}

	return &Intent{ID: resp.ID, ClientSecret: resp.ClientSecret}, nil
}

func (g *HTTPGateway) ConfirmIntent(ctx context.Context, intentID string) (*Confirmation, error) {
	var resp intentResponse
	path := fmt.Sprintf("/v1/payment_intents/%s/confirm", intentID)
	if err := g.post(ctx, path, struct{}{}, &resp); err != nil {
		return nil, err
	}

	switch IntentStatus(resp.Status) {
	case StatusSucceeded:
		return &Confirmation{Status: StatusSucceeded}, nil
	case StatusProcessing:
		return &Confirmation{Status: StatusProcessing}, nil
	case StatusRequiresAction:
		return &Confirmation{Status: StatusRequiresAction}, nil
	}

	gwErr := &GatewayError{Kind: KindAPIError, Message: "payment failed"}
	if resp.Error != nil {
		gwErr = &GatewayError{Kind: classifyCode(resp.Error.Code), Message: resp.Error.Message}
	}
	return &Confirmation{Status: StatusFailed, Err: gwErr}, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		// an aborted request is the caller's cancellation, not a gateway fault
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &GatewayError{Kind: KindNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &GatewayError{Kind: KindRateLimited, Message: "gateway rate limit exceeded"}
	}
	if resp.StatusCode >= 500 {
		return &GatewayError{Kind: KindAPIError, Message: fmt.Sprintf("gateway returned %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &GatewayError{Kind: KindAPIError, Message: fmt.Sprintf("malformed gateway response: %v", err)}
	}
	return nil
}
