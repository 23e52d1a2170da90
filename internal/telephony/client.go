package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/orbit-crm/orbit-server/internal/domain"
)

// CallRequest is the provider's synchronous answer to a flash-call request.
// CallbackNumber may be empty; some provider plans only deliver the number
// through the first webhook.
type CallRequest struct {
	CallbackNumber string
	RequestID      string
}

// Gateway issues an outbound "call me back" request to the voice provider.
type Gateway interface {
	RequestCall(ctx context.Context, phone, webhookURL string) (CallRequest, error)
}

// HTTPGateway talks to the real provider API with a bearer token.
type HTTPGateway struct {
	apiURL string
	token  string
	client *http.Client
}

// NewHTTPGateway builds a provider client against apiURL.
func NewHTTPGateway(apiURL, token string) *HTTPGateway {
	return &HTTPGateway{
		apiURL: apiURL,
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type callRequestBody struct {
	Phone      string `json:"phone"`
	WebhookURL string `json:"webhook_url"`
}

// callResponseBody tolerates the provider's several field spellings.
type callResponseBody struct {
	CallbackNumber string `json:"callback_number"`
	DID            string `json:"did"`
	Number         string `json:"number"`
	RequestID      string `json:"request_id"`
	CallID         string `json:"call_id"`
	Error          string `json:"error"`
	Message        string `json:"message"`
}

// RequestCall asks the provider to expect an inbound call from phone and to
// deliver progress webhooks to webhookURL. Failures surface as
// domain.ErrUpstream with provider detail and are never retried here.
func (g *HTTPGateway) RequestCall(ctx context.Context, phone, webhookURL string) (CallRequest, error) {
	payload, err := json.Marshal(callRequestBody{Phone: phone, WebhookURL: webhookURL})
	if err != nil {
		return CallRequest{}, fmt.Errorf("encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(payload))
	if err != nil {
		return CallRequest{}, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return CallRequest{}, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return CallRequest{}, fmt.Errorf("%w: read response: %v", domain.ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return CallRequest{}, fmt.Errorf("%w: gateway returned %d: %s", domain.ErrUpstream, resp.StatusCode, bytes.TrimSpace(body))
	}

	var parsed callResponseBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return CallRequest{}, fmt.Errorf("%w: decode response: %v", domain.ErrUpstream, err)
	}
	if parsed.Error != "" {
		return CallRequest{}, fmt.Errorf("%w: %s", domain.ErrUpstream, parsed.Error)
	}

	result := CallRequest{RequestID: firstNonEmpty(parsed.RequestID, parsed.CallID)}
	result.CallbackNumber = firstNonEmpty(parsed.CallbackNumber, parsed.DID, parsed.Number)
	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// StaticGateway simulates a successful provider integration for development
// runs without credentials.
type StaticGateway struct {
	// Number is returned as the callback number; defaults to a recognizable
	// placeholder when empty.
	Number string
}

// RequestCall approves the flash-call request with a synthetic reference.
func (g StaticGateway) RequestCall(_ context.Context, _, _ string) (CallRequest, error) {
	number := g.Number
	if number == "" {
		number = "+78005553535"
	}
	return CallRequest{CallbackNumber: number, RequestID: uuid.NewString()}, nil
}
