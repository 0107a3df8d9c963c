package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// IntentCreator obtains a charge intent from the payment provider.
type IntentCreator interface {
	// CreateIntent opens an intent for the given USD amount in cents and
	// returns the provider intent ID and the client secret the frontend
	// confirms the charge with.
	CreateIntent(ctx context.Context, amountCents int64) (intentID, clientSecret string, err error)
}

// AmountCents converts a dollar price into the integer cent amount the
// provider expects.
func AmountCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

const stripeBaseURL = "https://api.stripe.com"

// StripeClient implements IntentCreator against the Stripe REST API.
type StripeClient struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

// NewStripeClient creates a client authenticated with the given secret key.
func NewStripeClient(secretKey string) *StripeClient {
	return &StripeClient{
		secretKey: secretKey,
		baseURL:   stripeBaseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// NewStripeClientWithBaseURL is used by tests to point at a stub server.
func NewStripeClientWithBaseURL(secretKey, baseURL string) *StripeClient {
	c := NewStripeClient(secretKey)
	c.baseURL = baseURL
	return c
}

type stripeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type stripeError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// CreateIntent posts a payment_intents request with card payment enabled.
func (c *StripeClient) CreateIntent(ctx context.Context, amountCents int64) (string, string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", "usd")
	form.Set("payment_method_types[]", "card")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", fmt.Errorf("build intent request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("create intent: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", "", fmt.Errorf("read intent response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr stripeError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", "", fmt.Errorf("stripe: %s (%s)", apiErr.Error.Message, apiErr.Error.Type)
		}
		return "", "", fmt.Errorf("stripe: unexpected status %d", resp.StatusCode)
	}

	var intent stripeIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return "", "", fmt.Errorf("decode intent response: %w", err)
	}
	if intent.ClientSecret == "" {
		return "", "", fmt.Errorf("stripe: response missing client secret")
	}
	return intent.ID, intent.ClientSecret, nil
}

// DisabledIntents is used when no provider key is configured. Every
// intent request fails cleanly instead of panicking on a nil client.
type DisabledIntents struct{}

func (DisabledIntents) CreateIntent(ctx context.Context, amountCents int64) (string, string, error) {
	return "", "", fmt.Errorf("payment provider not configured")
}
