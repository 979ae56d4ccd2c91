// Package kite implements the market-data and order-gateway
// collaborators against the Zerodha Kite Connect REST API.
package kite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"cetrader/broker"
)

const DefaultBaseURL = "https://api.kite.trade"

type Client struct {
	BaseURL     string
	APIKey      string
	AccessToken string
	HTTP        *http.Client
}

// FromEnv builds a client from KITE_API_KEY and KITE_ACCESS_TOKEN,
// loading .env first if one is present.
func FromEnv() (*Client, error) {
	_ = godotenv.Load()

	key := os.Getenv("KITE_API_KEY")
	token := os.Getenv("KITE_ACCESS_TOKEN")
	if key == "" || token == "" {
		return nil, fmt.Errorf("kite: KITE_API_KEY and KITE_ACCESS_TOKEN must be set")
	}

	base := os.Getenv("KITE_BASE_URL")
	if base == "" {
		base = DefaultBaseURL
	}

	return &Client{
		BaseURL:     base,
		APIKey:      key,
		AccessToken: token,
		HTTP:        &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// envelope is the common Kite response wrapper.
type envelope struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	ErrorType string          `json:"error_type"`
	Data      json.RawMessage `json:"data"`
}

// do issues the request and decodes the data payload into out,
// classifying venue faults into the shared error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, form url.Values, out any) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return err
	}
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("X-Kite-Version", "3")
	req.Header.Set("Authorization", "token "+c.APIKey+":"+c.AccessToken)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		// Network faults are worth retrying at the caller's cadence.
		return broker.Transient(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return broker.Transient(err)
	}

	var env envelope
	if jsonErr := json.Unmarshal(raw, &env); jsonErr != nil && resp.StatusCode == http.StatusOK {
		return fmt.Errorf("kite: decode response: %w", jsonErr)
	}

	if resp.StatusCode != http.StatusOK {
		return classify(resp.StatusCode, env)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("kite: decode data: %w", err)
		}
	}
	return nil
}

// get issues a GET returning the raw body, for CSV endpoints.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	u.Path = path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Kite-Version", "3")
	req.Header.Set("Authorization", "token "+c.APIKey+":"+c.AccessToken)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, broker.Transient(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, broker.Transient(err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := raw
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, classify(resp.StatusCode, envelope{Message: strings.TrimSpace(string(snippet))})
	}
	return raw, nil
}

// classify maps a venue fault onto the shared taxonomy.
func classify(status int, env envelope) error {
	msg := env.Message
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusForbidden || env.ErrorType == "TokenException" || env.ErrorType == "PermissionException":
		return fmt.Errorf("%w: %s", broker.ErrAuth, msg)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", broker.ErrUnknownInstrument, msg)
	case status == http.StatusTooManyRequests || status >= 500 || env.ErrorType == "NetworkException":
		return broker.Transient(fmt.Errorf("kite: http %d: %s", status, msg))
	default:
		return fmt.Errorf("kite: http %d: %s", status, msg)
	}
}
