package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	tokenPath  = "/v1/oauth2/token"
	ordersPath = "/v2/checkout/orders"

	// tokens are refreshed this long before the provider expires them
	tokenSkew = 60 * time.Second

	maxDiagnostic = 300
)

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Currency     string
	Timeout      time.Duration

	// consecutive transport or 5xx failures before the breaker opens
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

type response struct {
	status int
	body   []byte
}

type accessToken struct {
	value     string
	expiresAt time.Time
}

// Client is a PayPal REST client for the orders API.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*response]
	log     zerolog.Logger
	now     func() time.Time

	mu    sync.Mutex
	token accessToken
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	return newClient(cfg, &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}, log)
}

func newClient(cfg Config, hc *http.Client, log zerolog.Logger) *Client {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:  cfg,
		http: hc,
		log:  log.With().Str("component", "paypal").Logger(),
		now:  time.Now,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "paypal",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return c
}

// CreateOrder opens a provider order for amount and returns its id.
func (c *Client) CreateOrder(ctx context.Context, amount string) (string, error) {
	const op = "create order"

	body, err := json.Marshal(map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": map[string]string{"currency_code": c.cfg.Currency, "value": amount},
		}},
	})
	if err != nil {
		return "", &domain.ProviderError{Op: op, Err: err}
	}

	resp, err := c.authorized(ctx, op, http.MethodPost, ordersPath, body)
	if err != nil {
		return "", err
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.body, &out); err != nil || out.ID == "" {
		return "", malformed(op, resp, err)
	}
	return out.ID, nil
}

// CapturePayment captures an approved provider order.
func (c *Client) CapturePayment(ctx context.Context, providerOrderID string) (*domain.CaptureResult, error) {
	const op = "capture"

	path := ordersPath + "/" + url.PathEscape(providerOrderID) + "/capture"
	resp, err := c.authorized(ctx, op, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}

	var out captureResponse
	if err := json.Unmarshal(resp.body, &out); err != nil || out.ID == "" || out.Status == "" {
		return nil, malformed(op, resp, err)
	}
	return &domain.CaptureResult{
		ID:         out.ID,
		Status:     out.Status,
		PayerEmail: out.Payer.EmailAddress,
		AmountPaid: out.amountPaid(),
	}, nil
}

type amount struct {
	Value string `json:"value"`
}

type captureResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Payer  struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
	PurchaseUnits []struct {
		Amount   amount `json:"amount"`
		Payments struct {
			Captures []struct {
				Amount amount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// amountPaid prefers the captured amount and falls back to the unit amount.
func (r captureResponse) amountPaid() string {
	if len(r.PurchaseUnits) == 0 {
		return ""
	}
	pu := r.PurchaseUnits[0]
	if len(pu.Payments.Captures) > 0 && pu.Payments.Captures[0].Amount.Value != "" {
		return pu.Payments.Captures[0].Amount.Value
	}
	return pu.Amount.Value
}

// authorized sends a bearer-authenticated JSON request and expects a 2xx reply.
// A 401 means the cached token was revoked early, so the request is repeated
// once with a fresh token.
func (c *Client) authorized(ctx context.Context, op, method, path string, body []byte) (*response, error) {
	for attempt := 1; ; attempt++ {
		token, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := c.do(ctx, op, func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Content-Type", "application/json")
			return req, nil
		})
		if err != nil {
			return nil, err
		}

		if resp.status == http.StatusUnauthorized {
			c.dropToken(token)
			if attempt == 1 {
				c.log.Debug().Str("op", op).Msg("access token rejected, retrying with a new one")
				continue
			}
		}
		if resp.status < 200 || resp.status > 299 {
			return nil, statusError(op, resp)
		}
		return resp, nil
	}
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	const op = "token"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.value != "" && c.now().Before(c.token.expiresAt.Add(-tokenSkew)) {
		return c.token.value, nil
	}

	resp, err := c.do(ctx, op, func(ctx context.Context) (*http.Request, error) {
		form := url.Values{"grant_type": {"client_credentials"}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+tokenPath, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	if resp.status != http.StatusOK {
		return "", statusError(op, resp)
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(resp.body, &out); err != nil || out.AccessToken == "" {
		return "", malformed(op, resp, err)
	}

	c.token = accessToken{
		value:     out.AccessToken,
		expiresAt: c.now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}
	return c.token.value, nil
}

// dropToken forgets token unless another caller already replaced it.
func (c *Client) dropToken(token string) {
	c.mu.Lock()
	if c.token.value == token {
		c.token = accessToken{}
	}
	c.mu.Unlock()
}

// do runs one HTTP exchange through the circuit breaker. Transport errors and
// 5xx replies count as breaker failures; every other reply is returned as is.
func (c *Client) do(ctx context.Context, op string, build func(ctx context.Context) (*http.Request, error)) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.breaker.Execute(func() (*response, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		httpResp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer httpResp.Body.Close()

		body, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, err
		}
		r := &response{status: httpResp.StatusCode, body: body}
		if r.status >= 500 {
			return r, statusError(op, r)
		}
		return r, nil
	})
	if err != nil {
		var pe *domain.ProviderError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, &domain.ProviderError{Op: op, Err: err}
	}
	return resp, nil
}

func statusError(op string, r *response) *domain.ProviderError {
	return &domain.ProviderError{Op: op, StatusCode: r.status, Diagnostic: diagnostic(r.body)}
}

func malformed(op string, r *response, err error) *domain.ProviderError {
	if err == nil {
		err = errors.New("missing fields in response")
	}
	return &domain.ProviderError{
		Op:         op,
		StatusCode: r.status,
		Diagnostic: diagnostic(r.body),
		Err:        fmt.Errorf("malformed response: %w", err),
	}
}

// diagnostic extracts the provider's error code and message from body.
func diagnostic(body []byte) string {
	var e struct {
		Name    string `json:"name"`
		Message string `json:"message"`
		DebugID string `json:"debug_id"`
		Details []struct {
			Issue       string `json:"issue"`
			Description string `json:"description"`
		} `json:"details"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(body, &e) == nil {
		var parts []string
		switch {
		case len(e.Details) > 0:
			parts = append(parts, e.Details[0].Issue, e.Details[0].Description)
		case e.Name != "":
			parts = append(parts, e.Name, e.Message)
		case e.Error != "":
			parts = append(parts, e.Error, e.ErrorDescription)
		}
		if e.DebugID != "" {
			parts = append(parts, "debug_id="+e.DebugID)
		}
		if msg := strings.Join(nonEmpty(parts), " "); msg != "" {
			return msg
		}
	}

	raw := strings.TrimSpace(string(body))
	if len(raw) > maxDiagnostic {
		raw = raw[:maxDiagnostic]
	}
	return raw
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
