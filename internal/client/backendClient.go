package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"travel-storefront/internal/config"
	"travel-storefront/internal/model"

	"github.com/google/uuid"
)

var ErrUnauthorized = errors.New("session expired")

const genericErrorMessage = "Error en la operación"

// APIError is a non-2xx answer from the storefront backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// UserMessage returns the text to show for any error coming out of the client.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return genericErrorMessage
}

type TokenSource interface {
	Token() string
}

type BackendClient interface {
	ListDestinations(ctx context.Context) ([]model.Destination, error)
	ListCart(ctx context.Context) ([]model.CartLineItem, error)
	AddToCart(ctx context.Context, req model.AddToCartRequest) error
	RemoveFromCart(ctx context.Context, lineID int64) error
	UpdateQuantity(ctx context.Context, lineID int64, quantity model.Quantity) error
	UpdateDate(ctx context.Context, lineID int64, date model.Date) error
	Checkout(ctx context.Context, req model.CheckoutRequest) (*CheckoutResponse, error)
	ListPaymentMethods(ctx context.Context) ([]model.PaymentMethod, error)
	ListPurchases(ctx context.Context) ([]model.Purchase, error)
	OnUnauthorized(fn func())
}

type CheckoutResponse struct {
	Message string `json:"message"`
}

type backendClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	tokens     TokenSource

	mu             sync.RWMutex
	onUnauthorized func()
}

func NewBackendClient(backendCfg *config.Backend, tokens TokenSource) BackendClient {
	timeout := backendCfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &backendClientImpl{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseApiURL: strings.TrimRight(backendCfg.BaseURL, "/"),
		tokens:     tokens,
	}
}

func (c *backendClientImpl) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *backendClientImpl) ListDestinations(ctx context.Context) ([]model.Destination, error) {
	var out []model.Destination
	if err := c.do(ctx, http.MethodGet, "/destinos/", nil, &out, nil); err != nil {
		return nil, fmt.Errorf("list destinations: %w", err)
	}
	return out, nil
}

func (c *backendClientImpl) ListCart(ctx context.Context) ([]model.CartLineItem, error) {
	var out []model.CartLineItem
	if err := c.do(ctx, http.MethodGet, "/cart/", nil, &out, nil); err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	return out, nil
}

func (c *backendClientImpl) AddToCart(ctx context.Context, req model.AddToCartRequest) error {
	if err := c.do(ctx, http.MethodPost, "/cart/add/", req, nil, nil); err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}
	return nil
}

func (c *backendClientImpl) RemoveFromCart(ctx context.Context, lineID int64) error {
	path := fmt.Sprintf("/cart/remove/%d/", lineID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("remove cart line %d: %w", lineID, err)
	}
	return nil
}

func (c *backendClientImpl) UpdateQuantity(ctx context.Context, lineID int64, quantity model.Quantity) error {
	path := fmt.Sprintf("/cart/%d/update-quantity/", lineID)
	body := map[string]int{"cantidad": quantity.Int()}
	if err := c.do(ctx, http.MethodPut, path, body, nil, nil); err != nil {
		return fmt.Errorf("update quantity of line %d: %w", lineID, err)
	}
	return nil
}

func (c *backendClientImpl) UpdateDate(ctx context.Context, lineID int64, date model.Date) error {
	path := fmt.Sprintf("/cart/%d/update-date/", lineID)
	body := map[string]model.Date{"fecha_salida": date}
	if err := c.do(ctx, http.MethodPut, path, body, nil, nil); err != nil {
		return fmt.Errorf("update date of line %d: %w", lineID, err)
	}
	return nil
}

func (c *backendClientImpl) Checkout(ctx context.Context, req model.CheckoutRequest) (*CheckoutResponse, error) {
	headers := map[string]string{
		"Idempotency-Key": uuid.NewString(),
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/checkout/", req, &raw, headers); err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}

	// the outcome body varies between backend versions, a 2xx is what counts
	var out CheckoutResponse
	_ = json.Unmarshal(raw, &out)
	return &out, nil
}

func (c *backendClientImpl) ListPaymentMethods(ctx context.Context) ([]model.PaymentMethod, error) {
	var out []model.PaymentMethod
	if err := c.do(ctx, http.MethodGet, "/metodos-pago/", nil, &out, nil); err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return out, nil
}

func (c *backendClientImpl) ListPurchases(ctx context.Context) ([]model.Purchase, error) {
	var out []model.Purchase
	if err := c.do(ctx, http.MethodGet, "/purchases/", nil, &out, nil); err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return out, nil
}

func (c *backendClientImpl) do(ctx context.Context, method, path string, payload, out any, headers map[string]string) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal req payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseApiURL+path, body)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized {
			c.unauthorized()
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    extractMessage(b),
		}
	}

	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}

func (c *backendClientImpl) unauthorized() {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// extractMessage picks the human readable part of an error body.
func extractMessage(b []byte) string {
	var body struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return genericErrorMessage
	}

	if body.Message != "" {
		return body.Message
	}
	if body.Detail != "" {
		return body.Detail
	}
	switch e := body.Error.(type) {
	case map[string]any:
		if msg, ok := e["message"].(string); ok && msg != "" {
			return msg
		}
	case string:
		if e != "" {
			return e
		}
	}
	return genericErrorMessage
}
