package privileged

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/medstock/medstock/internal/orders"
)

// Client invokes the privileged status function over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient constructs a client for the function hosted at baseURL
// (e.g. https://host/functions/v1). A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + Route,
		httpClient: httpClient,
	}
}

// UpdateStatus asks the function to move order id to target.
func (c *Client) UpdateStatus(ctx context.Context, credential string, id uuid.UUID, target orders.Status) (orders.Order, error) {
	if credential == "" {
		return orders.Order{}, fmt.Errorf("%w: bearer credential required", orders.ErrValidation)
	}
	body, err := json.Marshal(UpdateRequest{OrderID: id.String(), TargetStatus: string(target)})
	if err != nil {
		return orders.Order{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return orders.Order{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return orders.Order{}, err
		}
		return orders.Order{}, fmt.Errorf("%w: %v", orders.ErrTransient, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return orders.Order{}, fmt.Errorf("%w: read response: %v", orders.ErrTransient, err)
	}

	if resp.StatusCode >= 300 {
		var problem errorResponse
		_ = json.Unmarshal(payload, &problem)
		msg := problem.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return orders.Order{}, classifyStatus(resp.StatusCode, msg)
	}

	var out orders.OrderResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return orders.Order{}, fmt.Errorf("decode function response: %w", err)
	}
	return out.ToOrder()
}

func classifyStatus(code int, msg string) error {
	switch code {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", orders.ErrValidation, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", orders.ErrForbidden, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", orders.ErrNotFound, msg)
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", orders.ErrIllegalTransition, msg)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", orders.ErrTransient, msg)
	default:
		return fmt.Errorf("function returned status %d: %s", code, msg)
	}
}

var _ orders.PrivilegedInvoker = (*Client)(nil)
