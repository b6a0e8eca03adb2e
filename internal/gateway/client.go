package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	BaseURL    string
	MerchantID string
	APIKey     string
	APISecret  string
	Timeout    time.Duration
}

// Client talks to the hosted checkout REST API. Credentials are passed in
// explicitly; the client holds no other state than its HTTP client.
type Client struct {
	baseURL    string
	merchantID string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		merchantID: config.MerchantID,
		apiKey:     config.APIKey,
		apiSecret:  config.APISecret,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// CreateHostedCheckout registers a checkout session and returns its id plus
// the URL the shopper must be redirected to.
func (c *Client) CreateHostedCheckout(ctx context.Context, req *CreateHostedCheckoutRequest) (*CreateHostedCheckoutResponse, error) {
	var resp CreateHostedCheckoutResponse

	path := fmt.Sprintf("/v2/%s/hostedcheckouts", c.merchantID)
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}

	if resp.HostedCheckoutID == "" {
		return nil, fmt.Errorf("hosted checkout response missing hostedCheckoutId")
	}

	c.logger.Info("hosted checkout created",
		"hosted_checkout_id", resp.HostedCheckoutID)

	return &resp, nil
}

// GetHostedCheckoutStatus fetches the state of a checkout session, including
// the payment it created once the shopper finished.
func (c *Client) GetHostedCheckoutStatus(ctx context.Context, hostedCheckoutID string) (*HostedCheckoutStatus, error) {
	var resp HostedCheckoutStatus

	path := fmt.Sprintf("/v2/%s/hostedcheckouts/%s", c.merchantID, url.PathEscape(hostedCheckoutID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// GetPaymentStatus fetches a single payment by its gateway id.
func (c *Client) GetPaymentStatus(ctx context.Context, paymentID string) (*Payment, error) {
	var resp Payment

	path := fmt.Sprintf("/v2/%s/payments/%s", c.merchantID, url.PathEscape(paymentID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// GetPaymentProducts lists the payment products enabled for the merchant in
// the given country and currency.
func (c *Client) GetPaymentProducts(ctx context.Context, countryCode, currencyCode string) (*PaymentProductsResponse, error) {
	var resp PaymentProductsResponse

	path := fmt.Sprintf("/v2/%s/products?countryCode=%s&currencyCode=%s",
		c.merchantID, url.QueryEscape(countryCode), url.QueryEscape(currencyCode))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// TestConnection verifies credentials against the API without creating
// anything.
func (c *Client) TestConnection(ctx context.Context) error {
	path := fmt.Sprintf("/v2/%s/services/testconnection", c.merchantID)
	return c.do(ctx, http.MethodGet, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	contentType := ""

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	date := time.Now().UTC().Format(http.TimeFormat)
	req.Header.Set("Date", date)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", c.authHeader(method, contentType, date, path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		if jsonErr := json.Unmarshal(respBody, &apiErr); jsonErr == nil && len(apiErr.Errors) > 0 {
			c.logger.Error("gateway API error",
				"status", resp.StatusCode,
				"error_id", apiErr.ErrorID,
				"code", apiErr.Errors[0].Code,
				"message", apiErr.Errors[0].Message)
			return fmt.Errorf("gateway API returned status %d: %s", resp.StatusCode, apiErr.Errors[0].Message)
		}
		return fmt.Errorf("gateway API returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// CheckoutURL resolves the shopper redirect target from a create response.
// Older API versions return only a partial URL without a scheme.
func CheckoutURL(resp *CreateHostedCheckoutResponse) string {
	if resp.RedirectURL != "" {
		return resp.RedirectURL
	}
	if resp.PartialRedirectURL != "" {
		return "https://payment." + resp.PartialRedirectURL
	}
	return ""
}

// authHeader builds the v1HMAC authorization value. The string to sign is
// method, content type, date and path, each followed by a newline.
func (c *Client) authHeader(method, contentType, date, path string) string {
	toSign := method + "\n" + contentType + "\n" + date + "\n" + path + "\n"

	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(toSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("GCS v1HMAC:%s:%s", c.apiKey, signature)
}
