package receipt

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-pos/internal/invoice"
)

// Doer sends an HTTP request. resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Webhook posts finalized invoices to an external endpoint. Retry, when set,
// is used instead of Client.
type Webhook struct {
	URL    string
	Secret string
	Client *http.Client
	Retry  Doer
	Now    func() time.Time
}

// NewHTTPClient returns a traced HTTP client for webhook delivery.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Signature computes HMAC-SHA256 over "<ts>.<invoiceID>.<body>".
func Signature(secret string, ts int64, invoiceID string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(ts, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(invoiceID))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Post delivers the invoice and its rendered receipt. Non-2xx responses are errors.
func (w *Webhook) Post(ctx context.Context, inv invoice.Invoice, text string) error {
	if w == nil || w.URL == "" {
		return nil
	}
	client := w.Client
	if client == nil {
		client = NewHTTPClient(0)
	}
	body, err := json.Marshal(struct {
		Invoice invoice.Invoice `json:"invoice"`
		Receipt string          `json:"receipt"`
	}{Invoice: inv, Receipt: text})
	if err != nil {
		return err
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	ts := now().Unix()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "pos-receipts/1.0")
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Idempotency-Key", inv.ID)
	if w.Secret != "" {
		req.Header.Set("X-Signature", Signature(w.Secret, ts, inv.ID, body))
	}
	var resp *http.Response
	if w.Retry != nil {
		resp, err = w.Retry.Do(ctx, req)
	} else {
		resp, err = client.Do(req)
	}
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("receipt webhook: %w: status %d", errWebhookStatus, resp.StatusCode)
	}
	return nil
}

var errWebhookStatus = errors.New("unexpected status")
