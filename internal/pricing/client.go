// Package pricing is the vendor computePrice client. Each call validates the
// outgoing payload, retries transport failures with a fixed pause, and makes
// one repair attempt on an invalid-attribute rejection.
package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/donaldgifford/print-price-matrix/internal/metrics"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

const (
	defaultBaseURL        = "https://calculator.uprinting.com/v1"
	defaultWebsiteCode    = "UP"
	defaultMaxAttempts    = 3
	defaultRetryPause     = time.Second
	defaultSuspiciousMark = "20"

	// NotAvailable fills quote fields the vendor left out.
	NotAvailable = "N/A"

	maxMessageLen = 200
)

var invalidAttrPattern = regexp.MustCompile(`(?i)invalid attribute value(?:\s+id)?\s*:?\s*(\d+)`)

// Quote is a successful pricing response.
type Quote struct {
	Price      string
	TotalPrice string
	UnitPrice  string
	Quantity   string
	Turnaround string
	Suspicious bool
	Repaired   bool
	Attempts   int
	Payload    domain.SlotPayload
	Raw        json.RawMessage
}

// Client calls the vendor's computePrice endpoint. A Client is safe for
// sequential reuse; it holds one http.Client for the lifetime of a run.
type Client struct {
	baseURL     string
	websiteCode string
	authHeader  string
	userAgent   string
	referer     string
	maxAttempts int
	retryPause  time.Duration
	suspicious  string
	client      *http.Client
	rateLimiter *RateLimiter
	validate    *validator.Validate
	log         *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithWebsiteCode overrides the website_code query parameter.
func WithWebsiteCode(code string) Option {
	return func(c *Client) {
		c.websiteCode = code
	}
}

// WithAuthHeader sets the Authorization header sent with every request.
func WithAuthHeader(h string) Option {
	return func(c *Client) {
		c.authHeader = h
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithReferer sets the Referer header.
func WithReferer(r string) Option {
	return func(c *Client) {
		c.referer = r
	}
}

// WithHTTPClient overrides the default HTTP client. Its Timeout is the
// per-call network timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithRetry sets the transport retry budget and the fixed pause between attempts.
func WithRetry(maxAttempts int, pause time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if pause >= 0 {
			c.retryPause = pause
		}
	}
}

// WithSuspiciousPrice sets the sentinel price that marks a quote suspicious.
func WithSuspiciousPrice(p string) Option {
	return func(c *Client) {
		c.suspicious = p
	}
}

// WithRateLimiter injects a limiter consulted before every HTTP attempt.
func WithRateLimiter(r *RateLimiter) Option {
	return func(c *Client) {
		c.rateLimiter = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// New creates a pricing client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		websiteCode: defaultWebsiteCode,
		maxAttempts: defaultMaxAttempts,
		retryPause:  defaultRetryPause,
		suspicious:  defaultSuspiciousMark,
		client:      &http.Client{Timeout: 15 * time.Second},
		validate:    validator.New(),
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RateLimiter returns the configured limiter, or nil.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// Price requests a quote for one combination. It returns a *ValidationError,
// *RejectionError or *TransportError on failure. A rejection naming an
// invalid attribute value present in payload is repaired once by dropping
// that slot and resending.
func (c *Client) Price(
	ctx context.Context,
	productID string,
	payload domain.SlotPayload,
) (*Quote, error) {
	ctx, span := otel.Tracer("github.com/donaldgifford/print-price-matrix/internal/pricing").
		Start(ctx, "pricing.Price")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", productID),
		attribute.Int("payload.slots", len(payload)),
	)

	start := time.Now()
	quote, err := c.price(ctx, productID, payload)
	metrics.PricingRequestDuration.Observe(time.Since(start).Seconds())
	metrics.PricingRequestsTotal.WithLabelValues(OutcomeLabel(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, OutcomeLabel(err))
		return nil, err
	}
	if quote.Suspicious {
		metrics.PricingSuspiciousTotal.Inc()
	}
	span.SetAttributes(
		attribute.Int("pricing.attempts", quote.Attempts),
		attribute.Bool("pricing.suspicious", quote.Suspicious),
		attribute.Bool("pricing.repaired", quote.Repaired),
	)
	return quote, nil
}

func (c *Client) price(ctx context.Context, productID string, payload domain.SlotPayload) (*Quote, error) {
	if err := c.Validate(productID, payload); err != nil {
		return nil, err
	}

	quote, attempts, err := c.send(ctx, productID, payload)
	if err == nil {
		quote.Attempts = attempts
		quote.Payload = payload
		return quote, nil
	}

	var rej *RejectionError
	if !errors.As(err, &rej) {
		return nil, err
	}

	repaired, ok := RepairPayload(payload, rej.Message)
	if !ok {
		return nil, err
	}

	metrics.PricingRepairsTotal.Inc()
	c.log.Debug("repairing pricing payload",
		"product_id", productID,
		"message", rej.Message,
		"removed", len(payload)-len(repaired),
	)

	quote, more, err := c.send(ctx, productID, repaired)
	attempts += more
	if err != nil {
		switch e := err.(type) {
		case *RejectionError:
			e.Attempts = attempts
		case *TransportError:
			e.Attempts = attempts
		}
		return nil, err
	}

	quote.Attempts = attempts
	quote.Repaired = true
	quote.Payload = repaired
	return quote, nil
}

// Validate checks a payload without sending it: product id present, at least
// one slot, every slot value a non-negative integer string.
func (c *Client) Validate(productID string, payload domain.SlotPayload) error {
	if err := c.validate.Var(productID, "required"); err != nil {
		return &ValidationError{Field: "product_id", Reason: "is required"}
	}
	if len(payload) == 0 {
		return &ValidationError{Field: "payload", Reason: "has no attribute slots"}
	}
	for _, slot := range sortedSlots(payload) {
		if err := c.validate.Var(payload[slot], "required,number"); err != nil {
			return &ValidationError{
				Field:  string(slot),
				Reason: fmt.Sprintf("value %q is not a non-negative integer", payload[slot]),
			}
		}
	}
	return nil
}

// RepairPayload removes the slot(s) holding the value ID named by an
// invalid-attribute rejection message. ok is false when the message does not
// match or nothing would change.
func RepairPayload(payload domain.SlotPayload, message string) (domain.SlotPayload, bool) {
	m := invalidAttrPattern.FindStringSubmatch(message)
	if m == nil {
		return payload, false
	}

	repaired := payload.Clone()
	for slot, v := range payload {
		if v == m[1] {
			delete(repaired, slot)
		}
	}
	// Dropping every slot would send an empty payload, which the vendor
	// can never price.
	if len(repaired) == len(payload) || len(repaired) == 0 {
		return payload, false
	}
	return repaired, true
}

// send posts one payload with transport retries and returns the number of
// HTTP attempts made.
func (c *Client) send(
	ctx context.Context,
	productID string,
	payload domain.SlotPayload,
) (*Quote, int, error) {
	body, err := json.Marshal(requestBody(productID, payload))
	if err != nil {
		return nil, 0, &ValidationError{Field: "payload", Reason: err.Error()}
	}

	attempts := 0
	op := func() (*Quote, error) {
		attempts++
		return c.do(ctx, body)
	}

	quote, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retryPause)),
		backoff.WithMaxTries(uint(c.maxAttempts)),
		backoff.WithNotify(func(err error, d time.Duration) {
			metrics.PricingRetriesTotal.Inc()
			c.log.Debug("retrying pricing request", "error", err, "in", d)
		}),
	)
	if err == nil {
		return quote, attempts, nil
	}

	var rej *RejectionError
	if errors.As(err, &rej) {
		rej.Attempts = attempts
		return nil, attempts, rej
	}
	return nil, attempts, &TransportError{Attempts: attempts, Err: err}
}

// do performs a single HTTP attempt. Rejections are wrapped as permanent so
// the retry loop returns them immediately.
func (c *Client) do(ctx context.Context, body []byte) (*Quote, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			if errors.Is(err, ErrDailyLimitReached) {
				metrics.VendorDailyLimitHits.Inc()
			}
			return nil, backoff.Permanent(fmt.Errorf("rate limit: %w", err))
		}
		metrics.VendorDailyUsage.Set(float64(c.rateLimiter.DailyCount()))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.priceURL(), bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing pricing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &retryableStatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw))}
	default:
		return nil, backoff.Permanent(&RejectionError{
			StatusCode: resp.StatusCode,
			Message:    rejectionMessage(raw),
		})
	}

	var pr priceResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("parsing pricing response: %w", err)
	}

	q := &Quote{
		Price:      pr.Price.orNA(),
		TotalPrice: pr.TotalPrice.orNA(),
		UnitPrice:  pr.UnitPrice.orNA(),
		Quantity:   pr.Qty.orNA(),
		Turnaround: pr.Turnaround.orNA(),
		Raw:        json.RawMessage(raw),
	}
	q.Suspicious = q.Price == NotAvailable || q.Price == c.suspicious
	return q, nil
}

func (c *Client) priceURL() string {
	return c.baseURL + "/computePrice?" + url.Values{"website_code": {c.websiteCode}}.Encode()
}

func requestBody(productID string, payload domain.SlotPayload) map[string]string {
	body := make(map[string]string, len(payload)+1)
	for slot, v := range payload {
		body[string(slot)] = v
	}
	body["product_id"] = productID
	return body
}

type priceResponse struct {
	Price      flexString `json:"price"`
	TotalPrice flexString `json:"total_price"`
	UnitPrice  flexString `json:"unit_price"`
	Qty        flexString `json:"qty"`
	Turnaround flexString `json:"turnaround"`
}

// flexString decodes a JSON string or number verbatim.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

func (f flexString) orNA() string {
	if f == "" {
		return NotAvailable
	}
	return string(f)
}

func rejectionMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return truncate(body.Message)
		}
		if body.Error != "" {
			return truncate(body.Error)
		}
	}
	return truncate(string(raw))
}

// truncate cuts s to at most maxMessageLen bytes without splitting a rune.
func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	cut := maxMessageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func sortedSlots(p domain.SlotPayload) []domain.SlotID {
	slots := make([]domain.SlotID, 0, len(p))
	for s := range p {
		slots = append(slots, s)
	}
	slices.Sort(slots)
	return slots
}
