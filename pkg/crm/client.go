package crm

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
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/rockcreekarms/ordersync-backend/pkg/config"
	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
	"github.com/rockcreekarms/ordersync-backend/pkg/metrics"
)

const apiBasePath = "/crm/v2"

// Write result codes returned inside the CRM's data envelope.
const (
	resultCodeSuccess   = "SUCCESS"
	resultCodeDuplicate = "DUPLICATE_DATA"
)

// criteriaEscaper neutralizes the characters the CRM's search grammar treats
// as syntax, so interpolated values cannot break out of their clause.
var criteriaEscaper = strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`, ",", `\,`)

// searchCriteria builds a single equals clause for the search endpoint.
func searchCriteria(field, value string) string {
	return fmt.Sprintf("(%s:equals:%s)", field, criteriaEscaper.Replace(value))
}

var (
	errLoggerRequired = errors.New("crm logger is required")
	errTokensRequired = errors.New("crm token source is required")

	// errNoContent marks an empty search result (HTTP 204).
	errNoContent = errors.New("crm: no content")
)

// Client is the REST gateway to the CRM with centralized auth, retry,
// logging, and error mapping.
type Client struct {
	httpClient  *http.Client
	apiHost     string
	tokens      TokenSource
	logger      *logger.Logger
	metrics     *metrics.SyncMetrics
	maxAttempts uint64
	retryBase   time.Duration
	callTimeout time.Duration
}

// NewClient initializes the CRM gateway.
func NewClient(ctx context.Context, cfg config.CRMConfig, tokens TokenSource, logg *logger.Logger, m *metrics.SyncMetrics) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if tokens == nil {
		return nil, errTokensRequired
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = 500 * time.Millisecond
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.CallTimeout},
		apiHost:     strings.TrimRight(cfg.APIHost, "/"),
		tokens:      tokens,
		logger:      logg,
		metrics:     m,
		maxAttempts: uint64(maxAttempts),
		retryBase:   retryBase,
		callTimeout: cfg.CallTimeout,
	}

	logg.Info(ctx, "crm client initialized")
	return c, nil
}

// doJSON performs one CRM call with bounded exponential backoff. Out may be
// nil when the caller only cares about the status. A 204 returns errNoContent.
func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, body any, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("encoding %s request", op))
		}
		payload = encoded
	}

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveCRMCall(op, time.Since(start))
		}
	}()

	backoff := retry.WithMaxRetries(c.maxAttempts-1, retry.NewExponential(c.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptErr := c.attempt(ctx, op, method, path, query, payload, out)
		if attemptErr == nil || errors.Is(attemptErr, errNoContent) {
			return attemptErr
		}
		if pkgerrors.Retryable(attemptErr) {
			return retry.RetryableError(attemptErr)
		}
		return attemptErr
	})
	return err
}

func (c *Client) attempt(ctx context.Context, op, method, path string, query url.Values, payload []byte, out any) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	endpoint := c.apiHost + apiBasePath + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("building %s request", op))
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log(ctx, "request", op, map[string]any{"method": method, "path": path})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("crm %s failed", op))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("reading %s response", op))
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return errNoContent
	case resp.StatusCode == http.StatusUnauthorized:
		// Expired or revoked token: drop the cache so the retry refreshes.
		c.tokens.Invalidate()
		c.log(ctx, "error", op, map[string]any{"status": resp.StatusCode})
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("crm %s unauthorized", op))
	case resp.StatusCode >= 400:
		code := domainCodeForStatus(resp.StatusCode)
		c.log(ctx, "error", op, map[string]any{"status": resp.StatusCode, "body": truncate(raw, 512)})
		return pkgerrors.New(code, fmt.Sprintf("crm %s failed (status %d)", op, resp.StatusCode)).
			WithDetails(map[string]any{"status": resp.StatusCode})
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decoding %s response", op))
		}
	}

	c.log(ctx, "response", op, map[string]any{"status": resp.StatusCode})
	return nil
}

// writeResult is one element of the CRM's write response envelope.
type writeResult struct {
	Code    string `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Details struct {
		ID string `json:"id"`
	} `json:"details"`
}

type writeEnvelope struct {
	Data []writeResult `json:"data"`
}

// firstWriteResult validates a write envelope and returns its first entry.
func firstWriteResult(op string, env writeEnvelope) (writeResult, error) {
	if len(env.Data) == 0 {
		return writeResult{}, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("crm %s returned empty envelope", op))
	}
	return env.Data[0], nil
}

// IsDuplicate reports whether err is a CRM duplicate-record conflict.
func IsDuplicate(err error) bool {
	typed := pkgerrors.As(err)
	return typed != nil && typed.Code() == pkgerrors.CodeConflict
}

// IsNoContent reports whether err marks an empty search result.
func IsNoContent(err error) bool {
	return errors.Is(err, errNoContent)
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("crm %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("crm %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "secret", "email", "phone", "address"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func truncate(raw []byte, limit int) string {
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit]) + "..."
}
