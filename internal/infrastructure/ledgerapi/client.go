package ledgerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/batchly/backend/internal/domain/ledger"
)

// maxResponseSize is the maximum allowed response size from the ledger API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Config holds the ledger API connection configuration
type Config struct {
	APIBaseURL     string
	TokenURL       string
	ClientID       string
	ClientSecret   string
	TimeoutSeconds int
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("ledgerapi: API base URL is required")
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// HTTPLedgerClient implements the LedgerClient port against the ledger
// system's REST API. Records travel as opaque JSON; only the identifiers,
// the revision and the update time are interpreted here.
type HTTPLedgerClient struct {
	config     *Config
	httpClient *http.Client
}

// NewHTTPLedgerClient creates a new ledger API client with the given configuration
func NewHTTPLedgerClient(config *Config) (*HTTPLedgerClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &HTTPLedgerClient{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// recordEnvelope is the wire shape of a single record response
type recordEnvelope struct {
	ID        string          `json:"id"`
	Revision  string          `json:"revision"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Record    json.RawMessage `json:"record"`
}

// listEnvelope is the wire shape of a changed-records response
type listEnvelope struct {
	Records []recordEnvelope `json:"records"`
}

func (e *recordEnvelope) toDomain() *ledger.RemoteRecord {
	return &ledger.RemoteRecord{
		RemoteID:  e.ID,
		Revision:  e.Revision,
		UpdatedAt: e.UpdatedAt,
		Payload:   e.Record,
	}
}

// resourcePaths maps entity types to their API resource segments
var resourcePaths = map[ledger.EntityType]string{
	ledger.EntityTypeAccount:       "accounts",
	ledger.EntityTypeCustomer:      "customers",
	ledger.EntityTypeVendor:        "vendors",
	ledger.EntityTypeItem:          "items",
	ledger.EntityTypeInvoice:       "invoices",
	ledger.EntityTypeBill:          "bills",
	ledger.EntityTypePayment:       "payments",
	ledger.EntityTypeSalesOrder:    "salesorders",
	ledger.EntityTypePurchaseOrder: "purchaseorders",
	ledger.EntityTypeInventory:     "inventoryadjustments",
}

func resourcePath(entityType ledger.EntityType) (string, error) {
	path, ok := resourcePaths[entityType]
	if !ok {
		return "", fmt.Errorf("%w: no resource for %s", ledger.ErrInvalidEntityType, entityType)
	}
	return path, nil
}

// Create inserts a record and returns its remote id and revision
func (c *HTTPLedgerClient) Create(ctx context.Context, conn *ledger.LedgerConnection, entityType ledger.EntityType, payload json.RawMessage) (*ledger.RemoteRecord, error) {
	resource, err := resourcePath(entityType)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1/%s/%s", c.config.APIBaseURL, conn.RealmID, resource)
	body, err := c.doRequest(ctx, conn, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}

	var envelope recordEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed create response: %v", ledger.ErrLedgerUnavailable, err)
	}
	return envelope.toDomain(), nil
}

// Update replaces a record, guarded by the revision the caller last saw
func (c *HTTPLedgerClient) Update(ctx context.Context, conn *ledger.LedgerConnection, entityType ledger.EntityType, remoteID, revision string, payload json.RawMessage) (*ledger.RemoteRecord, error) {
	resource, err := resourcePath(entityType)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1/%s/%s/%s?revision=%s",
		c.config.APIBaseURL, conn.RealmID, resource, url.PathEscape(remoteID), url.QueryEscape(revision))
	body, err := c.doRequest(ctx, conn, http.MethodPut, endpoint, payload)
	if err != nil {
		return nil, err
	}

	var envelope recordEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed update response: %v", ledger.ErrLedgerUnavailable, err)
	}
	return envelope.toDomain(), nil
}

// Delete removes (or voids, for transactional types) a record
func (c *HTTPLedgerClient) Delete(ctx context.Context, conn *ledger.LedgerConnection, entityType ledger.EntityType, remoteID, revision string) error {
	resource, err := resourcePath(entityType)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/v1/%s/%s/%s?revision=%s",
		c.config.APIBaseURL, conn.RealmID, resource, url.PathEscape(remoteID), url.QueryEscape(revision))
	_, err = c.doRequest(ctx, conn, http.MethodDelete, endpoint, nil)
	return err
}

// Fetch reads one record by remote id
func (c *HTTPLedgerClient) Fetch(ctx context.Context, conn *ledger.LedgerConnection, entityType ledger.EntityType, remoteID string) (*ledger.RemoteRecord, error) {
	resource, err := resourcePath(entityType)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1/%s/%s/%s",
		c.config.APIBaseURL, conn.RealmID, resource, url.PathEscape(remoteID))
	body, err := c.doRequest(ctx, conn, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var envelope recordEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed fetch response: %v", ledger.ErrLedgerUnavailable, err)
	}
	return envelope.toDomain(), nil
}

// ChangedSince lists records of a type modified after the given time
func (c *HTTPLedgerClient) ChangedSince(ctx context.Context, conn *ledger.LedgerConnection, entityType ledger.EntityType, since time.Time) ([]*ledger.RemoteRecord, error) {
	resource, err := resourcePath(entityType)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1/%s/%s?changedSince=%s",
		c.config.APIBaseURL, conn.RealmID, resource, url.QueryEscape(since.UTC().Format(time.RFC3339)))
	body, err := c.doRequest(ctx, conn, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed change feed response: %v", ledger.ErrLedgerUnavailable, err)
	}

	records := make([]*ledger.RemoteRecord, len(envelope.Records))
	for i := range envelope.Records {
		records[i] = envelope.Records[i].toDomain()
	}
	return records, nil
}

// doRequest performs an HTTP request against the ledger API and maps
// failure statuses onto the domain error taxonomy.
func (c *HTTPLedgerClient) doRequest(ctx context.Context, conn *ledger.LedgerConnection, method, endpoint string, payload json.RawMessage) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ledgerapi: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("ledgerapi: failed to read response: %w", err)
	}

	if err := mapStatus(resp.StatusCode, resp.Header, body); err != nil {
		return nil, err
	}
	return body, nil
}

// mapStatus converts HTTP failure statuses to domain sentinels so the
// executor can classify them without knowing about HTTP. A throttle response
// carries the server's Retry-After so the cool-down matches what the ledger
// system asked for.
func mapStatus(status int, header http.Header, body []byte) error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ledger.ErrLedgerAuthExpired, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", &ledger.RateLimitedError{RetryAfter: parseRetryAfter(header.Get("Retry-After"))}, status)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d", ledger.ErrRemoteNotFound, status)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || status == http.StatusConflict:
		return fmt.Errorf("%w: HTTP %d: %s", ledger.ErrLedgerValidation, status, truncate(body, 200))
	default:
		return fmt.Errorf("%w: HTTP %d", ledger.ErrLedgerUnavailable, status)
	}
}

// parseRetryAfter reads a Retry-After header value, either delay-seconds or
// an HTTP-date. Returns 0 when the header is absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Ensure HTTPLedgerClient implements LedgerClient
var _ ledger.LedgerClient = (*HTTPLedgerClient)(nil)
