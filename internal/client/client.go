// Package client talks to the contacts REST API.
//
// Every function maps one user action onto exactly one HTTP request against the base endpoint:
//
//	GET    {base}?skip=&limit=   list
//	POST   {base}                create
//	GET    {base}{id}            get
//	PUT    {base}{id}            update
//	DELETE {base}{id}            delete
//	GET    {base}search?...      search
//	GET    {base}birthdays/      upcoming birthdays
//
// Any response status outside 2xx is returned as a *StatusError. There are no retries and no
// timeouts besides the ones carried by the context.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/config"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/logging"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/metrics"
	"gitlab.com/dirk.krummacker/contacts-frontend/pkg/model"
	"go.uber.org/zap"
)

// StatusError reports a response whose status code is not 2xx.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

// Client sends requests to the contacts API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger sets the logger for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics records every request in m. It must come after WithHTTPClient.
func WithMetrics(m *metrics.Client) Option {
	return func(c *Client) {
		instrumented := *c.httpClient
		instrumented.Transport = m.InstrumentRoundTripper(c.httpClient.Transport)
		c.httpClient = &instrumented
	}
}

// New returns a client for the API at baseURL, which must end with '/'. An empty baseURL selects
// config.DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the endpoint the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListContacts returns one page of contacts. skip is the number of contacts passed over, limit
// the maximum number returned.
func (c *Client) ListContacts(ctx context.Context, skip, limit int) ([]model.Contact, error) {
	var contacts []model.Contact
	url := fmt.Sprintf("%s?skip=%d&limit=%d", c.baseURL, skip, limit)
	if err := c.do(ctx, http.MethodGet, url, nil, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// GetContact returns the contact with the given id.
func (c *Client) GetContact(ctx context.Context, id int64) (*model.Contact, error) {
	var contact model.Contact
	if err := c.do(ctx, http.MethodGet, c.contactURL(id), nil, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

// CreateContact posts a new contact. The id of the argument is ignored by the API.
func (c *Client) CreateContact(ctx context.Context, contact model.Contact) error {
	return c.do(ctx, http.MethodPost, c.baseURL, contact, nil)
}

// EditContact replaces the fields of the contact identified by contact.Id with the non-nil
// fields of contact.
func (c *Client) EditContact(ctx context.Context, contact model.Contact) error {
	return c.do(ctx, http.MethodPut, c.contactURL(contact.Id), contact, nil)
}

// DeleteContact removes the contact with the given id.
func (c *Client) DeleteContact(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, c.contactURL(id), nil, nil)
}

// SearchContacts sends a prebuilt query string, e.g. "first_name=Erika&email=erika%40example.com".
func (c *Client) SearchContacts(ctx context.Context, query string) ([]model.Contact, error) {
	var contacts []model.Contact
	if err := c.do(ctx, http.MethodGet, c.baseURL+"search?"+query, nil, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// ListBirthdays returns the contacts whose birthday is coming up.
func (c *Client) ListBirthdays(ctx context.Context) ([]model.Contact, error) {
	var contacts []model.Contact
	if err := c.do(ctx, http.MethodGet, c.baseURL+"birthdays/", nil, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// WaitUntilAvailable asks the API for a single contact every interval until it answers with a
// success status, or until ctx ends.
func (c *Client) WaitUntilAvailable(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var waited time.Duration
	for {
		_, err := c.ListContacts(ctx, 0, 1)
		if err == nil {
			return nil
		}
		c.logger.Info("contacts API not available yet", zap.Error(err), zap.Duration("waited", waited))
		select {
		case <-ctx.Done():
			return fmt.Errorf("contacts API at %s not available: %w", c.baseURL, ctx.Err())
		case <-ticker.C:
			waited += interval
		}
	}
}

func (c *Client) contactURL(id int64) string {
	return c.baseURL + strconv.FormatInt(id, 10)
}

// do sends one request. A non-nil body is encoded as JSON, a non-nil out receives the decoded
// response body.
func (c *Client) do(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(logging.RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making http request: %w", err)
	}
	defer res.Body.Close()

	c.logger.Debug("contacts API request",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", res.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", requestID))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, res.Body)
		return &StatusError{StatusCode: res.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode response body: %w", err)
	}
	return nil
}
