package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/takutakahashi/authclient/pkg/credentials"
	"github.com/takutakahashi/authclient/pkg/logger"
	"github.com/takutakahashi/authclient/pkg/utils"
)

// Client is the authenticated API client.
// It attaches the current access credential to every request and renews it
// transparently when the backend rejects it as expired.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	store       *credentials.Store
	coordinator *Coordinator
	logger      logrus.FieldLogger
	isExpired   func(*StatusError) bool
}

type options struct {
	httpClient  *http.Client
	store       *credentials.Store
	logger      logrus.FieldLogger
	refreshPath string
	renewer     Renewer
	onRenew     RenewalHook
	isExpired   func(*StatusError) bool
}

// Option configures a Client
type Option func(*options)

// WithHTTPClient sets the underlying HTTP client.
// Its Timeout applies to every request, including the renewal call.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

// WithStore shares an existing credential store
func WithStore(store *credentials.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRefreshPath overrides the renewal endpoint path
func WithRefreshPath(path string) Option {
	return func(o *options) {
		o.refreshPath = path
	}
}

// WithRenewer replaces the HTTP renewal call
func WithRenewer(r Renewer) Option {
	return func(o *options) {
		o.renewer = r
	}
}

// WithRenewalHook registers a hook run after every successful renewal
func WithRenewalHook(hook RenewalHook) Option {
	return func(o *options) {
		o.onRenew = hook
	}
}

// WithExpiredCredentialCheck replaces the expired credential test.
// The default treats 401 Unauthorized as expired.
func WithExpiredCredentialCheck(check func(*StatusError) bool) Option {
	return func(o *options) {
		o.isExpired = check
	}
}

// NewClient creates a new client for the API at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	baseURL = strings.TrimSuffix(baseURL, "/")
	if o.httpClient == nil {
		o.httpClient = utils.NewDefaultHTTPClient()
	}
	if o.store == nil {
		o.store = credentials.NewStore()
	}
	if o.logger == nil {
		o.logger = logger.Discard()
	}
	if o.renewer == nil {
		o.renewer = NewHTTPRenewer(baseURL, o.refreshPath, o.httpClient)
	}
	if o.isExpired == nil {
		o.isExpired = func(e *StatusError) bool {
			return e.Code == http.StatusUnauthorized
		}
	}

	coordinator := NewCoordinator(o.store, o.renewer, o.logger)
	if o.onRenew != nil {
		coordinator.OnRenew(o.onRenew)
	}

	return &Client{
		baseURL:     baseURL,
		httpClient:  o.httpClient,
		store:       o.store,
		coordinator: coordinator,
		logger:      o.logger,
		isExpired:   o.isExpired,
	}
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Store returns the credential store used by the client
func (c *Client) Store() *credentials.Store {
	return c.store
}

// Coordinator returns the renewal coordinator
func (c *Client) Coordinator() *Coordinator {
	return c.coordinator
}

// resumption is what a queued request receives when the renewal settles
type resumption struct {
	accessToken string
	err         error
}

// Do sends req and returns its response.
//
// A response rejected as expired is held back from the caller: the
// credential is renewed once for all concurrent callers and req is replayed
// with the new credential. The caller sees the replay's outcome, the renewal
// error, or ErrRetryExhausted if the replay is rejected as expired again.
// Any other error is returned unchanged.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	r := *req
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	log := c.logger.WithFields(logrus.Fields{
		"request_id": r.ID,
		"method":     r.Method,
		"path":       r.Path,
	})

	if r.Anonymous {
		resp, _, err := c.send(ctx, &r, fixedAccess(""), nil)
		return resp, err
	}

	resp, sentWith, err := c.send(ctx, &r, c.store, nil)
	if err == nil {
		return resp, nil
	}
	if !c.expired(err) {
		return nil, err
	}
	if r.Retried {
		log.Warn("credential rejected after renewal")
		return nil, &RetryExhaustedError{Err: err}
	}
	r.Retried = true

	ch := make(chan resumption, 1)
	dispatched := make(chan struct{})
	cont := Continuation{
		Resolve: func(accessToken string) {
			ch <- resumption{accessToken: accessToken}
			<-dispatched
		},
		Reject: func(err error) {
			ch <- resumption{err: err}
		},
	}

	accessToken, queued, err := c.coordinator.Await(ctx, sentWith, cont)
	if !queued {
		if err != nil {
			return nil, err
		}
		return c.replay(ctx, &r, accessToken, nil, log)
	}

	res := <-ch
	if res.err != nil {
		return nil, res.err
	}
	return c.replay(ctx, &r, res.accessToken, sync.OnceFunc(func() { close(dispatched) }), log)
}

// replay re-issues r with accessToken. dispatched, if set, is called once the
// request has been written to the connection, or when the attempt ends
// without getting that far.
func (c *Client) replay(ctx context.Context, r *Request, accessToken string, dispatched func(), log logrus.FieldLogger) (*Response, error) {
	if dispatched != nil {
		defer dispatched()
	}

	log.Debug("replaying request with renewed credential")
	resp, _, err := c.send(ctx, r, fixedAccess(accessToken), dispatched)
	if err == nil {
		return resp, nil
	}
	if c.expired(err) {
		log.Warn("credential rejected after renewal")
		return nil, &RetryExhaustedError{Err: err}
	}
	return nil, err
}

// send performs a single attempt and returns the access token it carried
func (c *Client) send(ctx context.Context, r *Request, source CredentialSource, dispatched func()) (*Response, string, error) {
	httpReq, err := r.build(ctx, c.baseURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	sentWith := Authenticate(httpReq, source)

	if dispatched != nil {
		httpReq = httpReq.WithContext(httptrace.WithClientTrace(httpReq.Context(), &httptrace.ClientTrace{
			WroteRequest: func(httptrace.WroteRequestInfo) { dispatched() },
		}))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, sentWith, fmt.Errorf("failed to send request: %w", err)
	}
	defer utils.SafeCloseResponse(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, sentWith, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, sentWith, NewStatusError(resp.StatusCode, httpReq.Method, httpReq.URL.String(), body)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, sentWith, nil
}

func (c *Client) expired(err error) bool {
	se, ok := err.(*StatusError)
	return ok && c.isExpired(se)
}

// DoJSON sends req and decodes the response body into out when out is not nil
func (c *Client) DoJSON(ctx context.Context, req *Request, out interface{}) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	return resp.DecodeJSON(out)
}

// Get sends a GET request
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodGet, path))
}

// Delete sends a DELETE request
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodDelete, path))
}

// Post sends a POST request with payload encoded as JSON
func (c *Client) Post(ctx context.Context, path string, payload interface{}) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPost, path, payload)
}

// Put sends a PUT request with payload encoded as JSON
func (c *Client) Put(ctx context.Context, path string, payload interface{}) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPut, path, payload)
}

// Patch sends a PATCH request with payload encoded as JSON
func (c *Client) Patch(ctx context.Context, path string, payload interface{}) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPatch, path, payload)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload interface{}) (*Response, error) {
	req, err := NewJSONRequest(method, path, payload)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}
