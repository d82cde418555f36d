// Package backend is the typed client for the hosted backend service that
// owns persistence and credential verification: a GoTrue-style auth API
// plus a PostgREST-style table API. The client never sees a database
// directly; every table request carries the caller's bearer token so the
// backend's row-level security stays authoritative.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eduardobaptist/ifpassweb/internal/model"
)

// ErrNotFound marks a singular query that matched no row.
var ErrNotFound = errors.New("backend: row not found")

type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s (status %d, code %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("backend: request failed (status %d, code %s)", e.Status, e.Code)
}

// IsAuthError reports whether err is a backend rejection of the caller's
// credentials or token.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

type Client struct {
	baseURL    string
	anonKey    string
	jwtSecret  string
	httpClient *http.Client
}

func NewClient(baseURL, anonKey, jwtSecret string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		jwtSecret:  jwtSecret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type authPayload struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    int64           `json:"expires_in"`
	User         model.Principal `json:"user"`
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (model.Session, error) {
	query := url.Values{"grant_type": {"password"}}
	body := map[string]string{"email": email, "password": password}

	var payload authPayload
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", query, "", body, &payload); err != nil {
		return model.Session{}, err
	}
	return c.sessionFromAuth(payload)
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (model.Session, error) {
	query := url.Values{"grant_type": {"refresh_token"}}
	body := map[string]string{"refresh_token": refreshToken}

	var payload authPayload
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", query, "", body, &payload); err != nil {
		return model.Session{}, err
	}
	return c.sessionFromAuth(payload)
}

type signUpPayload struct {
	ID    string           `json:"id"`
	Email string           `json:"email"`
	User  *model.Principal `json:"user"`
}

// SignUp creates an auth identity for a new user. The matching usuarios
// row is a separate Insert; the two are not transactional on the backend.
func (c *Client) SignUp(ctx context.Context, email, password string) (model.Principal, error) {
	body := map[string]string{"email": email, "password": password}

	var payload signUpPayload
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", nil, "", body, &payload); err != nil {
		return model.Principal{}, err
	}
	if payload.User != nil && payload.User.ID != "" {
		return *payload.User, nil
	}
	if payload.ID == "" {
		return model.Principal{}, &APIError{Status: http.StatusBadGateway, Code: "missing_user", Message: "signup response missing user"}
	}
	return model.Principal{ID: payload.ID, Email: payload.Email}, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, accessToken, nil, nil)
}

// Filter is a PostgREST equality filter on a single column.
type Filter struct {
	Column string
	Value  string
}

type QueryOpts struct {
	Select     string
	Filters    []Filter
	OrderBy    string
	Descending bool
}

// QueryOne fetches exactly one row. Zero rows yield ErrNotFound; the
// backend rejects multi-row matches for singular requests, which surfaces
// the same way.
func (c *Client) QueryOne(ctx context.Context, token, table string, filter Filter, dest interface{}) error {
	query := url.Values{}
	query.Set(filter.Column, "eq."+filter.Value)

	req, err := c.newRequest(ctx, http.MethodGet, "/rest/v1/"+table, query, token, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	return c.send(req, dest, true)
}

func (c *Client) QueryMany(ctx context.Context, token, table string, opts QueryOpts, dest interface{}) error {
	query := url.Values{}
	if opts.Select != "" {
		query.Set("select", opts.Select)
	}
	for _, filter := range opts.Filters {
		query.Set(filter.Column, "eq."+filter.Value)
	}
	if opts.OrderBy != "" {
		direction := "asc"
		if opts.Descending {
			direction = "desc"
		}
		query.Set("order", opts.OrderBy+"."+direction)
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/rest/v1/"+table, query, token, nil)
	if err != nil {
		return err
	}
	return c.send(req, dest, false)
}

func (c *Client) Insert(ctx context.Context, token, table string, record interface{}) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/rest/v1/"+table, nil, token, record)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")
	return c.send(req, nil, false)
}

func (c *Client) DeleteOne(ctx context.Context, token, table, id string) error {
	query := url.Values{}
	query.Set("id", "eq."+id)

	req, err := c.newRequest(ctx, http.MethodDelete, "/rest/v1/"+table, query, token, nil)
	if err != nil {
		return err
	}
	return c.send(req, nil, false)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, body, dest interface{}) error {
	req, err := c.newRequest(ctx, method, path, query, token, body)
	if err != nil {
		return err
	}
	return c.send(req, dest, false)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, token string, body interface{}) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("backend: encode request: %w", err)
		}
		buf = bytes.NewBuffer(data)
	} else {
		buf = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, buf)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}

	req.Header.Set("apikey", c.anonKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else if c.anonKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

type errorPayload struct {
	ErrorCode        string `json:"error_code"`
	ErrText          string `json:"error"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (c *Client) send(req *http.Request, dest interface{}, singular bool) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		if singular && (resp.StatusCode == http.StatusNotAcceptable || resp.StatusCode == http.StatusNotFound) {
			return ErrNotFound
		}
		var payload errorPayload
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{
			Status:  resp.StatusCode,
			Code:    firstNonEmpty(payload.ErrorCode, payload.ErrText, "request_failed"),
			Message: firstNonEmpty(payload.Msg, payload.Message, payload.ErrorDescription),
		}
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("backend: decode response: %w", err)
	}
	return nil
}

func (c *Client) sessionFromAuth(payload authPayload) (model.Session, error) {
	if payload.AccessToken == "" {
		return model.Session{}, &APIError{Status: http.StatusBadGateway, Code: "missing_token", Message: "auth response missing access token"}
	}

	session := model.Session{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		Principal:    payload.User,
	}

	subject, expiresAt, err := c.parseAccessToken(payload.AccessToken)
	if err != nil {
		return model.Session{}, err
	}
	if session.Principal.ID == "" {
		session.Principal.ID = subject
	}
	switch {
	case !expiresAt.IsZero():
		session.ExpiresAt = expiresAt
	case payload.ExpiresIn > 0:
		session.ExpiresAt = time.Now().UTC().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	return session, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
