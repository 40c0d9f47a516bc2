package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"studytec-client/internal/domain"
)

// Client talks to the platform backend over REST/JSON. The base URL can be
// changed at runtime; each request reads it afresh.
type Client struct {
	http *http.Client

	mu      sync.RWMutex
	baseURL string
}

func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{http: httpClient}
	c.SetBaseURL(baseURL)
	return c
}

// BaseURL returns the current backend address.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL changes the backend address for subsequent requests.
func (c *Client) SetBaseURL(raw string) {
	c.mu.Lock()
	c.baseURL = strings.TrimRight(strings.TrimSpace(raw), "/")
	c.mu.Unlock()
}

type loginResponse struct {
	User *domain.UserRecord `json:"user"`
}

// Login posts credentials to /api/login.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.UserRecord, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", nil, creds, &resp); err != nil {
		return domain.UserRecord{}, err
	}
	if resp.User == nil || resp.User.ID == "" {
		return domain.UserRecord{}, fmt.Errorf("%w: login reply without user", domain.ErrMalformed)
	}
	return *resp.User, nil
}

// Register creates a user through /api/register.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (domain.UserRecord, error) {
	var user domain.UserRecord
	if err := c.do(ctx, http.MethodPost, "/api/register", nil, reg, &user); err != nil {
		return domain.UserRecord{}, err
	}
	if user.ID == "" {
		return domain.UserRecord{}, fmt.Errorf("%w: register reply without id", domain.ErrMalformed)
	}
	return user, nil
}

// JoinClass resolves a join code through /api/join-class.
func (c *Client) JoinClass(ctx context.Context, code string) (domain.ClassRef, error) {
	var ref domain.ClassRef
	if err := c.do(ctx, http.MethodPost, "/api/join-class", nil, map[string]string{"code": code}, &ref); err != nil {
		return domain.ClassRef{}, err
	}
	if ref.ID == "" {
		return domain.ClassRef{}, fmt.Errorf("%w: join reply without class id", domain.ErrMalformed)
	}
	return ref, nil
}

// ListClasses lists classes, scoped to teacherID when it is non-empty.
func (c *Client) ListClasses(ctx context.Context, teacherID string) ([]domain.ClassRecord, error) {
	var query url.Values
	if teacherID != "" {
		query = url.Values{"teacherId": {teacherID}}
	}
	classes := []domain.ClassRecord{}
	if err := c.do(ctx, http.MethodGet, "/api/classes", query, nil, &classes); err != nil {
		return nil, err
	}
	return classes, nil
}

// ListHistory lists recorded attempts, scoped to userID when it is non-empty.
func (c *Client) ListHistory(ctx context.Context, userID string) ([]domain.HistoryRecord, error) {
	var query url.Values
	if userID != "" {
		query = url.Values{"userId": {userID}}
	}
	history := []domain.HistoryRecord{}
	if err := c.do(ctx, http.MethodGet, "/api/history", query, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// CreateClass creates a class owned by a teacher.
func (c *Client) CreateClass(ctx context.Context, class domain.NewClass) (domain.ClassCode, error) {
	var code domain.ClassCode
	if err := c.do(ctx, http.MethodPost, "/api/classes", nil, class, &code); err != nil {
		return domain.ClassCode{}, err
	}
	if code.Code == "" {
		return domain.ClassCode{}, fmt.Errorf("%w: class reply without code", domain.ErrMalformed)
	}
	return code, nil
}

// SaveHistory records a finished attempt.
func (c *Client) SaveHistory(ctx context.Context, entry domain.HistoryEntry) error {
	return c.do(ctx, http.MethodPost, "/api/history", nil, entry, nil)
}

type errorPayload struct {
	Error string `json:"error"`
}

// do performs one request. Non-2xx replies become *domain.RejectionError;
// undecodable 2xx bodies wrap domain.ErrMalformed; anything else is a
// transport error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.BaseURL() + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s reply: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload errorPayload
		_ = json.Unmarshal(raw, &payload)
		return &domain.RejectionError{Status: resp.StatusCode, Message: payload.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMalformed, path, err)
	}
	return nil
}
