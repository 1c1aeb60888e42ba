package client

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
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/userdeck/userdeck/internal/domain/user"
)

// Client is the typed transport for the userdeck API. It owns the bearer
// token for the session; every request after a successful login carries it.
type Client struct {
	baseURL  string
	httpc    *http.Client
	validate *validator.Validate

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		c.httpc = httpc
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		httpc:    &http.Client{Timeout: 10 * time.Second},
		validate: validator.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type LoginResult struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

// Login validates the credentials locally first; an invalid form never
// reaches the network. On success the returned token is retained for
// subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	form := loginForm{Email: email, Password: password}

	if err := c.checkForm(form); err != nil {
		return LoginResult{}, err
	}

	var result LoginResult

	err := c.do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &result)

	if err != nil {
		return LoginResult{}, err
	}

	c.setToken(result.Token)

	return result, nil
}

// Logout is best-effort. The held token is dropped even when the server
// call fails; the caller may surface the error or ignore it.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)

	c.setToken("")

	return err
}

// Me returns the user behind the held token.
func (c *Client) Me(ctx context.Context) (user.User, error) {
	var u user.User

	err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &u)

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

// checkForm maps validator output onto the local error taxonomy.
func (c *Client) checkForm(form any) error {
	err := c.validate.Struct(form)

	if err == nil {
		return nil
	}

	vErrs, ok := err.(validator.ValidationErrors)

	if !ok {
		return err
	}

	issues := make([]FieldIssue, 0, len(vErrs))

	for _, fe := range vErrs {
		issues = append(issues, FieldIssue{
			Field:   strings.ToLower(fe.Field()),
			Message: validationMessage(fe.Tag(), fe.Param()),
		})
	}

	return &ValidationError{Fields: issues}
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	}

	return "failed " + rule + " validation"
}

// do runs one JSON round trip and decodes either the payload or the error
// envelope. No retries: a failure surfaces to the caller as-is.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := c.baseURL + path

	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader

	if body != nil {
		b, err := json.Marshal(body)

		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}

		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)

	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)

	if err != nil {
		return err
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(out)

	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var envelope struct {
		Error struct {
			Code    string          `json:"code"`
			Message string          `json:"message"`
			Details json.RawMessage `json:"details"`
		} `json:"error"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message

		var details map[string]string
		if json.Unmarshal(envelope.Error.Details, &details) == nil {
			apiErr.Details = details
		}
	}

	return apiErr
}
