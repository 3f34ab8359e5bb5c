package upstream

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
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/metrics"
)

const maxResponseBytes = 4 << 20

func init() {
	// The backend expects JSON numbers for money fields.
	decimal.MarshalJSONWithoutQuotes = true
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	Breaker BreakerConfig
}

// Client talks to the backend REST API. Every call carries the caller's
// backend token and goes through a circuit breaker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    newBreaker(cfg.Breaker, logger),
		logger:     logger.With(slog.String("component", "upstream")),
	}
}

// Healthy reports whether the breaker currently lets calls through.
func (c *Client) Healthy(_ context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("%w: circuit open", ErrUnavailable)
	}
	return nil
}

type envelope struct {
	Success      bool               `json:"success"`
	Data         json.RawMessage    `json:"data"`
	Message      string             `json:"message"`
	Token        string             `json:"token"`
	Pagination   *domain.Pagination `json:"pagination"`
	RefundAmount decimal.Decimal    `json:"refundAmount"`
}

// expand fills the {placeholders} of route with args in order.
func expand(route string, args []string) string {
	if len(args) == 0 {
		return route
	}
	var b strings.Builder
	i := 0
	for {
		open := strings.IndexByte(route, '{')
		if open < 0 || i >= len(args) {
			b.WriteString(route)
			return b.String()
		}
		end := strings.IndexByte(route[open:], '}')
		if end < 0 {
			b.WriteString(route)
			return b.String()
		}
		b.WriteString(route[:open])
		b.WriteString(url.PathEscape(args[i]))
		route = route[open+end+1:]
		i++
	}
}

func (c *Client) call(ctx context.Context, method, route string, args []string, query url.Values, token string, body any) (*envelope, error) {
	target := c.baseURL + expand(route, args)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, route, err)
		}
	}

	started := time.Now()
	status := 0
	result, err := c.breaker.Execute(func() (any, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()
		status = resp.StatusCode

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
		}
		if resp.StatusCode >= 400 {
			return nil, &Error{Status: resp.StatusCode, Message: extractMessage(raw)}
		}

		var env envelope
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := json.Unmarshal(raw, &env); err != nil {
				return nil, fmt.Errorf("decode %s %s: %w", method, route, err)
			}
		}
		return &env, nil
	})
	metrics.ObserveUpstream(method, route, status, time.Since(started))

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		c.logger.WarnContext(ctx, "backend call failed",
			slog.String("method", method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return result.(*envelope), nil
}

func decodeData[T any](env *envelope) (T, error) {
	var out T
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, fmt.Errorf("decode backend data: %w", err)
	}
	return out, nil
}

func fetch[T any](c *Client, ctx context.Context, method, route string, args []string, query url.Values, token string, body any) (T, error) {
	env, err := c.call(ctx, method, route, args, query, token, body)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeData[T](env)
}

func fetchPage[T any](c *Client, ctx context.Context, route string, query url.Values, token string) (domain.Page[T], error) {
	env, err := c.call(ctx, http.MethodGet, route, nil, query, token, nil)
	if err != nil {
		return domain.Page[T]{}, err
	}
	items, err := decodeData[[]T](env)
	if err != nil {
		return domain.Page[T]{}, err
	}
	if items == nil {
		items = []T{}
	}
	return domain.Page[T]{Items: items, Pagination: env.Pagination}, nil
}

type LoginResult struct {
	Token string
	User  domain.User
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	env, err := c.call(ctx, http.MethodPost, "/auth/login", nil, nil, "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return LoginResult{}, err
	}
	var user struct {
		ID    string `json:"id"`
		OID   string `json:"_id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &user); err != nil {
			return LoginResult{}, fmt.Errorf("decode login user: %w", err)
		}
	}
	if env.Token == "" {
		return LoginResult{}, &Error{Status: http.StatusBadGateway, Message: "login response did not include a token"}
	}
	id := user.ID
	if id == "" {
		id = user.OID
	}
	return LoginResult{
		Token: env.Token,
		User:  domain.User{ID: id, Name: user.Name, Email: user.Email, Role: user.Role},
	}, nil
}

func (c *Client) Dashboard(ctx context.Context, token string) (json.RawMessage, error) {
	return fetch[json.RawMessage](c, ctx, http.MethodGet, "/dashboard", nil, nil, token, nil)
}
