// Package client talks to a running forecast server over HTTP.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotFound is returned when the server has no answer for the request:
// nothing generated yet, or a day outside the horizon.
var ErrNotFound = errors.New("not found")

// APIError is a non-success response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Body is a celestial body position as reported for a day.
type Body struct {
	Name            string  `json:"name"`
	Velocity        float64 `json:"velocity"`
	Clockwise       bool    `json:"clockwise"`
	Radius          float64 `json:"radius"`
	Angle           float64 `json:"angle"`
	AngleNormalized float64 `json:"angle_normalized"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
}

// Day is the forecast for one day.
type Day struct {
	Day       int     `json:"day"`
	Condition string  `json:"condition"`
	Perimeter float64 `json:"perimeter"`
	Bodies    []Body  `json:"bodies,omitempty"`
}

// Summary holds the aggregate statistics of the stored forecast.
type Summary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Horizon      int       `json:"horizon"`
	MaxPerimeter float64   `json:"max_perimeter"`
	PeakDays     []int     `json:"peak_days"`
	DryDays      int       `json:"dry_days"`
	RainyDays    int       `json:"rainy_days"`
	OptimalDays  int       `json:"optimal_days"`
	NormalDays   int       `json:"normal_days"`
}

// GenerateResult reports whether a generation request created the forecast.
// Summary is only set when Created is true.
type GenerateResult struct {
	Created bool
	Message string
	Summary Summary
}

type createdBody struct {
	Created bool `json:"created"`
	Data    struct {
		Summary Summary `json:"summary"`
	} `json:"data"`
	Message string `json:"message"`
}

// Client is a forecast API client.
type Client struct {
	http *resty.Client
}

// New creates a client for the server at baseURL. A non-empty token is sent
// as a Bearer token.
func New(baseURL, token string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	if token != "" {
		c.SetAuthToken(token)
	}
	return &Client{http: c}
}

// Generate asks the server to generate the forecast. days <= 0 uses the
// server's default horizon.
func (c *Client) Generate(ctx context.Context, days int) (GenerateResult, error) {
	req := c.http.R().SetContext(ctx).SetResult(&createdBody{}).SetError(&errorBody{})
	if days > 0 {
		req.SetQueryParam("days", strconv.Itoa(days))
	}
	resp, err := req.Post("/api/v1/predictions")
	if err != nil {
		return GenerateResult{}, fmt.Errorf("failed to request generation: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusCreated, http.StatusOK:
		body := resp.Result().(*createdBody)
		return GenerateResult{Created: body.Created, Message: body.Message, Summary: body.Data.Summary}, nil
	default:
		return GenerateResult{}, apiError(resp)
	}
}

// Day fetches the forecast for day n.
func (c *Client) Day(ctx context.Context, n int, withBodies bool) (Day, error) {
	req := c.http.R().SetContext(ctx).SetResult(&Day{}).SetError(&errorBody{}).
		SetPathParam("day", strconv.Itoa(n))
	if withBodies {
		req.SetQueryParam("bodies", "true")
	}
	resp, err := req.Get("/api/v1/weather/{day}")
	if err != nil {
		return Day{}, fmt.Errorf("failed to fetch day %d: %w", n, err)
	}
	if !resp.IsSuccess() {
		return Day{}, apiError(resp)
	}
	return *resp.Result().(*Day), nil
}

// Summary fetches the aggregate statistics.
func (c *Client) Summary(ctx context.Context) (Summary, error) {
	resp, err := c.http.R().SetContext(ctx).SetResult(&Summary{}).SetError(&errorBody{}).
		Get("/api/v1/predictions/summary")
	if err != nil {
		return Summary{}, fmt.Errorf("failed to fetch summary: %w", err)
	}
	if !resp.IsSuccess() {
		return Summary{}, apiError(resp)
	}
	return *resp.Result().(*Summary), nil
}

// apiError converts an unsuccessful response, mapping 404 to ErrNotFound.
func apiError(resp *resty.Response) error {
	if resp.StatusCode() == http.StatusNotFound {
		return ErrNotFound
	}
	msg := http.StatusText(resp.StatusCode())
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		if body.Error != "" {
			msg = body.Error
		} else if body.Message != "" {
			msg = body.Message
		}
	}
	return &APIError{Status: resp.StatusCode(), Message: msg}
}
