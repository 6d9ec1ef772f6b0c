package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pyquiz-service/internal/domain"
)

// Client talks to the quiz backend API (categories, questions and game sessions).
type Client struct {
	baseURL string
	client  *http.Client
}

// New constructs a client for the given base URL, e.g. http://localhost:5000/api.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Questions fetches up to count questions for a category. A 404 maps to
// domain.ErrCategoryNotFound.
func (c *Client) Questions(ctx context.Context, categoryID string, count int) ([]domain.Question, error) {
	path := "/questions/" + url.PathEscape(categoryID) + "?count=" + strconv.Itoa(count)
	body, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, domain.ErrCategoryNotFound
	}
	if status != http.StatusOK {
		return nil, decodeHTTPError(status, body)
	}
	var qs []domain.Question
	if err := json.Unmarshal(body, &qs); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return qs, nil
}

// Categories lists the backend's categories.
func (c *Client) Categories(ctx context.Context) ([]domain.CategoryInfo, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/categories", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, decodeHTTPError(status, body)
	}
	var cats []domain.CategoryInfo
	if err := json.Unmarshal(body, &cats); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return cats, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func decodeHTTPError(status int, body []byte) error {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return fmt.Errorf("http %d: %s", status, resp.Error)
	}
	return fmt.Errorf("http %d", status)
}
