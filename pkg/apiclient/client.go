// Package apiclient is a Go client for the car catalog HTTP API. It keeps
// the refresh cookie in a jar and retries a request once after refreshing
// an expired access token.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

var ErrSessionExpired = errors.New("apiclient: session expired")

type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apiclient: status %d: %s", e.Status, e.Message)
}

type Car struct {
	ID           uint     `json:"car_id"`
	LicensePlate string   `json:"license_plate"`
	Brand        string   `json:"brand"`
	Color        string   `json:"color"`
	Model        string   `json:"model"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Username     string   `json:"username"`
}

type CarInput struct {
	LicensePlate string   `json:"license_plate"`
	Brand        string   `json:"brand,omitempty"`
	Color        string   `json:"color,omitempty"`
	Model        string   `json:"model,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu          sync.RWMutex
	accessToken string
	userID      uint
}

func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Jar:     jar,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *Client) UserID() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) setSession(token string, userID uint) {
	c.mu.Lock()
	c.accessToken = token
	if userID != 0 {
		c.userID = userID
	}
	c.mu.Unlock()
}

func (c *Client) clearSession() {
	c.mu.Lock()
	c.accessToken = ""
	c.userID = 0
	c.mu.Unlock()
}

func (c *Client) Register(ctx context.Context, username, password, role string) error {
	body := map[string]string{"username": username, "password": password, "role": role}
	return c.do(ctx, http.MethodPost, "/api/register", body, nil, false)
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp struct {
		Data struct {
			AccessToken string `json:"accessToken"`
			UserID      uint   `json:"userId"`
		} `json:"data"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/login", body, &resp, false); err != nil {
		return err
	}
	c.setSession(resp.Data.AccessToken, resp.Data.UserID)
	return nil
}

// Refresh trades the refresh cookie for a new access token.
func (c *Client) Refresh(ctx context.Context) error {
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", nil, &resp, false); err != nil {
		return err
	}
	c.setSession(resp.AccessToken, 0)
	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, false)
	c.clearSession()
	return err
}

func (c *Client) Cars(ctx context.Context) ([]Car, error) {
	var cars []Car
	if err := c.do(ctx, http.MethodGet, "/api/car", nil, &cars, true); err != nil {
		return nil, err
	}
	return cars, nil
}

func (c *Client) Search(ctx context.Context, q string, page int) ([]Car, error) {
	var resp struct {
		Data []Car `json:"data"`
	}
	path := "/api/car/search?q=" + url.QueryEscape(q) + "&page=" + strconv.Itoa(page)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) CreateCar(ctx context.Context, in CarInput) (uint, error) {
	var resp struct {
		CarID uint `json:"car_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/car", in, &resp, true); err != nil {
		return 0, err
	}
	return resp.CarID, nil
}

func (c *Client) UpdateCar(ctx context.Context, id uint, in CarInput) error {
	return c.do(ctx, http.MethodPut, carPath(id), in, nil, true)
}

func (c *Client) MoveCar(ctx context.Context, id uint, lat, lng float64) error {
	body := map[string]float64{"latitude": lat, "longitude": lng}
	return c.do(ctx, http.MethodPatch, carPath(id)+"/position", body, nil, true)
}

func (c *Client) DeleteCar(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, carPath(id), nil, nil, true)
}

func carPath(id uint) string {
	return "/api/car/" + strconv.FormatUint(uint64(id), 10)
}

// do sends the request and, for authenticated calls answered with 401,
// refreshes once and repeats it. A failed refresh ends the session.
func (c *Client) do(ctx context.Context, method, path string, in, out any, auth bool) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = b
	}

	resp, err := c.send(ctx, method, path, payload, auth)
	if err != nil {
		return err
	}

	if auth && resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		if err := c.Refresh(ctx); err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				c.clearSession()
				return ErrSessionExpired
			}
			return err
		}
		resp, err = c.send(ctx, method, path, payload, auth)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, auth bool) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		if token := c.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: body.Message}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
