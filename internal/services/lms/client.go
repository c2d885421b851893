package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coursebridge/internal/logger"
)

type Client struct {
	baseURL     string
	clientID    string
	accessToken string
	httpClient  *http.Client
	logger      *logger.Logger
}

func NewClient(baseURL, clientID, accessToken string, timeout time.Duration, logger *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		clientID:    clientID,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FindUserByEmail looks a user up by email, comparing case-insensitively.
// It returns nil and no error when the user does not exist.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	q := url.Values{}
	q.Set("email", email)

	var resp UsersResponse
	err := c.do(ctx, http.MethodGet, "/users?"+q.Encode(), nil, &resp)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user %s: %w", email, err)
	}

	for i := range resp.Data {
		if strings.EqualFold(strings.TrimSpace(resp.Data[i].Email), strings.TrimSpace(email)) {
			return &resp.Data[i], nil
		}
	}
	return nil, nil
}

// CreateUser creates a minimal user record.
func (c *Client) CreateUser(ctx context.Context, newUser NewUser) (*User, error) {
	if newUser.Username == "" {
		newUser.Username = UsernameFor(newUser)
	}

	var user User
	if err := c.do(ctx, http.MethodPost, "/users", newUser, &user); err != nil {
		return nil, fmt.Errorf("create user %s: %w", newUser.Email, err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("create user %s: response carried no user id", newUser.Email)
	}
	return &user, nil
}

// Enroll adds the user to the course.
func (c *Client) Enroll(ctx context.Context, userID, courseID string) error {
	payload := EnrollmentRequest{Price: 0, Justification: "Subscription order"}
	if err := c.do(ctx, http.MethodPost, enrollmentPath(userID, courseID), payload, nil); err != nil {
		return fmt.Errorf("enroll user %s in %s: %w", userID, courseID, err)
	}
	return nil
}

// Unenroll removes the user from the course. A missing membership comes back
// as an *APIError with status 404.
func (c *Client) Unenroll(ctx context.Context, userID, courseID string) error {
	if err := c.do(ctx, http.MethodDelete, enrollmentPath(userID, courseID), nil, nil); err != nil {
		return fmt.Errorf("unenroll user %s from %s: %w", userID, courseID, err)
	}
	return nil
}

func enrollmentPath(userID, courseID string) string {
	return fmt.Sprintf("/users/%s/courses/%s", url.PathEscape(userID), url.PathEscape(courseID))
}

func (c *Client) configured() bool {
	return c.baseURL != "" && c.clientID != "" && c.accessToken != ""
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	if !c.configured() {
		return ErrNotConfigured
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Lw-Client", c.clientID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("LMS request: %s %s", method, req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method:     method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       respBody,
		}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w body=%s", err, snippet(respBody, 500))
	}
	return nil
}
