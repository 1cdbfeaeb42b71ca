package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/example/nutriscan/internal/acquisition"
	"github.com/example/nutriscan/internal/models"
)

const (
	scanPath    = "/api/scan"
	healthPath  = "/api/health"
	profilePath = "/api/user/profile"

	// UserIDHeader carries the optional profile identifier on scans.
	UserIDHeader = "X-User-ID"

	maxResponseBytes = 4 << 20
)

// StatusError is returned for any non-2xx answer from the analysis service.
type StatusError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// ErrorMessage returns the server-supplied text of a StatusError, if any.
func ErrorMessage(err error) (string, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message, true
	}
	return "", false
}

// Client talks to the remote nutrition analysis API.
type Client struct {
	BaseURL string
	client  *http.Client
}

// New returns a client for baseURL. A zero timeout means no client timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

// NewWithHTTPClient lets callers supply their own transport.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// SubmitScan posts one image for analysis. product_name and X-User-ID are
// only sent when non-empty. The upstream body is kept in Raw.
func (c *Client) SubmitScan(ctx context.Context, img acquisition.Image, productName, userID string) (*models.AnalysisResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	name := img.Name
	if name == "" {
		name = "image"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", img.ContentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, fmt.Errorf("write file part: %w", err)
	}
	if productName != "" {
		if err := writer.WriteField("product_name", productName); err != nil {
			return nil, fmt.Errorf("write product_name: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+scanPath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}

	raw, err := c.do(req, "submit scan")
	if err != nil {
		return nil, err
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse scan response: %w", err)
	}
	result.Raw = raw
	return &result, nil
}

// Health fetches the service health document.
func (c *Client) Health(ctx context.Context) (*models.HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+healthPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	raw, err := c.do(req, "check health")
	if err != nil {
		return nil, err
	}

	var status models.HealthStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	if err := json.Unmarshal(raw, &status.Details); err != nil {
		status.Details = nil
	}
	return &status, nil
}

// GetProfile fetches the stored profile envelope.
func (c *Client) GetProfile(ctx context.Context) (*models.ProfileEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+profilePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.profileEnvelope(req, "get profile")
}

// SaveProfile sends the full profile. A nil calorie target is sent as null.
func (c *Client) SaveProfile(ctx context.Context, profile models.UserProfile) (*models.ProfileEnvelope, error) {
	payload, err := json.Marshal(profile.Normalized())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+profilePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.profileEnvelope(req, "save profile")
}

func (c *Client) profileEnvelope(req *http.Request, operation string) (*models.ProfileEnvelope, error) {
	raw, err := c.do(req, operation)
	if err != nil {
		return nil, err
	}
	var envelope models.ProfileEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse profile response: %w", err)
	}
	return &envelope, nil
}

func (c *Client) do(req *http.Request, operation string) ([]byte, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    extractMessage(raw),
		}
	}
	return raw, nil
}

// extractMessage pulls a human-readable reason out of an error body. The
// service answers either {"error": "..."} or {"detail": "..."}.
func extractMessage(raw []byte) string {
	var body struct {
		Error  string          `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Error != "" {
		return body.Error
	}
	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err == nil {
		return detail
	}
	return ""
}
