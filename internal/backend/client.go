package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrUnavailable = errors.New("backend unavailable")
	ErrMalformed   = errors.New("backend malformed response")
	ErrRejected    = errors.New("backend rejected request")
)

const maxBodyBytes = 4 << 20

type Client struct {
	baseURL   string
	probePath string
	http      *http.Client
}

// New returns a client for the clinical backend. timeout bounds each request
// on top of any context deadline.
func New(baseURL, probePath string, timeout time.Duration) *Client {
	if probePath == "" {
		probePath = "/active_patients"
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		probePath: probePath,
		http:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) url(endpoint string) string {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return c.baseURL + endpoint
}

// Fetch issues a GET and returns the raw JSON body.
func (c *Client) Fetch(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(endpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnavailable, endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: %s body exceeds %d bytes", ErrMalformed, endpoint, maxBodyBytes)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %s returned invalid json", ErrMalformed, endpoint)
	}
	return json.RawMessage(body), nil
}

type LabReport struct {
	PatientID  int64     `json:"patient_id"`
	ReportType string    `json:"report_type"`
	ReportDate time.Time `json:"report_date"`
	Result     string    `json:"result"`
}

func (c *Client) SaveLabReport(ctx context.Context, report LabReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/save_lab_report"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: save_lab_report returned %d", ErrRejected, resp.StatusCode)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Fetch(ctx, c.probePath)
	return err
}
