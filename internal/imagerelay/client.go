// Package imagerelay uploads base64 images to an imgbb-compatible host and
// returns public URLs for them.
package imagerelay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"arrest-log/internal/config"
	"arrest-log/pkg/logger"
)

var (
	ErrDisabled     = errors.New("image relay not configured")
	ErrEmptyImage   = errors.New("empty image payload")
	ErrUploadFailed = errors.New("image upload failed")
)

// Client posts multipart field "image" to <endpoint>?key=<apiKey> and
// expects {"success":true,"data":{"url":"..."}}.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func New(cfg config.ImageHostConfig, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled is false without an API key; callers then keep images inline.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != "" && c.endpoint != ""
}

type uploadResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// StripDataURI removes a leading "data:<mime>;base64," prefix.
func StripDataURI(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, ";base64,"); i >= 0 {
		return s[i+len(";base64,"):]
	}
	return s
}

// Upload sends one base64 image (optionally a data URI) and returns its URL.
func (c *Client) Upload(ctx context.Context, b64 string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	payload := StripDataURI(b64)
	if payload == "" {
		return "", ErrEmptyImage
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("image", payload); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("image host endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &body)
	if err != nil {
		return "", withoutURL(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, withoutURL(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrUploadFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}

	var out uploadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrUploadFailed, err)
	}
	if !out.Success || out.Data.URL == "" {
		msg := "no url in response"
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("%w: %s", ErrUploadFailed, msg)
	}
	return out.Data.URL, nil
}

// UploadMultiple uploads each image in order. Failed uploads are logged and
// left out of the result.
func (c *Client) UploadMultiple(ctx context.Context, images []string) []string {
	out := make([]string, 0, len(images))
	for i, img := range images {
		u, err := c.Upload(ctx, img)
		if err != nil {
			logger.From(ctx).Warn("image upload failed", "index", i, "err", err)
			continue
		}
		out = append(out, u)
	}
	return out
}

// withoutURL drops the request URL from transport errors. It carries the API key.
func withoutURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}
