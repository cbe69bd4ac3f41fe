// Package notify delivers new records to a Discord-compatible webhook.
package notify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"arrest-log/internal/records"
	"arrest-log/internal/settings"
	"arrest-log/pkg/logger"
	"arrest-log/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const (
	// MaxEmbeds is the per-message embed limit of the webhook API.
	MaxEmbeds = 10
	// maxContentRunes is the per-message content limit of the webhook API.
	maxContentRunes = 2000

	defaultFollowUpDelay = time.Second
	defaultTimeout       = 15 * time.Second
)

// Uploader turns base64 images into public URLs (see imagerelay.Client).
type Uploader interface {
	Enabled() bool
	Upload(ctx context.Context, b64 string) (string, error)
}

// SettingsSource provides the current webhook URL and template.
type SettingsSource interface {
	Get(ctx context.Context) (settings.AppSettings, error)
}

type Options struct {
	Location      *time.Location
	FollowUpDelay time.Duration
	Timeout       time.Duration

	// Limiter and MaxInFlight enable the cross-process in-flight cap.
	Limiter     redis.Scripter
	MaxInFlight int
	Namespace   string

	HTTPClient *http.Client
}

type Dispatcher struct {
	settings SettingsSource
	uploader Uploader
	opts     Options
	client   *http.Client
	sleep    func(ctx context.Context, d time.Duration) error
	wg       sync.WaitGroup
}

func New(src SettingsSource, uploader Uploader, opts Options) *Dispatcher {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.FollowUpDelay <= 0 {
		opts.FollowUpDelay = defaultFollowUpDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Dispatcher{
		settings: src,
		uploader: uploader,
		opts:     opts,
		client:   client,
		sleep:    sleepCtx,
	}
}

// Notify delivers r in the background so record writes never wait on the
// webhook. It satisfies records.Notifier.
func (d *Dispatcher) Notify(ctx context.Context, r records.PrisonRecord) {
	d.Async(ctx, r)
}

// Async runs Send on a context detached from the caller's cancellation,
// bounded by the configured timeout.
func (d *Dispatcher) Async(parent context.Context, r records.PrisonRecord) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.opts.Timeout)
		defer cancel()

		s, err := d.settings.Get(ctx)
		if err != nil {
			logger.From(ctx).Error("webhook settings unavailable", "record_id", r.ID, "err", err)
			return
		}
		ok := d.Send(ctx, r, s)
		logger.From(ctx).Info("webhook delivery", "record_id", r.ID, "ok", ok)
	}()
}

// Wait blocks until every Async delivery has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Send posts the rendered message, then (after the follow-up delay) a second
// message with up to MaxEmbeds screenshots. It never returns an error;
// failures are logged and reported as false.
func (d *Dispatcher) Send(ctx context.Context, r records.PrisonRecord, s settings.AppSettings) bool {
	log := logger.From(ctx).With("record_id", r.ID)
	if s.WebhookURL == "" {
		log.Debug("webhook not configured; skipping delivery")
		return false
	}

	release, ok := d.acquire(ctx, s.WebhookURL)
	if !ok {
		log.Warn("webhook in-flight cap reached; delivery skipped")
		return false
	}
	defer release()

	content := truncateRunes(Render(s.MessageTemplate, r, d.opts.Location), maxContentRunes)
	if err := d.postJSON(ctx, s.WebhookURL, webhookMessage{Content: content}); err != nil {
		log.Error("webhook text delivery failed", "err", err)
		return false
	}

	if len(r.Screenshots) == 0 {
		return true
	}
	if err := d.sleep(ctx, d.opts.FollowUpDelay); err != nil {
		log.Error("webhook follow-up cancelled", "err", err)
		return false
	}

	if err := d.sendImages(ctx, s.WebhookURL, r.Screenshots); err != nil {
		log.Error("webhook image delivery failed", "err", err)
		return false
	}
	return true
}

type webhookMessage struct {
	Content     string       `json:"content,omitempty"`
	Embeds      []embed      `json:"embeds,omitempty"`
	Attachments []attachment `json:"attachments,omitempty"`
}

type embed struct {
	Image embedImage `json:"image"`
}

type embedImage struct {
	URL string `json:"url"`
}

type attachment struct {
	ID       int    `json:"id"`
	Filename string `json:"filename"`
}

type filePart struct {
	name        string
	contentType string
	data        []byte
}

func (d *Dispatcher) sendImages(ctx context.Context, webhookURL string, screenshots []string) error {
	if len(screenshots) > MaxEmbeds {
		screenshots = screenshots[:MaxEmbeds]
	}

	var (
		msg   webhookMessage
		files []filePart
	)
	for i, shot := range screenshots {
		if isURL(shot) {
			msg.Embeds = append(msg.Embeds, embed{Image: embedImage{URL: shot}})
			continue
		}
		if d.uploader != nil && d.uploader.Enabled() {
			u, err := d.uploader.Upload(ctx, shot)
			if err == nil {
				msg.Embeds = append(msg.Embeds, embed{Image: embedImage{URL: u}})
				continue
			}
			logger.From(ctx).Warn("image relay failed; attaching inline", "index", i, "err", err)
		}
		fp, err := decodeImage(shot, len(files))
		if err != nil {
			logger.From(ctx).Warn("screenshot dropped", "index", i, "err", err)
			continue
		}
		msg.Attachments = append(msg.Attachments, attachment{ID: len(files), Filename: fp.name})
		msg.Embeds = append(msg.Embeds, embed{Image: embedImage{URL: "attachment://" + fp.name}})
		files = append(files, fp)
	}

	if len(msg.Embeds) == 0 {
		return fmt.Errorf("no deliverable screenshots")
	}
	if len(files) == 0 {
		return d.postJSON(ctx, webhookURL, msg)
	}
	return d.postMultipart(ctx, webhookURL, msg, files)
}

func (d *Dispatcher) postJSON(ctx context.Context, target string, msg webhookMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return d.post(ctx, target, "application/json", bytes.NewReader(body))
}

func (d *Dispatcher) postMultipart(ctx context.Context, target string, msg webhookMessage, files []filePart) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("payload_json", string(payload)); err != nil {
		return err
	}
	for i, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files[%d]"; filename="%s"`, i, f.name))
		h.Set("Content-Type", f.contentType)
		w, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := w.Write(f.data); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}
	return d.post(ctx, target, mw.FormDataContentType(), &body)
}

func (d *Dispatcher) post(ctx context.Context, target, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return withoutURL(err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return withoutURL(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	return nil
}

// withoutURL drops the request URL from transport errors. The webhook URL
// path holds the token.
func withoutURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}

// acquire takes an in-flight slot for the webhook. Without a limiter it
// always succeeds. Limiter errors fail open.
func (d *Dispatcher) acquire(ctx context.Context, webhookURL string) (func(), bool) {
	noop := func() {}
	if d.opts.Limiter == nil || d.opts.MaxInFlight <= 0 {
		return noop, true
	}
	key := utils.Key(d.opts.Namespace, "webhook_inflight", hashURL(webhookURL))
	ok, err := utils.AcquireConcurrencyCap(ctx, d.opts.Limiter, key, d.opts.MaxInFlight, 2*d.opts.Timeout)
	if err != nil {
		logger.From(ctx).Warn("webhook cap unavailable; proceeding", "err", err)
		return noop, true
	}
	if !ok {
		return noop, false
	}
	return func() {
		if err := utils.ReleaseConcurrencyCap(context.WithoutCancel(ctx), d.opts.Limiter, key); err != nil {
			logger.From(ctx).Warn("webhook cap release failed", "err", err)
		}
	}, true
}

// hashURL keeps the webhook secret out of Redis key names.
func hashURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	return hex.EncodeToString(sum[:8])
}

func isURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

func decodeImage(s string, idx int) (filePart, error) {
	s = strings.TrimSpace(s)
	contentType := ""
	if strings.HasPrefix(s, "data:") {
		meta, payload, ok := strings.Cut(s, ",")
		if !ok {
			return filePart{}, fmt.Errorf("malformed data URI")
		}
		contentType = strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
		s = payload
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return filePart{}, fmt.Errorf("decode base64: %w", err)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return filePart{
		name:        fmt.Sprintf("evidencia_%d%s", idx+1, extensionFor(contentType)),
		contentType: contentType,
		data:        data,
	}, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
