// Package notify tells the website that cached pages are stale. Delivery is
// best effort: failures are logged and counted, never returned to webhook callers.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"blog-sync/internal/metrics"
)

type Revalidator struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics

	wg sync.WaitGroup
}

func NewRevalidator(websiteURL string, client *http.Client, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Revalidator {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Revalidator{
		endpoint: strings.TrimRight(websiteURL, "/") + "/api/revalidate",
		client:   client,
		timeout:  timeout,
		logger:   logger,
		metrics:  m,
	}
}

// Notify sends one POST {"slug": slug}. The response body is discarded.
func (r *Revalidator) Notify(ctx context.Context, slug string) error {
	body, err := json.Marshal(map[string]string{"slug": slug})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("revalidate: status %d", resp.StatusCode)
	}
	return nil
}

// NotifyAsync runs Notify in the background with its own deadline, detached
// from the request that triggered it.
func (r *Revalidator) NotifyAsync(slug string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx := context.Background()
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		outcome := "ok"
		if err := r.Notify(ctx, slug); err != nil {
			outcome = "failed"
			r.logger.Warn("revalidation failed", zap.String("slug", slug), zap.String("endpoint", r.endpoint), zap.Error(err))
		} else {
			r.logger.Debug("revalidation sent", zap.String("slug", slug))
		}
		if r.metrics != nil {
			r.metrics.Revalidations.WithLabelValues(outcome).Inc()
		}
	}()
}

// Wait blocks until pending notifications finish.
func (r *Revalidator) Wait() { r.wg.Wait() }
