package checkout

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ScriptLoader makes sure the gateway client script is available.
type ScriptLoader interface {
	Load(ctx context.Context) error
}

// HTTPScriptLoader checks that the gateway script URL is reachable. The
// first successful check is remembered; concurrent callers share one
// in-flight check and a failed check is retried on the next call.
type HTTPScriptLoader struct {
	url    string
	client *http.Client
	logger *zap.Logger

	group  singleflight.Group
	mu     sync.Mutex
	loaded bool
}

// NewHTTPScriptLoader creates a loader for url.
func NewHTTPScriptLoader(url string, client *http.Client, logger *zap.Logger) *HTTPScriptLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPScriptLoader{url: url, client: client, logger: logger}
}

// Loaded reports whether a check has succeeded.
func (l *HTTPScriptLoader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

func (l *HTTPScriptLoader) Load(ctx context.Context) error {
	if l.Loaded() {
		return nil
	}

	_, err, _ := l.group.Do(l.url, func() (interface{}, error) {
		if l.Loaded() {
			return nil, nil
		}
		if err := l.fetch(ctx); err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.loaded = true
		l.mu.Unlock()
		l.logger.Info("gateway script available", zap.String("url", l.url))
		return nil, nil
	})
	return err
}

func (l *HTTPScriptLoader) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, l.url, nil)
	if err != nil {
		return err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("script %s: status %d", l.url, resp.StatusCode)
	}
	return nil
}
