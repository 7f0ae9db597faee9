// Package proxy forwards /api/* requests to the backend API.
//
// The browser never talks to the backend directly. Every forwarded request
// gets the user-id header from the verified identity token (a
// client-supplied value is dropped) and an x-auth-timestamp. Backend error
// bodies are replaced with a generic JSON error.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"github.com/dalemusser/bandmanager/internal/app/system/auth"
	"github.com/dalemusser/bandmanager/internal/app/system/backend"
	"github.com/dalemusser/bandmanager/internal/app/system/metrics"
	"go.uber.org/zap"
)

// Proxy is an http.Handler forwarding to the backend.
type Proxy struct {
	rp      *httputil.ReverseProxy
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

type startKey struct{}

// New builds a proxy to target. m may be nil.
func New(target *url.URL, m *metrics.Metrics, logger *zap.Logger) *Proxy {
	p := &Proxy{metrics: m, log: logger.Named("proxy"), now: time.Now}

	p.rp = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Host = target.Host

			pr.Out.Header.Del(backend.UserIDHeader)
			pr.Out.Header.Del("Cookie")
			if id, ok := auth.Current(pr.In); ok {
				pr.Out.Header.Set(backend.UserIDHeader, id.SubjectID)
			}
			pr.Out.Header.Set(backend.AuthTimestampHeader, strconv.FormatInt(p.now().UnixMilli(), 10))
		},
		ModifyResponse: p.modifyResponse,
		ErrorHandler:   p.errorHandler,
	}
	return p
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithValue(r.Context(), startKey{}, p.now())
	p.rp.ServeHTTP(w, r.WithContext(ctx))
}

func (p *Proxy) elapsed(r *http.Request) time.Duration {
	if start, ok := r.Context().Value(startKey{}).(time.Time); ok {
		return p.now().Sub(start)
	}
	return 0
}

func (p *Proxy) modifyResponse(resp *http.Response) error {
	p.metrics.Proxy(resp.StatusCode, p.elapsed(resp.Request))
	resp.Header.Del("Set-Cookie")

	if resp.StatusCode < 400 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()
	p.log.Warn("backend request failed",
		zap.String("method", resp.Request.Method),
		zap.String("path", resp.Request.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("body", string(raw)))

	body, _ := json.Marshal(map[string]string{"error": "Backend request failed"})
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	resp.Header.Set("Content-Type", "application/json")
	resp.Header.Del("Content-Encoding")
	return nil
}

func (p *Proxy) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	p.metrics.Proxy(0, p.elapsed(r))
	p.log.Error("backend unreachable",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
}
