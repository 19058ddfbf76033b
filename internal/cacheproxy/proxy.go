// Package cacheproxy serves the application through a caching HTTP proxy that keeps
// answering from versioned caches while the network is unavailable.
package cacheproxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/at-ishikawa/quizsync/internal/config"
	"github.com/at-ishikawa/quizsync/internal/telemetry"
)

// MessageClearCache deletes every cache.
const MessageClearCache = "CLEAR_CACHE"

var ErrUnknownMessage = errors.New("unknown message type")

// Message is a command delivered to the proxy.
type Message struct {
	Type string `json:"type"`
}

// CacheNames are the caches of one version.
type CacheNames struct {
	Static  string
	Data    string
	Runtime string
}

// NewCacheNames returns "<prefix>-static-<version>", "<prefix>-data-<version>" and "<prefix>-runtime-<version>".
func NewCacheNames(prefix, version string) CacheNames {
	return CacheNames{
		Static:  prefix + "-static-" + version,
		Data:    prefix + "-data-" + version,
		Runtime: prefix + "-runtime-" + version,
	}
}

func (n CacheNames) all() []string {
	return []string{n.Static, n.Data, n.Runtime}
}

// refreshTimeout bounds a background refresh, which no longer has a caller waiting on it.
const refreshTimeout = time.Minute

var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

type Proxy struct {
	router   Router
	storage  Storage
	client   *http.Client
	upstream *url.URL
	prefix   string
	names    CacheNames
	appShell string
	precache []string
	emitter  telemetry.Emitter
	// background holds writes and refreshes that outlive their request.
	background sync.WaitGroup
	now        func() time.Time
}

type Option func(*Proxy)

func WithHTTPClient(client *http.Client) Option {
	return func(p *Proxy) {
		if client != nil {
			p.client = client
		}
	}
}

func WithEmitter(emitter telemetry.Emitter) Option {
	return func(p *Proxy) {
		if emitter != nil {
			p.emitter = emitter
		}
	}
}

func New(cfg config.ProxyConfig, storage Storage, opts ...Option) (*Proxy, error) {
	upstream, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("url.Parse(%s) > %w", cfg.Upstream, err)
	}
	if upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("upstream must be an absolute URL: %s", cfg.Upstream)
	}

	p := &Proxy{
		router: Router{
			AdminPrefix:   cfg.AdminPrefix,
			APIPrefix:     cfg.APIPrefix,
			RealtimeHosts: cfg.RealtimeHosts,
		},
		storage:  storage,
		client:   &http.Client{Timeout: cfg.Timeout},
		upstream: upstream,
		prefix:   cfg.CachePrefix,
		names:    NewCacheNames(cfg.CachePrefix, cfg.CacheVersion),
		appShell: cfg.AppShell,
		precache: cfg.Precache,
		emitter:  telemetry.Nop,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Proxy) Names() CacheNames {
	return p.names
}

// Wait blocks until every background cache write and refresh has finished.
func (p *Proxy) Wait() {
	p.background.Wait()
}

func (p *Proxy) emit(ctx context.Context, level slog.Level, step, message string, err error) {
	p.emitter.Emit(ctx, telemetry.Event{
		Component: "cacheproxy",
		Step:      step,
		Message:   message,
		Level:     level,
		Err:       err,
	})
}

// Install precaches the app shell URLs into the static cache. A URL that cannot be fetched is skipped.
func (p *Proxy) Install(ctx context.Context) {
	p.emit(ctx, slog.LevelInfo, "install", "Precaching app shell", nil)
	for _, target := range p.precache {
		ref, err := url.Parse(target)
		if err != nil {
			p.emit(ctx, slog.LevelWarn, "install", "Precache failed for "+target, err)
			continue
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.resolve(ref).String(), nil)
		if err != nil {
			p.emit(ctx, slog.LevelWarn, "install", "Precache failed for "+target, err)
			continue
		}
		resp, err := p.fetch(req)
		if err != nil {
			p.emit(ctx, slog.LevelWarn, "install", "Precache failed for "+target, err)
			continue
		}
		if resp.Status != http.StatusOK {
			p.emit(ctx, slog.LevelWarn, "install", fmt.Sprintf("Precache failed for %s (status %d)", target, resp.Status), nil)
			continue
		}
		p.store(ctx, p.names.Static, p.key(req), *resp)
	}
}

// Activate deletes the caches of every other version that share the prefix.
func (p *Proxy) Activate(ctx context.Context) error {
	names, err := p.storage.Names(ctx)
	if err != nil {
		return fmt.Errorf("storage.Names() > %w", err)
	}

	current := map[string]struct{}{}
	for _, name := range p.names.all() {
		current[name] = struct{}{}
	}
	for _, name := range names {
		if !strings.HasPrefix(name, p.prefix+"-") {
			continue
		}
		if _, ok := current[name]; ok {
			continue
		}
		if err := p.storage.Delete(ctx, name); err != nil {
			return fmt.Errorf("storage.Delete(%s) > %w", name, err)
		}
		p.emit(ctx, slog.LevelInfo, "activate", "Deleting old cache: "+name, nil)
	}
	return nil
}

// HandleMessage runs a command sent by the application.
func (p *Proxy) HandleMessage(ctx context.Context, msg Message) error {
	switch msg.Type {
	case MessageClearCache:
		names, err := p.storage.Names(ctx)
		if err != nil {
			return fmt.Errorf("storage.Names() > %w", err)
		}
		for _, name := range names {
			if err := p.storage.Delete(ctx, name); err != nil {
				return fmt.Errorf("storage.Delete(%s) > %w", name, err)
			}
			p.emit(ctx, slog.LevelInfo, "clear", "Clearing cache: "+name, nil)
		}
		p.emit(ctx, slog.LevelInfo, "clear", "All caches cleared successfully", nil)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := p.router.Classify(r)
	slog.DebugContext(r.Context(), "proxy request", "route", route, "method", r.Method, "url", r.URL.String())

	outbound, err := p.outbound(r)
	if err != nil {
		p.emit(r.Context(), slog.LevelWarn, string(route), "Cannot build upstream request", err)
		writeEntry(w, &Entry{Status: http.StatusBadGateway})
		return
	}

	switch route {
	case RouteAdmin:
		p.serveAdmin(w, outbound)
	case RouteAPI:
		p.serveAPI(w, outbound)
	case RouteRealtime:
		p.serveNetworkOnly(w, outbound)
	case RouteStatic:
		p.serveStatic(w, outbound)
	case RouteNavigation:
		p.serveNavigation(w, outbound)
	default:
		p.serveDefault(w, outbound)
	}
}

func (p *Proxy) serveAdmin(w http.ResponseWriter, req *http.Request) {
	resp, err := p.fetch(req)
	if err == nil {
		writeEntry(w, resp)
		return
	}
	if acceptsHTML(req) {
		if shell := p.match(req.Context(), p.names.Static, p.shellKey()); shell != nil {
			writeEntry(w, shell)
			return
		}
	}
	writeEntry(w, &Entry{
		Status: http.StatusServiceUnavailable,
		Header: http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		Body:   []byte("Network error"),
	})
}

func (p *Proxy) serveAPI(w http.ResponseWriter, req *http.Request) {
	key := p.key(req)
	resp, err := p.fetch(req)
	if err == nil {
		if resp.Status == http.StatusOK {
			p.storeInBackground(req, p.names.Data, key, *resp)
		}
		writeEntry(w, resp)
		return
	}

	if cached := p.match(req.Context(), p.names.Data, key); cached != nil {
		p.emit(req.Context(), slog.LevelInfo, string(RouteAPI), "Serving cached API response for: "+req.URL.Path, nil)
		writeEntry(w, cached)
		return
	}
	writeEntry(w, &Entry{
		Status: http.StatusServiceUnavailable,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   []byte(`{"error":"Offline"}`),
	})
}

func (p *Proxy) serveNetworkOnly(w http.ResponseWriter, req *http.Request) {
	resp, err := p.fetch(req)
	if err != nil {
		writeEntry(w, &Entry{Status: http.StatusBadGateway})
		return
	}
	writeEntry(w, resp)
}

func (p *Proxy) serveStatic(w http.ResponseWriter, req *http.Request) {
	key := p.key(req)
	if cached := p.matchAny(req.Context(), key); cached != nil {
		p.refreshInBackground(req, key)
		writeEntry(w, cached)
		return
	}

	resp, err := p.fetch(req)
	if err != nil {
		writeEntry(w, &Entry{Status: http.StatusBadGateway})
		return
	}
	if resp.Status == http.StatusOK {
		p.storeInBackground(req, p.names.Runtime, key, *resp)
	}
	writeEntry(w, resp)
}

func (p *Proxy) serveNavigation(w http.ResponseWriter, req *http.Request) {
	key := p.key(req)
	resp, err := p.fetch(req)
	if err == nil {
		if resp.Status == http.StatusOK {
			p.storeInBackground(req, p.names.Static, key, *resp)
		}
		writeEntry(w, resp)
		return
	}

	if cached := p.matchAny(req.Context(), key); cached != nil {
		writeEntry(w, cached)
		return
	}
	if shell := p.match(req.Context(), p.names.Static, p.shellKey()); shell != nil {
		writeEntry(w, shell)
		return
	}
	writeEntry(w, &Entry{Status: http.StatusBadGateway})
}

func (p *Proxy) serveDefault(w http.ResponseWriter, req *http.Request) {
	key := p.key(req)
	resp, err := p.fetch(req)
	if err == nil {
		if resp.Status == http.StatusOK {
			p.storeInBackground(req, p.names.Runtime, key, *resp)
		}
		writeEntry(w, resp)
		return
	}

	if cached := p.matchAny(req.Context(), key); cached != nil {
		writeEntry(w, cached)
		return
	}
	writeEntry(w, &Entry{Status: http.StatusBadGateway})
}

// outbound builds the upstream request. Absolute request URLs are forwarded as they are,
// relative ones are resolved against the upstream.
func (p *Proxy) outbound(r *http.Request) (*http.Request, error) {
	target := p.resolve(r.URL)

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("io.ReadAll() > %w", err)
		}
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext() > %w", err)
	}
	req.Header = r.Header.Clone()
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}
	req.ContentLength = int64(len(body))
	return req, nil
}

func (p *Proxy) fetch(req *http.Request) (*Entry, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client.Do() > %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("io.ReadAll() > %w", err)
	}
	header := resp.Header.Clone()
	for _, h := range hopHeaders {
		header.Del(h)
	}
	header.Del("Content-Length")
	return &Entry{Status: resp.StatusCode, Header: header, Body: body, StoredAt: p.now()}, nil
}

// key identifies a request by method and URL.
func (p *Proxy) key(req *http.Request) string {
	return req.Method + " " + p.resolve(req.URL).String()
}

func (p *Proxy) shellKey() string {
	return http.MethodGet + " " + p.resolve(&url.URL{Path: p.appShell}).String()
}

// resolve places a relative URL under the upstream base URL.
func (p *Proxy) resolve(u *url.URL) *url.URL {
	if u.IsAbs() {
		return u
	}
	target := *u
	target.Scheme = p.upstream.Scheme
	target.Host = p.upstream.Host
	target.Path = strings.TrimSuffix(p.upstream.Path, "/") + u.Path
	target.RawPath = ""
	return &target
}

func (p *Proxy) match(ctx context.Context, cache, key string) *Entry {
	entry, err := p.storage.Match(ctx, cache, key)
	if err != nil {
		p.emit(ctx, slog.LevelWarn, "match", "Cache lookup failed in "+cache, err)
		return nil
	}
	return entry
}

// matchAny searches every cache in creation order.
func (p *Proxy) matchAny(ctx context.Context, key string) *Entry {
	names, err := p.storage.Names(ctx)
	if err != nil {
		p.emit(ctx, slog.LevelWarn, "match", "Listing caches failed", err)
		return nil
	}
	for _, name := range names {
		if entry := p.match(ctx, name, key); entry != nil {
			return entry
		}
	}
	return nil
}

// store writes a response. Only GET responses are stored, like a browser cache.
func (p *Proxy) store(ctx context.Context, cache, key string, entry Entry) {
	if !strings.HasPrefix(key, http.MethodGet+" ") {
		return
	}
	if err := p.storage.Put(ctx, cache, key, entry); err != nil {
		p.emit(ctx, slog.LevelWarn, "store", "Cache write failed in "+cache, err)
	}
}

func (p *Proxy) storeInBackground(req *http.Request, cache, key string, entry Entry) {
	ctx := context.WithoutCancel(req.Context())
	p.background.Add(1)
	go func() {
		defer p.background.Done()
		p.store(ctx, cache, key, entry)
	}()
}

// refreshInBackground fetches req again and replaces the runtime entry when the upstream answers 200.
func (p *Proxy) refreshInBackground(req *http.Request, key string) {
	parent := context.WithoutCancel(req.Context())

	p.background.Add(1)
	go func() {
		defer p.background.Done()
		ctx, cancel := context.WithTimeout(parent, refreshTimeout)
		defer cancel()

		resp, err := p.fetch(req.Clone(ctx))
		if err != nil {
			p.emit(ctx, slog.LevelDebug, "refresh", "Background refresh failed for "+key, err)
			return
		}
		if resp.Status == http.StatusOK {
			p.store(ctx, p.names.Runtime, key, *resp)
		}
	}()
}

func writeEntry(w http.ResponseWriter, entry *Entry) {
	for name, values := range entry.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(entry.Status)
	_, _ = w.Write(entry.Body)
}
