package cacheproxy_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/at-ishikawa/quizsync/internal/cacheproxy"
	"github.com/at-ishikawa/quizsync/internal/config"
	mock_cacheproxy "github.com/at-ishikawa/quizsync/internal/mocks/cacheproxy"
)

type offlineTransport struct {
	offline atomic.Bool
}

func (t *offlineTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.offline.Load() {
		return nil, errors.New("network is unreachable")
	}
	return http.DefaultTransport.RoundTrip(req)
}

func TestProxy_StorageErrorsStayInside(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mock_cacheproxy.NewMockStorage(ctrl)
	storage.EXPECT().Names(gomock.Any()).Return(nil, errors.New("disk I/O error")).AnyTimes()
	storage.EXPECT().Match(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("disk I/O error")).AnyTimes()
	storage.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk full")).AnyTimes()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.URL.Path)
	}))
	defer upstream.Close()

	cfg := config.ProxyConfig{
		Upstream:      upstream.URL,
		CachePrefix:   "quizmaster",
		CacheVersion:  "v1.0.2",
		AdminPrefix:   "/admin",
		APIPrefix:     "/api/",
		RealtimeHosts: []string{"firebase", "firebaseio"},
		AppShell:      "/index.html",
		Precache:      []string{"/", "/index.html"},
		Timeout:       time.Second,
	}
	transport := &offlineTransport{}
	p, err := cacheproxy.New(cfg, storage, cacheproxy.WithHTTPClient(&http.Client{Transport: transport}))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/foo", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logo.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	p.Wait()

	transport.offline.Store(true)
	rec = httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/foo", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	assert.Error(t, p.Activate(context.Background()))
	assert.Error(t, p.HandleMessage(context.Background(), cacheproxy.Message{Type: cacheproxy.MessageClearCache}))
}
