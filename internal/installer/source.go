package installer

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/at-ishikawa/quizsync/internal/content"
)

//go:generate mockgen -source=source.go -destination=../mocks/installer/mock_source.go -package=mock_installer

// Source serves the exported files of a class.
type Source interface {
	// FetchManifest returns the raw metadata file. A missing file or an unexpected content type is ErrManifestMissing.
	FetchManifest(ctx context.Context, classID string) ([]byte, error)
	// ChunkExists reports ErrChunkMissing when the chunk file is not available.
	ChunkExists(ctx context.Context, classID, chunkName string) error
	FetchChunk(ctx context.Context, classID, chunkName string) ([]byte, error)
}

// HTTPSource reads exported files from <baseURL>/<dataRoot>/<classID>/<name>.<ext>.
type HTTPSource struct {
	httpClient *resty.Client
	dataRoot   string
	format     content.Format
	now        func() time.Time
}

func NewHTTPSource(baseURL, dataRoot string, format content.Format, timeout time.Duration) *HTTPSource {
	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	if format == "" {
		format = content.FormatJSON
	}

	return &HTTPSource{
		httpClient: client,
		dataRoot:   strings.Trim(dataRoot, "/"),
		format:     format,
		now:        time.Now,
	}
}

func (s *HTTPSource) Close() error {
	return s.httpClient.Close()
}

func (s *HTTPSource) path(classID, name string) string {
	return fmt.Sprintf("/%s/%s/%s.%s", s.dataRoot, url.PathEscape(classID), url.PathEscape(name), s.format.Extension())
}

// request returns a request with a cache-busting t=<millis> parameter.
func (s *HTTPSource) request(ctx context.Context) *resty.Request {
	return s.httpClient.R().
		SetContext(ctx).
		SetQueryParam("t", strconv.FormatInt(s.now().UnixMilli(), 10))
}

func acceptedContentType(contentType string) bool {
	if contentType == "" {
		return true
	}
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "json") || strings.Contains(contentType, "javascript")
}

func (s *HTTPSource) FetchManifest(ctx context.Context, classID string) ([]byte, error) {
	response, err := s.request(ctx).Get(s.path(classID, "metadata"))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: data files for %s could not be reached: %w", ErrManifestMissing, classID, err)
	}
	if response.IsError() {
		return nil, fmt.Errorf("%w: data files not found for %s (status %d). Export the class first", ErrManifestMissing, classID, response.StatusCode())
	}
	if contentType := response.Header().Get("Content-Type"); !acceptedContentType(contentType) {
		return nil, fmt.Errorf("%w: invalid data file format, expected JSON or JavaScript, got %s", ErrManifestMissing, contentType)
	}
	return []byte(response.String()), nil
}

func (s *HTTPSource) ChunkExists(ctx context.Context, classID, chunkName string) error {
	response, err := s.request(ctx).Head(s.path(classID, chunkName))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s.%s: %w", ErrChunkMissing, chunkName, s.format.Extension(), err)
	}
	if response.IsError() {
		return fmt.Errorf("%w: chunk file not found: %s.%s", ErrChunkMissing, chunkName, s.format.Extension())
	}
	return nil
}

func (s *HTTPSource) FetchChunk(ctx context.Context, classID, chunkName string) ([]byte, error) {
	response, err := s.request(ctx).Get(s.path(classID, chunkName))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: failed to load %s.%s: %w", ErrIncompleteData, chunkName, s.format.Extension(), err)
	}
	if response.IsError() {
		return nil, fmt.Errorf("%w: failed to load %s.%s: status %d", ErrIncompleteData, chunkName, s.format.Extension(), response.StatusCode())
	}
	return []byte(response.String()), nil
}
