// Package firebase reads and writes quiz content through the Firebase Realtime Database REST API.
package firebase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/at-ishikawa/quizsync/internal/content"
	"github.com/at-ishikawa/quizsync/internal/remote"
)

type Config struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
}

type Client struct {
	client    *resty.Client
	authToken string
	now       func() time.Time
}

var _ remote.Store = (*Client)(nil)

func NewClient(config Config) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetHeader("Accept", "application/json")
	if config.Timeout > 0 {
		client.SetTimeout(config.Timeout)
	}
	return &Client{
		client:    client,
		authToken: config.AuthToken,
		now:       time.Now,
	}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.client.R().SetContext(ctx)
	if c.authToken != "" {
		req.SetQueryParam("auth", c.authToken)
	}
	return req
}

// list reads every child of path and returns them ordered by key.
func (c *Client) list(ctx context.Context, path string) ([]content.Entity, error) {
	res, err := c.request(ctx).Get("/" + path + ".json")
	if err != nil {
		return nil, fmt.Errorf("client.R.Get(%s) > %w", path, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status code: %d, body: %s", path, res.StatusCode(), string(res.Body()))
	}
	entities, err := decodeChildren(res.Body())
	if err != nil {
		return nil, fmt.Errorf("decodeChildren(%s) > %w", path, err)
	}
	return entities, nil
}

// decodeChildren converts a realtime database node into entities. The node is either
// null, an object keyed by child id, or an array when every child key is numeric.
func decodeChildren(body []byte) ([]content.Entity, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("json.Unmarshal > %w", err)
	}

	entities := []content.Entity{}
	switch node := raw.(type) {
	case nil:
	case map[string]any:
		keys := make([]string, 0, len(node))
		for key := range node {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if entity, ok := toEntity(key, node[key]); ok {
				entities = append(entities, entity)
			}
		}
	case []any:
		for i, child := range node {
			if entity, ok := toEntity(strconv.Itoa(i), child); ok {
				entities = append(entities, entity)
			}
		}
	default:
		return nil, fmt.Errorf("unexpected node type %T", raw)
	}
	return entities, nil
}

func toEntity(key string, value any) (content.Entity, bool) {
	fields, ok := value.(map[string]any)
	if !ok {
		return nil, false
	}
	entity := content.Entity{"id": key}
	for k, v := range fields {
		entity[k] = v
	}
	return entity, true
}

func (c *Client) GetAllSubjects(ctx context.Context) ([]content.Entity, error) {
	return c.list(ctx, string(remote.CollectionSubjects))
}

func (c *Client) GetChaptersBySubject(ctx context.Context, subjectID string) ([]content.Entity, error) {
	chapters, err := c.listChildren(ctx, remote.CollectionChapters, subjectID)
	if err != nil {
		return nil, err
	}
	content.SortBySerial(chapters)
	return chapters, nil
}

func (c *Client) GetQuestionsByChapter(ctx context.Context, chapterID string) ([]content.Entity, error) {
	return c.listChildren(ctx, remote.CollectionQuestions, chapterID)
}

func (c *Client) GetWordMeaningSubjects(ctx context.Context) ([]content.Entity, error) {
	return c.list(ctx, string(remote.CollectionWordMeaningSubjects))
}

func (c *Client) GetWordMeaningChapters(ctx context.Context, subjectID string) ([]content.Entity, error) {
	chapters, err := c.listChildren(ctx, remote.CollectionWordMeaningChapters, subjectID)
	if err != nil {
		return nil, err
	}
	content.SortBySerial(chapters)
	return chapters, nil
}

func (c *Client) GetWordMeaningPages(ctx context.Context, chapterID string) ([]content.Entity, error) {
	return c.listChildren(ctx, remote.CollectionWordMeaningPages, chapterID)
}

func (c *Client) GetWordMeaningQuestionsByPage(ctx context.Context, pageID string) ([]content.Entity, error) {
	return c.listChildren(ctx, remote.CollectionWordMeaningQuestions, pageID)
}

func (c *Client) listChildren(ctx context.Context, collection remote.Collection, parentID string) ([]content.Entity, error) {
	path, err := collection.Path(parentID)
	if err != nil {
		return nil, fmt.Errorf("collection.Path() > %w", err)
	}
	return c.list(ctx, path)
}

// Create stores data under a new id and returns the id.
func (c *Client) Create(ctx context.Context, collection remote.Collection, parentID string, data content.Entity) remote.WriteResult {
	path, err := collection.Path(parentID)
	if err != nil {
		return remote.Failed(err)
	}

	now := c.now()
	id := remote.NewID(now)
	body := content.Entity{}
	for k, v := range data {
		body[k] = v
	}
	body["id"] = id
	body["createdAt"] = now.UnixMilli()

	if err := c.write(ctx, http.MethodPut, path+"/"+id, body); err != nil {
		return remote.Failed(err)
	}
	return remote.WriteResult{Success: true, ID: id}
}

// Update merges data into an existing document.
func (c *Client) Update(ctx context.Context, collection remote.Collection, parentID, id string, data content.Entity) remote.WriteResult {
	path, err := collection.Path(parentID)
	if err != nil {
		return remote.Failed(err)
	}
	if err := c.write(ctx, http.MethodPatch, path+"/"+id, data); err != nil {
		return remote.Failed(err)
	}
	return remote.WriteResult{Success: true, ID: id}
}

func (c *Client) Delete(ctx context.Context, collection remote.Collection, parentID, id string) remote.WriteResult {
	path, err := collection.Path(parentID)
	if err != nil {
		return remote.Failed(err)
	}
	if err := c.write(ctx, http.MethodDelete, path+"/"+id, nil); err != nil {
		return remote.Failed(err)
	}
	return remote.WriteResult{Success: true, ID: id}
}

func (c *Client) write(ctx context.Context, method, path string, body any) error {
	if strings.Contains(path, "//") || strings.HasSuffix(path, "/") {
		return fmt.Errorf("document id is required")
	}

	req := c.request(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	res, err := req.Execute(method, "/"+path+".json")
	if err != nil {
		return fmt.Errorf("client.R.Execute(%s %s) > %w", method, path, err)
	}
	if res.IsError() {
		return fmt.Errorf("%s %s: status code: %d, body: %s", method, path, res.StatusCode(), string(res.Body()))
	}
	return nil
}
