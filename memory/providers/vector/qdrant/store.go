package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ybryx/robolease/memory/providers/vector"
	getsafe "github.com/ybryx/robolease/util/get_safe"
)

type qdrantStore struct {
	options vector.Options
	client  *http.Client
}

func (s *qdrantStore) Add(ctx context.Context, content string, meta vector.Metadata) (string, error) {
	vec, err := s.options.Embedder.Embed(ctx, content)
	if err != nil {
		return "", fmt.Errorf("embed content: %w", err)
	}

	id := uuid.New().String()

	payload := meta.Map()
	payload["content"] = content

	point := map[string]any{
		"id":      id,
		"vector":  vec,
		"payload": payload,
	}

	req := map[string]any{
		"points": []map[string]any{point},
	}

	var rsp qdrantEnvelope[json.RawMessage]

	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPut, path, req, &rsp); err != nil {
		return "", err
	}

	if err := statusError(rsp.Status); err != nil {
		return "", err
	}

	return id, nil
}

func (s *qdrantStore) Search(ctx context.Context, query string, filter vector.Filter, limit int) ([]vector.Record, error) {
	if limit < 1 {
		return nil, nil
	}

	if len(strings.TrimSpace(query)) == 0 {
		return s.recent(ctx, filter, limit)
	}

	vec, err := s.options.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	req := map[string]any{
		"vector":       vec,
		"limit":        limit,
		"with_payload": true,
	}

	if must := filterClauses(filter); len(must) > 0 {
		req["filter"] = map[string]any{"must": must}
	}

	var rsp qdrantEnvelope[[]qdrantPointResult]

	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return nil, err
	}

	if err := statusError(rsp.Status); err != nil {
		return nil, err
	}

	results := make([]vector.Record, 0, len(rsp.Result))

	for _, point := range rsp.Result {
		rec := recordFromPayload(point.Id, point.Payload)
		rec.Score = float32(point.Score)
		results = append(results, rec)
	}

	return results, nil
}

// recent serves the no-query path: most recent points first, neutral score.
// Uses the scroll API ordered by the created_at payload field.
func (s *qdrantStore) recent(ctx context.Context, filter vector.Filter, limit int) ([]vector.Record, error) {
	req := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"order_by": map[string]any{
			"key":       "created_at",
			"direction": "desc",
		},
	}

	if must := filterClauses(filter); len(must) > 0 {
		req["filter"] = map[string]any{"must": must}
	}

	var rsp qdrantEnvelope[qdrantScrollResult]

	path := fmt.Sprintf("/collections/%s/points/scroll", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return nil, err
	}

	if err := statusError(rsp.Status); err != nil {
		return nil, err
	}

	results := make([]vector.Record, 0, len(rsp.Result.Points))

	for _, point := range rsp.Result.Points {
		rec := recordFromPayload(point.Id, point.Payload)
		rec.Score = 0.5
		results = append(results, rec)
	}

	return results, nil
}

func recordFromPayload(id string, payload map[string]any) vector.Record {
	createdAt, _ := time.Parse(time.RFC3339Nano, getsafe.String(payload, "created_at"))

	return vector.Record{
		Id:        id,
		Content:   getsafe.String(payload, "content"),
		Metadata:  payload,
		CreatedAt: createdAt,
	}
}

func (s *qdrantStore) DeleteBefore(ctx context.Context, filter vector.Filter, cutoff time.Time) (int, error) {
	must := filterClauses(filter)
	must = append(must, map[string]any{
		"key":   "created_at",
		"range": map[string]any{"lt": cutoff.UTC().Format(time.RFC3339Nano)},
	})

	// Count first so the caller gets a real number back; the delete API
	// reports an operation id, not the number of points removed.
	countReq := map[string]any{
		"filter": map[string]any{"must": must},
		"exact":  true,
	}

	var countRsp qdrantEnvelope[struct {
		Count int `json:"count"`
	}]

	countPath := fmt.Sprintf("/collections/%s/points/count", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, countPath, countReq, &countRsp); err != nil {
		return 0, err
	}

	if err := statusError(countRsp.Status); err != nil {
		return 0, err
	}

	if countRsp.Result.Count == 0 {
		return 0, nil
	}

	deleteReq := map[string]any{
		"filter": map[string]any{"must": must},
	}

	var deleteRsp qdrantEnvelope[qdrantDeleteResult]

	deletePath := fmt.Sprintf("/collections/%s/points/delete?wait=true", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, deletePath, deleteReq, &deleteRsp); err != nil {
		return 0, err
	}

	if err := statusError(deleteRsp.Status); err != nil {
		return 0, err
	}

	return countRsp.Result.Count, nil
}

// statusError rejects any response whose status is not "ok", whether or not
// the server attached an error message.
func statusError(st qdrantStatus) error {
	if strings.EqualFold(st.State, "ok") {
		return nil
	}
	if len(st.Error) > 0 {
		return errors.New(st.Error)
	}
	return fmt.Errorf("qdrant status %q", st.State)
}

func filterClauses(filter vector.Filter) []map[string]any {
	var must []map[string]any

	add := func(key, value string) {
		if len(value) == 0 {
			return
		}
		must = append(must, map[string]any{
			"key":   key,
			"match": map[string]any{"value": value},
		})
	}

	add("user_id", filter.UserID)
	add("session_id", filter.SessionID)
	add("agent_name", filter.AgentName)
	add("memory_type", filter.MemoryKind)

	for _, tag := range filter.Tags {
		must = append(must, map[string]any{
			"key":   "tags",
			"match": map[string]any{"value": tag},
		})
	}

	return must
}

func (s *qdrantStore) do(ctx context.Context, method string, path string, req any, rsp any) error {
	u := s.options.Location + path
	var buf io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")

	if len(s.options.ApiKey) > 0 {
		request.Header.Set("api-key", s.options.ApiKey)
		request.Header.Set("Authorization", "Bearer "+s.options.ApiKey)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("qdrant http %d: %s", response.StatusCode, string(payload))
	}

	if rsp != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, rsp); err != nil {
			return err
		}
	}

	return nil
}

func (s *qdrantStore) configure() error {
	exists, err := s.collectionExists()
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return s.createCollection()
}

func (s *qdrantStore) collectionExists() (bool, error) {
	path := fmt.Sprintf("/collections/%s", url.PathEscape(s.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	err := s.do(context.Background(), http.MethodGet, path, nil, &rsp)
	if err != nil {
		if strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, err
	}

	return strings.EqualFold(rsp.Status.State, "ok"), nil
}

func (s *qdrantStore) createCollection() error {
	distance := s.options.Distance
	if len(distance) == 0 {
		distance = "Cosine"
	}
	req := map[string]any{
		"vectors": map[string]any{
			"size":     s.options.VectorSize,
			"distance": distance,
		},
	}

	path := fmt.Sprintf("/collections/%s", url.PathEscape(s.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	if err := s.do(context.Background(), http.MethodPut, path, req, &rsp); err != nil {
		return err
	}

	return statusError(rsp.Status)
}

func NewStore(opts ...vector.Option) vector.Store {
	options := vector.NewOptions(opts...)

	if len(options.Location) == 0 ||
		len(options.Collection) == 0 ||
		options.VectorSize == 0 ||
		options.Embedder == nil {
		panic("missing location, collection, vector size, or embedder for qdrant store")
	}

	client := &http.Client{
		Timeout: 15 * time.Second,
	}

	s := &qdrantStore{
		options: options,
		client:  client,
	}

	if err := s.configure(); err != nil {
		panic(err)
	}

	return s
}
