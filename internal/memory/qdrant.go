// Package memory is the knowledge side of the pipeline: a Qdrant HTTP
// client, the persisted record format, and the novelty gate that decides
// which candidate elements are worth learning.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Store is a client for one Qdrant collection.
type Store struct {
	endpoint   string
	collection string
	client     *http.Client
	logger     *zap.Logger
}

// NewStore creates a store client. All calls are scoped to the given
// collection.
func NewStore(endpoint, collection string, timeout time.Duration, logger *zap.Logger) *Store {
	if endpoint == "" {
		endpoint = "http://localhost:6333"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		endpoint:   strings.TrimRight(endpoint, "/"),
		collection: collection,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Collection returns the collection name this store is bound to.
func (s *Store) Collection() string { return s.collection }

// Hit is one nearest-neighbor search result.
type Hit struct {
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type searchResponse struct {
	Result []Hit `json:"result"`
}

// Search returns up to limit nearest neighbors for the vector. A missing
// collection (404) is not an error: it means nothing is known yet, so an
// empty result comes back.
func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	url := fmt.Sprintf("%s/collections/%s/points/search", s.endpoint, s.collection)
	resp, err := s.post(ctx, url, searchRequest{Vector: vector, Limit: limit, WithPayload: true})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("qdrant search returned status %d: %s", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return result.Result, nil
}

type upsertRequest struct {
	Points []upsertPoint `json:"points"`
}

type upsertPoint struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload any       `json:"payload"`
}

// Upsert writes one point. Qdrant answering 404 (no collection) or 400
// (bad record) means the store cannot take this record; the write is
// dropped with a warning rather than escalated, since a later run can
// re-learn the same fact.
func (s *Store) Upsert(ctx context.Context, id string, vector []float32, payload any) error {
	url := fmt.Sprintf("%s/collections/%s/points", s.endpoint, s.collection)
	body, err := json.Marshal(upsertRequest{Points: []upsertPoint{{ID: id, Vector: vector, Payload: payload}}})
	if err != nil {
		return fmt.Errorf("failed to marshal upsert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Likely a misconfigured or never-created collection, which a
		// transient-error retry will not fix. Warn loudly, keep going.
		s.logger.Warn("qdrant upsert dropped: collection not found",
			zap.String("collection", s.collection))
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		s.logger.Warn("qdrant upsert dropped: store rejected record",
			zap.String("collection", s.collection))
		return nil
	case resp.StatusCode >= 300:
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant upsert returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// CollectionInfo is the subset of collection metadata the verify command
// reports.
type CollectionInfo struct {
	PointsCount         int    `json:"points_count"`
	IndexedVectorsCount int    `json:"indexed_vectors_count"`
	Status              string `json:"status"`
}

// Info fetches collection metadata.
func (s *Store) Info(ctx context.Context) (CollectionInfo, error) {
	url := fmt.Sprintf("%s/collections/%s", s.endpoint, s.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return CollectionInfo{}, fmt.Errorf("qdrant returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Result CollectionInfo `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return CollectionInfo{}, fmt.Errorf("failed to decode collection info: %w", err)
	}
	return result.Result, nil
}

// Create provisions the collection with the given vector size and cosine
// distance.
func (s *Store) Create(ctx context.Context, vectorSize int) error {
	url := fmt.Sprintf("%s/collections/%s", s.endpoint, s.collection)
	body, err := json.Marshal(map[string]any{
		"vectors": map[string]any{"size": vectorSize, "distance": "Cosine"},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal create: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant create failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant create returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Delete removes the collection. Deleting a collection that does not
// exist is not an error.
func (s *Store) Delete(ctx context.Context) error {
	url := fmt.Sprintf("%s/collections/%s", s.endpoint, s.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant delete returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Scroll lists up to limit points with payloads, for sampling what the
// store currently knows.
func (s *Store) Scroll(ctx context.Context, limit int) ([]Hit, error) {
	url := fmt.Sprintf("%s/collections/%s/points/scroll", s.endpoint, s.collection)
	resp, err := s.post(ctx, url, map[string]any{"limit": limit, "with_payload": true})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("qdrant scroll returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Result struct {
			Points []struct {
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode scroll response: %w", err)
	}

	hits := make([]Hit, len(result.Result.Points))
	for i, p := range result.Result.Points {
		hits[i] = Hit{Payload: p.Payload}
	}
	return hits, nil
}

func (s *Store) post(ctx context.Context, url string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant request failed: %w", err)
	}
	return resp, nil
}
