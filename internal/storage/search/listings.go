// internal/storage/search/listings.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"exchange-matcher/internal/matching"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ListingStore serves candidate retrieval from the listing index. Documents
// are the JSON form of matching.Listing keyed by listing id.
type ListingStore struct {
	client *elasticsearch.Client
	index  string
}

func NewListingStore(client *elasticsearch.Client, index string) *ListingStore {
	return &ListingStore{client: client, index: index}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source matching.Listing `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ListingStore) GetListing(ctx context.Context, id string) (*matching.Listing, error) {
	res, err := esapi.GetRequest{Index: s.index, DocumentID: id}.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("get listing %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", matching.ErrListingNotFound, id)
	}
	if res.IsError() {
		return nil, responseError("get listing "+id, res)
	}

	var doc struct {
		Found  bool             `json:"found"`
		Source matching.Listing `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode listing %s: %w", id, err)
	}
	if !doc.Found {
		return nil, fmt.Errorf("%w: %s", matching.ErrListingNotFound, id)
	}
	return &doc.Source, nil
}

func (s *ListingStore) QueryCandidates(ctx context.Context, q matching.CandidateQuery) ([]matching.Listing, error) {
	return s.search(ctx, "query candidates", BuildCandidateQuery(q), 0, q.Limit)
}

// ListActive pages with search_after on id, so it is not bounded by the
// index's max_result_window the way from/size paging is.
func (s *ListingStore) ListActive(ctx context.Context, afterID string, limit int) ([]matching.Listing, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"status": string(matching.ListingActive)},
		},
		"sort": []interface{}{
			map[string]interface{}{"id": "asc"},
		},
	}
	if afterID != "" {
		body["search_after"] = []interface{}{afterID}
	}
	return s.search(ctx, "list active listings", body, 0, limit)
}

// IndexListing upserts one listing document.
func (s *ListingStore) IndexListing(ctx context.Context, l matching.Listing) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode listing %s: %w", l.ID, err)
	}
	res, err := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: l.ID,
		Body:       bytes.NewReader(data),
	}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index listing %s: %w", l.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index listing "+l.ID, res)
	}
	return nil
}

func (s *ListingStore) search(ctx context.Context, op string, body map[string]interface{}, from, size int) ([]matching.Listing, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode query: %w", op, err)
	}

	res, err := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(data),
		From:  &from,
		Size:  &size,
	}.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError(op, res)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}

	out := make([]matching.Listing, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

// BuildCandidateQuery turns the coarse candidate filter into a bool query.
// Urgent listings are boosted so they survive the size bound.
func BuildCandidateQuery(q matching.CandidateQuery) map[string]interface{} {
	filter := []interface{}{}
	if q.ActiveOnly {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"status": string(matching.ListingActive)},
		})
	}
	if len(q.Kinds) > 0 {
		kinds := make([]string, len(q.Kinds))
		for i, k := range q.Kinds {
			kinds[i] = string(k)
		}
		filter = append(filter, map[string]interface{}{
			"terms": map[string]interface{}{"kind": kinds},
		})
	}
	if len(q.Categories) > 0 {
		filter = append(filter, map[string]interface{}{
			"terms": map[string]interface{}{"categories": q.Categories},
		})
	}

	boolQuery := map[string]interface{}{
		"filter": filter,
		"should": []interface{}{
			map[string]interface{}{"term": map[string]interface{}{"urgent": map[string]interface{}{"value": true, "boost": 2.0}}},
		},
	}
	if q.ExcludeID != "" {
		boolQuery["must_not"] = []interface{}{
			map[string]interface{}{"ids": map[string]interface{}{"values": []string{q.ExcludeID}}},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	return fmt.Errorf("%s: elasticsearch returned %s: %s", op, res.Status(), bytes.TrimSpace(body))
}
