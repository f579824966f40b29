package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"exchange-matcher/internal/matching"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeTransport answers every request with a canned status and body and
// records what the client sent.
type fakeTransport struct {
	mu       sync.Mutex
	status   int
	body     string
	requests []recordedRequest
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{req.Method, req.URL.Path, req.URL.RawQuery, body})
	f.mu.Unlock()

	header := http.Header{}
	header.Set("X-Elastic-Product", "Elasticsearch")
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: f.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Request:    req,
	}, nil
}

func (f *fakeTransport) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestStore(t *testing.T, status int, body string) (*ListingStore, *fakeTransport) {
	ft := &fakeTransport{status: status, body: body}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://es.test:9200"},
		Transport: ft,
	})
	require.NoError(t, err)
	return NewListingStore(client, "exchange_listings"), ft
}

const twoHits = `{"hits":{"hits":[
  {"_id":"l-2","_source":{"id":"l-2","ownerId":"u-2","kind":"request","categories":["electronics"],"title":"Want speaker","status":"active"}},
  {"_id":"l-3","_source":{"id":"l-3","ownerId":"u-3","kind":"request","categories":["electronics"],"title":"Want radio","status":"active","estimatedValue":20,"location":{"lat":52.5,"lng":13.4}}}
]}}`

func TestListingStore_QueryCandidates(t *testing.T) {
	store, ft := newTestStore(t, http.StatusOK, twoHits)

	out, err := store.QueryCandidates(context.Background(), matching.CandidateQuery{
		Kinds:      []matching.Kind{matching.KindRequest},
		Categories: []string{"electronics"},
		ExcludeID:  "l-1",
		ActiveOnly: true,
		Limit:      50,
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "l-3", out[1].ID)
	require.NotNil(t, out[1].Location)
	assert.Equal(t, 13.4, out[1].Location.Lng)

	req := ft.last()
	assert.Equal(t, "/exchange_listings/_search", req.Path)
	assert.Contains(t, req.Query, "size=50")
	assert.Contains(t, req.Body, `"must_not"`)
	assert.Contains(t, req.Body, `"l-1"`)
	assert.Contains(t, req.Body, `"kind":["request"]`)
}

func TestListingStore_QueryCandidates_ErrorStatus(t *testing.T) {
	store, _ := newTestStore(t, http.StatusServiceUnavailable, `{"error":"unavailable"}`)

	_, err := store.QueryCandidates(context.Background(), matching.CandidateQuery{Limit: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestListingStore_GetListing(t *testing.T) {
	store, ft := newTestStore(t, http.StatusOK,
		`{"_id":"l-1","found":true,"_source":{"id":"l-1","ownerId":"u-1","kind":"give_away","title":"Speaker","status":"active","urgent":true}}`)

	l, err := store.GetListing(context.Background(), "l-1")
	require.NoError(t, err)
	assert.Equal(t, matching.KindGiveAway, l.Kind)
	assert.True(t, l.Urgent)
	assert.Equal(t, "/exchange_listings/_doc/l-1", ft.last().Path)
}

func TestListingStore_GetListing_NotFound(t *testing.T) {
	store, _ := newTestStore(t, http.StatusNotFound, `{"_id":"nope","found":false}`)

	_, err := store.GetListing(context.Background(), "nope")
	assert.ErrorIs(t, err, matching.ErrListingNotFound)
}

func TestListingStore_ListActive(t *testing.T) {
	store, ft := newTestStore(t, http.StatusOK, twoHits)

	out, err := store.ListActive(context.Background(), "", 25)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	req := ft.last()
	assert.Contains(t, req.Query, "from=0")
	assert.Contains(t, req.Query, "size=25")
	assert.Contains(t, req.Body, `"status":"active"`)
	assert.Contains(t, req.Body, `"sort":[{"id":"asc"}]`)
	assert.NotContains(t, req.Body, "search_after")
}

func TestListingStore_ListActive_DeepPageUsesSearchAfter(t *testing.T) {
	store, ft := newTestStore(t, http.StatusOK, twoHits)

	// A keyset cursor keeps from at zero however deep the walk goes, so
	// max_result_window never applies.
	_, err := store.ListActive(context.Background(), "l-10042", 25)
	require.NoError(t, err)

	req := ft.last()
	assert.Contains(t, req.Query, "from=0")
	assert.NotContains(t, req.Query, "from=10")
	assert.Contains(t, req.Body, `"search_after":["l-10042"]`)
}

func TestListingStore_IndexListing(t *testing.T) {
	store, ft := newTestStore(t, http.StatusCreated, `{"result":"created"}`)
	v := 30.0

	err := store.IndexListing(context.Background(), matching.Listing{
		ID: "l-7", OwnerID: "u-7", Kind: matching.KindExchange, Title: "Board game",
		EstimatedValue: &v, Status: matching.ListingActive,
	})
	require.NoError(t, err)

	req := ft.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/exchange_listings/_doc/l-7", req.Path)

	var doc matching.Listing
	require.NoError(t, json.Unmarshal([]byte(req.Body), &doc))
	assert.Equal(t, "Board game", doc.Title)
}

func TestBuildCandidateQuery_OmitsEmptyFilters(t *testing.T) {
	body := BuildCandidateQuery(matching.CandidateQuery{Limit: 5})
	data, err := json.Marshal(body)
	require.NoError(t, err)

	s := string(data)
	assert.NotContains(t, s, `"must_not"`)
	assert.NotContains(t, s, `"kind"`)
	assert.NotContains(t, s, `"categories"`)
	assert.Contains(t, s, `"urgent"`)
}
