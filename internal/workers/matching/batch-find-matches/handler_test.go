// internal/workers/matching/batch-find-matches/handler_test.go
package batchfindmatches

import (
	"context"
	"strings"
	"testing"

	apperrors "exchange-matcher/internal/common/errors"
	"exchange-matcher/internal/common/logger/loggertest"
	"exchange-matcher/internal/common/observability"
	"exchange-matcher/internal/workers/matching/workertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	fx := workertest.NewFixture(t)
	return NewHandler(LoadConfig(), fx.Engine, observability.NewNoop(), loggertest.New(t))
}

func TestHandler_Execute_KeysEveryListing(t *testing.T) {
	h := newTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{ListingIDs: []string{"a", "f", "ghost"}, Limit: 5})
	require.NoError(t, err)

	require.Len(t, out.Results, 3)
	require.Len(t, out.Results["a"], 2)
	assert.Equal(t, "b", out.Results["a"][0].ListingID)
	assert.Equal(t, "c", out.Results["a"][1].ListingID)
	assert.Empty(t, out.Results["f"])
	assert.Empty(t, out.Results["ghost"])
	assert.Equal(t, 2, out.Count)
}

func TestHandler_Execute_DuplicateIDs(t *testing.T) {
	h := newTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{ListingIDs: []string{"a", "a"}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Len(t, out.Results["a"], 1)
	assert.Equal(t, 1, out.Count)
}

func TestHandler_ParseInput(t *testing.T) {
	h := newTestHandler(t)

	in, err := h.parseInput(`{"listingIds":["a","b"],"limit":3}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, in.ListingIDs)
	assert.Equal(t, 3, in.Limit)

	for name, vars := range map[string]string{
		"missing ids": `{"limit":3}`,
		"empty ids":   `{"listingIds":[]}`,
		"blank id":    `{"listingIds":[""]}`,
		"wrong type":  `{"listingIds":"a"}`,
		"too many":    `{"listingIds":["` + strings.Repeat(`x","`, 100) + `x"]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := h.parseInput(vars)
			var stdErr *apperrors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, apperrors.ErrCodeInvalidInput, stdErr.Code)
		})
	}
}
