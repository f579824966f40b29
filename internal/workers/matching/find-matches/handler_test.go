// internal/workers/matching/find-matches/handler_test.go
package findmatches

import (
	"context"
	"testing"
	"time"

	apperrors "exchange-matcher/internal/common/errors"
	"exchange-matcher/internal/common/logger/loggertest"
	"exchange-matcher/internal/common/observability"
	"exchange-matcher/internal/matching"
	"exchange-matcher/internal/workers/matching/workertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, *workertest.Fixture) {
	t.Helper()
	fx := workertest.NewFixture(t)
	return NewHandler(LoadConfig(), fx.Engine, observability.NewNoop(), loggertest.New(t)), fx
}

func matchIDs(out *Output) []string {
	ids := make([]string, len(out.Matches))
	for i, m := range out.Matches {
		ids[i] = m.ListingID
	}
	return ids
}

func TestHandler_Execute_RanksWithoutPersisting(t *testing.T) {
	h, fx := newTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{ListingID: "a", Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, "a", out.ListingID)
	assert.Equal(t, []string{"b", "c"}, matchIDs(out))
	assert.Equal(t, 2, out.Count)
	assert.Greater(t, out.Matches[0].Score, out.Matches[1].Score)
	assert.Equal(t, []string{matching.ReasonPerfectCategory}, out.Matches[0].Reasons)
	assert.Equal(t, []string{matching.FactorCategoryMatch.String()}, out.Matches[0].Factors)
	assert.Empty(t, out.Matches[0].MatchID)
	assert.Empty(t, fx.Matches.All())
}

func TestHandler_Execute_Persist(t *testing.T) {
	h, fx := newTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{ListingID: "a", Limit: 10, Persist: true})
	require.NoError(t, err)
	require.Equal(t, 2, out.Count)

	stored := fx.Matches.All()
	require.Len(t, stored, 2)
	for _, m := range out.Matches {
		require.NotEmpty(t, m.MatchID)
		persisted, err := fx.Matches.Get(context.Background(), m.MatchID)
		require.NoError(t, err)
		assert.Equal(t, m.ListingID, persisted.MatchedListingID)
		assert.Equal(t, matching.MatchSuggested, persisted.Status)
		assert.Equal(t, workertest.Now, persisted.CreatedAt)
	}

	again, err := h.Execute(context.Background(), &Input{ListingID: "a", Limit: 10, Persist: true})
	require.NoError(t, err)
	assert.Equal(t, out.Matches[0].MatchID, again.Matches[0].MatchID)
	assert.Len(t, fx.Matches.All(), 2)
}

func TestHandler_Execute_Limit(t *testing.T) {
	h, _ := newTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{ListingID: "a", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, matchIDs(out))
}

func TestHandler_Execute_Filters(t *testing.T) {
	h, _ := newTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{
		ListingID: "a",
		Limit:     10,
		Filters:   &matching.Filters{MinScore: 0.65},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, matchIDs(out))

	out, err = h.Execute(context.Background(), &Input{
		ListingID: "a",
		Filters:   &matching.Filters{Categories: []string{"furniture"}},
	})
	require.NoError(t, err)
	assert.Empty(t, out.Matches)
	assert.NotNil(t, out.Matches)
}

func TestHandler_Execute_UnknownListing(t *testing.T) {
	h, _ := newTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{ListingID: "ghost"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Count)
	assert.NotNil(t, out.Matches)
}

func TestHandler_Execute_DeadlineExceeded(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := h.Execute(ctx, &Input{ListingID: "a"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeTimeout, apperrors.FromMatching(err, nil).Code)
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		wantErr   bool
		check     func(t *testing.T, in *Input)
	}{
		{
			name:      "minimal",
			variables: `{"listingId":"a"}`,
			check: func(t *testing.T, in *Input) {
				assert.Equal(t, "a", in.ListingID)
				assert.Zero(t, in.Limit)
				assert.Nil(t, in.Filters)
				assert.False(t, in.Persist)
			},
		},
		{
			name:      "full",
			variables: `{"listingId":"a","limit":5,"persist":true,"filters":{"minScore":0.5,"categories":["books"]},"unrelated":1}`,
			check: func(t *testing.T, in *Input) {
				assert.Equal(t, 5, in.Limit)
				assert.True(t, in.Persist)
				require.NotNil(t, in.Filters)
				assert.Equal(t, 0.5, in.Filters.MinScore)
				assert.Equal(t, []string{"books"}, in.Filters.Categories)
			},
		},
		{name: "missing listing", variables: `{"limit":5}`, wantErr: true},
		{name: "empty listing", variables: `{"listingId":""}`, wantErr: true},
		{name: "limit too large", variables: `{"listingId":"a","limit":1000}`, wantErr: true},
		{name: "min score out of range", variables: `{"listingId":"a","filters":{"minScore":2}}`, wantErr: true},
		{name: "malformed", variables: `{"listingId":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := parseInput(tt.variables)
			if tt.wantErr {
				require.Error(t, err)
				var stdErr *apperrors.StandardError
				require.ErrorAs(t, err, &stdErr)
				assert.Equal(t, apperrors.ErrCodeInvalidInput, stdErr.Code)
				return
			}
			require.NoError(t, err)
			tt.check(t, in)
		})
	}
}
