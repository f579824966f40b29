// internal/workers/matching/record-match-feedback/handler_test.go
package recordmatchfeedback

import (
	"context"
	"testing"

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
	fx := workertest.NewFixture(t,
		matching.Match{ID: "m-1", ListingID: "a", MatchedListingID: "b", Score: 0.67, Status: matching.MatchSuggested, CreatedAt: workertest.Now},
		matching.Match{ID: "m-2", ListingID: "a", MatchedListingID: "c", Score: 0.62, Status: matching.MatchCompleted, CreatedAt: workertest.Now},
	)
	return NewHandler(LoadConfig(), fx.Engine, observability.NewNoop(), loggertest.New(t)), fx
}

func TestHandler_Execute_RecordsFeedback(t *testing.T) {
	h, fx := newTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{MatchID: "m-1", Status: "contacted"})
	require.NoError(t, err)

	assert.Equal(t, "m-1", out.MatchID)
	assert.Equal(t, "a", out.ListingID)
	assert.Equal(t, "b", out.MatchedListingID)
	assert.Equal(t, "contacted", out.Status)
	assert.Equal(t, workertest.Now, out.FeedbackAt)

	m, err := fx.Matches.Get(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, matching.MatchContacted, m.Status)
	require.NotNil(t, m.FeedbackAt)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		code  apperrors.ErrorCode
	}{
		{"unknown match", Input{MatchID: "m-404", Status: "interested"}, apperrors.ErrCodeMatchNotFound},
		{"terminal status", Input{MatchID: "m-2", Status: "interested"}, apperrors.ErrCodeInvalidStatusTransition},
		{"same status", Input{MatchID: "m-1", Status: "suggested"}, apperrors.ErrCodeInvalidStatusTransition},
		{"bad status", Input{MatchID: "m-1", Status: "maybe"}, apperrors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t)
			_, err := h.Execute(context.Background(), &tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.FromMatching(err, nil).Code)
		})
	}
}

func TestParseInput(t *testing.T) {
	in, err := parseInput(`{"matchId":"m-1","status":"completed"}`)
	require.NoError(t, err)
	assert.Equal(t, "m-1", in.MatchID)
	assert.Equal(t, "completed", in.Status)

	for _, vars := range []string{
		`{"status":"completed"}`,
		`{"matchId":"m-1"}`,
		`{"matchId":"m-1","status":"unknown"}`,
		`{"matchId":1,"status":"completed"}`,
	} {
		_, err := parseInput(vars)
		var stdErr *apperrors.StandardError
		require.ErrorAs(t, err, &stdErr, vars)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, stdErr.Code)
	}
}
