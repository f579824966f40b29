// internal/workers/matching/rebuild-matches/handler_test.go
package rebuildmatches

import (
	"context"
	"testing"

	apperrors "exchange-matcher/internal/common/errors"
	"exchange-matcher/internal/common/logger/loggertest"
	"exchange-matcher/internal/common/observability"
	"exchange-matcher/internal/workers/matching/workertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Execute_RebuildsEveryActiveListing(t *testing.T) {
	for _, pageSize := range []int{0, 1, 2, 50} {
		fx := workertest.NewFixture(t)
		h := NewHandler(LoadConfig(), fx.Engine, observability.NewNoop(), loggertest.New(t))

		out, err := h.Execute(context.Background(), &Input{PageSize: pageSize})
		require.NoError(t, err, "pageSize %d", pageSize)

		// a, b, c, d and f are active; e has expired.
		assert.Equal(t, 5, out.ListingsProcessed, "pageSize %d", pageSize)
		assert.Zero(t, out.Failures)
		assert.Equal(t, len(fx.Matches.All()), out.MatchesStored)
		assert.Positive(t, out.MatchesStored)
	}
}

func TestHandler_Execute_SecondRunReusesMatches(t *testing.T) {
	fx := workertest.NewFixture(t)
	h := NewHandler(LoadConfig(), fx.Engine, observability.NewNoop(), loggertest.New(t))

	first, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	second, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)

	assert.Equal(t, first.MatchesStored, second.MatchesStored)
	assert.Len(t, fx.Matches.All(), first.MatchesStored)
}

func TestParseInput(t *testing.T) {
	in, err := parseInput(`{}`)
	require.NoError(t, err)
	assert.Zero(t, in.PageSize)

	in, err = parseInput(`{"pageSize":25}`)
	require.NoError(t, err)
	assert.Equal(t, 25, in.PageSize)

	_, err = parseInput(`{"pageSize":0}`)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, stdErr.Code)
}
