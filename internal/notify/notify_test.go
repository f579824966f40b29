package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"exchange-matcher/internal/common/aws"
	apperrors "exchange-matcher/internal/common/errors"
	"exchange-matcher/internal/common/logger"
	"exchange-matcher/internal/common/logger/loggertest"
	"exchange-matcher/internal/matching"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	source = matching.Listing{ID: "l-1", OwnerID: "u-1", Title: "Speaker"}
	stored = []matching.Match{
		{ID: "m-1", ListingID: "l-1", MatchedListingID: "l-2", Score: 0.82, Reasons: []string{"Perfect category match"}, CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "m-2", ListingID: "l-1", MatchedListingID: "l-3", Score: 0.45},
		{ID: "m-3", ListingID: "l-1", MatchedListingID: "l-4", Score: 0.70},
	}
)

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestNATSNotifier_PublishesAboveThreshold(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNATSNotifier(pub, "", 0.7)

	require.NoError(t, n.MatchesStored(context.Background(), source, stored))

	assert.Equal(t, []string{"matches.suggested.l-1", "matches.suggested.l-1"}, pub.subjects)

	var msg Message
	require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
	assert.Equal(t, EventMatchSuggested, msg.Event)
	assert.Equal(t, "m-1", msg.MatchID)
	assert.Equal(t, "u-1", msg.ListingOwnerID)
	assert.Equal(t, 0.82, msg.Score)
}

func TestNATSNotifier_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	n := NewNATSNotifier(pub, "custom", 0)

	err := n.MatchesStored(context.Background(), source, stored)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m-2")
	assert.Equal(t, "custom.l-9", n.Subject("l-9"))
}

type mockSNS struct {
	mock.Mock
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*sns.PublishOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestSNSNotifier_PublishesWithAttributes(t *testing.T) {
	api := &mockSNS{}
	api.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return awssdk.ToString(in.TopicArn) == "arn:aws:sns:eu-central-1:123:matches" &&
			awssdk.ToString(in.MessageAttributes["listingId"].StringValue) == "l-1"
	})).Return(&sns.PublishOutput{MessageId: awssdk.String("msg-1")}, nil).Twice()

	n := NewSNSNotifier(aws.NewSNSClientWithAPI(api), "arn:aws:sns:eu-central-1:123:matches", 0.7, loggertest.New(t))
	require.NoError(t, n.MatchesStored(context.Background(), source, stored))
	api.AssertExpectations(t)
}

func TestSNSNotifier_JoinsErrors(t *testing.T) {
	api := &mockSNS{}
	api.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	n := NewSNSNotifier(aws.NewSNSClientWithAPI(api), "arn:topic", 0.0, logger.NewNoOpLogger())
	err := n.MatchesStored(context.Background(), source, stored)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
	api.AssertNumberOfCalls(t, "Publish", 3)
}

type stubChannel struct {
	name  string
	err   error
	calls int
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) MatchesStored(context.Context, matching.Listing, []matching.Match) error {
	s.calls++
	return s.err
}

func TestFanout_ContinuesPastFailingChannel(t *testing.T) {
	bad := &stubChannel{name: "sns", err: errors.New("down")}
	good := &stubChannel{name: "nats"}
	f := NewFanout(loggertest.New(t), bad, good)

	err := f.MatchesStored(context.Background(), source, stored)
	require.Error(t, err)
	assert.Equal(t, 1, good.calls)

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeNotificationFailed, stdErr.Code)
}

func TestFanout_NoMatchesIsNoop(t *testing.T) {
	ch := &stubChannel{name: "nats"}
	f := NewFanout(logger.NewNoOpLogger(), ch)

	require.NoError(t, f.MatchesStored(context.Background(), source, nil))
	assert.Zero(t, ch.calls)
	assert.Equal(t, 1, f.Len())
}
