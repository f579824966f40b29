package notify

import (
	"context"
	"errors"

	"exchange-matcher/internal/common/aws"
	"exchange-matcher/internal/common/logger"
	"exchange-matcher/internal/matching"
)

// SNSNotifier publishes one message per qualifying match to an SNS topic.
type SNSNotifier struct {
	client   *aws.SNSClient
	topicARN string
	minScore float64
	logger   logger.Logger
}

func NewSNSNotifier(client *aws.SNSClient, topicARN string, minScore float64, log logger.Logger) *SNSNotifier {
	return &SNSNotifier{
		client:   client,
		topicARN: topicARN,
		minScore: minScore,
		logger:   log.Named("sns"),
	}
}

func (n *SNSNotifier) Name() string { return "sns" }

func (n *SNSNotifier) MatchesStored(ctx context.Context, source matching.Listing, matches []matching.Match) error {
	var errs []error
	for _, m := range aboveThreshold(matches, n.minScore) {
		id, err := n.client.PublishJSON(ctx, n.topicARN, newMessage(source, m), map[string]string{
			"event":     EventMatchSuggested,
			"listingId": m.ListingID,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n.logger.Debug("match published", map[string]interface{}{
			"matchId":   m.ID,
			"messageId": id,
		})
	}
	return errors.Join(errs...)
}
