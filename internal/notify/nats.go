package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"exchange-matcher/internal/common/logger"
	"exchange-matcher/internal/matching"

	"github.com/nats-io/nats.go"
)

const DefaultSubjectPrefix = "matches.suggested"

// NATSConfig holds connection settings.
type NATSConfig struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int // -1 reconnects forever
}

func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "exchange-matcher",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// Connect opens a NATS connection that logs its lifecycle events.
func Connect(cfg NATSConfig, log logger.Logger) (*nats.Conn, error) {
	log = log.Named("nats")
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("disconnected", map[string]interface{}{"error": err})
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("reconnected", map[string]interface{}{"url": nc.ConnectedUrl()})
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("connection closed", nil)
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	log.Info("connected", map[string]interface{}{"url": nc.ConnectedUrl()})
	return nc, nil
}

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes qualifying matches on <prefix>.<listingID>.
type NATSNotifier struct {
	pub      Publisher
	prefix   string
	minScore float64
}

func NewNATSNotifier(pub Publisher, prefix string, minScore float64) *NATSNotifier {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSNotifier{pub: pub, prefix: prefix, minScore: minScore}
}

func (n *NATSNotifier) Name() string { return "nats" }

func (n *NATSNotifier) Subject(listingID string) string {
	return n.prefix + "." + listingID
}

func (n *NATSNotifier) MatchesStored(_ context.Context, source matching.Listing, matches []matching.Match) error {
	var errs []error
	for _, m := range aboveThreshold(matches, n.minScore) {
		data, err := json.Marshal(newMessage(source, m))
		if err != nil {
			errs = append(errs, fmt.Errorf("encode match %s: %w", m.ID, err))
			continue
		}
		if err := n.pub.Publish(n.Subject(m.ListingID), data); err != nil {
			errs = append(errs, fmt.Errorf("nats publish %s: %w", m.ID, err))
		}
	}
	return errors.Join(errs...)
}
