package events

import (
	"context"
	"encoding/json"

	"github.com/linkboard/linkboard/internal/domain"
	"github.com/linkboard/linkboard/internal/logger"
	redisstore "github.com/linkboard/linkboard/internal/store/redis"
)

// AppendLog is the channel log write side.
type AppendLog interface {
	Publish(ctx context.Context, channelKey string, payload []byte) error
}

// Publisher appends change envelopes to the relevant channels. Publish
// failures are swallowed and logged, never surfaced to the originating
// mutation: the unified read is the correctness backstop, not the log.
type Publisher struct {
	log    AppendLog
	logger logger.Logger
}

// NewPublisher creates a publisher over a channel log.
func NewPublisher(log AppendLog, logging logger.Logger) *Publisher {
	return &Publisher{log: log, logger: logging}
}

// ListUpdated publishes a coarse "list changed" envelope.
func (p *Publisher) ListUpdated(ctx context.Context, listID string, action domain.Action) {
	p.publish(ctx, redisstore.ListChannelKey(listID), Envelope{
		Type:      EventListUpdated,
		ListID:    listID,
		Action:    action,
		Timestamp: NowMillis(),
	})
}

// URLClicked publishes the high-frequency click envelope carrying the
// new counter so clients can patch without a resync.
func (p *Publisher) URLClicked(ctx context.Context, listID, urlID string, clicks int64) {
	p.publish(ctx, redisstore.ListChannelKey(listID), Envelope{
		Type:       EventListUpdated,
		ListID:     listID,
		Action:     domain.ActionURLClicked,
		Timestamp:  NowMillis(),
		URLID:      urlID,
		ClickCount: clicks,
	})
}

// ActivityCreated publishes an envelope with the embedded activity
// summary for optimistic rendering.
func (p *Publisher) ActivityCreated(ctx context.Context, rec *domain.ActivityRecord) {
	if rec == nil {
		return
	}
	p.publish(ctx, redisstore.ActivityChannelKey(rec.ListID), Envelope{
		Type:      EventActivityCreated,
		ListID:    rec.ListID,
		Action:    rec.Action,
		Timestamp: NowMillis(),
		Activity: &ActivitySummary{
			ID:         rec.ID,
			Action:     rec.Action,
			ActorEmail: rec.ActorEmail,
			CreatedAt:  rec.CreatedAt,
		},
	})
}

func (p *Publisher) publish(ctx context.Context, channelKey string, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		p.logger.Warn("failed to marshal envelope",
			logger.String("channel", channelKey),
			logger.Error(err))
		return
	}

	if err := p.log.Publish(ctx, channelKey, payload); err != nil {
		p.logger.Warn("channel publish failed, relying on unified read",
			logger.String("channel", channelKey),
			logger.String("type", string(env.Type)),
			logger.Error(err))
	}
}
