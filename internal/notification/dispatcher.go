package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"case-engine/internal/config"
	"case-engine/internal/engine"
	"case-engine/internal/models"
	"case-engine/internal/rbac"
	"case-engine/internal/repository"
)

// Event is the wire shape published to the notification topic for external
// consumers such as push or mail services.
type Event struct {
	NotificationID uuid.UUID  `json:"notification_id"`
	RecipientID    uuid.UUID  `json:"recipient_id"`
	Type           string     `json:"type"`
	CaseID         *uuid.UUID `json:"case_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Dispatcher fans workflow notifications out to role pools and principals.
// It persists each notification, keeps per-recipient unread counters in
// Redis, and publishes an event to Kafka. Delivery is best effort; failures
// are logged and never surfaced to the calling workflow.
type Dispatcher struct {
	notifications repository.NotificationRepository
	auth          *rbac.Authority
	writer        *kafka.Writer
	redis         *redis.Client
	logger        *zap.Logger
}

var _ engine.Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher. The Kafka writer and Redis client may
// be nil when the corresponding backends are disabled.
func NewDispatcher(
	notifications repository.NotificationRepository,
	auth *rbac.Authority,
	kafkaCfg config.KafkaConfig,
	redisCfg config.RedisConfig,
	logger *zap.Logger,
) *Dispatcher {
	d := &Dispatcher{
		notifications: notifications,
		auth:          auth,
		logger:        logger.Named("notification"),
	}

	if kafkaCfg.Enabled {
		d.writer = &kafka.Writer{
			Addr:         kafka.TCP(kafkaCfg.Brokers...),
			Topic:        kafkaCfg.NotificationTopic,
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    kafkaCfg.BatchSize,
			BatchTimeout: kafkaCfg.BatchTimeout,
			WriteTimeout: kafkaCfg.WriteTimeout,
		}
	}
	if redisCfg.Enabled {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     redisCfg.Address,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
	}

	return d
}

// Close releases the Kafka writer and Redis client.
func (d *Dispatcher) Close() error {
	var firstErr error
	if d.writer != nil {
		if err := d.writer.Close(); err != nil {
			firstErr = errors.Wrap(err, "failed to close kafka writer")
		}
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "failed to close redis client")
		}
	}
	return firstErr
}

// Notify implements engine.Notifier.
func (d *Dispatcher) Notify(ctx context.Context, to engine.Recipients, ntype string, caseID *uuid.UUID) {
	recipients, err := d.resolve(ctx, to)
	if err != nil {
		d.logger.Error("Failed to resolve notification recipients",
			zap.String("type", ntype), zap.Error(err))
		return
	}
	if len(recipients) == 0 {
		return
	}

	notifications := make([]*models.Notification, 0, len(recipients))
	for _, r := range recipients {
		notifications = append(notifications, &models.Notification{
			RecipientID: r,
			Type:        ntype,
			CaseID:      caseID,
		})
	}

	if err := d.notifications.CreateBatch(ctx, notifications); err != nil {
		d.logger.Error("Failed to persist notifications",
			zap.String("type", ntype), zap.Error(err))
		return
	}

	d.bumpUnreadCounters(ctx, recipients)
	d.publish(ctx, notifications)

	d.logger.Debug("Notifications dispatched",
		zap.String("type", ntype),
		zap.Int("recipients", len(notifications)))
}

// MarkRead flips one notification to read and keeps the Redis counter in
// step. The repository guard makes repeated calls harmless.
func (d *Dispatcher) MarkRead(ctx context.Context, id, recipient uuid.UUID) error {
	applied, err := d.notifications.MarkRead(ctx, id, recipient)
	if err != nil {
		return errors.Wrap(err, "failed to mark notification read")
	}
	if applied && d.redis != nil {
		if err := d.redis.Decr(ctx, unreadKey(recipient)).Err(); err != nil {
			d.logger.Warn("Failed to decrement unread counter",
				zap.String("recipient", recipient.String()), zap.Error(err))
		}
	}
	return nil
}

// ListUnread returns the recipient's unread notifications, newest first.
func (d *Dispatcher) ListUnread(ctx context.Context, recipient uuid.UUID) ([]*models.Notification, error) {
	return d.notifications.ListUnread(ctx, recipient)
}

// CountUnread prefers the Redis counter and falls back to the database when
// the cache is cold or unavailable.
func (d *Dispatcher) CountUnread(ctx context.Context, recipient uuid.UUID) (int, error) {
	if d.redis != nil {
		count, err := d.redis.Get(ctx, unreadKey(recipient)).Int()
		if err == nil {
			return count, nil
		}
		if err != redis.Nil {
			d.logger.Warn("Failed to read unread counter",
				zap.String("recipient", recipient.String()), zap.Error(err))
		}
	}

	count, err := d.notifications.CountUnread(ctx, recipient)
	if err != nil {
		return 0, err
	}
	if d.redis != nil {
		if err := d.redis.Set(ctx, unreadKey(recipient), count, 0).Err(); err != nil {
			d.logger.Warn("Failed to warm unread counter",
				zap.String("recipient", recipient.String()), zap.Error(err))
		}
	}
	return count, nil
}

func (d *Dispatcher) resolve(ctx context.Context, to engine.Recipients) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{}, len(to.UserIDs))
	recipients := make([]uuid.UUID, 0, len(to.UserIDs))
	for _, id := range to.UserIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}

	if to.Role != "" {
		pool, err := d.auth.UsersByRole(ctx, to.Role)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve %s pool", to.Role)
		}
		for _, id := range pool {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			recipients = append(recipients, id)
		}
	}

	return recipients, nil
}

func (d *Dispatcher) bumpUnreadCounters(ctx context.Context, recipients []uuid.UUID) {
	if d.redis == nil {
		return
	}
	pipe := d.redis.Pipeline()
	for _, r := range recipients {
		pipe.Incr(ctx, unreadKey(r))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		d.logger.Warn("Failed to increment unread counters", zap.Error(err))
	}
}

func (d *Dispatcher) publish(ctx context.Context, notifications []*models.Notification) {
	if d.writer == nil {
		return
	}

	messages := make([]kafka.Message, 0, len(notifications))
	for _, n := range notifications {
		payload, err := json.Marshal(Event{
			NotificationID: n.ID,
			RecipientID:    n.RecipientID,
			Type:           n.Type,
			CaseID:         n.CaseID,
			CreatedAt:      n.CreatedAt,
		})
		if err != nil {
			d.logger.Error("Failed to marshal notification event", zap.Error(err))
			continue
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(n.RecipientID.String()),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte(n.Type)},
			},
		})
	}
	if len(messages) == 0 {
		return
	}

	if err := d.writer.WriteMessages(ctx, messages...); err != nil {
		d.logger.Error("Failed to publish notification events", zap.Error(err))
	}
}

func unreadKey(recipient uuid.UUID) string {
	return fmt.Sprintf("notifications:unread:%s", recipient)
}
