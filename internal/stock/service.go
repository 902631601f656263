package stock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/tranqhuy/bida-pos/internal/kafka"
	"github.com/tranqhuy/bida-pos/internal/pos"
	"github.com/tranqhuy/bida-pos/internal/redisx"
)

// Deducter is the movement store the handler writes through; *Repo in
// production, a fake in tests.
type Deducter interface {
	Applied(ctx context.Context, orderID int64) (bool, error)
	DeductAll(ctx context.Context, orderID int64, items []pos.OrderItem) error
}

// Service consumes session.completed events and takes the sold items out of
// the product catalog.
type Service struct {
	Repo        Deducter
	Redis       *redis.Client
	ServiceName string
}

func (s *Service) HandleSessionCompleted(ctx context.Context, m kafkago.Message) error {
	var env pos.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != pos.EventSessionCompleted {
		return nil
	}

	// Cheap dedup on event id; the movements table is the real guard. The
	// key is written only once the deduction is durable, so a transient
	// failure leaves it unset and the redelivery retries.
	dkey := fmt.Sprintf(redisx.KeyDedup, "stock", env.EventID)
	if s.Redis != nil {
		if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[pos.SessionCompletedPayload](env.Payload)
	if err != nil {
		return err
	}
	if len(p.Items) == 0 {
		s.markSeen(ctx, dkey)
		return nil
	}

	if done, err := s.Repo.Applied(ctx, p.OrderID); err != nil {
		return err
	} else if done {
		s.markSeen(ctx, dkey)
		return nil
	}
	if err := s.Repo.DeductAll(ctx, p.OrderID, p.Items); err != nil {
		return err
	}
	s.markSeen(ctx, dkey)
	return nil
}

func (s *Service) markSeen(ctx context.Context, dkey string) {
	if s.Redis == nil {
		return
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
}
