package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

// Event is one structured state change. The sink contract is write-only; the
// core never reads the stream back.
type Event struct {
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id"`
	Prev       string    `json:"prev"`
	New        string    `json:"new"`
	UserID     string    `json:"user_id"`
	Motive     string    `json:"motive,omitempty"`
	At         time.Time `json:"at"`
}

type Sink interface {
	Emit(ctx context.Context, ev Event) error
	Close() error
}

type redisSink struct {
	log    *logger.Logger
	rdb    *goredis.Client
	stream string
}

// NewRedisSink appends events to a redis stream consumed by the external
// audit store.
func NewRedisSink(addr, stream string, baseLog *logger.Logger) (Sink, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	if stream == "" {
		stream = "audit"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisSink{
		log:    baseLog.With("client", "AuditSink"),
		rdb:    rdb,
		stream: stream,
	}, nil
}

func (s *redisSink) Emit(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{"event": raw},
	}).Err()
}

func (s *redisSink) Close() error { return s.rdb.Close() }

type nopSink struct{}

// NewNopSink is used when no audit store is configured (local development,
// tests).
func NewNopSink() Sink { return nopSink{} }

func (nopSink) Emit(context.Context, Event) error { return nil }
func (nopSink) Close() error                      { return nil }

// Recorder collects events in memory; test helper.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(_ context.Context, ev Event) error {
	r.Events = append(r.Events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }
