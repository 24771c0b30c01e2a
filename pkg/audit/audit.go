// Package audit records security-relevant events — authorization denials,
// dropped notification payloads, forced logouts — in a MongoDB collection.
//
// The sink never blocks the request path:
//
//   - Entries go into a buffered channel; a single background goroutine
//     drains it with InsertMany in batches.
//   - When the channel is full the entry is dropped. Auditing is best-effort
//     and must not slow down or crash the gateway.
//   - Close flushes the queue and disconnects.
//
// When no MongoDB is configured, Record is a no-op.
package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	queueSize = 4096
	batchSize = 50
	drainTick = 2 * time.Second
)

// Entry is one audit record.
type Entry struct {
	Time   time.Time `bson:"time"`
	Kind   string    `bson:"kind"`
	Actor  string    `bson:"actor,omitempty"`
	Role   string    `bson:"role,omitempty"`
	Branch string    `bson:"branch,omitempty"`
	Detail string    `bson:"detail,omitempty"`
}

// Sink writes entries to MongoDB asynchronously.
type Sink struct {
	col    *mongo.Collection
	client *mongo.Client
	queue  chan Entry
	done   chan struct{}
}

var defaultSink *Sink

// Connect opens the global sink. Call once at startup; safe to skip entirely
// when auditing is not configured.
func Connect(uri, db, collection string) error {
	s, err := NewSink(uri, db, collection)
	if err != nil {
		return err
	}
	defaultSink = s
	return nil
}

// Record enqueues an entry on the global sink, stamping the time if unset.
// A nil (unconfigured) sink swallows the entry.
func Record(e Entry) {
	if defaultSink == nil {
		return
	}
	defaultSink.Record(e)
}

// Close flushes and shuts down the global sink.
func Close() {
	if defaultSink != nil {
		defaultSink.Close()
		defaultSink = nil
	}
}

// NewSink connects to MongoDB and starts the drain goroutine. The caller
// must eventually call Close.
func NewSink(uri, db, collection string) (*Sink, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(uri).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("audit: connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("audit: ping: %w", err)
	}

	col := client.Database(db).Collection(collection)

	// Time index so the back-office denial report can page by recency.
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "time", Value: -1}},
	})

	s := &Sink{
		col:    col,
		client: client,
		queue:  make(chan Entry, queueSize),
		done:   make(chan struct{}),
	}

	go s.drainLoop()
	return s, nil
}

// Record enqueues an entry without blocking; full queues drop.
func (s *Sink) Record(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	select {
	case s.queue <- e:
	default:
		// queue full — auditing must never block application code
	}
}

func (s *Sink) drainLoop() {
	ticker := time.NewTicker(drainTick)
	defer ticker.Stop()

	batch := make([]interface{}, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, _ = s.col.InsertMany(ctx, batch) // best-effort
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case e := <-s.queue:
			batch = append(batch, e)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			for len(s.queue) > 0 {
				batch = append(batch, <-s.queue)
			}
			flush()
			return
		}
	}
}

// Close flushes pending entries and disconnects. Safe to call twice.
func (s *Sink) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}
