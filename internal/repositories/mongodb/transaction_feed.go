package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/exp/slog"

	"github.com/jamiihub/jamii-portal-backend/internal/models"
	"github.com/jamiihub/jamii-portal-backend/internal/reconcile"
)

// transactionFeed adapts a MongoDB change stream filtered to one correlation
// id into the reconcile.Feed the watcher consumes. Only UPDATE events are
// relevant: the initiation insert is observed by the watcher's first fetch.
type transactionFeed struct {
	stream  *mongo.ChangeStream
	changes chan reconcile.Status
	cancel  context.CancelFunc
}

func newTransactionFeed(ctx context.Context, collection *mongo.Collection, correlationID string) (*transactionFeed, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: "update"},
			{Key: "fullDocument.correlation_id", Value: correlationID},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := collection.Watch(streamCtx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, err
	}

	feed := &transactionFeed{
		stream:  stream,
		changes: make(chan reconcile.Status, 4),
		cancel:  cancel,
	}
	go feed.pump(streamCtx, correlationID)
	return feed, nil
}

func (f *transactionFeed) pump(ctx context.Context, correlationID string) {
	defer close(f.changes)
	defer f.stream.Close(context.Background())

	for f.stream.Next(ctx) {
		var event struct {
			FullDocument models.Transaction `bson:"fullDocument"`
		}
		if err := f.stream.Decode(&event); err != nil {
			slog.Warn("change stream decode failed", "correlationId", correlationID, "error", err)
			continue
		}

		select {
		case f.changes <- reconcile.FromTransaction(event.FullDocument.Status):
		case <-ctx.Done():
			return
		}
	}

	if err := f.stream.Err(); err != nil && ctx.Err() == nil {
		slog.Warn("change stream ended", "correlationId", correlationID, "error", err)
	}
}

// Changes delivers backend status updates for the watched correlation id
func (f *transactionFeed) Changes() <-chan reconcile.Status {
	return f.changes
}

// Close tears down the change stream; the watcher calls this on stop
func (f *transactionFeed) Close() error {
	f.cancel()
	return nil
}
