package mongo

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// KeyGen produces the key for a record inserted without one.
type KeyGen[K comparable] func(ctx context.Context) (K, error)

// Sequence returns increasing int64 keys for name, starting at 1. The
// counter lives in the counters collection so keys survive restarts.
func (c *Client) Sequence(name string) KeyGen[int64] {
	col := c.DB.Collection(countersCollection)
	return func(ctx context.Context) (int64, error) {
		ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
		defer cancel()

		var counter struct {
			Seq int64 `bson:"seq"`
		}
		err := col.FindOneAndUpdate(ctx,
			bson.M{"_id": name},
			bson.M{"$inc": bson.M{"seq": int64(1)}},
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
		).Decode(&counter)
		if err != nil {
			return 0, errors.Wrapf(err, "mongo: next %s key", name)
		}
		return counter.Seq, nil
	}
}

// UUIDKeys returns random UUID keys.
func UUIDKeys() KeyGen[uuid.UUID] {
	return func(context.Context) (uuid.UUID, error) {
		return uuid.New(), nil
	}
}
