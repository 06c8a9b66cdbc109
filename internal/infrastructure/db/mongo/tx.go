package mongo

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithTx runs fn in a multi-document transaction when transactions are
// enabled, and directly otherwise. A context already inside a session joins
// it.
func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !c.transactions || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := c.StartSession()
	if err != nil {
		return errors.Wrap(err, "mongo start session")
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil {
		c.logger.Debug().Err(err).Msg("mongo transaction aborted")
	}
	return err
}
