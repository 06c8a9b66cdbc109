// Package persistence assembles the sessions, transactor and supporting
// stores for the backend selected in configuration.
package persistence

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/catalog-system/internal/api/metrics"
	"github.com/99minutos/catalog-system/internal/core/entity"
	"github.com/99minutos/catalog-system/internal/core/ports"
	"github.com/99minutos/catalog-system/internal/infrastructure/db/memory"
	mongodb "github.com/99minutos/catalog-system/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/catalog-system/internal/infrastructure/db/redis"
	"github.com/99minutos/catalog-system/internal/infrastructure/db/sqldb"
	"github.com/99minutos/catalog-system/internal/pkg/config"
	"github.com/99minutos/catalog-system/internal/pkg/pgenum"
)

// Backend is everything the API needs from persistence.
type Backend struct {
	Items       ports.Session[entity.Item, int64]
	Properties  ports.Session[entity.Property, uuid.UUID]
	Users       ports.Session[entity.User, int64]
	Tx          ports.Transactor
	Idempotency ports.IdempotencyStore
	// Checks ping each dependency for the readiness check.
	Checks map[string]func(ctx context.Context) error

	closers []func(context.Context) error
}

// Close releases every connection opened by Open, in reverse order.
func (b *Backend) Close(ctx context.Context) error {
	var errs error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = errors.CombineErrors(errs, b.closers[i](ctx))
	}
	return errs
}

// Open connects to the configured backend and, when REDIS_ADDR is set, to
// Redis for idempotency keys.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Backend, error) {
	colorEnum, err := pgenum.Resolve(cfg.SQL.ColorEnum)
	if err != nil {
		return nil, errors.Wrap(err, "ITEM_COLOR_ENUM")
	}

	b := &Backend{Checks: map[string]func(ctx context.Context) error{}}
	switch cfg.Backend {
	case config.BackendMemory:
		openMemory(b)
	case config.BackendPostgres, config.BackendSQLite:
		err = openSQL(ctx, b, cfg, colorEnum, log)
	case config.BackendMongo:
		err = openMongo(ctx, b, cfg, log)
	default:
		err = errors.Newf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		_ = b.Close(ctx)
		return nil, err
	}

	if err := openIdempotency(ctx, b, cfg); err != nil {
		_ = b.Close(ctx)
		return nil, err
	}

	b.Items = metrics.InstrumentSession("item", b.Items)
	b.Properties = metrics.InstrumentSession("property", b.Properties)
	b.Users = metrics.InstrumentSession("user", b.Users)

	log.Info().Str("backend", cfg.Backend).Str("color_enum", colorEnum.Name()).Msg("persistence ready")
	return b, nil
}

func openMemory(b *Backend) {
	db := memory.NewDatabase()
	b.Items = memory.NewTable[entity.Item, int64](db, memory.Sequence())
	b.Properties = memory.NewTable[entity.Property, uuid.UUID](db, memory.UUIDs())
	b.Users = memory.NewTable[entity.User, int64](db, memory.Sequence())
	b.Tx = db
}

func openSQL(ctx context.Context, b *Backend, cfg *config.Config, colorEnum pgenum.Descriptor, log zerolog.Logger) error {
	driver := cfg.SQL.Driver
	if cfg.Backend == config.BackendSQLite {
		driver = "sqlite"
	}

	db, err := sqldb.Connect(ctx, sqldb.Config{
		Driver:       driver,
		DSN:          cfg.SQL.DSN,
		MaxOpenConns: cfg.SQL.MaxOpenConns,
	}, log)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func(context.Context) error { return db.Close() })

	if err := sqldb.EnsureSchema(ctx, db, sqldb.SchemaOptions{
		ColorEnum: colorEnum,
		ColorType: cfg.SQL.ColorPGType,
	}); err != nil {
		return err
	}

	b.Items = sqldb.NewTable[entity.Item, int64](db, sqldb.ItemsTable, nil)
	b.Properties = sqldb.NewTable[entity.Property, uuid.UUID](db, sqldb.PropertiesTable, uuid.New)
	b.Users = sqldb.NewTable[entity.User, int64](db, sqldb.UsersTable, nil)
	b.Tx = db
	b.Checks["sql"] = db.Ping
	return nil
}

func openMongo(ctx context.Context, b *Backend, cfg *config.Config, log zerolog.Logger) error {
	client, err := mongodb.Connect(ctx, mongodb.Config{
		URI:          cfg.Mongo.URI,
		Database:     cfg.Mongo.Database,
		Transactions: cfg.Mongo.Transactions,
	}, log)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, client.Close)

	if err := client.EnsureIndexes(ctx); err != nil {
		return err
	}

	b.Items = mongodb.NewCollection[entity.Item, int64](client.DB, mongodb.ItemsCollection, client.Sequence(mongodb.ItemsCollection))
	b.Properties = mongodb.NewCollection[entity.Property, uuid.UUID](client.DB, mongodb.PropertiesCollection, mongodb.UUIDKeys())
	b.Users = mongodb.NewCollection[entity.User, int64](client.DB, mongodb.UsersCollection, client.Sequence(mongodb.UsersCollection))
	b.Tx = client
	b.Checks["mongodb"] = client.Ping
	return nil
}

func openIdempotency(ctx context.Context, b *Backend, cfg *config.Config) error {
	if cfg.Redis.Addr == "" {
		b.Idempotency = memory.NewIdempotency(cfg.Redis.IdempotencyTTL)
		return nil
	}

	rcfg := redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB, Timeout: cfg.Redis.Timeout}
	rdb, err := redisdb.Connect(ctx, rcfg)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func(context.Context) error { return rdb.Close() })
	b.Idempotency = redisdb.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
	b.Checks["redis"] = redisdb.Check(rdb, rcfg.Timeout)
	return nil
}
