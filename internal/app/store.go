package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/lib/pq"
	"github.com/riskibarqy/prediction-league/internal/config"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/docstore"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

const preparedBinaryResultParam = "disable_prepared_binary_result"

// storeTarget is the resolved connection for one STORE_DRIVER value.
type storeTarget struct {
	driver   string
	dsn      string
	database string
}

func resolveStoreTarget(cfg config.Config) (storeTarget, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		return storeTarget{
			driver:   config.StorePostgres,
			dsn:      postgresDSN(cfg.DBURL, cfg.DBDisablePreparedBinary),
			database: databaseName(cfg.DBURL),
		}, nil
	case config.StoreMongo:
		database := cfg.MongoDatabase
		if database == "" {
			database = databaseName(cfg.MongoURI)
		}
		if database == "" {
			return storeTarget{}, errors.New("mongo database name is empty")
		}
		return storeTarget{driver: config.StoreMongo, dsn: cfg.MongoURI, database: database}, nil
	case config.StoreMemory, "":
		return storeTarget{driver: config.StoreMemory, dsn: cfg.SeedFile}, nil
	default:
		return storeTarget{}, errors.New("unsupported STORE_DRIVER " + cfg.StoreDriver)
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *logging.Logger) (docstore.Store, error) {
	target, err := resolveStoreTarget(cfg)
	if err != nil {
		return nil, err
	}

	switch target.driver {
	case config.StorePostgres:
		db, err := otelsqlx.Open("postgres", target.dsn,
			otelsql.WithDBSystem("postgresql"),
			otelsql.WithDBName(target.database),
			otelsql.WithQueryFormatter(formatDBQueryForTrace),
		)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("document store ready", "driver", target.driver, "database", target.database)
		return docstore.NewPostgresStore(db), nil
	case config.StoreMongo:
		store, err := docstore.NewMongoStore(ctx, docstore.MongoConfig{
			URI:          target.dsn,
			Database:     target.database,
			Transactions: cfg.MongoTransactions,
		})
		if err != nil {
			return nil, fmt.Errorf("open mongo: %w", err)
		}
		logger.Info("document store ready", "driver", target.driver, "database", target.database)
		return store, nil
	default:
		store := docstore.NewMemoryStore()
		if target.dsn != "" {
			if err := store.LoadSeedFile(target.dsn); err != nil {
				return nil, fmt.Errorf("load seed file: %w", err)
			}
		}
		logger.Info("document store ready", "driver", target.driver, "seed_file", target.dsn)
		return store, nil
	}
}

// postgresDSN turns off binary results for prepared statements unless the
// DSN already sets the parameter. Both URL and keyword/value DSNs are handled.
func postgresDSN(raw string, disablePreparedBinary bool) string {
	raw = strings.TrimSpace(raw)
	if !disablePreparedBinary || raw == "" {
		return raw
	}

	if parsed, err := url.Parse(raw); err == nil && parsed.Scheme != "" {
		query := parsed.Query()
		if query.Get(preparedBinaryResultParam) != "" {
			return raw
		}
		query.Set(preparedBinaryResultParam, "yes")
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	if _, ok := keywordValue(raw, preparedBinaryResultParam); ok {
		return raw
	}
	return raw + " " + preparedBinaryResultParam + "=yes"
}

// databaseName reads the database from a postgres/mongodb URL path or a
// keyword/value "dbname=" entry.
func databaseName(raw string) string {
	raw = strings.TrimSpace(raw)
	if parsed, err := url.Parse(raw); err == nil && parsed.Scheme != "" {
		return strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/"))
	}
	name, _ := keywordValue(raw, "dbname")
	return name
}

func keywordValue(dsn, key string) (string, bool) {
	for _, token := range strings.Fields(dsn) {
		k, v, found := strings.Cut(token, "=")
		if !found || k != key {
			continue
		}
		v = strings.Trim(v, `"'`)
		return v, v != ""
	}
	return "", false
}
