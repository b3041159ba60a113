package docstore

import (
	"context"
	"database/sql"
	"errors"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prediction-league/internal/platform/querybuilder"
)

const documentsTable = "documents"

var documentColumns = []string{"id", "data"}

func selectAllStatement(collection string) (string, []any, error) {
	return querybuilder.Select(documentColumns...).
		From(documentsTable).
		Where(querybuilder.Eq("collection", collection)).
		OrderBy("id").
		ToSQL()
}

func selectOneStatement(collection, id string) (string, []any, error) {
	return querybuilder.Select(documentColumns...).
		From(documentsTable).
		Where(querybuilder.Eq("collection", collection), querybuilder.Eq("id", id)).
		ToSQL()
}

func queryStatement(collection, field, encodedValue string) (string, []any, error) {
	return querybuilder.Select(documentColumns...).
		From(documentsTable).
		Where(querybuilder.Eq("collection", collection), querybuilder.JSONFieldEq("data", field, encodedValue)).
		OrderBy("id").
		ToSQL()
}

// mergeStatement shallow-merges fields into an existing document.
func mergeStatement(collection, id, body string) (string, []any, error) {
	return querybuilder.Update(documentsTable).
		SetExpr("data", "data || ?::jsonb", body).
		SetExpr("updated_at", "now()").
		Where(querybuilder.Eq("collection", collection), querybuilder.Eq("id", id)).
		ToSQL()
}

func upsertStatement(collection, id, body string) (string, []any, error) {
	return querybuilder.InsertInto(documentsTable).
		Columns("collection", "id", "data", "updated_at").
		Values(collection, id, querybuilder.Raw("?::jsonb", body), querybuilder.Raw("now()")).
		Suffix("ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()").
		ToSQL()
}

type documentRow struct {
	ID   string `db:"id"`
	Data []byte `db:"data"`
}

// PostgresStore keeps every document in one jsonb table keyed by (collection, id).
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetAll(ctx context.Context, collection string) ([]Document, error) {
	query, args, err := selectAllStatement(collection)
	if err != nil {
		return nil, crerr.Wrap(err, "build select")
	}
	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, crerr.Wrapf(err, "select documents collection=%s", collection)
	}
	return decodeRows(rows)
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	query, args, err := selectOneStatement(collection, id)
	if err != nil {
		return Document{}, crerr.Wrap(err, "build select")
	}
	var row documentRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, crerr.Wrapf(ErrNotFound, "%s/%s", collection, id)
		}
		return Document{}, crerr.Wrapf(err, "get document %s/%s", collection, id)
	}
	return decodeRow(row)
}

func (s *PostgresStore) Query(ctx context.Context, collection, field string, value any) ([]Document, error) {
	encoded, err := sonic.Marshal(value)
	if err != nil {
		return nil, crerr.Wrap(err, "encode query value")
	}

	query, args, err := queryStatement(collection, field, string(encoded))
	if err != nil {
		return nil, crerr.Wrap(err, "build query")
	}
	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, crerr.Wrapf(err, "query documents collection=%s field=%s", collection, field)
	}
	return decodeRows(rows)
}

func (s *PostgresStore) Commit(ctx context.Context, ops []Op) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return crerr.Wrap(err, "begin batch")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, op := range ops {
		body, encodeErr := sonic.Marshal(op.Fields)
		if encodeErr != nil {
			return crerr.Wrapf(encodeErr, "encode %s/%s", op.Collection, op.ID)
		}

		switch op.Kind {
		case OpUpdate:
			query, args, buildErr := mergeStatement(op.Collection, op.ID, string(body))
			if buildErr != nil {
				return crerr.Wrap(buildErr, "build update")
			}
			res, execErr := tx.ExecContext(ctx, query, args...)
			if execErr != nil {
				return crerr.Wrapf(execErr, "update %s/%s", op.Collection, op.ID)
			}
			affected, rowsErr := res.RowsAffected()
			if rowsErr != nil {
				return crerr.Wrapf(rowsErr, "update %s/%s", op.Collection, op.ID)
			}
			if affected == 0 {
				return crerr.Wrapf(ErrNotFound, "update %s/%s", op.Collection, op.ID)
			}
		case OpSet:
			query, args, buildErr := upsertStatement(op.Collection, op.ID, string(body))
			if buildErr != nil {
				return crerr.Wrap(buildErr, "build upsert")
			}
			if _, execErr := tx.ExecContext(ctx, query, args...); execErr != nil {
				return crerr.Wrapf(execErr, "set %s/%s", op.Collection, op.ID)
			}
		default:
			return crerr.Wrapf(ErrInvalidBatch, "unknown op kind %q", op.Kind)
		}
	}

	if err = tx.Commit(); err != nil {
		return crerr.Wrap(err, "commit batch")
	}
	return nil
}

func (s *PostgresStore) Close(context.Context) error {
	return s.db.Close()
}

func decodeRows(rows []documentRow) ([]Document, error) {
	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func decodeRow(row documentRow) (Document, error) {
	data := map[string]any{}
	if len(row.Data) > 0 {
		if err := sonic.Unmarshal(row.Data, &data); err != nil {
			return Document{}, crerr.Wrapf(err, "decode document %s", row.ID)
		}
	}
	return Document{ID: row.ID, Data: data}, nil
}
