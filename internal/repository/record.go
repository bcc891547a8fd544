package repository

import (
	"context"
	"errors"

	"github.com/forgo/cityquest/internal/database"
)

// Shared CRUD for the document tables. Every entity is stored as its JSON
// form, so the model structs are the schema.

func createRecord[T any](ctx context.Context, db database.Database, table string, v *T) (*T, error) {
	content, err := toContent(v)
	if err != nil {
		return nil, err
	}

	result, err := db.Query(ctx, `CREATE type::table($table) CONTENT $content`, map[string]interface{}{
		"table":   table,
		"content": content,
	})
	if err != nil {
		return nil, err
	}

	rows := extractQueryResults(result)
	if len(rows) == 0 {
		return nil, errors.New("no result returned")
	}
	return decodeRecord[T](rows[0])
}

// getRecord returns nil, nil when the record does not exist
func getRecord[T any](ctx context.Context, db database.Database, id string) (*T, error) {
	return queryRecord[T](ctx, db, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
}

func replaceRecord[T any](ctx context.Context, db database.Database, id string, v *T) (*T, error) {
	content, err := toContent(v)
	if err != nil {
		return nil, err
	}

	result, err := db.Query(ctx, `UPDATE type::record($id) CONTENT $content`, map[string]interface{}{
		"id":      id,
		"content": content,
	})
	if err != nil {
		return nil, err
	}

	rows := extractQueryResults(result)
	if len(rows) == 0 {
		return nil, database.ErrNotFound
	}
	return decodeRecord[T](rows[0])
}

func deleteRecord(ctx context.Context, db database.Database, id string) error {
	return db.Execute(ctx, `DELETE type::record($id)`, map[string]interface{}{"id": id})
}

// queryRecord runs a single-row query; nil, nil means no row
func queryRecord[T any](ctx context.Context, db database.Database, query string, vars map[string]interface{}) (*T, error) {
	row, err := db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	rec, err := decodeRecord[T](row)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

func queryRecords[T any](ctx context.Context, db database.Database, query string, vars map[string]interface{}) ([]T, error) {
	result, err := db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return decodeRecords[T](extractQueryResults(result))
}

func countRecords(ctx context.Context, db database.Database, query string, vars map[string]interface{}) (int, error) {
	result, err := db.Query(ctx, query, vars)
	if err != nil {
		return 0, err
	}
	return extractCount(result), nil
}
