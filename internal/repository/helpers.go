package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/forgo/cityquest/internal/database"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

var errUnexpectedFormat = errors.New("unexpected result format")

// extractQueryResults extracts the rows of the first statement from a
// SurrealDB response
func extractQueryResults(result []interface{}) []interface{} {
	if len(result) == 0 {
		return nil
	}
	if first, ok := result[0].(map[string]interface{}); ok {
		if _, wrapped := first["status"]; wrapped {
			rows, _ := first["result"].([]interface{})
			return rows
		}
	}
	// Direct array format
	return result
}

// decodeRecord converts one SurrealDB row into T. Record IDs are flattened
// to "table:key" strings before the JSON round trip.
func decodeRecord[T any](row interface{}) (*T, error) {
	if row == nil {
		return nil, database.ErrNotFound
	}
	if arr, ok := row.([]interface{}); ok {
		if len(arr) == 0 {
			return nil, database.ErrNotFound
		}
		row = arr[0]
	}

	data, ok := row.(map[string]interface{})
	if !ok {
		return nil, errUnexpectedFormat
	}
	if id, ok := data["id"]; ok {
		data["id"] = convertSurrealID(id)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &out, nil
}

// decodeRecords converts every row, skipping none
func decodeRecords[T any](rows []interface{}) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeRecord[T](row)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// toContent renders a model as a CONTENT map. The id is dropped because
// SurrealDB owns it.
func toContent(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	var content map[string]interface{}
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	delete(content, "id")
	return content, nil
}

// convertSurrealID converts a SurrealDB ID (which may be a complex object) to a string
func convertSurrealID(id interface{}) string {
	if str, ok := id.(string); ok {
		return str
	}

	if rid, ok := id.(models.RecordID); ok {
		return fmt.Sprintf("%s:%v", rid.Table, rid.ID)
	}
	if rid, ok := id.(*models.RecordID); ok && rid != nil {
		return fmt.Sprintf("%s:%v", rid.Table, rid.ID)
	}

	// Handle map format: {"tb": "user", "id": {"String": "abc"}} or similar
	if m, ok := id.(map[string]interface{}); ok {
		tb := ""
		if t, ok := m["tb"].(string); ok {
			tb = t
		} else if t, ok := m["Table"].(string); ok {
			tb = t
		}

		idPart := ""
		if v, ok := m["id"]; ok {
			idPart = extractIDValue(v)
		} else if v, ok := m["ID"]; ok {
			idPart = extractIDValue(v)
		}

		if tb != "" && idPart != "" {
			return tb + ":" + idPart
		}
		if idPart != "" {
			return idPart
		}
	}

	return fmt.Sprintf("%v", id)
}

// extractIDValue extracts the ID value which may be nested
func extractIDValue(val interface{}) string {
	if str, ok := val.(string); ok {
		return str
	}
	if m, ok := val.(map[string]interface{}); ok {
		if s, ok := m["String"].(string); ok {
			return s
		}
	}
	return fmt.Sprintf("%v", val)
}

// extractCount reads {count: n} from a GROUP ALL count query
func extractCount(result []interface{}) int {
	rows := extractQueryResults(result)
	if len(rows) == 0 {
		return 0
	}
	data, ok := rows[0].(map[string]interface{})
	if !ok {
		return 0
	}
	switch c := data["count"].(type) {
	case float64:
		return int(c)
	case int:
		return c
	case int64:
		return int(c)
	case uint64:
		return int(c)
	}
	return 0
}
