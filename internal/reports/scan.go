package reports

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const timeLayout = time.RFC3339Nano

// scanRecords decodes query rows shared across the SQL backends. SQLite
// hands back integers for booleans and text for timestamps, Postgres native
// types; both are normalized here.
func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var (
			rec     Record
			pass    any
			created any
			payload []byte
		)
		if err := rows.Scan(&rec.ID, &rec.FormatID, &pass, &rec.Score, &created, &payload); err != nil {
			return nil, fmt.Errorf("reports: scan: %w", err)
		}
		var err error
		if rec.OverallPass, err = toBool(pass); err != nil {
			return nil, err
		}
		if rec.CreatedAt, err = toTime(created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &rec.Result); err != nil {
			return nil, fmt.Errorf("reports: decode payload: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	default:
		return false, fmt.Errorf("reports: unexpected boolean column type %T", v)
	}
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTime(t)
	case []byte:
		return parseTime(string(t))
	default:
		return time.Time{}, fmt.Errorf("reports: unexpected timestamp column type %T", v)
	}
}

func parseTime(s string) (time.Time, error) {
	ts, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("reports: parse timestamp: %w", err)
	}
	return ts.UTC(), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
