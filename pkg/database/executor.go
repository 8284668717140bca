package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Executor runs one validated read-only statement and returns rows in
// column order. Implementations must release the underlying cursor on every
// exit path.
type Executor interface {
	Query(ctx context.Context, query string) ([]map[string]interface{}, []string, error)
}

// GormExecutor executes against the gorm-managed MySQL connection pool.
type GormExecutor struct {
	db *gorm.DB
}

var _ Executor = &GormExecutor{}

func NewGormExecutor(db *gorm.DB) *GormExecutor {
	return &GormExecutor{db: db}
}

// Query executes the statement and normalizes driver values at the boundary:
// byte slices become strings (DECIMAL columns become float64), temporal values
// stay time.Time for the sanitizer to format. The rows cursor is closed
// unconditionally, even when scanning fails halfway.
func (e *GormExecutor) Query(ctx context.Context, query string) ([]map[string]interface{}, []string, error) {
	rows, err := e.db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return nil, nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, fmt.Errorf("read column types: %w", err)
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = normalizeDriverValue(values[i], columnTypes[i])
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}

	return results, columns, nil
}

// normalizeDriverValue maps MySQL driver types onto the small scalar set the
// rest of the pipeline understands.
func normalizeDriverValue(v interface{}, colType *sql.ColumnType) interface{} {
	switch x := v.(type) {
	case []byte:
		if isDecimalType(colType.DatabaseTypeName()) {
			if f, err := strconv.ParseFloat(string(x), 64); err == nil {
				return f
			}
		}
		return string(x)
	case time.Time:
		return x
	default:
		return v
	}
}

func isDecimalType(name string) bool {
	switch strings.ToUpper(name) {
	case "DECIMAL", "NEWDECIMAL", "NUMERIC":
		return true
	default:
		return false
	}
}
