package recordstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one record keyed by column name. Backends normalise driver byte slices to strings.
type Row map[string]any

func (r Row) Has(col string) bool {
	v, ok := r[col]
	return ok && v != nil
}

func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// StringPtr returns nil for NULL or missing columns.
func (r Row) StringPtr(col string) *string {
	if !r.Has(col) {
		return nil
	}
	s := r.String(col)
	return &s
}

func (r Row) Int(col string) int {
	switch v := r[col].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		n, _ := strconv.Atoi(r.String(col))
		return n
	}
}

func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case nil:
		return false
	default:
		b, _ := strconv.ParseBool(r.String(col))
		return b
	}
}

func (r Row) Decimal(col string) (decimal.Decimal, error) {
	switch v := r[col].(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	default:
		d, err := decimal.NewFromString(r.String(col))
		if err != nil {
			return decimal.Zero, fmt.Errorf("column %s: %w", col, err)
		}
		return d, nil
	}
}

func (r Row) Time(col string) *time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &t
		}
	}
	return nil
}

// JSON decodes a json/jsonb column into dst. NULL leaves dst untouched.
func (r Row) JSON(col string, dst any) error {
	if !r.Has(col) {
		return nil
	}
	if raw, ok := r[col].(json.RawMessage); ok {
		return json.Unmarshal(raw, dst)
	}
	if s := r.String(col); s != "" {
		if err := json.Unmarshal([]byte(s), dst); err != nil {
			return fmt.Errorf("column %s: %w", col, err)
		}
	}
	return nil
}

// JSONValue encodes v for a json/jsonb column. It returns a string because lib/pq sends
// []byte as bytea.
func JSONValue(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
