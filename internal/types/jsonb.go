package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

var (
	_ sql.Scanner   = (*Drivers)(nil)
	_ driver.Valuer = Drivers(nil)
)

// Drivers is the structured explanation stored with a RiskEvent. For single
// horizon modes it maps signal names to sub-scores; blended events nest the
// per-horizon maps alongside the horizon scores and levels.
type Drivers map[string]any

// Scan implements sql.Scanner for JSONB columns.
func (d *Drivers) Scan(value any) error {
	if value == nil {
		*d = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, d)
}

// Value implements driver.Valuer for JSONB columns.
func (d Drivers) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(map[string]any(d))
}
