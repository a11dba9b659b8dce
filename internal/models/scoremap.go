package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ScoreMap maps a signal source kind to its score contribution, stored as
// JSONB in the zones table.
type ScoreMap map[string]float64

// Value implements driver.Valuer
func (m ScoreMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *ScoreMap) Scan(src interface{}) error {
	if src == nil {
		*m = ScoreMap{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ScoreMap", src)
	}
	return json.Unmarshal(data, m)
}
