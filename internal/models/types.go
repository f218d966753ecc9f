package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON is a string-keyed document stored in a text column
type JSON map[string]interface{}

func (JSON) GormDataType() string {
	return "text"
}

func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSON) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan JSON: unsupported type %T", value)
	}

	out := JSON{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("scan JSON: %w", err)
		}
	}
	if out == nil {
		out = JSON{}
	}
	*j = out
	return nil
}

// Merge returns a copy of j with values layered on top
func (j JSON) Merge(values map[string]interface{}) JSON {
	merged := make(JSON, len(j)+len(values))
	for k, v := range j {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}
	return merged
}
