package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ItemOptions holds variant selections for a cart item, e.g.
// {"size": "L", "color": "red"}. Stored as a JSONB column.
type ItemOptions map[string]string

// Value implements driver.Valuer.
func (o ItemOptions) Value() (driver.Value, error) {
	if o == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (o *ItemOptions) Scan(value any) error {
	if value == nil {
		*o = ItemOptions{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported item options type %T", value)
	}
	if len(raw) == 0 {
		*o = ItemOptions{}
		return nil
	}
	return json.Unmarshal(raw, o)
}

// Fingerprint renders a canonical key for line-merging. Two items with the
// same listing and the same fingerprint are the same line.
func (o ItemOptions) Fingerprint() string {
	if len(o) == 0 {
		return ""
	}
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(o[k])
	}
	return b.String()
}
