package entities

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Int64Series stores an integer sequence as "{v1,v2,...}" text. The brace
// notation matches the Postgres array literal so exported rows stay readable
// across dialects.
type Int64Series []int64

// Float64Series stores a float sequence as "{v1,v2,...}" text. NaN and
// infinities survive the round trip.
type Float64Series []float64

// GormDataType keeps the column type portable.
func (Int64Series) GormDataType() string { return "text" }

// GormDataType keeps the column type portable.
func (Float64Series) GormDataType() string { return "text" }

// Value implements driver.Valuer.
func (s Int64Series) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	var b strings.Builder
	b.Grow(len(s)*6 + 2)
	b.WriteByte('{')
	for i, v := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(v, 10))
	}
	b.WriteByte('}')
	return b.String(), nil
}

// Scan implements sql.Scanner.
func (s *Int64Series) Scan(src any) error {
	parts, err := seriesParts(src)
	if err != nil || parts == nil {
		*s = nil
		return err
	}
	out := make(Int64Series, len(parts))
	for i, p := range parts {
		if out[i], err = strconv.ParseInt(p, 10, 64); err != nil {
			return fmt.Errorf("int series element %d: %w", i, err)
		}
	}
	*s = out
	return nil
}

// Value implements driver.Valuer.
func (s Float64Series) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	var b strings.Builder
	b.Grow(len(s)*10 + 2)
	b.WriteByte('{')
	for i, v := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	b.WriteByte('}')
	return b.String(), nil
}

// Scan implements sql.Scanner.
func (s *Float64Series) Scan(src any) error {
	parts, err := seriesParts(src)
	if err != nil || parts == nil {
		*s = nil
		return err
	}
	out := make(Float64Series, len(parts))
	for i, p := range parts {
		if out[i], err = strconv.ParseFloat(p, 64); err != nil {
			return fmt.Errorf("float series element %d: %w", i, err)
		}
	}
	*s = out
	return nil
}

func seriesParts(src any) ([]string, error) {
	var text string
	switch v := src.(type) {
	case nil:
		return nil, nil
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return nil, fmt.Errorf("cannot scan %T into series", src)
	}

	text = strings.TrimSpace(text)
	if len(text) < 2 || text[0] != '{' || text[len(text)-1] != '}' {
		return nil, fmt.Errorf("malformed series %q", text)
	}
	inner := text[1 : len(text)-1]
	if inner == "" {
		return []string{}, nil
	}
	return strings.Split(inner, ","), nil
}
