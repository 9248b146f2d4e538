package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Year is a year that is either known or unset. Unset years are stored as
// the empty string, never as an absent field.
type Year struct {
	value int
	known bool
}

// KnownYear returns a set Year.
func KnownYear(v int) Year { return Year{value: v, known: true} }

// Int returns the year and whether it is set.
func (y Year) Int() (int, bool) { return y.value, y.known }

// IsSet reports whether y holds a year.
func (y Year) IsSet() bool { return y.known }

func (y Year) String() string {
	if !y.known {
		return ""
	}
	return strconv.Itoa(y.value)
}

func (y Year) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !y.known {
		return bson.MarshalValue("")
	}
	return bson.MarshalValue(int32(y.value))
}

func (y *Year) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	v, ok, err := decodeBSONNumber(t, data)
	if err != nil {
		return err
	}
	if !ok {
		*y = Year{}
		return nil
	}
	*y = KnownYear(int(math.Round(v)))
	return nil
}

func (y Year) MarshalJSON() ([]byte, error) {
	if !y.known {
		return []byte(`""`), nil
	}
	return []byte(strconv.Itoa(y.value)), nil
}

func (y *Year) UnmarshalJSON(data []byte) error {
	v, ok, err := decodeJSONNumber(data)
	if err != nil {
		return fmt.Errorf("year: %w", err)
	}
	if !ok {
		*y = Year{}
		return nil
	}
	if v != math.Trunc(v) {
		return fmt.Errorf("year: %v is not a whole number", v)
	}
	*y = KnownYear(int(v))
	return nil
}

// Impact is a numeric impact score that is either known or unset.
type Impact struct {
	value float64
	known bool
}

// KnownImpact returns a set Impact.
func KnownImpact(v float64) Impact { return Impact{value: v, known: true} }

// Float returns the impact and whether it is set.
func (i Impact) Float() (float64, bool) { return i.value, i.known }

// IsSet reports whether i holds a score.
func (i Impact) IsSet() bool { return i.known }

func (i Impact) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !i.known {
		return bson.MarshalValue("")
	}
	return bson.MarshalValue(i.value)
}

func (i *Impact) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	v, ok, err := decodeBSONNumber(t, data)
	if err != nil {
		return err
	}
	if !ok {
		*i = Impact{}
		return nil
	}
	*i = KnownImpact(v)
	return nil
}

func (i Impact) MarshalJSON() ([]byte, error) {
	if !i.known {
		return []byte(`""`), nil
	}
	return json.Marshal(i.value)
}

func (i *Impact) UnmarshalJSON(data []byte) error {
	v, ok, err := decodeJSONNumber(data)
	if err != nil {
		return fmt.Errorf("impact: %w", err)
	}
	if !ok {
		*i = Impact{}
		return nil
	}
	*i = KnownImpact(v)
	return nil
}

// decodeBSONNumber reads a numeric BSON value. Strings and nulls decode as
// unset; other types are rejected.
func decodeBSONNumber(t bsontype.Type, data []byte) (float64, bool, error) {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Int32:
		return float64(rv.Int32()), true, nil
	case bsontype.Int64:
		return float64(rv.Int64()), true, nil
	case bsontype.Double:
		return rv.Double(), true, nil
	case bsontype.String, bsontype.Null, bsontype.Undefined:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("unsupported bson type %s for number-or-empty field", t)
	}
}

// decodeJSONNumber accepts a number, a numeric string, "" or null.
func decodeJSONNumber(data []byte) (float64, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, false, nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, false, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, fmt.Errorf("%q is neither a number nor empty", s)
		}
		return v, true, nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, false, err
	}
	return v, true, nil
}
