package tuple

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rizalta/toysql/catalog"
)

// ParseValue converts a text field into a value of type t. An empty field
// or the word NULL is NULL.
func ParseValue(field string, t catalog.DataType) (Value, error) {
	if field == "" || strings.EqualFold(field, "null") {
		return nil, nil
	}

	switch t {
	case catalog.TypeInt:
		v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an int", ErrTypeMismatch, field)
		}
		return v, nil
	case catalog.TypeFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a float", ErrTypeMismatch, field)
		}
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%w: %q", ErrNaN, field)
		}
		return v, nil
	case catalog.TypeBoolean:
		v, err := strconv.ParseBool(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a boolean", ErrTypeMismatch, field)
		}
		return v, nil
	case catalog.TypeVarChar:
		return field, nil
	case catalog.TypeBlob:
		return []byte(field), nil
	}
	return nil, ErrTypeMismatch
}
