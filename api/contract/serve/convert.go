package serve

import (
	"errors"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

// convertString converts a wire string to the target type. Supported
// targets: strings, signed and unsigned integers, floats, bools,
// uuid.UUID, and time.Time in RFC3339.
func convertString(s string, targetType reflect.Type) (reflect.Value, error) {
	switch targetType.Kind() {
	case reflect.String:
		if targetType != reflect.TypeOf("") {
			v := reflect.New(targetType).Elem()
			v.SetString(s)
			return v, nil
		}
		return reflect.ValueOf(s), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(s, 10, targetType.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(targetType).Elem()
		out.SetInt(v)
		return out, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(s, 10, targetType.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(targetType).Elem()
		out.SetUint(v)
		return out, nil

	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(s, targetType.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(targetType).Elem()
		out.SetFloat(v)
		return out, nil

	case reflect.Bool:
		switch s {
		case "true", "True", "TRUE", "1":
			return reflect.ValueOf(true), nil
		case "false", "False", "FALSE", "0":
			return reflect.ValueOf(false), nil
		default:
			return reflect.Value{}, errors.New("invalid bool: " + s)
		}

	case reflect.Array:
		if targetType == uuidType {
			id, err := uuid.Parse(s)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(id), nil
		}

	case reflect.Struct:
		if targetType == timeType {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(t), nil
		}
	}
	return reflect.Value{}, errors.New("unsupported type: " + targetType.String())
}

// convertStrings converts multi-value parameters into a slice of the
// element type.
func convertStrings(ss []string, elemType reflect.Type) (reflect.Value, error) {
	slice := reflect.MakeSlice(reflect.SliceOf(elemType), 0, len(ss))
	for _, s := range ss {
		v, err := convertString(s, elemType)
		if err != nil {
			return reflect.Value{}, err
		}
		slice = reflect.Append(slice, v)
	}
	return slice, nil
}
