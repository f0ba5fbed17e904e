package awsquery

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

/*

Sample args for the IAM query protocol

args["Action"] = "CreateUser"
args["UserName"] = "alice"
args["Path"] = "/developers/"
args["Tags.member.1.Key"] = "team"
args["Tags.member.1.Value"] = "backend"
args["ContextEntries.member.1.ContextKeyName"] = "aws:SourceIp"
args["ContextEntries.member.1.ContextKeyValues.member.1"] = "10.0.0.5"

*/

// Decode populates an AWS SDK input struct from flattened query
// parameters. Lists accept both the IAM "Name.member.N" form and the
// bare "Name.N" form some clients send.
func Decode(params map[string]string, out any) error {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Pointer {
		return fmt.Errorf("out must be a pointer to a struct")
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("out must be a pointer to a struct")
	}
	return decodeStruct(v, params, "")
}

func decodeStruct(v reflect.Value, params map[string]string, prefix string) error {
	t := v.Type()

fields:
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !field.CanSet() {
			continue
		}

		for _, queryKey := range fieldKeys(fieldType, prefix) {
			done, err := decodeField(field, params, queryKey)
			if err != nil {
				return fmt.Errorf("field %s: %w", fieldType.Name, err)
			}
			if done {
				continue fields
			}
		}
	}
	return nil
}

// fieldKeys lists the query names a field may appear under: the Go field
// name, the SDK's locationName tag, and a title-cased form of the tag
// (the wire protocol title-cases names the SDK tags as camelCase).
func fieldKeys(fieldType reflect.StructField, prefix string) []string {
	keys := []string{prefix + fieldType.Name}
	locationName := fieldType.Tag.Get("locationName")
	if locationName != "" && locationName != fieldType.Name {
		keys = append(keys, prefix+locationName)
		titled := strings.ToUpper(locationName[:1]) + locationName[1:]
		if titled != fieldType.Name && titled != locationName {
			keys = append(keys, prefix+titled)
		}
	}
	return keys
}

func decodeField(field reflect.Value, params map[string]string, queryKey string) (bool, error) {
	if val, ok := params[queryKey]; ok {
		if err := setScalar(field, val); err != nil {
			return false, err
		}
		return true, nil
	}

	switch {
	case field.Kind() == reflect.Pointer && field.Type().Elem().Kind() == reflect.Struct:
		if !hasPrefixedParams(params, queryKey+".") {
			return false, nil
		}
		structPtr := reflect.New(field.Type().Elem())
		if err := decodeStruct(structPtr.Elem(), params, queryKey+"."); err != nil {
			return false, err
		}
		field.Set(structPtr)
		return true, nil

	case field.Kind() == reflect.Slice:
		return decodeList(field, params, queryKey)

	case field.Kind() == reflect.Pointer && field.Type().Elem().Kind() == reflect.Slice:
		sliceValue := reflect.New(field.Type().Elem()).Elem()
		done, err := decodeList(sliceValue, params, queryKey)
		if err != nil {
			return false, err
		}
		if done {
			field.Set(sliceValue.Addr())
		}
		return done, nil
	}
	return false, nil
}

func hasPrefixedParams(params map[string]string, prefix string) bool {
	for key := range params {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// decodeList fills a slice from indexed parameters, trying the
// ".member.N" form before the bare ".N" form.
func decodeList(field reflect.Value, params map[string]string, queryKey string) (bool, error) {
	for _, listKey := range []string{queryKey + ".member", queryKey} {
		maxIdx := listIndices(params, listKey)
		if maxIdx == 0 {
			continue
		}
		if err := fillList(field, params, listKey, maxIdx); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func listIndices(params map[string]string, listKey string) int {
	maxIdx := 0
	for key := range params {
		if !strings.HasPrefix(key, listKey+".") {
			continue
		}
		first, _, _ := strings.Cut(key[len(listKey)+1:], ".")
		if idx, err := strconv.Atoi(first); err == nil && idx > maxIdx {
			maxIdx = idx
		}
	}
	return maxIdx
}

func fillList(field reflect.Value, params map[string]string, listKey string, maxIdx int) error {
	elemType := field.Type().Elem()
	slice := reflect.MakeSlice(field.Type(), maxIdx, maxIdx)

	for idx := 1; idx <= maxIdx; idx++ {
		elem := slice.Index(idx - 1)
		indexKey := fmt.Sprintf("%s.%d", listKey, idx)

		switch {
		case elemType.Kind() == reflect.Pointer && elemType.Elem().Kind() == reflect.Struct:
			structPtr := reflect.New(elemType.Elem())
			if err := decodeStruct(structPtr.Elem(), params, indexKey+"."); err != nil {
				return err
			}
			elem.Set(structPtr)
		case elemType.Kind() == reflect.Struct:
			if err := decodeStruct(elem, params, indexKey+"."); err != nil {
				return err
			}
		default:
			if val, ok := params[indexKey]; ok {
				if err := setScalar(elem, val); err != nil {
					return err
				}
			}
		}
	}

	field.Set(slice)
	return nil
}

func setScalar(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.Slice:
		// Special case: []byte arrives base64 encoded, with a raw-text
		// fallback for clients that skip encoding.
		if field.Type().Elem().Kind() == reflect.Uint8 {
			if decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value)); err == nil {
				field.SetBytes(decoded)
				return nil
			}
			field.SetBytes([]byte(value))
			return nil
		}
		return fmt.Errorf("unsupported slice element type: %v", field.Type().Elem().Kind())
	case reflect.String:
		field.SetString(value)
	case reflect.Pointer:
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return setScalar(field.Elem(), value)
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}
	return nil
}
