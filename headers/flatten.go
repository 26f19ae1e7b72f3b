package headers

import (
	"fmt"

	"github.com/buger/jsonparser"
)

// FlattenJSONObject turns a JSON object into a Map. It fails if raw is not an object.
func FlattenJSONObject(raw []byte) (Map, error) {
	if _, dataType, _, err := jsonparser.Get(raw); err != nil {
		return nil, err
	} else if dataType != jsonparser.Object {
		return nil, fmt.Errorf("expected a JSON object, got %v", dataType)
	}

	flat := make(Map)
	err := jsonparser.ObjectEach(raw, func(key []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		k, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		switch dataType {
		case jsonparser.String:
			s, err := jsonparser.ParseString(value)
			if err != nil {
				return err
			}
			flat[k] = s
		case jsonparser.Null:
			flat[k] = ""
		default:
			flat[k] = string(value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flat, nil
}
