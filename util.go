package trap

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
)

// pad appends str to the buffer if the buffer already has some data.
func pad(b *bytes.Buffer, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

// writeKeyVal appends " key [val]" to the buffer.
func writeKeyVal(b *bytes.Buffer, key string, val interface{}) {
	pad(b, " ")
	b.WriteString(key)
	b.WriteString(" [")
	b.WriteString(fmt.Sprint(val))
	b.WriteString("]")
}

func toString(val interface{}) string {
	if val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprint(val)
}

// convertForJSONMarshalling replaces the given obj if it's a builtin "error" interface with its string representation
// (obj.Error()), because "error" is marshaled as nil by the standard json library.
//
// If the obj implements custom JSON marshalling or is not an error, the obj is returned unchanged.
//
// The boolean return value is true if the obj was converted, false otherwise.
func convertForJSONMarshalling(obj interface{}) (interface{}, bool) {
	switch t := obj.(type) {
	case json.Marshaler,
		encoding.TextMarshaler:
		// no conversion needed - they marshal correctly
	case error:
		return t.Error(), true
	}
	return obj, false
}
