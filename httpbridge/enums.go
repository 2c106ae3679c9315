package httpbridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/juspay/g2h"
)

// decodeError is a request decoding failure: malformed JSON, a type mismatch,
// or an unknown enum symbol. It always surfaces as HTTP 400 with an
// InvalidArgument body and never propagates past the adapter boundary.
type decodeError struct {
	field string
	msg   string
}

func (e *decodeError) Error() string {
	if e.field == "" {
		return e.msg
	}
	return e.field + ": " + e.msg
}

// enumCodec translates enum representations in the JSON bodies of one message
// type. On the decode path, symbolic names are rewritten to their integer
// discriminants so the normalized body can be unmarshaled into the request
// struct. On the encode path, known discriminants are rewritten to their
// symbolic names.
//
// Codecs are built once per method at bind time. newEnumCodec returns nil
// when no enum type is reachable from the message, in which case the bridge
// skips the translation pass entirely.
type enumCodec struct {
	reg  *g2h.TypeRegistry
	root *g2h.MessageSchema
}

func newEnumCodec(reg *g2h.TypeRegistry, msgName string) *enumCodec {
	root := reg.Message(msgName)
	if root == nil || !reachesEnum(reg, msgName) {
		return nil
	}
	return &enumCodec{reg: reg, root: root}
}

// reachesEnum reports whether any enum field is transitively reachable from
// the named message. The walk is a worklist over registry names, so recursive
// message types terminate.
func reachesEnum(reg *g2h.TypeRegistry, msgName string) bool {
	seen := map[string]struct{}{msgName: {}}
	work := []string{msgName}
	for len(work) > 0 {
		ms := reg.Message(work[len(work)-1])
		work = work[:len(work)-1]
		if ms == nil {
			continue
		}
		for i := range ms.Fields {
			f := &ms.Fields[i]
			switch f.Kind {
			case g2h.KindEnum:
				return true
			case g2h.KindMessage:
				if _, ok := seen[f.TypeName]; !ok {
					seen[f.TypeName] = struct{}{}
					work = append(work, f.TypeName)
				}
			}
		}
	}
	return false
}

// Normalize rewrites enum symbols in the JSON body to their integer
// discriminants, guided by the message schema. Unknown object keys and
// scalar fields pass through untouched; structural mismatches are left for
// the final unmarshal into the request struct to report.
func (c *enumCodec) Normalize(body []byte) ([]byte, error) {
	v, err := unmarshalNumeric(body)
	if err != nil {
		return nil, &decodeError{msg: err.Error()}
	}
	v, err = c.walkMessage(c.root, "", v, c.decodeEnum)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// Symbolize rewrites known enum discriminants in an encoded response body to
// their symbolic names. Discriminants outside the declared set stay numeric
// (open-enum semantics).
func (c *enumCodec) Symbolize(body []byte) ([]byte, error) {
	v, err := unmarshalNumeric(body)
	if err != nil {
		return nil, err
	}
	v, err = c.walkMessage(c.root, "", v, c.encodeEnum)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// unmarshalNumeric parses a JSON body keeping numbers as json.Number, so
// that 64-bit integers elsewhere in the message survive the re-marshal
// without losing precision to float64.
func unmarshalNumeric(body []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// enumFn rewrites one enum-typed JSON value.
type enumFn func(es *g2h.EnumSchema, path string, v interface{}) (interface{}, error)

func (c *enumCodec) walkMessage(ms *g2h.MessageSchema, path string, v interface{}, fn enumFn) (interface{}, error) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return v, nil
	}
	for key, val := range obj {
		f := ms.Field(key)
		if f == nil {
			continue
		}
		nv, err := c.walkField(f, joinPath(path, key), val, fn)
		if err != nil {
			return nil, err
		}
		obj[key] = nv
	}
	return obj, nil
}

func (c *enumCodec) walkField(f *g2h.FieldSchema, path string, v interface{}, fn enumFn) (interface{}, error) {
	switch {
	case f.Repeated:
		list, ok := v.([]interface{})
		if !ok {
			return v, nil
		}
		for i := range list {
			nv, err := c.walkSingular(f, fmt.Sprintf("%s[%d]", path, i), list[i], fn)
			if err != nil {
				return nil, err
			}
			list[i] = nv
		}
		return list, nil
	case f.Map:
		obj, ok := v.(map[string]interface{})
		if !ok {
			return v, nil
		}
		for key, val := range obj {
			nv, err := c.walkSingular(f, path+"."+key, val, fn)
			if err != nil {
				return nil, err
			}
			obj[key] = nv
		}
		return obj, nil
	default:
		return c.walkSingular(f, path, v, fn)
	}
}

func (c *enumCodec) walkSingular(f *g2h.FieldSchema, path string, v interface{}, fn enumFn) (interface{}, error) {
	switch f.Kind {
	case g2h.KindEnum:
		es := c.reg.Enum(f.TypeName)
		if es == nil {
			return v, nil
		}
		return fn(es, path, v)
	case g2h.KindMessage:
		ms := c.reg.Message(f.TypeName)
		if ms == nil {
			return v, nil
		}
		return c.walkMessage(ms, path, v, fn)
	default:
		return v, nil
	}
}

// decodeEnum accepts a symbolic name or an integer discriminant. Unknown
// names are errors; unknown numbers are accepted verbatim.
func (c *enumCodec) decodeEnum(es *g2h.EnumSchema, path string, v interface{}) (interface{}, error) {
	s, ok := v.(string)
	if !ok {
		// numbers (and structural mismatches, reported later) pass through
		return v, nil
	}
	n, ok := es.NumberByName(s)
	if !ok {
		return nil, &decodeError{
			field: path,
			msg:   fmt.Sprintf("unknown value %q for enum %s (valid values: %s)", s, es.Name, strings.Join(es.Names(), ", ")),
		}
	}
	return json.Number(strconv.FormatInt(int64(n), 10)), nil
}

// encodeEnum replaces an integral discriminant with its symbolic name when
// one is declared.
func (c *enumCodec) encodeEnum(es *g2h.EnumSchema, path string, v interface{}) (interface{}, error) {
	num, ok := v.(json.Number)
	if !ok {
		return v, nil
	}
	n64, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil || n64 != int64(int32(n64)) {
		return v, nil
	}
	if name, ok := es.NameByNumber(int32(n64)); ok {
		return name, nil
	}
	return v, nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
