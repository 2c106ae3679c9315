package g2h

// FieldKind is the semantic type of a message field.
type FieldKind int

const (
	// KindScalar covers strings, numbers, booleans and anything else the
	// bridge passes through untouched.
	KindScalar FieldKind = iota
	// KindMessage is a reference to another MessageSchema in the registry.
	KindMessage
	// KindEnum is a reference to an EnumSchema in the registry.
	KindEnum
)

// FieldSchema describes one field of a message. For message and enum kinds,
// TypeName names the referenced type in the registry. Repeated marks list
// fields; Map marks fields whose JSON representation is an object with
// arbitrary string keys and values of the field's kind.
type FieldSchema struct {
	Name     string
	JSONName string
	Kind     FieldKind
	TypeName string
	Repeated bool
	Map      bool
}

// MessageSchema is the ordered set of fields of one message type. It is
// never mutated after registration.
type MessageSchema struct {
	Name   string
	Fields []FieldSchema
}

// Field returns the field matching the given JSON object key, trying the
// JSON name first and falling back to the schema name. It returns nil when
// no field matches; unknown keys are ignored by the bridge.
func (ms *MessageSchema) Field(key string) *FieldSchema {
	for i := range ms.Fields {
		if ms.Fields[i].JSONName == key {
			return &ms.Fields[i]
		}
	}
	for i := range ms.Fields {
		if ms.Fields[i].Name == key {
			return &ms.Fields[i]
		}
	}
	return nil
}

// EnumValue is one (symbolic name, integer discriminant) pair of an enum.
type EnumValue struct {
	Name   string
	Number int32
}

// EnumSchema is the ordered value set of one enum type. Discriminants need
// not be contiguous; symbolic names must be unique within the enum.
type EnumSchema struct {
	Name   string
	Values []EnumValue
}

// NumberByName looks up a discriminant by its exact, case-sensitive symbolic
// name.
func (es *EnumSchema) NumberByName(name string) (int32, bool) {
	for _, v := range es.Values {
		if v.Name == name {
			return v.Number, true
		}
	}
	return 0, false
}

// NameByNumber returns the symbolic name for a discriminant. When several
// values share a discriminant (proto allow_alias), the first declared name
// wins.
func (es *EnumSchema) NameByNumber(n int32) (string, bool) {
	for _, v := range es.Values {
		if v.Number == n {
			return v.Name, true
		}
	}
	return "", false
}

// Names returns all symbolic names in declaration order.
func (es *EnumSchema) Names() []string {
	names := make([]string, len(es.Values))
	for i, v := range es.Values {
		names[i] = v.Name
	}
	return names
}

// TypeRegistry indexes message and enum schemas by name. Messages reference
// other types through the registry, never by embedding, so recursive message
// definitions are representable and traversal terminates.
//
// A registry is populated once, when the external compiler's output is
// ingested, and is read-only afterwards.
type TypeRegistry struct {
	messages map[string]*MessageSchema
	enums    map[string]*EnumSchema
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		messages: map[string]*MessageSchema{},
		enums:    map[string]*EnumSchema{},
	}
}

// RegisterMessage adds a message schema. Registering two types (of either
// kind) under the same name is a SchemaError.
func (r *TypeRegistry) RegisterMessage(ms *MessageSchema) error {
	if ms.Name == "" {
		return SchemaErrorf("message with empty name")
	}
	if r.contains(ms.Name) {
		return SchemaErrorf("duplicate type %s", ms.Name)
	}
	r.messages[ms.Name] = ms
	return nil
}

// RegisterEnum adds an enum schema, checking that its symbolic names are
// unique.
func (r *TypeRegistry) RegisterEnum(es *EnumSchema) error {
	if es.Name == "" {
		return SchemaErrorf("enum with empty name")
	}
	if r.contains(es.Name) {
		return SchemaErrorf("duplicate type %s", es.Name)
	}
	seen := make(map[string]struct{}, len(es.Values))
	for _, v := range es.Values {
		if _, ok := seen[v.Name]; ok {
			return SchemaErrorf("enum %s: duplicate value name %s", es.Name, v.Name)
		}
		seen[v.Name] = struct{}{}
	}
	r.enums[es.Name] = es
	return nil
}

// Message returns the named message schema, or nil.
func (r *TypeRegistry) Message(name string) *MessageSchema {
	return r.messages[name]
}

// Enum returns the named enum schema, or nil.
func (r *TypeRegistry) Enum(name string) *EnumSchema {
	return r.enums[name]
}

func (r *TypeRegistry) contains(name string) bool {
	if _, ok := r.messages[name]; ok {
		return true
	}
	_, ok := r.enums[name]
	return ok
}

// CheckMessage verifies that the named message exists and that every type
// reference reachable from it resolves in the registry. The walk is iterative
// over type names, so recursive messages are handled.
func (r *TypeRegistry) CheckMessage(name string) error {
	if r.Message(name) == nil {
		return SchemaErrorf("unknown message type %s", name)
	}
	seen := map[string]struct{}{name: {}}
	work := []string{name}
	for len(work) > 0 {
		ms := r.Message(work[len(work)-1])
		work = work[:len(work)-1]
		for i := range ms.Fields {
			f := &ms.Fields[i]
			switch f.Kind {
			case KindMessage:
				if r.Message(f.TypeName) == nil {
					return SchemaErrorf("message %s: field %s references unknown message %s", ms.Name, f.Name, f.TypeName)
				}
				if _, ok := seen[f.TypeName]; !ok {
					seen[f.TypeName] = struct{}{}
					work = append(work, f.TypeName)
				}
			case KindEnum:
				if r.Enum(f.TypeName) == nil {
					return SchemaErrorf("message %s: field %s references unknown enum %s", ms.Name, f.Name, f.TypeName)
				}
			}
		}
	}
	return nil
}
