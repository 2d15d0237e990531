package vt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Object represents a decoded API entity. Every object is identified by
// an ID and a type tag; everything else lives in the attribute and
// relationship maps. Objects are immutable once decoded.
type Object struct {
	// ID uniquely identifies the object within its type.
	ID string

	// Type is the object's type tag, for example "file" or "url".
	Type string

	// Attributes holds the object's attributes keyed by name.
	Attributes map[string]any

	// Relationships maps relationship names to related object references.
	Relationships map[string]*Relationship

	// ContextAttributes holds attributes that depend on the endpoint the
	// object was retrieved from.
	ContextAttributes map[string]any
}

// ObjectRef is a reference to a related object by ID and type.
type ObjectRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Relationship holds the references of one object relationship. The API
// encodes one-to-one relationships as a single descriptor and
// one-to-many relationships as an array; both decode into Objects.
type Relationship struct {
	Objects []ObjectRef

	// IsList records whether the relationship was one-to-many.
	IsList bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Relationship) UnmarshalJSON(data []byte) error {
	var raw struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(raw.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '[' {
		r.IsList = true
		return json.Unmarshal(trimmed, &r.Objects)
	}

	var ref ObjectRef
	if err := json.Unmarshal(trimmed, &ref); err != nil {
		return err
	}
	r.Objects = []ObjectRef{ref}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r *Relationship) MarshalJSON() ([]byte, error) {
	if r.IsList {
		return json.Marshal(map[string]any{"data": r.Objects})
	}
	if len(r.Objects) == 0 {
		return json.Marshal(map[string]any{"data": nil})
	}
	return json.Marshal(map[string]any{"data": r.Objects[0]})
}

// rawObject is the wire format of an object record.
type rawObject struct {
	ID                string                   `json:"id"`
	Type              string                   `json:"type"`
	Attributes        map[string]any           `json:"attributes,omitempty"`
	Relationships     map[string]*Relationship `json:"relationships,omitempty"`
	ContextAttributes map[string]any           `json:"context_attributes,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler. It fails when the record
// lacks the id or type identity fields.
func (o *Object) UnmarshalJSON(data []byte) error {
	var raw rawObject
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ID == "" {
		return fmt.Errorf("object record missing id field")
	}
	if raw.Type == "" {
		return fmt.Errorf("object record missing type field")
	}

	o.ID = raw.ID
	o.Type = raw.Type
	o.Attributes = raw.Attributes
	o.Relationships = raw.Relationships
	o.ContextAttributes = raw.ContextAttributes
	return nil
}

// MarshalJSON implements json.Marshaler.
func (o *Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(rawObject{
		ID:                o.ID,
		Type:              o.Type,
		Attributes:        o.Attributes,
		Relationships:     o.Relationships,
		ContextAttributes: o.ContextAttributes,
	})
}

// Get returns the named attribute and whether it is present.
func (o *Object) Get(name string) (any, bool) {
	v, ok := o.Attributes[name]
	return v, ok
}

// GetString returns the named attribute as a string.
func (o *Object) GetString(name string) (string, bool) {
	v, ok := o.Attributes[name].(string)
	return v, ok
}

// GetInt64 returns the named attribute as an int64. JSON numbers decode
// as float64; values with a fractional part are not considered integers.
func (o *Object) GetInt64(name string) (int64, bool) {
	f, ok := o.Attributes[name].(float64)
	if !ok || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// GetFloat64 returns the named attribute as a float64.
func (o *Object) GetFloat64(name string) (float64, bool) {
	v, ok := o.Attributes[name].(float64)
	return v, ok
}

// GetBool returns the named attribute as a bool.
func (o *Object) GetBool(name string) (bool, bool) {
	v, ok := o.Attributes[name].(bool)
	return v, ok
}

// GetTime returns the named attribute interpreted as a UTC Unix
// timestamp in seconds, the API's encoding for date attributes.
func (o *Object) GetTime(name string) (time.Time, bool) {
	ts, ok := o.GetInt64(name)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(ts, 0).UTC(), true
}

// apiResponse is the API's success response envelope.
type apiResponse struct {
	Data json.RawMessage `json:"data"`
	Meta *responseMeta   `json:"meta"`
}

// responseMeta carries pagination metadata.
type responseMeta struct {
	Cursor string `json:"cursor"`
	Count  int64  `json:"count"`
}

// hasData reports whether the envelope carried a data field.
func (r *apiResponse) hasData() bool {
	trimmed := bytes.TrimSpace(r.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// decodeObject decodes a single raw record into an Object.
func decodeObject(path string, data json.RawMessage) (*Object, error) {
	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return &obj, nil
}

// decodeObjectList decodes a data array into Objects. A failure on any
// record fails the whole list.
func decodeObjectList(path string, data json.RawMessage) ([]*Object, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("data field is not an array: %w", err)}
	}

	objects := make([]*Object, 0, len(records))
	for _, record := range records {
		obj, err := decodeObject(path, record)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}
