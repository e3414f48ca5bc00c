package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Category is a catalog category as the backend API returns it.
// Parent is a reference or a populated category depending on how the
// backend expanded the relation for that request.
type Category struct {
	ID     string      `json:"_id"`
	Name   string      `json:"name"`
	Slug   string      `json:"slug,omitempty"`
	Parent CategoryRef `json:"parentCategory"`
}

// CategoryRef is a relation to a Category that is either reference-only
// (the backend sent just the id) or populated (the backend sent the record).
// The variant is resolved once when decoding; the zero value is an empty
// reference.
type CategoryRef struct {
	id        string
	populated *Category
}

// Reference builds a reference-only relation.
func Reference(id string) CategoryRef {
	return CategoryRef{id: id}
}

// Populated builds a relation carrying the full category record.
func Populated(c Category) CategoryRef {
	return CategoryRef{id: c.ID, populated: &c}
}

// ID returns the referenced category id for both variants.
func (r CategoryRef) ID() string { return r.id }

// IsZero reports whether the relation is unset.
func (r CategoryRef) IsZero() bool { return r.id == "" && r.populated == nil }

// IsPopulated reports whether the full record is available.
func (r CategoryRef) IsPopulated() bool { return r.populated != nil }

// Category returns the populated record, if any.
func (r CategoryRef) Category() (Category, bool) {
	if r.populated == nil {
		return Category{}, false
	}
	return *r.populated, true
}

// DisplayName returns the category name when populated, otherwise the id.
func (r CategoryRef) DisplayName() string {
	if r.populated != nil && r.populated.Name != "" {
		return r.populated.Name
	}
	return r.id
}

// UnmarshalJSON resolves the variant: a JSON string is a reference, a JSON
// object is a populated category, null is the zero value.
func (r *CategoryRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*r = CategoryRef{}
		return nil
	case data[0] == '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("category ref: %w", err)
		}
		*r = Reference(id)
		return nil
	case data[0] == '{':
		var c Category
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("category ref: %w", err)
		}
		*r = Populated(c)
		return nil
	default:
		return fmt.Errorf("category ref: unexpected JSON %q", data)
	}
}

// MarshalJSON writes the variant back in the shape it was received in.
func (r CategoryRef) MarshalJSON() ([]byte, error) {
	if r.populated != nil {
		return json.Marshal(r.populated)
	}
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}

// CategoryRefFromValue resolves a relation out of a generically decoded JSON
// value (string, map[string]any or nil). Values of any other shape yield the
// zero relation.
func CategoryRefFromValue(v any) CategoryRef {
	switch t := v.(type) {
	case string:
		return Reference(t)
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return CategoryRef{}
		}
		var ref CategoryRef
		if err := ref.UnmarshalJSON(b); err != nil {
			return CategoryRef{}
		}
		return ref
	default:
		return CategoryRef{}
	}
}
