package tlcpclient

import "github.com/streamspace-dev/tlcp-client/internal/wire"

// ItemUpdate is delivered to a SubscriptionListener once per received server
// update (spec §4.2). It exposes the full reconstructed field vector, not
// just the fields that changed in this particular update, since a listener
// reading by name needs the merged view regardless of which fields the wire
// frame actually carried.
type ItemUpdate struct {
	ItemName string
	ItemPos  int
	IsSnapshot bool

	fields  map[int]wire.FieldValue
	changed map[int]bool

	fieldPos map[string]int
	posField map[int]string
}

// Value returns the current value of a field by name, or nil if the field
// is explicitly null or was never set.
func (u *ItemUpdate) Value(field string) *string {
	pos, ok := u.fieldPos[field]
	if !ok {
		return nil
	}
	return u.ValueByPosition(pos)
}

func (u *ItemUpdate) ValueByPosition(pos int) *string {
	fv, ok := u.fields[pos]
	if !ok {
		return nil
	}
	return fv.Ptr()
}

// IsValueChanged reports whether the given field's value changed in this
// specific update (as opposed to being carried over from the previous one).
func (u *ItemUpdate) IsValueChanged(field string) bool {
	pos, ok := u.fieldPos[field]
	if !ok {
		return false
	}
	return u.changed[pos]
}

func (u *ItemUpdate) IsValueChangedByPosition(pos int) bool {
	return u.changed[pos]
}

// ChangedFields returns the names of every field this update modified.
func (u *ItemUpdate) ChangedFields() []string {
	names := make([]string, 0, len(u.changed))
	for pos := range u.changed {
		if name, ok := u.posField[pos]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Fields returns the full reconstructed field set as a name->value map.
// Null fields are omitted.
func (u *ItemUpdate) Fields() map[string]string {
	out := make(map[string]string, len(u.fields))
	for pos, fv := range u.fields {
		if fv.Null {
			continue
		}
		if name, ok := u.posField[pos]; ok {
			out[name] = fv.Value
		}
	}
	return out
}
