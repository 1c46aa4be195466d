package analytics

import "encoding/json"

// Metadata is the payload accompanying an event.
// Any value encoding/json can serialize qualifies; handlers decide how
// it is encoded for their backend.
type Metadata = any

// EmptyMetadata is the payload of events that carry no data.
// It encodes as an empty object.
type EmptyMetadata struct{}

// MarshalJSON implements json.Marshaler.
func (EmptyMetadata) MarshalJSON() ([]byte, error) {
	return []byte("{}"), nil
}

// AnyMetadata holds exactly one metadata value of unknown concrete type.
type AnyMetadata struct {
	value Metadata
}

// EraseMetadata wraps v in an AnyMetadata.
// If v already is an AnyMetadata it is returned as is, never double wrapped.
func EraseMetadata(v Metadata) AnyMetadata {
	switch m := v.(type) {
	case AnyMetadata:
		return m
	case *AnyMetadata:
		if m != nil {
			return *m
		}
	}
	return AnyMetadata{value: v}
}

// Value returns the wrapped metadata.
func (m AnyMetadata) Value() Metadata {
	return m.value
}

// MarshalJSON forwards encoding to the wrapped value.
func (m AnyMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.value)
}

// MetadataAs downcasts data to M. AnyMetadata wrappers are unwrapped
// first, so both erased and unerased payloads can be recovered.
// A value that is not an M yields a *TypeMismatchError.
func MetadataAs[M any](data Metadata) (M, error) {
	if typed, ok := data.(M); ok {
		return typed, nil
	}
	if erased, ok := data.(AnyMetadata); ok {
		if typed, ok := erased.value.(M); ok {
			return typed, nil
		}
		data = erased.value
	}
	var zero M
	return zero, mismatch[M]("metadata", data)
}
