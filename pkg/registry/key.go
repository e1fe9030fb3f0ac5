package registry

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidKey is wrapped by the panic raised for keys the registry cannot
// represent: tuple elements outside the supported primitive types, or a
// zero Key passed to GetOrCreate.
var ErrInvalidKey = errors.New("registry: invalid key")

// Key identifies a registry entry. Keys compare structurally: two keys
// built from equal primitives are the same key, no matter where or when
// they were built. Key is comparable, so it works as a map key and with ==.
//
// Build keys with Str or Tuple. The zero Key is not a valid key.
type Key struct {
	canon string
}

// Str builds a key from a plain string.
func Str(s string) Key {
	return Key{canon: "s" + strconv.Quote(s)}
}

// Tuple builds a key from an ordered list of primitives. Supported element
// types are strings, booleans, nil, and all integer and float types.
// Numbers compare by value, so Tuple("user", 1) and Tuple("user", 1.0) are
// the same key. Element order matters.
//
// Panics with an error wrapping ErrInvalidKey for any other element type.
func Tuple(parts ...any) Key {
	var b strings.Builder
	b.WriteString("t:")
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(encodeElement(i, p))
	}
	return Key{canon: b.String()}
}

// String returns the key's canonical form. It is stable across processes,
// so snapshots and diagnostics can use it as an identifier.
func (k Key) String() string {
	return k.canon
}

// IsZero reports whether k is the zero value rather than a key built with
// Str or Tuple.
func (k Key) IsZero() bool {
	return k.canon == ""
}

// encodeElement renders one tuple element in a type-tagged form. Strings
// are quoted, so the separator comma never collides with string content,
// and the tag keeps "1" and 1 distinct.
func encodeElement(i int, p any) string {
	switch v := p.(type) {
	case string:
		return "s" + strconv.Quote(v)
	case bool:
		return "b" + strconv.FormatBool(v)
	case nil:
		return "z"
	case int:
		return "i" + strconv.FormatInt(int64(v), 10)
	case int8:
		return "i" + strconv.FormatInt(int64(v), 10)
	case int16:
		return "i" + strconv.FormatInt(int64(v), 10)
	case int32:
		return "i" + strconv.FormatInt(int64(v), 10)
	case int64:
		return "i" + strconv.FormatInt(v, 10)
	case uint:
		return "i" + strconv.FormatUint(uint64(v), 10)
	case uint8:
		return "i" + strconv.FormatUint(uint64(v), 10)
	case uint16:
		return "i" + strconv.FormatUint(uint64(v), 10)
	case uint32:
		return "i" + strconv.FormatUint(uint64(v), 10)
	case uint64:
		return "i" + strconv.FormatUint(v, 10)
	case float32:
		return encodeFloat(i, float64(v))
	case float64:
		return encodeFloat(i, v)
	default:
		panic(fmt.Errorf("%w: tuple element %d has unsupported type %T", ErrInvalidKey, i, p))
	}
}

// encodeFloat folds integral floats into the integer form so numeric value,
// not Go type, decides key equality.
func encodeFloat(i int, f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		panic(fmt.Errorf("%w: tuple element %d is not a finite number", ErrInvalidKey, i))
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return "i" + strconv.FormatInt(int64(f), 10)
	}
	return "f" + strconv.FormatFloat(f, 'g', -1, 64)
}
