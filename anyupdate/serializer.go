package anyupdate

import (
	"encoding"
	"errors"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// A Serializer saves or restores named values.
//
// The same Serialize calls are made for saving and for
// loading, so a type can describe its state once.
// Values are passed as pointers, which are read when
// saving and filled in when loading.
type Serializer interface {
	Serialize(key string, value interface{}) error
}

// A Saver is a Serializer which records values.
//
// Values which implement encoding.BinaryMarshaler are
// stored with MarshalBinary.
// Other values are stored with serializer.SerializeAny.
type Saver map[string][]byte

// Serialize records the value under the key.
func (s Saver) Serialize(key string, value interface{}) error {
	var data []byte
	var err error
	if m, ok := value.(encoding.BinaryMarshaler); ok {
		data, err = m.MarshalBinary()
	} else {
		data, err = serializer.SerializeAny(value)
	}
	if err != nil {
		return essentials.AddCtx("save "+key, err)
	}
	s[key] = data
	return nil
}

// A Loader is a Serializer which restores values recorded
// by a Saver.
type Loader map[string][]byte

// Serialize restores the value stored under the key.
func (l Loader) Serialize(key string, value interface{}) error {
	data, ok := l[key]
	if !ok {
		return errors.New("load " + key + ": no such key")
	}
	var err error
	if u, ok := value.(encoding.BinaryUnmarshaler); ok {
		err = u.UnmarshalBinary(data)
	} else {
		err = serializer.DeserializeAny(data, value)
	}
	if err != nil {
		return essentials.AddCtx("load "+key, err)
	}
	return nil
}

// Prefix creates a Serializer which adds a prefix to every
// key before passing it to s.
//
// This makes it possible to serialize several objects
// with overlapping keys, such as multiple optimizers.
func Prefix(s Serializer, prefix string) Serializer {
	return &prefixSerializer{S: s, Prefix: prefix}
}

type prefixSerializer struct {
	S      Serializer
	Prefix string
}

func (p *prefixSerializer) Serialize(key string, value interface{}) error {
	return p.S.Serialize(p.Prefix+key, value)
}
