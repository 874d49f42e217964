package hive

import (
	"errors"
	"strings"

	"github.com/joshuapare/samkit/pkg/filetime"
	"github.com/joshuapare/samkit/pkg/types"
)

// Key is a handle to one registry key. The zero Key is invalid.
type Key struct {
	h         *Hive
	id        types.NodeID
	name      string
	lastWrite uint64
}

// Name returns the key name as stored in the hive.
func (k Key) Name() string { return k.name }

// LastWrite returns the key's last-write timestamp.
func (k Key) LastWrite() filetime.Value { return filetime.Decode(k.lastWrite) }

// ID returns the key's cell offset, stable for the life of the hive.
func (k Key) ID() types.NodeID { return k.id }

// Subkeys returns the direct child keys in on-disk order.
func (k Key) Subkeys() ([]Key, error) {
	if k.h == nil {
		return nil, errInvalidKey
	}
	ids, err := k.h.r.Subkeys(k.id)
	if err != nil {
		return nil, err
	}
	out := make([]Key, 0, len(ids))
	for _, id := range ids {
		child, err := k.h.key(id)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

// Subkey returns the direct child named name (case-insensitive).
func (k Key) Subkey(name string) (Key, error) {
	if k.h == nil {
		return Key{}, errInvalidKey
	}
	id, err := k.h.r.Lookup(k.id, name)
	if err != nil {
		var te *types.Error
		if errors.As(err, &te) && te.Kind == types.ErrKindKeyNotFound {
			te.Key = k.name + `\` + name
		}
		return Key{}, err
	}
	return k.h.key(id)
}

// Values returns the key's values in on-disk order.
func (k Key) Values() ([]Value, error) {
	if k.h == nil {
		return nil, errInvalidKey
	}
	ids, err := k.h.r.Values(k.id)
	if err != nil {
		return nil, err
	}
	out := make([]Value, 0, len(ids))
	for _, id := range ids {
		v, err := k.h.value(id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Value returns the value named name (case-insensitive). The empty name
// selects the default value.
func (k Key) Value(name string) (Value, error) {
	if k.h == nil {
		return Value{}, errInvalidKey
	}
	id, err := k.h.r.GetValue(k.id, name)
	if err != nil {
		var te *types.Error
		if errors.As(err, &te) {
			te.Key = k.name
		}
		return Value{}, err
	}
	return k.h.value(id)
}

// Value is a registry value. Data is read on demand.
type Value struct {
	h    *Hive
	id   types.ValueID
	Name string
	Type types.RegType
	Size int
}

// Data returns a copy of the value's bytes.
func (v Value) Data() ([]byte, error) {
	if v.h == nil {
		return nil, errInvalidKey
	}
	return v.h.r.ValueBytes(v.id)
}

// String decodes REG_SZ and REG_EXPAND_SZ data, dropping the terminator.
// Other types render as their type name.
func (v Value) String() (string, error) {
	if v.Type != types.REG_SZ && v.Type != types.REG_EXPAND_SZ {
		return v.Type.String(), nil
	}
	data, err := v.Data()
	if err != nil {
		return "", err
	}
	s, err := decodeUTF16(data)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(s, "\x00"), nil
}

func (h *Hive) value(id types.ValueID) (Value, error) {
	meta, err := h.r.StatValue(id)
	if err != nil {
		return Value{}, err
	}
	return Value{h: h, id: id, Name: meta.Name, Type: meta.Type, Size: meta.Size}, nil
}

var errInvalidKey = &types.Error{Kind: types.ErrKindParse, Msg: "use of zero hive handle"}
