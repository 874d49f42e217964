package sam

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joshuapare/samkit/pkg/hive"
	"github.com/joshuapare/samkit/pkg/types"
)

// Account is one RID-keyed account subkey.
type Account struct {
	RID RID
	Key hive.Key
}

// Name is one entry of the Names index.
type Name struct {
	Name string `json:"name"`
	RID  RID    `json:"rid"`
}

// Accounts enumerates the account subkeys of users in on-disk order.
// Names and any subkey whose name is not hexadecimal are skipped.
func Accounts(users hive.Key) ([]Account, error) {
	subkeys, err := users.Subkeys()
	if err != nil {
		return nil, err
	}
	var out []Account
	for _, k := range subkeys {
		rid, ok := accountRID(k)
		if !ok {
			continue
		}
		out = append(out, Account{RID: rid, Key: k})
	}
	return out, nil
}

// FindAccount returns the first account subkey whose RID equals rid.
func FindAccount(users hive.Key, rid RID) (hive.Key, error) {
	subkeys, err := users.Subkeys()
	if err != nil {
		return hive.Key{}, err
	}
	for _, k := range subkeys {
		if got, ok := accountRID(k); ok && got == rid {
			return k, nil
		}
	}
	return hive.Key{}, &types.Error{
		Kind: types.ErrKindNotFound,
		Msg:  fmt.Sprintf("no account with RID %d (key %s)", rid, rid.KeyName()),
		Key:  users.Name(),
	}
}

// FindAccountValue returns the bytes of value name ("F" or "V") of the
// account whose RID equals rid. Enumeration stops at the first match.
func FindAccountValue(users hive.Key, rid RID, name string) ([]byte, error) {
	k, err := FindAccount(users, rid)
	if err != nil {
		return nil, err
	}
	v, err := k.Value(name)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, &types.Error{
				Kind: types.ErrKindNotFound,
				Msg:  fmt.Sprintf("account %s has no %q value", rid.KeyName(), name),
				Key:  k.Name(),
			}
		}
		return nil, err
	}
	return v.Data()
}

// AccountNames reads the Names index under users. Each entry's RID comes
// from the type field of its default value.
func AccountNames(users hive.Key) ([]Name, error) {
	names, err := users.Subkey(NamesKey)
	if err != nil {
		return nil, err
	}
	subkeys, err := names.Subkeys()
	if err != nil {
		return nil, err
	}
	out := make([]Name, 0, len(subkeys))
	for _, k := range subkeys {
		def, err := k.Value("")
		if err != nil {
			return nil, fmt.Errorf("names entry %q: %w", k.Name(), err)
		}
		out = append(out, Name{Name: k.Name(), RID: FromValueType(def.Type)})
	}
	return out, nil
}

func accountRID(k hive.Key) (RID, bool) {
	if strings.EqualFold(k.Name(), NamesKey) {
		return 0, false
	}
	rid, err := ParseKeyName(k.Name())
	if err != nil {
		return 0, false
	}
	return rid, true
}
