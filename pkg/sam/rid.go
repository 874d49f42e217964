// Package sam navigates the account database inside a SAM hive: the
// RID-keyed account subkeys under Users and the Names index that maps
// account names back to RIDs.
package sam

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joshuapare/samkit/pkg/types"
)

const (
	// UsersPath is the key holding one subkey per account.
	UsersPath = `SAM\Domains\Account\Users`
	// NamesKey is the name-to-RID index under Users. It is never an account.
	NamesKey = "Names"
)

// Well-known RIDs.
const (
	RIDAdministrator RID = 500
	RIDGuest         RID = 501
)

// RID is a relative identifier. It is stored two ways in a SAM hive: as
// the hexadecimal name of the account's key under Users and as the type
// field of the default value under Users\Names\<account name>.
type RID uint32

// ParseKeyName parses an account key name: unprefixed hexadecimal, any case.
func ParseKeyName(name string) (RID, error) {
	if name == "" || strings.HasPrefix(name, "0x") || strings.HasPrefix(name, "0X") || strings.HasPrefix(name, "+") {
		return 0, &types.Error{Kind: types.ErrKindParse, Msg: fmt.Sprintf("account key name %q is not a RID", name)}
	}
	v, err := strconv.ParseUint(name, 16, 32)
	if err != nil {
		return 0, &types.Error{Kind: types.ErrKindParse, Msg: fmt.Sprintf("account key name %q is not a RID", name), Err: err}
	}
	return RID(v), nil
}

// KeyName renders r the way Windows names account keys.
func (r RID) KeyName() string {
	return fmt.Sprintf("%08X", uint32(r))
}

// FromValueType reads a RID out of a Names entry's default value type.
func FromValueType(t types.RegType) RID {
	return RID(t)
}

// ValueType renders r as a Names entry's default value type.
func (r RID) ValueType() types.RegType {
	return types.RegType(r)
}

func (r RID) String() string {
	return strconv.FormatUint(uint64(r), 10)
}
