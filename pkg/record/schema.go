// Package record decodes the binary account records stored under each SAM
// account key: the fixed-layout F value and the header-plus-data V value.
// Field layouts come from schema tables so the decoders stay independent of
// any one Windows release.
package record

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Record bounds.
const (
	// FSize bounds every F field reference.
	FSize = 88
	// VHeaderSize is the V header length; pointer targets are relative to
	// its end.
	VHeaderSize = 204

	// FRIDOffset and FUACOffset locate the RID and the account control mask
	// in an F value.
	FRIDOffset = 48
	FUACOffset = 56
)

// F field types with dedicated decoders. Any other type renders as hex.
const (
	TypeUint16   = "uint16"
	TypeUint32   = "uint32"
	TypeFiletime = "filetime"
)

// FField locates one F value field.
type FField struct {
	Name   string `yaml:"field" json:"field"`
	Offset int    `yaml:"offset" json:"offset"`
	Type   string `yaml:"type" json:"type"`
	Size   int    `yaml:"size" json:"size"`
}

// Validate implements validation.Validatable.
func (f FField) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.Offset, validation.Min(0)),
		validation.Field(&f.Type, validation.Required),
		validation.Field(&f.Size, validation.Required, validation.Min(1), validation.By(f.sizeMatchesType)),
	)
}

func (f FField) sizeMatchesType(any) error {
	if w, ok := typeWidth(f.Type); ok && w != f.Size {
		return fmt.Errorf("%s fields are %d bytes", f.Type, w)
	}
	return nil
}

func typeWidth(t string) (int, bool) {
	switch t {
	case TypeUint16:
		return 2, true
	case TypeUint32:
		return 4, true
	case TypeFiletime:
		return 8, true
	}
	return 0, false
}

// FSchema is an ordered F layout. Decoded output keeps this order.
type FSchema []FField

// Validate checks every field.
func (s FSchema) Validate() error {
	return validateEach(s)
}

// V field kinds.
const (
	KindTimestamp = "timestamp"
	KindPointer   = "pointer"
)

// VField locates one V value field by its header offset.
type VField struct {
	Name         string `yaml:"field" json:"field"`
	HeaderOffset int    `yaml:"header_offset" json:"header_offset"`
	Kind         string `yaml:"kind" json:"kind"`
}

// Validate implements validation.Validatable.
func (f VField) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.HeaderOffset, validation.Min(0), validation.Max(VHeaderSize-8)),
		validation.Field(&f.Kind, validation.Required, validation.In(KindTimestamp, KindPointer)),
	)
}

// VSchema is an ordered V layout.
type VSchema []VField

// Validate checks every field.
func (s VSchema) Validate() error {
	return validateEach(s)
}

// FlagDef is one (bit, label) entry of a flag table. Bit may cover more
// than one bit for composite entries.
type FlagDef struct {
	Bit   uint32 `yaml:"bit" json:"bit"`
	Label string `yaml:"label" json:"label"`
}

// Validate rejects a zero bit, which would match every mask.
func (d FlagDef) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Bit, validation.Required),
		validation.Field(&d.Label, validation.Required),
	)
}

// FlagSchema is an ordered flag table.
type FlagSchema []FlagDef

// Validate checks every entry.
func (s FlagSchema) Validate() error {
	return validateEach(s)
}

func validateEach[T validation.Validatable](items []T) error {
	errs := validation.Errors{}
	for i, it := range items {
		if err := it.Validate(); err != nil {
			errs[fmt.Sprint(i)] = err
		}
	}
	return errs.Filter()
}
