package record

import (
	"github.com/joshuapare/samkit/internal/buf"
)

// Flag is one matched flag table entry.
type Flag struct {
	Bit   uint32 `json:"bit"`
	Label string `json:"label"`
}

// DecodeFlags returns, in schema order, every entry whose bits are all set
// in mask. Overlapping and composite entries are all reported.
func DecodeFlags(mask uint32, schema FlagSchema) []Flag {
	var out []Flag
	for _, d := range schema {
		if mask&d.Bit == d.Bit {
			out = append(out, Flag{Bit: d.Bit, Label: d.Label})
		}
	}
	return out
}

// Labels projects flags to their labels.
func Labels(flags []Flag) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = f.Label
	}
	return out
}

// FlagReport is the RID and decoded account control mask of one F value.
type FlagReport struct {
	RID   uint32 `json:"rid"`
	Mask  uint32 `json:"uac_flag_sum_decimal"`
	Flags []Flag `json:"uac_flags_list"`
}

// FlagsFromF reads the RID and account control mask from an F value and
// decodes the mask against schema.
func FlagsFromF(blob []byte, schema FlagSchema) (FlagReport, error) {
	limit := min(len(blob), FSize)
	if !buf.Within(FRIDOffset, 4, limit) {
		return FlagReport{}, truncated("F", "rid", FRIDOffset, 4, limit)
	}
	if !buf.Within(FUACOffset, 4, limit) {
		return FlagReport{}, truncated("F", "uac", FUACOffset, 4, limit)
	}
	mask := buf.U32LE(blob[FUACOffset:])
	return FlagReport{
		RID:   buf.U32LE(blob[FRIDOffset:]),
		Mask:  mask,
		Flags: DecodeFlags(mask, schema),
	}, nil
}
