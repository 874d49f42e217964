package types

// NodeID and ValueID are small, copyable handles referring to NK/VK records.
// They hold the cell offset relative to the first hive bin.
type (
	NodeID  uint32
	ValueID uint32
)

// ValueMeta describes a value without decoding its data.
type ValueMeta struct {
	Name   string  // value name ("" for the default value)
	Type   RegType // declared registry type
	Size   int     // payload size from the VK record
	Inline bool    // data lives in the VK record itself
}
