/*
Package hive is the read-only navigation API over a Windows registry hive.

A Hive owns one decoded view of a hive image. Keys are addressed by
backslash-delimited paths relative to the root key; segments match
case-insensitively and a leading root-name or HKLM prefix is ignored.

	h, err := hive.Open(data)
	if err != nil {
	    return err
	}
	users, err := h.Resolve(`SAM\Domains\Account\Users`)
	if err != nil {
	    return err // types.ErrKeyNotFound when a segment is missing
	}
	subkeys, err := users.Subkeys()

A locally extracted copy can be memory-mapped instead of read into memory:

	h, err := hive.OpenFile("/cases/42/partitions/2/extracted_SAM")
	if err != nil {
	    return err
	}
	defer h.Close()

# Errors

Structural problems are reported as types.ErrParse, missing path segments as
types.ErrKeyNotFound and missing values as types.ErrNotFound. Value data is
always copied out of the hive, so returned slices stay valid after Close.
*/
package hive
