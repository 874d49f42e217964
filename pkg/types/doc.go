// Package types holds the error taxonomy and small value types shared by the
// evidence, hive, sam and record packages.
//
// Every failure surfaced by samkit is a *Error with a stable Kind:
//   - ErrKindAddress: the partition index or path inside an image is absent.
//   - ErrKindFormat: the container is unreadable or the filesystem unsupported.
//   - ErrKindKeyNotFound: a hive path segment is missing.
//   - ErrKindNotFound: no account matches a RID, or the account lacks a value.
//   - ErrKindParse: hive bytes are structurally invalid.
//   - ErrKindTruncated: a record field references bytes past its bounds.
//   - ErrKindIO: the native file could not be read.
//
// errors.Is(err, types.ErrNotFound) and friends match by kind.
package types
