package types

import (
	"errors"
	"fmt"
	"strings"
)

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindUnknown     ErrKind = iota
	ErrKindAddress             // container/partition/path could not be resolved
	ErrKindFormat              // container or filesystem unreadable or unsupported
	ErrKindKeyNotFound         // a hive path segment is missing
	ErrKindNotFound            // no account matches the requested RID (or value missing)
	ErrKindParse               // hive bytes are structurally invalid
	ErrKindTruncated           // a record field points past the record bounds
	ErrKindIO                  // native read failure
)

var kindNames = [...]string{
	ErrKindUnknown:     "unknown",
	ErrKindAddress:     "address resolution",
	ErrKindFormat:      "format",
	ErrKindKeyNotFound: "key not found",
	ErrKindNotFound:    "not found",
	ErrKindParse:       "parse",
	ErrKindTruncated:   "truncated record",
	ErrKindIO:          "io",
}

func (k ErrKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("ErrKind(%d)", int(k))
	}
	return kindNames[k]
}

// Error is a typed error with an optional underlying cause. The context
// fields are filled in by whichever layer knows them; empty fields are
// omitted from the message.
type Error struct {
	Kind      ErrKind
	Msg       string
	Partition int    // 1-based partition index, 0 when not applicable
	Path      string // filesystem or container path
	Key       string // hive key path
	Err       error  // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(e.Msg)
	var ctx []string
	if e.Partition > 0 {
		ctx = append(ctx, fmt.Sprintf("partition=%d", e.Partition))
	}
	if e.Path != "" {
		ctx = append(ctx, "path="+e.Path)
	}
	if e.Key != "" {
		ctx = append(ctx, "key="+e.Key)
	}
	if len(ctx) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(ctx, " "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, types.ErrNotFound)
// holds for every not-found error regardless of message or context.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil || e == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is checks. They carry no context; never mutate them.
var (
	// ErrAddress indicates an absent or out-of-range partition index or path.
	ErrAddress = &Error{Kind: ErrKindAddress, Msg: "address resolution failed"}
	// ErrFormat indicates an unreadable container or unsupported filesystem.
	ErrFormat = &Error{Kind: ErrKindFormat, Msg: "unsupported or corrupt format"}
	// ErrKeyNotFound indicates a missing hive key path segment.
	ErrKeyNotFound = &Error{Kind: ErrKindKeyNotFound, Msg: "key not found"}
	// ErrNotFound indicates no account or value matched.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrParse indicates the hive lacks a valid structure.
	ErrParse = &Error{Kind: ErrKindParse, Msg: "not a valid registry hive"}
	// ErrTruncated indicates a record field references bytes past its bounds.
	ErrTruncated = &Error{Kind: ErrKindTruncated, Msg: "record truncated"}
	// ErrIO indicates a native read failure.
	ErrIO = &Error{Kind: ErrKindIO, Msg: "i/o failure"}
)

// KindOf returns the kind of the first *Error in err's chain, or
// ErrKindUnknown when there is none.
func KindOf(err error) ErrKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ErrKindUnknown
}

// Newf builds an *Error of the given kind with a formatted message.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around cause.
func Wrap(kind ErrKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}
