package reader

import (
	"fmt"
	"strings"

	"github.com/joshuapare/samkit/pkg/types"
)

var rootAliasList = []string{
	"HKEY_LOCAL_MACHINE", "HKLM",
}

// Find resolves a backslash-delimited path from the root key. A leading
// segment equal to the root key's own name, or an HKLM prefix, is skipped.
// Segments match case-insensitively. A missing segment yields a
// KeyNotFound error naming the full path and the segment.
func (r *Reader) Find(path string) (types.NodeID, error) {
	segments := SplitPath(stripRootPrefix(strings.TrimSpace(path)))
	current := r.Root()
	if len(segments) == 0 {
		return current, nil
	}
	rootName, err := r.KeyName(current)
	if err != nil {
		return 0, err
	}
	// Mounted hives name their root after the file (e.g. "SAM" or a
	// CMI-CreateHive GUID); only skip it when the next hop would not match.
	if strings.EqualFold(segments[0], rootName) {
		if _, err := r.Lookup(current, segments[0]); err != nil {
			segments = segments[1:]
		}
	}

	for i, seg := range segments {
		next, err := r.Lookup(current, seg)
		if err != nil {
			if types.KindOf(err) == types.ErrKindKeyNotFound {
				return 0, &types.Error{
					Kind: types.ErrKindKeyNotFound,
					Msg:  fmt.Sprintf("missing segment %q (depth %d)", seg, i+1),
					Key:  path,
				}
			}
			return 0, err
		}
		current = next
	}
	return current, nil
}

// SplitPath normalizes a hive path into its non-empty segments. Forward
// slashes are accepted as separators.
func SplitPath(path string) []string {
	path = strings.ReplaceAll(path, "/", `\`)
	parts := strings.Split(path, `\`)
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func stripRootPrefix(path string) string {
	upper := strings.ToUpper(path)
	for _, alias := range rootAliasList {
		if upper == alias {
			return ""
		}
		prefix := alias + `\`
		if strings.HasPrefix(upper, prefix) {
			return path[len(prefix):]
		}
	}
	return path
}
