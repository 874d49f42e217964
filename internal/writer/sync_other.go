//go:build !linux

package writer

import "github.com/spf13/afero"

func syncFile(f afero.File) error { return f.Sync() }

func syncDir(string) error { return nil }
