package ntfsfs

import "errors"

var (
	errIsDir  = errors.New("is a directory")
	errNotDir = errors.New("not a directory")
)
