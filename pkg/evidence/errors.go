package evidence

import (
	"errors"
	"os"
	"syscall"

	"github.com/joshuapare/samkit/pkg/types"
)

// pathError classifies a filesystem error for p in partition. Typed errors
// keep their kind and gain context, missing paths become address errors and
// anything else is an I/O error.
func pathError(op string, partition int, p string, err error) error {
	var te *types.Error
	if errors.As(err, &te) {
		return &types.Error{Kind: te.Kind, Msg: op, Partition: partition, Path: p, Err: err}
	}
	kind := types.ErrKindIO
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		kind = types.ErrKindAddress
	}
	return &types.Error{Kind: kind, Msg: op, Partition: partition, Path: p, Err: err}
}
