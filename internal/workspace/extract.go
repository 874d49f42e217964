package workspace

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/zeebo/blake3"

	"github.com/joshuapare/samkit/internal/writer"
	"github.com/joshuapare/samkit/pkg/evidence"
	"github.com/joshuapare/samkit/pkg/hive"
	"github.com/joshuapare/samkit/pkg/types"
)

// Extraction describes one hive copied out of the image.
type Extraction struct {
	Partition int    `json:"partition_id"`
	Hive      string `json:"hive"`
	Source    string `json:"source_path"`
	LocalPath string `json:"local_path"`
	Size      int64  `json:"size"`
	BLAKE3    string `json:"blake3"`
}

// ExtractSAM copies the SAM hive of partition into the work directory.
func (w *Workspace) ExtractSAM(ctx context.Context, partition int) (Extraction, error) {
	return w.ExtractHive(ctx, partition, "SAM")
}

// ExtractHive copies hive name of partition into the work directory,
// replacing any earlier copy. The copy appears atomically.
func (w *Workspace) ExtractHive(ctx context.Context, partition int, name string) (Extraction, error) {
	src, err := w.hivePath(name)
	if err != nil {
		return Extraction{}, err
	}
	v, err, shared := w.flight.Do(fmt.Sprintf("%d/%s", partition, name), func() (any, error) {
		return w.extract(ctx, partition, name, src)
	})
	if err != nil {
		return Extraction{}, err
	}
	if shared {
		w.log.Debug("joined in-flight extraction", "partition", partition, "hive", name)
	}
	return v.(Extraction), nil
}

func (w *Workspace) extract(ctx context.Context, partition int, name, src string) (Extraction, error) {
	l := w.lock(partition)
	l.Lock()
	defer l.Unlock()

	data, err := w.resolver.ReadFile(ctx, evidence.At(w.image, partition, src))
	if err != nil {
		return Extraction{}, err
	}
	h, err := hive.Open(data)
	if err != nil {
		return Extraction{}, &types.Error{Kind: types.KindOf(err), Msg: "extracted file is not a hive", Partition: partition, Path: src, Err: err}
	}
	_ = h.Close()

	local := w.LocalHivePath(partition, name)
	fw := &writer.FileWriter{Fs: w.fs, Path: local}
	if err := fw.Write(data); err != nil {
		return Extraction{}, &types.Error{Kind: types.ErrKindIO, Msg: "write extracted hive", Partition: partition, Path: local, Err: err}
	}
	sum := blake3.Sum256(data)
	x := Extraction{
		Partition: partition,
		Hive:      name,
		Source:    src,
		LocalPath: local,
		Size:      int64(len(data)),
		BLAKE3:    hex.EncodeToString(sum[:]),
	}
	w.log.Info("extracted hive", "partition", partition, "hive", name, "path", local, "size", x.Size, "blake3", x.BLAKE3)
	return x, nil
}

// openSAM opens the extracted SAM copy of partition, or reads the hive from
// the image when none has been extracted. The caller holds the partition's
// read lock.
func (w *Workspace) openSAM(ctx context.Context, partition int) (*hive.Hive, error) {
	local := w.LocalHivePath(partition, "SAM")
	if _, err := w.fs.Stat(local); err == nil {
		w.log.Debug("reading extracted hive", "path", local)
		if _, ok := w.fs.(*afero.OsFs); ok {
			return hive.OpenFile(local)
		}
		data, err := afero.ReadFile(w.fs, local)
		if err != nil {
			return nil, &types.Error{Kind: types.ErrKindIO, Msg: "read extracted hive", Path: local, Err: err}
		}
		return hive.Open(data)
	} else if !os.IsNotExist(err) {
		return nil, &types.Error{Kind: types.ErrKindIO, Msg: "stat extracted hive", Path: local, Err: err}
	}

	src, err := w.hivePath("SAM")
	if err != nil {
		return nil, err
	}
	w.log.Debug("reading hive from image", "partition", partition, "path", src)
	data, err := w.resolver.ReadFile(ctx, evidence.At(w.image, partition, src))
	if err != nil {
		return nil, err
	}
	return hive.Open(data)
}
