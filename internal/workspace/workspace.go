// Package workspace ties one evidence container to a work directory and
// runs the account and mail lookups against it. Hives are read from the
// extracted copy under the work directory when there is one and straight
// from the image otherwise.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/joshuapare/samkit/internal/config"
	"github.com/joshuapare/samkit/internal/logger"
	"github.com/joshuapare/samkit/pkg/evidence"
	"github.com/joshuapare/samkit/pkg/types"
)

// DefaultImageName is the container looked for in the work directory when
// no image is configured.
const DefaultImageName = "upload.E01"

// Options configures a Workspace.
type Options struct {
	Config *config.Config
	// Image overrides Config.Evidence.Image.
	Image string
	// Fs is the native filesystem. Defaults to the OS filesystem.
	Fs     afero.Fs
	Logger *slog.Logger
	// Probes replaces the filesystem probes; the default mounts NTFS.
	Probes []evidence.Probe
}

// Workspace is safe for concurrent use. Extraction and lookups on the same
// partition are serialized against each other; concurrent extractions of
// the same hive share one copy.
type Workspace struct {
	cfg      *config.Config
	fs       afero.Fs
	image    string
	resolver *evidence.Resolver
	log      *slog.Logger

	flight singleflight.Group
	mu     sync.Mutex
	locks  map[int]*sync.RWMutex
}

// New returns a workspace for opts.
func New(opts Options) (*Workspace, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("workspace config: %w", err)
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	log := logger.Or(opts.Logger)
	probes := opts.Probes
	if probes == nil {
		probes = []evidence.Probe{evidence.NTFSProbe(cfg.Evidence.NTFSCachePages)}
	}
	image := opts.Image
	if image == "" {
		image = cfg.Evidence.Image
	}
	if image == "" {
		image = filepath.Join(cfg.Evidence.Workdir, DefaultImageName)
	}
	return &Workspace{
		cfg:      cfg,
		fs:       fs,
		image:    image,
		resolver: evidence.NewResolver(evidence.WithFs(fs), evidence.WithLogger(log), evidence.WithProbes(probes...)),
		log:      log,
		locks:    map[int]*sync.RWMutex{},
	}, nil
}

// Image returns the evidence container path.
func (w *Workspace) Image() string { return w.image }

// Config returns the workspace configuration.
func (w *Workspace) Config() *config.Config { return w.cfg }

// Resolver returns the resolver over the native filesystem.
func (w *Workspace) Resolver() *evidence.Resolver { return w.resolver }

func (w *Workspace) lock(partition int) *sync.RWMutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.locks[partition]
	if !ok {
		l = &sync.RWMutex{}
		w.locks[partition] = l
	}
	return l
}

// PartitionDir is where partition's extracted hives are kept.
func (w *Workspace) PartitionDir(partition int) string {
	return filepath.Join(w.cfg.Evidence.Workdir, "partitions", strconv.Itoa(partition))
}

// LocalHivePath is the extracted copy of hive name from partition.
func (w *Workspace) LocalHivePath(partition int, name string) string {
	return filepath.Join(w.PartitionDir(partition), "extracted_"+name)
}

// VolumeInfo reports the container's size.
func (w *Workspace) VolumeInfo(ctx context.Context) (evidence.VolumeInfo, error) {
	return w.resolver.VolumeInfo(ctx, w.image)
}

// Partitions scans the configured window for Windows partitions.
func (w *Workspace) Partitions(ctx context.Context) (evidence.ScanReport, error) {
	return evidence.NewScanner(w.resolver, evidence.ScanOptions{
		First:   w.cfg.Evidence.ScanFirst,
		Last:    w.cfg.Evidence.ScanLast,
		Markers: w.cfg.Evidence.Markers,
	}).Scan(ctx, w.image)
}

// List lists a directory of partition.
func (w *Workspace) List(ctx context.Context, partition int, p string) ([]evidence.DirEntry, error) {
	return w.resolver.List(ctx, evidence.At(w.image, partition, p))
}

// ReadFile reads a file of partition.
func (w *Workspace) ReadFile(ctx context.Context, partition int, p string) ([]byte, error) {
	return w.resolver.ReadFile(ctx, evidence.At(w.image, partition, p))
}

func (w *Workspace) hivePath(name string) (string, error) {
	p, ok := w.cfg.Evidence.Hives[name]
	if !ok {
		return "", &types.Error{Kind: types.ErrKindAddress, Msg: fmt.Sprintf("no path configured for hive %q", name)}
	}
	return p, nil
}
