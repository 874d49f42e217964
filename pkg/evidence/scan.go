package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/joshuapare/samkit/internal/logger"
	"github.com/joshuapare/samkit/pkg/types"
)

// ScanOptions bounds a partition scan.
type ScanOptions struct {
	First, Last int
	// Markers are root entry names that identify a Windows partition.
	Markers []string
}

// DefaultScanOptions scans /p1 through /p9 for "Documents and Settings".
func DefaultScanOptions() ScanOptions {
	return ScanOptions{First: 1, Last: 9, Markers: []string{"Documents and Settings"}}
}

// Match is a partition whose root holds a marker.
type Match struct {
	PartitionID int      `json:"partition_id"`
	Listing     []string `json:"files_and_directories"`
}

// SlotFailure is a partition that exists but could not be mounted or
// listed.
type SlotFailure struct {
	PartitionID int    `json:"partition_id"`
	Error       string `json:"error"`
}

// ScanReport is the result of Scan.
type ScanReport struct {
	Matches    []Match       `json:"matches"`
	Unreadable []SlotFailure `json:"unreadable,omitempty"`
}

// Scanner finds Windows partitions by probing each index in a window.
type Scanner struct {
	r    *Resolver
	opts ScanOptions
	log  *slog.Logger
}

// NewScanner returns a scanner over r.
func NewScanner(r *Resolver, opts ScanOptions) *Scanner {
	return &Scanner{r: r, opts: opts, log: logger.Or(r.log)}
}

// Scan probes every index in the window and reports those whose root
// listing contains a marker, in ascending order. Missing and unmountable
// slots are skipped; only a container that cannot be opened or read fails
// the scan.
func (s *Scanner) Scan(ctx context.Context, container string) (ScanReport, error) {
	if s.opts.First < 1 || s.opts.Last < s.opts.First {
		return ScanReport{}, &types.Error{Kind: types.ErrKindAddress, Msg: fmt.Sprintf("bad scan window %d..%d", s.opts.First, s.opts.Last)}
	}
	im, err := s.r.OpenContainer(ctx, container)
	if err != nil {
		return ScanReport{}, err
	}
	defer im.Close()

	report := ScanReport{Matches: []Match{}}
	for idx := s.opts.First; idx <= s.opts.Last; idx++ {
		if err := ctx.Err(); err != nil {
			return ScanReport{}, err
		}
		names, err := s.rootNames(ctx, im, idx)
		if err != nil {
			switch types.KindOf(err) {
			case types.ErrKindAddress:
				s.log.Debug("partition absent", "container", container, "partition", idx, "error", err)
			case types.ErrKindFormat:
				s.log.Debug("partition unreadable", "container", container, "partition", idx, "error", err)
				if s.exists(im, idx) {
					report.Unreadable = append(report.Unreadable, SlotFailure{PartitionID: idx, Error: err.Error()})
				}
			default:
				return ScanReport{}, err
			}
			continue
		}
		if s.marked(names) {
			s.log.Info("windows partition found", "container", container, "partition", idx)
			report.Matches = append(report.Matches, Match{PartitionID: idx, Listing: names})
		}
	}
	return report, nil
}

func (s *Scanner) rootNames(ctx context.Context, im *Image, idx int) ([]string, error) {
	sess, err := im.Session(ctx, idx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	return sess.Names("/")
}

// exists reports whether idx is in the container's partition table. A
// container with no decodable table has no slots.
func (s *Scanner) exists(im *Image, idx int) bool {
	t, err := im.Partitions()
	if err != nil {
		return false
	}
	_, err = t.Get(idx)
	return err == nil
}

func (s *Scanner) marked(names []string) bool {
	for _, m := range s.opts.Markers {
		if slices.Contains(names, m) {
			return true
		}
	}
	return false
}
