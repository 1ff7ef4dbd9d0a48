package ecss

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecss-go/ecss/pkg/ecss/internal/memory"
)

// ComponentToken stably identifies a component type across registries in
// the same process, independent of the process-local small integer a
// registry assigns it on first use. It exists so a future persistence or
// cross-registry layer could identify "this is the same component kind"
// without depending on registration order; the core itself only needs the
// small integer.
type ComponentToken = uuid.UUID

// NewComponentToken returns a fresh random component token.
func NewComponentToken() ComponentToken { return uuid.New() }

// Destroyer lets a component type run cleanup when its sector slot is
// destroyed or overwritten. Components that don't implement it are
// treated as trivial, matching spec's sector-layout triviality flag.
type Destroyer = memory.Destroyer

const (
	// defaultChunkCapacity is the number of sectors per chunk in a newly
	// constructed sectors array's columns when Options.ChunkCapacity is 0.
	defaultChunkCapacity = 1024

	// defaultDefragmentThreshold is the fraction of dead sectors among all
	// dense entries that triggers an opportunistic defragment during
	// processPendingErases / registry update.
	defaultDefragmentThreshold = 0.25
)

// Options tunes a SectorsArray or Registry's allocation and maintenance
// behavior. The zero value selects sensible defaults.
type Options struct {
	// ChunkCapacity is the number of sectors per backing chunk. Rounded
	// up to a power of two.
	ChunkCapacity int
	// DefragmentThreshold is the ratio of dead entries to all dense
	// entries (alive and dead), in [0,1], above which a
	// maintenance pass opportunistically defragments. Zero selects the
	// default.
	DefragmentThreshold float64
	// ThreadSafe selects whether the array/registry takes locks and
	// honors pin discipline at all. Single-threaded callers that can
	// guarantee exclusive access may set this false to skip all
	// synchronization overhead.
	ThreadSafe bool
	// Logger receives structural-mutation diagnostics (defragment runs and,
	// for a registry, array registration). A nil Logger is replaced with a
	// no-op logger.
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

func (o Options) chunkCapacity() int {
	if o.ChunkCapacity > 0 {
		return o.ChunkCapacity
	}
	return defaultChunkCapacity
}

func (o Options) defragmentThreshold() float64 {
	if o.DefragmentThreshold > 0 {
		return o.DefragmentThreshold
	}
	return defaultDefragmentThreshold
}
