package world

import (
	"log/slog"

	"github.com/egeozcan/rtsim/event"
	"github.com/egeozcan/rtsim/pathfind"
	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/spatial"
)

// KernelConfig configures a Kernel: an exported struct of plain fields
// with zero-value defaults resolved in the constructor.
type KernelConfig struct {
	// Catalog is the read-only rule catalog. Defaults to
	// rules.DefaultCatalog() if nil.
	Catalog rules.Catalog
	// Log receives the kernel's warnings; the only one logged is an air-base
	// reconciliation that finds no free slot for a docked harrier.
	// Eliminations and victory are reported as Sink events, not logged.
	// Defaults to slog.Default().
	Log *slog.Logger
	// Sink optionally receives debug events. When it is nil, emit drops
	// each event; call sites still build the Event before calling emit.
	Sink event.Sink
}

// New resolves defaults and returns a ready-to-use Kernel. The grids it
// allocates are reused and rebuilt every tick rather than reallocated.
func (conf KernelConfig) New() *Kernel {
	if conf.Catalog == nil {
		conf.Catalog = rules.DefaultCatalog()
	}
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	return &Kernel{
		conf:  conf,
		grid:  spatial.NewGrid(),
		paths: nil, // allocated lazily once map dimensions are known
	}
}

// Kernel owns the scratch spatial/pathfinding structures and drives Tick.
// It holds no authoritative game state itself; that lives entirely in the
// *State passed to and returned from Tick.
// pendingDamage/explosionQueue are tick-scoped scratch queues,
// cleared at the start of every Tick, never read across ticks.
type Kernel struct {
	conf  KernelConfig
	grid  *spatial.Grid
	paths *pathfind.Grid

	pendingDamage  []damageEvent
	explosionQueue []explosionEvent
}

func (k *Kernel) queueDamage(ev damageEvent) {
	k.pendingDamage = append(k.pendingDamage, ev)
}

func (k *Kernel) queueExplosion(ev explosionEvent) {
	k.explosionQueue = append(k.explosionQueue, ev)
}

func (k *Kernel) log() *slog.Logger { return k.conf.Log }

func (k *Kernel) emit(e event.Event) {
	if k.conf.Sink != nil {
		k.conf.Sink.Emit(e)
	}
}

func (k *Kernel) pathGrid(cfg Config) *pathfind.Grid {
	if k.paths == nil {
		k.paths = pathfind.NewGrid(cfg.MapWidth, cfg.MapHeight)
	}
	return k.paths
}
