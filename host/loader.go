package host

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/stable-abi/check"
	"github.com/wippyai/stable-abi/errors"
	"github.com/wippyai/stable-abi/root"
)

// DefaultRootSymbol is the exported symbol a library's root constructor is
// resolved under when the loader is not configured otherwise.
const DefaultRootSymbol = "StableABIRoot"

// State tracks a library through the load gates. Rejected and CheckedReady
// are terminal.
type State uint8

const (
	StateUnloaded State = iota
	StateLoadedUnchecked
	StateCheckedReady
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoadedUnchecked:
		return "loaded-unchecked"
	case StateCheckedReady:
		return "checked-ready"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Options configures a Loader.
type Options struct {
	// Symbol is the exported constructor symbol. Defaults to
	// DefaultRootSymbol.
	Symbol string
}

// Loader takes libraries through the load state machine against host-side
// expectations. It is safe for concurrent use; each Load runs its own
// checker.
type Loader struct {
	backend Backend
	symbol  string
}

// NewLoader creates a loader over the given backend.
func NewLoader(backend Backend, opts Options) *Loader {
	symbol := opts.Symbol
	if symbol == "" {
		symbol = DefaultRootSymbol
	}
	return &Loader{backend: backend, symbol: symbol}
}

// Loaded is the host's handle to one library. Its root is reachable only in
// the CheckedReady state.
type Loaded struct {
	path    string
	root    *root.Root
	closeFn func() error
	state   State
	mu      sync.Mutex
}

// Path returns the library path the handle was loaded from.
func (ld *Loaded) Path() string {
	return ld.path
}

// State returns the handle's current state.
func (ld *Loaded) State() State {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	return ld.state
}

// Root returns the checked export table. It errors in every state except
// CheckedReady; nothing from an unchecked or rejected library is callable.
func (ld *Loaded) Root() (*root.Root, error) {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if ld.state != StateCheckedReady {
		return nil, errors.Rejected(ld.path, fmt.Errorf("library is %s", ld.state))
	}
	return ld.root, nil
}

// Close releases the backend handle. The handle's state is unchanged: a
// closed ready library stays nominally ready but its exports must no longer
// be invoked.
func (ld *Loaded) Close() error {
	ld.mu.Lock()
	closeFn := ld.closeFn
	ld.closeFn = nil
	ld.mu.Unlock()

	if closeFn == nil {
		return nil
	}
	return closeFn()
}

// Load resolves, constructs, and checks one library against the host's
// compiled-in expectation. The expectation carries the host's version triple
// and the layouts of every export it intends to call.
//
// Any gate failure is terminal: the handle lands in Rejected with the
// backend's resources released, and the failure is returned. Loading is a
// one-time synchronous sequence; the library-load step itself blocks without
// a timeout.
func (l *Loader) Load(ctx context.Context, path string, expect *root.Root) (*Loaded, error) {
	if err := expect.Validate(); err != nil {
		return nil, err
	}

	ld := &Loaded{path: path, state: StateUnloaded}
	log := Logger().With(zap.String("path", path), zap.String("module", expect.Name))

	sym, err := l.backend.Lookup(ctx, path, l.symbol)
	if err != nil {
		ld.state = StateRejected
		log.Warn("library lookup failed", zap.Error(err))
		return ld, err
	}
	ld.closeFn = sym.Close

	actual, err := sym.Constructor()
	if err == nil {
		err = actual.Validate()
	}
	if err != nil {
		return ld, l.reject(ld, log, errors.Wrap(errors.PhaseLoad, errors.KindLoadFailure, err, "root constructor failed"))
	}

	ld.state = StateLoadedUnchecked
	log.Debug("library loaded",
		zap.String("declared_module", actual.Name),
		zap.String("declared_version", actual.Version.String()))

	if err := l.gate(expect, actual); err != nil {
		return ld, l.reject(ld, log, err)
	}

	ld.root = actual
	ld.state = StateCheckedReady
	log.Info("library checked and ready",
		zap.String("version", actual.Version.String()),
		zap.Int("exports", len(actual.Exports)))
	return ld, nil
}

// gate runs the version and layout checks, in that order. The version triple
// is compared before any layout is inspected.
func (l *Loader) gate(expect, actual *root.Root) error {
	if actual.Name != expect.Name {
		return errors.New(errors.PhaseVersion, errors.KindRejected).
			Detail("library declares module %q, host expects %q", actual.Name, expect.Name).
			Build()
	}
	if !root.Compatible(expect.Version, actual.Version) {
		return errors.VersionIncompatible(expect.Name, expect.Version.String(), actual.Version.String())
	}
	if err := root.CheckAdditive(expect, actual); err != nil {
		return err
	}

	checker := check.NewChecker()
	for i := range expect.Exports {
		exp, act := &expect.Exports[i], &actual.Exports[i]
		if len(act.Params) != len(exp.Params) {
			return errors.New(errors.PhaseCheck, errors.KindLayoutMismatch).
				Path(exp.Name).
				Detail("export declares %d parameters, host expects %d", len(act.Params), len(exp.Params)).
				Build()
		}
		for j := range exp.Params {
			if err := checker.Check(exp.Params[j], act.Params[j]); err != nil {
				e := errors.LayoutMismatch(exp.Params[j].Name, err)
				e.Path = []string{exp.Name, fmt.Sprintf("param[%d]", j)}
				return e
			}
		}
		if (exp.Result == nil) != (act.Result == nil) {
			return errors.New(errors.PhaseCheck, errors.KindLayoutMismatch).
				Path(exp.Name).
				Detail("result presence differs").
				Build()
		}
		if exp.Result != nil {
			if err := checker.Check(exp.Result, act.Result); err != nil {
				e := errors.LayoutMismatch(exp.Result.Name, err)
				e.Path = []string{exp.Name, "result"}
				return e
			}
		}
	}
	return nil
}

func (l *Loader) reject(ld *Loaded, log *zap.Logger, cause error) error {
	ld.state = StateRejected
	ld.root = nil
	if err := ld.Close(); err != nil {
		log.Warn("release after rejection failed", zap.Error(err))
	}
	log.Warn("library rejected", zap.Error(cause))
	return errors.Rejected(ld.path, cause)
}

// LoadSpec names one library for LoadAll.
type LoadSpec struct {
	Path   string
	Expect *root.Root
}

// LoadAll loads and checks every library in parallel, one goroutine per
// library, each with an independent checker. It fails on the first
// rejection, after every in-flight load has finished; handles for the
// successfully checked libraries are returned either way, in spec order.
func (l *Loader) LoadAll(ctx context.Context, specs []LoadSpec) ([]*Loaded, error) {
	handles := make([]*Loaded, len(specs))

	g, ctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			ld, err := l.Load(ctx, spec.Path, spec.Expect)
			handles[i] = ld
			return err
		})
	}
	err := g.Wait()
	return handles, err
}
