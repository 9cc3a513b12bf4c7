package majordome

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/majordome-go/majordome/config"
	"github.com/majordome-go/majordome/feeders"
)

// Builder resolves pointers into a module graph and produces an App.
//
// A Builder is not safe for concurrent use. Every failure is fatal: the
// first error is recorded and returned by every later Load, Add and Build.
type Builder struct {
	logger    Logger
	config    *config.Source
	store     *moduleStore
	chain     loadChain
	observers *observers
	metrics   *Metrics
	probe     bool

	instances   map[reflect.Type]int
	constructed int

	err   error
	built bool
}

// New creates a builder. Without WithConfig or WithFeeders the configuration
// is read from the OS environment.
func New(opts ...Option) *Builder {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = defaultLogger()
	}

	b := &Builder{
		logger:    o.logger,
		store:     newModuleStore(),
		observers: newObservers(o.logger, o.observers...),
		probe:     !o.noProbe,
		instances: make(map[reflect.Type]int),
	}

	switch {
	case o.source != nil:
		b.config = o.source
	default:
		fs := o.feeders
		if len(fs) == 0 {
			fs = []feeders.Feeder{feeders.Env()}
		}
		src, err := config.Load(fs...)
		if err != nil {
			b.err = fmt.Errorf("failed to load configuration: %w", err)
			src = config.FromMap(nil)
		}
		b.config = src
	}
	b.config.SetLogger(b.logger)

	if o.registerer != nil {
		m, err := NewMetrics(o.registerer)
		if err != nil && b.err == nil {
			b.err = fmt.Errorf("failed to register metrics: %w", err)
		}
		b.metrics = m
	}
	return b
}

// Logger returns the builder's logger.
func (b *Builder) Logger() Logger {
	return b.logger
}

// Config returns the configuration source modules read from.
func (b *Builder) Config() *config.Source {
	return b.config
}

// Getter returns the configuration accessor for a module called name,
// requested with opts.
func (b *Builder) Getter(opts InitOptions, name string) *config.Getter {
	return b.config.Getter(opts.Namespace, name)
}

// Add loads every pointer in order.
func (b *Builder) Add(ctx context.Context, pointers ...Loader) error {
	for _, p := range pointers {
		if err := p.loadAny(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// Exists reports whether p is already bound.
func (b *Builder) Exists(p Loader) bool {
	_, ok := b.store.lookup(p.id())
	return ok
}

// Build finalizes the graph and starts the application. The builder cannot
// be used afterwards.
func (b *Builder) Build(ctx context.Context) (*App, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.built {
		return nil, ErrBuilderFinalized
	}
	b.built = true

	b.logger.Info(fmt.Sprintf("Loaded %d modules (%d pointers)", b.constructed, b.store.len()))

	app := newApp(b)
	if b.probe {
		app.startExitProbe()
	}
	if err := app.start(ctx); err != nil {
		app.logger.Error("Start failed, stopping application", "error", err)
		_ = app.Stop(context.WithoutCancel(ctx))
		return nil, err
	}
	app.observers.emit(ctx, EventTypeAppStarted, map[string]any{
		"modules":  b.constructed,
		"pointers": b.store.len(),
	})
	return app, nil
}

// fail records err as the builder's sticky error.
func (b *Builder) fail(phase BuildPhase, sym *symbol, err error, extra ...string) error {
	if b.err != nil {
		return b.err
	}
	b.err = &BuildError{
		Phase:  phase,
		Symbol: sym.String(),
		Chain:  b.chain.trace(extra...),
		Err:    err,
	}
	return b.err
}

func load[T any](ctx context.Context, b *Builder, p *Pointer[T]) (T, error) {
	var zero T
	if b.err != nil {
		return zero, b.err
	}
	if b.built {
		return zero, ErrBuilderFinalized
	}

	if v, ok := b.store.lookup(p.sym); ok {
		b.logger.Debug("Pointer module already loaded", "chain", b.chain.String(), "pointer", p.sym.String())
		return cast[T](p.sym, v), nil
	}
	if p.resolve == nil {
		return zero, b.fail(PhaseResolve, p.sym, ErrNilDefinition)
	}
	if b.chain.pending(p.sym) {
		return zero, b.fail(PhaseResolve, p.sym, ErrCircularDependency, p.sym.String())
	}

	v, err := p.resolve(ctx, b, p.initOptions(b))
	if err != nil {
		return zero, err
	}
	b.store.insert(p.sym, v)
	b.metrics.pointerBound()
	return v, nil
}

func loadTarget[T any, C comparable](ctx context.Context, b *Builder, sym *symbol, def *Definition[T, C], opts InitOptions) (T, error) {
	var zero T
	if def.Construct == nil {
		return zero, b.fail(PhaseResolve, sym, ErrNilDefinition)
	}

	frame := b.chain.push(sym)
	defer b.chain.pop(frame)

	var cfg C
	if def.Configure != nil {
		var err error
		cfg, err = def.Configure(ctx, b, opts)
		if b.err != nil {
			return zero, b.err
		}
		if err != nil {
			return zero, b.fail(PhaseConfigure, sym, err)
		}
	}

	if rv := reflect.ValueOf(any(cfg)); rv.IsValid() && !rv.Comparable() {
		return zero, b.fail(PhaseConfigure, sym, fmt.Errorf("%w: %T", ErrUncomparableConfig, cfg))
	}

	key := targetKey{typ: reflect.TypeFor[T](), cfg: cfg}
	b.logger.Debug("Loading module", "chain", b.chain.String(), "config", fmt.Sprintf("%+v", cfg))

	if v, ok := b.store.findCached(key); ok {
		b.logger.Debug("Target module already loaded", "chain", b.chain.String())
		b.metrics.dedupHit()
		return cast[T](sym, v), nil
	}
	if b.chain.holds(key) {
		return zero, b.fail(PhaseResolve, sym, fmt.Errorf("%w: %+v", ErrDuplicateInstance, cfg))
	}
	frame.key, frame.keyed = key, true

	v, err := def.Construct(ctx, b, cfg)
	if b.err != nil {
		return zero, b.err
	}
	if err != nil {
		return zero, b.fail(PhaseConstruct, sym, err)
	}

	b.store.cache(key, v)
	b.constructed++
	b.metrics.moduleConstructed()
	if isRuntime(v) {
		b.store.registerRuntime(sym.String(), v)
	}

	b.instances[key.typ]++
	if n := b.instances[key.typ]; n > 1 {
		b.logger.Info(fmt.Sprintf("Found %d instances of target module", n), "module", def.Name)
	}
	b.logger.Info("Loaded target module", "chain", b.chain.String())
	b.observers.emit(ctx, EventTypeModuleConstructed, map[string]any{
		"module":  sym.String(),
		"version": def.version(),
	})
	return v, nil
}

// loadChain is the stack of pointers currently being loaded.
type loadChain struct {
	frames []*chainFrame
}

type chainFrame struct {
	sym   *symbol
	key   targetKey
	keyed bool
}

func (c *loadChain) push(sym *symbol) *chainFrame {
	f := &chainFrame{sym: sym}
	c.frames = append(c.frames, f)
	return f
}

func (c *loadChain) pop(f *chainFrame) {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if c.frames[i] == f {
			c.frames = c.frames[:i]
			return
		}
	}
}

func (c *loadChain) pending(sym *symbol) bool {
	for _, f := range c.frames {
		if f.sym == sym {
			return true
		}
	}
	return false
}

func (c *loadChain) holds(key targetKey) bool {
	for _, f := range c.frames {
		if f.keyed && f.key == key {
			return true
		}
	}
	return false
}

func (c *loadChain) trace(extra ...string) []string {
	out := make([]string, 0, len(c.frames)+len(extra))
	for _, f := range c.frames {
		out = append(out, f.sym.String())
	}
	return append(out, extra...)
}

func (c *loadChain) String() string {
	return strings.Join(c.trace(), " -> ")
}
