package majordome

import (
	"context"
	"fmt"
)

// symbol is the identity of a pointer. Stored modules are keyed by it.
type symbol struct {
	name    string
	target  string
	version string
}

// String renders the pointer as name=version, or name/target=version when
// the pointer is named differently from its target module.
func (s *symbol) String() string {
	if s.target == "" || s.name == s.target {
		return fmt.Sprintf("%s=%s", s.name, s.version)
	}
	return fmt.Sprintf("%s/%s=%s", s.name, s.target, s.version)
}

// Loader is a pointer of any target type, as accepted by Builder.Add.
type Loader interface {
	fmt.Stringer
	Name() string

	id() *symbol
	loadAny(ctx context.Context, b *Builder) error
}

// PointerOption customises how a pointer requests its module.
type PointerOption func(*pointerOptions)

type pointerOptions struct {
	namespace string
	config    any
	fn        func(b *Builder) InitOptions
}

// WithNamespace requests the module under a configuration namespace.
func WithNamespace(ns string) PointerOption {
	return func(o *pointerOptions) {
		o.namespace = ns
	}
}

// WithOverride passes an explicit override to the module's Configure step.
func WithOverride(v any) PointerOption {
	return func(o *pointerOptions) {
		o.config = v
	}
}

// WithOptionsFunc derives the init options from the builder at load time.
// It takes precedence over WithNamespace and WithConfig.
func WithOptionsFunc(fn func(b *Builder) InitOptions) PointerOption {
	return func(o *pointerOptions) {
		o.fn = fn
	}
}

// Pointer is a pointer symbol: the key a module of type T is requested and
// looked up with. Pointers are meant to be declared once as package-level
// variables; each declaration is a distinct key.
type Pointer[T any] struct {
	sym     *symbol
	opts    pointerOptions
	resolve func(ctx context.Context, b *Builder, opts InitOptions) (T, error)
}

// Declare creates a pointer named name resolving to modules built by def.
func Declare[T any, C comparable](name string, def *Definition[T, C], opts ...PointerOption) *Pointer[T] {
	p := &Pointer[T]{sym: &symbol{name: name, version: "unknown"}}
	for _, opt := range opts {
		opt(&p.opts)
	}
	if def != nil {
		p.sym.target = def.Name
		p.sym.version = def.version()
		p.resolve = func(ctx context.Context, b *Builder, opts InitOptions) (T, error) {
			return loadTarget(ctx, b, p.sym, def, opts)
		}
	}
	return p
}

// Name returns the pointer name.
func (p *Pointer[T]) Name() string {
	return p.sym.name
}

func (p *Pointer[T]) String() string {
	return p.sym.String()
}

func (p *Pointer[T]) id() *symbol {
	return p.sym
}

func (p *Pointer[T]) initOptions(b *Builder) InitOptions {
	if p.opts.fn != nil {
		return p.opts.fn(b)
	}
	return InitOptions{Namespace: p.opts.namespace, Config: p.opts.config}
}

// Load resolves the pointer, building its module and dependencies if needed.
// Loading an already resolved pointer returns the same instance.
func (p *Pointer[T]) Load(ctx context.Context, b *Builder) (T, error) {
	return load(ctx, b, p)
}

func (p *Pointer[T]) loadAny(ctx context.Context, b *Builder) error {
	_, err := p.Load(ctx, b)
	return err
}

// Get returns the module bound to the pointer in a built application.
func (p *Pointer[T]) Get(app *App) (T, error) {
	v, ok := app.store.lookup(p.sym)
	if !ok {
		var zero T
		return zero, errModuleNotFound(p.sym.String())
	}
	return cast[T](p.sym, v), nil
}

// cast restores the concrete type of a stored module. Values are only ever
// stored under a symbol by that symbol's own Pointer[T], so a mismatch means
// the store was corrupted and the process must not continue.
func cast[T any](sym *symbol, v any) T {
	t, ok := v.(T)
	if !ok {
		var want T
		panic(fmt.Sprintf("majordome: module stored for %s is %T, not %T", sym, v, want))
	}
	return t
}
