package majordome

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majordome-go/majordome/config"
)

func TestPointer_String(t *testing.T) {
	var n int
	def := serviceDef("cache", &n)

	assert.Equal(t, "cache=1.0.0", Declare("cache", def).String())
	assert.Equal(t, "Primary/cache=1.0.0", Declare("Primary", def).String())
	assert.Equal(t, "Orphan=unknown", Declare[*service, string]("Orphan", nil).String())
}

func TestLoad_SharesInstanceForEqualConfig(t *testing.T) {
	ctx := context.Background()
	var constructs int
	def := serviceDef("cache", &constructs)
	a := Declare("A", def)
	b := Declare("B", def)

	builder := newTestBuilder(t, nil)
	sa, err := a.Load(ctx, builder)
	require.NoError(t, err)
	sb, err := b.Load(ctx, builder)
	require.NoError(t, err)

	assert.Same(t, sa, sb)
	assert.Equal(t, 1, constructs)
	assert.True(t, builder.Exists(a))
	assert.True(t, builder.Exists(b))
}

func TestLoad_DistinctConfigBuildsDistinctInstances(t *testing.T) {
	ctx := context.Background()
	var constructs int
	def := serviceDef("cache", &constructs)
	eu := Declare("EU", def, WithNamespace("eu"))
	us := Declare("US", def, WithNamespace("us"))
	plain := Declare("Plain", def)

	builder := newTestBuilder(t, map[string]string{
		"EU_CACHE_LABEL": "eu",
		"US_CACHE_LABEL": "us",
	})
	require.NoError(t, builder.Add(ctx, eu, us, plain))

	seu, _ := eu.Load(ctx, builder)
	sus, _ := us.Load(ctx, builder)
	splain, _ := plain.Load(ctx, builder)

	assert.Equal(t, "eu", seu.label)
	assert.Equal(t, "us", sus.label)
	assert.Equal(t, "default", splain.label)
	assert.NotSame(t, seu, sus)
	assert.Equal(t, 3, constructs)
}

func TestLoad_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	var constructs int
	p := Declare("cache", serviceDef("cache", &constructs))

	builder := newTestBuilder(t, nil)
	first, err := p.Load(ctx, builder)
	require.NoError(t, err)
	second, err := p.Load(ctx, builder)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, constructs)
}

func TestLoad_OptionsFunc(t *testing.T) {
	ctx := context.Background()
	var constructs int
	p := Declare("cache", serviceDef("cache", &constructs), WithOptionsFunc(func(b *Builder) InitOptions {
		label, _ := b.Config().Lookup("TENANT")
		return InitOptions{Config: "tenant-" + label}
	}))

	builder := newTestBuilder(t, map[string]string{"TENANT": "acme"})
	s, err := p.Load(ctx, builder)
	require.NoError(t, err)
	assert.Equal(t, "tenant-acme", s.label)
}

// graph builds two modules whose Configure or Construct steps load each
// other.
func cyclicPointers(inConfigure bool) (*Pointer[*service], *Pointer[*service]) {
	var a, b *Pointer[*service]
	def := func(name string, next func() *Pointer[*service]) *Definition[*service, string] {
		d := &Definition[*service, string]{Name: name, Version: "1.0"}
		hop := func(ctx context.Context, builder *Builder) error {
			_, err := next().Load(ctx, builder)
			return err
		}
		d.Configure = func(ctx context.Context, builder *Builder, opts InitOptions) (string, error) {
			if inConfigure {
				return name, hop(ctx, builder)
			}
			return name, nil
		}
		d.Construct = func(ctx context.Context, builder *Builder, cfg string) (*service, error) {
			if !inConfigure {
				if err := hop(ctx, builder); err != nil {
					return nil, err
				}
			}
			return &service{name: cfg}, nil
		}
		return d
	}
	a = Declare("A", def("A", func() *Pointer[*service] { return b }))
	b = Declare("B", def("B", func() *Pointer[*service] { return a }))
	return a, b
}

func TestLoad_CircularDependency(t *testing.T) {
	for name, inConfigure := range map[string]bool{"configure": true, "construct": false} {
		t.Run(name, func(t *testing.T) {
			a, _ := cyclicPointers(inConfigure)
			builder := newTestBuilder(t, nil)

			_, err := a.Load(context.Background(), builder)
			require.ErrorIs(t, err, ErrCircularDependency)

			var be *BuildError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, []string{"A=1.0", "B=1.0", "A=1.0"}, be.Chain)
			assert.Contains(t, err.Error(), "A=1.0 -> B=1.0 -> A=1.0 |")
		})
	}
}

func TestLoad_DuplicateInstance(t *testing.T) {
	var outer, inner *Pointer[*service]
	def := &Definition[*service, string]{
		Name:    "db",
		Version: "2.0",
		Construct: func(ctx context.Context, b *Builder, cfg string) (*service, error) {
			// The second pointer resolves to the instance being built.
			if _, err := inner.Load(ctx, b); err != nil {
				return nil, err
			}
			return &service{}, nil
		},
	}
	outer = Declare("Primary", def)
	inner = Declare("Replica", def)

	_, err := outer.Load(context.Background(), newTestBuilder(t, nil))
	require.ErrorIs(t, err, ErrDuplicateInstance)
	assert.Contains(t, err.Error(), "Primary/db=2.0 -> Replica/db=2.0")
}

func TestLoad_ConfigureFailureIsSticky(t *testing.T) {
	ctx := context.Background()
	failing := Declare("DB", &Definition[*service, string]{
		Name:    "db",
		Version: "1.0",
		Configure: func(ctx context.Context, b *Builder, opts InitOptions) (string, error) {
			return config.Require[string](b.Getter(opts, "db"), "dsn")
		},
		Construct: func(ctx context.Context, b *Builder, dsn string) (*service, error) {
			return &service{label: dsn}, nil
		},
	})
	var constructs int
	healthy := Declare("cache", serviceDef("cache", &constructs))

	builder := newTestBuilder(t, nil)
	_, err := failing.Load(ctx, builder)
	require.ErrorIs(t, err, ErrConfigureFailed)
	assert.ErrorIs(t, err, config.ErrMissingValue)
	assert.Contains(t, err.Error(), "failed to load config for module DB/db=1.0")

	_, again := healthy.Load(ctx, builder)
	assert.Same(t, err, again)
	assert.Zero(t, constructs)

	_, buildErr := builder.Build(ctx)
	assert.Same(t, err, buildErr)
}

func TestLoad_ConstructFailureCarriesChain(t *testing.T) {
	ctx := context.Background()
	leaf := Declare("Leaf", &Definition[*service, string]{
		Name: "leaf",
		Construct: func(ctx context.Context, b *Builder, _ string) (*service, error) {
			return nil, errWorker
		},
	})
	root := Declare("root", &Definition[*service, struct{}]{
		Name:    "root",
		Version: "3",
		Construct: func(ctx context.Context, b *Builder, _ struct{}) (*service, error) {
			if _, err := leaf.Load(ctx, b); err != nil {
				return nil, err
			}
			return &service{}, nil
		},
	})

	_, err := root.Load(ctx, newTestBuilder(t, nil))
	require.ErrorIs(t, err, ErrConstructFailed)
	assert.ErrorIs(t, err, errWorker)

	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, PhaseConstruct, be.Phase)
	assert.Equal(t, "Leaf/leaf=unknown", be.Symbol)
	assert.Equal(t, []string{"root=3", "Leaf/leaf=unknown"}, be.Chain)
}

func TestLoad_UncomparableConfigFails(t *testing.T) {
	var constructs int
	p := Declare("Hosts", &Definition[*service, any]{
		Name: "hosts",
		Configure: func(ctx context.Context, b *Builder, opts InitOptions) (any, error) {
			return []string{"a", "b"}, nil
		},
		Construct: func(ctx context.Context, b *Builder, _ any) (*service, error) {
			constructs++
			return &service{}, nil
		},
	})

	var err error
	require.NotPanics(t, func() {
		_, err = p.Load(context.Background(), newTestBuilder(t, nil))
	})
	require.ErrorIs(t, err, ErrConfigureFailed)
	assert.ErrorIs(t, err, ErrUncomparableConfig)
	assert.Contains(t, err.Error(), "[]string")
	assert.Zero(t, constructs)
}

func TestLoad_NilDefinition(t *testing.T) {
	p := Declare[*service, string]("Orphan", nil)
	_, err := p.Load(context.Background(), newTestBuilder(t, nil))
	assert.ErrorIs(t, err, ErrNilDefinition)
}

func TestBuild_FinalizesBuilder(t *testing.T) {
	ctx := context.Background()
	var constructs int
	p := Declare("cache", serviceDef("cache", &constructs))

	builder := newTestBuilder(t, nil)
	require.NoError(t, builder.Add(ctx, p))
	app, err := builder.Build(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Stop(ctx) })

	_, err = builder.Build(ctx)
	assert.ErrorIs(t, err, ErrBuilderFinalized)
	_, err = Declare("other", serviceDef("other", &constructs)).Load(ctx, builder)
	assert.ErrorIs(t, err, ErrBuilderFinalized)
}

func TestPointerGet(t *testing.T) {
	ctx := context.Background()
	var constructs int
	def := serviceDef("cache", &constructs)
	loaded := Declare("Loaded", def)
	missing := Declare("Missing", def)

	builder := newTestBuilder(t, nil)
	want, err := loaded.Load(ctx, builder)
	require.NoError(t, err)
	app, err := builder.Build(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Stop(ctx) })

	got, err := loaded.Get(app)
	require.NoError(t, err)
	assert.Same(t, want, got)

	_, err = missing.Get(app)
	require.ErrorIs(t, err, ErrModuleNotFound)
	var coded *Error
	require.True(t, errors.As(err, &coded))
	assert.Equal(t, "errors.majordome.module_not_found", coded.Code)
	assert.Equal(t, 500, coded.Status)
	assert.Equal(t, []string{"Missing/cache=1.0.0"}, coded.Values)
}

func TestNew_FeederErrorSurfacesOnLoad(t *testing.T) {
	var constructs int
	builder := New(
		WithLogger(&logger{t: t}),
		WithFeeders(failingFeeder{}),
		WithoutSignalProbe(),
	)
	_, err := Declare("cache", serviceDef("cache", &constructs)).Load(context.Background(), builder)
	assert.ErrorIs(t, err, errWorker)
}

type failingFeeder struct{}

func (failingFeeder) Feed(map[string]string) error {
	return errWorker
}
