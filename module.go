// Package majordome is an in-process application runtime. It resolves a
// graph of long-lived modules (database clients, caches, servers), builds
// each distinct module instance exactly once, starts their background work in
// dependency order and drives a two-phase graceful shutdown.
//
// Modules are requested through pointer symbols: package-level values that
// name the role a module is requested under. Several pointers may resolve to
// the same target type; pointers whose resolved configuration is equal share
// a single instance.
//
// Basic usage:
//
//	var PrimaryCache = majordome.Declare("PrimaryCache", cache.Module, majordome.WithNamespace("primary"))
//
//	b := majordome.New(majordome.WithLogger(logger))
//	if err := b.Add(ctx, PrimaryCache, database.Default); err != nil {
//		log.Fatal(err)
//	}
//	app, err := b.Build(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for !app.IsExiting() {
//		app.SleepUntil(ctx, time.Minute, false)
//	}
//	_ = app.Stop(ctx)
package majordome

import "context"

// Definition describes how to build a target module of type T. C is the
// resolved configuration of one instance: two requests producing equal C
// values share the same instance.
//
// Both functions may request other modules from the builder; those requests
// are resolved depth-first before the function returns.
type Definition[T any, C comparable] struct {
	// Name is the module name, also used as the configuration key segment.
	Name string

	// Version is reported in load chain traces. Defaults to "unknown".
	Version string

	// Configure derives the instance configuration from the caller's options
	// and the configuration source. A nil Configure yields the zero C, which
	// makes the module a plain singleton.
	Configure func(ctx context.Context, b *Builder, opts InitOptions) (C, error)

	// Construct builds an instance from its resolved configuration.
	Construct func(ctx context.Context, b *Builder, cfg C) (T, error)
}

func (d *Definition[T, C]) version() string {
	if d.Version == "" {
		return "unknown"
	}
	return d.Version
}

// InitOptions carries the caller's hints for one module request. They are
// only used to derive the module configuration and are not retained.
type InitOptions struct {
	// Namespace prefixes the module's configuration keys.
	Namespace string

	// Config is an optional explicit override, interpreted by the module.
	Config any
}

// OptionConfig returns the explicit override in opts if it has type O.
func OptionConfig[O any](opts InitOptions) (O, bool) {
	o, ok := opts.Config.(O)
	return o, ok
}

// Startable is implemented by module instances with background work.
// Start is called once after the whole graph is built, in construction order,
// and returns the tasks it spawned (see Go). ctx is the application context;
// it is cancelled when the application starts closing.
type Startable interface {
	Start(ctx context.Context, app *App) ([]*Task, error)
}

// Stoppable is implemented by module instances that release resources on
// shutdown. Stop hooks run concurrently once the closing signal has fired.
// Errors and panics are logged and never abort the shutdown.
type Stoppable interface {
	Stop(ctx context.Context, app *App) error
}

func isRuntime(v any) bool {
	switch v.(type) {
	case Startable, Stoppable:
		return true
	}
	return false
}
