package majordome

import (
	"reflect"
	"sync"

	"github.com/majordome-go/majordome/memo"
)

// targetKey identifies one target module instance: its type and resolved
// configuration.
type targetKey struct {
	typ reflect.Type
	cfg any
}

type runtimeEntry struct {
	name   string
	module any
}

// moduleStore holds the singletons of one application.
//
// symbols and targets are written by the builder only, which owns the store
// exclusively until Build. After that symbols is read without locking.
// runtimes and tasks keep changing during the application's life and are
// guarded by mu.
type moduleStore struct {
	symbols map[*symbol]any
	targets *memo.Cache[targetKey, any]

	mu       sync.Mutex
	runtimes []runtimeEntry
	tasks    []*Task
}

func newModuleStore() *moduleStore {
	return &moduleStore{
		symbols: make(map[*symbol]any),
		targets: memo.New[targetKey, any](),
	}
}

func (s *moduleStore) lookup(sym *symbol) (any, bool) {
	v, ok := s.symbols[sym]
	return v, ok
}

// insert binds sym to v unless it is already bound, returning the bound value.
func (s *moduleStore) insert(sym *symbol, v any) any {
	if existing, ok := s.symbols[sym]; ok {
		return existing
	}
	s.symbols[sym] = v
	return v
}

func (s *moduleStore) findCached(key targetKey) (any, bool) {
	return s.targets.Get(key)
}

func (s *moduleStore) cache(key targetKey, v any) {
	s.targets.Put(key, v)
}

func (s *moduleStore) len() int {
	return len(s.symbols)
}

func (s *moduleStore) registerRuntime(name string, module any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runtimes = append(s.runtimes, runtimeEntry{name: name, module: module})
}

// runtimeList returns a snapshot of the runtime modules in registration order.
func (s *moduleStore) runtimeList() []runtimeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]runtimeEntry(nil), s.runtimes...)
}

// takeRuntimes empties the runtime list, so stop logic runs at most once.
func (s *moduleStore) takeRuntimes() []runtimeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.runtimes
	s.runtimes = nil
	return out
}

func (s *moduleStore) registerTask(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
}

func (s *moduleStore) takeTasks() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.tasks
	s.tasks = nil
	return out
}

func (s *moduleStore) taskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
