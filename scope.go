package di

import "sync"

// Scope defines how many objects a Definition produces.
type Scope string

const (
	// Singleton objects are built once and shared.
	Singleton Scope = "singleton"
	// Prototype objects are built each time they are requested.
	Prototype Scope = "prototype"
)

// SingletonState is the state of a singleton in the container.
type SingletonState int

const (
	// Uncreated means the singleton has not been built yet,
	// or that its last construction failed.
	Uncreated SingletonState = iota
	// Creating means the singleton is being built.
	Creating
	// Created means the singleton is in the cache.
	Created
)

func (s SingletonState) String() string {
	switch s {
	case Creating:
		return "creating"
	case Created:
		return "created"
	}
	return "uncreated"
}

// building is the state of a singleton while it is being built.
// done is closed when the construction is over.
type building struct {
	done  chan struct{}
	owner *buildChain
}

// singletons is the instance cache of a container.
// The keys are definition names for regular objects and products,
// and ProducerPrefix followed by the definition name for producers.
type singletons struct {
	m        sync.Mutex
	objects  map[string]interface{}
	building map[string]*building
	order    []string
	external map[string]struct{}
}

func newSingletons() *singletons {
	return &singletons{
		objects:  map[string]interface{}{},
		building: map[string]*building{},
		order:    []string{},
		external: map[string]struct{}{},
	}
}

// get returns the object stored for key, or builds it with build.
// At most one request executes build for a given key at a time.
// Requests arriving while it is being built wait for the result.
// If the construction fails, nothing is cached and a waiting request
// tries to build the object on its own.
func (s *singletons) get(key string, ch *buildChain, build func() (interface{}, error)) (interface{}, error) {
	s.m.Lock()

	for {
		if obj, ok := s.objects[key]; ok {
			s.m.Unlock()
			return obj, nil
		}

		b, ok := s.building[key]
		if !ok {
			break
		}

		if path := s.waitCycle(key, b, ch); path != nil {
			s.m.Unlock()
			return nil, &CircularDependencyError{Path: path}
		}

		root := ch.root()
		root.waiting = key
		s.m.Unlock()

		<-b.done

		s.m.Lock()
		root.waiting = ""
	}

	b := &building{done: make(chan struct{}), owner: ch.root()}
	s.building[key] = b
	s.m.Unlock()

	var (
		obj  interface{}
		err  error
		done bool
	)

	defer func() {
		s.m.Lock()
		delete(s.building, key)
		if done {
			s.objects[key] = obj
			s.order = append(s.order, key)
		}
		s.m.Unlock()
		close(b.done)
	}()

	obj, err = build()
	done = err == nil

	return obj, err
}

// waitCycle returns a cycle if waiting for b would never end
// because b depends, through other waiting requests, on the request of ch.
func (s *singletons) waitCycle(key string, b *building, ch *buildChain) []string {
	root := ch.root()
	path := append(ch.names(), key)

	for owner := b.owner; owner != nil; {
		if owner == root {
			return path
		}
		if owner.waiting == "" {
			return nil
		}
		path = append(path, owner.waiting)
		next, ok := s.building[owner.waiting]
		if !ok {
			return nil
		}
		owner = next.owner
	}

	return nil
}

// set stores an object built outside of the container.
func (s *singletons) set(key string, obj interface{}) {
	s.m.Lock()
	defer s.m.Unlock()

	if _, ok := s.objects[key]; !ok {
		s.order = append(s.order, key)
	}
	s.objects[key] = obj
	s.external[key] = struct{}{}
}

func (s *singletons) count() int {
	s.m.Lock()
	defer s.m.Unlock()
	return len(s.objects)
}

func (s *singletons) state(key string) SingletonState {
	s.m.Lock()
	defer s.m.Unlock()

	if _, ok := s.objects[key]; ok {
		return Created
	}
	if _, ok := s.building[key]; ok {
		return Creating
	}
	return Uncreated
}

// used returns true if key is cached or being built.
func (s *singletons) used(key string) bool {
	return s.state(key) != Uncreated
}

// cachedObject is an entry of the cache.
type cachedObject struct {
	key string
	obj interface{}
}

// drain removes the objects built by the container from the cache
// and returns them in reverse creation order.
// The objects added with set are kept.
func (s *singletons) drain() []cachedObject {
	s.m.Lock()
	defer s.m.Unlock()

	objs := make([]cachedObject, 0, len(s.order))
	kept := []string{}

	for i := len(s.order) - 1; i >= 0; i-- {
		key := s.order[i]
		if _, ok := s.external[key]; ok {
			kept = append([]string{key}, kept...)
			continue
		}
		objs = append(objs, cachedObject{key: key, obj: s.objects[key]})
		delete(s.objects, key)
	}

	s.order = kept

	return objs
}

// snapshot returns the keys of the cached objects in creation order.
func (s *singletons) snapshot() []string {
	s.m.Lock()
	defer s.m.Unlock()

	keys := make([]string, len(s.order))
	copy(keys, s.order)
	return keys
}
