package di

import (
	"reflect"
	"sort"
	"sync"
)

// entry is a registered definition.
// It is never modified once registered, except for productType
// that is discovered the first time it is needed.
type entry struct {
	def      Definition
	seq      int
	producer bool

	// productType and typed are guarded by the registry mutex.
	productType reflect.Type
	typed       bool
}

// registry contains the definitions of a container.
// Definitions that do not match the profiles are kept apart
// and are invisible to lookups.
type registry struct {
	m               sync.RWMutex
	entries         map[string]*entry
	inactive        map[string]*entry
	seq             int
	profiles        ProfileSet
	allowOverriding bool
}

func newRegistry(profiles ProfileSet, allowOverriding bool) *registry {
	return &registry{
		entries:         map[string]*entry{},
		inactive:        map[string]*entry{},
		profiles:        profiles,
		allowOverriding: allowOverriding,
	}
}

// register adds a definition. inUse reports if a name has already been used
// to build an object, in which case the definition can not be replaced.
// It returns the new entry and whether it replaced an existing one.
func (r *registry) register(def Definition, inUse func(name string) bool) (e *entry, replaced bool, err error) {
	def, err = def.normalize()
	if err != nil {
		return nil, false, err
	}

	eligible, err := r.profiles.Accepts(def.Profiles...)
	if err != nil {
		return nil, false, err
	}

	r.m.Lock()
	defer r.m.Unlock()

	if fm, ok := def.Strategy.(FactoryMethod); ok && def.Type == nil {
		def.Type = fm.methodType(r.typeOfName(fm.Factory))
	}

	r.seq++
	e = &entry{
		def:      def,
		seq:      r.seq,
		producer: isProducerType(def.Type),
	}

	if !eligible {
		r.inactive[def.Name] = e
		return e, false, nil
	}

	_, replaced = r.entries[def.Name]

	if replaced && !r.allowOverriding {
		return nil, false, &DuplicateDefinitionError{Name: def.Name}
	}

	if replaced && inUse != nil && inUse(def.Name) {
		return nil, false, ErrDefinitionInUse
	}

	r.entries[def.Name] = e
	delete(r.inactive, def.Name)

	return e, replaced, nil
}

// typeOfName returns the type of the object retrieved with the given name.
// It must be called with the mutex held.
func (r *registry) typeOfName(name string) reflect.Type {
	bare, producer := splitProducerName(name)

	e, ok := r.entries[bare]
	if !ok {
		return nil
	}
	if producer || !e.producer {
		return e.def.Type
	}
	if e.def.ProductType != nil {
		return e.def.ProductType
	}
	return e.productType
}

// lookup returns the eligible entry with the given name.
func (r *registry) lookup(name string) (*entry, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, &NoSuchDefinitionError{Name: name}
	}
	return e, nil
}

// all returns the eligible entries in registration order.
func (r *registry) all() []*entry {
	r.m.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.m.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	return entries
}

// allInactive returns the definitions that do not match the profiles.
func (r *registry) allInactive() []*entry {
	r.m.RLock()
	entries := make([]*entry, 0, len(r.inactive))
	for _, e := range r.inactive {
		entries = append(entries, e)
	}
	r.m.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	return entries
}

// knownProductType returns the product type of a producer entry.
// The boolean is false if it is neither declared nor discovered yet.
func (r *registry) knownProductType(e *entry) (reflect.Type, bool) {
	if e.def.ProductType != nil {
		return e.def.ProductType, true
	}

	r.m.RLock()
	defer r.m.RUnlock()
	return e.productType, e.typed
}

func (r *registry) setProductType(e *entry, t reflect.Type) {
	r.m.Lock()
	e.productType = t
	e.typed = true
	r.m.Unlock()
}
