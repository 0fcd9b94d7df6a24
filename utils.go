package di

import (
	"reflect"
	"sync"
)

// buildChain is the list of the objects being built by one logical request.
// It replaces a call stack: each object pushes its name before its construction
// and pops it when the construction is over, even if it fails.
//
// A chain may have a parent when it was created by a Provider
// invoked while the parent chain was still building objects.
// All the chains sharing a root are considered as a single request.
type buildChain struct {
	m      sync.Mutex
	parent *buildChain
	stack  []string

	// waiting is the key of the singleton the request is waiting for.
	// It is only set on root chains and is guarded by the singletons mutex.
	waiting string
}

func newBuildChain(parent *buildChain) *buildChain {
	if parent != nil && !parent.active() {
		parent = nil
	}
	return &buildChain{parent: parent}
}

func (c *buildChain) root() *buildChain {
	r := c
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// active returns true if the chain, or one of its ancestors, is building an object.
func (c *buildChain) active() bool {
	for ch := c; ch != nil; ch = ch.parent {
		ch.m.Lock()
		n := len(ch.stack)
		ch.m.Unlock()
		if n > 0 {
			return true
		}
	}
	return false
}

func (c *buildChain) push(name string) {
	c.m.Lock()
	c.stack = append(c.stack, name)
	c.m.Unlock()
}

func (c *buildChain) pop() {
	c.m.Lock()
	c.stack = c.stack[:len(c.stack)-1]
	c.m.Unlock()
}

// names returns the names of the objects being built,
// from the first ancestor to this chain.
func (c *buildChain) names() []string {
	chains := []*buildChain{}
	for ch := c; ch != nil; ch = ch.parent {
		chains = append(chains, ch)
	}

	names := []string{}

	for i := len(chains) - 1; i >= 0; i-- {
		chains[i].m.Lock()
		names = append(names, chains[i].stack...)
		chains[i].m.Unlock()
	}

	return names
}

// cycle returns the cycle that building name would create,
// or nil if name is not being built by this request.
func (c *buildChain) cycle(name string) []string {
	names := c.names()

	for i, n := range names {
		if n == name {
			return append(names[i:len(names):len(names)], name)
		}
	}

	return nil
}

// fill copies src in dest. dest should be a pointer to src type.
func fill(name string, src, dest interface{}) error {
	d := reflect.ValueOf(dest)

	if d.Kind() != reflect.Ptr || d.IsNil() {
		return &TypeMismatchError{Name: name, Expected: reflect.TypeOf(dest), Actual: reflect.TypeOf(src)}
	}

	if src == nil {
		d.Elem().Set(reflect.Zero(d.Elem().Type()))
		return nil
	}

	s := reflect.ValueOf(src)

	if !s.Type().AssignableTo(d.Elem().Type()) {
		return &TypeMismatchError{Name: name, Expected: d.Elem().Type(), Actual: s.Type()}
	}

	d.Elem().Set(s)

	return nil
}

// assignableValue converts obj into a reflect.Value of type typ.
// A nil obj becomes the zero value of typ.
func assignableValue(obj interface{}, typ reflect.Type) (reflect.Value, bool) {
	if obj == nil {
		switch typ.Kind() {
		case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(typ), true
		}
		return reflect.Value{}, false
	}

	v := reflect.ValueOf(obj)

	if v.Type().AssignableTo(typ) {
		return v, true
	}

	return reflect.Value{}, false
}
