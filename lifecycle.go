package di

import "io"

// ContainerAware objects receive the Container that built them,
// before their Init function is called.
// The Container can be used later to retrieve other objects.
type ContainerAware interface {
	SetContainer(ctn Container)
}

// Initializer objects are initialized once their dependencies are injected.
type Initializer interface {
	Init() error
}

// Closer objects are closed by DestroySingletons
// if their definition does not have a Close function.
type Closer = io.Closer

// EventKind is the kind of an Event.
type EventKind int

const (
	// EventConstructed is sent when an object has been created
	// and its dependencies have been injected.
	EventConstructed EventKind = iota
	// EventInitialized is sent after the object initialization.
	EventInitialized
)

func (k EventKind) String() string {
	if k == EventInitialized {
		return "initialized"
	}
	return "constructed"
}

// Event is sent to the hooks of a container during the construction of an object.
type Event struct {
	Kind   EventKind
	Name   string
	Scope  Scope
	Object interface{}
}

// Hook is a function called for each Event.
// An error returned by a hook fails the construction of the object.
type Hook func(evt Event) error

// postConstruct runs the steps following the creation of an object:
// injection, container back-reference, hooks and initialization.
func postConstruct(ctn Container, def Definition, obj interface{}) error {
	if err := inject(ctn, def, obj); err != nil {
		return err
	}

	if aware, ok := obj.(ContainerAware); ok {
		aware.SetContainer(ctn.unbound())
	}

	if err := ctn.core.fire(Event{Kind: EventConstructed, Name: def.Name, Scope: def.Scope, Object: obj}); err != nil {
		return err
	}

	switch {
	case def.Init != nil:
		if err := def.Init(obj); err != nil {
			return err
		}
	default:
		if initializer, ok := obj.(Initializer); ok {
			if err := initializer.Init(); err != nil {
				return err
			}
		}
	}

	return ctn.core.fire(Event{Kind: EventInitialized, Name: def.Name, Scope: def.Scope, Object: obj})
}
