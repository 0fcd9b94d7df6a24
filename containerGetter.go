package di

import (
	"reflect"
)

// SafeGet retrieves an object from the Container by its name.
//
// If the definition builds a Producer, the product is returned.
// The producer itself is retrieved with ProducerPrefix followed by the name,
// and a NotAProducerError is returned if the object is not a Producer.
//
// The object is created if it does not exist yet.
// Singletons are cached, prototypes are built on each call.
func (ctn Container) SafeGet(name string) (interface{}, error) {
	return ctn.withChain().get(name)
}

// Get is similar to SafeGet but it does not return the error.
// Instead it panics.
func (ctn Container) Get(name string) interface{} {
	obj, err := ctn.SafeGet(name)
	if err != nil {
		panic(err)
	}

	return obj
}

// Fill is similar to SafeGet but it does not return the object.
// Instead it fills the provided object with the value returned by SafeGet.
// The provided object must be a pointer to the value returned by SafeGet.
func (ctn Container) Fill(name string, dst interface{}) error {
	obj, err := ctn.SafeGet(name)
	if err != nil {
		return err
	}

	return fill(name, obj, dst)
}

// SafeGetAs is similar to SafeGet but it returns a TypeMismatchError
// if the object is not assignable to expected.
func (ctn Container) SafeGetAs(name string, expected reflect.Type) (interface{}, error) {
	obj, err := ctn.SafeGet(name)
	if err != nil {
		return nil, err
	}

	if expected != nil {
		if _, ok := assignableValue(obj, expected); !ok {
			return nil, &TypeMismatchError{Name: name, Expected: expected, Actual: reflect.TypeOf(obj)}
		}
	}

	return obj, nil
}

// SafeGetByType retrieves the single candidate of the given type.
// It is a shortcut for Resolve(Request{Type: typ}).
func (ctn Container) SafeGetByType(typ reflect.Type) (interface{}, error) {
	return ctn.Resolve(Request{Type: typ})
}

// get must be called on a Container bound to a chain.
func (ctn Container) get(name string) (interface{}, error) {
	bare, wantProducer := splitProducerName(name)

	e, err := ctn.core.registry.lookup(bare)
	if err != nil {
		return nil, err
	}

	if !wantProducer {
		return ctn.materialize(e)
	}

	// producers are detected from the declared type only
	if !e.producer {
		return nil, &NotAProducerError{Name: bare, Type: e.def.Type}
	}

	return ctn.producer(e)
}

// GetAs retrieves an object by its name and converts it to T.
func GetAs[T any](ctn Container, name string) (T, error) {
	var zero T

	obj, err := ctn.SafeGetAs(name, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}

	if obj == nil {
		return zero, nil
	}

	return obj.(T), nil
}

// GetByType retrieves the single candidate of type T.
func GetByType[T any](ctn Container) (T, error) {
	var zero T

	obj, err := ctn.Resolve(TypeOf[T]())
	if err != nil {
		return zero, err
	}

	if obj == nil {
		return zero, nil
	}

	return obj.(T), nil
}

// GetAllOfType retrieves all the candidates of type T, in registration order.
// The result is empty if there is no candidate.
func GetAllOfType[T any](ctn Container) ([]T, error) {
	obj, err := ctn.Resolve(TypeOf[T]().As(Collection).Wrapped(Optional))
	if err != nil {
		return nil, err
	}

	v, ok := obj.(Opt).Get()
	if !ok {
		return []T{}, nil
	}

	return v.([]T), nil
}
