package di

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// Shape is the form of the result expected by a Request.
type Shape int

const (
	// Single selects one candidate.
	Single Shape = iota
	// Collection returns all the candidates in a slice, in registration order.
	Collection
	// MapByName returns all the candidates in a map keyed by definition name.
	MapByName
)

func (s Shape) String() string {
	switch s {
	case Single:
		return "single"
	case Collection:
		return "collection"
	case MapByName:
		return "map"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// Wrapper describes how the resolved value is handed over.
type Wrapper int

const (
	// Direct returns the object itself.
	Direct Wrapper = iota
	// Optional returns an Opt that is empty if there is no candidate.
	Optional
	// Lazy returns a Provider that resolves the Request each time it is called.
	Lazy
	// LazyOptional returns a Provider that returns an Opt.
	LazyOptional
)

func (w Wrapper) String() string {
	switch w {
	case Direct:
		return "direct"
	case Optional:
		return "optional"
	case Lazy:
		return "lazy"
	case LazyOptional:
		return "lazy-optional"
	}
	return fmt.Sprintf("Wrapper(%d)", int(w))
}

// Request describes a dependency: what is required and in which form.
type Request struct {
	// Type is the required type. For Collection and MapByName shapes
	// it is the type of the elements.
	Type reflect.Type
	// Name targets a definition by its name.
	Name string
	// Qualifier selects the candidates having a qualifier with this value.
	Qualifier string
	// QualifierKey restricts the qualifier match to this key.
	QualifierKey string
	Shape        Shape
	Wrapper      Wrapper
}

// TypeOf returns a single direct Request for the type of T.
// It works for interfaces too.
func TypeOf[T any]() Request {
	return Request{Type: reflect.TypeOf((*T)(nil)).Elem()}
}

// Named returns a copy of the Request targeting the given name.
func (r Request) Named(name string) Request {
	r.Name = name
	return r
}

// Qualified returns a copy of the Request with the given qualifier value.
func (r Request) Qualified(value string) Request {
	r.Qualifier = value
	return r
}

// As returns a copy of the Request with the given shape.
func (r Request) As(shape Shape) Request {
	r.Shape = shape
	return r
}

// Wrapped returns a copy of the Request with the given wrapper.
func (r Request) Wrapped(wrapper Wrapper) Request {
	r.Wrapper = wrapper
	return r
}

func (r Request) optional() bool {
	return r.Wrapper == Optional || r.Wrapper == LazyOptional
}

// targets returns true if the Request explicitly names the definition,
// with its Name or with a Qualifier equal to the definition name.
func (r Request) targets(name string) bool {
	return (r.Name != "" && r.Name == name) || (r.Qualifier != "" && r.Qualifier == name)
}

func (r Request) String() string {
	parts := []string{}

	if r.Type != nil {
		parts = append(parts, "type="+r.Type.String())
	}
	if r.Name != "" {
		parts = append(parts, "name="+r.Name)
	}
	if r.Qualifier != "" {
		q := r.Qualifier
		if r.QualifierKey != "" {
			q = r.QualifierKey + ":" + q
		}
		parts = append(parts, "qualifier="+q)
	}
	if r.Shape != Single {
		parts = append(parts, "shape="+r.Shape.String())
	}
	if r.Wrapper != Direct {
		parts = append(parts, "wrapper="+r.Wrapper.String())
	}

	return "request(" + strings.Join(parts, " ") + ")"
}

// Opt holds a value that may be absent. It is the result of an Optional Request.
type Opt struct {
	value   interface{}
	present bool
}

// Some returns an Opt holding v.
func Some(v interface{}) Opt {
	return Opt{value: v, present: true}
}

// None returns an empty Opt.
func None() Opt {
	return Opt{}
}

// IsPresent returns true if the Opt holds a value.
func (o Opt) IsPresent() bool {
	return o.present
}

// Get returns the value and whether it is present.
func (o Opt) Get() (interface{}, bool) {
	return o.value, o.present
}

// OrElse returns the value if it is present, def otherwise.
func (o Opt) OrElse(def interface{}) interface{} {
	if o.present {
		return o.value
	}
	return def
}

// Provider resolves its Request against the container each time Get is called.
// Definitions registered after the Provider was created are taken into account.
type Provider struct {
	ctn Container
	req Request
}

// Get resolves the Request. For a LazyOptional Request
// the result is an Opt.
func (p Provider) Get() (interface{}, error) {
	if p.ctn.core == nil {
		return nil, errors.New("the provider is not bound to a container")
	}
	return p.ctn.withChain().resolveNow(p.req)
}

// MustGet is similar to Get but it panics if there is an error.
func (p Provider) MustGet() interface{} {
	obj, err := p.Get()
	if err != nil {
		panic(err)
	}
	return obj
}

// Request returns the Request resolved by the Provider.
func (p Provider) Request() Request {
	return p.req
}

var (
	optType      = reflect.TypeOf(Opt{})
	providerType = reflect.TypeOf(Provider{})
)
