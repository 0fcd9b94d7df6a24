package di

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// Definition contains information to build and close an object inside a Container.
type Definition struct {
	// Name identifies the definition. It must be unique in a Container
	// and can not start with ProducerPrefix.
	Name string

	// Type is the declared type of the object.
	// If it is nil, it is inferred from the Strategy when possible.
	// A definition without type can only be retrieved by its name.
	Type reflect.Type

	// Scope is Singleton when empty.
	Scope Scope

	// Strategy describes how the object is created.
	Strategy Strategy

	// InjectionPoints are resolved and injected in the object
	// after it has been created by the Strategy.
	InjectionPoints []InjectionPoint

	// Properties are explicit values bound to the object fields
	// after the injection points. The keys are field names.
	Properties map[string]interface{}

	// Qualifiers are tags used to select the definition
	// when several candidates match a Request.
	Qualifiers []Qualifier

	// NoAutowire excludes the definition from type-based resolution.
	// It can still be retrieved by its name.
	NoAutowire bool

	// Primary makes the definition win when several candidates match a Request.
	Primary bool

	// Profiles contains profile expressions.
	// The definition is only eligible if all of them match the active profiles.
	Profiles []string

	// ProductType is the type of the objects created by a Producer.
	// It avoids building the producer to discover its product type.
	ProductType reflect.Type

	// Init is called after the object has been built and injected.
	Init func(obj interface{}) error

	// Close is called by DestroySingletons.
	Close func(obj interface{}) error
}

// IsAutowireCandidate returns true if the definition can be selected
// by a Request that does not target it by name.
func (def Definition) IsAutowireCandidate() bool {
	return !def.NoAutowire
}

// HasQualifier returns true if the definition has a qualifier with the given value.
// If key is not empty, the qualifier key must match too.
func (def Definition) HasQualifier(key, value string) bool {
	for _, q := range def.Qualifiers {
		if q.Value == value && (key == "" || q.Key == key) {
			return true
		}
	}
	return false
}

// copy returns a Definition that does not share its slices and maps with def.
func (def Definition) copy() Definition {
	c := def

	if def.InjectionPoints != nil {
		c.InjectionPoints = make([]InjectionPoint, len(def.InjectionPoints))
		copy(c.InjectionPoints, def.InjectionPoints)
	}
	if def.Qualifiers != nil {
		c.Qualifiers = make([]Qualifier, len(def.Qualifiers))
		copy(c.Qualifiers, def.Qualifiers)
	}
	if def.Profiles != nil {
		c.Profiles = make([]string, len(def.Profiles))
		copy(c.Profiles, def.Profiles)
	}
	if def.Properties != nil {
		c.Properties = make(map[string]interface{}, len(def.Properties))
		for k, v := range def.Properties {
			c.Properties[k] = v
		}
	}

	return c
}

// normalize checks the definition and fills the fields that have a default value.
func (def Definition) normalize() (Definition, error) {
	if def.Name == "" {
		return def, errors.New("the definition name can not be empty")
	}

	if strings.HasPrefix(def.Name, ProducerPrefix) {
		return def, errors.Errorf("the definition name `%s` can not start with `%s`", def.Name, ProducerPrefix)
	}

	if def.Strategy == nil {
		return def, errors.Errorf("the definition `%s` has no strategy", def.Name)
	}

	switch def.Scope {
	case "":
		def.Scope = Singleton
	case Singleton, Prototype:
	default:
		return def, errors.Errorf("scope `%s` of `%s` is not allowed", def.Scope, def.Name)
	}

	if def.Type == nil {
		def.Type = def.Strategy.declaredType()
	}

	for _, p := range def.InjectionPoints {
		if (p.Field == "") == (p.Method == "") {
			return def, errors.Errorf("an injection point of `%s` must have either a field or a method", def.Name)
		}
	}

	return def.copy(), nil
}

// Qualifier is a key-value tag attached to a Definition.
type Qualifier struct {
	Key   string
	Value string
}

// InjectionPoint describes a dependency injected in an object
// once it has been created, either in a field or with a setter method.
type InjectionPoint struct {
	// Field is the name of an exported struct field.
	Field string
	// Method is the name of a method taking one argument.
	Method string
	// Request describes the injected dependency.
	Request Request
}

// Arg is an argument of a Constructor or a FactoryMethod.
// It is either a literal Value or a Request resolved by the container.
type Arg struct {
	Value   interface{}
	Request *Request
}

// Val returns an Arg with a literal value.
func Val(v interface{}) Arg {
	return Arg{Value: v}
}

// Ref returns an Arg resolved by name.
func Ref(name string) Arg {
	return Arg{Request: &Request{Name: name}}
}

// Dep returns an Arg resolved from a Request.
func Dep(req Request) Arg {
	return Arg{Request: &req}
}

// DefMap is a map of Definitions. The key is the definition name.
type DefMap map[string]Definition

// Copy returns a copy of the DefMap.
func (m DefMap) Copy() DefMap {
	defs := DefMap{}

	for name, def := range m {
		defs[name] = def
	}

	return defs
}
