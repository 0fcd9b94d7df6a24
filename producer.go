package di

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ProducerPrefix is added in front of a definition name
// to retrieve a producer instead of its product.
const ProducerPrefix = "&"

// Producer is an object whose role is to create another object, its product.
//
// When a definition builds a Producer, retrieving the definition by its name
// returns the product. The producer itself is retrieved with ProducerPrefix + name.
type Producer interface {
	// Produce creates the product.
	Produce() (interface{}, error)
	// ProductType is the type of the objects returned by Produce.
	ProductType() reflect.Type
	// IsSingleton returns true if Produce should only be called once.
	// The product is then cached, if the producer definition is a Singleton too.
	IsSingleton() bool
}

var producerType = reflect.TypeOf((*Producer)(nil)).Elem()

func isProducerType(t reflect.Type) bool {
	return t != nil && t.Implements(producerType)
}

// splitProducerName removes ProducerPrefix from name.
// The boolean is true if the prefix was present.
func splitProducerName(name string) (string, bool) {
	if strings.HasPrefix(name, ProducerPrefix) {
		return strings.TrimPrefix(name, ProducerPrefix), true
	}
	return name, false
}

func producerKey(name string) string {
	return ProducerPrefix + name
}

// producer returns the producer built by the entry.
// A Singleton producer is cached under its producer key, apart from its product.
func (ctn Container) producer(e *entry) (Producer, error) {
	obj, err := ctn.instantiate(e, producerKey(e.def.Name))
	if err != nil {
		return nil, err
	}

	p, ok := obj.(Producer)
	if !ok {
		return nil, &NotAProducerError{Name: e.def.Name, Type: reflect.TypeOf(obj)}
	}

	return p, nil
}

// product returns the object created by the producer of the entry.
func (ctn Container) product(e *entry) (interface{}, error) {
	p, err := ctn.producer(e)
	if err != nil {
		return nil, err
	}

	if path := ctn.chain.cycle(e.def.Name); path != nil {
		return nil, &CircularDependencyError{Path: path}
	}

	if e.def.Scope == Singleton && p.IsSingleton() {
		obj, err := ctn.core.singletons.get(e.def.Name, ctn.chain, func() (interface{}, error) {
			return ctn.produce(e, p)
		})
		if err != nil {
			return nil, err
		}
		ctn.core.metrics.setSingletons(ctn.core.singletons.count())
		return obj, nil
	}

	return ctn.produce(e, p)
}

func (ctn Container) produce(e *entry, p Producer) (obj interface{}, err error) {
	ctn.chain.push(e.def.Name)
	defer ctn.chain.pop()

	defer func() {
		if r := recover(); r != nil {
			err = wrapCreationError(e.def.Name, errors.Errorf("the producer panicked: %+v", r))
		}
	}()

	obj, err = p.Produce()
	if err != nil {
		return nil, wrapCreationError(e.def.Name, err)
	}

	if t := p.ProductType(); t != nil && obj != nil && !reflect.TypeOf(obj).AssignableTo(t) {
		return nil, wrapCreationError(e.def.Name, &TypeMismatchError{
			Name:     e.def.Name,
			Expected: t,
			Actual:   reflect.TypeOf(obj),
		})
	}

	return obj, nil
}

// effectiveType returns the type used to match the entry against a Request:
// the product type for a producer, the declared type otherwise.
// If the product type is unknown, the producer is built once to discover it,
// whatever the scope of its definition.
func (ctn Container) effectiveType(e *entry) reflect.Type {
	if !e.producer {
		return e.def.Type
	}

	if t, ok := ctn.core.registry.knownProductType(e); ok {
		return t
	}

	p, err := ctn.producer(e)
	if err != nil {
		ctn.core.logger.Warn("could not determine the product type",
			zap.String("name", e.def.Name),
			zap.Error(err),
		)
		return nil
	}

	t := p.ProductType()
	ctn.core.registry.setProductType(e, t)

	return t
}
