package di

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// ErrDefinitionInUse is returned when a definition is replaced
// after its name has already been used to build an object.
var ErrDefinitionInUse = errors.New("definition is already in use")

// ErrForeignReference is returned by Reattach when the Reference
// was created by another container.
var ErrForeignReference = errors.New("reference belongs to another container")

// NoSuchDefinitionError is returned when a name does not match any eligible definition.
type NoSuchDefinitionError struct {
	Name string
}

func (e *NoSuchDefinitionError) Error() string {
	return fmt.Sprintf("no definition named `%s`", e.Name)
}

// DuplicateDefinitionError is returned when a definition is registered
// with a name that is already used and overriding is not allowed.
type DuplicateDefinitionError struct {
	Name string
}

func (e *DuplicateDefinitionError) Error() string {
	return fmt.Sprintf("a definition named `%s` already exists and overriding is not allowed", e.Name)
}

// NoSuchDependencyError is returned when a Request does not match any candidate.
type NoSuchDependencyError struct {
	Request Request
}

func (e *NoSuchDependencyError) Error() string {
	return fmt.Sprintf("no candidate found for %s", e.Request)
}

// AmbiguousDependencyError is returned when a Request matches several candidates
// and none of them can be selected as the primary one.
type AmbiguousDependencyError struct {
	Request    Request
	Candidates []string
}

func (e *AmbiguousDependencyError) Error() string {
	return fmt.Sprintf(
		"%s matches %d candidates and no single primary one: %s",
		e.Request, len(e.Candidates), strings.Join(e.Candidates, ", "),
	)
}

// CircularDependencyError is returned when an object requires itself,
// directly or through its dependencies, while it is being built.
// Path starts and ends with the same name.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected (%s)", strings.Join(e.Path, " -> "))
}

// ComponentCreationError wraps any error that happened while building an object.
// Nested failures produce a chain of ComponentCreationError,
// one for each level of the dependency graph.
type ComponentCreationError struct {
	Name  string
	Cause error
}

func (e *ComponentCreationError) Error() string {
	return fmt.Sprintf("could not build `%s`: %v", e.Name, e.Cause)
}

func (e *ComponentCreationError) Unwrap() error {
	return e.Cause
}

// NotAProducerError is returned by a `&name` lookup
// when the definition does not implement Producer.
type NotAProducerError struct {
	Name string
	Type reflect.Type
}

func (e *NotAProducerError) Error() string {
	return fmt.Sprintf("`%s` is not a producer (type %v)", e.Name, e.Type)
}

// TypeMismatchError is returned when an object is not assignable to the expected type.
type TypeMismatchError struct {
	Name     string
	Expected reflect.Type
	Actual   reflect.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("`%s` is a %v, not assignable to %v", e.Name, e.Actual, e.Expected)
}

// InvalidProfileError is returned when a profile name or expression contains a blank token.
type InvalidProfileError struct {
	Expression string
}

func (e *InvalidProfileError) Error() string {
	return fmt.Sprintf("invalid profile expression %q: profile names can not be blank", e.Expression)
}

// wrapCreationError wraps err in a ComponentCreationError for the given name.
func wrapCreationError(name string, err error) error {
	if err == nil {
		return nil
	}

	// already wrapped at this level
	if cce, ok := err.(*ComponentCreationError); ok && cce.Name == name {
		return err
	}

	return &ComponentCreationError{Name: name, Cause: err}
}
