package di

import (
	"reflect"

	"github.com/pkg/errors"
)

// Resolve returns the value matching the Request.
//
// Depending on the Request wrapper, the value is the object itself (Direct),
// an Opt (Optional), or a Provider (Lazy and LazyOptional).
// Depending on the Request shape, the object is a single object (Single),
// a slice of objects (Collection) or a map of objects by name (MapByName).
func (ctn Container) Resolve(req Request) (interface{}, error) {
	switch req.Wrapper {
	case Lazy, LazyOptional:
		return Provider{ctn: ctn.unbound(), req: req}, nil
	}
	return ctn.withChain().resolveNow(req)
}

// resolveNow resolves the Request immediately.
// Lazy wrappers are handled as Direct and LazyOptional ones as Optional.
func (ctn Container) resolveNow(req Request) (interface{}, error) {
	if req.Type == nil {
		return ctn.resolveByName(req)
	}

	if _, producer := splitProducerName(req.Name); producer {
		return ctn.resolveByName(req)
	}

	candidates := ctn.candidates(req)

	if req.Shape == Collection || req.Shape == MapByName {
		return ctn.resolveAll(req, candidates)
	}

	e, err := selectCandidate(req, candidates)
	if err != nil {
		return nil, err
	}

	if e == nil {
		if req.optional() {
			return None(), nil
		}
		return nil, &NoSuchDependencyError{Request: req}
	}

	obj, err := ctn.materialize(e)
	if err != nil {
		return nil, err
	}

	if req.optional() {
		return Some(obj), nil
	}

	return obj, nil
}

// resolveByName handles the requests targeting a definition by name,
// without type or with a producer name.
func (ctn Container) resolveByName(req Request) (interface{}, error) {
	if req.Name == "" {
		return nil, errors.Errorf("%s needs a type or a name", req)
	}

	if req.Shape != Single {
		return nil, errors.Errorf("%s needs a type to be resolved as a %s", req, req.Shape)
	}

	obj, err := ctn.get(req.Name)

	var nsd *NoSuchDefinitionError
	if errors.As(err, &nsd) && nsd.Name == trimProducerPrefix(req.Name) && req.optional() {
		return None(), nil
	}
	if err != nil {
		return nil, err
	}

	if req.Type != nil {
		if _, ok := assignableValue(obj, req.Type); !ok {
			return nil, &TypeMismatchError{Name: req.Name, Expected: req.Type, Actual: reflect.TypeOf(obj)}
		}
	}

	if req.optional() {
		return Some(obj), nil
	}

	return obj, nil
}

func trimProducerPrefix(name string) string {
	bare, _ := splitProducerName(name)
	return bare
}

// candidates returns the eligible entries matching the Request type,
// name and qualifier, in registration order.
func (ctn Container) candidates(req Request) []*entry {
	pool := []*entry{}

	for _, e := range ctn.ofType(req.Type) {
		if e.def.IsAutowireCandidate() || req.targets(e.def.Name) {
			pool = append(pool, e)
		}
	}

	if req.Name != "" {
		pool = filterEntries(pool, func(e *entry) bool {
			return e.def.Name == req.Name
		})
	}

	if req.Qualifier != "" {
		qualified := filterEntries(pool, func(e *entry) bool {
			return e.def.HasQualifier(req.QualifierKey, req.Qualifier)
		})
		if len(qualified) == 0 {
			qualified = filterEntries(pool, func(e *entry) bool {
				return e.def.Name == req.Qualifier
			})
		}
		pool = qualified
	}

	return pool
}

func filterEntries(entries []*entry, keep func(e *entry) bool) []*entry {
	filtered := []*entry{}
	for _, e := range entries {
		if keep(e) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// selectCandidate returns the only candidate, or the primary one.
// It returns nil if there is no candidate.
func selectCandidate(req Request, candidates []*entry) (*entry, error) {
	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		return candidates[0], nil
	}

	primaries := filterEntries(candidates, func(e *entry) bool {
		return e.def.Primary
	})

	if len(primaries) == 1 {
		return primaries[0], nil
	}

	ambiguous := candidates
	if len(primaries) > 1 {
		ambiguous = primaries
	}

	names := make([]string, len(ambiguous))
	for i, e := range ambiguous {
		names[i] = e.def.Name
	}

	return nil, &AmbiguousDependencyError{Request: req, Candidates: names}
}

// resolveAll materializes all the candidates in a slice or a map.
func (ctn Container) resolveAll(req Request, candidates []*entry) (interface{}, error) {
	if len(candidates) == 0 {
		switch req.Wrapper {
		case Direct:
			return nil, &NoSuchDependencyError{Request: req}
		case Optional, LazyOptional:
			return None(), nil
		}
	}

	var result reflect.Value

	if req.Shape == MapByName {
		result = reflect.MakeMapWithSize(reflect.MapOf(reflect.TypeOf(""), req.Type), len(candidates))
	} else {
		result = reflect.MakeSlice(reflect.SliceOf(req.Type), 0, len(candidates))
	}

	for _, e := range candidates {
		obj, err := ctn.materialize(e)
		if err != nil {
			return nil, err
		}

		v, ok := assignableValue(obj, req.Type)
		if !ok {
			return nil, &TypeMismatchError{Name: e.def.Name, Expected: req.Type, Actual: reflect.TypeOf(obj)}
		}

		if req.Shape == MapByName {
			result.SetMapIndex(reflect.ValueOf(e.def.Name), v)
		} else {
			result = reflect.Append(result, v)
		}
	}

	if req.optional() {
		return Some(result.Interface()), nil
	}

	return result.Interface(), nil
}
