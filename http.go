package di

import (
	"context"
	"net/http"
	"reflect"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
)

// ContainerKey is a type that can be used to store a container
// in the context.Context of an http.Request.
// By default, it is used in the C function and the HTTPMiddleware.
type ContainerKey string

// HTTPMiddleware adds the container in the request context.
func HTTPMiddleware(h http.Handler, ctn Container) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), ContainerKey("di"), ctn),
		))
	})
}

// C retrieves a Container from an interface.
// The function panics if the Container can not be retrieved.
//
// The interface can be :
//   - a Container
//   - an *http.Request containing a Container in its context.Context
//     for the ContainerKey("di") key.
//
// The function can be changed to match the needs of your application.
var C = func(i interface{}) Container {
	if c, ok := i.(Container); ok {
		return c
	}

	r, ok := i.(*http.Request)
	if !ok {
		panic("could not get the container with C()")
	}

	c, ok := r.Context().Value(ContainerKey("di")).(Container)
	if !ok {
		panic("could not get the container from the given *http.Request")
	}

	return c
}

// Get is a shortcut for C(i).Get(name).
func Get(i interface{}, name string) interface{} {
	return C(i).Get(name)
}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// DefinitionInfo is the description of a definition
// returned by the inspection handler.
type DefinitionInfo struct {
	Name        string            `json:"name"`
	Type        string            `json:"type,omitempty"`
	Scope       Scope             `json:"scope"`
	Producer    bool              `json:"producer"`
	ProductType string            `json:"productType,omitempty"`
	Primary     bool              `json:"primary"`
	Autowire    bool              `json:"autowire"`
	Qualifiers  map[string]string `json:"qualifiers,omitempty"`
	Profiles    []string          `json:"profiles,omitempty"`
	State       string            `json:"state"`
}

// SingletonsInfo is the content of the singleton cache
// returned by the inspection handler.
type SingletonsInfo struct {
	Container  string   `json:"container"`
	Singletons []string `json:"singletons"`
}

// NewInspectHandler returns a read-only http.Handler describing the container:
//
//	GET /definitions          the eligible definitions in registration order
//	GET /definitions/{name}   one definition
//	GET /singletons           the cached singletons in creation order
//
// It never builds objects, except producers whose product type is unknown.
func NewInspectHandler(ctn Container) http.Handler {
	r := chi.NewRouter()

	r.Get("/definitions", func(w http.ResponseWriter, req *http.Request) {
		infos := []DefinitionInfo{}
		for _, e := range ctn.core.registry.all() {
			infos = append(infos, ctn.describe(e))
		}
		writeJSON(w, http.StatusOK, infos)
	})

	r.Get("/definitions/{name}", func(w http.ResponseWriter, req *http.Request) {
		e, err := ctn.core.registry.lookup(chi.URLParam(req, "name"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, ctn.describe(e))
	})

	r.Get("/singletons", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, SingletonsInfo{
			Container:  ctn.ID(),
			Singletons: ctn.Singletons(),
		})
	})

	return r
}

func (ctn Container) describe(e *entry) DefinitionInfo {
	info := DefinitionInfo{
		Name:     e.def.Name,
		Type:     typeName(e.def.Type),
		Scope:    e.def.Scope,
		Producer: e.producer,
		Primary:  e.def.Primary,
		Autowire: e.def.IsAutowireCandidate(),
		Profiles: e.def.Profiles,
		State:    ctn.State(e.def.Name).String(),
	}

	if e.producer {
		info.ProductType = typeName(ctn.withChain().effectiveType(e))
	}

	if len(e.def.Qualifiers) > 0 {
		info.Qualifiers = map[string]string{}
		for _, q := range e.def.Qualifiers {
			info.Qualifiers[q.Key] = q.Value
		}
	}

	return info
}

func typeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonAPI.NewEncoder(w).Encode(v)
}
