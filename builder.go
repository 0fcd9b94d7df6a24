package di

import (
	"github.com/pkg/errors"
)

// Builder can be used to create a Container.
// The Builder should be created with NewBuilder.
// Then you can add definitions with the Add method,
// and finally build the Container with the Build method.
type Builder struct {
	opts        []Option
	definitions []Definition
	names       map[string]int
}

// NewBuilder is the only way to create a working Builder.
// The options are given to the Container created by Build.
// It returns an error if the configured profiles are not valid.
func NewBuilder(opts ...Option) (*Builder, error) {
	o := newOptions(opts)

	if _, err := NewProfileSet(o.config.Profiles.Active, o.config.Profiles.Default); err != nil {
		return nil, err
	}

	return &Builder{
		opts:        opts,
		definitions: []Definition{},
		names:       map[string]int{},
	}, nil
}

// Definitions returns a map with the all the objects definitions
// registered with the Add method.
// The key of the map is the name of the Definition.
func (b *Builder) Definitions() DefMap {
	defs := DefMap{}
	for _, def := range b.definitions {
		defs[def.Name] = def.copy()
	}
	return defs
}

// IsDefined returns true if there is a definition with the given name.
// The profiles are not evaluated before Build.
func (b *Builder) IsDefined(name string) bool {
	_, ok := b.names[name]
	return ok
}

// Add adds one or more definitions in the Builder.
// It returns an error if a definition is not valid.
//
// Definitions with the same name are all kept. The profiles and the
// overriding configuration decide, in Build, which one is used.
func (b *Builder) Add(defs ...Definition) error {
	for _, def := range defs {
		if err := b.add(def); err != nil {
			return err
		}
	}

	return nil
}

func (b *Builder) add(def Definition) error {
	def, err := def.normalize()
	if err != nil {
		return err
	}

	for _, expr := range def.Profiles {
		if _, err := parseProfileExpression(expr); err != nil {
			return err
		}
	}

	b.names[def.Name]++
	b.definitions = append(b.definitions, def)

	return nil
}

// AddGroup adds definitions that are only eligible
// if the profile expression matches the active profiles.
func (b *Builder) AddGroup(profiles string, defs ...Definition) error {
	return b.Add(ProfileGroup{Profiles: profiles, Definitions: defs}.Flatten()...)
}

// Set is a shortcut to add a definition for an already built object.
func (b *Builder) Set(name string, obj interface{}) error {
	return b.add(Definition{
		Name:     name,
		Strategy: Instance{Value: obj},
	})
}

// Build creates a Container with all the definitions
// registered in the Builder, in insertion order.
func (b *Builder) Build() (Container, error) {
	ctn, err := New(b.opts...)
	if err != nil {
		return Container{}, err
	}

	for _, def := range b.definitions {
		if err := ctn.Register(def); err != nil {
			return Container{}, errors.Wrapf(err, "could not build the container")
		}
	}

	return ctn, nil
}
