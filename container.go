package di

import (
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Container builds and stores objects from Definitions.
// It should be created with New or with a Builder.
//
// A Container is a small value that can be copied.
// All the copies share the same definitions and objects.
// The Container given to a BuildFunc is bound to the construction
// in progress. It allows the container to detect circular dependencies.
type Container struct {
	core *containerCore

	// chain contains the objects being built by the current request.
	chain *buildChain

	// parent is the chain of the construction that created this Container,
	// when it was handed over to an object or a Provider.
	parent *buildChain
}

// containerCore contains the data shared by all the copies of a Container.
type containerCore struct {
	id         uuid.UUID
	registry   *registry
	singletons *singletons
	logger     *zap.Logger
	metrics    *Metrics

	m     sync.RWMutex
	hooks []Hook
}

// New creates an empty Container.
// It returns an InvalidProfileError if the configured profiles are not valid.
func New(opts ...Option) (Container, error) {
	o := newOptions(opts)

	profiles, err := NewProfileSet(o.config.Profiles.Active, o.config.Profiles.Default)
	if err != nil {
		return Container{}, err
	}

	logger := o.logger
	if logger == nil {
		logger, err = o.config.Log.Logger()
		if err != nil {
			return Container{}, err
		}
	}

	core := &containerCore{
		id:         uuid.New(),
		registry:   newRegistry(profiles, o.config.AllowDefinitionOverriding),
		singletons: newSingletons(),
		logger:     logger,
		metrics:    o.metrics,
		hooks:      append([]Hook{}, o.hooks...),
	}

	core.logger.Debug("container created",
		zap.String("id", core.id.String()),
		zap.Strings("profiles", profiles.Effective()),
	)

	return Container{core: core}, nil
}

// ID returns the session identifier of the container.
func (ctn Container) ID() string {
	return ctn.core.id.String()
}

// Profiles returns the ProfileSet used to select the definitions.
func (ctn Container) Profiles() ProfileSet {
	return ctn.core.registry.profiles
}

// Register adds definitions to the Container.
// A definition that does not match the profiles is kept apart
// and can not be retrieved.
//
// If a definition with the same name already exists, it is replaced
// if overriding is allowed, and if no object has been built from it yet.
func (ctn Container) Register(defs ...Definition) error {
	for _, def := range defs {
		if err := ctn.register(def); err != nil {
			return err
		}
	}
	return nil
}

func (ctn Container) register(def Definition) error {
	e, replaced, err := ctn.core.registry.register(def, ctn.inUse)
	if err != nil {
		ctn.core.logger.Debug("could not register definition", zap.String("name", def.Name), zap.Error(err))
		return err
	}

	if replaced {
		ctn.core.logger.Info("definition overridden", zap.String("name", e.def.Name))
	}

	ctn.core.logger.Debug("definition registered",
		zap.String("name", e.def.Name),
		zap.String("scope", string(e.def.Scope)),
		zap.String("type", typeName(e.def.Type)),
		zap.Bool("producer", e.producer),
	)

	return nil
}

// inUse returns true if an object has been built from the definition.
func (ctn Container) inUse(name string) bool {
	return ctn.core.singletons.used(name) || ctn.core.singletons.used(producerKey(name))
}

// RegisterSingleton adds an object built outside of the container.
// It can be retrieved by its name and by its type like any other object,
// but it is not closed by DestroySingletons.
func (ctn Container) RegisterSingleton(name string, obj interface{}) error {
	def := Definition{
		Name:     name,
		Scope:    Singleton,
		Strategy: Instance{Value: obj},
	}

	e, _, err := ctn.core.registry.register(def, ctn.inUse)
	if err != nil {
		return err
	}

	key := e.def.Name
	if e.producer {
		key = producerKey(key)
	}

	ctn.core.singletons.set(key, obj)
	ctn.core.metrics.setSingletons(ctn.core.singletons.count())

	return nil
}

// AddHook adds a function called during the construction of each object.
func (ctn Container) AddHook(h Hook) {
	ctn.core.m.Lock()
	ctn.core.hooks = append(ctn.core.hooks, h)
	ctn.core.m.Unlock()
}

func (core *containerCore) fire(evt Event) error {
	core.m.RLock()
	hooks := core.hooks
	core.m.RUnlock()

	for _, h := range hooks {
		if err := h(evt); err != nil {
			return errors.Wrapf(err, "%s hook failed", evt.Kind)
		}
	}

	return nil
}

// IsDefined returns true if there is an eligible definition for the given name.
// A name starting with ProducerPrefix is only defined
// if the definition builds a Producer.
func (ctn Container) IsDefined(name string) bool {
	bare, producer := splitProducerName(name)

	e, err := ctn.core.registry.lookup(bare)
	if err != nil {
		return false
	}

	return !producer || e.producer
}

// Definitions returns the eligible definitions.
func (ctn Container) Definitions() DefMap {
	defs := DefMap{}
	for _, e := range ctn.core.registry.all() {
		defs[e.def.Name] = e.def.copy()
	}
	return defs
}

// DefinitionNames returns the names of the eligible definitions in registration order.
func (ctn Container) DefinitionNames() []string {
	entries := ctn.core.registry.all()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.def.Name
	}
	return names
}

// InactiveDefinitions returns the definitions that do not match the profiles.
func (ctn Container) InactiveDefinitions() DefMap {
	defs := DefMap{}
	for _, e := range ctn.core.registry.allInactive() {
		defs[e.def.Name] = e.def.copy()
	}
	return defs
}

// DefinitionsOfType returns the eligible definitions whose objects
// are assignable to typ, in registration order.
// Producers are matched by their product type.
func (ctn Container) DefinitionsOfType(typ reflect.Type) []Definition {
	entries := ctn.withChain().ofType(typ)
	defs := make([]Definition, len(entries))
	for i, e := range entries {
		defs[i] = e.def.copy()
	}
	return defs
}

// State returns the state of the singleton retrieved with the given name.
func (ctn Container) State(name string) SingletonState {
	return ctn.core.singletons.state(name)
}

// Singletons returns the names of the singletons in the cache, in creation order.
// Producers are prefixed by ProducerPrefix.
func (ctn Container) Singletons() []string {
	return ctn.core.singletons.snapshot()
}

func (ctn Container) ofType(typ reflect.Type) []*entry {
	entries := []*entry{}

	for _, e := range ctn.core.registry.all() {
		t := ctn.effectiveType(e)
		if t != nil && typ != nil && t.AssignableTo(typ) {
			entries = append(entries, e)
		}
	}

	return entries
}

// withChain returns a Container bound to a construction chain.
func (ctn Container) withChain() Container {
	if ctn.chain == nil {
		ctn.chain = newBuildChain(ctn.parent)
	}
	return ctn
}

// unbound returns a Container that can be kept by an object.
// Each of its lookups starts a new chain, linked to the current one
// while it is still building objects.
func (ctn Container) unbound() Container {
	parent := ctn.chain
	if parent == nil {
		parent = ctn.parent
	}
	return Container{core: ctn.core, parent: parent}
}

// materialize returns the object of the entry: the product for a producer,
// the object built by the definition otherwise.
func (ctn Container) materialize(e *entry) (interface{}, error) {
	if e.producer {
		return ctn.product(e)
	}
	return ctn.instantiate(e, e.def.Name)
}

// instantiate returns the object built by the definition of the entry.
// Singletons are stored in the cache under the given key.
func (ctn Container) instantiate(e *entry, key string) (interface{}, error) {
	if path := ctn.chain.cycle(key); path != nil {
		return nil, &CircularDependencyError{Path: path}
	}

	if e.def.Scope == Prototype {
		return ctn.build(e, key)
	}

	obj, err := ctn.core.singletons.get(key, ctn.chain, func() (interface{}, error) {
		return ctn.build(e, key)
	})
	if err != nil {
		return nil, err
	}

	ctn.core.metrics.setSingletons(ctn.core.singletons.count())

	return obj, nil
}

// build runs the strategy of the definition and the post-construction steps.
func (ctn Container) build(e *entry, key string) (interface{}, error) {
	ctn.chain.push(key)
	defer ctn.chain.pop()

	start := time.Now()

	obj, err := ctn.construct(e.def)

	ctn.core.metrics.observeBuild(e.def.Scope, err, time.Since(start))

	if err != nil {
		ctn.core.logger.Debug("could not build object", zap.String("name", key), zap.Error(err))
		return nil, wrapCreationError(key, err)
	}

	ctn.core.logger.Debug("object built",
		zap.String("name", key),
		zap.String("scope", string(e.def.Scope)),
		zap.Duration("duration", time.Since(start)),
	)

	return obj, nil
}

func (ctn Container) construct(def Definition) (obj interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("the build function panicked: %+v", r)
		}
	}()

	obj, err = def.Strategy.create(ctn, def)
	if err != nil {
		return nil, err
	}

	if def.Type != nil && obj != nil && !reflect.TypeOf(obj).AssignableTo(def.Type) {
		return nil, &TypeMismatchError{Name: def.Name, Expected: def.Type, Actual: reflect.TypeOf(obj)}
	}

	if err = postConstruct(ctn, def, obj); err != nil {
		return nil, err
	}

	return obj, nil
}
