package di

import (
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type mockObject struct {
	Closed bool
}

func (o *mockObject) Close() error {
	o.Closed = true
	return nil
}

type conn struct {
	id     int32
	Closed bool
}

func (c *conn) Close() error {
	c.Closed = true
	return nil
}

// connProducer creates *conn products.
type connProducer struct {
	singleton bool
	produced  int32
	Closed    bool
}

func (p *connProducer) Produce() (interface{}, error) {
	return &conn{id: atomic.AddInt32(&p.produced, 1)}, nil
}

func (p *connProducer) ProductType() reflect.Type {
	return reflect.TypeOf(&conn{})
}

func (p *connProducer) IsSingleton() bool {
	return p.singleton
}

func (p *connProducer) Close() error {
	p.Closed = true
	return nil
}

type plugin interface {
	Name() string
}

type namedPlugin string

func (p namedPlugin) Name() string {
	return string(p)
}

func newContainer(t *testing.T, opts ...Option) Container {
	ctn, err := New(opts...)
	require.Nil(t, err)
	return ctn
}

func TestNew(t *testing.T) {
	ctn := newContainer(t)

	require.NotEmpty(t, ctn.ID())
	require.NotEqual(t, ctn.ID(), newContainer(t).ID())
	require.Equal(t, []string{DefaultProfile}, ctn.Profiles().Effective())

	_, err := New(WithProfiles("prod", ""))
	require.ErrorAs(t, err, new(*InvalidProfileError))

	_, err = New(WithConfig(Config{Log: LogConfig{Level: "loud"}}))
	require.NotNil(t, err)
}

func TestRegister(t *testing.T) {
	ctn := newContainer(t)

	err := ctn.Register(Definition{Name: "", Strategy: Instance{Value: 1}})
	require.NotNil(t, err, "should not be able to register a definition without name")

	err = ctn.Register(Definition{Name: "&obj", Strategy: Instance{Value: 1}})
	require.NotNil(t, err, "should not be able to register a definition starting with the producer prefix")

	err = ctn.Register(Definition{Name: "obj"})
	require.NotNil(t, err, "should not be able to register a definition without strategy")

	err = ctn.Register(Definition{Name: "obj", Scope: "request", Strategy: Instance{Value: 1}})
	require.NotNil(t, err, "should not be able to register a definition with an unknown scope")

	err = ctn.Register(Definition{Name: "obj", Strategy: Instance{Value: 1}})
	require.Nil(t, err)
	require.True(t, ctn.IsDefined("obj"))
	require.False(t, ctn.IsDefined("&obj"), "obj is not a producer")
	require.False(t, ctn.IsDefined("undefined"))

	require.Nil(t, ctn.Register(Definition{Name: "db", Strategy: Instance{Value: &connProducer{}}}))
	require.True(t, ctn.IsDefined("db"))
	require.True(t, ctn.IsDefined("&db"))
	require.False(t, ctn.IsDefined("&undefined"))

	def := ctn.Definitions()["obj"]
	require.Equal(t, Singleton, def.Scope)
	require.Equal(t, reflect.TypeOf(1), def.Type)
}

func TestRegisterDuplicate(t *testing.T) {
	ctn := newContainer(t)

	require.Nil(t, ctn.Register(Definition{Name: "obj", Strategy: Instance{Value: "first"}}))

	err := ctn.Register(Definition{Name: "obj", Strategy: Instance{Value: "second"}})
	require.ErrorAs(t, err, new(*DuplicateDefinitionError))
	require.Equal(t, "first", ctn.Get("obj"))
}

func TestOverriding(t *testing.T) {
	ctn := newContainer(t, AllowOverriding(true))

	require.Nil(t, ctn.Register(
		Definition{Name: "a", Strategy: Instance{Value: "first"}},
		Definition{Name: "b", Strategy: Instance{Value: "b"}},
	))
	require.Nil(t, ctn.Register(Definition{Name: "a", Strategy: Instance{Value: "second"}}))

	require.Equal(t, []string{"b", "a"}, ctn.DefinitionNames(), "the replaced definition should move to the end")
	require.Equal(t, "second", ctn.Get("a"))

	err := ctn.Register(Definition{Name: "a", Strategy: Instance{Value: "third"}})
	require.ErrorIs(t, err, ErrDefinitionInUse)
	require.Equal(t, "second", ctn.Get("a"))
}

func TestIneligibleDefinitions(t *testing.T) {
	ctn := newContainer(t, WithProfiles("prod"))

	require.Nil(t, ctn.Register(
		Definition{Name: "obj", Strategy: Instance{Value: "prod"}, Profiles: []string{"prod"}},
		Definition{Name: "obj", Strategy: Instance{Value: "dev"}, Profiles: []string{"dev"}},
		Definition{Name: "debug", Strategy: Instance{Value: "debug"}, Profiles: []string{"dev"}},
	))

	require.Equal(t, "prod", ctn.Get("obj"), "an ineligible definition should not replace an eligible one")
	require.False(t, ctn.IsDefined("debug"))
	require.Contains(t, ctn.InactiveDefinitions(), "debug")

	_, err := ctn.SafeGet("debug")
	require.ErrorAs(t, err, new(*NoSuchDefinitionError))

	err = ctn.Register(Definition{Name: "bad", Strategy: Instance{Value: 1}, Profiles: []string{"a,,b"}})
	require.ErrorAs(t, err, new(*InvalidProfileError))
}

func TestRegisterSingleton(t *testing.T) {
	ctn := newContainer(t)

	obj := &mockObject{}
	require.Nil(t, ctn.RegisterSingleton("obj", obj))

	require.Equal(t, Created, ctn.State("obj"))
	require.Same(t, obj, ctn.Get("obj"))

	byType, err := GetByType[*mockObject](ctn)
	require.Nil(t, err)
	require.Same(t, obj, byType)

	require.Nil(t, ctn.DestroySingletons())
	require.False(t, obj.Closed, "an external singleton should not be closed")
	require.Same(t, obj, ctn.Get("obj"))
}

func TestRegisterSingletonProducer(t *testing.T) {
	ctn := newContainer(t)

	p := &connProducer{singleton: true}
	require.Nil(t, ctn.RegisterSingleton("db", p))

	require.Equal(t, []string{"&db"}, ctn.Singletons())
	require.Same(t, p, ctn.Get("&db"))
	require.IsType(t, &conn{}, ctn.Get("db"))
	require.EqualValues(t, 1, atomic.LoadInt32(&p.produced))
}

func TestHooks(t *testing.T) {
	events := []string{}

	ctn := newContainer(t, WithHook(func(evt Event) error {
		events = append(events, evt.Kind.String()+":"+evt.Name)
		return nil
	}))

	require.Nil(t, ctn.Register(
		Definition{
			Name:     "a",
			Strategy: Constructor{Func: func() *mockObject { return &mockObject{} }},
			Init: func(obj interface{}) error {
				events = append(events, "init:a")
				return nil
			},
		},
		Definition{
			Name:     "b",
			Scope:    Prototype,
			Strategy: Constructor{Func: func(a *mockObject) *conn { return &conn{} }},
		},
	))

	ctn.Get("b")

	require.Equal(t, []string{
		"constructed:a",
		"init:a",
		"initialized:a",
		"constructed:b",
		"initialized:b",
	}, events)

	ctn.AddHook(func(evt Event) error {
		return errors.New("hook error")
	})

	_, err := ctn.SafeGet("b")
	require.ErrorAs(t, err, new(*ComponentCreationError))
	require.Contains(t, err.Error(), "hook error")
}

type awareObject struct {
	ctn         Container
	initialized bool
}

func (o *awareObject) SetContainer(ctn Container) {
	o.ctn = ctn
}

func (o *awareObject) Init() error {
	if o.ctn.core == nil {
		return errors.New("container not set before Init")
	}
	o.initialized = true
	return nil
}

func TestContainerAware(t *testing.T) {
	ctn := newContainer(t)

	require.Nil(t, ctn.Register(
		Definition{Name: "aware", Strategy: Constructor{Func: func() *awareObject { return &awareObject{} }}},
		Definition{Name: "other", Strategy: Instance{Value: "other"}},
	))

	obj := ctn.Get("aware").(*awareObject)
	require.True(t, obj.initialized)
	require.Equal(t, "other", obj.ctn.Get("other"))
	require.Same(t, obj, obj.ctn.Get("aware"))
}

type server struct {
	Host    string        `di:"host"`
	Port    int           `di:"port"`
	Timeout time.Duration `di:"timeout"`
	Conn    *conn
	plugin  plugin
}

func (s *server) SetPlugin(p plugin) {
	s.plugin = p
}

func TestInjection(t *testing.T) {
	ctn := newContainer(t)

	require.Nil(t, ctn.Register(
		Definition{Name: "conn", Strategy: Instance{Value: &conn{id: 7}}},
		Definition{Name: "plugin", Strategy: Instance{Value: namedPlugin("p")}, Type: TypeOf[plugin]().Type},
		Definition{
			Name:     "server",
			Strategy: Constructor{Func: func() *server { return &server{} }},
			InjectionPoints: []InjectionPoint{
				{Field: "Conn", Request: TypeOf[*conn]()},
				{Method: "SetPlugin", Request: TypeOf[plugin]()},
			},
			Properties: map[string]interface{}{
				"host":    "localhost",
				"port":    "8080",
				"timeout": "2s",
			},
		},
	))

	s := ctn.Get("server").(*server)
	require.Equal(t, "localhost", s.Host)
	require.Equal(t, 8080, s.Port)
	require.Equal(t, 2*time.Second, s.Timeout)
	require.EqualValues(t, 7, s.Conn.id)
	require.Equal(t, "p", s.plugin.Name())

	require.Nil(t, ctn.Register(Definition{
		Name:       "wrong",
		Strategy:   Constructor{Func: func() *server { return &server{} }},
		Properties: map[string]interface{}{"unknown": 1},
	}))

	_, err := ctn.SafeGet("wrong")
	require.ErrorAs(t, err, new(*ComponentCreationError))

	err = ctn.Register(Definition{
		Name:            "invalid",
		Strategy:        Instance{Value: &server{}},
		InjectionPoints: []InjectionPoint{{Field: "Conn", Method: "SetPlugin"}},
	})
	require.NotNil(t, err)
}

type template struct {
	Tags []string
}

func TestPrototypeInstance(t *testing.T) {
	ctn := newContainer(t)

	tmpl := &template{Tags: []string{"a"}}

	require.Nil(t, ctn.Register(Definition{Name: "tmpl", Scope: Prototype, Strategy: Instance{Value: tmpl}}))

	t1 := ctn.Get("tmpl").(*template)
	t2 := ctn.Get("tmpl").(*template)

	require.NotSame(t, t1, t2)
	require.NotSame(t, tmpl, t1)

	t1.Tags[0] = "updated"
	require.Equal(t, []string{"a"}, t2.Tags)
	require.Equal(t, []string{"a"}, tmpl.Tags)
}

type pluginRegistry struct {
	list   []plugin
	byName map[string]plugin
}

func TestConstructorAutowiring(t *testing.T) {
	ctn := newContainer(t)

	pluginType := TypeOf[plugin]().Type

	require.Nil(t, ctn.Register(
		Definition{Name: "p1", Type: pluginType, Strategy: Instance{Value: namedPlugin("p1")}},
		Definition{Name: "p2", Type: pluginType, Strategy: Instance{Value: namedPlugin("p2")}},
		Definition{Name: "hidden", Type: pluginType, Strategy: Instance{Value: namedPlugin("hidden")}, NoAutowire: true},
		Definition{
			Name: "registry",
			Strategy: Constructor{Func: func(list []plugin, byName map[string]plugin) *pluginRegistry {
				return &pluginRegistry{list: list, byName: byName}
			}},
		},
	))

	r := ctn.Get("registry").(*pluginRegistry)

	require.Equal(t, []plugin{namedPlugin("p1"), namedPlugin("p2")}, r.list)
	require.Equal(t, map[string]plugin{"p1": namedPlugin("p1"), "p2": namedPlugin("p2")}, r.byName)

	require.Nil(t, ctn.Register(Definition{
		Name:     "lazy",
		Strategy: Constructor{Func: func(p Provider) string { return "" }},
	}))

	_, err := ctn.SafeGet("lazy")
	require.NotNil(t, err, "a Provider parameter should require an explicit Request")
}

type connFactory struct{}

func (f *connFactory) Make(id int32) *conn {
	return &conn{id: id}
}

func TestFactoryMethod(t *testing.T) {
	ctn := newContainer(t)

	require.Nil(t, ctn.Register(
		Definition{Name: "factory", Strategy: Instance{Value: &connFactory{}}},
		Definition{Name: "conn", Strategy: FactoryMethod{Factory: "factory", Method: "Make", Args: []Arg{Val(int32(3))}}},
		Definition{Name: "broken", Strategy: FactoryMethod{Factory: "factory", Method: "Missing"}},
	))

	require.Equal(t, reflect.TypeOf(&conn{}), ctn.Definitions()["conn"].Type)
	require.EqualValues(t, 3, ctn.Get("conn").(*conn).id)

	c, err := GetByType[*conn](ctn)
	require.Nil(t, err)
	require.EqualValues(t, 3, c.id)

	_, err = ctn.SafeGet("broken")
	require.NotNil(t, err)
}

func TestConstructorArgs(t *testing.T) {
	ctn := newContainer(t)

	require.Nil(t, ctn.Register(
		Definition{Name: "id", Strategy: Instance{Value: int32(5)}},
		Definition{Name: "conn", Strategy: Constructor{
			Func: func(id int32, label string) (*conn, error) {
				if label != "main" {
					return nil, errors.New("unexpected label")
				}
				return &conn{id: id}, nil
			},
			Args: []Arg{Ref("id"), Val("main")},
		}},
		Definition{Name: "wrongCount", Strategy: Constructor{
			Func: func(id int32) *conn { return &conn{id: id} },
			Args: []Arg{Ref("id"), Val("extra")},
		}},
		Definition{Name: "wrongType", Strategy: Constructor{
			Func: func(id int32) *conn { return &conn{id: id} },
			Args: []Arg{Val("not an int")},
		}},
		Definition{Name: "notAFunc", Type: reflect.TypeOf(""), Strategy: Constructor{Func: "string"}},
	))

	require.EqualValues(t, 5, ctn.Get("conn").(*conn).id)

	for _, name := range []string{"wrongCount", "wrongType", "notAFunc"} {
		_, err := ctn.SafeGet(name)
		require.NotNil(t, err, name)
		require.Equal(t, Uncreated, ctn.State(name))
	}
}
