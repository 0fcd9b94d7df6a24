package di

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/mohae/deepcopy"
	"github.com/pkg/errors"
)

// Strategy describes how a Definition creates its object.
// The available strategies are Constructor, FactoryMethod, Instance and BuildFunc.
type Strategy interface {
	declaredType() reflect.Type
	create(ctn Container, def Definition) (interface{}, error)
}

// Constructor creates the object by calling Func.
// Func must return the object, and optionally an error as second value.
//
// Args are the arguments given to Func.
// If Args is nil, each parameter is resolved from its type:
// a slice parameter receives all the candidates of its element type,
// a map[string]T parameter receives the candidates of T by name,
// and any other parameter receives the single candidate of its type.
type Constructor struct {
	Func interface{}
	Args []Arg
}

func (c Constructor) declaredType() reflect.Type {
	t := reflect.TypeOf(c.Func)
	if t == nil || t.Kind() != reflect.Func || t.NumOut() == 0 {
		return nil
	}
	return t.Out(0)
}

func (c Constructor) create(ctn Container, def Definition) (interface{}, error) {
	fn := reflect.ValueOf(c.Func)
	if fn.Kind() != reflect.Func {
		return nil, errors.Errorf("the constructor of `%s` is a %T, not a function", def.Name, c.Func)
	}
	return callFunc(ctn, def, fn, c.Args)
}

// FactoryMethod creates the object by calling a method
// on the object built by another definition.
type FactoryMethod struct {
	// Factory is the name of the definition providing the method.
	// It can be prefixed by ProducerPrefix to use a producer.
	Factory string
	Method  string
	Args    []Arg
}

// declaredType can not be known without the factory definition.
// It is inferred by the registry when the factory is already registered.
func (f FactoryMethod) declaredType() reflect.Type {
	return nil
}

func (f FactoryMethod) create(ctn Container, def Definition) (interface{}, error) {
	factory, err := ctn.SafeGet(f.Factory)
	if err != nil {
		return nil, err
	}

	m := reflect.ValueOf(factory).MethodByName(f.Method)
	if !m.IsValid() {
		return nil, errors.Errorf("`%s` (%T) has no method `%s`", f.Factory, factory, f.Method)
	}

	return callFunc(ctn, def, m, f.Args)
}

// methodType returns the type returned by the factory method
// if the factory type is known.
func (f FactoryMethod) methodType(factoryType reflect.Type) reflect.Type {
	if factoryType == nil {
		return nil
	}
	m, ok := factoryType.MethodByName(f.Method)
	if !ok || m.Type.NumOut() == 0 {
		return nil
	}
	return m.Type.Out(0)
}

// Instance uses an object built outside of the container.
// For a Prototype definition, Value is a template
// and each request receives a deep copy of it.
type Instance struct {
	Value interface{}
}

func (i Instance) declaredType() reflect.Type {
	return reflect.TypeOf(i.Value)
}

func (i Instance) create(ctn Container, def Definition) (interface{}, error) {
	if def.Scope == Prototype {
		return deepcopy.Copy(i.Value), nil
	}
	return i.Value, nil
}

// BuildFunc creates the object with a function.
// The Container given as parameter can be used to retrieve the dependencies.
type BuildFunc func(ctn Container) (interface{}, error)

func (f BuildFunc) declaredType() reflect.Type {
	return nil
}

func (f BuildFunc) create(ctn Container, def Definition) (interface{}, error) {
	return f(ctn)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// callFunc resolves the arguments of fn and calls it.
func callFunc(ctn Container, def Definition, fn reflect.Value, args []Arg) (interface{}, error) {
	ft := fn.Type()

	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return nil, errors.Errorf("the function building `%s` must return an object and an optional error", def.Name)
	}

	in, err := resolveArgs(ctn, def, ft, args)
	if err != nil {
		return nil, err
	}

	var out []reflect.Value

	if ft.IsVariadic() {
		out = fn.CallSlice(in)
	} else {
		out = fn.Call(in)
	}

	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}

	return out[0].Interface(), nil
}

func resolveArgs(ctn Container, def Definition, ft reflect.Type, args []Arg) ([]reflect.Value, error) {
	if args == nil {
		args = make([]Arg, ft.NumIn())

		for i := range args {
			req, err := requestForType(ft.In(i))
			if err != nil {
				return nil, errors.Wrapf(err, "parameter %d of `%s`", i, def.Name)
			}
			args[i] = Dep(req)
		}
	}

	if len(args) != ft.NumIn() {
		return nil, errors.Errorf(
			"the function building `%s` takes %d arguments but %d are defined",
			def.Name, ft.NumIn(), len(args),
		)
	}

	in := make([]reflect.Value, len(args))

	for i, arg := range args {
		obj := arg.Value

		if arg.Request != nil {
			var err error
			obj, err = ctn.Resolve(*arg.Request)
			if err != nil {
				return nil, err
			}
		}

		v, ok := assignableValue(obj, ft.In(i))
		if !ok {
			return nil, &TypeMismatchError{
				Name:     def.Name,
				Expected: ft.In(i),
				Actual:   reflect.TypeOf(obj),
			}
		}
		in[i] = v
	}

	return in, nil
}

// requestForType creates the Request used to autowire a parameter of type t.
func requestForType(t reflect.Type) (Request, error) {
	switch {
	case t == optType || t == providerType:
		return Request{}, errors.Errorf("a %v parameter requires an explicit Request", t)
	case t.Kind() == reflect.Slice:
		return Request{Type: t.Elem(), Shape: Collection}, nil
	case t.Kind() == reflect.Map && t.Key().Kind() == reflect.String:
		return Request{Type: t.Elem(), Shape: MapByName}, nil
	}
	return Request{Type: t}, nil
}

// inject resolves the injection points of the definition and sets them in obj,
// then binds the explicit properties.
func inject(ctn Container, def Definition, obj interface{}) error {
	for _, p := range def.InjectionPoints {
		dep, err := ctn.Resolve(p.Request)
		if err != nil {
			return err
		}

		if p.Field != "" {
			err = injectField(def, obj, p.Field, dep)
		} else {
			err = injectMethod(def, obj, p.Method, dep)
		}
		if err != nil {
			return err
		}
	}

	if len(def.Properties) == 0 {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           obj,
		TagName:          "di",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return errors.Wrapf(err, "could not bind the properties of `%s`", def.Name)
	}

	return errors.Wrapf(dec.Decode(def.Properties), "could not bind the properties of `%s`", def.Name)
}

func injectField(def Definition, obj interface{}, field string, dep interface{}) error {
	v := reflect.ValueOf(obj)

	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return errors.Errorf("can not inject field `%s` in `%s` because it is not a pointer to a struct", field, def.Name)
	}

	f := v.Elem().FieldByName(field)
	if !f.IsValid() || !f.CanSet() {
		return errors.Errorf("`%s` has no exported field `%s`", def.Name, field)
	}

	dv, ok := assignableValue(dep, f.Type())
	if !ok {
		return &TypeMismatchError{Name: def.Name + "." + field, Expected: f.Type(), Actual: reflect.TypeOf(dep)}
	}

	f.Set(dv)

	return nil
}

func injectMethod(def Definition, obj interface{}, method string, dep interface{}) error {
	m := reflect.ValueOf(obj).MethodByName(method)
	if !m.IsValid() || m.Type().NumIn() != 1 {
		return errors.Errorf("`%s` has no setter `%s` with one parameter", def.Name, method)
	}

	dv, ok := assignableValue(dep, m.Type().In(0))
	if !ok {
		return &TypeMismatchError{Name: def.Name + "." + method, Expected: m.Type().In(0), Actual: reflect.TypeOf(dep)}
	}

	out := m.Call([]reflect.Value{dv})

	if len(out) > 0 && out[len(out)-1].Type() == errorType && !out[len(out)-1].IsNil() {
		return out[len(out)-1].Interface().(error)
	}

	return nil
}
