package di

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBuilder(t *testing.T) {
	_, err := NewBuilder(WithProfiles("prod", " "))
	require.ErrorAs(t, err, new(*InvalidProfileError))

	b, err := NewBuilder(WithProfiles("prod"))
	require.Nil(t, err)
	require.Empty(t, b.Definitions())
}

func TestBuilderDefinitions(t *testing.T) {
	b, _ := NewBuilder()

	require.Nil(t, b.Add(
		Definition{Name: "o1", Strategy: Instance{Value: 1}},
		Definition{Name: "o2", Strategy: Instance{Value: 2}},
	))

	defs := b.Definitions()

	require.Len(t, defs, 2)
	require.Equal(t, "o1", defs["o1"].Name)
	require.Equal(t, "o2", defs["o2"].Name)
	require.True(t, b.IsDefined("o1"))
	require.False(t, b.IsDefined("undefined"))
}

func TestBuilderAddErrors(t *testing.T) {
	b, _ := NewBuilder()

	require.NotNil(t, b.Add(Definition{Strategy: Instance{Value: 1}}), "should not be able to add a definition without name")
	require.NotNil(t, b.Add(Definition{Name: "obj"}), "should not be able to add a definition without strategy")
	require.NotNil(t, b.Add(Definition{Name: "obj", Scope: "request", Strategy: Instance{Value: 1}}))
	require.ErrorAs(t, b.Add(Definition{Name: "obj", Strategy: Instance{Value: 1}, Profiles: []string{"!"}}), new(*InvalidProfileError))
	require.Empty(t, b.Definitions())
}

func TestBuilderSet(t *testing.T) {
	b, _ := NewBuilder()

	obj := &mockObject{}
	require.Nil(t, b.Set("obj", obj))

	ctn, err := b.Build()
	require.Nil(t, err)
	require.Same(t, obj, ctn.Get("obj"))
}

func TestBuilderBuild(t *testing.T) {
	b, _ := NewBuilder(WithProfiles("prod"))

	require.Nil(t, b.Add(
		Definition{Name: "factory", Strategy: Instance{Value: &connFactory{}}},
		Definition{Name: "conn", Strategy: FactoryMethod{Factory: "factory", Method: "Make", Args: []Arg{Val(int32(1))}}},
	))

	require.Nil(t, b.AddGroup("prod",
		Definition{Name: "store", Strategy: Instance{Value: "prod store"}},
	))
	require.Nil(t, b.AddGroup("dev",
		Definition{Name: "store", Strategy: Instance{Value: "dev store"}},
		Definition{Name: "debug", Strategy: Instance{Value: "debug"}},
	))

	ctn, err := b.Build()
	require.Nil(t, err)

	require.Equal(t, []string{"factory", "conn", "store"}, ctn.DefinitionNames())
	require.Equal(t, "prod store", ctn.Get("store"))
	require.False(t, ctn.IsDefined("debug"))
	require.EqualValues(t, 1, ctn.Get("conn").(*conn).id)

	other, err := b.Build()
	require.Nil(t, err)
	require.NotEqual(t, ctn.ID(), other.ID(), "each Build should create a new container")
}

func TestBuilderBuildDuplicate(t *testing.T) {
	b, _ := NewBuilder()

	require.Nil(t, b.Add(
		Definition{Name: "obj", Strategy: Instance{Value: "first"}},
		Definition{Name: "obj", Strategy: Instance{Value: "second"}},
	))

	_, err := b.Build()
	require.ErrorAs(t, err, new(*DuplicateDefinitionError))

	b, _ = NewBuilder(AllowOverriding(true))

	require.Nil(t, b.Add(
		Definition{Name: "obj", Strategy: Instance{Value: "first"}},
		Definition{Name: "obj", Strategy: Instance{Value: "second"}},
	))

	ctn, err := b.Build()
	require.Nil(t, err)
	require.Equal(t, "second", ctn.Get("obj"))
}
