package di

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware(t *testing.T) {
	ctn := newContainer(t)

	require.Nil(t, ctn.Register(
		Definition{Name: "object", Strategy: Instance{Value: 1}},
		Definition{Name: "prototype", Scope: Prototype, Strategy: Instance{Value: 2}},
	))

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		total := Get(r, "object").(int) + Get(r, "prototype").(int)
		io.WriteString(w, strconv.Itoa(total))
	})

	ts := httptest.NewServer(HTTPMiddleware(h, ctn))
	defer ts.Close()

	res, err := http.Get(ts.URL)
	require.Nil(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.Nil(t, err)
	require.Equal(t, "3", string(body))
}

func TestC(t *testing.T) {
	ctn := newContainer(t)

	require.Equal(t, ctn, C(ctn))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), ContainerKey("di"), ctn))
	require.Equal(t, ctn, C(req))

	require.Panics(t, func() { C(nil) })
	require.Panics(t, func() { C(httptest.NewRequest(http.MethodGet, "/", nil)) })
}

func TestInspectHandler(t *testing.T) {
	ctn := newContainer(t)

	primary := pluginDef("main")
	primary.Primary = true
	primary.Qualifiers = []Qualifier{{Key: "role", Value: "main"}}

	require.Nil(t, ctn.Register(
		primary,
		Definition{Name: "db", Strategy: Instance{Value: &connProducer{singleton: true}}},
		Definition{Name: "tmp", Scope: Prototype, Strategy: Instance{Value: &template{}}, NoAutowire: true},
	))

	ctn.Get("main")

	ts := httptest.NewServer(NewInspectHandler(ctn))
	defer ts.Close()

	get := func(path string, v interface{}) int {
		res, err := http.Get(ts.URL + path)
		require.Nil(t, err)
		defer res.Body.Close()
		require.Equal(t, "application/json", res.Header.Get("Content-Type"))
		require.Nil(t, jsoniter.NewDecoder(res.Body).Decode(v))
		return res.StatusCode
	}

	infos := []DefinitionInfo{}
	require.Equal(t, http.StatusOK, get("/definitions", &infos))
	require.Len(t, infos, 3)

	require.Equal(t, DefinitionInfo{
		Name:       "main",
		Type:       "di.plugin",
		Scope:      Singleton,
		Primary:    true,
		Autowire:   true,
		Qualifiers: map[string]string{"role": "main"},
		State:      "created",
	}, infos[0])

	require.Equal(t, "db", infos[1].Name)
	require.True(t, infos[1].Producer)
	require.Equal(t, "*di.conn", infos[1].ProductType)
	require.Equal(t, "*di.connProducer", infos[1].Type)

	require.Equal(t, Prototype, infos[2].Scope)
	require.False(t, infos[2].Autowire)
	require.Equal(t, "uncreated", infos[2].State)

	info := DefinitionInfo{}
	require.Equal(t, http.StatusOK, get("/definitions/tmp", &info))
	require.Equal(t, "tmp", info.Name)

	errBody := map[string]string{}
	require.Equal(t, http.StatusNotFound, get("/definitions/undefined", &errBody))
	require.Contains(t, errBody["error"], "undefined")

	singletons := SingletonsInfo{}
	require.Equal(t, http.StatusOK, get("/singletons", &singletons))
	require.Equal(t, ctn.ID(), singletons.Container)
	require.Equal(t, []string{"main", "&db"}, singletons.Singletons)
}
