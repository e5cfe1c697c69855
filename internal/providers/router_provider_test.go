package providers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

func serve(h http.Handler, method string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/objects", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouterProvider_KeepsRegistrationOrder(t *testing.T) {
	rp := NewRouterProvider()
	rp.Get("/channels", textHandler("c"))
	rp.Post("/channels/restart", textHandler("r"))
	rp.Get("/stations", textHandler("s"))

	routes := rp.GetRoutes()
	require.Len(t, routes, 3)
	assert.Equal(t, "/channels", routes[0].Url)
	assert.Equal(t, []string{http.MethodGet}, routes[0].Methods)
	assert.Equal(t, "/channels/restart", routes[1].Url)
	assert.Equal(t, []string{http.MethodPost}, routes[1].Methods)
	assert.Equal(t, "/stations", routes[2].Url)
}

func TestRouterProvider_SharedUrlDispatchesOnMethod(t *testing.T) {
	rp := NewRouterProvider()
	rp.Get("/objects", textHandler("list"))
	rp.Post("/objects", textHandler("create"))

	routes := rp.GetRoutes()
	require.Len(t, routes, 1)
	assert.Equal(t, []string{http.MethodGet, http.MethodPost}, routes[0].Methods)

	h := routes[0].Handler
	assert.Equal(t, "list", serve(h, http.MethodGet).Body.String())
	assert.Equal(t, "create", serve(h, http.MethodPost).Body.String())
}

func TestRouterProvider_WrongMethod(t *testing.T) {
	rp := NewRouterProvider()
	rp.Get("/objects", textHandler("list"))
	rp.Post("/objects", textHandler("create"))

	rr := serve(rp.GetRoutes()[0].Handler, http.MethodDelete)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, POST", rr.Header().Get("Allow"))
}

func TestRouterProvider_HeadFallsBackToGet(t *testing.T) {
	rp := NewRouterProvider()
	rp.Get("/objects", textHandler("list"))
	rp.Post("/channels/restart", textHandler("r"))

	routes := rp.GetRoutes()
	assert.Equal(t, http.StatusOK, serve(routes[0].Handler, http.MethodHead).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(routes[1].Handler, http.MethodHead).Code)
}

func TestRouterProvider_DuplicatePanics(t *testing.T) {
	rp := NewRouterProvider()
	rp.Get("/objects", textHandler("a"))
	assert.Panics(t, func() { rp.Get("/objects", textHandler("b")) })
}
