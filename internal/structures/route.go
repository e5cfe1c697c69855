package structures

import "net/http"

// Route is one url with the methods it answers. Handler dispatches on the
// request method.
type Route struct {
	Url     string
	Methods []string
	Handler http.Handler
}
