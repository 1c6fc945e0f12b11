// Package dihttp binds the container to net/http: one child scope per
// request, carried in the request context.
//
// # Usage
//
//	c := dicontainer.New()
//	c.Singleton("logger", newLogger)
//	c.Scoped("repo", newRepo, "logger")
//
//	r := dihttp.NewRouter(c)
//	r.Get("/users", func(w http.ResponseWriter, r *http.Request) {
//	    repo := dihttp.MustResolve[*Repository](r, "repo")
//	    ...
//	})
//
// Every request gets a fresh scope: Scoped services are shared within one
// request and disposed when it ends; Singletons are shared across requests.
// The scope's ID is echoed in the X-Scope-Id response header.
//
// ScopeMiddleware works with any chi or plain net/http stack; NewRouter is
// the batteries-included variant.
package dihttp
