package api

import (
	"github.com/julienschmidt/httprouter"

	"deskhub/pkg/contracts"
)

// Router aggregates the per-domain handlers into one contracts.Handler so
// the application can mount them behind a single middleware stack.
type Router struct {
	handlers []contracts.Handler
}

func NewRouter(handlers ...contracts.Handler) *Router {
	return &Router{handlers: handlers}
}

func (r *Router) RegisterRoutes(router *httprouter.Router) {
	for _, h := range r.handlers {
		h.RegisterRoutes(router)
	}
}
