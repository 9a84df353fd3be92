package transport

import "net/http"

type Handler interface {
	convert(w http.ResponseWriter, r *http.Request)
	submitOrders(w http.ResponseWriter, r *http.Request)
	notify(w http.ResponseWriter, r *http.Request)
	health(w http.ResponseWriter, r *http.Request)
}

type router struct {
	h       Handler
	metrics http.Handler
}

func NewRouter(h Handler, metrics http.Handler) *router {
	return &router{h: h, metrics: metrics}
}

func (r *router) MountRoutes(mux *http.ServeMux) *http.ServeMux {
	mux.HandleFunc("/convert", r.h.convert)
	mux.HandleFunc("/orders", r.h.submitOrders)
	mux.HandleFunc("/notify", r.h.notify)
	mux.HandleFunc("/health", r.h.health)
	if r.metrics != nil {
		mux.Handle("/metrics", r.metrics)
	}

	return mux
}
