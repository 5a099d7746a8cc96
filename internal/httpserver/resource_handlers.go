package httpserver

import (
	"net/http"
	"strconv"

	resourceusecase "backoffice/boilerplate/internal/usecase/resource"
)

type resourceHandler[T resourceusecase.Record] struct {
	srv     *Server
	gateway *resourceusecase.Gateway[T]
}

// MountResource registers the bearer-protected CRUD routes of gateway under
// {base}/{name}.
func MountResource[T resourceusecase.Record](s *Server, gateway *resourceusecase.Gateway[T]) {
	h := &resourceHandler[T]{srv: s, gateway: gateway}
	prefix := "/" + gateway.Name()
	authenticated := s.authMiddleware

	s.router.Handle(s.route(http.MethodPost, prefix+"/add"), authenticated(http.HandlerFunc(h.add)))
	s.router.Handle(s.route(http.MethodGet, prefix+"/list"), authenticated(http.HandlerFunc(h.list)))
	s.router.Handle(s.route(http.MethodGet, prefix+"/single/{field}/{value}"), authenticated(http.HandlerFunc(h.single)))
	s.router.Handle(s.route(http.MethodPost, prefix+"/edit/{field}/{value}"), authenticated(http.HandlerFunc(h.edit)))
	s.router.Handle(s.route(http.MethodDelete, prefix+"/delete/{field}/{value}"), authenticated(http.HandlerFunc(h.destroy)))
}

func (h *resourceHandler[T]) add(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.srv.fail(w, r, err)
		return
	}
	item, err := h.gateway.Create(r.Context(), callerID(r), body)
	if err != nil {
		h.srv.fail(w, r, err)
		return
	}
	writeSuccess(w, messageOK, item)
}

// list paginates only when page and size are both positive integers.
func (h *resourceHandler[T]) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.gateway.List(r.Context())
	if err != nil {
		h.srv.fail(w, r, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if page > 0 && size > 0 {
		writeSuccess(w, messageOK, resourceusecase.Paginate(items, page, size))
		return
	}
	writeSuccess(w, messageOK, items)
}

func (h *resourceHandler[T]) single(w http.ResponseWriter, r *http.Request) {
	item, err := h.gateway.Single(r.Context(), r.PathValue("field"), r.PathValue("value"))
	if err != nil {
		h.srv.fail(w, r, err)
		return
	}
	writeSuccess(w, messageOK, item)
}

func (h *resourceHandler[T]) edit(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.srv.fail(w, r, err)
		return
	}
	item, err := h.gateway.Edit(r.Context(), callerID(r), r.PathValue("field"), r.PathValue("value"), body)
	if err != nil {
		h.srv.fail(w, r, err)
		return
	}
	writeSuccess(w, "Updated successfully", item)
}

func (h *resourceHandler[T]) destroy(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.Destroy(r.Context(), r.PathValue("field"), r.PathValue("value")); err != nil {
		h.srv.fail(w, r, err)
		return
	}
	writeSuccess(w, "Deleted successfully", struct{}{})
}
