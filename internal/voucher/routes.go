package voucher

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/balance-assist", h.BalanceAssist)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/transition", h.Transition)
	r.Post("/{id}/revert", h.Revert)
	r.Delete("/{id}", h.Delete)
}
