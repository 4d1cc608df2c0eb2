package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	adminsvc "github.com/R3E-Network/canteen_pos/internal/app/services/admin"
	"github.com/R3E-Network/canteen_pos/internal/httputil"
)

func (h *handler) adminListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.app.Admin.ListStudents(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, students)
}

func (h *handler) adminGetStudent(w http.ResponseWriter, r *http.Request) {
	st, err := h.app.Admin.GetStudent(r.Context(), mux.Vars(r)["studentID"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *handler) adminCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
		adminsvc.StudentInput
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	st, err := h.app.Admin.CreateStudent(r.Context(), req.ID, req.StudentInput)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, st)
}

// adminEditStudent replaces name and balance. An empty password keeps the
// current one.
func (h *handler) adminEditStudent(w http.ResponseWriter, r *http.Request) {
	var req adminsvc.StudentInput
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	st, err := h.app.Admin.EditStudent(r.Context(), mux.Vars(r)["studentID"], req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *handler) adminDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Admin.DeleteStudent(r.Context(), mux.Vars(r)["studentID"]); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) adminListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.app.Admin.ListShops(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, shops)
}

func (h *handler) adminCreateShop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		OwnerName string `json:"owner_name"`
		Password  string `json:"password"`
		ImageURL  string `json:"image_url"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	sh, err := h.app.Admin.CreateShop(r.Context(), req.Name, req.OwnerName, req.Password, req.ImageURL)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sh)
}
