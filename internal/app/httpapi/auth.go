package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/identity"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/money"
	"github.com/R3E-Network/canteen_pos/internal/app/session"
	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
	"github.com/R3E-Network/canteen_pos/internal/httputil"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type sessionView struct {
	Token     string            `json:"token,omitempty"`
	ExpiresAt time.Time         `json:"expires_at"`
	Identity  identity.Identity `json:"identity"`
	Balance   *money.Cents      `json:"balance,omitempty"`
	CartCount int               `json:"cart_count"`
	CartTotal money.Cents       `json:"cart_total"`
}

func viewOf(sess session.Session) sessionView {
	v := sessionView{
		ExpiresAt: sess.ExpiresAt,
		Identity:  sess.Identity,
		CartCount: sess.Cart.Count(),
		CartTotal: sess.Cart.Total(),
	}
	if sess.Identity.Role == identity.RoleStudent {
		balance := sess.Balance
		v.Balance = &balance
	}
	return v
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	role, ok := identity.ParseRole(mux.Vars(r)["role"])
	if !ok {
		httputil.WriteError(w, apperrors.NotFound("role", mux.Vars(r)["role"]))
		return
	}
	var req loginRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	principal, err := h.app.Auth.Authenticate(r.Context(), role, req.Identifier, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sess := session.New(principal.Identity, h.cfg.Tokens.TTL(), h.cfg.Now())
	sess.Balance = principal.Balance
	if err := h.app.Sessions.Save(r.Context(), sess); err != nil {
		httputil.WriteError(w, err)
		return
	}
	token, err := h.cfg.Tokens.Issue(sess)
	if err != nil {
		httputil.WriteError(w, apperrors.Internal("issue session token", err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	h.log.WithField("role", string(role)).WithField("subject", principal.Identity.SubjectID).Info("login")

	view := viewOf(sess)
	view.Token = token
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if err := h.app.Sessions.Delete(r.Context(), sess.ID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// me refreshes the cached balance so the header shows what checkout will see.
func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	principal, err := h.app.Auth.Refresh(r.Context(), sess.Identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	updated, err := h.app.Sessions.Update(r.Context(), sess.ID, func(s *session.Session) error {
		s.Identity = principal.Identity
		s.Balance = principal.Balance
		return nil
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, viewOf(updated))
}
