package httpapi

import (
	"net/http"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/cart"
	"github.com/R3E-Network/canteen_pos/internal/app/domain/money"
	"github.com/R3E-Network/canteen_pos/internal/app/session"
	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
	"github.com/R3E-Network/canteen_pos/internal/httputil"
)

func (h *handler) listShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.app.Catalog.ListShops(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, shops)
}

func (h *handler) getShop(w http.ResponseWriter, r *http.Request) {
	shopID, err := pathID(r, "shopID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sh, err := h.app.Catalog.GetShop(r.Context(), shopID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sh)
}

func (h *handler) shopMenu(w http.ResponseWriter, r *http.Request) {
	shopID, err := pathID(r, "shopID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	items, err := h.app.Catalog.ListMenu(r.Context(), shopID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

type cartView struct {
	Entries []cart.Entry `json:"entries"`
	Count   int          `json:"count"`
	Total   money.Cents  `json:"total"`
}

func viewCart(c cart.Cart) cartView {
	entries := c.Entries
	if entries == nil {
		entries = []cart.Entry{}
	}
	return cartView{Entries: entries, Count: c.Count(), Total: c.Total()}
}

func (h *handler) getCart(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, viewCart(currentSession(r).Cart))
}

type addItemRequest struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

// addCartItem resolves name, price and shop from the catalog; the client only
// names the item.
func (h *handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 || req.Quantity > cart.MaxQuantity {
		httputil.WriteError(w, apperrors.InvalidInput("quantity out of range").
			WithDetails("min", 1).
			WithDetails("max", cart.MaxQuantity))
		return
	}

	item, err := h.app.Catalog.GetMenuItem(r.Context(), req.ItemID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !item.Available {
		httputil.WriteError(w, apperrors.InvalidInput("item is not available").WithDetails("item_id", item.ID))
		return
	}

	sess := currentSession(r)
	updated, err := h.app.Sessions.Update(r.Context(), sess.ID, func(s *session.Session) error {
		if err := s.Cart.Add(cart.Entry{
			ItemID:   item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: req.Quantity,
			ShopID:   item.ShopID,
		}); err != nil {
			return apperrors.InvalidInput(err.Error())
		}
		return nil
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, viewCart(updated.Cart))
}

func (h *handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "itemID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sess := currentSession(r)
	updated, err := h.app.Sessions.Update(r.Context(), sess.ID, func(s *session.Session) error {
		if !s.Cart.Remove(itemID) {
			return apperrors.NotFound("cart item", itemID)
		}
		return nil
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, viewCart(updated.Cart))
}

func (h *handler) clearCart(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	updated, err := h.app.Sessions.Update(r.Context(), sess.ID, func(s *session.Session) error {
		s.Cart.Clear()
		return nil
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, viewCart(updated.Cart))
}

// checkout takes the cart out of the session before placing it, so a cart is
// charged at most once. A failed checkout puts the lines back.
func (h *handler) checkout(w http.ResponseWriter, r *http.Request) {
	var taken cart.Cart
	sess, err := h.app.Sessions.Update(r.Context(), currentSession(r).ID, func(s *session.Session) error {
		taken = s.Cart
		s.Cart = cart.Cart{}
		return nil
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	group, err := h.app.Checkout.Checkout(r.Context(), sess.Identity.SubjectID, taken)
	if err != nil {
		if !taken.IsEmpty() {
			h.restoreCart(r, sess.ID, taken)
		}
		httputil.WriteError(w, err)
		return
	}

	if _, err := h.app.Sessions.Update(r.Context(), sess.ID, func(s *session.Session) error {
		s.Balance = group.BalanceAfter
		return nil
	}); err != nil {
		h.log.WithError(err).WithField("session_id", sess.ID).Warn("refresh balance after checkout")
	}
	httputil.WriteJSON(w, http.StatusCreated, group)
}

// restoreCart puts taken back in front of anything added since it was taken.
func (h *handler) restoreCart(r *http.Request, sessionID string, taken cart.Cart) {
	_, err := h.app.Sessions.Update(r.Context(), sessionID, func(s *session.Session) error {
		restored := cart.Cart{Entries: append([]cart.Entry(nil), taken.Entries...)}
		if err := restored.Merge(s.Cart); err != nil {
			return err
		}
		s.Cart = restored
		return nil
	})
	if err != nil {
		h.log.WithError(err).WithField("session_id", sessionID).Warn("restore cart after failed checkout")
	}
}

func (h *handler) studentOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.app.Checkout.History(r.Context(), currentSession(r).Identity.SubjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orders)
}
