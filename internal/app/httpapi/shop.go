package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/R3E-Network/canteen_pos/internal/app/domain/order"
	shopsvc "github.com/R3E-Network/canteen_pos/internal/app/services/shops"
	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
	"github.com/R3E-Network/canteen_pos/internal/httputil"
)

// sessionShopID is the id of the shop logged in on r.
func sessionShopID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(currentSession(r).Identity.SubjectID, 10, 64)
	if err != nil {
		return 0, apperrors.Unauthorized("session does not belong to a shop")
	}
	return id, nil
}

func (h *handler) shopListMenu(w http.ResponseWriter, r *http.Request) {
	shopID, err := sessionShopID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	items, err := h.app.Shops.ListMenuItems(r.Context(), shopID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (h *handler) shopAddMenuItem(w http.ResponseWriter, r *http.Request) {
	shopID, err := sessionShopID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req shopsvc.NewItem
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	item, err := h.app.Shops.AddMenuItem(r.Context(), shopID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, item)
}

func (h *handler) shopToggleItem(w http.ResponseWriter, r *http.Request) {
	shopID, err := sessionShopID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req struct {
		Available *bool `json:"available"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Available == nil {
		httputil.WriteError(w, apperrors.InvalidInput("available is required"))
		return
	}
	item, err := h.app.Shops.ToggleAvailability(r.Context(), shopID, itemID, *req.Available)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *handler) shopReport(w http.ResponseWriter, r *http.Request) {
	shopID, err := sessionShopID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	report, err := h.app.Shops.SalesReport(r.Context(), shopID, h.cfg.Now())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *handler) shopOrders(w http.ResponseWriter, r *http.Request) {
	shopID, err := sessionShopID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status := order.Status(r.URL.Query().Get("status"))
	orders, err := h.app.Shops.ListOrders(r.Context(), shopID, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orders)
}

func (h *handler) shopCompleteOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, h.app.Shops.CompleteOrder)
}

func (h *handler) shopCancelOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, h.app.Shops.CancelOrder)
}

func (h *handler) transitionOrder(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64, int64) (order.Order, error)) {
	shopID, err := sessionShopID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	orderID, err := pathID(r, "orderID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	updated, err := fn(r.Context(), shopID, orderID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

// shopOrderStream pushes order events for the logged-in shop over a
// websocket.
func (h *handler) shopOrderStream(w http.ResponseWriter, r *http.Request) {
	shopID, err := sessionShopID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.app.Hub.Serve(w, r, shopID); err != nil {
		// The upgrader has already written the failure response.
		h.log.WithError(err).WithField("shop_id", shopID).Debug("order stream upgrade failed")
	}
}
