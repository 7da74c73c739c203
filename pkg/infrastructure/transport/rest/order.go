package rest

import (
	"net/http"

	"pos/pkg/domain/model"
	"pos/pkg/infrastructure/transport"
)

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req transport.CreateOrderRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.orders.CreateOrder(r.Context(), req.Params())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, transport.NewOrderResponse(view))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewOrderResponse(view))
}

// listOrders filters by restaurantId, tableId, waiterId, type and any number
// of status parameters.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var (
		filter model.OrderFilter
		err    error
	)
	if filter.RestaurantID, err = queryID(r, "restaurantId"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.TableID, err = queryID(r, "tableId"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.WaiterID, err = queryID(r, "waiterId"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if value := r.URL.Query().Get("type"); value != "" {
		orderType := model.OrderType(value)
		if !orderType.Valid() {
			h.writeError(w, r, model.ErrInvalidOrderType)
			return
		}
		filter.Type = &orderType
	}
	for _, value := range r.URL.Query()["status"] {
		status, err := model.ParseOrderStatus(value)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	orders, err := h.orders.ListOrders(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewOrderSummaries(orders))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req transport.UpdateStatusRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	status, err := model.ParseOrderStatus(req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.orders.UpdateOrderStatus(r.Context(), orderID, status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewOrderResponse(view))
}

func (h *Handler) applyDiscount(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req transport.DiscountRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.orders.ApplyDiscount(r.Context(), orderID, req.Discount.Cents())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewOrderResponse(view))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.orders.DeleteOrder(r.Context(), orderID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recalculate(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.orders.Recalculate(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewOrderResponse(view))
}

func (h *Handler) addLineItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req transport.AddItemRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.orders.AddLineItem(r.Context(), orderID, req.Params())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, transport.NewOrderResponse(view))
}

func (h *Handler) updateLineItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req transport.UpdateItemRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.orders.UpdateLineItem(r.Context(), orderID, itemID, req.Params())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewOrderResponse(view))
}

func (h *Handler) removeLineItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.orders.RemoveLineItem(r.Context(), orderID, itemID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewOrderResponse(view))
}
