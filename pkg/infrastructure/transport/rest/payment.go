package rest

import (
	"net/http"

	"pos/pkg/domain/model"
	"pos/pkg/infrastructure/transport"
)

// processPayment settles the order with its current total.
func (h *Handler) processPayment(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req transport.ProcessPaymentRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	payment, err := h.payments.ProcessPayment(r.Context(), orderID, req.Params())
	if payment != nil && err != nil {
		// The payment is recorded even though the order status was not.
		h.logger.WithError(err).WithField("payment_id", payment.ID).Warn("payment processed with order update failure")
		err = nil
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewPaymentResponse(*payment))
}

func (h *Handler) paymentForOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	payment, err := h.payments.PaymentForOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewPaymentResponse(*payment))
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req transport.CreatePaymentRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	payment, err := h.payments.CreatePayment(r.Context(), req.Params())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, transport.NewPaymentResponse(*payment))
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	var (
		filter model.PaymentFilter
		err    error
	)
	if filter.RestaurantID, err = queryID(r, "restaurantId"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if value := r.URL.Query().Get("status"); value != "" {
		status := model.PaymentStatus(value)
		if !status.Valid() {
			h.writeError(w, r, model.ErrInvalidStatus)
			return
		}
		filter.Status = &status
	}

	payments, err := h.payments.ListPayments(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewPaymentResponses(payments))
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := pathID(r, "paymentID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	payment, err := h.payments.GetPayment(r.Context(), paymentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewPaymentResponse(*payment))
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := pathID(r, "paymentID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req transport.UpdatePaymentRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	payment, err := h.payments.UpdatePayment(r.Context(), paymentID, req.Params())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewPaymentResponse(*payment))
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	paymentID, err := pathID(r, "paymentID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req transport.RefundRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	payment, err := h.payments.Refund(r.Context(), paymentID, req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transport.NewPaymentResponse(*payment))
}
