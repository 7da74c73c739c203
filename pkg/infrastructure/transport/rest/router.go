package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"pos/pkg/domain/service"
	"pos/pkg/infrastructure/transport"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	orders   service.OrderService
	tables   service.TableService
	payments service.PaymentService
	logger   log.FieldLogger
}

func Router(services *service.Services, logger log.FieldLogger) http.Handler {
	h := &Handler{
		orders:   services.Orders,
		tables:   services.Tables,
		payments: services.Payments,
		logger:   logger,
	}

	r := mux.NewRouter()
	s := r.PathPrefix("/api/v1").Subrouter()

	s.HandleFunc("/health", h.health).Methods(http.MethodGet)

	s.HandleFunc("/orders", h.createOrder).Methods(http.MethodPost)
	s.HandleFunc("/orders", h.listOrders).Methods(http.MethodGet)
	s.HandleFunc("/orders/{orderID}", h.getOrder).Methods(http.MethodGet)
	s.HandleFunc("/orders/{orderID}", h.deleteOrder).Methods(http.MethodDelete)
	s.HandleFunc("/orders/{orderID}/status", h.updateOrderStatus).Methods(http.MethodPatch)
	s.HandleFunc("/orders/{orderID}/discount", h.applyDiscount).Methods(http.MethodPatch)
	s.HandleFunc("/orders/{orderID}/recalculate", h.recalculate).Methods(http.MethodPost)
	s.HandleFunc("/orders/{orderID}/items", h.addLineItem).Methods(http.MethodPost)
	s.HandleFunc("/orders/{orderID}/items/{itemID}", h.updateLineItem).Methods(http.MethodPatch)
	s.HandleFunc("/orders/{orderID}/items/{itemID}", h.removeLineItem).Methods(http.MethodDelete)
	s.HandleFunc("/orders/{orderID}/pay", h.processPayment).Methods(http.MethodPost)
	s.HandleFunc("/orders/{orderID}/payment", h.paymentForOrder).Methods(http.MethodGet)

	s.HandleFunc("/payments", h.createPayment).Methods(http.MethodPost)
	s.HandleFunc("/payments", h.listPayments).Methods(http.MethodGet)
	s.HandleFunc("/payments/{paymentID}", h.getPayment).Methods(http.MethodGet)
	s.HandleFunc("/payments/{paymentID}", h.updatePayment).Methods(http.MethodPatch)
	s.HandleFunc("/payments/{paymentID}/refund", h.refund).Methods(http.MethodPost)

	s.HandleFunc("/tables/suggestions", h.suggestTables).Methods(http.MethodGet)
	s.HandleFunc("/tables/{tableID}", h.getTable).Methods(http.MethodGet)
	s.HandleFunc("/tables/{tableID}", h.deactivateTable).Methods(http.MethodDelete)
	s.HandleFunc("/tables/{tableID}/occupy", h.occupyTable).Methods(http.MethodPost)
	s.HandleFunc("/tables/{tableID}/release", h.releaseTable).Methods(http.MethodPost)
	s.HandleFunc("/tables/{tableID}/orders", h.activeOrdersForTable).Methods(http.MethodGet)

	return logMiddleware(r, logger)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.WithError(err).Error("encode response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(b); err != nil {
		h.logger.WithField("err", err).Error("write response status")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp, c := transport.NewErrorResponse(err)
	entry := h.logger.WithError(err).WithFields(log.Fields{"method": r.Method, "url": r.URL.Path, "code": c.Code})
	if c.HTTPStatus >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}
	h.writeJSON(w, c.HTTPStatus, resp)
}

func decode(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(transport.ErrMalformedRequest, err.Error())
	}
	if err := json.Unmarshal(body, v); err != nil {
		if errors.Is(err, transport.ErrMalformedRequest) {
			return err
		}
		return errors.Wrap(transport.ErrMalformedRequest, err.Error())
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, errors.Wrapf(transport.ErrMalformedRequest, "%s", name)
	}
	return id, nil
}

func queryID(r *http.Request, name string) (*uuid.UUID, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, errors.Wrapf(transport.ErrMalformedRequest, "%s", name)
	}
	return &id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(transport.ErrMalformedRequest, "%s", name)
	}
	return n, nil
}

func logMiddleware(h http.Handler, logger log.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}
