package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos/pkg/domain/model"
	"pos/pkg/domain/service"
	"pos/pkg/infrastructure/memory"
	"pos/pkg/infrastructure/transport"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

type server struct {
	handler      http.Handler
	store        *memory.Store
	restaurantID uuid.UUID
	waiterID     uuid.UUID
	burger       model.MenuItem
	fries        model.MenuItem
}

func newServer(t *testing.T) *server {
	t.Helper()
	logger, _ := test.NewNullLogger()

	s := &server{
		store:        memory.NewStore(),
		restaurantID: uuid.New(),
		waiterID:     uuid.New(),
		burger:       model.MenuItem{ID: uuid.New(), Name: "Burger", PriceCents: 1150, Available: true},
		fries:        model.MenuItem{ID: uuid.New(), Name: "Fries", PriceCents: 400, Available: true},
	}
	services := service.NewServices(service.Dependencies{
		UnitOfWork: s.store,
		Catalog:    memory.NewCatalog(s.burger, s.fries),
		Customers:  memory.NewCustomerDirectory(),
		Staff:      memory.NewStaffDirectory(model.Staff{ID: s.waiterID, RestaurantID: s.restaurantID, Name: "Ann", Role: "WAITER"}),
		Clock:      fixedClock(time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)),
		Logger:     logger,
	})
	s.handler = Router(services, logger)
	return s
}

func (s *server) addTable(t *testing.T, number, capacity int) uuid.UUID {
	t.Helper()
	table := model.Table{
		ID:           uuid.New(),
		RestaurantID: s.restaurantID,
		TableNumber:  number,
		Capacity:     capacity,
		Status:       model.TableAvailable,
		Active:       true,
	}
	require.NoError(t, s.store.Execute(context.Background(), func(provider model.RepositoryProvider) error {
		return provider.TableRepository().Create(&table)
	}))
	return table.ID
}

func (s *server) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *server) createOrder(t *testing.T, tableID *uuid.UUID) transport.OrderResponse {
	t.Helper()
	req := transport.CreateOrderRequest{
		RestaurantID: s.restaurantID,
		WaiterID:     s.waiterID,
		OrderType:    string(model.Takeaway),
		Items: []transport.CreateOrderItemRequest{
			{MenuItemID: s.burger.ID, Quantity: 2, UnitPrice: transport.Money(s.burger.PriceCents)},
			{MenuItemID: s.fries.ID, Quantity: 1, UnitPrice: transport.Money(s.fries.PriceCents)},
		},
	}
	if tableID != nil {
		req.OrderType = string(model.DineIn)
		req.TableID = tableID
		req.PartySize = 2
	}
	rec := s.do(t, http.MethodPost, "/api/v1/orders", req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp transport.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) transport.ErrorResponse {
	t.Helper()
	var resp transport.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateDineInOrder(t *testing.T) {
	s := newServer(t)
	tableID := s.addTable(t, 7, 4)

	order := s.createOrder(t, &tableID)

	assert.Equal(t, "ORD-20240315-0001", order.OrderNumber)
	assert.Equal(t, "PENDING", order.Status)
	assert.Equal(t, transport.Money(2700), order.Total)
	assert.Len(t, order.Items, 2)
	require.NotNil(t, order.Table)
	assert.Equal(t, "OCCUPIED", order.Table.Status)
	require.NotNil(t, order.Waiter)
	assert.Equal(t, "Ann", order.Waiter.Name)

	rec := s.do(t, http.MethodGet, "/api/v1/tables/"+tableID.String()+"/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var active []transport.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	require.Len(t, active, 1)
	assert.Equal(t, order.ID, active[0].ID)
}

func TestCreateOrderRejections(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/orders", `{"restaurantId": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MALFORMED_REQUEST", decodeError(t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/v1/orders", transport.CreateOrderRequest{
		RestaurantID: s.restaurantID,
		WaiterID:     s.waiterID,
		OrderType:    string(model.DineIn),
		Items:        []transport.CreateOrderItemRequest{{MenuItemID: s.fries.ID, Quantity: 1, UnitPrice: 400}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ORDER_TYPE", decodeError(t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusTransitionError(t *testing.T) {
	s := newServer(t)
	order := s.createOrder(t, nil)

	rec := s.do(t, http.MethodPatch, "/api/v1/orders/"+order.ID.String()+"/status", transport.UpdateStatusRequest{Status: "SERVED"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "INVALID_TRANSITION", resp.Code)
	assert.Equal(t, "PENDING", resp.Details["from"])
	assert.Equal(t, []interface{}{"CONFIRMED", "CANCELLED"}, resp.Details["allowed"])

	rec = s.do(t, http.MethodPatch, "/api/v1/orders/"+order.ID.String()+"/status", transport.UpdateStatusRequest{Status: "EATEN"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_STATUS", decodeError(t, rec).Code)
}

func TestLineItemsAndDiscount(t *testing.T) {
	s := newServer(t)
	order := s.createOrder(t, nil)
	base := "/api/v1/orders/" + order.ID.String()

	rec := s.do(t, http.MethodPost, base+"/items", transport.AddItemRequest{MenuItemID: s.fries.ID, Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var updated transport.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, transport.Money(3500), updated.Total)
	require.Len(t, updated.Items, 3)

	quantity := 3
	rec = s.do(t, http.MethodPatch, base+"/items/"+updated.Items[0].ID.String(), transport.UpdateItemRequest{Quantity: &quantity})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPatch, base+"/discount", `{"discount": 5.00}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, updated.Subtotal-500, updated.Total)
	assert.Equal(t, transport.Money(500), updated.Discount)

	rec = s.do(t, http.MethodDelete, base+"/items/"+updated.Items[1].ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodDelete, base+"/items/"+updated.Items[2].ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodDelete, base+"/items/"+updated.Items[0].ID.String(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "LAST_ITEM_PROTECTED", decodeError(t, rec).Code)

	rec = s.do(t, http.MethodPost, base+"/recalculate", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPayAndRefund(t *testing.T) {
	s := newServer(t)
	tableID := s.addTable(t, 3, 2)
	order := s.createOrder(t, &tableID)
	base := "/api/v1/orders/" + order.ID.String()
	for _, status := range []string{"CONFIRMED", "IN_PROGRESS", "COMPLETED"} {
		rec := s.do(t, http.MethodPatch, base+"/status", transport.UpdateStatusRequest{Status: status})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := s.do(t, http.MethodPost, base+"/pay", transport.ProcessPaymentRequest{Method: "CARD", TransactionID: "txn-42"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var payment transport.PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payment))
	assert.Equal(t, "COMPLETED", payment.Status)
	assert.Equal(t, order.Total, payment.Amount)
	assert.Regexp(t, `^PAY-20240315-[0-9A-F]{8}$`, payment.PaymentNumber)

	rec = s.do(t, http.MethodGet, base, nil)
	var paid transport.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paid))
	assert.Equal(t, "PAID", paid.Status)
	require.NotNil(t, paid.Payment)

	rec = s.do(t, http.MethodGet, base+"/payment", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/payments/"+payment.ID.String()+"/refund", transport.RefundRequest{Notes: "cold food"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payment))
	assert.Equal(t, "REFUNDED", payment.Status)

	rec = s.do(t, http.MethodPost, "/api/v1/payments/"+payment.ID.String()+"/refund", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_STATE", decodeError(t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/v1/payments?status=REFUNDED&restaurantId="+s.restaurantID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var payments []transport.PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payments))
	assert.Len(t, payments, 1)
}

func TestCreatePaymentAmountMismatch(t *testing.T) {
	s := newServer(t)
	order := s.createOrder(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/payments", transport.CreatePaymentRequest{
		OrderID: order.ID,
		Amount:  order.Total - 1,
		Method:  "CASH",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "AMOUNT_MISMATCH", resp.Code)
	assert.Equal(t, "payment amount (26.99) must match order total (27.00)", resp.Error)
}

func TestTables(t *testing.T) {
	s := newServer(t)
	small := s.addTable(t, 1, 2)
	large := s.addTable(t, 2, 6)

	rec := s.do(t, http.MethodGet, "/api/v1/tables/suggestions?partySize=4&restaurantId="+s.restaurantID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tables []transport.TableResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tables))
	require.Len(t, tables, 1)
	assert.Equal(t, large, tables[0].ID)

	rec = s.do(t, http.MethodGet, "/api/v1/tables/suggestions?partySize=4", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/tables/"+small.String()+"/release", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "TABLE_NOT_OCCUPIED", decodeError(t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/v1/tables/"+small.String()+"/occupy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/v1/tables/"+small.String()+"/release", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/tables/"+small.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/tables/"+small.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAndDeleteOrders(t *testing.T) {
	s := newServer(t)
	first := s.createOrder(t, nil)
	second := s.createOrder(t, nil)
	rec := s.do(t, http.MethodPatch, "/api/v1/orders/"+second.ID.String()+"/status", transport.UpdateStatusRequest{Status: "CANCELLED"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/orders?status=PENDING&restaurantId="+s.restaurantID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []transport.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, first.ID, orders[0].ID)

	rec = s.do(t, http.MethodGet, "/api/v1/orders?type=BOAT", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/orders/"+first.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/orders/"+first.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
