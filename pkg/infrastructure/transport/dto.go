package transport

import (
	"time"

	"github.com/google/uuid"

	"pos/pkg/domain/model"
	"pos/pkg/domain/service"
)

type CreateOrderItemRequest struct {
	MenuItemID   uuid.UUID `json:"menuItemId"`
	Quantity     int       `json:"quantity"`
	UnitPrice    Money     `json:"unitPrice"`
	Instructions string    `json:"instructions,omitempty"`
}

type CreateOrderRequest struct {
	RestaurantID  uuid.UUID                `json:"restaurantId"`
	WaiterID      uuid.UUID                `json:"waiterId"`
	OrderType     string                   `json:"orderType"`
	TableID       *uuid.UUID               `json:"tableId,omitempty"`
	CustomerPhone string                   `json:"customerPhone,omitempty"`
	CustomerName  string                   `json:"customerName,omitempty"`
	PartySize     int                      `json:"partySize,omitempty"`
	Notes         string                   `json:"notes,omitempty"`
	TotalAmount   *Money                   `json:"totalAmount,omitempty"`
	Items         []CreateOrderItemRequest `json:"items"`
}

func (r CreateOrderRequest) Params() service.CreateOrderParams {
	params := service.CreateOrderParams{
		RestaurantID:  r.RestaurantID,
		WaiterID:      r.WaiterID,
		Type:          model.OrderType(r.OrderType),
		TableID:       r.TableID,
		CustomerPhone: r.CustomerPhone,
		CustomerName:  r.CustomerName,
		PartySize:     r.PartySize,
		Notes:         r.Notes,
	}
	if r.TotalAmount != nil {
		total := r.TotalAmount.Cents()
		params.DeclaredTotalCents = &total
	}
	for _, item := range r.Items {
		params.Items = append(params.Items, service.CreateOrderItemParams{
			MenuItemID:     item.MenuItemID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPrice.Cents(),
			Instructions:   item.Instructions,
		})
	}
	return params
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type DiscountRequest struct {
	Discount Money `json:"discount"`
}

type AddItemRequest struct {
	MenuItemID   uuid.UUID `json:"menuItemId"`
	Quantity     int       `json:"quantity"`
	Instructions string    `json:"instructions,omitempty"`
}

func (r AddItemRequest) Params() service.AddLineItemParams {
	return service.AddLineItemParams{MenuItemID: r.MenuItemID, Quantity: r.Quantity, Instructions: r.Instructions}
}

type UpdateItemRequest struct {
	Quantity     *int    `json:"quantity,omitempty"`
	Instructions *string `json:"instructions,omitempty"`
}

func (r UpdateItemRequest) Params() service.UpdateLineItemParams {
	return service.UpdateLineItemParams{Quantity: r.Quantity, Instructions: r.Instructions}
}

type ProcessPaymentRequest struct {
	Method        string `json:"method"`
	TransactionID string `json:"transactionId,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

func (r ProcessPaymentRequest) Params() service.ProcessPaymentParams {
	return service.ProcessPaymentParams{
		Method:        model.PaymentMethod(r.Method),
		TransactionID: r.TransactionID,
		Notes:         r.Notes,
	}
}

type CreatePaymentRequest struct {
	OrderID       uuid.UUID `json:"orderId"`
	Amount        Money     `json:"amount"`
	Method        string    `json:"method"`
	TransactionID string    `json:"transactionId,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Status        string    `json:"status,omitempty"`
}

func (r CreatePaymentRequest) Params() service.CreatePaymentParams {
	return service.CreatePaymentParams{
		OrderID:       r.OrderID,
		AmountCents:   r.Amount.Cents(),
		Method:        model.PaymentMethod(r.Method),
		TransactionID: r.TransactionID,
		Notes:         r.Notes,
		Status:        model.PaymentStatus(r.Status),
	}
}

type UpdatePaymentRequest struct {
	Method        *string `json:"method,omitempty"`
	TransactionID *string `json:"transactionId,omitempty"`
	Notes         *string `json:"notes,omitempty"`
	Status        *string `json:"status,omitempty"`
}

func (r UpdatePaymentRequest) Params() service.UpdatePaymentParams {
	params := service.UpdatePaymentParams{TransactionID: r.TransactionID, Notes: r.Notes}
	if r.Method != nil {
		method := model.PaymentMethod(*r.Method)
		params.Method = &method
	}
	if r.Status != nil {
		status := model.PaymentStatus(*r.Status)
		params.Status = &status
	}
	return params
}

type RefundRequest struct {
	Notes string `json:"notes,omitempty"`
}

type OrderItemResponse struct {
	ID           uuid.UUID `json:"id"`
	MenuItemID   uuid.UUID `json:"menuItemId"`
	Quantity     int       `json:"quantity"`
	UnitPrice    Money     `json:"unitPrice"`
	TotalPrice   Money     `json:"totalPrice"`
	Instructions string    `json:"instructions,omitempty"`
}

type TableResponse struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurantId"`
	TableNumber  int       `json:"tableNumber"`
	Capacity     int       `json:"capacity"`
	Status       string    `json:"status"`
	Active       bool      `json:"active"`
}

func NewTableResponse(t model.Table) TableResponse {
	return TableResponse{
		ID:           t.ID,
		RestaurantID: t.RestaurantID,
		TableNumber:  t.TableNumber,
		Capacity:     t.Capacity,
		Status:       string(t.Status),
		Active:       t.Active,
	}
}

func NewTableResponses(tables []model.Table) []TableResponse {
	resp := make([]TableResponse, 0, len(tables))
	for _, t := range tables {
		resp = append(resp, NewTableResponse(t))
	}
	return resp
}

type PaymentResponse struct {
	ID            uuid.UUID  `json:"id"`
	OrderID       uuid.UUID  `json:"orderId"`
	PaymentNumber string     `json:"paymentNumber"`
	Amount        Money      `json:"amount"`
	Method        string     `json:"method"`
	Status        string     `json:"status"`
	TransactionID string     `json:"transactionId,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func NewPaymentResponse(p model.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		PaymentNumber: p.PaymentNumber,
		Amount:        Money(p.AmountCents),
		Method:        string(p.Method),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		Notes:         p.Notes,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
	}
}

func NewPaymentResponses(payments []model.Payment) []PaymentResponse {
	resp := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, NewPaymentResponse(p))
	}
	return resp
}

type PersonResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone,omitempty"`
	Role  string    `json:"role,omitempty"`
}

type OrderResponse struct {
	ID           uuid.UUID           `json:"id"`
	RestaurantID uuid.UUID           `json:"restaurantId"`
	OrderNumber  string              `json:"orderNumber"`
	OrderType    string              `json:"orderType"`
	Status       string              `json:"status"`
	TableID      *uuid.UUID          `json:"tableId,omitempty"`
	WaiterID     uuid.UUID           `json:"waiterId"`
	CustomerID   *uuid.UUID          `json:"customerId,omitempty"`
	PartySize    int                 `json:"partySize,omitempty"`
	Subtotal     Money               `json:"subtotal"`
	Discount     Money               `json:"discount"`
	Total        Money               `json:"total"`
	Notes        string              `json:"notes,omitempty"`
	CompletedAt  *time.Time          `json:"completedAt,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
	Items        []OrderItemResponse `json:"items,omitempty"`
	Table        *TableResponse      `json:"table,omitempty"`
	Payment      *PaymentResponse    `json:"payment,omitempty"`
	Customer     *PersonResponse     `json:"customer,omitempty"`
	Waiter       *PersonResponse     `json:"waiter,omitempty"`
}

// NewOrderSummary renders the order row alone, as used by listings.
func NewOrderSummary(o model.Order) OrderResponse {
	return OrderResponse{
		ID:           o.ID,
		RestaurantID: o.RestaurantID,
		OrderNumber:  o.OrderNumber,
		OrderType:    string(o.Type),
		Status:       string(o.Status),
		TableID:      o.TableID,
		WaiterID:     o.WaiterID,
		CustomerID:   o.CustomerID,
		PartySize:    o.PartySize,
		Subtotal:     Money(o.SubtotalCents),
		Discount:     Money(o.DiscountCents),
		Total:        Money(o.TotalCents),
		Notes:        o.Notes,
		CompletedAt:  o.CompletedAt,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

func NewOrderSummaries(orders []model.Order) []OrderResponse {
	resp := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, NewOrderSummary(o))
	}
	return resp
}

func NewOrderResponse(view *model.OrderView) OrderResponse {
	resp := NewOrderSummary(view.Order)
	resp.Items = make([]OrderItemResponse, 0, len(view.Items))
	for _, item := range view.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:           item.ID,
			MenuItemID:   item.MenuItemID,
			Quantity:     item.Quantity,
			UnitPrice:    Money(item.UnitPriceCents),
			TotalPrice:   Money(item.TotalPriceCents),
			Instructions: item.SpecialInstructions,
		})
	}
	if view.Table != nil {
		table := NewTableResponse(*view.Table)
		resp.Table = &table
	}
	if view.Payment != nil {
		payment := NewPaymentResponse(*view.Payment)
		resp.Payment = &payment
	}
	if view.Customer != nil {
		resp.Customer = &PersonResponse{ID: view.Customer.ID, Name: view.Customer.Name, Phone: view.Customer.Phone}
	}
	if view.Waiter != nil {
		resp.Waiter = &PersonResponse{ID: view.Waiter.ID, Name: view.Waiter.Name, Role: view.Waiter.Role}
	}
	return resp
}
