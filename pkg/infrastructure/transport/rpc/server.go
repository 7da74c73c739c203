package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"pos/pkg/domain/model"
	"pos/pkg/domain/service"
	"pos/pkg/infrastructure/transport"
)

const ServiceName = "pos.v1.OrderService"

// OrderServiceServer exposes the order coordinator to terminals. Messages are
// JSON objects carried as google.protobuf.Struct with the same field names as
// the HTTP API.
type OrderServiceServer interface {
	CreateOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	UpdateOrderStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	AddLineItem(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ProcessPayment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateOrder", OrderServiceServer.CreateOrder),
		unary("GetOrder", OrderServiceServer.GetOrder),
		unary("UpdateOrderStatus", OrderServiceServer.UpdateOrderStatus),
		unary("AddLineItem", OrderServiceServer.AddLineItem),
		unary("ProcessPayment", OrderServiceServer.ProcessPayment),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pos/v1/order.proto",
}

func unary(method string, call func(OrderServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(OrderServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(OrderServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

type Server struct {
	orders   service.OrderService
	payments service.PaymentService
}

var _ OrderServiceServer = &Server{}

// NewServer returns a grpc server with the order service and the standard
// health service registered.
func NewServer(services *service.Services, logger log.FieldLogger) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(logInterceptor(logger)))
	s.RegisterService(&serviceDesc, &Server{orders: services.Orders, payments: services.Payments})

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthServer)
	return s
}

type orderRef struct {
	ID uuid.UUID `json:"id"`
}

type statusRequest struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type lineItemRequest struct {
	OrderID uuid.UUID `json:"orderId"`
	transport.AddItemRequest
}

type paymentRequest struct {
	OrderID uuid.UUID `json:"orderId"`
	transport.ProcessPaymentRequest
}

func (s *Server) CreateOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req transport.CreateOrderRequest
	if err := decode(in, &req); err != nil {
		return nil, statusError(err)
	}
	view, err := s.orders.CreateOrder(ctx, req.Params())
	if err != nil {
		return nil, statusError(err)
	}
	return encode(transport.NewOrderResponse(view))
}

func (s *Server) GetOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req orderRef
	if err := decode(in, &req); err != nil {
		return nil, statusError(err)
	}
	view, err := s.orders.GetOrder(ctx, req.ID)
	if err != nil {
		return nil, statusError(err)
	}
	return encode(transport.NewOrderResponse(view))
}

func (s *Server) UpdateOrderStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req statusRequest
	if err := decode(in, &req); err != nil {
		return nil, statusError(err)
	}
	orderStatus, err := model.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, statusError(err)
	}
	view, err := s.orders.UpdateOrderStatus(ctx, req.ID, orderStatus)
	if err != nil {
		return nil, statusError(err)
	}
	return encode(transport.NewOrderResponse(view))
}

func (s *Server) AddLineItem(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req lineItemRequest
	if err := decode(in, &req); err != nil {
		return nil, statusError(err)
	}
	view, err := s.orders.AddLineItem(ctx, req.OrderID, req.Params())
	if err != nil {
		return nil, statusError(err)
	}
	return encode(transport.NewOrderResponse(view))
}

func (s *Server) ProcessPayment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req paymentRequest
	if err := decode(in, &req); err != nil {
		return nil, statusError(err)
	}
	// A payment returned with an error was recorded; only the order status
	// update failed, which the payment service has already logged.
	payment, err := s.payments.ProcessPayment(ctx, req.OrderID, req.Params())
	if payment == nil {
		return nil, statusError(err)
	}
	return encode(transport.NewPaymentResponse(*payment))
}

func decode(in *structpb.Struct, v interface{}) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return errors.Wrap(transport.ErrMalformedRequest, err.Error())
	}
	if err := json.Unmarshal(data, v); err != nil {
		if errors.Is(err, transport.ErrMalformedRequest) {
			return err
		}
		return errors.Wrap(transport.ErrMalformedRequest, err.Error())
	}
	return nil
}

func encode(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

func statusError(err error) error {
	resp, c := transport.NewErrorResponse(err)
	return status.Error(c.GRPCCode, resp.Error)
}

func logInterceptor(logger log.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		entry := logger.WithFields(log.Fields{
			"method":   info.FullMethod,
			"code":     status.Code(err).String(),
			"duration": time.Since(start).String(),
		})
		if err != nil {
			entry.WithError(err).Info("rpc failed")
		} else {
			entry.Info("got a new rpc")
		}
		return resp, err
	}
}
