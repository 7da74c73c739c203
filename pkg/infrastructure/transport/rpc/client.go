package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the order service on a remote coordinator.
type Client struct {
	cc grpc.ClientConnInterface
}

var _ OrderServiceServer = &Client{}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) CreateOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return c.invoke(ctx, "CreateOrder", in)
}

func (c *Client) GetOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetOrder", in)
}

func (c *Client) UpdateOrderStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return c.invoke(ctx, "UpdateOrderStatus", in)
}

func (c *Client) AddLineItem(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return c.invoke(ctx, "AddLineItem", in)
}

func (c *Client) ProcessPayment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return c.invoke(ctx, "ProcessPayment", in)
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}
