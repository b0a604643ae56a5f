// Package cloudapi declares the subtrack.v1.Cloud gRPC service. Every request
// and response is a google.protobuf.Struct, so the stock proto codec carries
// it without generated message types.
package cloudapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified service name.
const ServiceName = "subtrack.v1.Cloud"

// Method names.
const (
	MethodSignUp             = "SignUp"
	MethodSignIn             = "SignIn"
	MethodGetUser            = "GetUser"
	MethodInsertSubscription = "InsertSubscription"
	MethodUpdateSubscription = "UpdateSubscription"
	MethodDeleteSubscription = "DeleteSubscription"
	MethodListSubscriptions  = "ListSubscriptions"
)

// FullMethod returns "/subtrack.v1.Cloud/<name>".
func FullMethod(name string) string { return "/" + ServiceName + "/" + name }

// CloudServer is the server API.
type CloudServer interface {
	SignUp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SignIn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	InsertSubscription(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateSubscription(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteSubscription(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSubscriptions(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedCloudServer answers Unimplemented to every method.
type UnimplementedCloudServer struct{}

func (UnimplementedCloudServer) SignUp(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SignUp not implemented")
}
func (UnimplementedCloudServer) SignIn(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SignIn not implemented")
}
func (UnimplementedCloudServer) GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetUser not implemented")
}
func (UnimplementedCloudServer) InsertSubscription(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method InsertSubscription not implemented")
}
func (UnimplementedCloudServer) UpdateSubscription(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateSubscription not implemented")
}
func (UnimplementedCloudServer) DeleteSubscription(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteSubscription not implemented")
}
func (UnimplementedCloudServer) ListSubscriptions(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListSubscriptions not implemented")
}

type unaryFn func(CloudServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, fn unaryFn) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(CloudServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(srv.(CloudServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the Cloud service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CloudServer)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodSignUp, CloudServer.SignUp),
		method(MethodSignIn, CloudServer.SignIn),
		method(MethodGetUser, CloudServer.GetUser),
		method(MethodInsertSubscription, CloudServer.InsertSubscription),
		method(MethodUpdateSubscription, CloudServer.UpdateSubscription),
		method(MethodDeleteSubscription, CloudServer.DeleteSubscription),
		method(MethodListSubscriptions, CloudServer.ListSubscriptions),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "subtrack/v1/cloud.proto",
}

// RegisterCloudServer registers srv on s.
func RegisterCloudServer(s grpc.ServiceRegistrar, srv CloudServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// CloudClient is the client API.
type CloudClient interface {
	SignUp(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SignIn(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetUser(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	InsertSubscription(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	UpdateSubscription(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	DeleteSubscription(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListSubscriptions(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type cloudClient struct {
	cc grpc.ClientConnInterface
}

// NewCloudClient returns a client stub over cc.
func NewCloudClient(cc grpc.ClientConnInterface) CloudClient { return &cloudClient{cc: cc} }

func (c *cloudClient) invoke(ctx context.Context, name string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *cloudClient) SignUp(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSignUp, in, opts)
}
func (c *cloudClient) SignIn(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSignIn, in, opts)
}
func (c *cloudClient) GetUser(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetUser, in, opts)
}
func (c *cloudClient) InsertSubscription(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodInsertSubscription, in, opts)
}
func (c *cloudClient) UpdateSubscription(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodUpdateSubscription, in, opts)
}
func (c *cloudClient) DeleteSubscription(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodDeleteSubscription, in, opts)
}
func (c *cloudClient) ListSubscriptions(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListSubscriptions, in, opts)
}
