package cloudapi

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type echoServer struct {
	UnimplementedCloudServer
}

func (echoServer) GetUser(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return in, nil
}

func TestServiceDesc_RoundTripAndInterceptor(t *testing.T) {
	t.Parallel()

	lis := bufconn.Listen(1 << 20)
	var seen string
	gs := grpc.NewServer(grpc.UnaryInterceptor(func(ctx context.Context, req any, info *grpc.UnaryServerInfo, h grpc.UnaryHandler) (any, error) {
		seen = info.FullMethod
		return h(ctx, req)
	}))
	RegisterCloudServer(gs, echoServer{})
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })
	cl := NewCloudClient(cc)

	in, _ := structpb.NewStruct(map[string]any{"k": "v"})
	out, err := cl.GetUser(context.Background(), in)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if out.GetFields()["k"].GetStringValue() != "v" {
		t.Fatalf("echo mismatch: %v", out)
	}
	if seen != "/subtrack.v1.Cloud/GetUser" {
		t.Fatalf("interceptor saw %q", seen)
	}

	_, err = cl.SignIn(context.Background(), &structpb.Struct{})
	if status.Code(err) != codes.Unimplemented {
		t.Fatalf("want Unimplemented, got %v", err)
	}
}
