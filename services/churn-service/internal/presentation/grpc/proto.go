package grpc

// proto.go defines the server interface for churn.v1.ChurnService. Messages
// are plain structs carried by the JSON codec.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Full method names.
const (
	MethodPredict                 = "/churn.v1.ChurnService/Predict"
	MethodGetPrediction           = "/churn.v1.ChurnService/GetPrediction"
	MethodListCustomerPredictions = "/churn.v1.ChurnService/ListCustomerPredictions"
)

// ChurnServiceServer is the server API for ChurnService.
type ChurnServiceServer interface {
	Predict(context.Context, *PredictRequest) (*PredictResponse, error)
	GetPrediction(context.Context, *GetPredictionRequest) (*GetPredictionResponse, error)
	ListCustomerPredictions(context.Context, *ListCustomerPredictionsRequest) (*ListCustomerPredictionsResponse, error)
	mustEmbedUnimplementedChurnServiceServer()
}

// UnimplementedChurnServiceServer provides forward-compatible default implementations.
type UnimplementedChurnServiceServer struct{}

func (UnimplementedChurnServiceServer) Predict(context.Context, *PredictRequest) (*PredictResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Predict not implemented")
}
func (UnimplementedChurnServiceServer) GetPrediction(context.Context, *GetPredictionRequest) (*GetPredictionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetPrediction not implemented")
}
func (UnimplementedChurnServiceServer) ListCustomerPredictions(context.Context, *ListCustomerPredictionsRequest) (*ListCustomerPredictionsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListCustomerPredictions not implemented")
}
func (UnimplementedChurnServiceServer) mustEmbedUnimplementedChurnServiceServer() {}

// RegisterChurnServiceServer registers the ChurnServiceServer with the gRPC server.
func RegisterChurnServiceServer(s grpclib.ServiceRegistrar, srv ChurnServiceServer) {
	s.RegisterService(&_ChurnService_serviceDesc, srv)
}

var _ChurnService_serviceDesc = grpclib.ServiceDesc{
	ServiceName: "churn.v1.ChurnService",
	HandlerType: (*ChurnServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "Predict", Handler: _ChurnService_Predict_Handler},
		{MethodName: "GetPrediction", Handler: _ChurnService_GetPrediction_Handler},
		{MethodName: "ListCustomerPredictions", Handler: _ChurnService_ListCustomerPredictions_Handler},
	},
	Streams:  []grpclib.StreamDesc{},
	Metadata: "churn/v1/churn.proto",
}

func _ChurnService_Predict_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
	req := new(PredictRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChurnServiceServer).Predict(ctx, req)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: MethodPredict}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChurnServiceServer).Predict(ctx, req.(*PredictRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _ChurnService_GetPrediction_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
	req := new(GetPredictionRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChurnServiceServer).GetPrediction(ctx, req)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: MethodGetPrediction}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChurnServiceServer).GetPrediction(ctx, req.(*GetPredictionRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func _ChurnService_ListCustomerPredictions_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
	req := new(ListCustomerPredictionsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChurnServiceServer).ListCustomerPredictions(ctx, req)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: MethodListCustomerPredictions}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChurnServiceServer).ListCustomerPredictions(ctx, req.(*ListCustomerPredictionsRequest))
	}
	return interceptor(ctx, req, info, handler)
}
