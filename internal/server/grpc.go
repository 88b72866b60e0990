package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/sumanths012/SymptoSense/internal/common"
)

const extractionServiceName = "symptosense.v1.ExtractionService"

// ExtractionServer is the gRPC surface. Messages are google.protobuf.Struct documents with the
// same JSON shapes the HTTP API uses.
type ExtractionServer interface {
	ExtractText(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Predict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListCategories(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(ExtractionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ExtractionServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + extractionServiceName + "/" + method}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ExtractionServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ExtractionServiceDesc describes symptosense.v1.ExtractionService for grpc.Server.
var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: extractionServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ExtractText", ExtractionServer.ExtractText),
		unaryHandler("Predict", ExtractionServer.Predict),
		unaryHandler("ListCategories", ExtractionServer.ListCategories),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "symptosense/v1/extraction.proto",
}

func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&ExtractionServiceDesc, srv)
}

// ExtractionClient calls ExtractionService over conn.
type ExtractionClient struct {
	cc grpc.ClientConnInterface
}

func NewExtractionClient(cc grpc.ClientConnInterface) *ExtractionClient {
	return &ExtractionClient{cc: cc}
}

func (c *ExtractionClient) call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+extractionServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ExtractionClient) ExtractText(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "ExtractText", in, opts...)
}

func (c *ExtractionClient) Predict(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "Predict", in, opts...)
}

func (c *ExtractionClient) ListCategories(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "ListCategories", in, opts...)
}

// GRPCService adapts ExtractionService to ExtractionServer.
type GRPCService struct {
	svc    *ExtractionService
	logger *slog.Logger
}

func NewGRPCService(svc *ExtractionService, logger *slog.Logger) *GRPCService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCService{svc: svc, logger: logger}
}

func (s *GRPCService) ExtractText(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in TextRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	out, err := s.svc.ExtractText(ctx, in)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return toStruct(out)
}

func (s *GRPCService) Predict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in PredictRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	pred, err := s.svc.Predict(ctx, in)
	if err != nil {
		var verrs common.ValidationErrors
		if errors.As(err, &verrs) {
			s.logger.Info("predict rejected", "invalid_fields", len(verrs))
		}
		return nil, common.ToStatus(err)
	}
	return toStruct(pred)
}

func (s *GRPCService) ListCategories(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(s.svc.Catalog())
}

// NewGRPCServer builds a server with the extraction and health services registered.
func NewGRPCServer(svc *ExtractionService, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(requestIDInterceptor(logger))}, opts...)
	gs := grpc.NewServer(opts...)
	RegisterExtractionServer(gs, NewGRPCService(svc, logger))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, healthServer)
	// empty string means overall server health
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(extractionServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return gs, healthServer
}

// requestIDInterceptor takes x-request-id from metadata (or mints one) and logs each call.
func requestIDInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get("x-request-id"); len(ids) > 0 && ids[0] != "" {
				ctx = common.WithRequestID(ctx, ids[0])
			}
		}
		ctx, reqID := common.EnsureRequestID(ctx)
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc call",
			"method", info.FullMethod,
			"request_id", reqID,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return s, nil
}

func fromStruct(s *structpb.Struct, out any) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
