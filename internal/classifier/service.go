package classifier

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The scoring service carries well-known protobuf types only: the request
// is a Struct {model: string, features: {name: number}} and the reply a
// DoubleValue.
const (
	ScorerServiceName  = "cutscan.classifier.v1.Scorer"
	scorerEvaluateName = "/" + ScorerServiceName + "/Evaluate"
)

// #region client
// ScorerClient is the client API of the scoring service.
type ScorerClient interface {
	Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.DoubleValue, error)
}

type scorerClient struct {
	cc grpc.ClientConnInterface
}

// NewScorerClient binds a ScorerClient to a connection.
func NewScorerClient(cc grpc.ClientConnInterface) ScorerClient {
	return &scorerClient{cc: cc}
}

func (c *scorerClient) Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.DoubleValue, error) {
	out := new(wrapperspb.DoubleValue)
	if err := c.cc.Invoke(ctx, scorerEvaluateName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion client

// #region server
// ScorerServer is the server API of the scoring service.
type ScorerServer interface {
	Evaluate(ctx context.Context, in *structpb.Struct) (*wrapperspb.DoubleValue, error)
}

// RegisterScorerServer attaches srv to s.
func RegisterScorerServer(s grpc.ServiceRegistrar, srv ScorerServer) {
	s.RegisterService(&scorerServiceDesc, srv)
}

func scorerEvaluateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScorerServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: scorerEvaluateName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ScorerServer).Evaluate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var scorerServiceDesc = grpc.ServiceDesc{
	ServiceName: ScorerServiceName,
	HandlerType: (*ScorerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Evaluate",
			Handler:    scorerEvaluateHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cutscan/classifier/v1/scorer.proto",
}

// #endregion server
