package classifier

import (
	"context"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/danielpatrickdp/cutscan/internal/event"
)

// #region remote-evaluator
// RemoteEvaluator scores records through a remote scoring service.
type RemoteEvaluator struct {
	conn     *grpc.ClientConn
	client   ScorerClient
	features map[string][]string
}

// NewRemoteEvaluator connects to the scoring service at addr. features maps
// a model name onto the record fields sent with each request; a model
// without an entry receives every raw field.
func NewRemoteEvaluator(addr string, features map[string][]string) (*RemoteEvaluator, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, errors.Wrapf(err, "grpc dial %s", addr)
	}
	return &RemoteEvaluator{
		conn:     conn,
		client:   NewScorerClient(conn),
		features: features,
	}, nil
}

// NewRemoteEvaluatorWithService creates a RemoteEvaluator over an injected
// client, without a connection.
func NewRemoteEvaluatorWithService(svc ScorerClient, features map[string][]string) *RemoteEvaluator {
	return &RemoteEvaluator{client: svc, features: features}
}

// Close shuts down the connection.
func (r *RemoteEvaluator) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

// Evaluate implements Evaluator.
func (r *RemoteEvaluator) Evaluate(ctx context.Context, model string, rec event.Record) (float64, error) {
	req, err := EncodeRequest(model, rec, r.features[model])
	if err != nil {
		return 0, err
	}
	resp, err := r.client.Evaluate(ctx, req)
	if err != nil {
		switch status.Code(err) {
		case codes.NotFound, codes.Unavailable:
			return 0, errors.Wrapf(ErrModelUnavailable, "evaluate rpc %s: %v", model, err)
		}
		return 0, errors.Wrapf(err, "evaluate rpc %s", model)
	}
	return resp.GetValue(), nil
}

// #endregion remote-evaluator

// #region codec
// EncodeRequest builds the request Struct. With names empty every raw field
// of rec is sent.
func EncodeRequest(model string, rec event.Record, names []string) (*structpb.Struct, error) {
	feats := make(map[string]*structpb.Value)
	if len(names) == 0 {
		for k, v := range rec.Fields() {
			feats[k] = structpb.NewNumberValue(v)
		}
	} else {
		for _, n := range names {
			v, err := rec.Value(n)
			if err != nil {
				return nil, errors.Wrapf(err, "model %s", model)
			}
			feats[n] = structpb.NewNumberValue(v)
		}
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"model":    structpb.NewStringValue(model),
		"features": structpb.NewStructValue(&structpb.Struct{Fields: feats}),
	}}, nil
}

// DecodeRequest is the inverse of EncodeRequest. The record carries no
// label.
func DecodeRequest(in *structpb.Struct) (string, event.Record, error) {
	model := in.GetFields()["model"].GetStringValue()
	if model == "" {
		return "", event.Record{}, errors.New("request has no model")
	}
	raw := in.GetFields()["features"].GetStructValue()
	if raw == nil {
		return "", event.Record{}, errors.New("request has no features")
	}
	fields := make(map[string]float64, len(raw.GetFields()))
	for k, v := range raw.GetFields() {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return "", event.Record{}, errors.Newf("feature %q is not a number", k)
		}
		fields[k] = n.NumberValue
	}
	return model, event.FromMap(fields, false), nil
}

// #endregion codec

// #region evaluator-server
type evaluatorServer struct {
	ev Evaluator
}

// NewEvaluatorServer exposes ev as a ScorerServer.
func NewEvaluatorServer(ev Evaluator) ScorerServer {
	return &evaluatorServer{ev: ev}
}

func (s *evaluatorServer) Evaluate(ctx context.Context, in *structpb.Struct) (*wrapperspb.DoubleValue, error) {
	model, rec, err := DecodeRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	v, err := s.ev.Evaluate(ctx, model, rec)
	switch {
	case errors.Is(err, ErrModelUnavailable):
		return nil, status.Error(codes.NotFound, err.Error())
	case errors.Is(err, event.ErrUnknownField):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case err != nil:
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.Double(v), nil
}

// #endregion evaluator-server
