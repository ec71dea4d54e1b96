package classifier

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/danielpatrickdp/cutscan/internal/event"
)

// #region mock
type mockScorer struct {
	lastReq *structpb.Struct
	resp    *wrapperspb.DoubleValue
	err     error
}

func (m *mockScorer) Evaluate(_ context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*wrapperspb.DoubleValue, error) {
	m.lastReq = in
	return m.resp, m.err
}

// linearEvaluator scores a record as the sum of weight*field.
type linearEvaluator struct {
	weights map[string]map[string]float64
	closed  bool
}

func (l *linearEvaluator) Evaluate(_ context.Context, model string, rec event.Record) (float64, error) {
	w, ok := l.weights[model]
	if !ok {
		return 0, errors.Wrapf(ErrModelUnavailable, "%s", model)
	}
	var sum float64
	for name, k := range w {
		v, err := rec.Value(name)
		if err != nil {
			return 0, err
		}
		sum += k * v
	}
	return sum, nil
}

func (l *linearEvaluator) Close() error {
	l.closed = true
	return nil
}

// #endregion mock

func TestParseVariant(t *testing.T) {
	for in, want := range map[string]Variant{"": RawFeature, "raw": RawFeature, "ANN": ModelA, "bdt": ModelB} {
		got, err := ParseVariant(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseVariant("svm")
	require.Error(t, err)
	assert.Equal(t, "ANN", ModelA.Model())
	assert.Equal(t, "bdt", ModelB.String())
}

func TestSourceScoreDispatch(t *testing.T) {
	rec := event.FromMap(map[string]float64{"sqrt_s": 3.1, "chisq4C": 12}, true)
	ev := &linearEvaluator{weights: map[string]map[string]float64{
		ModelAName: {"chisq4C": 0.5},
		ModelBName: {"sqrt_s": 2},
	}}
	ctx := context.Background()

	v, err := Source{Variant: RawFeature, Feature: "chisq4C"}.Score(ctx, nil, rec)
	require.NoError(t, err)
	assert.Equal(t, 12.0, v)

	v, err = Source{Variant: ModelA}.Score(ctx, ev, rec)
	require.NoError(t, err)
	assert.Equal(t, 6.0, v)

	v, err = Source{Variant: ModelB}.Score(ctx, ev, rec)
	require.NoError(t, err)
	assert.Equal(t, 6.2, v)

	_, err = Source{Variant: ModelA}.Score(ctx, nil, rec)
	require.ErrorIs(t, err, ErrNoEvaluator)
}

func TestSourceFields(t *testing.T) {
	assert.Equal(t, []string{"chisq4C"}, Source{Feature: "chisq4C"}.Fields())
	assert.Len(t, Source{Feature: event.ComEnergy}.Fields(), 12)
	assert.Equal(t, []string{"sqrt_s", "chisq4C"},
		Source{Variant: ModelA, Inputs: []string{"sqrt_s", "chisq4C"}}.Fields())
	assert.Error(t, Source{}.Validate())
	assert.Equal(t, "BDT", Source{Variant: ModelB}.Name())
}

func TestRemoteEvaluatorWithMock(t *testing.T) {
	mock := &mockScorer{resp: wrapperspb.Double(0.42)}
	r := NewRemoteEvaluatorWithService(mock, map[string][]string{ModelAName: {"sqrt_s"}})
	defer r.Close()

	rec := event.FromMap(map[string]float64{"sqrt_s": 3.09, "chisq4C": 4}, true)
	v, err := r.Evaluate(context.Background(), ModelAName, rec)
	require.NoError(t, err)
	assert.Equal(t, 0.42, v)

	model, sent, err := DecodeRequest(mock.lastReq)
	require.NoError(t, err)
	assert.Equal(t, ModelAName, model)
	assert.Equal(t, map[string]float64{"sqrt_s": 3.09}, sent.Fields())

	// no feature list: every raw field travels
	_, err = r.Evaluate(context.Background(), ModelBName, rec)
	require.NoError(t, err)
	_, sent, err = DecodeRequest(mock.lastReq)
	require.NoError(t, err)
	assert.Len(t, sent.Fields(), 2)
}

func TestRemoteEvaluatorMapsNotFound(t *testing.T) {
	mock := &mockScorer{err: status.Error(codes.NotFound, "no such model")}
	r := NewRemoteEvaluatorWithService(mock, nil)
	_, err := r.Evaluate(context.Background(), "ANN", event.FromMap(map[string]float64{"x": 1}, false))
	require.ErrorIs(t, err, ErrModelUnavailable)

	mock.err = status.Error(codes.Internal, "boom")
	_, err = r.Evaluate(context.Background(), "ANN", event.FromMap(map[string]float64{"x": 1}, false))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrModelUnavailable))
}

func TestDecodeRequestRejectsMalformed(t *testing.T) {
	_, _, err := DecodeRequest(&structpb.Struct{})
	require.Error(t, err)

	bad, err := structpb.NewStruct(map[string]interface{}{
		"model":    "ANN",
		"features": map[string]interface{}{"x": "one"},
	})
	require.NoError(t, err)
	_, _, err = DecodeRequest(bad)
	require.Error(t, err)
}

func TestScorerServiceOverBufconn(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	backend := &linearEvaluator{weights: map[string]map[string]float64{
		ModelBName: {"chisq4C": -0.1, "sqrt_s": 1},
	}}
	RegisterScorerServer(srv, NewEvaluatorServer(backend))
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	remote := NewRemoteEvaluatorWithService(NewScorerClient(conn), nil)
	rec := event.FromMap(map[string]float64{"sqrt_s": 3.0, "chisq4C": 10}, true)

	v, err := remote.Evaluate(context.Background(), ModelBName, rec)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v, 1e-12)

	// the server reports unknown models as NotFound
	_, err = remote.Evaluate(context.Background(), ModelAName, rec)
	require.ErrorIs(t, err, ErrModelUnavailable)
}

func TestTimedEvaluatorRecordsCalls(t *testing.T) {
	backend := &linearEvaluator{weights: map[string]map[string]float64{ModelAName: {"x": 1}}}
	timed := NewTimedEvaluator(backend)
	rec := event.FromMap(map[string]float64{"x": 2}, true)
	for i := 0; i < 25; i++ {
		v, err := timed.Evaluate(context.Background(), ModelAName, rec)
		require.NoError(t, err)
		assert.Equal(t, 2.0, v)
	}
	s := timed.Summary()
	assert.Equal(t, int64(25), s.Calls)
	assert.LessOrEqual(t, s.P50, s.P99)
	assert.LessOrEqual(t, s.P99, s.Max)

	require.NoError(t, timed.Close())
	assert.True(t, backend.closed)
}

func TestOnnxEvaluatorMissingModel(t *testing.T) {
	_, err := NewOnnxEvaluator("", ModelConfig{
		Name:     ModelAName,
		Path:     filepath.Join(t.TempDir(), "missing.onnx"),
		Features: []string{"sqrt_s"},
	})
	require.ErrorIs(t, err, ErrModelUnavailable)

	_, err = NewOnnxEvaluator("")
	require.ErrorIs(t, err, ErrModelUnavailable)
}
