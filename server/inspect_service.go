package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Gordon-from-Blumberg/evo-cell/world"
)

// InspectServiceName is the fully-qualified name of the inspection service.
const InspectServiceName = "evocell.v1.InspectService"

// Procedure paths of the inspection service.
const (
	DescribeBotProcedure = "/" + InspectServiceName + "/DescribeBot"
	StatisticProcedure   = "/" + InspectServiceName + "/Statistic"
	AdvanceProcedure     = "/" + InspectServiceName + "/Advance"
)

// InspectService lets clients look at and advance a running world.
type InspectService struct {
	worker     *WorldWorker
	recorder   Recorder
	maxAdvance uint32
}

// NewInspectService creates an InspectService. recorder may be nil.
func NewInspectService(worker *WorldWorker, recorder Recorder, maxAdvance uint32) *InspectService {
	return &InspectService{
		worker:     worker,
		recorder:   recorder,
		maxAdvance: maxAdvance,
	}
}

// NewInspectServiceHandler builds an HTTP handler serving every procedure
// of the service. It returns the path to mount it on.
func NewInspectServiceHandler(svc *InspectService, opts ...connect.HandlerOption) (string, http.Handler) {
	describeBot := connect.NewUnaryHandler(DescribeBotProcedure, svc.DescribeBot, opts...)
	statistic := connect.NewUnaryHandler(StatisticProcedure, svc.Statistic, opts...)
	advance := connect.NewUnaryHandler(AdvanceProcedure, svc.Advance, opts...)
	return "/" + InspectServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case DescribeBotProcedure:
			describeBot.ServeHTTP(w, r)
		case StatisticProcedure:
			statistic.ServeHTTP(w, r)
		case AdvanceProcedure:
			advance.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// DescribeBot renders the decoded program of a living bot.
func (s *InspectService) DescribeBot(
	ctx context.Context,
	req *connect.Request[wrapperspb.Int64Value],
) (*connect.Response[wrapperspb.StringValue], error) {
	id := req.Msg.GetValue()
	if id <= 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("bot id %d is not positive", id))
	}

	text, err := s.worker.Describe(id)
	switch {
	case errors.Is(err, world.ErrNoBot):
		return nil, connect.NewError(connect.CodeNotFound, err)
	case err != nil:
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(wrapperspb.String(text)), nil
}

// Statistic returns the statistic of the last completed turn.
func (s *InspectService) Statistic(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	st, err := s.worker.Statistic()
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return statisticResponse(st)
}

// Advance runs the requested number of turns and returns the statistic of
// the last one. The call stops early when the client goes away.
func (s *InspectService) Advance(
	ctx context.Context,
	req *connect.Request[wrapperspb.UInt32Value],
) (*connect.Response[structpb.Struct], error) {
	n := req.Msg.GetValue()
	if n == 0 || n > s.maxAdvance {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("turns must be in [1,%d], got %d", s.maxAdvance, n))
	}

	var record func(int64, world.Statistic) error
	if s.recorder != nil {
		record = s.recorder.RecordStatistic
	}
	st, err := s.worker.Advance(ctx, int(n), record)
	if err != nil {
		return nil, connect.NewError(advanceErrorCode(err), err)
	}
	log.Infof("advanced %d turns to turn %d", n, st.Turn)
	return statisticResponse(st)
}

func advanceErrorCode(err error) connect.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	}
	return connect.CodeInternal
}

func statisticResponse(st world.Statistic) (*connect.Response[structpb.Struct], error) {
	msg, err := structpb.NewStruct(map[string]interface{}{
		"turn":      st.Turn,
		"alive":     st.Alive,
		"born":      st.Born,
		"died":      st.Died,
		"avgEnergy": st.AvgEnergy,
		"avgGenes":  st.AvgGenes,
		"actions":   st.Actions,
		"decoded":   st.Decoded,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// InspectServiceClient calls the inspection service of a remote server.
type InspectServiceClient struct {
	describeBot *connect.Client[wrapperspb.Int64Value, wrapperspb.StringValue]
	statistic   *connect.Client[emptypb.Empty, structpb.Struct]
	advance     *connect.Client[wrapperspb.UInt32Value, structpb.Struct]
}

// NewInspectServiceClient creates a client for the server at baseURL.
func NewInspectServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *InspectServiceClient {
	return &InspectServiceClient{
		describeBot: connect.NewClient[wrapperspb.Int64Value, wrapperspb.StringValue](httpClient, baseURL+DescribeBotProcedure, opts...),
		statistic:   connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+StatisticProcedure, opts...),
		advance:     connect.NewClient[wrapperspb.UInt32Value, structpb.Struct](httpClient, baseURL+AdvanceProcedure, opts...),
	}
}

// DescribeBot calls InspectService.DescribeBot.
func (c *InspectServiceClient) DescribeBot(ctx context.Context, id int64) (string, error) {
	res, err := c.describeBot.CallUnary(ctx, connect.NewRequest(wrapperspb.Int64(id)))
	if err != nil {
		return "", err
	}
	return res.Msg.GetValue(), nil
}

// Statistic calls InspectService.Statistic.
func (c *InspectServiceClient) Statistic(ctx context.Context) (map[string]interface{}, error) {
	res, err := c.statistic.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}
	return res.Msg.AsMap(), nil
}

// Advance calls InspectService.Advance.
func (c *InspectServiceClient) Advance(ctx context.Context, turns uint32) (map[string]interface{}, error) {
	res, err := c.advance.CallUnary(ctx, connect.NewRequest(wrapperspb.UInt32(turns)))
	if err != nil {
		return nil, err
	}
	return res.Msg.AsMap(), nil
}
