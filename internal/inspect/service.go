// Package inspect serves a read-only gRPC view of a running world. Messages
// are protobuf well-known types, so the service is described by hand rather
// than generated from a .proto file.
package inspect

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/signalsfoundry/minesim/internal/logging"
	"github.com/signalsfoundry/minesim/internal/observability"
	"github.com/signalsfoundry/minesim/internal/sim/state"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "minesim.inspect.v1.WorldService"

// WorldServiceServer is the server API for the inspection service.
type WorldServiceServer interface {
	GetTick(context.Context, *emptypb.Empty) (*wrapperspb.Int64Value, error)
	GetWorld(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetEntity(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ExportWorld(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
}

// WorldService implements WorldServiceServer over a WorldState.
type WorldService struct {
	world *state.WorldState
	log   logging.Logger
}

// NewWorldService returns a service reading from world.
func NewWorldService(world *state.WorldState, log logging.Logger) *WorldService {
	if log == nil {
		log = logging.Noop()
	}
	return &WorldService{world: world, log: log}
}

func (s *WorldService) ensureReady() error {
	if s == nil || s.world == nil {
		return status.Error(codes.Unavailable, "world not loaded")
	}
	return nil
}

// GetTick returns the tick of the last drain.
func (s *WorldService) GetTick(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	return wrapperspb.Int64(int64(s.world.Tick())), nil
}

// GetWorld returns a snapshot: size, tick, pending action count, per-kind
// counts and every entity.
func (s *WorldService) GetWorld(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	ctx, span := StartChildSpan(ctx, "Inspect/snapshot", "world", "")
	defer span.End()

	snap := s.world.Snapshot()
	span.SetAttributes(
		observability.AttrTick.Int64(int64(snap.Tick)),
		observability.AttrEntities.Int(len(snap.Entities)),
		observability.AttrPending.Int(snap.PendingActions),
	)
	counts := make(map[string]any, len(snap.Counts))
	for kind, n := range snap.Counts {
		counts[kind.String()] = n
	}
	entities := make([]any, 0, len(snap.Entities))
	for _, e := range snap.Entities {
		entities = append(entities, entityFields(e))
	}
	out, err := structpb.NewStruct(map[string]any{
		"tick":            int64(snap.Tick),
		"width":           snap.Width,
		"height":          snap.Height,
		"pending_actions": snap.PendingActions,
		"counts":          counts,
		"entities":        entities,
	})
	if err != nil {
		logging.LoggerFromContext(ctx).Error(ctx, "snapshot encode failed", logging.Err(err))
		return nil, ToStatusError(err)
	}
	return out, nil
}

// GetEntity looks an entity up by name.
func (s *WorldService) GetEntity(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if in == nil || in.GetValue() == "" {
		return nil, ToStatusError(fmt.Errorf("%w: entity name is required", ErrInvalidArgument))
	}
	ctx, span := StartChildSpan(ctx, "Inspect/entity", "entity", in.GetValue())
	defer span.End()

	view, err := s.world.Entity(in.GetValue())
	if err != nil {
		span.RecordError(err)
		return nil, ToStatusError(err)
	}
	span.SetAttributes(
		attribute.String("entity_kind", view.Kind.String()),
		observability.AttrPending.Int(view.Pending),
	)
	out, err := structpb.NewStruct(entityFields(view))
	if err != nil {
		logging.LoggerFromContext(ctx).Error(ctx, "entity encode failed", logging.Err(err))
		return nil, ToStatusError(err)
	}
	return out, nil
}

// ExportWorld returns the world in world-file form.
func (s *WorldService) ExportWorld(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := s.world.ExportWorld(&buf); err != nil {
		return nil, ToStatusError(err)
	}
	return wrapperspb.String(buf.String()), nil
}

func entityFields(e state.EntityView) map[string]any {
	fields := map[string]any{
		"name":    e.Name,
		"kind":    e.Kind.String(),
		"x":       e.Position.X,
		"y":       e.Position.Y,
		"image":   e.Image.Tag,
		"frame":   e.Image.Frame,
		"pending": e.Pending,
	}
	if e.Rate > 0 {
		fields["rate"] = int64(e.Rate)
	}
	if e.AnimationRate > 0 {
		fields["animation_rate"] = int64(e.AnimationRate)
	}
	if e.ResourceLimit > 0 || e.ResourceCount > 0 {
		fields["resource_count"] = e.ResourceCount
		fields["resource_limit"] = e.ResourceLimit
	}
	if e.ResourceDistance > 0 {
		fields["resource_distance"] = e.ResourceDistance
	}
	return fields
}

// EntityNames lists the names in a GetWorld response, sorted.
func EntityNames(world *structpb.Struct) []string {
	var names []string
	for _, v := range world.GetFields()["entities"].GetListValue().GetValues() {
		if name := v.GetStructValue().GetFields()["name"].GetStringValue(); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// RegisterWorldServiceServer registers srv on s.
func RegisterWorldServiceServer(s grpc.ServiceRegistrar, srv WorldServiceServer) {
	s.RegisterService(&WorldServiceDesc, srv)
}

// WorldServiceDesc describes the inspection service.
var WorldServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WorldServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetTick", Handler: getTickHandler},
		{MethodName: "GetWorld", Handler: getWorldHandler},
		{MethodName: "GetEntity", Handler: getEntityHandler},
		{MethodName: "ExportWorld", Handler: exportWorldHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "minesim/inspect/v1/world.proto",
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

func getTickHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorldServiceServer).GetTick(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("GetTick")}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WorldServiceServer).GetTick(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getWorldHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorldServiceServer).GetWorld(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("GetWorld")}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WorldServiceServer).GetWorld(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getEntityHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorldServiceServer).GetEntity(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("GetEntity")}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WorldServiceServer).GetEntity(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func exportWorldHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorldServiceServer).ExportWorld(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("ExportWorld")}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(WorldServiceServer).ExportWorld(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
