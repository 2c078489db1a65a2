// Package grpchost carries the automation host contract over gRPC.
//
// The service is described by hand instead of generated code: requests and
// replies are the well-known Struct, Value and Empty messages, so the wire stays
// schemaless like the JSON it transports.
//
//	service AutomationHost {
//	  rpc Evaluate(google.protobuf.Struct) returns (google.protobuf.Value);
//	  rpc Events(google.protobuf.Empty) returns (stream google.protobuf.Struct);
//	}
package grpchost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/host"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "wppweb.host.v1.AutomationHost"

const (
	evaluateMethod = "/" + ServiceName + "/Evaluate"
	eventsMethod   = "/" + ServiceName + "/Events"
)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*host.Host)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Events", Handler: eventsHandler, ServerStreams: true},
	},
	Metadata: "wppweb/host/v1/host.proto",
}

// Register exposes h on s as the AutomationHost service. Events has a single
// consumer: concurrent Events streams split the host's events between them.
func Register(s grpc.ServiceRegistrar, h host.Host) {
	s.RegisterService(&serviceDesc, h)
}

func evaluateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return evaluate(ctx, srv.(host.Host), req.(*structpb.Struct))
	}
	if interceptor == nil {
		return handler(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: evaluateMethod}
	return interceptor(ctx, in, info, handler)
}

func evaluate(ctx context.Context, h host.Host, in *structpb.Struct) (*structpb.Value, error) {
	query := in.GetFields()["query"].GetStringValue()
	if query == "" {
		return nil, status.Error(codes.InvalidArgument, "query is required")
	}

	values := in.GetFields()["args"].GetListValue().GetValues()
	args := make([]any, 0, len(values))
	for _, v := range values {
		b, err := protojson.Marshal(v)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "encode argument: %v", err)
		}
		args = append(args, json.RawMessage(b))
	}

	res, err := h.Evaluate(ctx, host.Query(query), args...)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := valueFromJSON(res)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "decode result of %s: %v", query, err)
	}
	return out, nil
}

func eventsHandler(srv any, stream grpc.ServerStream) error {
	if err := stream.RecvMsg(new(emptypb.Empty)); err != nil {
		return err
	}
	events := srv.(host.Host).Events()
	for {
		select {
		case <-stream.Context().Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			msg, err := eventToStruct(ev)
			if err != nil {
				return status.Errorf(codes.Internal, "encode event: %v", err)
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, errs.ErrSessionUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Unknown, err.Error())
}

func fromStatus(q host.Query, err error) error {
	st := status.Convert(err)
	switch st.Code() {
	case codes.Unavailable, codes.Canceled, codes.DeadlineExceeded:
		return fmt.Errorf("evaluate %s: %w: %s", q, errs.ErrSessionUnavailable, st.Message())
	case codes.NotFound:
		return fmt.Errorf("evaluate %s: %w: %s", q, errs.ErrNotFound, st.Message())
	}
	return fmt.Errorf("evaluate %s: %w", q, err)
}

func valueFromJSON(b json.RawMessage) (*structpb.Value, error) {
	if host.IsNull(b) {
		return structpb.NewNullValue(), nil
	}
	v := new(structpb.Value)
	if err := protojson.Unmarshal(b, v); err != nil {
		return nil, err
	}
	return v, nil
}

func eventToStruct(ev host.Event) (*structpb.Struct, error) {
	fields := map[string]*structpb.Value{
		"type": structpb.NewStringValue(string(ev.Type)),
	}
	for k, v := range map[string]string{"entity": ev.Entity, "change": ev.Change, "reason": ev.Reason} {
		if v != "" {
			fields[k] = structpb.NewStringValue(v)
		}
	}
	for k, v := range map[string]json.RawMessage{"payload": ev.Payload, "extra": ev.Extra} {
		if len(v) == 0 {
			continue
		}
		pv, err := valueFromJSON(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		fields[k] = pv
	}
	return &structpb.Struct{Fields: fields}, nil
}

func eventFromStruct(s *structpb.Struct) (host.Event, error) {
	f := s.GetFields()
	ev := host.Event{
		Type:   host.EventType(f["type"].GetStringValue()),
		Entity: f["entity"].GetStringValue(),
		Change: f["change"].GetStringValue(),
		Reason: f["reason"].GetStringValue(),
	}
	for k, dst := range map[string]*json.RawMessage{"payload": &ev.Payload, "extra": &ev.Extra} {
		v, ok := f[k]
		if !ok {
			continue
		}
		b, err := protojson.Marshal(v)
		if err != nil {
			return host.Event{}, fmt.Errorf("%s: %w", k, err)
		}
		*dst = b
	}
	return ev, nil
}
