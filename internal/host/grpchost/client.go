package grpchost

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/matheus3301/wppweb/internal/host"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a host.Host backed by a remote AutomationHost service.
type Client struct {
	conn   grpc.ClientConnInterface
	closer io.Closer
	logger *zap.Logger

	events chan host.Event
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

var _ host.Host = (*Client)(nil)

// Dial connects to the automation host at target, for example
// "unix:///run/wpp-web/host.sock" or "localhost:7777".
func Dial(target string, logger *zap.Logger, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial automation host: %w", err)
	}
	c := New(conn, logger)
	c.closer = conn
	return c, nil
}

// New wraps an existing connection and starts reading the event stream. The
// connection is not closed by Close.
func New(conn grpc.ClientConnInterface, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:   conn,
		logger: logger,
		events: make(chan host.Event, 64),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.readEvents(ctx)
	return c
}

// Evaluate implements host.Host.
func (c *Client) Evaluate(ctx context.Context, q host.Query, args ...any) (json.RawMessage, error) {
	values := make([]*structpb.Value, 0, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal argument %d of %s: %w", i, q, err)
		}
		v, err := valueFromJSON(b)
		if err != nil {
			return nil, fmt.Errorf("encode argument %d of %s: %w", i, q, err)
		}
		values = append(values, v)
	}

	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"query": structpb.NewStringValue(string(q)),
		"args":  structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}
	out := new(structpb.Value)
	if err := c.conn.Invoke(ctx, evaluateMethod, req, out); err != nil {
		return nil, fromStatus(q, err)
	}
	b, err := protojson.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("decode result of %s: %w", q, err)
	}
	return b, nil
}

// Events implements host.Host. The channel closes when the stream ends.
func (c *Client) Events() <-chan host.Event { return c.events }

// Close stops the event stream and closes a connection opened by Dial.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.cancel()
		<-c.done
		if c.closer != nil {
			err = c.closer.Close()
		}
	})
	return err
}

func (c *Client) readEvents(ctx context.Context) {
	defer close(c.done)
	defer close(c.events)

	stream, err := c.conn.NewStream(ctx, &serviceDesc.Streams[0], eventsMethod, grpc.WaitForReady(true))
	if err != nil {
		c.logger.Warn("open event stream failed", zap.Error(err))
		return
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		c.logger.Warn("subscribe to events failed", zap.Error(err))
		return
	}
	if err := stream.CloseSend(); err != nil {
		c.logger.Warn("close event stream send side failed", zap.Error(err))
		return
	}

	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if err != io.EOF && ctx.Err() == nil {
				c.logger.Warn("event stream ended", zap.Error(err))
			}
			return
		}
		ev, err := eventFromStruct(msg)
		if err != nil {
			c.logger.Warn("dropping undecodable event", zap.Error(err))
			continue
		}
		select {
		case c.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
