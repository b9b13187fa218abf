package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/helmdesk/helmdesk/internal/config"
)

// AMQPClient implements Client over a RabbitMQ connection.
//
// Fire-and-forget sends use publisher confirms, so a nil error means the
// broker has taken responsibility for the message. RPC sends use a per-call
// exclusive reply queue with correlation-id matching and a bounded timeout.
type AMQPClient struct {
	conn    *amqp.Connection
	timeout time.Duration
	logger  *slog.Logger
}

// NewAMQPClient dials the broker and verifies the connection with a
// throwaway channel.
func NewAMQPClient(cfg config.BrokerConfig, log *slog.Logger) (*AMQPClient, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("broker url is required: %w", ErrUnavailable)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		log.Info("connecting to broker", slog.String("host", u.Host))
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w: %v", ErrUnavailable, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w: %v", ErrUnavailable, err)
	}
	_ = ch.Close()

	timeout := time.Duration(cfg.RPCTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &AMQPClient{
		conn:    conn,
		timeout: timeout,
		logger:  log.With(slog.String("component", "broker")),
	}, nil
}

// Close closes the underlying connection.
func (c *AMQPClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// SendMessage publishes a payload to the given queue and waits for the
// broker's publisher confirm.
func (c *AMQPClient) SendMessage(ctx context.Context, queue string, payload any) error {
	if c == nil || c.conn == nil || c.conn.IsClosed() {
		return ErrUnavailable
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w: %v", ErrUnavailable, err)
	}
	defer ch.Close()

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("confirm mode: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	confirmation, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("broker rejected message for %s", queue)
	}
	return nil
}

// SendRPCMessage publishes a payload to the given queue and blocks until the
// remote service replies on a per-call exclusive queue. A reply with error
// status becomes an *RPCError.
func (c *AMQPClient) SendRPCMessage(ctx context.Context, queue string, payload any) (json.RawMessage, error) {
	if c == nil || c.conn == nil || c.conn.IsClosed() {
		return nil, ErrUnavailable
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w: %v", ErrUnavailable, err)
	}
	defer ch.Close()

	replyQueue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare reply queue: %w", err)
	}
	deliveries, err := ch.Consume(replyQueue.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume reply queue: %w", err)
	}

	correlationID := uuid.NewString()
	err = ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		CorrelationId: correlationID,
		ReplyTo:       replyQueue.Name,
		Timestamp:     time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("publish to %s: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rpc to %s: %w", queue, ctx.Err())
		case delivery, ok := <-deliveries:
			if !ok {
				return nil, fmt.Errorf("reply channel closed: %w", ErrUnavailable)
			}
			if delivery.CorrelationId != correlationID {
				continue
			}
			return decodeRPCReply(delivery.Body)
		}
	}
}

func decodeRPCReply(body []byte) (json.RawMessage, error) {
	var reply rpcResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("decode rpc reply: %w", err)
	}
	if reply.Status != statusSuccess {
		return nil, &RPCError{Message: reply.ErrorMessage}
	}
	return reply.Data, nil
}
