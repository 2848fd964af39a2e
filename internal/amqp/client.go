// Package amqp carries report export jobs from the console to the worker
// over a durable direct exchange.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sethvargo/go-retry"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures = 5
	openTimeout = 30 * time.Second
	maxBackoff  = 30 * time.Second
)

var (
	ErrCircuitOpen   = errors.New("circuit breaker is open")
	errConsumerEnded = errors.New("message channel closed")
)

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *slog.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.With("component", "amqp"),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.conn, c.channel = conn, channel
	return nil
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// routing key is the queue name
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// ensureChannel reconnects when the broker dropped the channel.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn, c.channel = nil, nil
	}
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	c.logger.Info("Reconnected to broker", "exchange", c.exchangeName, "queue", c.queueName)
	return c.channel, nil
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// PublishReport queues a report export. It fails fast while the circuit
// breaker is open.
func (c *Client) PublishReport(ctx context.Context, req *ReportRequest) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish report: %w", ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = ch.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    req.ID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.logger.InfoContext(ctx, "Published report request",
		"id", req.ID,
		"kind", req.Kind,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// Handler processes one report request. Returning an error requeues it.
type Handler func(ctx context.Context, req *ReportRequest) error

// ConsumeReports delivers report requests to handler until ctx ends,
// reconnecting with capped exponential backoff when the broker drops the
// connection. Messages are acked after handler succeeds, requeued when it
// fails and dropped when they cannot be decoded.
func (c *Client) ConsumeReports(ctx context.Context, handler Handler) error {
	err := retry.Do(ctx, reconnectBackoff(), func(ctx context.Context) error {
		err := c.consume(ctx, handler)
		if isConnectionError(err) {
			c.logger.WarnContext(ctx, "Consumer disconnected, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ctx.Err()
	}
	return err
}

// reconnectBackoff waits 1s, 2s, 4s and so on, capped at maxBackoff.
func reconnectBackoff() retry.Backoff {
	return retry.WithCappedDuration(maxBackoff, retry.NewExponential(time.Second))
}

func (c *Client) consume(ctx context.Context, handler Handler) error {
	ch, err := c.ensureChannel()
	if err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.logger.InfoContext(ctx, "Started consuming report requests", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errConsumerEnded
			}
			c.handle(ctx, delivery, handler)
		}
	}
}

// acknowledger is the part of amqp091.Delivery handle needs.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Client) handle(ctx context.Context, d amqp091.Delivery, handler Handler) {
	process(ctx, c.logger, d.Body, d, handler)
}

func process(ctx context.Context, logger *slog.Logger, body []byte, ack acknowledger, handler Handler) {
	msg, err := ReportRequestFromJSON(body)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		_ = ack.Nack(false, false)
		return
	}
	logger.InfoContext(ctx, "Processing report request", "id", msg.ID, "kind", msg.Kind)
	if err := handler(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "Failed to handle message", "error", err, "id", msg.ID, "kind", msg.Kind)
		_ = ack.Nack(false, true)
		return
	}
	_ = ack.Ack(false)
	logger.InfoContext(ctx, "Report request processed", "id", msg.ID, "kind", msg.Kind)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errConsumerEnded) || errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, p := range []string{"connection refused", "connection closed", "eof", "broken pipe", "use of closed network connection", "dial amqp"} {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
