package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

var ErrPoolClosed = errors.New("channel pool closed")

// publishChannel is the part of *amqp.Channel the pool and publisher use.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// ChannelPool keeps a fixed number of channel slots on one connection. A
// slot whose channel was closed by the broker is reopened on the next Get.
type ChannelPool struct {
	conn      *amqp.Connection
	channels  chan publishChannel
	open      func() (publishChannel, error)
	mu        sync.Mutex
	closed    bool
	queueName string
	logger    *zap.Logger
}

func NewChannelPool(url, queueName string, size int, logger *zap.Logger) (*ChannelPool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size < 1 {
		size = 1
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	pool := &ChannelPool{
		conn:      conn,
		channels:  make(chan publishChannel, size),
		queueName: queueName,
		logger:    logger,
	}
	pool.open = pool.createChannel
	for i := 0; i < size; i++ {
		ch, err := pool.open()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create channel %d: %w", i, err)
		}
		pool.channels <- ch
	}

	logger.Info("rabbitmq channel pool ready", zap.Int("size", size), zap.String("queue", queueName))
	return pool, nil
}

func (p *ChannelPool) createChannel() (publishChannel, error) {
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(p.queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	return ch, nil
}

// Get waits for a free slot. An empty or broker-closed slot is reopened; if
// that fails the slot goes back empty so the pool keeps its size.
func (p *ChannelPool) Get(ctx context.Context) (publishChannel, error) {
	select {
	case ch, ok := <-p.channels:
		if !ok {
			return nil, ErrPoolClosed
		}
		if ch != nil && !ch.IsClosed() {
			return ch, nil
		}
		fresh, err := p.open()
		if err != nil {
			p.release(nil)
			return nil, fmt.Errorf("failed to reopen channel: %w", err)
		}
		p.logger.Info("rabbitmq channel reopened")
		return fresh, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for channel: %w", ctx.Err())
	}
}

// Put returns a slot taken by Get. A closed channel is handed back as an
// empty slot.
func (p *ChannelPool) Put(ch publishChannel) {
	if ch != nil && ch.IsClosed() {
		ch = nil
	}
	p.release(ch)
}

func (p *ChannelPool) release(ch publishChannel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		if ch != nil {
			ch.Close()
		}
		return
	}
	select {
	case p.channels <- ch:
	default:
		if ch != nil {
			ch.Close()
		}
	}
}

func (p *ChannelPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	close(p.channels)
	for ch := range p.channels {
		if ch != nil {
			ch.Close()
		}
	}
	var err error
	if p.conn != nil {
		err = p.conn.Close()
	}
	p.logger.Info("rabbitmq channel pool closed")
	return err
}

// AMQPPublisher sends SaleCreated to a durable work queue.
type AMQPPublisher struct {
	pool      *ChannelPool
	queueName string
	logger    *zap.Logger
}

func NewAMQPPublisher(pool *ChannelPool, queueName string, logger *zap.Logger) *AMQPPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPPublisher{pool: pool, queueName: queueName, logger: logger}
}

func (p *AMQPPublisher) PublishSaleCreated(ctx context.Context, evt SaleCreated) error {
	msg, err := amqpMessage(evt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	ch, err := p.pool.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to get channel from pool: %w", err)
	}
	defer p.pool.Put(ch)

	if err := ch.PublishWithContext(ctx, "", p.queueName, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish sale: %w", err)
	}
	p.logger.Info("published sale", zap.String("order", evt.OrderNumber), zap.String("queue", p.queueName))
	return nil
}

func (p *AMQPPublisher) Close() error { return p.pool.Close() }

func amqpMessage(evt SaleCreated) (amqp.Publishing, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal sale event: %w", err)
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Type:         EventSaleCreated,
		MessageId:    evt.OrderNumber,
		Timestamp:    evt.CreatedAt,
		Body:         body,
	}, nil
}
