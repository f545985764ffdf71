package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"mmdr-storefront/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func sampleEvent() SaleCreated {
	return FromSale(domain.Sale{
		ID:          "s1",
		OrderNumber: "MMDR-20250615-ABCD1234",
		Lines: []domain.SaleLine{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
		Totals:    domain.Totals{Total: 70000},
		CreatedAt: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	})
}

func TestFromSale(t *testing.T) {
	evt := sampleEvent()
	assert.Equal(t, "s1", evt.SaleID)
	assert.Equal(t, int64(70000), evt.Total)
	assert.Equal(t, []Line{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 1}}, evt.Lines)
}

func TestKafkaPublisher_WritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, nil)

	require.NoError(t, p.PublishSaleCreated(context.Background(), sampleEvent()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "MMDR-20250615-ABCD1234", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, EventSaleCreated, string(msg.Headers[0].Value))

	var decoded SaleCreated
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "s1", decoded.SaleID)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := newKafkaPublisher(&fakeWriter{err: boom}, nil)

	err := p.PublishSaleCreated(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, boom)
}

func TestAMQPMessage(t *testing.T) {
	msg, err := amqpMessage(sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, EventSaleCreated, msg.Type)
	assert.Equal(t, "MMDR-20250615-ABCD1234", msg.MessageId)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishSaleCreated(context.Background(), sampleEvent()))
	assert.NoError(t, p.Close())
}

type fakeChannel struct {
	closed    bool
	published int
	err       error
}

func (f *fakeChannel) PublishWithContext(context.Context, string, string, bool, bool, amqp.Publishing) error {
	if f.err != nil {
		f.closed = true
		return f.err
	}
	f.published++
	return nil
}

func (f *fakeChannel) IsClosed() bool { return f.closed }
func (f *fakeChannel) Close() error   { f.closed = true; return nil }

func fakePool(size int, open func() (publishChannel, error)) *ChannelPool {
	p := &ChannelPool{channels: make(chan publishChannel, size), open: open, logger: zap.NewNop()}
	for i := 0; i < size; i++ {
		ch, _ := open()
		p.channels <- ch
	}
	return p
}

func TestChannelPool_ReplacesClosedChannels(t *testing.T) {
	var opened []*fakeChannel
	failing := true
	pool := fakePool(2, func() (publishChannel, error) {
		ch := &fakeChannel{}
		if failing {
			ch.err = errors.New("channel closed by broker")
		}
		opened = append(opened, ch)
		return ch, nil
	})
	pub := NewAMQPPublisher(pool, "sales", nil)

	for i := 0; i < 4; i++ {
		assert.Error(t, pub.PublishSaleCreated(context.Background(), sampleEvent()))
	}
	assert.Len(t, pool.channels, 2)

	failing = false
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pub.PublishSaleCreated(ctx, sampleEvent()))
	assert.Equal(t, 1, opened[len(opened)-1].published)
	assert.Len(t, pool.channels, 2)
}

func TestChannelPool_KeepsSlotWhenReopenFails(t *testing.T) {
	pool := &ChannelPool{
		channels: make(chan publishChannel, 1),
		open:     func() (publishChannel, error) { return nil, errors.New("connection lost") },
		logger:   zap.NewNop(),
	}
	pool.channels <- &fakeChannel{closed: true}

	_, err := pool.Get(context.Background())
	require.Error(t, err)
	assert.Len(t, pool.channels, 1)

	require.NoError(t, pool.Close())
	_, err = pool.Get(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
}
