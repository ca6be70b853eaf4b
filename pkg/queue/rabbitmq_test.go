package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"blockconnect/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type outcome struct {
	acked   bool
	requeue bool
}

type fakeAcknowledger struct {
	mu       sync.Mutex
	outcomes map[uint64]outcome
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{outcomes: make(map[uint64]outcome)}
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[tag] = outcome{acked: true}
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[tag] = outcome{requeue: requeue}
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func (f *fakeAcknowledger) get(tag uint64) outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outcomes[tag]
}

func TestSettle(t *testing.T) {
	ack := newFakeAcknowledger()
	log := logger.New()

	settle(amqp.Delivery{Acknowledger: ack, DeliveryTag: 1}, nil, log)
	settle(amqp.Delivery{Acknowledger: ack, DeliveryTag: 2}, errors.New("contract down"), log)
	settle(amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Redelivered: true}, errors.New("contract down"), log)
	settle(amqp.Delivery{Acknowledger: ack, DeliveryTag: 4}, ErrPoison, log)

	assert.Equal(t, outcome{acked: true}, ack.get(1))
	assert.Equal(t, outcome{requeue: true}, ack.get(2))
	assert.Equal(t, outcome{}, ack.get(3))
	assert.Equal(t, outcome{}, ack.get(4))
}

func TestDispatch_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ack := newFakeAcknowledger()
	deliveries := make(chan amqp.Delivery)
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var seen []string
	done := make(chan error, 1)
	go func() {
		done <- dispatch(ctx, deliveries, 3, func(_ context.Context, body []byte) error {
			mu.Lock()
			seen = append(seen, string(body))
			mu.Unlock()
			return nil
		}, logger.New())
	}()

	for i, body := range []string{"a", "b", "c", "d"} {
		deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: uint64(i + 1), Body: []byte(body)}
	}
	cancel()

	assert.NoError(t, <-done)
	mu.Lock()
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, seen)
	mu.Unlock()
	for tag := uint64(1); tag <= 4; tag++ {
		assert.True(t, ack.get(tag).acked)
	}
}

func TestDispatch_ClosedChannel(t *testing.T) {
	defer goleak.VerifyNone(t)

	deliveries := make(chan amqp.Delivery)
	close(deliveries)

	err := dispatch(context.Background(), deliveries, 2, func(context.Context, []byte) error { return nil }, logger.New())
	assert.ErrorIs(t, err, errDeliveriesClosed)
}

func TestClampPriority(t *testing.T) {
	assert.Equal(t, uint8(0), clampPriority(-3))
	assert.Equal(t, uint8(5), clampPriority(5))
	assert.Equal(t, uint8(10), clampPriority(42))
}
