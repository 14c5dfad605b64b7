package httpcore

import "testing"

func TestEventBusPublishAndUnsubscribe(t *testing.T) {
	bus := NewEventBus(nil)

	var headCount, sentCount int
	unsubHead := bus.Subscribe(
		func(RequestHeadReceived) { headCount++ },
		func(ResponseSent) { sentCount++ },
		nil,
	)

	bus.publishHead(RequestHeadReceived{})
	bus.publishSent(ResponseSent{})
	if headCount != 1 || sentCount != 1 {
		t.Fatalf("got headCount=%d sentCount=%d", headCount, sentCount)
	}

	unsubHead()

	bus.publishHead(RequestHeadReceived{})
	bus.publishSent(ResponseSent{})
	if headCount != 1 || sentCount != 1 {
		t.Fatalf("expected no further delivery after unsubscribe, got headCount=%d sentCount=%d", headCount, sentCount)
	}
}

func TestEventBusMultipleSubscribersIndependentUnsubscribe(t *testing.T) {
	bus := NewEventBus(nil)

	var a, b int
	unsubA := bus.Subscribe(func(RequestHeadReceived) { a++ }, nil, nil)
	unsubB := bus.Subscribe(func(RequestHeadReceived) { b++ }, nil, nil)

	bus.publishHead(RequestHeadReceived{})
	if a != 1 || b != 1 {
		t.Fatalf("got a=%d b=%d", a, b)
	}

	unsubA()
	bus.publishHead(RequestHeadReceived{})
	if a != 1 || b != 2 {
		t.Fatalf("expected only b to keep receiving, got a=%d b=%d", a, b)
	}
	unsubB()
}
