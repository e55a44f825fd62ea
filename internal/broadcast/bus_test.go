package broadcast_test

import (
	"testing"

	"transcribe/internal/broadcast"
)

func TestPublishReachesSubscribersInOrder(t *testing.T) {
	bus := broadcast.New[broadcast.RatingChanged]()
	var got []string
	bus.Subscribe(func(e broadcast.RatingChanged) { got = append(got, "first:"+e.VideoID) })
	unsubscribe := bus.Subscribe(func(e broadcast.RatingChanged) { got = append(got, "second:"+e.VideoID) })

	bus.Publish(broadcast.RatingChanged{VideoID: "xyz", Rating: 5})
	if len(got) != 2 || got[0] != "first:xyz" || got[1] != "second:xyz" {
		t.Fatalf("unexpected deliveries %v", got)
	}

	unsubscribe()
	unsubscribe()
	if bus.Len() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", bus.Len())
	}
	bus.Publish(broadcast.RatingChanged{VideoID: "abc"})
	if len(got) != 3 {
		t.Fatalf("expected one more delivery, got %v", got)
	}
}

func TestNilBusIsSafe(t *testing.T) {
	var bus *broadcast.Bus[int]
	bus.Publish(1)
	bus.Subscribe(func(int) {})()
	if bus.Len() != 0 {
		t.Fatal("expected zero subscribers")
	}
}
