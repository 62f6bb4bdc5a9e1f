package netsim

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"firec2-sim/internal/sched"
	"firec2-sim/internal/telemetry"
)

func testNet(p Params) (*Network, *sched.Queue) {
	q := sched.NewQueue(sched.NewClock())
	g := telemetry.Grid{Width: 8, Height: 10, SpacingM: 12}
	return New(q, g, p, rand.New(rand.NewSource(1))), q
}

func TestNetwork_DeliversToPortHandler(t *testing.T) {
	n, q := testNet(Params{LinkDelay: 2 * time.Millisecond})

	var gotSrc int
	var gotPayload []byte
	var gotAt time.Duration
	n.Handle(PortTelemetry, func(src int, payload []byte, at time.Duration) {
		gotSrc, gotPayload, gotAt = src, payload, at
	})

	n.Send(12, AddrCloud, PortTelemetry, telemetry.KindTelemetry, []byte{1, 2, 3})
	if err := q.Run(context.Background(), time.Second, 0); err != nil {
		t.Fatalf("run: %v", err)
	}

	if gotSrc != 12 || len(gotPayload) != 3 {
		t.Fatalf("delivery wrong: src=%d payload=%v", gotSrc, gotPayload)
	}
	if gotAt < 2*time.Millisecond {
		t.Fatalf("delivered before the link delay: %v", gotAt)
	}
	if sent, dropped := n.Stats(12); sent != 1 || dropped != 0 {
		t.Fatalf("stats = %d/%d", sent, dropped)
	}
}

func TestNetwork_DropNeverDelivers(t *testing.T) {
	n, q := testNet(Params{DropProbability: 1})
	delivered := false
	n.Handle(PortC2Uplink, func(int, []byte, time.Duration) { delivered = true })

	var rows []telemetry.PacketRow
	n.SetPacketSink(func(r telemetry.PacketRow) { rows = append(rows, r) })

	for i := 0; i < 10; i++ {
		n.Send(5, AddrController, PortC2Uplink, telemetry.KindBeacon, []byte{0})
	}
	if err := q.Run(context.Background(), time.Second, 0); err != nil {
		t.Fatalf("run: %v", err)
	}

	if delivered {
		t.Fatalf("dropped packet reached the handler")
	}
	if len(rows) != 10 {
		t.Fatalf("expected a row per send, got %d", len(rows))
	}
	for _, r := range rows {
		if !r.Dropped {
			t.Fatalf("row not marked dropped: %+v", r)
		}
	}
	if sent, dropped := n.Stats(5); sent != 10 || dropped != 10 {
		t.Fatalf("stats = %d/%d", sent, dropped)
	}
}

func TestNetwork_ZeroLossDeliversEverything(t *testing.T) {
	n, q := testNet(Params{LinkDelay: time.Millisecond, JitterMin: 100 * time.Microsecond, JitterMax: 500 * time.Microsecond})
	count := 0
	n.Handle(PortC2Downlink, func(int, []byte, time.Duration) { count++ })

	for i := 0; i < 50; i++ {
		n.Send(AddrController, 26, PortC2Downlink, telemetry.KindCommand, []byte{1})
	}
	if err := q.Run(context.Background(), time.Second, 0); err != nil {
		t.Fatalf("run: %v", err)
	}
	if count != 50 {
		t.Fatalf("delivered %d of 50", count)
	}
}

func TestNetwork_UnknownPortIsDiscarded(t *testing.T) {
	n, q := testNet(Params{})
	n.Send(1, AddrCloud, 31337, telemetry.KindTelemetry, []byte{9})
	if err := q.Run(context.Background(), time.Second, 0); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestNetwork_RadioFallsOffWithDistance(t *testing.T) {
	n, _ := testNet(Params{})

	// Average out fading; the center node must beat the corner node.
	var center, corner float64
	for i := 0; i < 200; i++ {
		c, _ := n.Radio(35) // near grid center
		k, _ := n.Radio(0)  // corner
		center += c
		corner += k
	}
	if center <= corner {
		t.Fatalf("center RSSI %v should exceed corner RSSI %v", center/200, corner/200)
	}

	rssi, snr := n.Radio(35)
	if snr != rssi+95 {
		t.Fatalf("snr %v inconsistent with rssi %v over the noise floor", snr, rssi)
	}
}
