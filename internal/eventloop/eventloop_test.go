package eventloop

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/kr/pretty"
	"github.com/libp2p/go-libp2p/core/test"

	"github.com/hazzery/decent-share/internal/protocol"
	"github.com/hazzery/decent-share/internal/usernamestore"
)

func newTestLoop(t *testing.T) (*EventLoop, *fakeOverlay, context.CancelFunc) {
	t.Helper()
	overlay, err := newFakeOverlay()
	if err != nil {
		t.Fatalf("newFakeOverlay: %v", err)
	}
	store := usernamestore.New()
	loop := New(overlay, store, "", nil, Config{CommandQueueSize: 8, EventQueueSize: 8})

	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	return loop, overlay, cancel
}

func await[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reply")
		var zero T
		return zero
	}
}

func TestRegisterUsernameSucceeds(t *testing.T) {
	loop, _, cancel := newTestLoop(t)
	defer cancel()

	reply := make(chan error, 1)
	loop.Commands() <- RegisterUsernameCommand{Username: "Alice", Reply: reply}

	if err := await(t, reply); err != nil {
		t.Fatalf("RegisterUsername: %v", err)
	}
}

func TestFindPeerIDAfterRegister(t *testing.T) {
	loop, overlay, cancel := newTestLoop(t)
	defer cancel()

	regReply := make(chan error, 1)
	loop.Commands() <- RegisterUsernameCommand{Username: "Alice", Reply: regReply}
	if err := await(t, regReply); err != nil {
		t.Fatalf("RegisterUsername: %v", err)
	}

	findReply := make(chan FindPeerIDResult, 1)
	loop.Commands() <- FindPeerIDCommand{Username: "alice", Reply: findReply}
	result := await(t, findReply)
	want := FindPeerIDResult{PeerID: overlay.LocalPeerID(), Found: true}
	if result != want {
		t.Fatalf("FindPeerID result mismatch:\n%s", pretty.Sprint(result))
	}
}

func TestFindPeerIDNotFound(t *testing.T) {
	loop, _, cancel := newTestLoop(t)
	defer cancel()

	findReply := make(chan FindPeerIDResult, 1)
	loop.Commands() <- FindPeerIDCommand{Username: "nobody", Reply: findReply}
	result := await(t, findReply)
	if result.Found {
		t.Fatalf("expected not-found, got %+v", result)
	}
}

func TestSelfAddressedTradeOfferRejected(t *testing.T) {
	loop, overlay, cancel := newTestLoop(t)
	defer cancel()

	reply := make(chan error, 1)
	loop.Commands() <- MakeTradeOfferCommand{
		PeerID:            overlay.LocalPeerID(),
		OfferedFileName:   "a.txt",
		RequestedFileName: "b.txt",
		Reply:             reply,
	}
	if err := await(t, reply); err == nil {
		t.Fatal("expected self-addressed error")
	}
}

func TestSelfAddressedDirectMessageRejected(t *testing.T) {
	loop, overlay, cancel := newTestLoop(t)
	defer cancel()

	reply := make(chan error, 1)
	loop.Commands() <- DirectMessageCommand{PeerID: overlay.LocalPeerID(), Message: "hi", Reply: reply}
	if err := await(t, reply); err == nil {
		t.Fatal("expected self-addressed error")
	}
}

func TestSendChatMessage(t *testing.T) {
	loop, overlay, cancel := newTestLoop(t)
	defer cancel()

	reply := make(chan error, 1)
	loop.Commands() <- SendChatMessageCommand{Message: "hello", Reply: reply}
	if err := await(t, reply); err != nil {
		t.Fatalf("SendChatMessage: %v", err)
	}
	if len(overlay.published) != 1 || overlay.published[0] != "hello" {
		t.Fatalf("published = %v; want [hello]", overlay.published)
	}
}

func TestInboundTradeOfferEmitsEvent(t *testing.T) {
	loop, overlay, cancel := newTestLoop(t)
	defer cancel()

	other, err := test.RandPeerID()
	if err != nil {
		t.Fatalf("RandPeerID: %v", err)
	}

	responded := make(chan struct{}, 1)
	overlay.events <- InboundTradeOfferRequest{
		Peer:  other,
		Offer: protocol.TradeOffer{OfferedFileName: "a.txt", RequestedFileName: "b.txt"},
		Respond: func(protocol.NoResponse) {
			responded <- struct{}{}
		},
	}

	ev := await(t, loop.Events())
	offerEvent, ok := ev.(InboundTradeOfferEvent)
	if !ok {
		t.Fatalf("event type = %T; want InboundTradeOfferEvent", ev)
	}
	if offerEvent.PeerID != other || offerEvent.OfferedFileName != "a.txt" {
		t.Fatalf("unexpected event: %+v", offerEvent)
	}
	await(t, responded)
}

func TestInboundTradeResponseAcceptedWritesFile(t *testing.T) {
	loop, overlay, cancel := newTestLoop(t)
	defer cancel()

	other, err := test.RandPeerID()
	if err != nil {
		t.Fatalf("RandPeerID: %v", err)
	}

	destPath := t.TempDir() + "/nested/requested.bin"

	offerReply := make(chan error, 1)
	loop.Commands() <- MakeTradeOfferCommand{
		PeerID:            other,
		OfferedFileName:   "a.txt",
		OfferedFileBytes:  []byte{0x41},
		RequestedFileName: "b.txt",
		RequestedFilePath: destPath,
		Reply:             offerReply,
	}
	if err := await(t, offerReply); err != nil {
		t.Fatalf("MakeTradeOffer: %v", err)
	}

	settled := make(chan protocol.TradeResponseResponse, 1)
	overlay.events <- InboundTradeResponseRequest{
		Peer: other,
		Response: protocol.TradeResponse{
			OfferedFileName:    "a.txt",
			RequestedFileName:  "b.txt",
			RequestedFileBytes: []byte{0x42},
		},
		Respond: func(r protocol.TradeResponseResponse) {
			settled <- r
		},
	}

	ev := await(t, loop.Events())
	respEvent, ok := ev.(InboundTradeResponseEvent)
	if !ok || !respEvent.WasAccepted {
		t.Fatalf("event = %+v, %v; want accepted InboundTradeResponseEvent", ev, ok)
	}

	settlement := await(t, settled)
	if len(settlement.OfferedFileBytes) != 1 || settlement.OfferedFileBytes[0] != 0x41 {
		t.Fatalf("settlement offered bytes = %v; want [0x41]", settlement.OfferedFileBytes)
	}

	data, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("reading settled file: %v", err)
	}
	if len(data) != 1 || data[0] != 0x42 {
		t.Fatalf("settled file contents = %v; want [0x42]", data)
	}
}
