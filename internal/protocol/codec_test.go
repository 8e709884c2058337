package protocol

import (
	"bytes"
	"testing"

	"github.com/libp2p/go-msgio"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := msgio.NewWriter(&buf)

	want := TradeOffer{OfferedFileName: "a.txt", RequestedFileName: "b.txt"}
	if err := WriteMessage(w, want); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	r := msgio.NewReader(&buf)
	var got TradeOffer
	if err := ReadMessage(r, &got); err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	if got != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestTradeResponseAccepted(t *testing.T) {
	accept := TradeResponse{RequestedFileBytes: []byte{0x42}}
	if !accept.Accepted() {
		t.Fatal("expected Accepted() to be true when bytes are present")
	}

	decline := TradeResponse{}
	if decline.Accepted() {
		t.Fatal("expected Accepted() to be false when no bytes are present")
	}
}
