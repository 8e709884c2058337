package protocol

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/libp2p/go-msgio"
)

// WriteMessage CBOR-encodes v and writes it to w as a single length-prefixed
// frame, the framing all three request/response protocols use on the wire.
func WriteMessage(w msgio.Writer, v any) error {
	data, err := cbor.Marshal(v)
	if err != nil {
		return err
	}
	return w.WriteMsg(data)
}

// ReadMessage reads a single length-prefixed frame from r and CBOR-decodes
// it into v.
func ReadMessage(r msgio.Reader, v any) error {
	data, err := r.ReadMsg()
	if err != nil {
		return err
	}
	defer r.ReleaseMsg(data)
	return cbor.Unmarshal(data, v)
}
