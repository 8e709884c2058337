package overlay

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	libp2pprotocol "github.com/libp2p/go-libp2p/core/protocol"
	msgio "github.com/libp2p/go-msgio"

	"github.com/hazzery/decent-share/internal/eventloop"
	decentprotocol "github.com/hazzery/decent-share/internal/protocol"
)

// openRequestStream opens a stream to p on protoID, writes req, reads a
// single response of the same framing into resp, and closes the stream.
func (o *Overlay) openRequestStream(ctx context.Context, p peer.ID, protoID string, req, resp any) error {
	s, err := o.host.NewStream(ctx, p, libp2pprotocol.ID(protoID))
	if err != nil {
		return errors.Wrap(err, "open stream")
	}
	defer s.Close()

	rw := msgio.NewReadWriter(s)
	if err := decentprotocol.WriteMessage(rw, req); err != nil {
		return errors.Wrap(err, "write request")
	}
	if err := decentprotocol.ReadMessage(rw, resp); err != nil {
		return errors.Wrap(err, "read response")
	}
	return nil
}

// SendTradeOffer delivers offer to p on /trade-offer/1 and waits for the
// empty acknowledgement.
func (o *Overlay) SendTradeOffer(ctx context.Context, p peer.ID, offer decentprotocol.TradeOffer) error {
	var resp decentprotocol.NoResponse
	return o.openRequestStream(ctx, p, decentprotocol.TradeOfferID, offer, &resp)
}

// SendTradeResponse delivers resp to p on /trade-response/1 and returns
// the offerer's settlement reply.
func (o *Overlay) SendTradeResponse(ctx context.Context, p peer.ID, resp decentprotocol.TradeResponse) (decentprotocol.TradeResponseResponse, error) {
	var settlement decentprotocol.TradeResponseResponse
	err := o.openRequestStream(ctx, p, decentprotocol.TradeResponseID, resp, &settlement)
	return settlement, err
}

// SendDirectMessage delivers msg to p on /direct-message/1 and waits for
// the empty acknowledgement.
func (o *Overlay) SendDirectMessage(ctx context.Context, p peer.ID, msg decentprotocol.DirectMessage) error {
	var resp decentprotocol.NoResponse
	return o.openRequestStream(ctx, p, decentprotocol.DirectMessageID, msg, &resp)
}

func (o *Overlay) handleTradeOfferStream(s network.Stream) {
	defer s.Close()
	rw := msgio.NewReadWriter(s)

	var offer decentprotocol.TradeOffer
	if err := decentprotocol.ReadMessage(rw, &offer); err != nil {
		warnf("read trade offer", err)
		return
	}

	done := make(chan decentprotocol.NoResponse, 1)
	o.events <- eventloop.InboundTradeOfferRequest{
		Peer:  s.Conn().RemotePeer(),
		Offer: offer,
		Respond: func(r decentprotocol.NoResponse) {
			done <- r
		},
	}

	resp := <-done
	if err := decentprotocol.WriteMessage(rw, resp); err != nil {
		warnf("write trade offer ack", err)
	}
}

func (o *Overlay) handleTradeResponseStream(s network.Stream) {
	defer s.Close()
	rw := msgio.NewReadWriter(s)

	var response decentprotocol.TradeResponse
	if err := decentprotocol.ReadMessage(rw, &response); err != nil {
		warnf("read trade response", err)
		return
	}

	done := make(chan decentprotocol.TradeResponseResponse, 1)
	o.events <- eventloop.InboundTradeResponseRequest{
		Peer:     s.Conn().RemotePeer(),
		Response: response,
		Respond: func(r decentprotocol.TradeResponseResponse) {
			done <- r
		},
	}

	settlement := <-done
	if err := decentprotocol.WriteMessage(rw, settlement); err != nil {
		warnf("write trade settlement", err)
	}
}

func (o *Overlay) handleDirectMessageStream(s network.Stream) {
	defer s.Close()
	rw := msgio.NewReadWriter(s)

	var msg decentprotocol.DirectMessage
	if err := decentprotocol.ReadMessage(rw, &msg); err != nil {
		warnf("read direct message", err)
		return
	}

	done := make(chan decentprotocol.NoResponse, 1)
	o.events <- eventloop.InboundDirectMessageRequest{
		Peer:    s.Conn().RemotePeer(),
		Message: msg,
		Respond: func(r decentprotocol.NoResponse) {
			done <- r
		},
	}

	resp := <-done
	if err := decentprotocol.WriteMessage(rw, resp); err != nil {
		warnf("write direct message ack", err)
	}
}

func (o *Overlay) readChatLoop(ctx context.Context) {
	for {
		msg, err := o.sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			warnf("read chat message", err)
			continue
		}
		if msg.ReceivedFrom == o.host.ID() {
			continue
		}
		o.events <- eventloop.InboundChatMessage{
			From:    msg.ReceivedFrom,
			Message: string(msg.Data),
		}
	}
}
