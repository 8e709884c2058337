package eventloop

import (
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/hazzery/decent-share/internal/protocol"
)

// outgoingOffer is the offerer-side bookkeeping kept for a trade this node
// has proposed, from the moment the offer is sent until the counterparty's
// response settles it.
type outgoingOffer struct {
	offeredFileBytes  []byte
	requestedFilePath string
}

// outgoingOffers tracks trades this node has offered to others, keyed by
// the (recipient, offer) pair so two distinct peers can be offered the
// same file/request combination without colliding.
type outgoingOffers struct {
	byPeer map[peer.ID]map[protocol.TradeOffer]*outgoingOffer
}

func newOutgoingOffers() *outgoingOffers {
	return &outgoingOffers{byPeer: make(map[peer.ID]map[protocol.TradeOffer]*outgoingOffer)}
}

func (o *outgoingOffers) insert(peerID peer.ID, key protocol.TradeOffer, entry *outgoingOffer) {
	offers, ok := o.byPeer[peerID]
	if !ok {
		offers = make(map[protocol.TradeOffer]*outgoingOffer)
		o.byPeer[peerID] = offers
	}
	offers[key] = entry
}

func (o *outgoingOffers) get(peerID peer.ID, key protocol.TradeOffer) (*outgoingOffer, bool) {
	offers, ok := o.byPeer[peerID]
	if !ok {
		return nil, false
	}
	entry, ok := offers[key]
	return entry, ok
}

func (o *outgoingOffers) remove(peerID peer.ID, key protocol.TradeOffer) {
	offers, ok := o.byPeer[peerID]
	if !ok {
		return
	}
	delete(offers, key)
	if len(offers) == 0 {
		delete(o.byPeer, peerID)
	}
}

// inboundOffer is the offeree-side bookkeeping kept for a trade another
// peer has proposed to this node, from the moment the offer arrives until
// this node answers it.
type inboundOffer struct {
	requestedFileName string
	offeredFileName   string
}

// inboundOffers tracks trades this node has been offered by others, keyed
// by the (originator, offer) pair.
type inboundOffers struct {
	byPeer map[peer.ID]map[protocol.TradeOffer]inboundOffer
}

func newInboundOffers() *inboundOffers {
	return &inboundOffers{byPeer: make(map[peer.ID]map[protocol.TradeOffer]inboundOffer)}
}

func (o *inboundOffers) insert(peerID peer.ID, key protocol.TradeOffer) {
	offers, ok := o.byPeer[peerID]
	if !ok {
		offers = make(map[protocol.TradeOffer]inboundOffer)
		o.byPeer[peerID] = offers
	}
	offers[key] = inboundOffer{
		requestedFileName: key.RequestedFileName,
		offeredFileName:   key.OfferedFileName,
	}
}

func (o *inboundOffers) has(peerID peer.ID, key protocol.TradeOffer) bool {
	offers, ok := o.byPeer[peerID]
	if !ok {
		return false
	}
	_, ok = offers[key]
	return ok
}

func (o *inboundOffers) remove(peerID peer.ID, key protocol.TradeOffer) {
	offers, ok := o.byPeer[peerID]
	if !ok {
		return
	}
	delete(offers, key)
	if len(offers) == 0 {
		delete(o.byPeer, peerID)
	}
}
