package eventloop

import "github.com/libp2p/go-libp2p/core/peer"

// Event is something the EventLoop reports to the application layer on the
// event-out queue.
type Event interface {
	isEvent()
}

// InboundTradeOfferEvent fires when another peer offers a trade.
type InboundTradeOfferEvent struct {
	PeerID            peer.ID
	OfferedFileName   string
	RequestedFileName string
}

func (InboundTradeOfferEvent) isEvent() {}

// InboundTradeResponseEvent fires on the offerer's node once the offeree
// has answered a trade offer.
type InboundTradeResponseEvent struct {
	PeerID            peer.ID
	OfferedFileName   string
	RequestedFileName string
	WasAccepted       bool
}

func (InboundTradeResponseEvent) isEvent() {}

// InboundDirectMessageEvent fires when another peer sends a direct message.
type InboundDirectMessageEvent struct {
	PeerID  peer.ID
	Message string
}

func (InboundDirectMessageEvent) isEvent() {}

// InboundChatEvent fires when a message arrives on the global chat topic.
type InboundChatEvent struct {
	PeerID  peer.ID
	Message string
}

func (InboundChatEvent) isEvent() {}

// RegistrationRequestEvent fires when the overlay's routing table gains a
// usable route and the local node has not yet registered a username, so
// the application layer gets a chance to retry registration.
type RegistrationRequestEvent struct {
	Username string
}

func (RegistrationRequestEvent) isEvent() {}
