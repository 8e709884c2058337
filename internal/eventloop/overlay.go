package eventloop

import (
	"context"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"

	"github.com/hazzery/decent-share/internal/protocol"
)

// Overlay is everything the EventLoop needs from the networking substrate.
// Its methods are blocking: the underlying libp2p APIs return a result
// directly rather than handing back a query id the way the DHT/request-
// response layers this runtime was modeled on do. The EventLoop recovers
// the query-id-keyed pending-table model by minting its own correlation id
// before spawning a goroutine to run the blocking call, then routing that
// goroutine's result back through the opResult channel as if it had arrived
// asynchronously from the overlay itself. See eventloop.go.
type Overlay interface {
	// LocalPeerID returns this node's own peer id.
	LocalPeerID() peer.ID

	// PutRecord stores value under key in the DHT with quorum one.
	PutRecord(ctx context.Context, key, value []byte) error

	// GetRecord retrieves the first record found under key. A query that
	// exhausts without finding a record returns ErrRecordNotFound.
	GetRecord(ctx context.Context, key []byte) ([]byte, error)

	// SendTradeOffer delivers offer to p on /trade-offer/1 and waits for
	// the empty acknowledgement.
	SendTradeOffer(ctx context.Context, p peer.ID, offer protocol.TradeOffer) error

	// SendTradeResponse delivers resp to p on /trade-response/1 and
	// returns the offerer's settlement reply.
	SendTradeResponse(ctx context.Context, p peer.ID, resp protocol.TradeResponse) (protocol.TradeResponseResponse, error)

	// SendDirectMessage delivers msg to p on /direct-message/1 and waits
	// for the empty acknowledgement.
	SendDirectMessage(ctx context.Context, p peer.ID, msg protocol.DirectMessage) error

	// PublishChat publishes message on the chat topic.
	PublishChat(ctx context.Context, message string) error

	// AddGossipPeer and RemoveGossipPeer maintain the gossipsub explicit
	// peering set used for discovery-fed peers.
	AddGossipPeer(p peer.ID)
	RemoveGossipPeer(p peer.ID)

	// AddAddress records addr as a known address for p in the host's
	// peerstore, where DHT queries can find it; it does not insert p into
	// the DHT routing table itself.
	AddAddress(p peer.ID, addr multiaddr.Multiaddr)

	// Dial opens a connection to p at addr.
	Dial(ctx context.Context, p peer.ID, addr multiaddr.Multiaddr) error

	// RegisterRendezvous and DiscoverRendezvous drive the optional
	// rendezvous-server discovery protocol. DiscoverRendezvous returns the
	// registrations found and a cookie to pass on the next call for
	// incremental results.
	RegisterRendezvous(ctx context.Context, namespace string) error
	DiscoverRendezvous(ctx context.Context, namespace string, cookie []byte) ([]RendezvousRegistration, []byte, error)

	// Events delivers unsolicited inbound occurrences: incoming requests,
	// discovery notifications, routing and identify updates.
	Events() <-chan OverlayEvent
}

// RendezvousRegistration is one peer advertisement returned by a
// rendezvous discover call.
type RendezvousRegistration struct {
	PeerID peer.ID
	Addrs  []multiaddr.Multiaddr
}

// ErrRecordNotFound is returned by Overlay.GetRecord when a DHT query
// exhausts its candidate peers without finding a record.
var ErrRecordNotFound = overlayError("record not found")

type overlayError string

func (e overlayError) Error() string { return string(e) }

// OverlayEvent is something the overlay reports to the EventLoop without
// having been asked: an inbound request on one of the three
// request/response protocols, an inbound chat message, or a discovery
// notification.
type OverlayEvent interface {
	isOverlayEvent()
}

// InboundTradeOfferRequest is a /trade-offer/1 request arriving from Peer.
// Respond must be called exactly once by the handler to unblock the
// remote's request/response stream.
type InboundTradeOfferRequest struct {
	Peer    peer.ID
	Offer   protocol.TradeOffer
	Respond func(protocol.NoResponse)
}

func (InboundTradeOfferRequest) isOverlayEvent() {}

// InboundTradeResponseRequest is a /trade-response/1 request arriving from
// Peer.
type InboundTradeResponseRequest struct {
	Peer     peer.ID
	Response protocol.TradeResponse
	Respond  func(protocol.TradeResponseResponse)
}

func (InboundTradeResponseRequest) isOverlayEvent() {}

// InboundDirectMessageRequest is a /direct-message/1 request arriving from
// Peer.
type InboundDirectMessageRequest struct {
	Peer    peer.ID
	Message protocol.DirectMessage
	Respond func(protocol.NoResponse)
}

func (InboundDirectMessageRequest) isOverlayEvent() {}

// InboundChatMessage is a gossip message delivered on the chat topic.
type InboundChatMessage struct {
	From    peer.ID
	Message string
}

func (InboundChatMessage) isOverlayEvent() {}

// MDNSPeerFound reports a peer discovered via LAN multicast.
type MDNSPeerFound struct {
	Peer  peer.ID
	Addrs []multiaddr.Multiaddr
}

func (MDNSPeerFound) isOverlayEvent() {}

// MDNSPeerExpired reports a previously discovered mDNS peer that has aged
// out.
type MDNSPeerExpired struct {
	Peer peer.ID
}

func (MDNSPeerExpired) isOverlayEvent() {}

// RendezvousConnected reports the first successful connection to the
// configured rendezvous server peer.
type RendezvousConnected struct{}

func (RendezvousConnected) isOverlayEvent() {}

// RoutingTableUpdated reports that the DHT routing table gained a route.
type RoutingTableUpdated struct{}

func (RoutingTableUpdated) isOverlayEvent() {}

// IdentifyExternalAddr reports the node's observed external address, as
// reported by a peer running the identify protocol.
type IdentifyExternalAddr struct {
	Addr multiaddr.Multiaddr
}

func (IdentifyExternalAddr) isOverlayEvent() {}
