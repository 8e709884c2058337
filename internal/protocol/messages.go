// Package protocol defines the wire messages exchanged on the node's three
// request/response stream protocols, and the framing used to put them on
// the wire.
package protocol

// Protocol identifiers, one per request/response exchange. Each is a
// distinct libp2p stream protocol so the three exchanges never share an
// id space.
const (
	TradeOfferID    = "/trade-offer/1"
	TradeResponseID = "/trade-response/1"
	DirectMessageID = "/direct-message/1"
)

// ChatTopic is the single well-known gossipsub topic all nodes subscribe
// to for the global chat.
const ChatTopic = "chat-room"

// RendezvousNamespace is the namespace nodes register and discover under
// on the rendezvous server.
const RendezvousNamespace = "rendezvous"

// IdentifyProtocolID is this node's identify protocol version string, so
// peers (in particular the rendezvous server) can recognize its build.
const IdentifyProtocolID = "rendezvous-identify/1.0.0"

// TradeOffer is both the logical key identifying an in-flight trade
// between two peers and the request body of the /trade-offer/1 protocol.
type TradeOffer struct {
	OfferedFileName   string `cbor:"offered_file_name"`
	RequestedFileName string `cbor:"requested_file_name"`
}

// NoResponse is the empty acknowledgement returned by /trade-offer/1 and
// /direct-message/1.
type NoResponse struct{}

// TradeResponse is the request body of /trade-response/1: the offeree's
// accept (with bytes) or decline (without) answer to a trade offer.
type TradeResponse struct {
	RequestedFileName   string  `cbor:"requested_file_name"`
	OfferedFileName     string  `cbor:"offered_file_name"`
	RequestedFileBytes  []byte  `cbor:"requested_file_bytes,omitempty"`
}

// Accepted reports whether the responder provided bytes, i.e. accepted the
// trade rather than declining it.
func (r TradeResponse) Accepted() bool { return r.RequestedFileBytes != nil }

// TradeResponseResponse is the settlement message the offerer sends back
// on /trade-response/1: the offered file's bytes, if the offeree's
// response included requested bytes to settle against.
type TradeResponseResponse struct {
	OfferedFileName    string `cbor:"offered_file_name"`
	RequestedFileName  string `cbor:"requested_file_name"`
	OfferedFileBytes   []byte `cbor:"offered_file_bytes,omitempty"`
}

// DirectMessage is the request body of /direct-message/1.
type DirectMessage struct {
	Message string `cbor:"message"`
}
