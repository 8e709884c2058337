package eventloop

import (
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/hazzery/decent-share/internal/protocol"
)

// Command is something a Client asked the EventLoop to do. Commands are
// processed strictly in enqueue order.
type Command interface {
	isCommand()
}

// RegisterUsernameCommand registers username for the local peer on the DHT.
// Reply receives the put outcome once the first of the two DHT puts
// completes.
type RegisterUsernameCommand struct {
	Username string
	Reply    chan<- error
}

func (RegisterUsernameCommand) isCommand() {}

// FindPeerIDResult is what a FindPeerIDCommand's reply channel receives.
// Found is false both on query exhaustion and on any lookup error: the
// caller only ever learns "not found".
type FindPeerIDResult struct {
	PeerID peer.ID
	Found  bool
}

// FindPeerIDCommand resolves a username to a peer id via the DHT.
type FindPeerIDCommand struct {
	Username string
	Reply    chan<- FindPeerIDResult
}

func (FindPeerIDCommand) isCommand() {}

// FindPeerUsernameResult is what a FindPeerUsernameCommand's reply channel
// receives.
type FindPeerUsernameResult struct {
	Username string
	Err      error
}

// FindPeerUsernameCommand resolves a peer id to its registered username via
// the DHT.
type FindPeerUsernameCommand struct {
	PeerID peer.ID
	Reply  chan<- FindPeerUsernameResult
}

func (FindPeerUsernameCommand) isCommand() {}

// MakeTradeOfferCommand sends a trade offer to peerID. Reply resolves once
// the remote has acknowledged receipt of the offer.
type MakeTradeOfferCommand struct {
	OfferedFileName   string
	OfferedFileBytes  []byte
	PeerID            peer.ID
	RequestedFileName string
	RequestedFilePath string
	Reply             chan<- error
}

func (MakeTradeOfferCommand) isCommand() {}

// SettlementResult is what the optional settlement channel of a
// RespondTradeCommand receives once the offerer has settled the trade.
type SettlementResult struct {
	OfferedFileBytes []byte // nil if the counterparty delivered no bytes
	Err              error
}

// RespondTradeCommand answers a pending inbound trade offer from peerID,
// identified by the (offeredFileName, requestedFileName) tuple the offer
// arrived with. RequestedFileBytes nil means decline; non-nil means accept
// with those bytes as the requested file's payload.
//
// Reply resolves synchronously: it reports whether a pending offer for
// that tuple existed; the response itself is sent afterwards, and its
// delivery outcome is only reported on Settlement. Settlement, if
// non-nil, is signaled once with the offerer's settlement reply or the
// delivery error, whether the response accepted or declined; the Client
// supplies one only when accepting.
type RespondTradeCommand struct {
	PeerID             peer.ID
	OfferedFileName    string
	RequestedFileName  string
	RequestedFileBytes []byte
	Settlement         chan<- SettlementResult
	Reply              chan<- error
}

func (RespondTradeCommand) isCommand() {}

// SendChatMessageCommand publishes message on the global chat topic. Reply
// resolves synchronously with the publish outcome; there is no pending
// table involved.
type SendChatMessageCommand struct {
	Message string
	Reply   chan<- error
}

func (SendChatMessageCommand) isCommand() {}

// DirectMessageCommand sends message directly to peerID. Reply resolves
// once the remote has acknowledged receipt.
type DirectMessageCommand struct {
	PeerID  peer.ID
	Message string
	Reply   chan<- error
}

func (DirectMessageCommand) isCommand() {}

// offerKey returns the TradeOffer this command's bytes correspond to, keyed
// the way OutgoingOffers/InboundOffers key trade state.
func (c MakeTradeOfferCommand) offerKey() protocol.TradeOffer {
	return protocol.TradeOffer{
		OfferedFileName:   c.OfferedFileName,
		RequestedFileName: c.RequestedFileName,
	}
}

// offerKey returns the TradeOffer this response answers, as it was named
// when the offer originally arrived.
func (c RespondTradeCommand) offerKey() protocol.TradeOffer {
	return protocol.TradeOffer{
		OfferedFileName:   c.OfferedFileName,
		RequestedFileName: c.RequestedFileName,
	}
}
