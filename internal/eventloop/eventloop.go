// Package eventloop implements the single-threaded runtime that owns the
// overlay connection, every pending-completion table, and the discovery
// ticker. It is the sole caller of Overlay; everything else in this module
// talks to it through Commands and Events.
package eventloop

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/zap"

	"github.com/hazzery/decent-share/internal/infra/logger"
	"github.com/hazzery/decent-share/internal/usernamestore"
)

// Config bounds the EventLoop's internal queues.
type Config struct {
	CommandQueueSize int
	EventQueueSize   int
}

// opResult is how a goroutine running a blocking Overlay call reports back
// to the top-level select, tagged with the id the EventLoop minted when it
// issued the call.
type opResult struct {
	id  opID
	run func(*EventLoop) // applies the result against the matching pending table
}

// EventLoop is the runtime described in the package doc. Construct with
// New and drive it with Run.
type EventLoop struct {
	overlay Overlay
	store   *usernamestore.Store

	commands       chan Command
	events         chan Event
	opResult       chan opResult
	rendezvousTick <-chan struct{}
	namespace      string

	ids opIDSource

	registerUsername *pendingTable[opID, error]
	findPeerID       *pendingTable[opID, FindPeerIDResult]
	findUsername     *pendingTable[opID, FindPeerUsernameResult]
	directMessageAck *pendingTable[opID, error]
	tradeOfferAck    *pendingTable[opID, error]
	tradeSettlement  *pendingTable[opID, SettlementResult]

	outgoing *outgoingOffers
	inbound  *inboundOffers

	hasRegistered    bool
	pendingUsername  string
	rendezvousCookie []byte
	rendezvousReady  bool
}

// New constructs an EventLoop bound to overlay. namespace is the
// rendezvous namespace to register/discover under; rendezvousTick, when
// non-nil, is the periodic re-discovery signal (nil disables rendezvous
// entirely, e.g. when no rendezvous address was configured).
func New(overlay Overlay, store *usernamestore.Store, namespace string, rendezvousTick <-chan struct{}, cfg Config) *EventLoop {
	return &EventLoop{
		overlay:           overlay,
		store:             store,
		commands:          make(chan Command, cfg.CommandQueueSize),
		events:            make(chan Event, cfg.EventQueueSize),
		opResult:          make(chan opResult, cfg.CommandQueueSize+cfg.EventQueueSize),
		rendezvousTick:    rendezvousTick,
		namespace:         namespace,
		registerUsername:  newPendingTable[opID, error](),
		findPeerID:        newPendingTable[opID, FindPeerIDResult](),
		findUsername:      newPendingTable[opID, FindPeerUsernameResult](),
		directMessageAck:  newPendingTable[opID, error](),
		tradeOfferAck:     newPendingTable[opID, error](),
		tradeSettlement:   newPendingTable[opID, SettlementResult](),
		outgoing:          newOutgoingOffers(),
		inbound:           newInboundOffers(),
	}
}

// Commands returns the send side of the command queue; Client enqueues on
// it.
func (l *EventLoop) Commands() chan<- Command { return l.commands }

// Events returns the receive side of the event-out queue.
func (l *EventLoop) Events() <-chan Event { return l.events }

// Run drives the EventLoop until ctx is canceled. It is the only method
// that touches the pending tables, trade state, or the overlay; it must be
// called from exactly one goroutine.
func (l *EventLoop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-l.commands:
			l.dispatchCommand(ctx, cmd)

		case ev := <-l.overlay.Events():
			l.dispatchOverlayEvent(ctx, ev)

		case res := <-l.opResult:
			res.run(l)

		case <-l.rendezvousTick:
			l.onRendezvousTick(ctx)
		}
	}
}

func (l *EventLoop) dispatchCommand(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case RegisterUsernameCommand:
		l.handleRegisterUsername(ctx, c)
	case FindPeerIDCommand:
		l.handleFindPeerID(ctx, c)
	case FindPeerUsernameCommand:
		l.handleFindPeerUsername(ctx, c)
	case MakeTradeOfferCommand:
		l.handleMakeTradeOffer(ctx, c)
	case RespondTradeCommand:
		l.handleRespondTrade(ctx, c)
	case SendChatMessageCommand:
		l.handleSendChatMessage(ctx, c)
	case DirectMessageCommand:
		l.handleDirectMessage(ctx, c)
	default:
		logger.Logger().Warn("eventloop: unknown command type", zap.Any("command", cmd))
	}
}

func (l *EventLoop) dispatchOverlayEvent(ctx context.Context, ev OverlayEvent) {
	switch e := ev.(type) {
	case InboundTradeOfferRequest:
		l.handleInboundTradeOffer(e)
	case InboundTradeResponseRequest:
		l.handleInboundTradeResponse(e)
	case InboundDirectMessageRequest:
		l.handleInboundDirectMessageRequest(e)
	case InboundChatMessage:
		l.emit(InboundChatEvent{PeerID: e.From, Message: e.Message})
	case MDNSPeerFound:
		l.handleMDNSPeerFound(e)
	case MDNSPeerExpired:
		l.handleMDNSPeerExpired(e)
	case RendezvousConnected:
		l.handleRendezvousConnected(ctx)
	case RoutingTableUpdated:
		l.handleRoutingTableUpdated()
	case IdentifyExternalAddr:
		l.handleIdentifyExternalAddr(ctx)
	default:
		logger.Logger().Warn("eventloop: unknown overlay event type")
	}
}

// emit pushes ev onto the event-out queue, blocking if it is full. A slow
// consumer stalls the loop; the queue is sized for human-scale traffic.
func (l *EventLoop) emit(ev Event) {
	l.events <- ev
}

// selfAddressed reports whether p is this node's own peer id.
func (l *EventLoop) selfAddressed(p peer.ID) bool {
	return p == l.overlay.LocalPeerID()
}

var errSelfAddressed = errors.New("addressing self is forbidden")

// usernameKey returns the lowercase DHT key bytes for username.
func usernameKey(username string) []byte {
	return []byte(strings.ToLower(username))
}

func peerKey(p peer.ID) []byte {
	return []byte(p)
}
