package eventloop

import (
	"context"

	"go.uber.org/zap"

	"github.com/hazzery/decent-share/internal/infra/logger"
	"github.com/hazzery/decent-share/internal/infra/storage"
	"github.com/hazzery/decent-share/internal/protocol"
)

// handleInboundTradeOffer answers the empty acknowledgement immediately,
// records the offer as pending on the offeree side, and reports it to the
// application layer.
func (l *EventLoop) handleInboundTradeOffer(e InboundTradeOfferRequest) {
	e.Respond(protocol.NoResponse{})

	l.inbound.insert(e.Peer, e.Offer)
	l.emit(InboundTradeOfferEvent{
		PeerID:            e.Peer,
		OfferedFileName:   e.Offer.OfferedFileName,
		RequestedFileName: e.Offer.RequestedFileName,
	})
}

// handleInboundTradeResponse is the offerer side of step 5: B's answer to
// an outstanding offer arrives here as a request awaiting a settlement
// response.
func (l *EventLoop) handleInboundTradeResponse(e InboundTradeResponseRequest) {
	key := protocol.TradeOffer{
		OfferedFileName:   e.Response.OfferedFileName,
		RequestedFileName: e.Response.RequestedFileName,
	}

	entry, ok := l.outgoing.get(e.Peer, key)
	if !ok {
		// A response for a tuple we never offered (or already settled) is
		// a protocol violation: log only, leave the remote's request
		// unanswered.
		logger.Logger().Warn("eventloop: trade response for unknown offer",
			zap.String("offered", key.OfferedFileName),
			zap.String("requested", key.RequestedFileName),
		)
		return
	}
	l.outgoing.remove(e.Peer, key)

	wasAccepted := e.Response.Accepted()
	l.emit(InboundTradeResponseEvent{
		PeerID:            e.Peer,
		OfferedFileName:   key.OfferedFileName,
		RequestedFileName: key.RequestedFileName,
		WasAccepted:       wasAccepted,
	})

	if !wasAccepted {
		e.Respond(protocol.TradeResponseResponse{
			OfferedFileName:   key.OfferedFileName,
			RequestedFileName: key.RequestedFileName,
		})
		return
	}

	if err := writeRequestedFile(entry.requestedFilePath, e.Response.RequestedFileBytes); err != nil {
		logger.Logger().Warn("eventloop: failed to write settled trade file",
			zap.String("path", entry.requestedFilePath),
			zap.Error(err),
		)
		e.Respond(protocol.TradeResponseResponse{
			OfferedFileName:   key.OfferedFileName,
			RequestedFileName: key.RequestedFileName,
		})
		return
	}

	e.Respond(protocol.TradeResponseResponse{
		OfferedFileName:   key.OfferedFileName,
		RequestedFileName: key.RequestedFileName,
		OfferedFileBytes:  entry.offeredFileBytes,
	})
}

// writeRequestedFile persists the settled trade's payload atomically, so a
// crash mid-write never leaves a half-written file at requestedFilePath.
func writeRequestedFile(path string, data []byte) error {
	return storage.AtomicWriteFile(path, data)
}

func (l *EventLoop) handleInboundDirectMessageRequest(e InboundDirectMessageRequest) {
	e.Respond(protocol.NoResponse{})
	l.emit(InboundDirectMessageEvent{PeerID: e.Peer, Message: e.Message.Message})
}

func (l *EventLoop) handleMDNSPeerFound(e MDNSPeerFound) {
	l.overlay.AddGossipPeer(e.Peer)
	for _, addr := range e.Addrs {
		l.overlay.AddAddress(e.Peer, addr)
	}
}

func (l *EventLoop) handleMDNSPeerExpired(e MDNSPeerExpired) {
	l.overlay.RemoveGossipPeer(e.Peer)
}

func (l *EventLoop) handleRendezvousConnected(ctx context.Context) {
	regs, cookie, err := l.overlay.DiscoverRendezvous(ctx, l.namespace, nil)
	if err != nil {
		logger.Logger().Warn("eventloop: initial rendezvous discover failed", zap.Error(err))
		return
	}
	l.rendezvousReady = true
	l.applyRendezvousDiscovery(ctx, regs, cookie)
}

func (l *EventLoop) onRendezvousTick(ctx context.Context) {
	if !l.rendezvousReady {
		return
	}
	regs, cookie, err := l.overlay.DiscoverRendezvous(ctx, l.namespace, l.rendezvousCookie)
	if err != nil {
		logger.Logger().Warn("eventloop: rendezvous re-discover failed", zap.Error(err))
		return
	}
	l.applyRendezvousDiscovery(ctx, regs, cookie)
}

func (l *EventLoop) applyRendezvousDiscovery(ctx context.Context, regs []RendezvousRegistration, cookie []byte) {
	l.rendezvousCookie = cookie

	local := l.overlay.LocalPeerID()
	for _, reg := range regs {
		if reg.PeerID == local {
			continue
		}
		l.overlay.AddGossipPeer(reg.PeerID)
		for _, addr := range reg.Addrs {
			l.overlay.AddAddress(reg.PeerID, addr)
			peerID, addr := reg.PeerID, addr
			go func() {
				if err := l.overlay.Dial(ctx, peerID, addr); err != nil {
					logger.Logger().Warn("eventloop: rendezvous dial failed",
						zap.String("peer", peerID.String()),
						zap.Error(err),
					)
				}
			}()
		}
	}
}

func (l *EventLoop) handleRoutingTableUpdated() {
	if l.hasRegistered {
		return
	}
	l.emit(RegistrationRequestEvent{Username: l.pendingUsername})
	l.hasRegistered = true
}

func (l *EventLoop) handleIdentifyExternalAddr(ctx context.Context) {
	if l.namespace == "" || l.rendezvousTick == nil {
		return
	}
	if err := l.overlay.RegisterRendezvous(ctx, l.namespace); err != nil {
		logger.Logger().Warn("eventloop: rendezvous register failed", zap.Error(err))
	}
}
