package eventloop

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/hazzery/decent-share/internal/protocol"
)

func (l *EventLoop) handleRegisterUsername(ctx context.Context, c RegisterUsernameCommand) {
	l.pendingUsername = c.Username
	first := l.ids.nextID()
	second := l.ids.nextID()

	local := l.overlay.LocalPeerID()
	forward := usernameKey(c.Username)
	reverse := peerKey(local)

	l.registerUsername.insert(first, c.Reply)

	go func() {
		err := l.overlay.PutRecord(ctx, forward, reverse)
		l.opResult <- opResult{id: first, run: func(l *EventLoop) {
			reply, ok := l.registerUsername.take(first)
			if !ok {
				return
			}
			if err != nil {
				reply <- errors.Wrap(err, "register username")
				return
			}
			l.hasRegistered = true
			reply <- nil
		}}
	}()

	go func() {
		// The second put's own outcome is not observed by any caller; the
		// command contract signals on the first put only.
		_ = l.overlay.PutRecord(ctx, reverse, forward)
		l.opResult <- opResult{id: second, run: func(*EventLoop) {}}
	}()
}

func (l *EventLoop) handleFindPeerID(ctx context.Context, c FindPeerIDCommand) {
	id := l.ids.nextID()
	l.findPeerID.insert(id, c.Reply)

	key := usernameKey(c.Username)
	go func() {
		value, err := l.overlay.GetRecord(ctx, key)
		l.opResult <- opResult{id: id, run: func(l *EventLoop) {
			reply, ok := l.findPeerID.take(id)
			if !ok {
				return
			}
			if err != nil {
				reply <- FindPeerIDResult{Found: false}
				return
			}
			reply <- FindPeerIDResult{PeerID: peer.ID(value), Found: true}
		}}
	}()
}

func (l *EventLoop) handleFindPeerUsername(ctx context.Context, c FindPeerUsernameCommand) {
	id := l.ids.nextID()
	l.findUsername.insert(id, c.Reply)

	key := peerKey(c.PeerID)
	go func() {
		value, err := l.overlay.GetRecord(ctx, key)
		l.opResult <- opResult{id: id, run: func(l *EventLoop) {
			reply, ok := l.findUsername.take(id)
			if !ok {
				return
			}
			if err != nil {
				reply <- FindPeerUsernameResult{Err: errors.Wrap(err, "find username")}
				return
			}
			username := string(value)
			l.store.Insert(username, c.PeerID)
			reply <- FindPeerUsernameResult{Username: username}
		}}
	}()
}

func (l *EventLoop) handleMakeTradeOffer(ctx context.Context, c MakeTradeOfferCommand) {
	if l.selfAddressed(c.PeerID) {
		c.Reply <- errSelfAddressed
		return
	}

	key := c.offerKey()
	l.outgoing.insert(c.PeerID, key, &outgoingOffer{
		offeredFileBytes:  c.OfferedFileBytes,
		requestedFilePath: c.RequestedFilePath,
	})

	id := l.ids.nextID()
	l.tradeOfferAck.insert(id, c.Reply)

	go func() {
		err := l.overlay.SendTradeOffer(ctx, c.PeerID, key)
		l.opResult <- opResult{id: id, run: func(l *EventLoop) {
			reply, ok := l.tradeOfferAck.take(id)
			if !ok {
				return
			}
			if err != nil {
				l.outgoing.remove(c.PeerID, key)
				reply <- errors.Wrap(err, "send trade offer")
				return
			}
			reply <- nil
		}}
	}()
}

func (l *EventLoop) handleRespondTrade(ctx context.Context, c RespondTradeCommand) {
	key := c.offerKey()
	if !l.inbound.has(c.PeerID, key) {
		c.Reply <- errors.New("no such pending offer")
		return
	}
	l.inbound.remove(c.PeerID, key)

	response := protocol.TradeResponse{
		RequestedFileName:  c.RequestedFileName,
		OfferedFileName:    c.OfferedFileName,
		RequestedFileBytes: c.RequestedFileBytes,
	}

	var settlementID opID
	settlementPending := c.Settlement != nil
	if settlementPending {
		settlementID = l.ids.nextID()
		l.tradeSettlement.insert(settlementID, c.Settlement)
	}

	go func() {
		settlement, err := l.overlay.SendTradeResponse(ctx, c.PeerID, response)
		l.opResult <- opResult{id: settlementID, run: func(l *EventLoop) {
			if !settlementPending {
				return
			}
			reply, ok := l.tradeSettlement.take(settlementID)
			if !ok {
				return
			}
			if err != nil {
				reply <- SettlementResult{Err: errors.Wrap(err, "trade settlement")}
				return
			}
			reply <- SettlementResult{OfferedFileBytes: settlement.OfferedFileBytes}
		}}
	}()

	c.Reply <- nil
}

func (l *EventLoop) handleSendChatMessage(ctx context.Context, c SendChatMessageCommand) {
	err := l.overlay.PublishChat(ctx, c.Message)
	if err != nil {
		c.Reply <- errors.Wrap(err, "publish chat message")
		return
	}
	c.Reply <- nil
}

func (l *EventLoop) handleDirectMessage(ctx context.Context, c DirectMessageCommand) {
	if l.selfAddressed(c.PeerID) {
		c.Reply <- errSelfAddressed
		return
	}

	id := l.ids.nextID()
	l.directMessageAck.insert(id, c.Reply)

	go func() {
		err := l.overlay.SendDirectMessage(ctx, c.PeerID, protocol.DirectMessage{Message: c.Message})
		l.opResult <- opResult{id: id, run: func(l *EventLoop) {
			reply, ok := l.directMessageAck.take(id)
			if !ok {
				return
			}
			if err != nil {
				reply <- errors.Wrap(err, "send direct message")
				return
			}
			reply <- nil
		}}
	}()
}
