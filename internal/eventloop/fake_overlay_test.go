package eventloop

import (
	"context"
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/test"
	"github.com/multiformats/go-multiaddr"

	"github.com/hazzery/decent-share/internal/protocol"
)

// fakeOverlay is an in-memory stand-in for the real libp2p-backed Overlay,
// letting the EventLoop's command/event handling be exercised without a
// live network.
type fakeOverlay struct {
	mu     sync.Mutex
	local  peer.ID
	dht    map[string][]byte
	events chan OverlayEvent

	putErr                error
	getErr                error
	tradeOfferErr         error
	tradeResponseErr      error
	tradeResponseResponse protocol.TradeResponseResponse
	directMessageErr      error
	publishErr            error

	sentTradeOffers    []protocol.TradeOffer
	sentDirectMessages []protocol.DirectMessage
	published          []string
	gossipPeers        map[peer.ID]bool
}

func newFakeOverlay() (*fakeOverlay, error) {
	local, err := test.RandPeerID()
	if err != nil {
		return nil, err
	}
	return &fakeOverlay{
		local:       local,
		dht:         make(map[string][]byte),
		events:      make(chan OverlayEvent, 16),
		gossipPeers: make(map[peer.ID]bool),
	}, nil
}

func (f *fakeOverlay) LocalPeerID() peer.ID { return f.local }

func (f *fakeOverlay) PutRecord(_ context.Context, key, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	f.dht[string(key)] = cp
	return nil
}

func (f *fakeOverlay) GetRecord(_ context.Context, key []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	value, ok := f.dht[string(key)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return value, nil
}

func (f *fakeOverlay) SendTradeOffer(_ context.Context, _ peer.ID, offer protocol.TradeOffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentTradeOffers = append(f.sentTradeOffers, offer)
	return f.tradeOfferErr
}

func (f *fakeOverlay) SendTradeResponse(_ context.Context, _ peer.ID, _ protocol.TradeResponse) (protocol.TradeResponseResponse, error) {
	return f.tradeResponseResponse, f.tradeResponseErr
}

func (f *fakeOverlay) SendDirectMessage(_ context.Context, _ peer.ID, msg protocol.DirectMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentDirectMessages = append(f.sentDirectMessages, msg)
	return f.directMessageErr
}

func (f *fakeOverlay) PublishChat(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, message)
	return f.publishErr
}

func (f *fakeOverlay) AddGossipPeer(p peer.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gossipPeers[p] = true
}

func (f *fakeOverlay) RemoveGossipPeer(p peer.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.gossipPeers, p)
}

func (f *fakeOverlay) AddAddress(peer.ID, multiaddr.Multiaddr) {}

func (f *fakeOverlay) Dial(context.Context, peer.ID, multiaddr.Multiaddr) error { return nil }

func (f *fakeOverlay) RegisterRendezvous(context.Context, string) error { return nil }

func (f *fakeOverlay) DiscoverRendezvous(context.Context, string, []byte) ([]RendezvousRegistration, []byte, error) {
	return nil, nil, nil
}

func (f *fakeOverlay) Events() <-chan OverlayEvent { return f.events }
