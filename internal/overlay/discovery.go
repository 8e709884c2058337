package overlay

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	rendezvous "github.com/libp2p/go-libp2p-rendezvous"
	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/multiformats/go-multiaddr"

	"github.com/hazzery/decent-share/internal/eventloop"
	decentprotocol "github.com/hazzery/decent-share/internal/protocol"
)

// RendezvousDiscoverPeriod is how often the rendezvous re-discovery ticker
// fires while a cookie is held.
const RendezvousDiscoverPeriod = 30 * time.Second

// mdnsNotifee forwards mDNS's found/expired callbacks onto the overlay's
// event channel; the go-libp2p mDNS service has no "expired" callback of
// its own, so expiry is synthesized from a short timer per peer instead
// (see scheduleMDNSExpiry).
type mdnsNotifee struct {
	o *Overlay
}

func (n mdnsNotifee) HandlePeerFound(info peer.AddrInfo) {
	n.o.events <- eventloop.MDNSPeerFound{Peer: info.ID, Addrs: info.Addrs}
	n.o.scheduleMDNSExpiry(info.ID)
}

func (o *Overlay) startMDNS(h host.Host) error {
	svc := mdns.NewMdnsService(h, decentprotocol.RendezvousNamespace, mdnsNotifee{o: o})
	return svc.Start()
}

// scheduleMDNSExpiry approximates rust-libp2p's Mdns::Expired event: the
// Go mDNS service only ever reports discoveries, so an advertisement not
// refreshed within one mDNS query interval is treated as expired.
func (o *Overlay) scheduleMDNSExpiry(p peer.ID) {
	const mdnsQueryInterval = 2 * time.Minute
	timer := time.AfterFunc(mdnsQueryInterval, func() {
		o.events <- eventloop.MDNSPeerExpired{Peer: p}
	})
	if old, loaded := mdnsExpiryTimers.Swap(p, timer); loaded {
		old.(*time.Timer).Stop()
	}
}

// mdnsExpiryTimers holds the pending expiry timer per discovered peer, so
// a fresh discovery replaces (and stops) the previous one.
var mdnsExpiryTimers sync.Map // peer.ID -> *time.Timer

// watchRoutingTable subscribes to the host's event bus and emits
// RoutingTableUpdated each time a peer identification event arrives,
// which is this implementation's proxy for "the DHT routing table gained
// a route".
func (o *Overlay) watchRoutingTable(ctx context.Context) {
	sub, err := o.host.EventBus().Subscribe(new(event.EvtPeerIdentificationCompleted))
	if err != nil {
		warnf("subscribe routing table events", err)
		return
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.Out():
			if !ok {
				return
			}
			o.events <- eventloop.RoutingTableUpdated{}
		}
	}
}

// watchIdentify subscribes to local-reachability notifications and emits
// IdentifyExternalAddr, carrying the host's first listen address, each
// time the reachability changes to a known state (public or private).
func (o *Overlay) watchIdentify(ctx context.Context) {
	sub, err := o.host.EventBus().Subscribe(new(event.EvtLocalReachabilityChanged))
	if err != nil {
		warnf("subscribe identify events", err)
		return
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-sub.Out():
			if !ok {
				return
			}
			ev, ok := raw.(event.EvtLocalReachabilityChanged)
			if !ok || ev.Reachability == network.ReachabilityUnknown {
				continue
			}
			addrs := o.host.Addrs()
			if len(addrs) == 0 {
				continue
			}
			o.events <- eventloop.IdentifyExternalAddr{Addr: addrs[0]}
		}
	}
}

// connectRendezvous dials the configured rendezvous server and, once
// connected, reports RendezvousConnected so the EventLoop can issue the
// first discover call. The initial dial retries with backoff since the
// rendezvous server may not be reachable yet at node startup.
func (o *Overlay) connectRendezvous(ctx context.Context) {
	info, err := peer.AddrInfoFromP2pAddr(o.rendezvousAddr)
	if err != nil {
		warnf("parse rendezvous address", err)
		return
	}
	o.rendezvousPeer = *info
	o.host.Peerstore().AddAddrs(info.ID, info.Addrs, addressTTL)

	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	connect := func() error {
		return o.host.Connect(ctx, *info)
	}
	if err := backoff.Retry(connect, bo); err != nil {
		warnf("connect to rendezvous server", err)
		return
	}
	o.rendezvousCli = rendezvous.NewRendezvousClient(o.host, info.ID)
	o.events <- eventloop.RendezvousConnected{}
}

// RegisterRendezvous advertises this node under namespace on the
// rendezvous server.
func (o *Overlay) RegisterRendezvous(ctx context.Context, namespace string) error {
	if o.rendezvousCli == nil {
		return errors.New("rendezvous: not connected")
	}
	_, err := o.rendezvousCli.Register(ctx, namespace, rendezvous.DefaultTTL)
	return err
}

// DiscoverRendezvous requests registrations under namespace, passing
// cookie for incremental results (nil for the first call).
func (o *Overlay) DiscoverRendezvous(ctx context.Context, namespace string, cookie []byte) ([]eventloop.RendezvousRegistration, []byte, error) {
	if o.rendezvousCli == nil {
		return nil, nil, errors.New("rendezvous: not connected")
	}

	registrations, newCookie, err := o.rendezvousCli.Discover(ctx, namespace, 0, cookie)
	if err != nil {
		return nil, nil, err
	}

	out := make([]eventloop.RendezvousRegistration, 0, len(registrations))
	for _, reg := range registrations {
		addrs := make([]multiaddr.Multiaddr, 0, len(reg.Addrs))
		for _, raw := range reg.Addrs {
			addr, err := multiaddr.NewMultiaddrBytes(raw)
			if err != nil {
				continue
			}
			addrs = append(addrs, addr)
		}
		peerID, err := peer.IDFromBytes(reg.Peer)
		if err != nil {
			continue
		}
		out = append(out, eventloop.RendezvousRegistration{PeerID: peerID, Addrs: addrs})
	}

	return out, newCookie, nil
}
