// Package overlay wires a concrete libp2p host, Kademlia DHT, gossipsub
// router, and rendezvous client into the eventloop.Overlay interface. This
// is the one package in the module that actually speaks to the network;
// everything upstream of it is pure logic over channels.
package overlay

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	rendezvous "github.com/libp2p/go-libp2p-rendezvous"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	libp2pprotocol "github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/core/routing"
	"github.com/multiformats/go-multiaddr"

	"github.com/hazzery/decent-share/internal/eventloop"
	"github.com/hazzery/decent-share/internal/infra/logger"
	decentprotocol "github.com/hazzery/decent-share/internal/protocol"
)

const (
	dhtQuorum = 1
	// addressTTL is how long a discovery-sourced address is kept in the
	// peerstore before it must be rediscovered.
	addressTTL = 10 * time.Minute
	// chatHeartbeatInterval matches the 10s gossipsub heartbeat pinned by
	// the original network wiring.
	chatHeartbeatInterval = 10 * time.Second
)

// Overlay is the concrete networking backend. It implements
// eventloop.Overlay.
type Overlay struct {
	host host.Host
	dht  *dht.IpfsDHT
	ps   *pubsub.PubSub
	chat *pubsub.Topic
	sub  *pubsub.Subscription

	rendezvousAddr multiaddr.Multiaddr
	rendezvousPeer peer.AddrInfo
	rendezvousCli  rendezvous.RendezvousClient

	events chan eventloop.OverlayEvent
}

// New builds a host listening on tcpPort/quicPort (0 lets the OS assign
// one, matching the original's any-port default), starts the DHT in
// server mode, joins the chat gossipsub topic, and starts mDNS discovery.
// If rendezvousAddr is non-nil, the node also dials the rendezvous server
// and prepares for registration/discovery once identify reports an
// external address.
func New(ctx context.Context, key crypto.PrivKey, tcpPort, quicPort int, rendezvousAddr multiaddr.Multiaddr) (*Overlay, error) {
	o := &Overlay{
		events:         make(chan eventloop.OverlayEvent, 64),
		rendezvousAddr: rendezvousAddr,
	}

	h, kadDHT, err := newHost(ctx, key, tcpPort, quicPort)
	if err != nil {
		return nil, errors.Wrap(err, "construct libp2p host")
	}
	o.host = h
	o.dht = kadDHT

	gossipParams := pubsub.DefaultGossipSubParams()
	gossipParams.HeartbeatInterval = chatHeartbeatInterval

	ps, err := pubsub.NewGossipSub(ctx, h,
		pubsub.WithMessageSignaturePolicy(pubsub.StrictSign),
		pubsub.WithMessageIdFn(contentHashMessageID),
		pubsub.WithGossipSubParams(gossipParams),
	)
	if err != nil {
		return nil, errors.Wrap(err, "construct gossipsub")
	}
	o.ps = ps

	topic, err := ps.Join(decentprotocol.ChatTopic)
	if err != nil {
		return nil, errors.Wrap(err, "join chat topic")
	}
	o.chat = topic

	sub, err := topic.Subscribe()
	if err != nil {
		return nil, errors.Wrap(err, "subscribe chat topic")
	}
	o.sub = sub
	go o.readChatLoop(ctx)

	h.SetStreamHandler(libp2pprotocol.ID(decentprotocol.TradeOfferID), o.handleTradeOfferStream)
	h.SetStreamHandler(libp2pprotocol.ID(decentprotocol.TradeResponseID), o.handleTradeResponseStream)
	h.SetStreamHandler(libp2pprotocol.ID(decentprotocol.DirectMessageID), o.handleDirectMessageStream)

	if err := o.startMDNS(h); err != nil {
		return nil, errors.Wrap(err, "start mdns discovery")
	}

	go o.watchRoutingTable(ctx)
	go o.watchIdentify(ctx)

	if rendezvousAddr != nil {
		go o.connectRendezvous(ctx)
	}

	return o, nil
}

func newHost(ctx context.Context, key crypto.PrivKey, tcpPort, quicPort int) (host.Host, *dht.IpfsDHT, error) {
	var kadDHT *dht.IpfsDHT

	h, err := libp2p.New(
		libp2p.Identity(key),
		libp2p.ListenAddrStrings(
			fmt.Sprintf("/ip4/0.0.0.0/udp/%d/quic-v1", quicPort),
			fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", tcpPort),
		),
		libp2p.ProtocolVersion(decentprotocol.IdentifyProtocolID),
		libp2p.EnableRelay(),
		libp2p.Routing(func(h host.Host) (routing.PeerRouting, error) {
			var err error
			kadDHT, err = dht.New(ctx, h, dht.Mode(dht.ModeServer))
			return kadDHT, err
		}),
	)
	if err != nil {
		return nil, nil, err
	}
	return h, kadDHT, nil
}

// LocalPeerID returns this node's own peer id.
func (o *Overlay) LocalPeerID() peer.ID { return o.host.ID() }

// PutRecord stores value under key in the DHT with quorum one.
func (o *Overlay) PutRecord(ctx context.Context, key, value []byte) error {
	return o.dht.PutValue(ctx, dhtNamespacedKey(key), value, routing.Quorum(dhtQuorum))
}

// GetRecord retrieves the first record found under key. A query that
// exhausts without finding a record returns eventloop.ErrRecordNotFound.
func (o *Overlay) GetRecord(ctx context.Context, key []byte) ([]byte, error) {
	value, err := o.dht.GetValue(ctx, dhtNamespacedKey(key), routing.Quorum(dhtQuorum))
	if err != nil {
		return nil, eventloop.ErrRecordNotFound
	}
	return value, nil
}

// dhtNamespacedKey turns a raw lookup key into a DHT routing key under a
// dedicated application namespace, so these lookups never collide with the
// DHT's own provider/peer records.
func dhtNamespacedKey(key []byte) string {
	return "/decent-share/" + string(key)
}

// PublishChat publishes message on the chat topic.
func (o *Overlay) PublishChat(ctx context.Context, message string) error {
	return o.chat.Publish(ctx, []byte(message))
}

// AddGossipPeer opens a background connection to p, using whatever
// addresses the peerstore already holds for it, so gossipsub can include
// it in its mesh; go-libp2p-pubsub has no runtime "explicit peer" toggle,
// only a construction-time direct-peers list. It does not change p's
// peerstore entry or its TTL, and a failed connect is only logged.
func (o *Overlay) AddGossipPeer(p peer.ID) {
	go func() {
		if err := o.host.Connect(context.Background(), peer.AddrInfo{ID: p}); err != nil {
			warnf("connect to gossip peer", err)
		}
	}()
}

// RemoveGossipPeer is a no-op: without a runtime explicit-peer API there
// is nothing to revoke short of closing the connection outright, which
// would also break any in-flight request/response exchange with p.
func (o *Overlay) RemoveGossipPeer(peer.ID) {}

// AddAddress records addr as a known route to p in the host's peerstore.
func (o *Overlay) AddAddress(p peer.ID, addr multiaddr.Multiaddr) {
	o.host.Peerstore().AddAddr(p, addr, addressTTL)
}

// Dial opens a connection to p at addr.
func (o *Overlay) Dial(ctx context.Context, p peer.ID, addr multiaddr.Multiaddr) error {
	o.host.Peerstore().AddAddr(p, addr, addressTTL)
	return o.host.Connect(ctx, peer.AddrInfo{ID: p, Addrs: []multiaddr.Multiaddr{addr}})
}

// Events delivers unsolicited inbound occurrences to the EventLoop.
func (o *Overlay) Events() <-chan eventloop.OverlayEvent { return o.events }

func contentHashMessageID(m *pubsub.Message) string {
	sum := sha256.Sum256(m.Data)
	return string(sum[:])
}

func warnf(context string, err error) {
	logger.Logger().Sugar().Warnf("overlay: %s: %v", context, err)
}
