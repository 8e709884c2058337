// Package client provides the ergonomic façade used by non-network code
// to talk to the node's EventLoop.
package client

import (
	"fmt"
	"os"

	"github.com/go-faster/errors"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/hazzery/decent-share/internal/eventloop"
	"github.com/hazzery/decent-share/internal/usernamestore"
)

// Client is a cloneable handle onto a running EventLoop. Clones share the
// command sender and the username store, so cloning is cheap and safe to
// do freely across goroutines.
type Client struct {
	commands chan<- eventloop.Command
	store    *usernamestore.Store
}

// New wraps an EventLoop's command queue and the shared UsernameStore into
// a Client.
func New(commands chan<- eventloop.Command, store *usernamestore.Store) *Client {
	return &Client{commands: commands, store: store}
}

// Clone returns a Client sharing this one's command sender and username
// store.
func (c *Client) Clone() *Client {
	return &Client{commands: c.commands, store: c.store}
}

// RegisterUsername registers username for the local peer on the DHT.
func (c *Client) RegisterUsername(username string) error {
	reply := make(chan error, 1)
	c.commands <- eventloop.RegisterUsernameCommand{Username: username, Reply: reply}
	return <-reply
}

// FindUser resolves username to a peer id, consulting the local cache
// first and falling back to a DHT lookup on miss.
func (c *Client) FindUser(username string) (peer.ID, bool) {
	if id, ok := c.store.LookupPeerID(username); ok {
		return id, true
	}

	reply := make(chan eventloop.FindPeerIDResult, 1)
	c.commands <- eventloop.FindPeerIDCommand{Username: username, Reply: reply}
	result := <-reply
	if result.Found {
		c.store.Insert(username, result.PeerID)
	}
	return result.PeerID, result.Found
}

// FindUsername resolves a peer id to its registered username, consulting
// the local cache first and falling back to a DHT lookup on miss.
func (c *Client) FindUsername(id peer.ID) (string, error) {
	if name, ok := c.store.LookupUsername(id); ok {
		return name, nil
	}

	reply := make(chan eventloop.FindPeerUsernameResult, 1)
	c.commands <- eventloop.FindPeerUsernameCommand{PeerID: id, Reply: reply}
	result := <-reply
	if result.Err != nil {
		return "", result.Err
	}
	c.store.Insert(result.Username, id)
	return result.Username, nil
}

// OfferTrade offers offeredFileName (read from offeredFilePath) in
// exchange for requestedFileName, to be written to requestedFilePath once
// the trade settles. recipientUsername is resolved through FindUser.
func (c *Client) OfferTrade(recipientUsername, offeredFileName, offeredFilePath, requestedFileName, requestedFilePath string) error {
	recipient, found := c.FindUser(recipientUsername)
	if !found {
		return fmt.Errorf("no such user: %q", recipientUsername)
	}

	info, err := os.Stat(offeredFilePath)
	if err != nil {
		return errors.Wrap(err, "offered file")
	}
	if info.IsDir() {
		return fmt.Errorf("offered path is not a file: %q", offeredFilePath)
	}

	bytes, err := os.ReadFile(offeredFilePath)
	if err != nil {
		return errors.Wrap(err, "read offered file")
	}

	reply := make(chan error, 1)
	c.commands <- eventloop.MakeTradeOfferCommand{
		OfferedFileName:   offeredFileName,
		OfferedFileBytes:  bytes,
		PeerID:            recipient,
		RequestedFileName: requestedFileName,
		RequestedFilePath: requestedFilePath,
		Reply:             reply,
	}
	return <-reply
}

// AcceptTrade answers a pending inbound offer from originatorUsername with
// the bytes read from requestedFilePath, and blocks until the offerer
// settles the trade. It returns the offerer's file bytes, or nil if the
// offerer delivered none.
func (c *Client) AcceptTrade(originatorUsername, offeredFileName, requestedFileName, requestedFilePath string) ([]byte, error) {
	originator, found := c.FindUser(originatorUsername)
	if !found {
		return nil, fmt.Errorf("no such user: %q", originatorUsername)
	}

	bytes, err := os.ReadFile(requestedFilePath)
	if err != nil {
		return nil, errors.Wrap(err, "read requested file")
	}

	settlement := make(chan eventloop.SettlementResult, 1)
	reply := make(chan error, 1)
	c.commands <- eventloop.RespondTradeCommand{
		PeerID:             originator,
		OfferedFileName:    offeredFileName,
		RequestedFileName:  requestedFileName,
		RequestedFileBytes: bytes,
		Settlement:         settlement,
		Reply:              reply,
	}
	if err := <-reply; err != nil {
		return nil, err
	}

	result := <-settlement
	return result.OfferedFileBytes, result.Err
}

// DeclineTrade answers a pending inbound offer from originatorUsername
// with a decline.
func (c *Client) DeclineTrade(originatorUsername, offeredFileName, requestedFileName string) error {
	originator, found := c.FindUser(originatorUsername)
	if !found {
		return fmt.Errorf("no such user: %q", originatorUsername)
	}

	reply := make(chan error, 1)
	c.commands <- eventloop.RespondTradeCommand{
		PeerID:            originator,
		OfferedFileName:   offeredFileName,
		RequestedFileName: requestedFileName,
		Reply:             reply,
	}
	return <-reply
}

// SendChatMessage publishes message on the global chat topic.
func (c *Client) SendChatMessage(message string) error {
	reply := make(chan error, 1)
	c.commands <- eventloop.SendChatMessageCommand{Message: message, Reply: reply}
	return <-reply
}

// DirectMessage sends message directly to username's peer.
func (c *Client) DirectMessage(username, message string) error {
	recipient, found := c.FindUser(username)
	if !found {
		return fmt.Errorf("no such user: %q", username)
	}

	reply := make(chan error, 1)
	c.commands <- eventloop.DirectMessageCommand{PeerID: recipient, Message: message, Reply: reply}
	return <-reply
}
