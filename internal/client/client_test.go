package client

import (
	"testing"

	"github.com/libp2p/go-libp2p/core/test"

	"github.com/hazzery/decent-share/internal/eventloop"
	"github.com/hazzery/decent-share/internal/usernamestore"
)

// fakeLoop answers exactly one command with a canned result, enough to
// exercise the Client's cache-then-command fallback logic without a real
// EventLoop.
func fakeLoop(t *testing.T, handle func(eventloop.Command)) chan<- eventloop.Command {
	t.Helper()
	commands := make(chan eventloop.Command, 1)
	go func() {
		cmd := <-commands
		handle(cmd)
	}()
	return commands
}

func TestFindUserCacheHit(t *testing.T) {
	store := usernamestore.New()
	id, err := test.RandPeerID()
	if err != nil {
		t.Fatalf("RandPeerID: %v", err)
	}
	store.Insert("Alice", id)

	// No command should be sent on a cache hit; a nil channel would block
	// forever on any send, which is exactly the assertion we want (the
	// test would hang and time out rather than pass).
	c := New(nil, store)

	got, ok := c.FindUser("alice")
	if !ok || got != id {
		t.Fatalf("FindUser(alice) = %v, %v; want %v, true", got, ok, id)
	}
}

func TestFindUserCacheMissFallsBackToCommand(t *testing.T) {
	store := usernamestore.New()
	id, err := test.RandPeerID()
	if err != nil {
		t.Fatalf("RandPeerID: %v", err)
	}

	commands := fakeLoop(t, func(cmd eventloop.Command) {
		find := cmd.(eventloop.FindPeerIDCommand)
		find.Reply <- eventloop.FindPeerIDResult{PeerID: id, Found: true}
	})

	c := New(commands, store)
	got, ok := c.FindUser("bob")
	if !ok || got != id {
		t.Fatalf("FindUser(bob) = %v, %v; want %v, true", got, ok, id)
	}

	if cached, ok := store.LookupPeerID("bob"); !ok || cached != id {
		t.Fatal("expected FindUser to populate the cache on success")
	}
}

func TestDeclineTradeNoSuchUser(t *testing.T) {
	store := usernamestore.New()
	commands := fakeLoop(t, func(cmd eventloop.Command) {
		find := cmd.(eventloop.FindPeerIDCommand)
		find.Reply <- eventloop.FindPeerIDResult{Found: false}
	})

	c := New(commands, store)
	if err := c.DeclineTrade("nobody", "a.txt", "b.txt"); err == nil {
		t.Fatal("expected error for unknown username")
	}
}
