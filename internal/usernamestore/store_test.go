package usernamestore

import (
	"testing"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/test"
)

func TestInsertAndLookupRoundTrip(t *testing.T) {
	s := New()
	id, err := test.RandPeerID()
	if err != nil {
		t.Fatalf("RandPeerID: %v", err)
	}

	s.Insert("Alice", id)

	got, ok := s.LookupPeerID("alice")
	if !ok || got != id {
		t.Fatalf("LookupPeerID(alice) = %v, %v; want %v, true", got, ok, id)
	}
	got, ok = s.LookupPeerID("ALICE")
	if !ok || got != id {
		t.Fatalf("LookupPeerID(ALICE) = %v, %v; want %v, true", got, ok, id)
	}

	name, ok := s.LookupUsername(id)
	if !ok || name != "Alice" {
		t.Fatalf("LookupUsername = %q, %v; want %q, true", name, ok, "Alice")
	}
}

func TestLookupMiss(t *testing.T) {
	s := New()
	if _, ok := s.LookupPeerID("nobody"); ok {
		t.Fatal("expected miss for unknown username")
	}
	id, _ := test.RandPeerID()
	if _, ok := s.LookupUsername(id); ok {
		t.Fatal("expected miss for unknown peer id")
	}
}

func TestInsertOverwriteKeepsPairConsistent(t *testing.T) {
	s := New()
	idA, _ := test.RandPeerID()
	idB, _ := test.RandPeerID()

	s.Insert("bob", idA)
	s.Insert("bob", idB) // same name now belongs to a different peer

	if got, ok := s.LookupPeerID("bob"); !ok || got != idB {
		t.Fatalf("LookupPeerID(bob) = %v, %v; want %v, true", got, ok, idB)
	}
	if _, ok := s.LookupUsername(idA); ok {
		t.Fatal("stale reverse entry for idA should have been evicted")
	}
	if name, ok := s.LookupUsername(idB); !ok || name != "bob" {
		t.Fatalf("LookupUsername(idB) = %q, %v; want bob, true", name, ok)
	}
}

func TestInsertSamePeerNewName(t *testing.T) {
	s := New()
	id, _ := test.RandPeerID()

	s.Insert("carol", id)
	s.Insert("caroline", id) // same peer re-registers under a new name

	if _, ok := s.LookupPeerID("carol"); ok {
		t.Fatal("stale forward entry for carol should have been evicted")
	}
	if got, ok := s.LookupPeerID("caroline"); !ok || got != id {
		t.Fatalf("LookupPeerID(caroline) = %v, %v; want %v, true", got, ok, id)
	}
}
