// Package identity generates a node's keypair and derives a libp2p peer
// ID from it, for use as the node's registration identity with the peer
// directory (spec.md §6). It does not open any network connection; the
// peer directory itself is an external collaborator this module never
// implements.
package identity

import (
	"crypto/rand"
	"fmt"

	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"golang.org/x/crypto/ed25519"
)

// Identity is a node's long-lived cryptographic identity.
type Identity struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
	PeerID     peer.ID
}

// Generate creates a fresh ed25519 keypair via libp2p's crypto package and
// derives the corresponding peer ID, then exposes the raw key material as
// standard ed25519 types for callers outside the libp2p stack.
func Generate() (Identity, error) {
	libp2pPriv, libp2pPub, err := libp2pcrypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return Identity{}, fmt.Errorf("identity: generating ed25519 key: %w", err)
	}

	pid, err := peer.IDFromPrivateKey(libp2pPriv)
	if err != nil {
		return Identity{}, fmt.Errorf("identity: deriving peer id: %w", err)
	}

	rawPriv, err := libp2pPriv.Raw()
	if err != nil {
		return Identity{}, fmt.Errorf("identity: extracting private key bytes: %w", err)
	}
	rawPub, err := libp2pPub.Raw()
	if err != nil {
		return Identity{}, fmt.Errorf("identity: extracting public key bytes: %w", err)
	}

	return Identity{
		PublicKey:  ed25519.PublicKey(rawPub),
		PrivateKey: ed25519.PrivateKey(rawPriv),
		PeerID:     pid,
	}, nil
}

// RegistrationAddress is the string this node would send to a peer
// directory: "<peer_id>,<addr>", per spec.md §6's wire format. No
// connection is opened here; this is a pure formatting helper for callers
// that do implement the directory client.
func (id Identity) RegistrationAddress(addr string) string {
	return fmt.Sprintf("%s,%s", id.PeerID.String(), addr)
}
