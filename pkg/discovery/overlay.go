package discovery

import (
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/cuemby/harness/pkg/herrors"
)

// OverlayKeyPair is one service's WireGuard identity on the mesh overlay.
type OverlayKeyPair struct {
	PrivateKey wgtypes.Key
	PublicKey  wgtypes.Key
}

// GenerateOverlayKeyPair creates a fresh WireGuard keypair for a service
// joining the Overlay topology, grounded on poc/wireguard/main.go's
// wgtypes.GeneratePrivateKey()/PublicKey() call pair.
func GenerateOverlayKeyPair() (OverlayKeyPair, error) {
	priv, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return OverlayKeyPair{}, herrors.Wrap(herrors.Config, "generate wireguard keypair", err)
	}
	return OverlayKeyPair{PrivateKey: priv, PublicKey: priv.PublicKey()}, nil
}

// OverlayPeer describes one peer entry to add to a service's WireGuard
// device configuration.
type OverlayPeer struct {
	PublicKey  string
	Endpoint   string
	AllowedIPs []string
}

// BuildPeerConfigs projects a set of ServiceNetwork overlay entries into
// the peer list a given service's device needs, excluding itself.
func BuildPeerConfigs(self string, networks map[string]OverlayMember) []OverlayPeer {
	peers := make([]OverlayPeer, 0, len(networks))
	for name, member := range networks {
		if name == self {
			continue
		}
		peers = append(peers, OverlayPeer{
			PublicKey:  member.PublicKey,
			Endpoint:   member.Endpoint,
			AllowedIPs: []string{member.OverlayIP + "/32"},
		})
	}
	return peers
}

// OverlayMember is the subset of a service's overlay identity needed to
// build peer configs for the rest of the mesh.
type OverlayMember struct {
	PublicKey string
	Endpoint  string
	OverlayIP string
}
