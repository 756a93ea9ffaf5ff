// Package scopeid classifies the raw x-store-id header value into one of the
// two identifier formats the platform accepts. Stores are addressed either by
// their canonical UUID or by the peer commerce platform's own identifier
// (store_ followed by alphanumerics). Classification is pure string matching;
// nothing here touches the database.
package scopeid

import "regexp"

// Kind is the result of classifying a raw scope identifier.
type Kind int

const (
	// KindUnknown means the value matches neither accepted format.
	KindUnknown Kind = iota
	// KindUUID means the value is a canonical 8-4-4-4-12 UUID.
	KindUUID
	// KindPeerID means the value is a peer-platform store identifier.
	KindPeerID
)

// PeerIDPrefix is the fixed prefix of peer-platform store identifiers.
const PeerIDPrefix = "store_"

var (
	uuidPattern   = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	peerIDPattern = regexp.MustCompile(`^store_[A-Za-z0-9]+$`)
)

// Classify reports which identifier format raw is in. It is total over all
// input strings: any value that is not a canonical UUID and not a peer store
// id classifies as KindUnknown.
func Classify(raw string) Kind {
	switch {
	case uuidPattern.MatchString(raw):
		return KindUUID
	case peerIDPattern.MatchString(raw):
		return KindPeerID
	default:
		return KindUnknown
	}
}

// IsUUID reports whether raw is a canonical UUID. Repositories use this to
// re-validate store ids immediately before building a query.
func IsUUID(raw string) bool {
	return uuidPattern.MatchString(raw)
}

// IsPeerID reports whether raw is a peer-platform store identifier.
func IsPeerID(raw string) bool {
	return peerIDPattern.MatchString(raw)
}

// String returns the kind name for logging and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindUUID:
		return "uuid"
	case KindPeerID:
		return "peer_id"
	default:
		return "unknown"
	}
}
