// Package tenantauth resolves the raw x-store-id header into an authorized
// store scope. It is the single choke point between "a string a client sent"
// and "a store UUID the rest of the codebase may trust": classification,
// peer-id translation, and membership authorization all happen here, in a
// fixed guard-clause order, before any handler logic runs.
package tenantauth

import (
	"context"
	"log/slog"

	"github.com/storekit/storekit-backend/internal/scopeid"
)

// MappingResolver reads the bidirectional link between store UUIDs and peer
// platform store ids. Absence is reported as an empty string, not an error.
type MappingResolver interface {
	// PeerIDByStoreID returns the peer store id linked to the store, or ""
	// when the store has no peer link.
	PeerIDByStoreID(ctx context.Context, storeID string) (string, error)
	// StoreIDByPeerID returns the store UUID a peer store id is linked to,
	// or "" when no store is linked to it.
	StoreIDByPeerID(ctx context.Context, peerID string) (string, error)
}

// MembershipChecker answers whether a user holds an active membership in a
// store. The lookup is always keyed by the store UUID, never the peer id.
type MembershipChecker interface {
	IsActiveMember(ctx context.Context, userID, storeID string) (bool, error)
}

// ReverseMappingCache is an optional read-through cache for peer-id → store-id
// lookups. Implementations must treat failures as misses; the translator never
// fails a request because the cache is unavailable.
type ReverseMappingCache interface {
	GetStoreID(ctx context.Context, peerID string) (string, bool)
	SetStoreID(ctx context.Context, peerID, storeID string)
}

// Scope is the validated result of resolution: the store UUID every downstream
// query is filtered by, and the peer store id when the store is linked to the
// peer platform ("" otherwise).
type Scope struct {
	StoreID     string
	PeerStoreID string
}

// Translator normalizes and authorizes raw scope identifiers.
type Translator struct {
	mappings MappingResolver
	members  MembershipChecker
	cache    ReverseMappingCache
}

// Option configures a Translator.
type Option func(*Translator)

// WithReverseMappingCache installs a cache for peer-id reverse lookups.
func WithReverseMappingCache(c ReverseMappingCache) Option {
	return func(t *Translator) { t.cache = c }
}

// NewTranslator creates a Translator backed by the given stores.
func NewTranslator(mappings MappingResolver, members MembershipChecker, opts ...Option) *Translator {
	t := &Translator{mappings: mappings, members: members}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Resolve turns a raw x-store-id value and the session user into an authorized
// Scope. Guard clauses run in order and the first failure is terminal:
//
//	empty raw id                       → MISSING_SCOPE_ID (400)
//	unrecognized format                → INVALID_SCOPE_ID_FORMAT (400)
//	no session user                    → UNAUTHENTICATED (401)
//	peer id with no reverse mapping    → NO_PEER_MAPPING (404)
//	no active membership               → NO_STORE_ACCESS (403)
//
// Format checks run before any storage access so malformed input never reaches
// the database, and authentication is checked before the first lookup so
// unauthenticated callers cannot probe which stores or peer links exist.
// Membership is always checked against the store UUID, so authorization has
// one shape regardless of which header format the client used. On success the
// returned error is nil and Scope.StoreID is a canonical UUID.
func (t *Translator) Resolve(ctx context.Context, rawScopeID, userID string) (Scope, error) {
	if rawScopeID == "" {
		return Scope{}, ErrMissingScopeID()
	}

	kind := scopeid.Classify(rawScopeID)
	if kind == scopeid.KindUnknown {
		return Scope{}, ErrInvalidScopeIDFormat()
	}

	if userID == "" {
		return Scope{}, ErrUnauthenticated()
	}

	var scope Scope
	switch kind {
	case scopeid.KindUUID:
		scope.StoreID = rawScopeID
		peerID, err := t.mappings.PeerIDByStoreID(ctx, rawScopeID)
		if err != nil {
			return Scope{}, ErrInternal(err)
		}
		// A store with no peer link is a valid state.
		scope.PeerStoreID = peerID

	case scopeid.KindPeerID:
		storeID, err := t.reverseLookup(ctx, rawScopeID)
		if err != nil {
			return Scope{}, ErrInternal(err)
		}
		if storeID == "" {
			return Scope{}, ErrNoPeerMapping()
		}
		scope.StoreID = storeID
		scope.PeerStoreID = rawScopeID
	}

	active, err := t.members.IsActiveMember(ctx, userID, scope.StoreID)
	if err != nil {
		return Scope{}, ErrInternal(err)
	}
	if !active {
		return Scope{}, ErrNoStoreAccess()
	}

	return scope, nil
}

// reverseLookup resolves a peer store id to a store UUID, consulting the cache
// first when one is configured. Only positive results are cached: "no mapping
// yet" transitions to "mapped" the moment an admin links the store, and a
// stale negative entry would make that link invisible until expiry.
func (t *Translator) reverseLookup(ctx context.Context, peerID string) (string, error) {
	if t.cache != nil {
		if storeID, ok := t.cache.GetStoreID(ctx, peerID); ok {
			return storeID, nil
		}
	}

	storeID, err := t.mappings.StoreIDByPeerID(ctx, peerID)
	if err != nil {
		return "", err
	}

	if storeID != "" && t.cache != nil {
		t.cache.SetStoreID(ctx, peerID, storeID)
	}
	return storeID, nil
}

// LogAttrs returns structured log attributes for a resolved scope.
func (s Scope) LogAttrs() []any {
	attrs := []any{slog.String("store_id", s.StoreID)}
	if s.PeerStoreID != "" {
		attrs = append(attrs, slog.String("peer_store_id", s.PeerStoreID))
	}
	return attrs
}
