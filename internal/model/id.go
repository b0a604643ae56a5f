package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
)

// Namespace tells where the canonical copy of a subscription lives.
type Namespace uint8

const (
	// NamespaceRemote marks a record backed by the cloud store.
	NamespaceRemote Namespace = iota
	// NamespaceLocal marks a record created on-device and never uploaded.
	NamespaceLocal
	// NamespaceDemo marks a seeded demo record; it is on-device only as well.
	NamespaceDemo
)

// Text prefixes of the on-device namespaces. Remote ids carry no prefix.
const (
	localPrefix = "local-"
	demoPrefix  = "demo-"
)

func (n Namespace) String() string {
	switch n {
	case NamespaceLocal:
		return "local"
	case NamespaceDemo:
		return "demo"
	default:
		return "remote"
	}
}

// SubscriptionID is a tagged identifier: the namespace is fixed at construction
// and the text form ("local-<key>", "demo-<key>", "<uuid>") is derived from it.
type SubscriptionID struct {
	ns  Namespace
	key string
}

// NewLocalID returns a fresh identifier for an on-device record.
func NewLocalID() SubscriptionID {
	return SubscriptionID{ns: NamespaceLocal, key: uuid.Must(uuid.NewV4()).String()}
}

// DemoID returns the identifier of a seeded demo record.
func DemoID(key string) SubscriptionID {
	return SubscriptionID{ns: NamespaceDemo, key: key}
}

// RemoteID wraps a server-assigned row id.
func RemoteID(id uuid.UUID) SubscriptionID {
	return SubscriptionID{ns: NamespaceRemote, key: id.String()}
}

// ParseSubscriptionID restores an identifier from its text form.
// Remote ids must be UUIDs, so they can never collide with the on-device prefixes.
func ParseSubscriptionID(s string) (SubscriptionID, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return SubscriptionID{}, errors.New("empty subscription id")
	case strings.HasPrefix(s, localPrefix):
		if len(s) == len(localPrefix) {
			return SubscriptionID{}, fmt.Errorf("bad subscription id %q", s)
		}
		return SubscriptionID{ns: NamespaceLocal, key: s[len(localPrefix):]}, nil
	case strings.HasPrefix(s, demoPrefix):
		if len(s) == len(demoPrefix) {
			return SubscriptionID{}, fmt.Errorf("bad subscription id %q", s)
		}
		return SubscriptionID{ns: NamespaceDemo, key: s[len(demoPrefix):]}, nil
	}
	u, err := uuid.FromString(s)
	if err != nil {
		return SubscriptionID{}, fmt.Errorf("bad subscription id %q: %w", s, err)
	}
	return RemoteID(u), nil
}

// Namespace returns the namespace tag.
func (id SubscriptionID) Namespace() Namespace { return id.ns }

// Key returns the identifier without its namespace prefix.
func (id SubscriptionID) Key() string { return id.key }

// IsZero reports whether the identifier is unset.
func (id SubscriptionID) IsZero() bool { return id.key == "" }

// IsLocal reports whether the record lives only on the device (local or demo).
func (id SubscriptionID) IsLocal() bool {
	return id.ns == NamespaceLocal || id.ns == NamespaceDemo
}

// UUID returns the row id of a remote record.
func (id SubscriptionID) UUID() (uuid.UUID, bool) {
	if id.ns != NamespaceRemote {
		return uuid.Nil, false
	}
	u, err := uuid.FromString(id.key)
	if err != nil {
		return uuid.Nil, false
	}
	return u, true
}

func (id SubscriptionID) String() string {
	switch id.ns {
	case NamespaceLocal:
		return localPrefix + id.key
	case NamespaceDemo:
		return demoPrefix + id.key
	default:
		return id.key
	}
}

// MarshalText implements encoding.TextMarshaler.
func (id SubscriptionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *SubscriptionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSubscriptionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
