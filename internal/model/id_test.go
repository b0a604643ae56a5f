package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionID_Namespaces(t *testing.T) {
	t.Parallel()

	l := NewLocalID()
	require.True(t, l.IsLocal())
	require.Equal(t, NamespaceLocal, l.Namespace())
	require.True(t, strings.HasPrefix(l.String(), "local-"))
	_, ok := l.UUID()
	require.False(t, ok)

	d := DemoID("netflix")
	require.True(t, d.IsLocal())
	require.Equal(t, "demo-netflix", d.String())

	u := uuid.Must(uuid.NewV4())
	r := RemoteID(u)
	require.False(t, r.IsLocal())
	require.Equal(t, u.String(), r.String())
	got, ok := r.UUID()
	require.True(t, ok)
	require.Equal(t, u, got)
}

func TestParseSubscriptionID(t *testing.T) {
	t.Parallel()

	u := uuid.Must(uuid.NewV4())
	cases := []struct {
		in     string
		ns     Namespace
		wantOK bool
	}{
		{"local-abc", NamespaceLocal, true},
		{"demo-1", NamespaceDemo, true},
		{u.String(), NamespaceRemote, true},
		{"", 0, false},
		{"local-", 0, false},
		{"demo-", 0, false},
		{"not-a-uuid", 0, false},
	}
	for _, c := range cases {
		id, err := ParseSubscriptionID(c.in)
		if !c.wantOK {
			if err == nil {
				t.Fatalf("%q: want error", c.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", c.in, err)
		}
		if id.Namespace() != c.ns || id.String() != c.in {
			t.Fatalf("%q: got ns=%v s=%q", c.in, id.Namespace(), id.String())
		}
	}
}

func TestSubscriptionID_JSON(t *testing.T) {
	t.Parallel()

	in := struct {
		ID SubscriptionID `json:"id"`
	}{ID: DemoID("spotify")}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"demo-spotify"}`, string(b))

	var out struct {
		ID SubscriptionID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	require.Equal(t, in.ID, out.ID)
}
