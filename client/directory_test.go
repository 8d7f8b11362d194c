package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/way365/realm-exchange/protocol"
)

func TestDirectory(t *testing.T) {
	self := protocol.User{ID: "alice-id", Name: "Alice", Preferences: protocol.DefaultPreferences()}
	directory := NewDirectory(self)

	stale := self
	stale.Preferences = protocol.Preferences{}
	directory.Update([]protocol.User{
		stale,
		{ID: "carol-id", Name: "Carol"},
		{ID: "bob-id", Name: "Bob", Preferences: protocol.Preferences{ReceiveItems: true}},
	})

	//The relay's copy of ourselves never overrides local preferences.
	user, ok := directory.User(self.ID)
	require.True(t, ok)
	assert.True(t, user.Preferences.ReceiveColonists)

	others := directory.Others()
	require.Len(t, others, 2)
	assert.Equal(t, "Bob", others[0].Name)
	assert.Equal(t, "Carol", others[1].Name)

	bob, ok := directory.Find("Bob")
	require.True(t, ok)
	assert.Equal(t, protocol.UserID("bob-id"), bob.ID)
	assert.False(t, bob.Preferences.ReceiveColonists)

	_, ok = directory.Find("carol-id")
	assert.True(t, ok)

	directory.Update([]protocol.User{{ID: "bob-id", Name: "Bob"}})
	_, ok = directory.User("carol-id")
	assert.False(t, ok)

	directory.SetPreferences(protocol.Preferences{ReceiveItems: true})
	assert.False(t, directory.Self().Preferences.ReceiveColonists)
}
