package client

import (
	"sort"
	"sync"

	"github.com/way365/realm-exchange/protocol"
)

// Directory is the peer's view of the realm, refreshed by every user
// broadcast. The local user always reflects the local preferences.
type Directory struct {
	mutex sync.RWMutex
	self  protocol.User
	users map[protocol.UserID]protocol.User
}

func NewDirectory(self protocol.User) *Directory {
	return &Directory{
		self:  self,
		users: make(map[protocol.UserID]protocol.User),
	}
}

func (d *Directory) User(id protocol.UserID) (protocol.User, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	if id == d.self.ID {
		return d.self, true
	}
	user, ok := d.users[id]
	return user, ok
}

func (d *Directory) Self() protocol.User {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.self
}

// Update replaces the known users with the relay's list.
func (d *Directory) Update(users []protocol.User) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.users = make(map[protocol.UserID]protocol.User, len(users))
	for _, user := range users {
		if user.ID == d.self.ID {
			continue
		}
		d.users[user.ID] = user
	}
}

func (d *Directory) SetPreferences(preferences protocol.Preferences) {
	d.mutex.Lock()
	d.self.Preferences = preferences
	d.mutex.Unlock()
}

// Others lists every known user except the local one, by name.
func (d *Directory) Others() []protocol.User {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	users := make([]protocol.User, 0, len(d.users))
	for _, user := range d.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name == users[j].Name {
			return users[i].ID < users[j].ID
		}
		return users[i].Name < users[j].Name
	})
	return users
}

// Find resolves a user by id or by case sensitive display name.
func (d *Directory) Find(key string) (protocol.User, bool) {
	if user, ok := d.User(protocol.UserID(key)); ok {
		return user, true
	}
	for _, user := range d.Others() {
		if user.Name == key {
			return user, true
		}
	}
	return protocol.User{}, false
}
