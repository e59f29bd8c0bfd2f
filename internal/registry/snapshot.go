package registry

import (
	"github.com/nerrad567/framehub-core/internal/device"
	"github.com/nerrad567/framehub-core/internal/hub"
)

// DefaultHomeName is reported by HomeName when there is no primary home.
const DefaultHomeName = "My Home"

// Snapshot is an immutable view of the mirror, published after every
// mutation. Callers must not modify the slices it holds.
type Snapshot struct {
	Authorization hub.AuthorizationStatus
	Homes         []hub.Home
	PrimaryHome   *hub.Home
	// Accessories and Groups are empty unless Authorization is Authorized.
	Accessories []hub.Accessory
	Groups      []device.Group
	// Version increases by one with every published snapshot.
	Version uint64

	byID map[string]int
}

// Accessory returns a copy of the accessory with the given ID.
func (s *Snapshot) Accessory(id string) (hub.Accessory, bool) {
	i, ok := s.byID[id]
	if !ok {
		return hub.Accessory{}, false
	}
	return s.Accessories[i].Clone(), true
}

// HomeName returns the primary home's name, or DefaultHomeName.
func (s *Snapshot) HomeName() string {
	if s.PrimaryHome == nil || s.PrimaryHome.Name == "" {
		return DefaultHomeName
	}
	return s.PrimaryHome.Name
}

// state is the mutable mirror. Only the Run goroutine touches it.
type state struct {
	status      hub.AuthorizationStatus
	homes       []hub.Home
	primary     *hub.Home
	accessories []hub.Accessory
	version     uint64
}

// snapshot copies s into a fresh Snapshot and derives the groups.
func (s *state) snapshot(classify device.Classifier) *Snapshot {
	snap := &Snapshot{
		Authorization: s.status,
		Homes:         append([]hub.Home{}, s.homes...),
		Accessories:   []hub.Accessory{},
		Groups:        []device.Group{},
		Version:       s.version,
		byID:          map[string]int{},
	}
	if s.primary != nil {
		p := *s.primary
		snap.PrimaryHome = &p
	}
	if s.status != hub.Authorized {
		return snap
	}

	snap.Accessories = make([]hub.Accessory, len(s.accessories))
	for i := range s.accessories {
		snap.Accessories[i] = s.accessories[i].Clone()
		snap.byID[s.accessories[i].ID] = i
	}
	snap.Groups = device.BuildGroups(snap.Accessories, classify)
	return snap
}

func (s *state) primaryID() string {
	if s.primary == nil {
		return ""
	}
	return s.primary.ID
}

func (s *state) findAccessory(id string) int {
	for i := range s.accessories {
		if s.accessories[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *state) upsertAccessory(a hub.Accessory) {
	if i := s.findAccessory(a.ID); i >= 0 {
		s.accessories[i] = a.Clone()
		return
	}
	s.accessories = append(s.accessories, a.Clone())
}

func (s *state) removeAccessory(id string) bool {
	i := s.findAccessory(id)
	if i < 0 {
		return false
	}
	s.accessories = append(s.accessories[:i], s.accessories[i+1:]...)
	return true
}

func (s *state) addHome(h hub.Home) bool {
	for i := range s.homes {
		if s.homes[i].ID == h.ID {
			if s.homes[i] == h {
				return false
			}
			s.homes[i] = h
			return true
		}
	}
	s.homes = append(s.homes, h)
	return true
}

func (s *state) removeHome(id string) bool {
	for i := range s.homes {
		if s.homes[i].ID == id {
			s.homes = append(s.homes[:i], s.homes[i+1:]...)
			return true
		}
	}
	return false
}
