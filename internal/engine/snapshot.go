package engine

import (
	"fmt"

	"github.com/lemonad/outbreak-simulation/internal/epidemic"
)

// IndividualView is the read-only rendering data for one individual.
type IndividualView struct {
	ID     epidemic.ID `json:"id"`
	X      int         `json:"x"`
	Y      int         `json:"y"`
	State  string      `json:"state"`
	Region int         `json:"region"`
	Color  string      `json:"color"` // Region tint, #rrggbb
}

// Snapshot is a copy of the population state for visualization collaborators.
type Snapshot struct {
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	Tick        uint64           `json:"tick"`
	Policy      string           `json:"policy"`
	Regions     int              `json:"regions"`
	Individuals []IndividualView `json:"individuals"`
}

// Snapshot copies positions, states and region colours.
func (s *Simulation) Snapshot() (Snapshot, error) {
	if err := s.ready(); err != nil {
		return Snapshot{}, err
	}

	views := make([]IndividualView, len(s.Graph.Individuals))
	for i, ind := range s.Graph.Individuals {
		c := ind.Region.Color
		views[i] = IndividualView{
			ID:     ind.ID,
			X:      ind.Point.X,
			Y:      ind.Point.Y,
			State:  ind.State.String(),
			Region: ind.RegionIndex,
			Color:  fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B),
		}
	}

	root := s.Tree.Root.Rect
	return Snapshot{
		Width:       root.Width(),
		Height:      root.Height(),
		Tick:        s.Tick,
		Policy:      s.State.String(),
		Regions:     len(s.Graph.Regions),
		Individuals: views,
	}, nil
}

// ContactView lists one individual's outgoing and incoming contacts.
type ContactView struct {
	ID       epidemic.ID   `json:"id"`
	State    string        `json:"state"`
	Region   int           `json:"region"`
	Forward  []epidemic.ID `json:"forward"`
	Incoming []epidemic.ID `json:"incoming"`
}

// Contacts returns a copy of the adjacency around id.
func (s *Simulation) Contacts(id epidemic.ID) (ContactView, error) {
	if err := s.ready(); err != nil {
		return ContactView{}, err
	}
	ind, err := s.Graph.Individual(id)
	if err != nil {
		return ContactView{}, err
	}
	forward, err := s.Graph.Contacts(id)
	if err != nil {
		return ContactView{}, err
	}
	incoming, err := s.Graph.Incoming(id)
	if err != nil {
		return ContactView{}, err
	}

	return ContactView{
		ID:       id,
		State:    ind.State.String(),
		Region:   ind.RegionIndex,
		Forward:  append([]epidemic.ID{}, forward...),
		Incoming: append([]epidemic.ID{}, incoming...),
	}, nil
}
