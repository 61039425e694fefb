// Package chestinfo builds the info panel shown next to an open storage.
// State is kept per player so split-screen players never see each other's
// panel.
package chestinfo

import (
	"strconv"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"go-expanded-storage/internal/model"
)

// Entry labels, in display order.
const (
	LabelName        = "Name"
	LabelType        = "Type"
	LabelLocation    = "Location"
	LabelPosition    = "Position"
	LabelInventory   = "Inventory"
	LabelTotalItems  = "Total Items"
	LabelUniqueItems = "Unique Items"
	LabelTotalValue  = "Total Value"
)

// PlayerID identifies a local player.
type PlayerID int

// Item is one stack held by a storage.
type Item struct {
	// ID identifies the item type. Stacks with the same ID count once
	// towards Unique Items.
	ID    string `json:"id"`
	Stack int64  `json:"stack"`
	// Price is the sell price of the whole stack.
	Price int64 `json:"price"`
}

// Storage is a snapshot of an open storage.
type Storage struct {
	Kind     model.Kind
	Label    string
	Location string
	X, Y     float64
	// Carrier is the name of the player carrying the storage, if any.
	Carrier string
	Items   []Item
}

// Entry is one label/value pair of the panel.
type Entry struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

var printer = message.NewPrinter(language.English)

// Info returns the panel entries for s.
func Info(s Storage) []Entry {
	info := make([]Entry, 0, 8)
	if s.Label != "" {
		info = append(info, Entry{LabelName, s.Label})
	}
	info = append(info, Entry{LabelType, s.Kind.TypeName()})
	info = append(info, Entry{LabelLocation, s.Location})
	if s.X != 0 || s.Y != 0 {
		info = append(info, Entry{LabelPosition, "(" + formatCoord(s.X) + ", " + formatCoord(s.Y) + ")"})
	}
	if s.Carrier != "" {
		info = append(info, Entry{LabelInventory, s.Carrier})
	}
	if len(s.Items) == 0 {
		return info
	}

	var total, value int64
	unique := make(map[string]struct{}, len(s.Items))
	for _, item := range s.Items {
		total += item.Stack
		value += item.Price
		unique[item.ID] = struct{}{}
	}
	return append(info,
		Entry{LabelTotalItems, printer.Sprintf("%d", total)},
		Entry{LabelUniqueItems, printer.Sprintf("%d", len(unique))},
		Entry{LabelTotalValue, printer.Sprintf("%d", value)},
	)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type playerState struct {
	shown bool
	info  []Entry
}

// Tracker holds the panel state of every local player.
type Tracker struct {
	mu      sync.Mutex
	enabled bool
	players map[PlayerID]*playerState
}

// NewTracker creates a tracker. When enabled is false players cannot turn
// the panel on.
func NewTracker(enabled bool) *Tracker {
	return &Tracker{enabled: enabled, players: make(map[PlayerID]*playerState)}
}

func (t *Tracker) state(player PlayerID) *playerState {
	st, ok := t.players[player]
	if !ok {
		st = &playerState{shown: t.enabled}
		t.players[player] = st
	}
	return st
}

// Toggle flips whether player sees the panel and returns the new value.
func (t *Tracker) Toggle(player PlayerID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return false
	}
	st := t.state(player)
	st.shown = !st.shown
	if !st.shown {
		st.info = nil
	}
	return st.shown
}

// Shown reports whether player has the panel turned on.
func (t *Tracker) Shown(player PlayerID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && t.state(player).shown
}

// Refresh rebuilds player's panel for the storage they have open. A nil
// storage, or a hidden panel, clears it.
func (t *Tracker) Refresh(player PlayerID, s *Storage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state(player)
	if s == nil || !t.enabled || !st.shown {
		st.info = nil
		return
	}
	st.info = Info(*s)
}

// Clear empties player's panel.
func (t *Tracker) Clear(player PlayerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.players[player]; ok {
		st.info = nil
	}
}

// Entries returns a copy of player's current panel.
func (t *Tracker) Entries(player PlayerID) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.players[player]
	if !ok || len(st.info) == 0 {
		return nil
	}
	return append([]Entry(nil), st.info...)
}

// Reset forgets every player.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.players)
}
