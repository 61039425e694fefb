// Package configmenu is an in-memory configuration menu. The loader
// registers pages and options into it and front ends such as cmd/admin read
// them back and drive the setters.
package configmenu

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"go-expanded-storage/internal/model"
)

var (
	ErrUnknownSource = errors.New("configmenu: unknown source")
	ErrUnknownPage   = errors.New("configmenu: unknown page")
	ErrUnknownOption = errors.New("configmenu: unknown option")
	ErrInvalidValue  = errors.New("configmenu: invalid value")
)

// OptionKind is the value type of an option.
type OptionKind int

const (
	IntOption OptionKind = iota
	BoolOption
)

// Option is one editable value on a page.
type Option struct {
	Name    string
	Tooltip string
	Kind    OptionKind

	getInt  func() int
	setInt  func(int)
	getBool func() bool
	setBool func(bool)
}

// Int returns the current value of an int option.
func (o *Option) Int() int {
	if o.getInt == nil {
		return 0
	}
	return o.getInt()
}

// Bool returns the current value of a bool option.
func (o *Option) Bool() bool {
	if o.getBool == nil {
		return false
	}
	return o.getBool()
}

// Value renders the current value.
func (o *Option) Value() string {
	if o.Kind == BoolOption {
		return strconv.FormatBool(o.Bool())
	}
	return strconv.Itoa(o.Int())
}

func (o *Option) set(raw string) error {
	raw = strings.TrimSpace(raw)
	switch o.Kind {
	case BoolOption:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: %s wants true or false, got %q", ErrInvalidValue, o.Name, raw)
		}
		o.setBool(v)
	default:
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return fmt.Errorf("%w: %s wants a non-negative integer, got %q", ErrInvalidValue, o.Name, raw)
		}
		o.setInt(v)
	}
	return nil
}

// Link points from a source's main page to one of its pages.
type Link struct {
	Page  string
	Label string
}

// Page is a named group of options.
type Page struct {
	Name    string
	Options []*Option
}

// Option finds an option by name.
func (p *Page) Option(name string) (*Option, bool) {
	for _, opt := range p.Options {
		if opt.Name == name {
			return opt, true
		}
	}
	return nil, false
}

// Entry is everything one source registered.
type Entry struct {
	Manifest model.Manifest
	Links    []Link
	Pages    []*Page

	revert  func()
	save    func()
	current *Page
}

// Page finds a page by name.
func (e *Entry) Page(name string) (*Page, bool) {
	for _, p := range e.Pages {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Menu holds the registered sources in registration order.
type Menu struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	entries map[model.SourceID]*Entry
	order   []model.SourceID
}

// New creates an empty menu.
func New(logger *slog.Logger) *Menu {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Menu{logger: logger, entries: make(map[model.SourceID]*Entry)}
}

// Register adds a source, replacing any earlier registration.
func (m *Menu) Register(manifest model.Manifest, revert func(), save func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := manifest.ID()
	if _, ok := m.entries[id]; !ok {
		m.order = append(m.order, id)
	}
	m.entries[id] = &Entry{Manifest: manifest, revert: revert, save: save}
	m.logger.Debug("Registered config menu", "source", string(id))
}

// AddPageLink adds a link to page on the source's main page.
func (m *Menu) AddPageLink(manifest model.Manifest, page, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e := m.entry(manifest); e != nil {
		e.Links = append(e.Links, Link{Page: page, Label: label})
	}
}

// StartPage begins a page; options added afterwards belong to it.
func (m *Menu) StartPage(manifest model.Manifest, page string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry(manifest)
	if e == nil {
		return
	}
	p, ok := e.Page(page)
	if !ok {
		p = &Page{Name: page}
		e.Pages = append(e.Pages, p)
	}
	e.current = p
}

// AddIntOption adds an int option to the current page.
func (m *Menu) AddIntOption(manifest model.Manifest, name, tooltip string, get func() int, set func(int)) {
	m.addOption(manifest, &Option{Name: name, Tooltip: tooltip, Kind: IntOption, getInt: get, setInt: set})
}

// AddBoolOption adds a bool option to the current page.
func (m *Menu) AddBoolOption(manifest model.Manifest, name, tooltip string, get func() bool, set func(bool)) {
	m.addOption(manifest, &Option{Name: name, Tooltip: tooltip, Kind: BoolOption, getBool: get, setBool: set})
}

func (m *Menu) addOption(manifest model.Manifest, opt *Option) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry(manifest)
	if e == nil {
		return
	}
	if e.current == nil {
		e.current = &Page{}
		e.Pages = append(e.Pages, e.current)
	}
	e.current.Options = append(e.current.Options, opt)
}

// entry returns the registration for manifest. Calls for sources that never
// registered are dropped.
func (m *Menu) entry(manifest model.Manifest) *Entry {
	e, ok := m.entries[manifest.ID()]
	if !ok {
		m.logger.Warn("Menu call for unregistered source", "source", manifest.UniqueID)
		return nil
	}
	return e
}

// Entries returns the registered sources in registration order.
func (m *Menu) Entries() []*Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]*Entry, 0, len(m.order))
	for _, id := range m.order {
		entries = append(entries, m.entries[id])
	}
	return entries
}

// Entry returns one source's registration.
func (m *Menu) Entry(id model.SourceID) (*Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	return e, ok
}

// Set parses raw and passes it to the option's setter.
func (m *Menu) Set(id model.SourceID, page, option, raw string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	p, ok := e.Page(page)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPage, page)
	}
	opt, ok := p.Option(option)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOption, option)
	}
	return opt.set(raw)
}

// Revert runs the source's revert-to-default callback.
func (m *Menu) Revert(id model.SourceID) error {
	return m.call(id, func(e *Entry) func() { return e.revert })
}

// Save runs the source's save callback.
func (m *Menu) Save(id model.SourceID) error {
	return m.call(id, func(e *Entry) func() { return e.save })
}

func (m *Menu) call(id model.SourceID, pick func(*Entry) func()) error {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	if fn := pick(e); fn != nil {
		fn()
	}
	return nil
}

// Reset drops every registration.
func (m *Menu) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
	m.order = nil
}
