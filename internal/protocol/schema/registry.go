package schema

import (
	"fmt"
	"sort"
)

// Registry indexes message tables by id and name.
type Registry struct {
	byID   map[uint32]Message
	byName map[string]uint32
	crc    map[uint32]byte
	layout map[uint32]Layout
	ids    []uint32
}

// NewRegistry checks every table and rejects duplicate ids or names.
func NewRegistry(msgs ...Message) (*Registry, error) {
	r := &Registry{
		byID:   make(map[uint32]Message, len(msgs)),
		byName: make(map[string]uint32, len(msgs)),
		crc:    make(map[uint32]byte, len(msgs)),
		layout: make(map[uint32]Layout, len(msgs)),
	}
	for _, m := range msgs {
		if err := m.Check(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[m.ID]; dup {
			return nil, ValidationError{Message: m.Name, Reason: fmt.Sprintf("duplicate id %d", m.ID)}
		}
		if _, dup := r.byName[m.Name]; dup {
			return nil, ValidationError{Message: m.Name, Reason: "duplicate name"}
		}
		r.byID[m.ID] = m
		r.byName[m.Name] = m.ID
		r.crc[m.ID] = m.CRCExtra()
		r.layout[m.ID] = m.Layout()
		r.ids = append(r.ids, m.ID)
	}
	sort.Slice(r.ids, func(i, j int) bool { return r.ids[i] < r.ids[j] })
	return r, nil
}

func (r *Registry) ByID(id uint32) (Message, bool) {
	m, ok := r.byID[id]
	return m, ok
}

func (r *Registry) ByName(name string) (Message, bool) {
	id, ok := r.byName[name]
	if !ok {
		return Message{}, false
	}
	return r.byID[id], true
}

// CRCExtra returns the fingerprint for a registered id.
func (r *Registry) CRCExtra(id uint32) (byte, bool) {
	c, ok := r.crc[id]
	return c, ok
}

// Layout returns the cached layout for a registered id.
func (r *Registry) Layout(id uint32) (Layout, bool) {
	l, ok := r.layout[id]
	return l, ok
}

// Messages returns every table ordered by id.
func (r *Registry) Messages() []Message {
	out := make([]Message, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.byID[id])
	}
	return out
}
