package core

import (
	"fmt"
	"sync"

	"threadlab/pkg/domain"
)

// Comparator shows a before/after narrative per synchronization technique.
// It has no timers.
type Comparator struct {
	cfg        widgetConfig
	techniques []domain.Technique

	mu     sync.Mutex
	active domain.TechniqueID
	after  map[domain.TechniqueID]bool
}

// NewComparator selects the first technique with every view on "before".
func NewComparator(c domain.Catalog, opts ...WidgetOption) *Comparator {
	cmp := &Comparator{
		cfg:        newWidgetConfig(opts),
		techniques: c.Clone().Techniques,
		after:      make(map[domain.TechniqueID]bool, len(c.Techniques)),
	}
	for _, t := range cmp.techniques {
		cmp.after[t.ID] = false
	}
	if len(cmp.techniques) > 0 {
		cmp.active = cmp.techniques[0].ID
	}
	return cmp
}

// SelectTechnique switches the displayed technique.
func (c *Comparator) SelectTechnique(id domain.TechniqueID) error {
	if _, ok := c.lookup(id); !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownTechnique, id)
	}
	c.mu.Lock()
	c.active = id
	c.mu.Unlock()
	c.cfg.changed()
	return nil
}

// ToggleView flips the before/after flag of id only.
func (c *Comparator) ToggleView(id domain.TechniqueID) error {
	if _, ok := c.lookup(id); !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownTechnique, id)
	}
	c.mu.Lock()
	c.after[id] = !c.after[id]
	c.mu.Unlock()
	c.cfg.changed()
	return nil
}

// ShowingAfter reports whether id currently shows its "after" sequence.
func (c *Comparator) ShowingAfter(id domain.TechniqueID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.after[id]
}

// Snapshot returns the rendered state.
func (c *Comparator) Snapshot() domain.ComparatorSnapshot {
	c.mu.Lock()
	active := c.active
	views := make(map[domain.TechniqueID]bool, len(c.after))
	for id, v := range c.after {
		views[id] = v
	}
	c.mu.Unlock()

	t, _ := c.lookup(active)
	steps := t.Before
	if views[active] {
		steps = t.After
	}
	return domain.ComparatorSnapshot{
		Active:       active,
		Technique:    t,
		ShowingAfter: views[active],
		Steps:        append([]string(nil), steps...),
		Views:        views,
	}
}

func (c *Comparator) lookup(id domain.TechniqueID) (domain.Technique, bool) {
	for _, t := range c.techniques {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Technique{}, false
}
