package annotation

import (
	"github.com/ELITR/alignmeet/internal/model"
)

// linkState is the annotation an act carries towards the minutes.
type linkState struct {
	minute *model.Minute
	final  bool
}

// linkCmd sets per-act link states. Align, Finalize and automatic alignment
// are all expressed through it.
type linkCmd struct {
	d     *Document
	label string
	acts  []*model.DialogAct
	next  []linkState
	prior []linkState
}

func newLinkCmd(d *Document, label string, acts []*model.DialogAct, next []linkState) *linkCmd {
	prior := make([]linkState, len(acts))
	for i, da := range acts {
		prior[i] = linkState{da.Minute, da.Final}
	}
	return &linkCmd{d: d, label: label, acts: acts, next: next, prior: prior}
}

func (c *linkCmd) Apply()        { c.set(c.next) }
func (c *linkCmd) Invert()       { c.set(c.prior) }
func (c *linkCmd) Label() string { return c.label }

func (c *linkCmd) set(states []linkState) {
	for i, da := range c.acts {
		da.Minute, da.Final = states[i].minute, states[i].final
	}
	c.d.touch(EventTranscript)
}

type problemCmd struct {
	d     *Document
	acts  []*model.DialogAct
	value model.Problem
	prior []model.Problem
}

func newProblemCmd(d *Document, acts []*model.DialogAct, value model.Problem) *problemCmd {
	prior := make([]model.Problem, len(acts))
	for i, da := range acts {
		prior[i] = da.Problem
	}
	return &problemCmd{d: d, acts: acts, value: value, prior: prior}
}

func (c *problemCmd) Apply() {
	for _, da := range c.acts {
		da.Problem = c.value
	}
	c.d.touch(EventTranscript)
}

func (c *problemCmd) Invert() {
	for i, da := range c.acts {
		da.Problem = c.prior[i]
	}
	c.d.touch(EventTranscript)
}

func (c *problemCmd) Label() string { return "set problem" }

type speakerCmd struct {
	d     *Document
	label string
	acts  []*model.DialogAct
	next  []string
	prior []string
}

func (c *speakerCmd) Apply()        { c.set(c.next) }
func (c *speakerCmd) Invert()       { c.set(c.prior) }
func (c *speakerCmd) Label() string { return c.label }

func (c *speakerCmd) set(speakers []string) {
	for i, da := range c.acts {
		da.Speaker = speakers[i]
		c.d.reg.AddSpeaker(da.Speaker)
	}
	c.d.touch(EventTranscript)
}

// itemState is the part of a row an edit can change.
type itemState struct {
	text      string
	embedding model.Vector
}

// rows adapts the transcript or the minutes to the structural commands.
type rows[T comparable] struct {
	kind      model.Kind
	sep       string
	at        func(i int) T
	insert    func(i int, v T)
	remove    func(i int) (restore func())
	state     func(v T) itemState
	setState  func(v T, s itemState)
	successor func(v T, text string) T
}

func (d *Document) actRows() rows[*model.DialogAct] {
	return rows[*model.DialogAct]{
		kind:   model.KindTranscript,
		at:     func(i int) *model.DialogAct { return d.acts[i] },
		insert: d.InsertDialogAct,
		remove: func(i int) func() {
			d.RemoveDialogActs(i, 1)
			return func() {}
		},
		state: func(da *model.DialogAct) itemState { return itemState{da.Text, da.Embedding} },
		setState: func(da *model.DialogAct, s itemState) {
			da.Text, da.Embedding = s.text, s.embedding
			d.touch(EventTranscript)
		},
		successor: func(da *model.DialogAct, text string) *model.DialogAct {
			c := da.Clone()
			c.Text = text
			return c
		},
	}
}

func (d *Document) minuteRows() rows[*model.Minute] {
	return rows[*model.Minute]{
		kind:   model.KindMinutes,
		sep:    " ",
		at:     func(i int) *model.Minute { return d.minutes[i] },
		insert: d.InsertMinute,
		remove: func(i int) func() {
			removed, detached := d.RemoveMinutes(i, 1)
			return func() {
				for _, da := range detached {
					da.Minute = removed[0]
				}
				if len(detached) > 0 {
					d.notify(EventTranscript)
				}
			}
		},
		state: func(m *model.Minute) itemState { return itemState{m.Text, m.Embedding} },
		setState: func(m *model.Minute, s itemState) {
			m.Text, m.Embedding = s.text, s.embedding
			d.touch(EventMinutes)
		},
		successor: func(_ *model.Minute, text string) *model.Minute {
			return model.NewMinute(d.reg, text)
		},
	}
}

type insertCmd[T comparable] struct {
	rows  rows[T]
	index int
	item  T
}

func (c *insertCmd[T]) Apply()        { c.rows.insert(c.index, c.item) }
func (c *insertCmd[T]) Invert()       { c.rows.remove(c.index) }
func (c *insertCmd[T]) Label() string { return "insert " + c.rows.kind.String() }

// deleteCmd removes a contiguous run of rows. Inverting puts back the very
// same items and, for minutes, relinks the acts the removal detached.
type deleteCmd[T comparable] struct {
	rows     rows[T]
	index    int
	count    int
	items    []T
	restores []func()
}

func (c *deleteCmd[T]) Apply() {
	c.items = c.items[:0]
	c.restores = c.restores[:0]
	for range c.count {
		c.items = append(c.items, c.rows.at(c.index))
		c.restores = append(c.restores, c.rows.remove(c.index))
	}
}

func (c *deleteCmd[T]) Invert() {
	for i := len(c.items) - 1; i >= 0; i-- {
		c.rows.insert(c.index, c.items[i])
		c.restores[i]()
	}
}

func (c *deleteCmd[T]) Label() string { return "delete " + c.rows.kind.String() }

// joinCmd merges row what into its neighbour to. The survivor is to; its text
// becomes the two texts in row order.
type joinCmd[T comparable] struct {
	rows      rows[T]
	label     string
	what, to  int
	survivor  T
	removed   T
	prior     itemState
	restore   func()
}

func (c *joinCmd[T]) Apply() {
	c.survivor, c.removed = c.rows.at(c.to), c.rows.at(c.what)
	c.prior = c.rows.state(c.survivor)
	first, second := c.rows.state(c.removed).text, c.prior.text
	if c.what > c.to {
		first, second = second, first
	}
	c.rows.setState(c.survivor, itemState{text: first + c.rows.sep + second})
	c.restore = c.rows.remove(c.what)
}

func (c *joinCmd[T]) Invert() {
	c.rows.setState(c.survivor, c.prior)
	c.rows.insert(c.what, c.removed)
	c.restore()
}

func (c *joinCmd[T]) Label() string { return c.label }

// editCmd replaces a row's text, optionally splitting it at offset into the
// row and a new successor row.
type editCmd[T comparable] struct {
	rows      rows[T]
	index     int
	value     string
	offset    int
	item      T
	prior     itemState
	successor T
	created   bool
}

func (c *editCmd[T]) split() bool { return c.offset >= 0 }

func (c *editCmd[T]) Apply() {
	c.item = c.rows.at(c.index)
	c.prior = c.rows.state(c.item)
	head := c.value
	if c.split() {
		head = c.value[:c.offset]
	}
	c.rows.setState(c.item, itemState{text: head})
	if !c.split() {
		return
	}
	if !c.created {
		c.successor = c.rows.successor(c.item, c.value[c.offset:])
		c.created = true
	}
	c.rows.insert(c.index+1, c.successor)
}

func (c *editCmd[T]) Invert() {
	if c.split() {
		c.rows.remove(c.index + 1)
	}
	c.rows.setState(c.item, c.prior)
}

func (c *editCmd[T]) Label() string { return "edit " + c.rows.kind.String() }

// textsCmd rewrites the text of several minutes at once.
type textsCmd struct {
	d     *Document
	label string
	items []*model.Minute
	next  []string
	prior []itemState
}

func (c *textsCmd) Apply() {
	for i, m := range c.items {
		c.prior[i] = itemState{m.Text, m.Embedding}
		m.Text, m.Embedding = c.next[i], nil
	}
	c.d.touch(EventMinutes)
}

func (c *textsCmd) Invert() {
	for i, m := range c.items {
		m.Text, m.Embedding = c.prior[i].text, c.prior[i].embedding
	}
	c.d.touch(EventMinutes)
}

func (c *textsCmd) Label() string { return c.label }
