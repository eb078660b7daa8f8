package annotation

import (
	"fmt"
	"strings"

	"github.com/ELITR/alignmeet/internal/align"
	"github.com/ELITR/alignmeet/internal/codec"
	"github.com/ELITR/alignmeet/internal/model"
)

// SetMinute links every selected act to m (nil unlinks) and confirms it. It
// reports false without touching history when there is nothing to change.
func (d *Document) SetMinute(m *model.Minute) bool {
	acts := d.actsAt(d.selectedActs)
	if len(acts) == 0 {
		return false
	}
	changed := false
	for _, da := range acts {
		if da.Minute != m || !da.Final {
			changed = true
			break
		}
	}
	if !changed {
		return false
	}
	next := make([]linkState, len(acts))
	for i := range next {
		next[i] = linkState{minute: m, final: true}
	}
	d.Execute(newLinkCmd(d, "align", acts, next))
	return true
}

// SetProblem sets the problem of every selected act.
func (d *Document) SetProblem(p model.Problem) bool {
	acts := d.actsAt(d.selectedActs)
	if len(acts) == 0 {
		return false
	}
	changed := false
	for _, da := range acts {
		if da.Problem != p {
			changed = true
			break
		}
	}
	if !changed {
		return false
	}
	d.Execute(newProblemCmd(d, acts, p))
	return true
}

// Finalize confirms the tentative links of the given rows.
func (d *Document) Finalize(rows []int) bool {
	return d.finalize(d.actsAt(normalizeRows(rows, len(d.acts))))
}

// FinalizeSelection confirms the tentative links of the selected acts.
func (d *Document) FinalizeSelection() bool {
	return d.finalize(d.actsAt(d.selectedActs))
}

// FinalizeAll confirms every tentative link.
func (d *Document) FinalizeAll() bool {
	return d.finalize(d.acts)
}

func (d *Document) finalize(candidates []*model.DialogAct) bool {
	var acts []*model.DialogAct
	var next []linkState
	for _, da := range candidates {
		if da.Minute != nil && !da.Final {
			acts = append(acts, da)
			next = append(next, linkState{minute: da.Minute, final: true})
		}
	}
	if len(acts) == 0 {
		return false
	}
	d.Execute(newLinkCmd(d, "finalize", acts, next))
	return true
}

// Tentative counts acts whose link still awaits confirmation.
func (d *Document) Tentative() int {
	n := 0
	for _, da := range d.acts {
		if da.Minute != nil && !da.Final {
			n++
		}
	}
	return n
}

// AddDialogAct inserts da before row i as an undoable edit. Separators in
// its fields become spaces; an act without any letter is rejected.
func (d *Document) AddDialogAct(i int, da *model.DialogAct) error {
	da.Text, da.Speaker = model.CleanText(da.Text), model.CleanSpeaker(da.Speaker)
	if da.Blank() {
		return ErrNoLetters
	}
	d.reg.AddSpeaker(da.Speaker)
	d.Execute(&insertCmd[*model.DialogAct]{rows: d.actRows(), index: i, item: da})
	return nil
}

// DeleteDialogActs removes count acts starting at row i as an undoable edit.
func (d *Document) DeleteDialogActs(i, count int) {
	if count <= 0 {
		return
	}
	d.Execute(&deleteCmd[*model.DialogAct]{rows: d.actRows(), index: i, count: count})
}

// AddMinute inserts a new minute with text before position i and returns it.
func (d *Document) AddMinute(i int, text string) *model.Minute {
	m := model.NewMinute(d.reg, model.CleanLine(text))
	d.Execute(&insertCmd[*model.Minute]{rows: d.minuteRows(), index: i, item: m})
	return m
}

// DeleteMinutes removes count minutes starting at position i. Acts linked to
// them are unlinked; undo relinks them.
func (d *Document) DeleteMinutes(i, count int) {
	if count <= 0 {
		return
	}
	d.Execute(&deleteCmd[*model.Minute]{rows: d.minuteRows(), index: i, count: count})
}

// JoinUp merges row r into row r-1 of the given kind.
func (d *Document) JoinUp(kind model.Kind, r int) bool {
	if r <= 0 || r >= d.count(kind) {
		return false
	}
	d.join(kind, r, r-1, "join up")
	return true
}

// JoinDown merges row r into row r+1 of the given kind.
func (d *Document) JoinDown(kind model.Kind, r int) bool {
	if r < 0 || r+1 >= d.count(kind) {
		return false
	}
	d.join(kind, r, r+1, "join down")
	return true
}

func (d *Document) join(kind model.Kind, what, to int, label string) {
	if kind == model.KindMinutes {
		d.Execute(&joinCmd[*model.Minute]{rows: d.minuteRows(), label: label, what: what, to: to})
		return
	}
	d.Execute(&joinCmd[*model.DialogAct]{rows: d.actRows(), label: label, what: what, to: to})
}

// EditText sets the text of row r. With split >= 0 the row keeps
// value[:split] and a new row carrying value[split:] is inserted after it.
// split is a byte offset and is clamped to the value. A dialog act edit is
// rejected with ErrNoLetters when either resulting act would have no letter.
func (d *Document) EditText(kind model.Kind, r int, value string, split int) error {
	if split > len(value) {
		split = len(value)
	}
	if kind == model.KindMinutes {
		value = model.CleanLine(value)
		d.Execute(&editCmd[*model.Minute]{rows: d.minuteRows(), index: r, value: value, offset: split})
		return nil
	}
	value = model.CleanText(value)
	speaker := d.acts[r].Speaker
	parts := []string{value}
	if split >= 0 {
		parts = []string{value[:split], value[split:]}
	}
	for _, p := range parts {
		if !model.HasLetter(speaker) && !model.HasLetter(p) {
			return ErrNoLetters
		}
	}
	d.Execute(&editCmd[*model.DialogAct]{rows: d.actRows(), index: r, value: value, offset: split})
	return nil
}

func (d *Document) count(kind model.Kind) int {
	if kind == model.KindMinutes {
		return len(d.minutes)
	}
	return len(d.acts)
}

// SetSpeaker renames the speaker of the selected acts. Parentheses and
// separators are dropped from the name; acts that would be left without any
// letter keep their speaker.
func (d *Document) SetSpeaker(speaker string) bool {
	speaker = model.CleanSpeaker(speaker)
	var acts []*model.DialogAct
	var prior, next []string
	for _, da := range d.actsAt(d.selectedActs) {
		if da.Speaker == speaker || (!model.HasLetter(speaker) && !model.HasLetter(da.Text)) {
			continue
		}
		acts = append(acts, da)
		prior = append(prior, da.Speaker)
		next = append(next, speaker)
	}
	if len(acts) == 0 {
		return false
	}
	d.Execute(&speakerCmd{d: d, label: "set speaker", acts: acts, next: next, prior: prior})
	return true
}

// ExpandSpeakers gives every act without a speaker the speaker of the closest
// preceding act that has one.
func (d *Document) ExpandSpeakers() bool {
	var acts []*model.DialogAct
	var next []string
	last := ""
	for _, da := range d.acts {
		if da.Speaker != "" {
			last = da.Speaker
			continue
		}
		if last != "" {
			acts = append(acts, da)
			next = append(next, last)
		}
	}
	if len(acts) == 0 {
		return false
	}
	prior := make([]string, len(acts))
	d.Execute(&speakerCmd{d: d, label: "expand speakers", acts: acts, next: next, prior: prior})
	return true
}

// Indent adds the indent marker to the selected minutes, or with left set
// strips one leading marker.
func (d *Document) Indent(left bool) bool {
	var items []*model.Minute
	var next []string
	for _, r := range d.selectedMinutes {
		m := d.minutes[r]
		text := d.indent + m.Text
		if left {
			if !strings.HasPrefix(m.Text, d.indent) {
				continue
			}
			text = strings.TrimPrefix(m.Text, d.indent)
		}
		items = append(items, m)
		next = append(next, text)
	}
	if len(items) == 0 {
		return false
	}
	label := "indent right"
	if left {
		label = "indent left"
	}
	d.Execute(&textsCmd{d: d, label: label, items: items, next: next, prior: make([]itemState, len(items))})
	return true
}

// AutoAlign proposes links from the embeddings attached to the document and
// merges them as a single undoable edit. It returns the number of acts
// changed.
func (d *Document) AutoAlign(threshold float64, opts align.Options) int {
	proposals := align.Propose(align.Vectors(d.acts), align.MinuteVectors(d.minutes), threshold)
	return d.merge(proposals, opts, "auto align")
}

// ApplyProposals merges externally computed proposals (1-based minute refs).
func (d *Document) ApplyProposals(proposals []int, opts align.Options) int {
	return d.merge(proposals, opts, "apply alignment")
}

func (d *Document) merge(proposals []int, opts align.Options, label string) int {
	changes := align.Merge(d.acts, d.minutes, proposals, opts)
	if len(changes) == 0 {
		return 0
	}
	acts := make([]*model.DialogAct, len(changes))
	next := make([]linkState, len(changes))
	for i, c := range changes {
		acts[i] = d.acts[c.Index]
		next[i] = linkState{minute: c.Minute, final: c.Final}
	}
	d.Execute(newLinkCmd(d, label, acts, next))
	d.log.Info().Int("changed", len(changes)).Str("op", label).Msg("alignment merged")
	return len(changes)
}

// HasEmbeddings reports whether every row of kind carries an embedding.
func (d *Document) HasEmbeddings(kind model.Kind) bool {
	n := d.count(kind)
	if n == 0 {
		return false
	}
	for i := range n {
		if kind == model.KindMinutes && d.minutes[i].Embedding == nil {
			return false
		}
		if kind == model.KindTranscript && d.acts[i].Embedding == nil {
			return false
		}
	}
	return true
}

// ApplyEmbeddings attaches vectors to the rows of kind. It refuses vectors
// computed for a file other than the one currently open, or for a different
// number of rows.
func (d *Document) ApplyEmbeddings(kind model.Kind, path string, vectors []model.Vector) error {
	if current := d.SourcePath(kind); current == "" || current != path {
		return fmt.Errorf("apply %s embeddings: %s is no longer open", kind, path)
	}
	if n := d.count(kind); n != len(vectors) {
		return fmt.Errorf("apply %s embeddings: %d vectors for %d rows", kind, len(vectors), n)
	}
	for i, v := range vectors {
		if kind == model.KindMinutes {
			d.minutes[i].Embedding = v
		} else {
			d.acts[i].Embedding = v
		}
	}
	d.notify(EventEmbeddings)
	return nil
}

// Links renders the current alignment as link file lines.
func (d *Document) Links() []codec.Link {
	var links []codec.Link
	for i, da := range d.acts {
		if da.Minute == nil && da.Problem.IsNone() {
			continue
		}
		links = append(links, codec.Link{
			Index:   i,
			Minute:  d.Position(da.Minute),
			Final:   da.Final,
			Problem: da.Problem,
		})
	}
	return links
}
