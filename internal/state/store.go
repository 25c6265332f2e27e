package state

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Measurer reports the rendered extent of annotation text. When maxWidth is
// positive, lines wrap at maxWidth.
type Measurer interface {
	Measure(text string, st Style, maxWidth float64) (width, height float64)
}

// Commit describes an annotation leaving the editing state.
type Commit struct {
	ID      string
	Deleted bool
}

// Store is the ordered collection of annotations and their edit state.
// At most one annotation is editing at any time.
type Store struct {
	items map[string]*Annotation
	seq   Sequencer
	log   zerolog.Logger
	mu    sync.RWMutex
}

func NewStore(log zerolog.Logger) *Store {
	return &Store{
		items: make(map[string]*Annotation),
		log:   log,
	}
}

// InitialSize is the size of a freshly created annotation: one glyph wide and
// one and a half lines tall.
func InitialSize(st Style) Size {
	return Size{Width: st.FontSize, Height: st.FontSize * 1.5}
}

// Create adds an annotation at p that starts out editing and selected. Any
// annotation that was editing is committed first; the returned Commit reports it.
func (s *Store) Create(p Point, st Style) (Annotation, *Commit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	commit := s.commitLocked()
	s.resetFlagsLocked()

	st.normalize()
	sz := InitialSize(st)
	a := &Annotation{
		ID:         newAnnotationID(),
		X:          p.X,
		Y:          p.Y,
		Width:      sz.Width,
		Height:     sz.Height,
		Style:      st,
		ZOrder:     s.seq.Next(),
		IsEditing:  true,
		IsSelected: true,
	}
	s.items[a.ID] = a
	s.log.Debug().Str("id", a.ID).Float64("x", p.X).Float64("y", p.Y).Msg("annotation created")
	return *a, commit
}

// Select moves id to the selected state and every other annotation to idle.
// An annotation that was editing is committed.
func (s *Store) Select(id string) (*Commit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[id]
	if !ok {
		return nil, false
	}
	if a.IsEditing {
		return nil, true
	}
	commit := s.commitLocked()
	s.resetFlagsLocked()
	a.IsSelected = true
	return commit, true
}

// ClearSelection returns every annotation to idle, committing the editing one.
func (s *Store) ClearSelection() *Commit {
	s.mu.Lock()
	defer s.mu.Unlock()

	commit := s.commitLocked()
	s.resetFlagsLocked()
	return commit
}

// BeginEdit puts id into editing. All other annotations become idle; one that
// was editing is committed.
func (s *Store) BeginEdit(id string) (*Commit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[id]
	if !ok {
		return nil, false
	}
	if a.IsEditing {
		return nil, true
	}
	commit := s.commitLocked()
	s.resetFlagsLocked()
	a.IsEditing = true
	a.IsSelected = true
	return commit, true
}

// SetText replaces the text of the editing annotation id.
func (s *Store) SetText(id, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[id]
	if !ok || !a.IsEditing {
		return false
	}
	a.Text = text
	return true
}

// CommitEdit ends editing. It returns nil when nothing was editing.
func (s *Store) CommitEdit() *Commit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked()
}

func (s *Store) commitLocked() *Commit {
	for id, a := range s.items {
		if !a.IsEditing {
			continue
		}
		if a.Blank() {
			delete(s.items, id)
			s.log.Debug().Str("id", id).Msg("blank annotation dropped on commit")
			return &Commit{ID: id, Deleted: true}
		}
		a.IsEditing = false
		return &Commit{ID: id}
	}
	return nil
}

func (s *Store) resetFlagsLocked() {
	for _, a := range s.items {
		a.IsEditing = false
		a.IsSelected = false
	}
}

// Delete removes id from any state.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	s.log.Debug().Str("id", id).Msg("annotation deleted")
	return true
}

// Move updates only the position of id.
func (s *Store) Move(id string, p Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[id]
	if !ok {
		return false
	}
	a.X, a.Y = p.X, p.Y
	return true
}

// ResizeTo updates only the size of id. Sizes are clamped to the minimal box
// for the annotation's font.
func (s *Store) ResizeTo(id string, sz Size) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[id]
	if !ok {
		return false
	}
	floor := InitialSize(a.Style)
	a.Width = max(sz.Width, floor.Width)
	a.Height = max(sz.Height, floor.Height)
	return true
}

// Fit grows or shrinks id to its rendered content. The box tracks the natural
// text extent until it would cross surfaceWidth; past that the width is pinned
// and the text wraps, so only the height grows.
func (s *Store) Fit(id string, m Measurer, surfaceWidth float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.items[id]
	if !ok {
		return false
	}
	floor := InitialSize(a.Style)
	limit := max(surfaceWidth-a.X, floor.Width)

	w, h := m.Measure(a.Text, a.Style, 0)
	if w > limit {
		w = limit
		_, h = m.Measure(a.Text, a.Style, limit)
	}
	a.Width = max(w, floor.Width)
	a.Height = max(h, floor.Height)
	return true
}

// Scale remaps every annotation for a surface resize. Font size follows the
// smaller factor so glyphs are never distorted.
func (s *Store) Scale(sx, sy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs := min(sx, sy)
	for _, a := range s.items {
		a.X *= sx
		a.Y *= sy
		a.Width *= sx
		a.Height *= sy
		a.FontSize *= fs
	}
}

// Replace swaps the whole collection for restored records. Transient flags
// are cleared and duplicate ids keep the first occurrence.
func (s *Store) Replace(list []Annotation) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*Annotation, len(list))
	s.seq.Reset()
	for _, a := range list {
		if _, dup := s.items[a.ID]; dup {
			s.log.Warn().Str("id", a.ID).Msg("duplicate annotation id skipped")
			continue
		}
		a := a.Stripped()
		if a.ZOrder == 0 {
			a.ZOrder = s.seq.Next()
		} else {
			s.seq.Observe(a.ZOrder)
		}
		s.items[a.ID] = &a
	}
	return len(s.items)
}

// Clear removes every annotation.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*Annotation)
	s.seq.Reset()
}

func (s *Store) Get(id string) (Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.items[id]
	if !ok {
		return Annotation{}, false
	}
	return *a, true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// List returns copies in paint order: z-order ascending, ties by id.
func (s *Store) List() []Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Annotation, 0, len(s.items))
	for _, a := range s.items {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ZOrder != out[j].ZOrder {
			return out[i].ZOrder < out[j].ZOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Persistable returns the paint-ordered list stripped of transient flags.
func (s *Store) Persistable() []Annotation {
	list := s.List()
	for i := range list {
		list[i] = list[i].Stripped()
	}
	return list
}

func (s *Store) Editing() (Annotation, bool) {
	return s.find(func(a *Annotation) bool { return a.IsEditing })
}

func (s *Store) Selected() (Annotation, bool) {
	return s.find(func(a *Annotation) bool { return a.IsSelected })
}

func (s *Store) find(match func(*Annotation) bool) (Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.items {
		if match(a) {
			return *a, true
		}
	}
	return Annotation{}, false
}

// HitTest returns the topmost annotation under p together with the zone hit.
func (s *Store) HitTest(p Point) (Annotation, Handle) {
	list := s.List()
	for i := len(list) - 1; i >= 0; i-- {
		if h := HandleAt(list[i], p); h != HandleNone {
			return list[i], h
		}
	}
	return Annotation{}, HandleNone
}
