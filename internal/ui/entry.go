package ui

import (
	"ClassBoard/internal/state"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// annotationEntry edits the text of one annotation in place. Enter commits,
// Shift+Enter breaks the line and Escape discards the text.
type annotationEntry struct {
	widget.Entry
	id    string
	shift bool

	onChanged   func(string)
	onCommit    func()
	onCancel    func()
	onFocusLost func(id string)
	syncing     bool
}

func newAnnotationEntry(changed func(string), commit, cancel func(), focusLost func(string)) *annotationEntry {
	e := &annotationEntry{onChanged: changed, onCommit: commit, onCancel: cancel, onFocusLost: focusLost}
	e.MultiLine = true
	e.Wrapping = fyne.TextWrapWord
	e.ExtendBaseWidget(e)
	e.Entry.OnChanged = func(s string) {
		if !e.syncing && e.onChanged != nil {
			e.onChanged(s)
		}
	}
	return e
}

// bind attaches the entry to a, loading its text when a is new to it.
func (e *annotationEntry) bind(a state.Annotation) {
	e.TextStyle = fyne.TextStyle{
		Bold:   a.FontWeight == state.WeightBold,
		Italic: a.FontStyle == state.StyleItalic,
	}
	if e.id != a.ID {
		e.id = a.ID
		e.syncing = true
		e.SetText(a.Text)
		e.syncing = false
	}
	e.Show()
}

func (e *annotationEntry) unbind() {
	if e.id == "" && !e.Visible() {
		return
	}
	e.id = ""
	e.shift = false
	e.syncing = true
	e.SetText("")
	e.syncing = false
	e.Hide()
}

func isShift(k fyne.KeyName) bool {
	return k == desktop.KeyShiftLeft || k == desktop.KeyShiftRight
}

func (e *annotationEntry) KeyDown(k *fyne.KeyEvent) {
	if isShift(k.Name) {
		e.shift = true
	}
	e.Entry.KeyDown(k)
}

func (e *annotationEntry) KeyUp(k *fyne.KeyEvent) {
	if isShift(k.Name) {
		e.shift = false
	}
	e.Entry.KeyUp(k)
}

func (e *annotationEntry) TypedKey(k *fyne.KeyEvent) {
	switch k.Name {
	case fyne.KeyReturn, fyne.KeyEnter:
		if !e.shift {
			e.onCommit()
			return
		}
	case fyne.KeyEscape:
		e.onCancel()
		return
	}
	e.Entry.TypedKey(k)
}

func (e *annotationEntry) FocusLost() {
	e.Entry.FocusLost()
	if e.id != "" && e.onFocusLost != nil {
		e.onFocusLost(e.id)
	}
}
