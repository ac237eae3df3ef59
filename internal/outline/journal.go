package outline

// MutationLog tracks unsaved changes for one session.
type MutationLog struct {
	modified bool
	edits    int
	pending  []MoveRecord
	last     *MoveRecord
}

// MarkEdited records a non-move change (add, delete, rename, repage).
func (l *MutationLog) MarkEdited() {
	l.modified = true
	l.edits++
}

// RecordMove records an applied move.
func (l *MutationLog) RecordMove(r MoveRecord) {
	l.modified = true
	l.pending = append(l.pending, r)
	rec := r
	l.last = &rec
}

func (l *MutationLog) Modified() bool {
	return l.modified
}

// LastMove returns the most recent applied move, if any. It survives
// AcknowledgeSaved so a caller can still offer to reverse it.
func (l *MutationLog) LastMove() (MoveRecord, bool) {
	if l.last == nil {
		return MoveRecord{}, false
	}
	return *l.last, true
}

// Pending returns moves applied since the last acknowledged save.
func (l *MutationLog) Pending() []MoveRecord {
	out := make([]MoveRecord, len(l.pending))
	copy(out, l.pending)
	return out
}

// Edits returns the count of non-move changes since the last save.
func (l *MutationLog) Edits() int {
	return l.edits
}

// AcknowledgeSaved clears the dirty state after the persistence
// collaborator reports success.
func (l *MutationLog) AcknowledgeSaved() {
	l.modified = false
	l.edits = 0
	l.pending = nil
}
