// Package history implements bounded undo/redo over full markup snapshots.
package history

// DefaultLimit is the maximum number of snapshots kept
const DefaultLimit = 50

// Snapshot is an immutable copy of the markup buffer
type Snapshot struct {
	Seq uint64
	pix []byte
}

// Len returns the snapshot size in bytes
func (s Snapshot) Len() int {
	return len(s.pix)
}

// Stack keeps snapshots in order with a pointer to the current one.
// Entries past the pointer form the redo tail.
type Stack struct {
	entries []Snapshot
	pointer int
	limit   int
	size    int
	nextSeq uint64
}

// New returns a stack holding a single empty snapshot of size bytes
func New(size, limit int) *Stack {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s := &Stack{limit: limit, size: size}
	s.Clear()
	return s
}

// Push records buf as the newest snapshot, discarding the redo tail and the
// oldest entry when the limit is exceeded.
func (s *Stack) Push(buf []byte) Snapshot {
	s.entries = s.entries[:s.pointer+1]

	snap := Snapshot{Seq: s.nextSeq, pix: append([]byte(nil), buf...)}
	s.nextSeq++
	s.entries = append(s.entries, snap)

	if len(s.entries) > s.limit {
		drop := len(s.entries) - s.limit
		s.entries = append(s.entries[:0:0], s.entries[drop:]...)
	}
	s.pointer = len(s.entries) - 1
	return snap
}

// Undo steps back one snapshot and restores it into dst.
// It reports false at the oldest snapshot.
func (s *Stack) Undo(dst []byte) bool {
	if s.pointer == 0 {
		return false
	}
	s.pointer--
	s.Restore(dst)
	return true
}

// Redo steps forward one snapshot and restores it into dst.
// It reports false at the tail.
func (s *Stack) Redo(dst []byte) bool {
	if s.pointer >= len(s.entries)-1 {
		return false
	}
	s.pointer++
	s.Restore(dst)
	return true
}

// Restore copies the snapshot under the pointer into dst
func (s *Stack) Restore(dst []byte) {
	copy(dst, s.entries[s.pointer].pix)
}

// Clear resets the stack to a single empty snapshot
func (s *Stack) Clear() {
	s.entries = []Snapshot{{Seq: s.nextSeq, pix: make([]byte, s.size)}}
	s.nextSeq++
	s.pointer = 0
}

// Len returns the number of snapshots held
func (s *Stack) Len() int {
	return len(s.entries)
}

// Pointer returns the index of the current snapshot
func (s *Stack) Pointer() int {
	return s.pointer
}

// Current returns the snapshot under the pointer
func (s *Stack) Current() Snapshot {
	return s.entries[s.pointer]
}

func (s *Stack) CanUndo() bool {
	return s.pointer > 0
}

func (s *Stack) CanRedo() bool {
	return s.pointer < len(s.entries)-1
}
