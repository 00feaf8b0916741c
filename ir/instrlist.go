package ir

// InstrList is a doubly linked intrusive sequence of Instruction nodes,
// owned by the list: an Instruction must belong to at most one InstrList
// at a time. It backs a single translated block while it is being built
// by the mangler, before the encoder lays it out to bytes.
type InstrList struct {
	head, tail *Instruction
	length     int
}

// NewInstrList returns an empty list.
func NewInstrList() *InstrList { return &InstrList{} }

// Len returns the number of instructions currently in the list.
func (l *InstrList) Len() int { return l.length }

// First returns the first instruction, or nil if the list is empty.
func (l *InstrList) First() *Instruction { return l.head }

// Last returns the last instruction, or nil if the list is empty.
func (l *InstrList) Last() *Instruction { return l.tail }

// Append adds in at the tail of the list.
func (l *InstrList) Append(in *Instruction) {
	in.prev = l.tail
	in.next = nil
	if l.tail != nil {
		l.tail.next = in
	} else {
		l.head = in
	}
	l.tail = in
	l.length++
}

// InsertBefore inserts in immediately before label, which must already be
// a member of this list. If label is nil, in is appended at the tail.
func (l *InstrList) InsertBefore(label, in *Instruction) {
	if label == nil {
		l.Append(in)
		return
	}
	in.prev = label.prev
	in.next = label
	if label.prev != nil {
		label.prev.next = in
	} else {
		l.head = in
	}
	label.prev = in
	l.length++
}

// ReplaceInPlace swaps old for replacement at old's position, unlinking
// old from the list. old and replacement must be distinct nodes.
func (l *InstrList) ReplaceInPlace(old, replacement *Instruction) {
	replacement.prev = old.prev
	replacement.next = old.next
	if old.prev != nil {
		old.prev.next = replacement
	} else {
		l.head = replacement
	}
	if old.next != nil {
		old.next.prev = replacement
	} else {
		l.tail = replacement
	}
	old.prev, old.next = nil, nil
}

// Remove unlinks in from the list.
func (l *InstrList) Remove(in *Instruction) {
	if in.prev != nil {
		in.prev.next = in.next
	} else {
		l.head = in.next
	}
	if in.next != nil {
		in.next.prev = in.prev
	} else {
		l.tail = in.prev
	}
	in.prev, in.next = nil, nil
	l.length--
}

// ForEach iterates the list forward from head to tail, calling fn for
// each instruction. fn must not mutate the list's linkage; use Remove/
// ReplaceInPlace from a manual loop over Next() for that.
func (l *InstrList) ForEach(fn func(*Instruction)) {
	for cur := l.head; cur != nil; cur = cur.next {
		fn(cur)
	}
}
