package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func seq(ops ...Opcode) []*Instruction {
	out := make([]*Instruction, len(ops))
	for i, op := range ops {
		out[i] = NewInstruction(op, 0, 0)
	}
	return out
}

func collect(l *InstrList) []Opcode {
	var out []Opcode
	l.ForEach(func(i *Instruction) { out = append(out, i.Opcode) })
	return out
}

func TestInstrListAppendAndIterate(t *testing.T) {
	l := NewInstrList()
	ins := seq(1, 2, 3)
	for _, in := range ins {
		l.Append(in)
	}
	require.Equal(t, 3, l.Len())
	require.Equal(t, []Opcode{1, 2, 3}, collect(l))
	require.Same(t, ins[0], l.First())
	require.Same(t, ins[2], l.Last())
}

func TestInstrListInsertBefore(t *testing.T) {
	l := NewInstrList()
	ins := seq(1, 3)
	l.Append(ins[0])
	l.Append(ins[1])

	mid := NewInstruction(2, 0, 0)
	l.InsertBefore(ins[1], mid)

	require.Equal(t, []Opcode{1, 2, 3}, collect(l))
	require.Equal(t, 3, l.Len())
}

func TestInstrListInsertBeforeNilAppends(t *testing.T) {
	l := NewInstrList()
	l.Append(NewInstruction(1, 0, 0))
	l.InsertBefore(nil, NewInstruction(2, 0, 0))
	require.Equal(t, []Opcode{1, 2}, collect(l))
}

func TestInstrListReplaceInPlace(t *testing.T) {
	l := NewInstrList()
	ins := seq(1, 2, 3)
	for _, in := range ins {
		l.Append(in)
	}
	replacement := NewInstruction(99, 0, 0)
	l.ReplaceInPlace(ins[1], replacement)

	require.Equal(t, []Opcode{1, 99, 3}, collect(l))
	require.Nil(t, ins[1].Next())
	require.Nil(t, ins[1].Prev())
}

func TestInstrListReplaceAtHeadAndTail(t *testing.T) {
	l := NewInstrList()
	ins := seq(1, 2, 3)
	for _, in := range ins {
		l.Append(in)
	}

	head := NewInstruction(10, 0, 0)
	l.ReplaceInPlace(ins[0], head)
	require.Same(t, head, l.First())

	tail := NewInstruction(30, 0, 0)
	l.ReplaceInPlace(ins[2], tail)
	require.Same(t, tail, l.Last())

	require.Equal(t, []Opcode{10, 2, 30}, collect(l))
}

func TestInstrListRemove(t *testing.T) {
	l := NewInstrList()
	ins := seq(1, 2, 3)
	for _, in := range ins {
		l.Append(in)
	}
	l.Remove(ins[1])
	require.Equal(t, []Opcode{1, 3}, collect(l))
	require.Equal(t, 2, l.Len())

	l.Remove(ins[0])
	require.Equal(t, []Opcode{3}, collect(l))
	require.Same(t, ins[2], l.First())
	require.Same(t, ins[2], l.Last())
}
