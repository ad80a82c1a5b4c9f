package ownership

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/crossbind/internal/ir"
)

type native struct {
	name string
}

type destroyLog struct {
	names []string
}

func (d *destroyLog) destroy(_ ir.TypeID, n any) {
	d.names = append(d.names, n.(*native).name)
}

func testModel(t *testing.T) *ir.Model {
	t.Helper()
	m := ir.NewModel()
	for _, entry := range []ir.TypeEntry{
		{ID: "Object", Kind: ir.KindObject, ParentTracked: true, HasVirtualDestructor: true},
		{ID: "Widget", Kind: ir.KindObject, Base: "Object", ParentTracked: true, HasVirtualDestructor: true},
		{ID: "Plain", Kind: ir.KindObject},
		{ID: "Point", Kind: ir.KindValue},
		{ID: "Callback", Kind: ir.KindCustom},
	} {
		require.NoError(t, m.AddType(entry))
	}
	m.Freeze()
	return m
}

func newTestTracker(t *testing.T, opts ...Option) (*Tracker, *MemoryJournal, *destroyLog) {
	t.Helper()
	j := &MemoryJournal{}
	d := &destroyLog{}
	base := []Option{
		WithIDGenerator(NewSequenceGenerator("w")),
		WithJournal(j),
		WithDestroyer(d.destroy),
	}
	return NewTracker(testModel(t), append(base, opts...)...), j, d
}
