package pack

import (
	"testing"

	"github.com/mesh-intelligence/annopack/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEntryIndexes(t *testing.T) {
	p := newTestPack()
	s := p.EnterProcessing("reader")
	entries := []types.Entry{
		types.NewAnnotation(0, 5),
		newToken(0, 5, "NN"),
		types.NewAnnotation(6, 9),
	}
	for _, e := range entries {
		_, err := s.AddEntry(e)
		require.NoError(t, err)
	}
	s.Exit()

	ix := p.Index()
	for _, e := range entries {
		got, ok := ix.Entry(e.TID())
		require.True(t, ok)
		assert.Same(t, e, got)
		assert.True(t, ix.TIDsOfType(e.EntryType()).Has(e.TID()))
		assert.True(t, ix.TIDsOfComponent(e.Component()).Has(e.TID()))
		assert.Equal(t, "reader", e.Component())
	}
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, "doc/Token.1", entries[1].TID())
}

func TestAddEntryKeepsPresetComponent(t *testing.T) {
	p := newTestPack()
	p.EnterProcessing("reader")
	e := types.NewAnnotation(0, 1)
	e.Owner = "upstream"

	mustAdd(t, p, e)
	assert.Equal(t, "upstream", e.Component())
	assert.True(t, p.Index().TIDsOfComponent("upstream").Has(e.TID()))
}

func TestAddEntryAllowsLogicalDuplicates(t *testing.T) {
	p := newTestPack()
	a := mustAdd(t, p, types.NewAnnotation(0, 5))
	b := mustAdd(t, p, types.NewAnnotation(0, 5))

	assert.NotEqual(t, a.TID(), b.TID())
	assert.Equal(t, 2, p.Len())
}

func TestAddEntrySameObjectTwice(t *testing.T) {
	p := newTestPack()
	a := types.NewAnnotation(0, 5)
	mustAdd(t, p, a)
	got := mustAdd(t, p, a)

	assert.Same(t, a, got)
	assert.Equal(t, 1, p.Len())
}

func TestAddEntryRejects(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, p *Pack) types.Entry
	}{
		{
			name: "tid collision with another object",
			setup: func(t *testing.T, p *Pack) types.Entry {
				mustAdd(t, p, withTID(types.NewAnnotation(0, 1), "X"))
				return withTID(types.NewAnnotation(0, 1), "X")
			},
		},
		{
			name: "reversed span",
			setup: func(t *testing.T, p *Pack) types.Entry {
				return types.NewAnnotation(5, 2)
			},
		},
		{
			name: "negative begin",
			setup: func(t *testing.T, p *Pack) types.Entry {
				return types.NewAnnotation(-1, 2)
			},
		},
		{
			name: "link to missing child",
			setup: func(t *testing.T, p *Pack) types.Entry {
				a := mustAdd(t, p, types.NewAnnotation(0, 1))
				return &types.Link{ParentTID: a.TID(), ChildTID: "missing"}
			},
		},
		{
			name: "link without endpoints",
			setup: func(t *testing.T, p *Pack) types.Entry {
				return &types.Link{}
			},
		},
		{
			name: "group with missing member",
			setup: func(t *testing.T, p *Pack) types.Entry {
				a := mustAdd(t, p, types.NewAnnotation(0, 1))
				return &types.Group{MemberTIDs: []string{a.TID(), "missing"}}
			},
		},
		{
			name: "group with empty member",
			setup: func(t *testing.T, p *Pack) types.Entry {
				return &types.Group{MemberTIDs: []string{""}}
			},
		},
		{
			name: "nil entry",
			setup: func(t *testing.T, p *Pack) types.Entry {
				return nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPack()
			e := tt.setup(t, p)
			before := p.Index().Stats()
			beforeMeta := p.InternalMeta(types.TypeLink)

			_, err := p.AddEntry(e)
			assert.ErrorIs(t, err, types.ErrInvalidEntry)
			assert.Equal(t, before, p.Index().Stats(), "indexes must be unchanged")
			assert.Equal(t, beforeMeta, p.InternalMeta(types.TypeLink))
		})
	}
}

func TestAddEntryIgnoresEntriesOnlyInIndex(t *testing.T) {
	p := newTestPack()
	a := mustAdd(t, p, types.NewAnnotation(0, 1))
	ghost := withTID(types.NewAnnotation(2, 3), "ghost")
	p.Index().UpdateBasicIndex(ghost)

	_, err := p.AddEntry(&types.Link{ParentTID: a.TID(), ChildTID: "ghost"})
	assert.ErrorIs(t, err, types.ErrInvalidEntry)
	_, err = p.AddEntry(&types.Group{MemberTIDs: []string{a.TID(), "ghost"}})
	assert.ErrorIs(t, err, types.ErrInvalidEntry)
	assert.Equal(t, 1, p.Len())

	payload, err := p.Serialize()
	require.NoError(t, err)
	_, err = Deserialize(payload)
	require.NoError(t, err)
}

func TestAddEntryGroupMembersUntouchedOnReject(t *testing.T) {
	p := newTestPack()
	a := mustAdd(t, p, types.NewAnnotation(0, 1))
	g := &types.Group{MemberTIDs: []string{a.TID(), a.TID(), "missing"}}

	_, err := p.AddEntry(g)
	require.ErrorIs(t, err, types.ErrInvalidEntry)
	assert.Equal(t, []string{a.TID(), a.TID(), "missing"}, g.MemberTIDs)

	dup := &types.Group{MemberTIDs: []string{a.TID(), a.TID()}}
	mustAdd(t, p, dup)
	assert.Equal(t, []string{a.TID()}, dup.MemberTIDs)
}

func TestAddLinkAndGroupLists(t *testing.T) {
	p := newTestPack()
	a := mustAdd(t, p, types.NewAnnotation(0, 1))
	b := mustAdd(t, p, types.NewAnnotation(2, 3))
	l := mustAdd(t, p, types.NewLink(a, b))
	g := mustAdd(t, p, types.NewGroup(a, b, a))

	require.Len(t, p.Links(), 1)
	assert.Same(t, l, p.Links()[0])
	require.Len(t, p.Groups(), 1)
	assert.Same(t, g, p.Groups()[0])
	assert.Equal(t, []string{a.TID(), b.TID()}, p.Groups()[0].Members())
	assert.Equal(t, []types.Entry{a, b, l, g}, p.Entries())
}

func TestAddOrGetEntryReturnsExisting(t *testing.T) {
	p := newTestPack()
	s := p.EnterProcessing("first")
	e1, err := s.AddEntry(types.NewAnnotation(0, 5))
	require.NoError(t, err)
	s.Exit()

	before := p.Index().Stats()
	beforeMeta := p.InternalMeta(types.TypeAnnotation)

	s = p.EnterProcessing("second")
	got, err := s.AddOrGetEntry(types.NewAnnotation(0, 5))
	require.NoError(t, err)
	s.Exit()

	assert.Same(t, e1, got)
	assert.Equal(t, before, p.Index().Stats())
	assert.Equal(t, beforeMeta, p.InternalMeta(types.TypeAnnotation))
	assert.Equal(t, "first", got.Component())
}

func TestAddOrGetEntryAddsWhenDifferent(t *testing.T) {
	p := newTestPack()
	mustAdd(t, p, types.NewAnnotation(0, 5))

	// Same span but another type is not a duplicate.
	tok := newToken(0, 5, "NN")
	got, err := p.AddOrGetEntry(tok)
	require.NoError(t, err)
	assert.Same(t, tok, got)

	// Token equality also compares the tag.
	other := newToken(0, 5, "VB")
	got, err = p.AddOrGetEntry(other)
	require.NoError(t, err)
	assert.Same(t, other, got)

	dup := newToken(0, 5, "NN")
	got, err = p.AddOrGetEntry(dup)
	require.NoError(t, err)
	assert.Same(t, tok, got)
	assert.Equal(t, 3, p.Len())
}

func TestAddOrGetEntryEarliestMatchWins(t *testing.T) {
	p := newTestPack()
	first := mustAdd(t, p, types.NewAnnotation(1, 2))
	for i := 0; i < 20; i++ {
		mustAdd(t, p, types.NewAnnotation(1, 2))
	}

	got, err := p.AddOrGetEntry(types.NewAnnotation(1, 2))
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestAddOrGetLinkAndGroup(t *testing.T) {
	p := newTestPack()
	a := mustAdd(t, p, types.NewAnnotation(0, 1))
	b := mustAdd(t, p, types.NewAnnotation(2, 3))
	l := mustAdd(t, p, types.NewLink(a, b))
	g := mustAdd(t, p, types.NewGroup(a, b))

	got, err := p.AddOrGetEntry(types.NewLink(a, b))
	require.NoError(t, err)
	assert.Same(t, l, got)

	got, err = p.AddOrGetEntry(types.NewGroup(b, a))
	require.NoError(t, err)
	assert.Same(t, g, got)

	reverse, err := p.AddOrGetEntry(types.NewLink(b, a))
	require.NoError(t, err)
	assert.NotSame(t, l, reverse)
	assert.Len(t, p.Links(), 2)
}

func TestProcessingSessions(t *testing.T) {
	p := newTestPack()
	assert.Equal(t, "", p.CurrentComponent())

	reader := p.EnterProcessing("reader")
	assert.Equal(t, "reader", p.CurrentComponent())

	// A second session supersedes the first as current owner.
	tagger := p.EnterProcessing("tagger")
	assert.Equal(t, "tagger", p.CurrentComponent())

	// The superseded token still attributes explicitly.
	e, err := reader.AddEntry(types.NewAnnotation(0, 1))
	require.NoError(t, err)
	assert.Equal(t, "reader", e.Component())

	// Plain adds follow the current session.
	e2 := mustAdd(t, p, types.NewAnnotation(1, 2))
	assert.Equal(t, "tagger", e2.Component())

	// Exiting a superseded session does not clear the current one.
	reader.Exit()
	assert.Equal(t, "tagger", p.CurrentComponent())
	tagger.Exit()
	assert.Equal(t, "", p.CurrentComponent())

	p.EnterProcessing("x")
	p.ExitProcessing()
	assert.Equal(t, "", p.CurrentComponent())
}

func TestProcessingRecordFields(t *testing.T) {
	p := newTestPack()
	s := p.EnterProcessing("tagger")
	s.RecordFields(typeToken, []string{"pos"})
	s.RecordFields(typeToken, []string{"span"}, BroadcastToAllComponents())
	s.Exit()

	assert.Equal(t, map[string][]string{"tagger": {"pos", "span"}}, p.FieldsCreated(typeToken))
	assert.Equal(t, "tagger", s.Component())
}
