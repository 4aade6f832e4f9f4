package pack

import (
	"math"
	"testing"

	"github.com/mesh-intelligence/annopack/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintIDIncreasesPerType(t *testing.T) {
	p := newTestPack()

	a1, err := p.MintID(types.TypeAnnotation)
	require.NoError(t, err)
	a2, err := p.MintID(types.TypeAnnotation)
	require.NoError(t, err)
	l1, err := p.MintID(types.TypeLink)
	require.NoError(t, err)

	assert.Equal(t, "doc/Annotation.1", a1)
	assert.Equal(t, "doc/Annotation.2", a2)
	assert.Equal(t, "doc/Link.1", l1)
	assert.Equal(t, int64(2), p.InternalMeta(types.TypeAnnotation).IDCounter)
}

func TestMintIDSkipsTakenTIDs(t *testing.T) {
	p := newTestPack()
	mustAdd(t, p, withTID(types.NewAnnotation(0, 1), "doc/Annotation.1"))

	tid, err := p.MintID(types.TypeAnnotation)
	require.NoError(t, err)
	assert.Equal(t, "doc/Annotation.2", tid)
}

func TestMintIDNeverReuses(t *testing.T) {
	p := newTestPack()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		e := mustAdd(t, p, types.NewAnnotation(i, i+1))
		assert.False(t, seen[e.TID()], "tid %s minted twice", e.TID())
		seen[e.TID()] = true
	}
}

func TestMintIDExhausted(t *testing.T) {
	p := newTestPack()
	p.internalMeta(types.TypeAnnotation).IDCounter = math.MaxInt64

	_, err := p.MintID(types.TypeAnnotation)
	assert.ErrorIs(t, err, types.ErrExhaustedIDSpace)

	before := p.Len()
	_, err = p.AddEntry(types.NewAnnotation(0, 1))
	assert.ErrorIs(t, err, types.ErrExhaustedIDSpace)
	assert.Equal(t, before, p.Len())
}

func TestScopeDefaults(t *testing.T) {
	assert.Equal(t, "wiki-42", New(WithDocID("wiki-42")).Scope())
	assert.Equal(t, "s", New(WithDocID("wiki-42"), WithScope("s")).Scope())
	assert.NotEmpty(t, New().Scope())
	assert.NotEqual(t, New().Scope(), New().Scope())
}

func TestRecordFields(t *testing.T) {
	tests := []struct {
		name   string
		record func(p *Pack)
		want   map[string][]string
	}{
		{
			name: "fields accumulate per component",
			record: func(p *Pack) {
				p.RecordFields(typeToken, "tagger", []string{"pos"})
				p.RecordFields(typeToken, "tagger", []string{"lemma", "pos"})
				p.RecordFields(typeToken, "parser", []string{"head"})
			},
			want: map[string][]string{
				"tagger": {"lemma", "pos"},
				"parser": {"head"},
			},
		},
		{
			name: "broadcast reaches every recorded component",
			record: func(p *Pack) {
				p.RecordFields(typeToken, "tagger", []string{"pos"})
				p.RecordFields(typeToken, "parser", []string{"head"})
				p.RecordFields(typeToken, "ignored", []string{"span"}, BroadcastToAllComponents())
			},
			want: map[string][]string{
				"tagger": {"pos", "span"},
				"parser": {"head", "span"},
			},
		},
		{
			name: "broadcast without components records nothing",
			record: func(p *Pack) {
				p.RecordFields(typeToken, "x", []string{"span"}, BroadcastToAllComponents())
			},
			want: map[string][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPack()
			tt.record(p)
			assert.Equal(t, tt.want, p.FieldsCreated(typeToken))
		})
	}
}

func TestFieldsCreatedUnknownType(t *testing.T) {
	assert.Empty(t, newTestPack().FieldsCreated("Nothing"))
	assert.Nil(t, newTestPack().InternalMeta("Nothing"))
}

func TestProvenance(t *testing.T) {
	p := newTestPack()

	tagger := p.EnterProcessing("tagger")
	tok, err := tagger.AddEntry(newToken(0, 4, "NN"))
	require.NoError(t, err)
	tagger.Exit()

	parser := p.EnterProcessing("parser")
	require.NoError(t, parser.RecordFieldUpdate(tok.TID(), "pos"))
	require.NoError(t, p.RecordFieldUpdate(tok.TID(), "head"))
	parser.Exit()

	fixer := p.EnterProcessing("fixer")
	require.NoError(t, fixer.RecordFieldUpdate(tok.TID(), "pos"))
	fixer.Exit()

	prov, err := p.Provenance(tok.TID())
	require.NoError(t, err)
	assert.Equal(t, typeToken, prov.EntryType)
	assert.Equal(t, "tagger", prov.CreatedBy)
	assert.Equal(t, map[string][]string{
		"pos":  {"fixer", "parser"},
		"head": {"parser"},
	}, prov.ModifiedBy)

	rec := p.InternalMeta(typeToken).ComponentRecords["tagger"]
	require.NotNil(t, rec)
	assert.True(t, rec.Created.Has(tok.TID()))
}

func TestProvenanceUnknownTID(t *testing.T) {
	p := newTestPack()
	_, err := p.Provenance("missing")
	assert.ErrorIs(t, err, types.ErrInvalidEntry)
	assert.ErrorIs(t, p.RecordFieldUpdate("missing", "pos"), types.ErrInvalidEntry)
}

func TestSetMeta(t *testing.T) {
	p := newTestPack(WithDocID("d1"))

	require.NoError(t, p.SetMeta(types.MetaProcessState, "tokenized"))
	require.NoError(t, p.SetMeta(types.MetaCacheState, "warm"))
	assert.Equal(t, types.BaseMeta{DocID: "d1", ProcessState: "tokenized", CacheState: "warm"}, p.Meta())

	err := p.SetMeta("language", "en")
	assert.ErrorIs(t, err, types.ErrAttributeNotFound)
}

func TestSetMetasAllOrNothing(t *testing.T) {
	p := newTestPack()

	err := p.SetMetas(map[string]string{
		types.MetaProcessState: "parsed",
		"bogus":                "x",
	})
	assert.ErrorIs(t, err, types.ErrAttributeNotFound)
	assert.Equal(t, "", p.Meta().ProcessState)

	require.NoError(t, p.SetMetas(map[string]string{types.MetaDocID: "d2"}))
	assert.Equal(t, "d2", p.Meta().DocID)
}
