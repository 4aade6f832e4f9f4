package pack

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mesh-intelligence/annopack/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// richPack builds a pack with every entry variant, provenance and metadata.
func richPack(t *testing.T) *Pack {
	t.Helper()
	p := newTestPack(WithDocID("d1"))
	require.NoError(t, p.SetMeta(types.MetaProcessState, "parsed"))

	reader := p.EnterProcessing("reader")
	a, err := reader.AddEntry(types.NewAnnotation(0, 5))
	require.NoError(t, err)
	b, err := reader.AddEntry(types.NewAnnotation(6, 9))
	require.NoError(t, err)
	reader.RecordFields(types.TypeAnnotation, []string{"span"})
	reader.Exit()

	tagger := p.EnterProcessing("tagger")
	tok, err := tagger.AddEntry(newToken(0, 5, "NN"))
	require.NoError(t, err)
	_, err = tagger.AddEntry(types.NewLink(a, b))
	require.NoError(t, err)
	_, err = tagger.AddEntry(types.NewGroup(a, b, tok))
	require.NoError(t, err)
	require.NoError(t, tagger.RecordFieldUpdate(tok.TID(), "pos"))
	tagger.Exit()
	return p
}

func TestSerializeRoundTrip(t *testing.T) {
	p := richPack(t)

	data, err := p.Serialize()
	require.NoError(t, err)

	q, err := Deserialize(data)
	require.NoError(t, err)

	assert.Equal(t, p.Scope(), q.Scope())
	assert.Equal(t, p.Meta(), q.Meta())
	assert.Equal(t, p.Entries(), q.Entries())
	assert.Equal(t, p.Links(), q.Links())
	assert.Equal(t, p.Groups(), q.Groups())
	for _, et := range []string{types.TypeAnnotation, types.TypeLink, types.TypeGroup, typeToken} {
		assert.Equal(t, p.InternalMeta(et), q.InternalMeta(et), et)
	}
	assert.Equal(t, p.Index().Stats(), q.Index().Stats())

	again, err := q.Serialize()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestDeserializeContinuesMinting(t *testing.T) {
	p := richPack(t)
	data, err := p.Serialize()
	require.NoError(t, err)

	q, err := Deserialize(data)
	require.NoError(t, err)
	e, err := q.AddEntry(types.NewAnnotation(10, 11))
	require.NoError(t, err)
	assert.Equal(t, "doc/Annotation.3", e.TID())
}

func TestDeserializeLazyIndexesUnbuilt(t *testing.T) {
	p := richPack(t)
	_, err := p.Index().LinkIndex("x", true)
	require.NoError(t, err)

	data, err := p.Serialize()
	require.NoError(t, err)
	q, err := Deserialize(data)
	require.NoError(t, err)

	assert.False(t, q.Index().LinkIndexBuilt())
	assert.False(t, q.Index().GroupIndexBuilt())

	l := q.Links()[0]
	got, err := q.Index().LinkIndex(l.Parent(), true)
	require.NoError(t, err)
	assert.True(t, got.Has(l.TID()))
}

func TestDeserializeErrors(t *testing.T) {
	valid, err := richPack(t).Serialize()
	require.NoError(t, err)

	mutate := func(f func(doc map[string]any)) string {
		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(valid), &doc))
		f(doc)
		out, err := json.Marshal(doc)
		require.NoError(t, err)
		return string(out)
	}

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "not json", data: "{", wantErr: types.ErrInvalidPayload},
		{
			name:    "wrong version",
			data:    mutate(func(doc map[string]any) { doc["version"] = 99 }),
			wantErr: types.ErrInvalidPayload,
		},
		{
			name:    "missing scope",
			data:    mutate(func(doc map[string]any) { delete(doc, "scope") }),
			wantErr: types.ErrInvalidPayload,
		},
		{
			name: "unknown entry type",
			data: mutate(func(doc map[string]any) {
				doc["entries"].([]any)[0].(map[string]any)["type"] = "Mystery"
			}),
			wantErr: types.ErrUnknownEntryType,
		},
		{
			name: "entry without tid",
			data: mutate(func(doc map[string]any) {
				entry := doc["entries"].([]any)[0].(map[string]any)["entry"].(map[string]any)
				delete(entry, "tid")
			}),
			wantErr: types.ErrInvalidPayload,
		},
		{
			name: "link before its endpoints",
			data: mutate(func(doc map[string]any) {
				entries := doc["entries"].([]any)
				// Move the link (index 3) to the front.
				doc["entries"] = append([]any{entries[3]}, append(entries[:3:3], entries[4:]...)...)
			}),
			wantErr: types.ErrInvalidEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.data)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestViewIndependence(t *testing.T) {
	p := richPack(t)
	before, err := p.Serialize()
	require.NoError(t, err)
	beforeStats := p.Index().Stats()

	v, err := p.View()
	require.NoError(t, err)

	// Mutate the copy: its entries, metadata, bookkeeping and indexes.
	for _, e := range v.Entries() {
		if a, ok := e.(*types.Annotation); ok {
			a.Span.End += 100
		}
	}
	v.Groups()[0].(*types.Group).AddMember("ghost")
	require.NoError(t, v.SetMeta(types.MetaProcessState, "changed"))
	s := v.EnterProcessing("other")
	_, err = s.AddEntry(types.NewAnnotation(1, 2))
	require.NoError(t, err)
	s.RecordFields(types.TypeAnnotation, []string{"extra"})
	_, err = v.Index().LinkIndex("x", true)
	require.NoError(t, err)

	after, err := p.Serialize()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, beforeStats, p.Index().Stats())
	assert.Equal(t, "", p.CurrentComponent())

	// And the other way round.
	vBefore, err := v.Serialize()
	require.NoError(t, err)
	_, err = p.AddEntry(types.NewAnnotation(3, 4))
	require.NoError(t, err)
	vAfter, err := v.Serialize()
	require.NoError(t, err)
	assert.Equal(t, vBefore, vAfter)
}

func TestViewEqualsSource(t *testing.T) {
	p := richPack(t)
	_, err := p.Index().GroupIndex("x")
	require.NoError(t, err)

	v, err := p.View()
	require.NoError(t, err)

	assert.Equal(t, p.Entries(), v.Entries())
	for i, e := range p.Entries() {
		assert.NotSame(t, e, v.Entries()[i])
	}
	assert.False(t, v.Index().GroupIndexBuilt(), "view rebuilds caches lazily")
	pa, _ := p.Serialize()
	va, _ := v.Serialize()
	assert.Equal(t, pa, va)
}

func TestRecordConversion(t *testing.T) {
	p := richPack(t)

	rec, err := p.ToRecord()
	require.NoError(t, err)
	assert.Equal(t, "d1", rec.DocID)
	assert.Equal(t, "parsed", rec.ProcessState)
	assert.Equal(t, p.Len(), rec.EntryCount)
	require.Len(t, rec.Entries, p.Len())
	assert.Equal(t, types.EntrySummary{
		TID:       p.Entries()[2].TID(),
		EntryType: typeToken,
		Component: "tagger",
	}, rec.Entries[2])

	q, err := FromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, p.Entries(), q.Entries())

	_, err = FromRecord(&types.PackRecord{})
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestRecordChecksum(t *testing.T) {
	rec, err := richPack(t).ToRecord()
	require.NoError(t, err)
	assert.Len(t, rec.Checksum, 64)
	assert.Equal(t, types.PayloadChecksum(rec.Payload), rec.Checksum)

	tampered := *rec
	tampered.Payload = strings.Replace(rec.Payload, `"parsed"`, `"raw"`, 1)
	require.NotEqual(t, rec.Payload, tampered.Payload)
	_, err = FromRecord(&tampered)
	assert.ErrorIs(t, err, types.ErrInvalidData)

	// Records without a checksum are accepted.
	tampered.Checksum = ""
	q, err := FromRecord(&tampered)
	require.NoError(t, err)
	assert.Equal(t, "raw", q.Meta().ProcessState)
}
