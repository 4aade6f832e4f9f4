package pack

import (
	"io"
	"log/slog"
	"testing"

	"github.com/mesh-intelligence/annopack/pkg/types"
	"github.com/stretchr/testify/require"
)

const typeToken = "Token"

// token is a user-defined annotation subtype with its own equality.
type token struct {
	types.Annotation
	POS string `json:"pos"`
}

func (t *token) EntryType() string { return typeToken }

func (t *token) Eq(other types.Entry) bool {
	o, ok := other.(*token)
	return ok && o.Span == t.Span && o.POS == t.POS
}

func newToken(begin, end int, pos string) *token {
	return &token{Annotation: types.Annotation{Span: types.Span{Begin: begin, End: end}}, POS: pos}
}

func init() {
	types.RegisterEntryType(typeToken, func() types.Entry { return &token{} })
}

func newTestPack(opts ...Option) *Pack {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(append([]Option{WithScope("doc"), WithLogger(quiet)}, opts...)...)
}

// mustAdd adds e and fails the test on error.
func mustAdd(t *testing.T, p *Pack, e types.Entry) types.Entry {
	t.Helper()
	got, err := p.AddEntry(e)
	require.NoError(t, err)
	return got
}

// withTID presets the tid of an entry.
func withTID[E types.Entry](e E, tid string) E {
	e.Header().ID = tid
	return e
}
