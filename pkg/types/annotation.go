package types

import "fmt"

// Span is a half-open range of text offsets.
type Span struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// Len returns the number of characters covered by the span.
func (s Span) Len() int { return s.End - s.Begin }

// Spanned is implemented by entries that carry a text span.
type Spanned interface {
	TextSpan() Span
}

// Annotation is an entry bearing a text span.
type Annotation struct {
	EntryHeader
	Span Span `json:"span"`
}

// NewAnnotation returns an annotation over [begin, end).
func NewAnnotation(begin, end int) *Annotation {
	return &Annotation{Span: Span{Begin: begin, End: end}}
}

// EntryType returns TypeAnnotation.
func (a *Annotation) EntryType() string { return TypeAnnotation }

// TextSpan returns the annotation span.
func (a *Annotation) TextSpan() Span { return a.Span }

// Eq reports whether other covers the same span.
func (a *Annotation) Eq(other Entry) bool {
	o, ok := other.(Spanned)
	if !ok {
		return false
	}
	return o.TextSpan() == a.Span
}

// Validate returns ErrInvalidEntry when the offsets are negative or reversed.
func (a *Annotation) Validate() error {
	if a.Span.Begin < 0 || a.Span.Begin > a.Span.End {
		return fmt.Errorf("span [%d, %d]: %w", a.Span.Begin, a.Span.End, ErrInvalidEntry)
	}
	return nil
}
