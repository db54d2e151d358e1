package model

import (
	"regexp"
	"strings"
)

// NoteMarker brackets the outcome note written into a line description.
const NoteMarker = "¡"

var notePattern = regexp.MustCompile(`^` + NoteMarker + ` .* ` + NoteMarker + ` `)

// MatchInfo is the outcome of matching one statement line.
type MatchInfo struct {
	InvoiceID int64
	PaymentID int64
	PartnerID int64
	Note      string
}

// IsEmpty reports whether nothing was found and no note was produced.
func (m MatchInfo) IsEmpty() bool {
	return m.InvoiceID == 0 && m.PaymentID == 0 && m.PartnerID == 0 && m.Note == ""
}

// WithNote returns description with any previous outcome note replaced by note.
func WithNote(description, note string) string {
	description = notePattern.ReplaceAllString(description, "")
	var b strings.Builder
	b.WriteString(NoteMarker)
	b.WriteString(" ")
	b.WriteString(note)
	b.WriteString(" ")
	b.WriteString(NoteMarker)
	b.WriteString(" ")
	b.WriteString(description)
	return b.String()
}

// Apply copies the found IDs and the note into line.
func (m MatchInfo) Apply(line *BankStatementLine) {
	if m.InvoiceID > 0 {
		line.InvoiceID = m.InvoiceID
	}
	if m.PaymentID > 0 {
		line.PaymentID = m.PaymentID
	}
	if m.PartnerID > 0 {
		line.PartnerID = m.PartnerID
	}
	if m.Note != "" {
		line.Description = WithNote(line.Description, m.Note)
	}
}
