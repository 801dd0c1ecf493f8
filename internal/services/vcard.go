package services

import (
	"fmt"
	"strings"
	"time"

	"outreachpass/internal/domain"
)

// BuildVCard renders a card as a vCard 3.0 document, the format with the
// widest importer support across iOS and Android contact apps.
func BuildVCard(card *domain.Card) string {
	var b strings.Builder
	writeLine := func(line string) {
		b.WriteString(line)
		b.WriteString("\r\n")
	}

	writeLine("BEGIN:VCARD")
	writeLine("VERSION:3.0")
	writeLine("FN:" + escapeVCard(card.DisplayName))
	writeLine(fmt.Sprintf("N:%s;;;;", escapeVCard(card.DisplayName)))
	if card.Email != "" {
		writeLine("EMAIL;TYPE=INTERNET:" + escapeVCard(card.Email))
	}
	if card.Phone != "" {
		writeLine("TEL;TYPE=CELL:" + escapeVCard(card.Phone))
	}
	if card.OrgName != "" {
		writeLine("ORG:" + escapeVCard(card.OrgName))
	}
	if card.Title != "" {
		writeLine("TITLE:" + escapeVCard(card.Title))
	}
	if url, ok := card.Links["linkedin"]; ok && url != "" {
		writeLine("URL:" + escapeVCard(url))
	}
	rev := card.UpdatedAt
	if rev.IsZero() {
		rev = time.Now()
	}
	writeLine("REV:" + rev.UTC().Format("20060102T150405Z"))
	writeLine("END:VCARD")
	return b.String()
}

// escapeVCard escapes the characters RFC 2426 requires escaping in text
// values.
func escapeVCard(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
		"\r", "",
	)
	return r.Replace(s)
}
