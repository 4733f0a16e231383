// Package names holds the canonical name normalization used for every
// spreadsheet/Discord match in the system.
package names

import (
	"regexp"
	"strings"

	"github.com/forPelevin/gomoji"

	"clan-tracker/internal/domain"
)

var (
	// Discord custom emoji render as <:name:id> / <a:name:id> in raw text.
	customEmojiRegex  = regexp.MustCompile(`<a?:\w+:\d+>`)
	parentheticalRe   = regexp.MustCompile(`\(.*?\)`)
	specialCharsTable = strings.NewReplacer(
		".", "", ",", "", ":", "", ";", "", "!", "", "?", "",
		`"`, "", "'", "", "`", "", "~", "", "@", "", "#", "",
		"$", "", "%", "", "^", "", "&", "", "*", "", "(", "",
		")", "", "[", "", "]", "", "{", "", "}", "", "<", "",
		">", "", "|", "", `\`, "", "/", "",
	)
)

// Normalize strips emoji and punctuation from a name, trims it and lowercases
// it. Idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(name string) string {
	name = customEmojiRegex.ReplaceAllString(name, "")
	name = gomoji.RemoveEmojis(name)
	name = specialCharsTable.Replace(name)
	return strings.ToLower(strings.TrimSpace(name))
}

// ParseAlts splits a comma-joined alt cell into normalized names, dropping
// anything that trims or normalizes to empty.
func ParseAlts(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var alts []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if normalized := Normalize(part); normalized != "" {
			alts = append(alts, normalized)
		}
	}
	return alts
}

// ParseDiscordName parses a "rsn | alt1 | alt2" display name. A trailing
// parenthetical nickname like "(Owner)" is stripped before splitting. The
// first surviving segment becomes the RSN, which may normalize to empty.
func ParseDiscordName(displayName string) domain.ParsedDiscordName {
	withoutNickname := parentheticalRe.ReplaceAllString(displayName, "")

	var segments []string
	for _, part := range strings.Split(withoutNickname, "|") {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}

	parsed := domain.ParsedDiscordName{}
	if len(segments) > 0 {
		parsed.RSN = Normalize(segments[0])
	}
	for _, segment := range segments[1:] {
		if normalized := Normalize(segment); normalized != "" {
			parsed.Alts = append(parsed.Alts, normalized)
		}
	}
	return parsed
}

// RowNames returns every normalized name a spreadsheet row claims, RSN first.
func RowNames(row domain.SpreadsheetRow) []string {
	var all []string
	if rsn := Normalize(row.RSN); rsn != "" {
		all = append(all, rsn)
	}
	return append(all, ParseAlts(row.Alts)...)
}
