package commands

import (
	"strings"
)

// DefaultMaxChars bounds how much of a message is tokenized.
const DefaultMaxChars = 250

// Command represents a parsed chat message addressed to a known prefix.
type Command struct {
	Prefix string   // matched prefix, lower-cased; empty if none matched
	Tokens []string // lower-cased tokens after the prefix
	Raw    []string // case-preserved tokens after the prefix, aligned with Tokens
	Text   string   // original message, truncated to the parse limit
}

// Tokenize splits text on whitespace, lower-casing unless preserveCase is set.
func Tokenize(text string, preserveCase bool) []string {
	fields := strings.Fields(text)
	if preserveCase {
		return fields
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.ToLower(f)
	}
	return out
}

// Parse inspects a chat message and returns the command it carries if its first
// word is one of prefixes (case-insensitive). Only the first maxChars are read;
// a non-positive maxChars uses DefaultMaxChars.
//
//	"rcd cd hunt"  -> Prefix "rcd", Tokens [cd hunt]
//	"RPG hunt"     -> Prefix "rpg", Tokens [hunt]
//	"hello there"  -> ok == false
func Parse(msg string, maxChars int, prefixes ...string) (Command, bool) {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	text := truncate(msg, maxChars)
	raw := Tokenize(text, true)
	if len(raw) == 0 {
		return Command{}, false
	}
	first := strings.ToLower(raw[0])
	for _, p := range prefixes {
		if first != strings.ToLower(p) {
			continue
		}
		return Command{
			Prefix: first,
			Tokens: Tokenize(text, false)[1:],
			Raw:    raw[1:],
			Text:   text,
		}, true
	}
	return Command{}, false
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
