package cooldown

import (
	"strings"
	"time"
)

// Resolver decides the cooldown type of a game command from its trailing arguments.
// Commands given without arguments see an empty string.
type Resolver func(args string) (Type, bool)

func always(t Type) Resolver {
	return func(string) (Type, bool) { return t, true }
}

// when resolves to t only if pred accepts the arguments.
func when(t Type, pred func(args string) bool) Resolver {
	return func(args string) (Type, bool) {
		if pred(args) {
			return t, true
		}
		return "", false
	}
}

func contains(sub string) func(string) bool {
	return func(args string) bool { return strings.Contains(args, sub) }
}

func equalsAny(opts ...string) func(string) bool {
	return func(args string) bool {
		for _, o := range opts {
			if args == o {
				return true
			}
		}
		return false
	}
}

// commands maps game sub-command names to their resolvers.
var commands = map[string]Resolver{
	"daily":            always(Daily),
	"weekly":           always(Weekly),
	"buy":              when(Lootbox, contains("lootbox")),
	"vote":             always(Vote),
	"hunt":             always(Hunt),
	"adv":              always(Adventure),
	"adventure":        always(Adventure),
	"quest":            always(Quest),
	"epic":             when(Quest, contains("quest")),
	"tr":               always(Training),
	"training":         always(Training),
	"ultraining":       always(Training),
	"duel":             always(Duel),
	"mine":             always(Work),
	"pickaxe":          always(Work),
	"drill":            always(Work),
	"dynamite":         always(Work),
	"pickup":           always(Work),
	"ladder":           always(Work),
	"tractor":          always(Work),
	"greenhouse":       always(Work),
	"chop":             always(Work),
	"axe":              always(Work),
	"bowsaw":           always(Work),
	"chainsaw":         always(Work),
	"fish":             always(Work),
	"net":              always(Work),
	"boat":             always(Work),
	"bigboat":          always(Work),
	"horse":            when(Horse, equalsAny("training", "breeding", "race")),
	"arena":            always(Arena),
	"big":              when(Arena, contains("arena")),
	"dungeon":          always(Dungeon),
	"miniboss":         always(Dungeon),
	"not so mini boss": when(Dungeon, contains("join")),
	"guild":            when(Guild, contains("raid")),
}

// maxCommandWords is the word count of the longest command name.
const maxCommandWords = 4

// Known reports whether name is a game command in the resolution table.
func Known(name string) bool {
	_, ok := commands[strings.ToLower(name)]
	return ok
}

// Resolve maps a game command and its trailing arguments onto a cooldown type.
func Resolve(name, args string) (Type, bool) {
	r, ok := commands[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return r(strings.ToLower(args))
}

// FromTokens resolves a tokenized game command. Multi-word command names are
// matched by the longest leading run of tokens.
func FromTokens(tokens []string) (Type, bool) {
	n := maxCommandWords
	if len(tokens) < n {
		n = len(tokens)
	}
	for ; n > 0; n-- {
		name := strings.Join(tokens[:n], " ")
		if !Known(name) {
			continue
		}
		return Resolve(name, strings.Join(tokens[n:], " "))
	}
	return "", false
}

// FromCommand computes the update produced by observing a game command at now.
func FromCommand(profileID string, tokens []string, now time.Time) (Update, bool) {
	t, ok := FromTokens(tokens)
	if !ok {
		return Update{}, false
	}
	return Update{ProfileID: profileID, Type: t, After: t.ExpiresAt(now)}, true
}
