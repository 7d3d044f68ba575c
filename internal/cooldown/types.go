package cooldown

import (
	"strings"
	"time"
)

// Type identifies one category of timed game action.
type Type string

const (
	Daily     Type = "daily"
	Weekly    Type = "weekly"
	Lootbox   Type = "lootbox"
	Vote      Type = "vote"
	Hunt      Type = "hunt"
	Adventure Type = "adventure"
	Quest     Type = "quest"
	Training  Type = "training"
	Duel      Type = "duel"
	Work      Type = "work"
	Horse     Type = "horse"
	Arena     Type = "arena"
	Dungeon   Type = "dungeon"
	Guild     Type = "guild"
)

// workAlias is how the game names the work category in its own read-outs.
const workAlias = "mine"

// info holds the fixed per-type data.
type info struct {
	duration time.Duration
	trigger  string
	// terms are extra lower-case substrings that identify the type in game text.
	terms []string
}

// all lists every type in display order.
var all = []Type{
	Daily, Weekly, Lootbox, Vote, Hunt, Adventure, Quest,
	Training, Duel, Work, Horse, Arena, Dungeon, Guild,
}

var table = map[Type]info{
	Daily:     {duration: 24 * time.Hour, trigger: "Time for your daily! :sun_with_face:"},
	Weekly:    {duration: 7 * 24 * time.Hour, trigger: "Looks like it's that time of the week... :newspaper:"},
	Lootbox:   {duration: 3 * time.Hour, trigger: "Lootbox! :moneybag:"},
	Vote:      {duration: 12 * time.Hour, trigger: "You can vote again. :ballot_box:"},
	Hunt:      {duration: 60 * time.Second, trigger: "is on the hunt! :crossed_swords:"},
	Adventure: {duration: 60 * time.Minute, trigger: "Let's go on an adventure! :woman_running:"},
	Quest:     {duration: 6 * time.Hour, trigger: "The townspeople need our help!"},
	Training:  {duration: 15 * time.Minute, trigger: "want to get buff? :man_lifting_weights:"},
	Duel:      {duration: 2 * time.Hour, trigger: "It's time to d-d-d-d-duel! :crossed_swords:"},
	Work:      {duration: 5 * time.Minute, trigger: "Get back to work. :pick:", terms: []string{workAlias}},
	Horse:     {duration: 24 * time.Hour, trigger: "Pie-O-My! :horse_racing:"},
	Arena:     {duration: 24 * time.Hour, trigger: "Heeyyyy lets go hurt each other. :circus_tent:"},
	Dungeon:   {duration: 12 * time.Hour, trigger: "can you reach the next area? :exclamation:"},
	Guild:     {duration: 2 * time.Hour, trigger: "Hey, those people are different! Get 'em! :shield:"},
}

// All returns every type in display order. The slice is a copy.
func All() []Type {
	out := make([]Type, len(all))
	copy(out, all)
	return out
}

// String returns the canonical name.
func (t Type) String() string { return string(t) }

// Valid reports whether t is one of the fixed types.
func (t Type) Valid() bool {
	_, ok := table[t]
	return ok
}

// Duration is the reuse delay of the action.
func (t Type) Duration() time.Duration { return table[t].duration }

// Trigger is the reminder phrase sent when the cooldown is over.
func (t Type) Trigger() string { return table[t].trigger }

// ExpiresAt returns the expiry of an action of this type performed at now.
func (t Type) ExpiresAt(now time.Time) time.Time { return now.Add(t.Duration()) }

// ParseType maps a user-facing name onto its canonical type. "mine" is accepted for work.
func ParseType(name string) (Type, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == workAlias {
		return Work, true
	}
	t := Type(name)
	return t, t.Valid()
}

// classify finds the first candidate type named inside label. Candidates are
// checked in display order.
func classify(label string, candidates map[Type]bool) (Type, bool) {
	lower := strings.ToLower(label)
	for _, t := range all {
		if !candidates[t] {
			continue
		}
		if strings.Contains(lower, string(t)) {
			return t, true
		}
		for _, term := range table[t].terms {
			if strings.Contains(lower, term) {
				return t, true
			}
		}
	}
	return "", false
}
