package cooldown

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	onCooldownRe = regexp.MustCompile(":clock4: ~-~ \\*\\*`([^`]*)`\\*\\*")
	readyRe      = regexp.MustCompile(":white_check_mark: ~-~ \\*\\*`([^`]*)`\\*\\*")
	durationRe   = regexp.MustCompile(`\b(?:(\d+)d)?\s*(?:(\d+)h)?\s*(?:(\d+)m)?\s*(?:(\d+)s)?`)
)

// Field is one name/value pair of a game status read-out.
type Field struct {
	Name  string
	Value string
}

func (f Field) text() string {
	if f.Name == "" {
		return f.Value
	}
	return f.Name + "\n" + f.Value
}

// Update sets the expiry of one cooldown row.
type Update struct {
	ProfileID string
	Type      Type
	After     time.Time
}

// Eviction clears one cooldown row.
type Eviction struct {
	ProfileID string
	Type      Type
}

// cue pairs a confirmation phrase of the game with the type it reports on.
type cue struct {
	phrase string
	typ    Type
}

// Vote replies carry no cue.
var cues = []cue{
	{"have claimed your daily", Daily},
	{"have claimed your weekly", Weekly},
	{"have already bought a lootbox", Lootbox},
	{"have already looked around", Hunt},
	{"have already been in an adventure", Adventure},
	{"have already claimed a quest", Quest},
	{"have trained already", Training},
	{"have been in a duel recently", Duel},
	{"have already got some resources", Work},
	{"have used this command recently", Horse},
	{"have started an arena recently", Arena},
	{"have been in a fight with a boss", Dungeon},
	{"guild has already raided", Guild},
}

// ParseDuration reads the first relative duration ("1d 2h 3m 4s", any part
// optional) in s. Values are taken as written, without range checks.
func ParseDuration(s string) (time.Duration, bool) {
	ds := findDurations(s)
	if len(ds) == 0 {
		return 0, false
	}
	return ds[0], true
}

func findDurations(s string) []time.Duration {
	var out []time.Duration
	for _, m := range durationRe.FindAllStringSubmatch(s, -1) {
		if m[1] == "" && m[2] == "" && m[3] == "" && m[4] == "" {
			continue
		}
		out = append(out, toDuration(component(m[1]), component(m[2]), component(m[3]), component(m[4])))
	}
	return out
}

// maxSeconds is the largest whole-second count a time.Duration holds.
const maxSeconds = math.MaxInt64 / int64(time.Second)

// toDuration sums the parts, saturating at the largest Duration.
func toDuration(days, hours, minutes, seconds int64) time.Duration {
	var total int64
	for _, part := range []struct{ n, unit int64 }{{days, 86400}, {hours, 3600}, {minutes, 60}, {seconds, 1}} {
		if part.n > (maxSeconds-total)/part.unit {
			return time.Duration(math.MaxInt64)
		}
		total += part.n * part.unit
	}
	return time.Duration(total) * time.Second
}

// component parses a run of digits; values past int64 saturate.
func component(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return n
}

func labels(re *regexp.Regexp, s string) []string {
	matches := re.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// FromFields extracts cooldown updates and evictions from a status read-out
// observed at now. Durations are paired with on-cooldown labels in order of
// appearance within a field. Each type is matched at most once per call.
func FromFields(profileID string, fields []Field, now time.Time) ([]Update, []Eviction) {
	var (
		updates   []Update
		evictions []Eviction
	)
	candidates := make(map[Type]bool, len(all))
	for _, t := range all {
		candidates[t] = true
	}
	for _, f := range fields {
		text := f.text()
		durations := findDurations(text)
		for i, label := range labels(onCooldownRe, text) {
			if i >= len(durations) {
				break
			}
			t, ok := classify(label, candidates)
			if !ok {
				continue
			}
			delete(candidates, t)
			updates = append(updates, Update{ProfileID: profileID, Type: t, After: now.Add(durations[i])})
		}
		for _, label := range labels(readyRe, text) {
			t, ok := classify(label, candidates)
			if !ok {
				continue
			}
			delete(candidates, t)
			evictions = append(evictions, Eviction{ProfileID: profileID, Type: t})
		}
	}
	return updates, evictions
}

// FromResponse builds the update for a reply of known type t. Replies without a
// duration produce nothing.
func FromResponse(profileID, text string, t Type, now time.Time) (Update, bool) {
	d, ok := ParseDuration(text)
	if !ok || !t.Valid() {
		return Update{}, false
	}
	return Update{ProfileID: profileID, Type: t, After: now.Add(d)}, true
}

// ResponseCue finds the type a "you have already ..." reply refers to.
func ResponseCue(text string) (Type, bool) {
	lower := strings.ToLower(text)
	for _, c := range cues {
		if strings.Contains(lower, c.phrase) {
			return c.typ, true
		}
	}
	return "", false
}

// FromConfirmation extracts the update carried by a single "already done" reply.
func FromConfirmation(profileID, text string, now time.Time) (Update, bool) {
	t, ok := ResponseCue(text)
	if !ok {
		return Update{}, false
	}
	return FromResponse(profileID, text, t, now)
}
