package cooldown

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"
)

var observed = time.Date(2020, 11, 26, 8, 0, 0, 0, time.UTC)

func TestTablesAreTotal(t *testing.T) {
	if len(All()) != 14 {
		t.Fatalf("expected 14 types, got %d", len(All()))
	}
	for _, typ := range All() {
		if typ.Duration() <= 0 {
			t.Fatalf("%s has no duration", typ)
		}
		if typ.Trigger() == "" {
			t.Fatalf("%s has no trigger phrase", typ)
		}
	}
}

func TestParseTypeNormalisesMine(t *testing.T) {
	if got, ok := ParseType("mine"); !ok || got != Work {
		t.Fatalf("mine should map to work, got %q %v", got, ok)
	}
	if got, ok := ParseType("Hunt"); !ok || got != Hunt {
		t.Fatalf("expected hunt, got %q", got)
	}
	if _, ok := ParseType("fishing"); ok {
		t.Fatalf("fishing is not a type")
	}
}

func TestResolveWithoutArguments(t *testing.T) {
	cases := []struct {
		name string
		want Type
		ok   bool
	}{
		{"daily", Daily, true},
		{"weekly", Weekly, true},
		{"vote", Vote, true},
		{"hunt", Hunt, true},
		{"adventure", Adventure, true},
		{"quest", Quest, true},
		{"training", Training, true},
		{"duel", Duel, true},
		{"mine", Work, true},
		{"arena", Arena, true},
		{"dungeon", Dungeon, true},
		{"buy", "", false},
		{"epic", "", false},
		{"horse", "", false},
		{"big", "", false},
		{"guild", "", false},
		{"unknown", "", false},
	}
	for _, tc := range cases {
		got, ok := Resolve(tc.name, "")
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%q: expected %q/%v got %q/%v", tc.name, tc.want, tc.ok, got, ok)
		}
	}
}

func TestResolveDisambiguates(t *testing.T) {
	cases := []struct {
		name, args string
		want       Type
		ok         bool
	}{
		{"buy", "epic lootbox", Lootbox, true},
		{"buy", "wooden sword", "", false},
		{"epic", "quest", Quest, true},
		{"horse", "breeding", Horse, true},
		{"horse", "race", Horse, true},
		{"horse", "race now", "", false},
		{"big", "arena", Arena, true},
		{"guild", "raid", Guild, true},
		{"guild", "upgrade", "", false},
		{"not so mini boss", "join", Dungeon, true},
	}
	for _, tc := range cases {
		got, ok := Resolve(tc.name, tc.args)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%q %q: expected %q/%v got %q/%v", tc.name, tc.args, tc.want, tc.ok, got, ok)
		}
	}
}

func TestFromTokensMatchesMultiWordCommands(t *testing.T) {
	got, ok := FromTokens([]string{"not", "so", "mini", "boss", "join"})
	if !ok || got != Dungeon {
		t.Fatalf("expected dungeon, got %q %v", got, ok)
	}
	if _, ok := FromTokens([]string{"not", "so", "mini", "boss"}); ok {
		t.Fatalf("boss without join must not resolve")
	}
	if _, ok := FromTokens(nil); ok {
		t.Fatalf("empty tokens must not resolve")
	}
}

func TestFromCommandUsesFixedDuration(t *testing.T) {
	u, ok := FromCommand("p1", []string{"adv"}, observed)
	if !ok {
		t.Fatalf("adv should resolve")
	}
	want := Update{ProfileID: "p1", Type: Adventure, After: observed.Add(time.Hour)}
	if u != want {
		t.Fatalf("expected %+v got %+v", want, u)
	}
}

func TestParseDurationComponents(t *testing.T) {
	parts := []struct {
		text string
		secs int64
	}{
		{"1d", 86400},
		{"2h", 7200},
		{"3m", 180},
		{"4s", 4},
	}
	// every subset of the four components, in order
	for mask := 1; mask < 16; mask++ {
		var words []string
		var want int64
		for i, p := range parts {
			if mask&(1<<i) != 0 {
				words = append(words, p.text)
				want += p.secs
			}
		}
		in := strings.Join(words, " ")
		got, ok := ParseDuration(in)
		if !ok {
			t.Fatalf("%q did not parse", in)
		}
		if got != time.Duration(want)*time.Second {
			t.Fatalf("%q: expected %ds got %s", in, want, got)
		}
	}
}

func TestParseDurationDoesNotClamp(t *testing.T) {
	got, ok := ParseDuration("wait **99h 75m**")
	if !ok || got != 99*time.Hour+75*time.Minute {
		t.Fatalf("unexpected %s %v", got, ok)
	}
	if _, ok := ParseDuration("no numbers here"); ok {
		t.Fatalf("expected no duration")
	}
}

func TestParseDurationSaturates(t *testing.T) {
	for _, in := range []string{"5449991d", "99999999999999999999s", "106751d 23h 47m 17s"} {
		got, ok := ParseDuration(in)
		if !ok {
			t.Fatalf("%q did not parse", in)
		}
		if got != time.Duration(math.MaxInt64) {
			t.Fatalf("%q: expected saturation, got %s", in, got)
		}
	}
	got, _ := ParseDuration("106751d 23h 47m 16s")
	if got != time.Duration(math.MaxInt64/int64(time.Second))*time.Second {
		t.Fatalf("largest exact duration changed: %s", got)
	}
	u, ok := FromResponse("100", "wait **5449991d**", Daily, time.Now())
	if !ok || !u.After.After(time.Now()) {
		t.Fatalf("huge wait must land in the future: %+v", u)
	}
}

func statusFields() []Field {
	return []Field{
		{
			Name: ":gift: Rewards",
			Value: ":clock4: ~-~ **`Daily`** (**5h 2m 3s**)\n" +
				":white_check_mark: ~-~ **`Weekly`**\n" +
				":clock4: ~-~ **`Lootbox`** (**1h 30s**)",
		},
		{
			Name: ":sparkles: Experience",
			Value: ":clock4: ~-~ **`Hunt`** (**1h 30m**)\n" +
				":white_check_mark: ~-~ **`Adventure`**\n" +
				":clock4: ~-~ **`Chop | Fish | Pickup | Mine`** (**4m 10s**)",
		},
	}
}

func TestFromFields(t *testing.T) {
	updates, evictions := FromFields("p1", statusFields(), observed)
	wantUpdates := []Update{
		{ProfileID: "p1", Type: Daily, After: observed.Add(5*time.Hour + 2*time.Minute + 3*time.Second)},
		{ProfileID: "p1", Type: Lootbox, After: observed.Add(time.Hour + 30*time.Second)},
		{ProfileID: "p1", Type: Hunt, After: observed.Add(5400 * time.Second)},
		{ProfileID: "p1", Type: Work, After: observed.Add(4*time.Minute + 10*time.Second)},
	}
	if !reflect.DeepEqual(updates, wantUpdates) {
		t.Fatalf("updates mismatch:\n got %+v\nwant %+v", updates, wantUpdates)
	}
	wantEvictions := []Eviction{{ProfileID: "p1", Type: Weekly}, {ProfileID: "p1", Type: Adventure}}
	if !reflect.DeepEqual(evictions, wantEvictions) {
		t.Fatalf("evictions mismatch: %+v", evictions)
	}
}

func TestFromFieldsIsPure(t *testing.T) {
	u1, e1 := FromFields("p1", statusFields(), observed)
	u2, e2 := FromFields("p1", statusFields(), observed)
	if !reflect.DeepEqual(u1, u2) || !reflect.DeepEqual(e1, e2) {
		t.Fatalf("extraction is not deterministic")
	}
}

func TestFromFieldsMatchesTypeOnce(t *testing.T) {
	fields := []Field{
		{Value: ":clock4: ~-~ **`Hunt`** (**10s**)"},
		{Value: ":clock4: ~-~ **`Hunt`** (**20s**)\n:white_check_mark: ~-~ **`Hunt`**"},
	}
	updates, evictions := FromFields("p1", fields, observed)
	if len(updates) != 1 || updates[0].After != observed.Add(10*time.Second) {
		t.Fatalf("expected a single hunt update, got %+v", updates)
	}
	if len(evictions) != 0 {
		t.Fatalf("expected no evictions, got %+v", evictions)
	}
}

func TestFromFieldsSkipsLabelsWithoutDuration(t *testing.T) {
	fields := []Field{{Value: ":clock4: ~-~ **`Duel`**"}}
	updates, _ := FromFields("p1", fields, observed)
	if len(updates) != 0 {
		t.Fatalf("expected no updates, got %+v", updates)
	}
}

func TestFromConfirmation(t *testing.T) {
	u, ok := FromConfirmation("p1", "You have already looked around, wait at least **0h 0m 42s**", observed)
	if !ok {
		t.Fatalf("expected an update")
	}
	if u.Type != Hunt || u.After != observed.Add(42*time.Second) {
		t.Fatalf("unexpected update %+v", u)
	}
	if _, ok := FromConfirmation("p1", "You have already looked around", observed); ok {
		t.Fatalf("no duration must yield no event")
	}
	if _, ok := FromConfirmation("p1", "Something else 1h", observed); ok {
		t.Fatalf("unknown cue must yield no event")
	}
}
