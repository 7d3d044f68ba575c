package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/joelklabo/rcd/internal/cooldown"
	"github.com/joelklabo/rcd/internal/store"
)

var cdHelp = usage(
	"Display when your cooldowns are expected to be done.",
	"Usage:",
	"    • `rcd cd [<@user>] [<cooldown_types> [...<cooldown_types>]]`",
	"Example:",
	"    • `rcd cd`",
	"    • `rcd`",
	"    • `rcd daily weekly`",
)

var mentionRe = regexp.MustCompile(`^<@!?(\d+)>$`)

// cdHandler renders the cooldown table of the author or of a mentioned user.
type cdHandler struct {
	store Store
}

func (cdHandler) Name() string { return "cd" }

func (cdHandler) Help() string { return cdHelp }

func (h cdHandler) Handle(ctx context.Context, req *Request) Outcome {
	tokens := req.Tokens
	if isTypeName(tokens[0]) || mentionRe.MatchString(tokens[0]) {
		tokens = append([]string{"cd"}, tokens...)
	}
	if tokens[0] != "cd" {
		return Pass()
	}
	if req.Help {
		return Reply(Help(h.Help()))
	}
	if out, ok := requireProfile(req); !ok {
		return out
	}

	target := *req.Profile
	nickname := req.AuthorName
	if nickname == "" {
		nickname = target.Nickname
	}
	args := tokens[1:]
	if len(args) > 0 {
		if m := mentionRe.FindStringSubmatch(args[0]); m != nil {
			p, err := h.mentioned(ctx, req, m[1])
			if err != nil {
				return Fail(err)
			}
			target, nickname = p, p.Nickname
			args = args[1:]
		}
	}

	filter := make(map[cooldown.Type]bool, len(args))
	for _, arg := range args {
		t, ok := cooldown.ParseType(arg)
		if !ok {
			return Fail(&UserError{Message: fmt.Sprintf("`%s` is not a cooldown type.", arg)})
		}
		filter[t] = true
	}

	rows, err := h.store.Cooldowns(target.UID)
	if err != nil {
		return Fail(fmt.Errorf("cd %s: %w", target.UID, err))
	}
	body := renderCooldowns(rows, filter, req.Profile, req.Now)
	title := fmt.Sprintf("**%s's** Cooldowns (%s)", nickname, req.Profile.Timezone)
	return Reply(Normal(body).WithTitle(title))
}

// mentioned loads, or creates, the profile of a mentioned user.
func (h cdHandler) mentioned(ctx context.Context, req *Request, uid string) (store.Profile, error) {
	name := uid
	if req.Users != nil {
		if n, err := req.Users.Username(ctx, uid); err == nil && n != "" {
			name = n
		}
	}
	p, _, err := h.store.GetOrCreateProfile(store.Profile{
		UID:       uid,
		ServerID:  req.Profile.ServerID,
		ChannelID: req.ChannelID,
		Nickname:  name,
	})
	if err != nil {
		return store.Profile{}, fmt.Errorf("load mentioned profile %s: %w", uid, err)
	}
	return p, nil
}

// renderCooldowns lists every type accepted by filter, ordered by stored
// expiry with untracked types last. An empty filter accepts all types.
func renderCooldowns(rows []store.Cooldown, filter map[cooldown.Type]bool, viewer *store.Profile, now time.Time) string {
	after := make(map[cooldown.Type]time.Time, len(rows))
	for _, r := range rows {
		after[r.Type] = r.After
	}

	var types []cooldown.Type
	for _, t := range cooldown.All() {
		if len(filter) == 0 || filter[t] {
			types = append(types, t)
		}
	}
	sort.SliceStable(types, func(i, j int) bool {
		ai, iok := after[types[i]]
		aj, jok := after[types[j]]
		if iok != jok {
			return iok
		}
		return iok && ai.Before(aj)
	})

	loc := location(viewer.Timezone)
	format := viewer.TimeFormat
	if format == "" {
		format = store.DefaultTimeFormat
	}

	var b strings.Builder
	for _, t := range types {
		if at, ok := after[t]; ok && at.After(now) {
			fmt.Fprintf(&b, ":clock2: `%-12s %20s`\n", t, at.In(loc).Format(format))
			continue
		}
		fmt.Fprintf(&b, ":white_check_mark: `%-12s %20s`\n", t, "Ready!")
	}
	return b.String()
}

func location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
