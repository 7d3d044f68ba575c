package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/joelklabo/rcd/internal/cooldown"
	"github.com/joelklabo/rcd/internal/store"
)

func notifyHelp() string {
	lines := []string{
		"Manage your notification settings. Here you can specify which types of",
		"epic rpg commands you would like to receive reminders for. For example, you can",
		"enable or disable showing a reminder for when `rpg hunt` should be available. All reminders",
		"are enabled by default. Example usage:",
		"    • `rcd notify hunt on` Will turn on cd notifications for `rpg hunt`.",
		"    • `rcd daily on` Will turn on cd notifications for `rpg daily`.",
		"    • `rcd n hunt off` Will turn off notifications for `rpg hunt`",
		"    • `rcd n weekly on` Will turn on notifications for `rpg weekly`",
		"    • `rcd n all off` Will turn off all notifications (but `profile.notify == True`)",
		"",
		"Command Types:",
		"    • `all`",
	}
	for _, t := range cooldown.All() {
		line := fmt.Sprintf("    • `%s`", t)
		if t == cooldown.Work {
			line += " (chop, mine, fish, etc.)"
		}
		lines = append(lines, line)
	}
	return usage(lines...)
}

// notifyHandler toggles reminders per cooldown type. "<type> on|off" is
// accepted as an implicit "notify <type> on|off".
type notifyHandler struct {
	store Store
}

func (notifyHandler) Name() string { return "notify" }

func (notifyHandler) Help() string { return notifyHelp() }

func (h notifyHandler) Handle(_ context.Context, req *Request) Outcome {
	tokens := req.Tokens
	if (isTypeName(tokens[0]) || tokens[0] == "all") && isToggle(tokens[len(tokens)-1]) {
		tokens = append([]string{"notify"}, tokens...)
		for _, tok := range tokens[1 : len(tokens)-1] {
			if !isTypeName(tok) && tok != "all" {
				return Fail(ErrUnrecognized)
			}
		}
	}
	if (tokens[0] != "notify" && tokens[0] != "n") || len(tokens) == 2 {
		return Pass()
	}
	if req.Help || len(tokens) == 1 {
		return Reply(Help(h.Help()))
	}
	if len(tokens) != 3 || !isToggle(tokens[2]) {
		return Fail(ErrUnrecognized)
	}
	if out, ok := requireProfile(req); !ok {
		return out
	}

	name, toggle := tokens[1], tokens[2]
	on := toggle == "on"
	var types []cooldown.Type
	if name == "all" {
		types = cooldown.All()
	} else {
		t, ok := cooldown.ParseType(name)
		if !ok {
			return Fail(ErrUnrecognized)
		}
		types = []cooldown.Type{t}
		name = t.String()
	}

	p, err := h.store.UpdateProfile(req.Profile.UID, func(p *store.Profile) {
		if req.AuthorName != "" {
			p.Nickname = req.AuthorName
		}
		for _, t := range types {
			p.SetNotifies(t, on)
		}
	})
	if err != nil {
		return Fail(fmt.Errorf("notify %s: %w", name, err))
	}
	*req.Profile = p

	if !p.Notify {
		return Reply(Normal(strings.Join([]string{
			fmt.Sprintf("Notifications for `%s` are now %s for **%s**", name, toggle, req.AuthorName),
			"but you will need to turn on notifications before you can receive any.",
			"Try `rcd on` to start receiving notifications.",
		}, " ")))
	}
	return Reply(Success(fmt.Sprintf("Notifications for **%s** are now **%s** for **%s**.", name, toggle, req.AuthorName)))
}
