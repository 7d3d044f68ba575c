package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joelklabo/rcd/internal/cooldown"
)

var whocanHelp = usage(
	"Determine who in your server can use a particular command. Example:",
	"  • `rcd whocan dungeon`",
	"  • `rcd w dungeon`",
)

// whocanHandler lists the players of the server who can run a game command now.
type whocanHandler struct {
	store Store
}

func (whocanHandler) Name() string { return "whocan" }

func (whocanHandler) Help() string { return whocanHelp }

func (h whocanHandler) Handle(_ context.Context, req *Request) Outcome {
	if req.Tokens[0] != "whocan" && req.Tokens[0] != "w" {
		return Pass()
	}
	if req.Help || len(req.Tokens) == 1 {
		return Reply(Help(h.Help()))
	}
	if out, ok := requireProfile(req); !ok {
		return out
	}

	rpgCommand := strings.Join(req.Tokens[1:], " ")
	t, ok := cooldown.FromTokens(req.Tokens[1:])
	if !ok {
		return Fail(&UserError{
			Title: fmt.Sprintf("Invalid Command Type `%s`", rpgCommand),
			Message: "`rcd whocan` should work with any group command that you can use with EPIC RPG. " +
				"If you think this error is a mistake, let me know.",
		})
	}

	profiles, err := h.store.Available(req.ServerID, req.Profile.UID, t, req.Now)
	if err != nil {
		return Fail(fmt.Errorf("whocan %s: %w", t, err))
	}
	if len(profiles) == 0 {
		return Reply(Normal("Sorry, no one can do that right now."))
	}

	ats := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ats = append(ats, "<@"+p.UID+">")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "All of these players can `%s`: \n\n", rpgCommand)
	b.WriteString(strings.Join(ats, "\n\t"))
	fmt.Fprintf(&b, "\n\nExample: \n\n```rpg %s %s\n\n```", rpgCommand, strings.Join(ats, " "))
	return Reply(Success(b.String()).WithTitle(fmt.Sprintf("They can **%s**", cases.Title(language.English).String(rpgCommand))))
}
