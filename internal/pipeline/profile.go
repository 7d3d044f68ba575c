package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/joelklabo/rcd/internal/cooldown"
)

var profileHelp = usage(
	"When called without any arguments, e.g. `rcd profile` this will display",
	"profile-related information. Otherwise, it will treat your input as a profile related sub-command.",
	"",
	"Available Commands:",
	"    • `rcd profile|p`",
	"    • `rcd profile|p timezone|tz <timezone>`",
	"    • `rcd profile|p on|off`",
	"    • `rcd profile|p [notify|n] <cooldown_type> on|off`",
	"Examples:",
	"    • `rcd profile` Displays your profile information",
	"    • `rcd p tz <timezone>` Sets your timezone to the provided timezone.",
	"    • `rcd p on` Enables notifications for your profile.",
	"    • `rcd p notify hunt on` Turns on hunt notifications for your profile.",
	"    • `rcd p hunt on` Turns on hunt notifications for your profile.",
)

var profileSubcommands = map[string]bool{
	"timezone": true, "tz": true,
	"notify": true, "n": true,
	"on": true, "off": true,
}

// profileHandler shows the author's profile and namespaces the profile
// sub-commands under "profile".
type profileHandler struct{}

func (profileHandler) Name() string { return "profile" }

func (profileHandler) Help() string { return profileHelp }

func (h profileHandler) Handle(_ context.Context, req *Request) Outcome {
	if req.Tokens[0] != "profile" && req.Tokens[0] != "p" {
		return Pass()
	}
	if len(req.Tokens) > 1 {
		if next := req.Tokens[1]; profileSubcommands[next] || isTypeName(next) {
			return Rewrite(req.Tokens[1:])
		}
		return Fail(ErrUnrecognized)
	}
	if req.Help {
		return Reply(Help(h.Help()))
	}
	if out, ok := requireProfile(req); !ok {
		return out
	}

	p := req.Profile
	var b strings.Builder
	row := func(key, value string) { fmt.Fprintf(&b, "`%-12s` =>   %s\n", key, value) }
	row("nickname", p.Nickname)
	row("timezone", p.Timezone)
	row("notify", check(p.Notify))
	for _, t := range cooldown.All() {
		row(t.String(), check(p.Notifies(t)))
	}
	return Reply(Normal(b.String()))
}

func check(on bool) string {
	if on {
		return ":ballot_box_with_check:"
	}
	return ":x:"
}
