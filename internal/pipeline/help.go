package pipeline

import (
	"context"
	"strings"
)

func usage(lines ...string) string { return strings.Join(lines, "\n") }

var globalHelp = usage(
	"Call `help` on an available command to see its usage. Example:",
	"`rcd help register`",
	"`rcd h register`",
	"`rcd h notify`",
	"",
	"Available Commands:",
	"    • `rcd register`",
	"    • `rcd profile|p [<profile_command>]`",
	"    • `rcd on`",
	"    • `rcd off`",
	"    • `rcd timezone|tz <timezone>`",
	"    • `rcd <command_type> on|off`",
	"    • `rcd [notify|n] <command_type> on|off`",
	"    • `rcd whocan|w <command_type>`",
	"    • `rcd cd` or `rcd`",
	"",
	"This bot attempts to determine the cooldowns of your EPIC RPG commands",
	"and will notify you when it thinks your commands are available again.",
	"Cooldowns are determined in two ways:",
	"    • The cooldown duration for an observed EPIC RPG command is added to the current time. A notification is scheduled for this time.",
	"    • The output of `rpg cd` is extracted and used to schedule notifications for all commands currently on cooldown.",
)

// helpHandler intercepts help requests and the empty command.
type helpHandler struct{}

func (helpHandler) Name() string { return "help" }

func (helpHandler) Help() string { return globalHelp }

func (h helpHandler) Handle(_ context.Context, req *Request) Outcome {
	if len(req.Tokens) == 0 {
		return Rewrite([]string{"cd"})
	}
	if req.Tokens[0] != "help" && req.Tokens[0] != "h" {
		return Pass()
	}
	if len(req.Tokens) == 1 {
		return Reply(Help(h.Help()))
	}
	return RewriteHelp(req.Tokens[1:])
}
