package pipeline

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/joelklabo/rcd/internal/store"
)

// toggleHandler flips the master notification switch of the author's profile.
type toggleHandler struct {
	store Store
	on    bool
}

func (h toggleHandler) word() string {
	if h.on {
		return "on"
	}
	return "off"
}

func (h toggleHandler) Name() string { return h.word() }

func (h toggleHandler) Help() string {
	return usage(
		fmt.Sprintf("Toggle your profile notifications **%s**. Example:", h.word()),
		fmt.Sprintf("  • `rcd %s`", h.word()),
	)
}

func (h toggleHandler) Handle(_ context.Context, req *Request) Outcome {
	if req.Tokens[0] != h.word() {
		return Pass()
	}
	if req.Help && len(req.Tokens) == 1 {
		return Reply(Help(h.Help()))
	}
	if len(req.Tokens) != 1 {
		return Fail(ErrUnrecognized)
	}
	if out, ok := requireProfile(req); !ok {
		return out
	}
	p, err := h.store.UpdateProfile(req.Profile.UID, func(p *store.Profile) { p.Notify = h.on })
	if err != nil {
		return Fail(fmt.Errorf("toggle %s: %w", h.word(), err))
	}
	*req.Profile = p
	return Reply(Success(fmt.Sprintf("Notifications are now **%s** for **%s**.", h.word(), req.AuthorName)))
}

var timezoneHelp = usage(
	"Set your timezone. Example:",
	"  • `rcd timezone <timezone>` Sets your timezone to the provided timezone.",
	"    (This only affects the time displayed in `rcd cd`; notification functionality",
	"     is not affected.)",
)

// timezoneHandler sets the zone used to display expiries. Zone names keep
// the case the user typed them in.
type timezoneHandler struct {
	store Store
}

func (timezoneHandler) Name() string { return "timezone" }

func (timezoneHandler) Help() string { return timezoneHelp }

func (h timezoneHandler) Handle(_ context.Context, req *Request) Outcome {
	command := req.Tokens[0]
	if command != "timezone" && command != "tz" {
		return Pass()
	}
	if req.Help || len(req.Tokens) == 1 {
		return Reply(Help(h.Help()))
	}
	if len(req.Tokens) != 2 {
		return Fail(ErrUnrecognized)
	}
	if out, ok := requireProfile(req); !ok {
		return out
	}
	tz := rawAfter(req, command, req.Tokens[1])
	if !ValidTimezone(tz) {
		return Fail(&UserError{Message: fmt.Sprintf("%s is not a valid timezone.", tz)})
	}
	p, err := h.store.UpdateProfile(req.Profile.UID, func(p *store.Profile) { p.Timezone = tz })
	if err != nil {
		return Fail(fmt.Errorf("set timezone: %w", err))
	}
	*req.Profile = p
	return Reply(Success(fmt.Sprintf("**%s's** timezone has been set to **%s**.", req.AuthorName, tz)))
}

// ValidTimezone reports whether name is an IANA zone name.
func ValidTimezone(name string) bool {
	if name == "" || name == "Local" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}
