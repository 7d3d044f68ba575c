package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/joelklabo/rcd/internal/store"
)

var registerHelp = usage(
	"Register your server for use with Epic Reminder.",
	"Compute resources are limited, so invite codes will be doled out sparingly.",
	"Example:",
	"    • `rcd register asdf` attempts to register the server using the join code `asdf`",
)

// registerHandler onboards a server by claiming a join code.
type registerHandler struct {
	store Store
}

func (registerHandler) Name() string { return "register" }

func (registerHandler) Help() string { return registerHelp }

func (h registerHandler) Handle(_ context.Context, req *Request) Outcome {
	if req.Tokens[0] != "register" {
		return Pass()
	}
	if req.Help || len(req.Tokens) == 1 {
		return Reply(Help(h.Help()))
	}
	name := req.ServerName
	if name == "" {
		name = "This server"
	}
	if req.Server != nil {
		return Reply(Normal(fmt.Sprintf("%s has already joined! Hello again!", name)).WithTitle("Hi!"))
	}
	if req.ServerID == "" {
		return Fail(&UserError{Title: "Registration Error", Message: "Servers can only be registered from one of their channels."})
	}

	code := rawAfter(req, "register", req.Tokens[1])
	srv, err := h.store.Register(req.ServerID, req.ServerName, code)
	switch {
	case errors.Is(err, store.ErrInvalidJoinCode):
		return Reply(Error("That is not a valid Join Code.").WithTitle("Invalid Join Code"))
	case err != nil:
		return Fail(fmt.Errorf("register %s: %w", req.ServerID, err))
	}
	req.Server = &srv
	return Reply(Success(fmt.Sprintf("Welcome %s!", name)).WithTitle("Welcome!"))
}
