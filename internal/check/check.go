package check

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/joelklabo/rcd/internal/config"
)

// Result represents a single preflight outcome.
type Result struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Status   string `json:"status"` // OK|MISSING|WARN
	Details  string `json:"details"`
	Optional bool   `json:"optional"`
}

// Checker defines an interface for running checks.
type Checker interface {
	Check(dep DepInput) Result
}

// DepInput names one thing to verify.
type DepInput struct {
	Name     string
	Type     string
	Optional bool
	Hint     string
}

// DirWriteChecker verifies a directory exists (or can be created) and is writable.
type DirWriteChecker struct{}

func (DirWriteChecker) Check(dep DepInput) Result {
	res := Result{Name: dep.Name, Type: dep.Type, Status: "OK", Optional: dep.Optional, Details: dep.Name}
	if err := os.MkdirAll(dep.Name, 0o755); err != nil {
		res.Status = missingStatus(dep.Optional)
		res.Details = fmt.Sprintf("cannot create: %v", err)
		return res
	}
	f, err := os.CreateTemp(dep.Name, ".rcd-check-*")
	if err != nil {
		res.Status = missingStatus(dep.Optional)
		res.Details = fmt.Sprintf("not writable: %v (%s)", err, dep.Hint)
		return res
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return res
}

// PortChecker verifies a listen address is free.
type PortChecker struct{}

func (PortChecker) Check(dep DepInput) Result {
	res := Result{Name: dep.Name, Type: dep.Type, Status: "OK", Optional: dep.Optional, Details: "free"}
	ln, err := net.Listen("tcp", dep.Name)
	if err != nil {
		res.Status = missingStatus(dep.Optional)
		res.Details = fmt.Sprintf("cannot listen: %v", err)
		return res
	}
	_ = ln.Close()
	return res
}

// TimezoneChecker verifies the timezone database resolves a zone name.
type TimezoneChecker struct{}

func (TimezoneChecker) Check(dep DepInput) Result {
	res := Result{Name: dep.Name, Type: dep.Type, Status: "OK", Optional: dep.Optional, Details: "loaded"}
	if _, err := time.LoadLocation(dep.Name); err != nil {
		res.Status = missingStatus(dep.Optional)
		res.Details = err.Error()
	}
	return res
}

// TokenChecker reports whether a transport has credentials.
type TokenChecker struct {
	Token string
}

func (c TokenChecker) Check(dep DepInput) Result {
	res := Result{Name: dep.Name, Type: dep.Type, Status: "OK", Optional: dep.Optional, Details: "set"}
	if c.Token == "" {
		res.Status = missingStatus(dep.Optional)
		res.Details = dep.Hint
	}
	return res
}

// Preflight runs every check that applies to cfg.
func Preflight(cfg *config.Config) []Result {
	var out []Result
	out = append(out, DirWriteChecker{}.Check(DepInput{
		Name: filepath.Dir(cfg.Storage.Path),
		Type: "dirwrite",
		Hint: "storage.path must sit in a writable directory",
	}))
	out = append(out, TimezoneChecker{}.Check(DepInput{Name: "America/New_York", Type: "tzdata"}))
	for _, t := range cfg.Transports {
		if t.Type != "discord" {
			continue
		}
		out = append(out, TokenChecker{Token: t.Token}.Check(DepInput{
			Name: t.ID,
			Type: "token",
			Hint: "set token or " + config.EnvPrefix + "DISCORD_TOKEN",
		}))
	}
	if cfg.Metrics.Listen != "" {
		out = append(out, PortChecker{}.Check(DepInput{Name: cfg.Metrics.Listen, Type: "port", Optional: true}))
	}
	return out
}

// Missing counts required checks that failed.
func Missing(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Status == "MISSING" {
			n++
		}
	}
	return n
}

func missingStatus(optional bool) string {
	if optional {
		return "WARN"
	}
	return "MISSING"
}
