package validate

import (
	"errors"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"

	"github.com/Qian-MoBai/systemd-web/internal/systemd"
)

// RequiredDirectives must all appear in an uploaded unit file.
var RequiredDirectives = []string{"[Unit]", "[Service]", "ExecStart=", "[Install]", "WantedBy="}

// AllowedTargets are the only targets WantedBy= may reference.
var AllowedTargets = []string{"multi-user.target", "graphical.target", "default.target"}

// ContentError lists every problem found in a unit file.
type ContentError struct {
	MissingDirectives []string    `json:"missingDirectives,omitempty" yaml:"missingDirectives,omitempty"`
	ParseError        string      `json:"parseError,omitempty" yaml:"parseError,omitempty"`
	NoWantedBy        bool        `json:"noWantedBy,omitempty" yaml:"noWantedBy,omitempty"`
	DisallowedTargets []string    `json:"disallowedTargets,omitempty" yaml:"disallowedTargets,omitempty"`
	Violations        []Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
}

// Empty reports whether no problem was recorded.
func (e *ContentError) Empty() bool {
	return len(e.MissingDirectives) == 0 && e.ParseError == "" && !e.NoWantedBy &&
		len(e.DisallowedTargets) == 0 && len(e.Violations) == 0
}

// Error implements the error interface.
func (e *ContentError) Error() string {
	var parts []string
	if len(e.MissingDirectives) > 0 {
		parts = append(parts, "missing directives "+strings.Join(e.MissingDirectives, ", "))
	}
	if e.ParseError != "" {
		parts = append(parts, "unit file does not parse: "+e.ParseError)
	}
	if e.NoWantedBy {
		parts = append(parts, "[Install] has no WantedBy= target")
	}
	if len(e.DisallowedTargets) > 0 {
		parts = append(parts, "WantedBy= target not allowed: "+strings.Join(e.DisallowedTargets, ", "))
	}
	if len(e.Violations) > 0 {
		parts = append(parts, "matched rules "+strings.Join(RuleIDs(e.Violations), ", "))
	}
	return strings.Join(parts, "; ")
}

// CheckDirectives verifies the required directives, that the content parses
// as a unit file, and that every WantedBy= target is allowed.
func CheckDirectives(content string) error {
	report := &ContentError{}
	checkDirectives(content, report)
	return asContentError(report)
}

// ValidateServiceFile runs the directive check and the destructive-pattern
// scan, returning a single InvalidServiceFileContent error covering both.
func ValidateServiceFile(content string) error {
	report := &ContentError{}
	checkDirectives(content, report)
	report.Violations = Scan(content)
	return asContentError(report)
}

func asContentError(report *ContentError) error {
	if report.Empty() {
		return nil
	}
	return systemd.NewError(systemd.KindInvalidServiceFileContent, "", "", report)
}

func checkDirectives(content string, report *ContentError) {
	for _, directive := range RequiredDirectives {
		if !strings.Contains(content, directive) {
			report.MissingDirectives = append(report.MissingDirectives, directive)
		}
	}

	opts, err := unit.DeserializeOptions(strings.NewReader(content))
	if err != nil {
		report.ParseError = err.Error()
		return
	}

	targets := wantedByTargets(opts)
	if len(targets) == 0 {
		report.NoWantedBy = true
		return
	}
	for _, target := range targets {
		if !isAllowedTarget(target) {
			report.DisallowedTargets = append(report.DisallowedTargets, target)
		}
	}
}

// wantedByTargets collects [Install] WantedBy= values. Values are
// space-separated lists and an empty assignment resets the list.
func wantedByTargets(opts []*unit.UnitOption) []string {
	var targets []string
	for _, opt := range opts {
		if opt.Section != "Install" || opt.Name != "WantedBy" {
			continue
		}
		fields := strings.Fields(opt.Value)
		if len(fields) == 0 {
			targets = nil
			continue
		}
		targets = append(targets, fields...)
	}
	return targets
}

func isAllowedTarget(target string) bool {
	for _, allowed := range AllowedTargets {
		if target == allowed {
			return true
		}
	}
	return false
}

// ContentProblems extracts the ContentError from an InvalidServiceFileContent error.
func ContentProblems(err error) (*ContentError, bool) {
	var ce *ContentError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
