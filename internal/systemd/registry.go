package systemd

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Qian-MoBai/systemd-web/internal/execx"
	"github.com/Qian-MoBai/systemd-web/internal/log"
)

// UnitRecord is one row of a service unit listing.
type UnitRecord struct {
	UnitName    string `json:"unitName" yaml:"unitName"`
	LoadState   string `json:"loadState" yaml:"loadState"`
	ActiveState string `json:"activeState" yaml:"activeState"`
	SubState    string `json:"subState" yaml:"subState"`
	Description string `json:"description" yaml:"description"`
}

// minListingFields is the number of leading columns every record must carry.
const minListingFields = 4

// statusBullets are the markers systemctl puts in front of failed or degraded units.
const statusBullets = "●*"

// ParseUnitListing parses list-units output. Only lines containing "service"
// are considered; lines with fewer than four columns are returned in skipped.
func ParseUnitListing(output []byte) (records []UnitRecord, skipped []string) {
	records = []UnitRecord{}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "service") {
			continue
		}

		fields := strings.Fields(strings.TrimLeft(strings.TrimSpace(line), statusBullets))
		if len(fields) < minListingFields {
			skipped = append(skipped, line)
			continue
		}

		records = append(records, UnitRecord{
			UnitName:    fields[0],
			LoadState:   fields[1],
			ActiveState: fields[2],
			SubState:    fields[3],
			Description: strings.Join(fields[minListingFields:], " "),
		})
	}
	return records, skipped
}

// Registry queries the service manager for its units. Results are never cached.
type Registry struct {
	runner  execx.Runner
	builder *CommandBuilder
	logger  log.Logger
}

// NewRegistry creates a Registry.
func NewRegistry(runner execx.Runner, builder *CommandBuilder, logger log.Logger) *Registry {
	return &Registry{
		runner:  runner,
		builder: builder,
		logger:  logger,
	}
}

// ListUnits runs the listing command for level and parses its output. Any
// execution failure yields an ExecutionFailure error and no records.
func (r *Registry) ListUnits(ctx context.Context, level Level) ([]UnitRecord, error) {
	argv, err := r.builder.Build(level, ListUnitsCommand())
	if err != nil {
		return nil, err
	}

	command := strings.Join(argv, " ")
	r.logger.Debug("Listing units", "level", level, "command", command)

	result, err := r.runner.Execute(ctx, argv...)
	if err != nil {
		return nil, NewExecutionError(command, "command did not run", err)
	}
	if !result.Success() {
		return nil, NewExecutionError(command, exitDetail(result), nil)
	}

	records, skipped := ParseUnitListing(result.Stdout)
	for _, line := range skipped {
		r.logger.Debug("Skipping short listing line", "line", line)
	}
	return records, nil
}

// exitDetail summarizes a failed command for error messages.
func exitDetail(result execx.Result) string {
	stderr := strings.TrimSpace(string(result.Stderr))
	if stderr == "" {
		return fmt.Sprintf("exit status %d", result.ExitCode)
	}
	return fmt.Sprintf("exit status %d: %s", result.ExitCode, stderr)
}
