package systemd

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Operation is a permitted systemctl verb.
type Operation string

// Unit operations.
const (
	OperationStart   Operation = "start"
	OperationStop    Operation = "stop"
	OperationRestart Operation = "restart"
	OperationEnable  Operation = "enable"
	OperationDisable Operation = "disable"
	OperationReload  Operation = "reload"
)

// Operations lists every permitted operation in display order.
var Operations = []Operation{
	OperationStart,
	OperationStop,
	OperationRestart,
	OperationEnable,
	OperationDisable,
	OperationReload,
}

// ParseOperation converts a request value to an Operation.
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OperationStart, OperationStop, OperationRestart,
		OperationEnable, OperationDisable, OperationReload:
		return Operation(s), nil
	default:
		return "", NewInvalidOperationError(s)
	}
}

// String returns the systemctl verb.
func (o Operation) String() string {
	return string(o)
}

// Command returns the base systemctl vector for applying o to unitName.
func (o Operation) Command(unitName string) []string {
	return []string{"systemctl", string(o), unitName}
}

// DaemonReloadCommand is the base vector that makes the manager re-read unit files.
func DaemonReloadCommand() []string {
	return []string{"systemctl", "daemon-reload"}
}

// ListUnitsCommand is the base vector for listing service units.
func ListUnitsCommand() []string {
	return []string{"systemctl", "--no-pager", "--type=service", "list-units"}
}

// TextCaser provides text casing operations.
type TextCaser interface {
	Title(text string) string
}

// DefaultTextCaser implements TextCaser with English title casing.
type DefaultTextCaser struct {
	caser cases.Caser
}

// NewDefaultTextCaser creates a new default text caser.
func NewDefaultTextCaser() *DefaultTextCaser {
	return &DefaultTextCaser{
		caser: cases.Title(language.English),
	}
}

// Title converts text to title case.
func (c *DefaultTextCaser) Title(text string) string {
	return c.caser.String(text)
}
