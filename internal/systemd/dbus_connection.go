package systemd

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/Qian-MoBai/systemd-web/internal/log"
)

// Connection wraps the read-only systemd D-Bus calls used for inspection.
type Connection interface {
	// GetUnitProperties gets all org.freedesktop.systemd1.Unit properties of a unit.
	GetUnitProperties(ctx context.Context, unitName string) (map[string]interface{}, error)

	// GetServiceProperties gets the org.freedesktop.systemd1.Service properties of a unit.
	GetServiceProperties(ctx context.Context, unitName string) (map[string]interface{}, error)

	// Close closes the connection.
	Close() error
}

// ConnectionFactory opens connections to the system or user manager.
type ConnectionFactory interface {
	NewConnection(ctx context.Context, userMode bool) (Connection, error)
}

// DBusConnection implements Connection interface wrapping systemd D-Bus operations.
type DBusConnection struct {
	conn *dbus.Conn
}

// NewDBusConnection creates a new D-Bus connection wrapper.
func NewDBusConnection(conn *dbus.Conn) *DBusConnection {
	return &DBusConnection{conn: conn}
}

// GetUnitProperties gets all properties of a systemd unit.
func (d *DBusConnection) GetUnitProperties(ctx context.Context, unitName string) (map[string]interface{}, error) {
	props, err := d.conn.GetUnitPropertiesContext(ctx, unitName)
	if err != nil {
		return nil, fmt.Errorf("error getting unit properties for %s: %w", unitName, err)
	}
	return props, nil
}

// GetServiceProperties gets the service-specific properties of a systemd unit.
func (d *DBusConnection) GetServiceProperties(ctx context.Context, unitName string) (map[string]interface{}, error) {
	props, err := d.conn.GetUnitTypePropertiesContext(ctx, unitName, "Service")
	if err != nil {
		return nil, fmt.Errorf("error getting service properties for %s: %w", unitName, err)
	}
	return props, nil
}

// Close closes the D-Bus connection.
func (d *DBusConnection) Close() error {
	d.conn.Close()
	return nil
}

// DefaultConnectionFactory implements ConnectionFactory interface.
type DefaultConnectionFactory struct {
	logger log.Logger
}

// NewConnectionFactory creates a new connection factory with injected logger.
func NewConnectionFactory(logger log.Logger) *DefaultConnectionFactory {
	return &DefaultConnectionFactory{
		logger: logger,
	}
}

// NewConnection creates a new systemd connection for the requested manager.
func (f *DefaultConnectionFactory) NewConnection(ctx context.Context, userMode bool) (Connection, error) {
	var conn *dbus.Conn
	var err error

	if userMode {
		f.logger.Debug("Establishing user connection to systemd")
		conn, err = dbus.NewUserConnectionContext(ctx)
	} else {
		f.logger.Debug("Establishing system connection to systemd")
		conn, err = dbus.NewSystemConnectionContext(ctx)
	}

	if err != nil {
		return nil, NewConnectionError(userMode, err)
	}

	return NewDBusConnection(conn), nil
}

// UnitStatus is a snapshot of a unit's runtime state.
type UnitStatus struct {
	UnitName      string    `json:"unitName" yaml:"unitName"`
	Description   string    `json:"description" yaml:"description"`
	LoadState     string    `json:"loadState" yaml:"loadState"`
	ActiveState   string    `json:"activeState" yaml:"activeState"`
	SubState      string    `json:"subState" yaml:"subState"`
	UnitFileState string    `json:"unitFileState" yaml:"unitFileState"`
	FragmentPath  string    `json:"fragmentPath" yaml:"fragmentPath"`
	MainPID       uint32    `json:"mainPID" yaml:"mainPID"`
	Result        string    `json:"result" yaml:"result"`
	ActiveSince   time.Time `json:"activeSince,omitempty" yaml:"activeSince,omitempty"`
}

// Inspector reads unit state over D-Bus.
type Inspector struct {
	factory ConnectionFactory
	logger  log.Logger
}

// NewInspector creates an Inspector.
func NewInspector(factory ConnectionFactory, logger log.Logger) *Inspector {
	return &Inspector{
		factory: factory,
		logger:  logger,
	}
}

// Status returns the state of unitName in the manager for level. The caller
// is expected to have validated the unit name.
func (i *Inspector) Status(ctx context.Context, level Level, unitName string) (*UnitStatus, error) {
	if _, err := ParseLevel(string(level)); err != nil {
		return nil, err
	}

	conn, err := i.factory.NewConnection(ctx, level.IsUser())
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			i.logger.Debug("Closing D-Bus connection", "error", cerr)
		}
	}()

	props, err := conn.GetUnitProperties(ctx, unitName)
	if err != nil {
		return nil, err
	}

	status := &UnitStatus{
		UnitName:      stringProp(props, "Id"),
		Description:   stringProp(props, "Description"),
		LoadState:     stringProp(props, "LoadState"),
		ActiveState:   stringProp(props, "ActiveState"),
		SubState:      stringProp(props, "SubState"),
		UnitFileState: stringProp(props, "UnitFileState"),
		FragmentPath:  stringProp(props, "FragmentPath"),
	}
	if status.UnitName == "" {
		status.UnitName = unitName
	}
	if usec, ok := props["ActiveEnterTimestamp"].(uint64); ok && usec > 0 {
		status.ActiveSince = time.UnixMicro(int64(usec)).UTC() //nolint:gosec // microseconds since epoch fit in int64
	}

	// Units that are not loaded have no Service interface.
	if status.LoadState != "loaded" {
		return status, nil
	}

	svc, err := conn.GetServiceProperties(ctx, unitName)
	if err != nil {
		i.logger.Debug("Service properties unavailable", "unit", unitName, "error", err)
		return status, nil
	}
	if pid, ok := svc["MainPID"].(uint32); ok {
		status.MainPID = pid
	}
	status.Result = stringProp(svc, "Result")

	return status, nil
}

func stringProp(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
