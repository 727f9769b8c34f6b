package systemd

import (
	"context"
	"fmt"
)

// MockConnection implements Connection interface for testing.
type MockConnection struct {
	GetUnitPropertiesFunc    func(ctx context.Context, unitName string) (map[string]interface{}, error)
	GetServicePropertiesFunc func(ctx context.Context, unitName string) (map[string]interface{}, error)
	CloseFunc                func() error
	Closed                   bool
}

// GetUnitProperties gets all properties of a systemd unit.
func (m *MockConnection) GetUnitProperties(ctx context.Context, unitName string) (map[string]interface{}, error) {
	if m.GetUnitPropertiesFunc != nil {
		return m.GetUnitPropertiesFunc(ctx, unitName)
	}
	return nil, fmt.Errorf("mock not implemented")
}

// GetServiceProperties gets the service-specific properties of a systemd unit.
func (m *MockConnection) GetServiceProperties(ctx context.Context, unitName string) (map[string]interface{}, error) {
	if m.GetServicePropertiesFunc != nil {
		return m.GetServicePropertiesFunc(ctx, unitName)
	}
	return nil, fmt.Errorf("mock not implemented")
}

// Close closes the connection.
func (m *MockConnection) Close() error {
	m.Closed = true
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// MockConnectionFactory implements ConnectionFactory interface for testing.
type MockConnectionFactory struct {
	NewConnectionFunc func(ctx context.Context, userMode bool) (Connection, error)
	Connection        Connection
}

// NewConnection returns the configured connection.
func (m *MockConnectionFactory) NewConnection(ctx context.Context, userMode bool) (Connection, error) {
	if m.NewConnectionFunc != nil {
		return m.NewConnectionFunc(ctx, userMode)
	}
	if m.Connection != nil {
		return m.Connection, nil
	}
	return nil, fmt.Errorf("mock not configured")
}
