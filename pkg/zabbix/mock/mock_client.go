package mock

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/vshn/zabbix-maintenance/pkg/types"
)

// MockAPI records every call made against it and can be told to fail a
// single method.
type MockAPI struct {
	FailOn     string
	HostIDs    map[string]string
	DeletedIDs []string

	Calls        []string
	LastUser     string
	LastPassword string
	LastToken    string
	LastHostName string
	LastWindow   types.MaintenanceWindow
	LastNow      time.Time
}

func (m *MockAPI) fail(method string) error {
	if m.FailOn == method {
		return errors.New("some error")
	}
	return nil
}

func (m *MockAPI) Login(ctx context.Context, username string, password string) error {
	m.Calls = append(m.Calls, "login")
	m.LastUser = username
	m.LastPassword = password
	return m.fail("login")
}

func (m *MockAPI) SetToken(token string) {
	m.Calls = append(m.Calls, "settoken")
	m.LastToken = token
}

func (m *MockAPI) Logout(ctx context.Context) error {
	m.Calls = append(m.Calls, "logout")
	return m.fail("logout")
}

func (m *MockAPI) HostID(ctx context.Context, name string) (string, error) {
	m.Calls = append(m.Calls, "hostid")
	m.LastHostName = name
	if err := m.fail("hostid"); err != nil {
		return "", err
	}
	id, ok := m.HostIDs[name]
	if !ok {
		return "", errors.New("host not found")
	}
	return id, nil
}

func (m *MockAPI) CreateMaintenance(ctx context.Context, w types.MaintenanceWindow) (string, error) {
	m.Calls = append(m.Calls, "create")
	m.LastWindow = w
	if err := m.fail("create"); err != nil {
		return "", err
	}
	return "1", nil
}

func (m *MockAPI) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	m.Calls = append(m.Calls, "delete")
	m.LastNow = now
	if err := m.fail("delete"); err != nil {
		return nil, err
	}
	return slices.Clone(m.DeletedIDs), nil
}
