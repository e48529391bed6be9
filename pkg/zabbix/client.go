package zabbix

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/vshn/zabbix-maintenance/pkg/types"
)

// DefaultTimeout caps a single API round trip unless configured
// otherwise.
const DefaultTimeout = 10 * time.Second

// ErrUnknownHost is returned when the server has no host matching the
// requested name.
var ErrUnknownHost = errors.New("host is unknown to the server")

// APIError is an error object returned by the Zabbix API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *APIError) Error() string {
	if e.Data == "" {
		return fmt.Sprintf("zabbix api error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("zabbix api error %d: %s %s", e.Code, e.Message, e.Data)
}

// AuthError wraps any failure to establish a session, whether the
// credentials were rejected or the server could not be reached.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("could not authenticate to zabbix: %s", e.Err.Error())
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

type Config struct {
	URL      string
	Timeout  time.Duration
	Insecure bool

	Logger *logr.Logger
}

// Client talks JSON-RPC to a Zabbix frontend. It is not safe for
// concurrent use; the tool is strictly sequential.
type Client struct {
	url        string
	httpClient *http.Client
	logger     logr.Logger

	auth      string
	loggedIn  bool
	requestID int
}

func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport
	if config.Insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	logger := logr.Discard()
	if config.Logger != nil {
		logger = *config.Logger
	}
	return &Client{
		url: config.URL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	Auth    string `json:"auth,omitempty"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *APIError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	c.requestID++
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		Auth:    c.auth,
		ID:      c.requestID,
	})
	if err != nil {
		return fmt.Errorf("could not encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json-rpc")

	c.logger.V(1).Info("Calling Zabbix API", "method", method, "id", c.requestID)
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%s request failed: unexpected status %s", method, res.Status)
	}

	var parsed rpcResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("could not decode %s response: %w", method, err)
	}
	if parsed.Error != nil {
		return parsed.Error
	}
	if result != nil {
		if err := json.Unmarshal(parsed.Result, result); err != nil {
			return fmt.Errorf("could not decode %s result: %w", method, err)
		}
	}
	return nil
}

// Login establishes a session with username and password. The session
// token is kept on the client for all subsequent calls.
func (c *Client) Login(ctx context.Context, username string, password string) error {
	var token string
	err := c.call(ctx, "user.login", map[string]string{
		"user":     username,
		"password": password,
	}, &token)
	if err != nil {
		return &AuthError{Err: err}
	}
	c.auth = token
	c.loggedIn = true
	c.logger.V(1).Info("Logged in to Zabbix", "user", username)
	return nil
}

// SetToken attaches a pre-established session token instead of logging
// in. Logout is a no-op for such sessions, the token stays valid for
// its owner.
func (c *Client) SetToken(token string) {
	c.auth = token
	c.loggedIn = false
}

// Logout terminates a session established by Login.
func (c *Client) Logout(ctx context.Context) error {
	if !c.loggedIn {
		return nil
	}
	if err := c.call(ctx, "user.logout", []any{}, nil); err != nil {
		return fmt.Errorf("could not log out: %w", err)
	}
	c.auth = ""
	c.loggedIn = false
	return nil
}

type hostResult struct {
	HostID string `json:"hostid"`
}

// HostID resolves the server-side id of the host with the given
// technical name.
func (c *Client) HostID(ctx context.Context, name string) (string, error) {
	var hosts []hostResult
	err := c.call(ctx, "host.get", map[string]any{
		"output": []string{"hostid"},
		"filter": map[string]any{
			"host": []string{name},
		},
	}, &hosts)
	if err != nil {
		return "", fmt.Errorf("could not look up host %q: %w", name, err)
	}
	if len(hosts) == 0 {
		return "", fmt.Errorf("host %q: %w", name, ErrUnknownHost)
	}
	return hosts[0].HostID, nil
}

// maintenanceTypeNoData suppresses data collection for the window.
const maintenanceTypeNoData = 1

// CreateMaintenance creates the given maintenance window on the server
// and returns its id.
func (c *Client) CreateMaintenance(ctx context.Context, w types.MaintenanceWindow) (string, error) {
	period := int64(w.Duration().Seconds())
	var created struct {
		MaintenanceIDs []string `json:"maintenanceids"`
	}
	err := c.call(ctx, "maintenance.create", map[string]any{
		"name":             w.Name,
		"description":      w.Description,
		"maintenance_type": maintenanceTypeNoData,
		"active_since":     w.Start.Unix(),
		"active_till":      w.End.Unix(),
		"hostids":          []string{w.HostID},
		"groupids":         []string{},
		"timeperiods": []map[string]any{
			{"period": period},
		},
		"tags": []string{},
	}, &created)
	if err != nil {
		return "", fmt.Errorf("could not create maintenance window: %w", err)
	}
	if len(created.MaintenanceIDs) == 0 {
		return "", errors.New("could not create maintenance window: server returned no id")
	}
	c.logger.V(1).Info("Created maintenance window", "id", created.MaintenanceIDs[0], "name", w.Name)
	return created.MaintenanceIDs[0], nil
}

type maintenanceResult struct {
	MaintenanceID string `json:"maintenanceid"`
	Name          string `json:"name"`
	ActiveTill    string `json:"active_till"`
}

// DeleteExpired removes the automatic maintenance windows whose end
// time lies before now, and returns the ids of the deleted windows.
// Windows not created by this tool are left alone.
func (c *Client) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	var windows []maintenanceResult
	err := c.call(ctx, "maintenance.get", map[string]any{
		"output":            "extend",
		"selectTimeperiods": "extend",
	}, &windows)
	if err != nil {
		return nil, fmt.Errorf("could not list maintenance windows: %w", err)
	}

	expired := []string{}
	for _, w := range windows {
		if !strings.HasPrefix(w.Name, types.AutomaticPrefix) {
			continue
		}
		till, err := strconv.ParseInt(w.ActiveTill, 10, 64)
		if err != nil {
			continue
		}
		if till < now.Unix() {
			expired = append(expired, w.MaintenanceID)
		}
	}
	if len(expired) == 0 {
		return nil, nil
	}

	if err := c.call(ctx, "maintenance.delete", expired, nil); err != nil {
		return nil, fmt.Errorf("could not delete expired maintenance windows: %w", err)
	}
	c.logger.V(1).Info("Deleted expired maintenance windows", "count", len(expired))
	return expired, nil
}
