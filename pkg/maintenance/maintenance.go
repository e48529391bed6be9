package maintenance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"

	"github.com/vshn/zabbix-maintenance/pkg/config"
	"github.com/vshn/zabbix-maintenance/pkg/types"
)

// ErrInvalidDuration is returned for a non-positive number of minutes,
// before any network call happens.
var ErrInvalidDuration = errors.New("maintenance duration must be a positive number of minutes")

// HostResolutionError reports that the identity of the local host
// could not be determined.
type HostResolutionError struct {
	Err error
}

func (e *HostResolutionError) Error() string {
	return fmt.Sprintf("could not determine local hostname: %s", e.Err.Error())
}

func (e *HostResolutionError) Unwrap() error {
	return e.Err
}

// HostResolver determines the name of the host to put into
// maintenance.
type HostResolver interface {
	Hostname() (string, error)
}

// OSHostResolver resolves the hostname of the machine the tool runs
// on.
type OSHostResolver struct{}

func (OSHostResolver) Hostname() (string, error) {
	return os.Hostname()
}

// API is the part of the Zabbix client the requester needs.
type API interface {
	Login(ctx context.Context, username string, password string) error
	SetToken(token string)
	Logout(ctx context.Context) error
	HostID(ctx context.Context, name string) (string, error)
	CreateMaintenance(ctx context.Context, w types.MaintenanceWindow) (string, error)
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
}

// Requester performs the maintenance operations for a single
// invocation: authenticate, resolve the local host, create or clean up
// windows, log out.
type Requester struct {
	api    API
	hosts  HostResolver
	logger logr.Logger
	now    func() time.Time
}

type Option func(*Requester)

// WithHostResolver replaces the default OS hostname lookup.
func WithHostResolver(r HostResolver) Option {
	return func(q *Requester) { q.hosts = r }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(q *Requester) { q.now = now }
}

func WithLogger(l logr.Logger) Option {
	return func(q *Requester) { q.logger = l }
}

func NewRequester(api API, opts ...Option) *Requester {
	r := &Requester{
		api:    api,
		hosts:  OSHostResolver{},
		logger: logr.Discard(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Request places the local host into maintenance for the given number
// of minutes, starting now. It returns the created window. Nothing is
// left on the server when an error is returned; creation is a single
// request.
func (r *Requester) Request(ctx context.Context, cfg config.Config, minutes int) (types.MaintenanceWindow, error) {
	if minutes <= 0 {
		return types.MaintenanceWindow{}, ErrInvalidDuration
	}

	hostname, err := r.hosts.Hostname()
	if err != nil {
		return types.MaintenanceWindow{}, &HostResolutionError{Err: err}
	}

	if err := r.authenticate(ctx, cfg); err != nil {
		return types.MaintenanceWindow{}, err
	}
	defer r.logout(ctx)

	hostID, err := r.api.HostID(ctx, hostname)
	if err != nil {
		return types.MaintenanceWindow{}, err
	}

	start := r.now()
	window := types.MaintenanceWindow{
		Name:        fmt.Sprintf("%s%d min (since %s)", types.AutomaticPrefix, minutes, start.Format("2006-01-02 15:04:05")),
		Description: fmt.Sprintf("Host: %s", hostname),
		HostName:    hostname,
		HostID:      hostID,
		Start:       start,
		End:         start.Add(time.Duration(minutes) * time.Minute),
	}

	if _, err := r.api.CreateMaintenance(ctx, window); err != nil {
		return types.MaintenanceWindow{}, err
	}
	r.logger.Info("Created maintenance window", "host", hostname, "minutes", minutes, "until", window.End)

	return window, nil
}

// Cleanup deletes all expired automatic maintenance windows and
// returns their ids.
func (r *Requester) Cleanup(ctx context.Context, cfg config.Config) ([]string, error) {
	if err := r.authenticate(ctx, cfg); err != nil {
		return nil, err
	}
	defer r.logout(ctx)

	deleted, err := r.api.DeleteExpired(ctx, r.now())
	if err != nil {
		return nil, err
	}
	r.logger.Info("Cleaned up expired maintenance windows", "count", len(deleted))
	return deleted, nil
}

func (r *Requester) authenticate(ctx context.Context, cfg config.Config) error {
	if cfg.Username != "" {
		return r.api.Login(ctx, cfg.Username, cfg.Password)
	}
	r.api.SetToken(cfg.Token)
	return nil
}

func (r *Requester) logout(ctx context.Context) {
	if err := r.api.Logout(ctx); err != nil {
		r.logger.Error(err, "Failed to log out")
	}
}
