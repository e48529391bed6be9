package types

import "time"

// AutomaticPrefix starts the name of every maintenance window created
// by this tool. Cleanup only ever touches windows carrying it, so
// windows created by hand stay untouched.
const AutomaticPrefix = "Automatic "

// MaintenanceWindow describes a single maintenance period for one host,
// built once per invocation and handed to the Zabbix API.
type MaintenanceWindow struct {
	Name        string
	Description string
	HostName    string
	HostID      string
	Start       time.Time
	End         time.Time
}

// Duration is the length of the window.
func (w MaintenanceWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}
