package main

import (
	"time"

	"github.com/vshn/zabbix-maintenance/pkg/cmd"
)

var (
	// these variables are populated by Goreleaser when releasing
	version = "unknown"
	commit  = "-dirty-"
	date    = time.Now().Format("2006-01-02")

	appName     = "zabbix-maintenance"
	appLongName = "Zabbix Host Maintenance"
)

func main() {
	cmd.Execute()
}
