package main

import "witweb-studio/internal/cli"

// @title witweb-studio API
// @version 1.0
// @description Video generation studio: submits provider jobs, tracks them and stores finished artifacts.

// @host localhost:8000
// @BasePath /

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Execute(cli.VersionInfo{Version: version, Commit: commit, Date: date})
}
