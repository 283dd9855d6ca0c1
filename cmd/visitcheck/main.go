package main

import (
	"visitcheck/cmd/visitcheck/commands"
	"visitcheck/internal/serviceutil"
	"visitcheck/internal/telemetry"
)

func main() {
	telemetry.InitSlog(false)
	commands.ExecuteContext(serviceutil.SignalContext())
}
