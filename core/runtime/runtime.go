package runtime

import (
	"github.com/semlayer/semlayer/core/runtime/server"
)

// Runtime represents the gateway server
type Runtime = server.Runtime

// NewRuntime creates a new runtime instance
var NewRuntime = server.NewRuntime

// Options
var (
	WithVersion = server.WithVersion
	WithBaseURL = server.WithBaseURL
)
