package cli

import (
	"errors"
	"net/http"

	"github.com/semlayer/semlayer/core/cli/cmd"
	"github.com/semlayer/semlayer/core/client"
	"github.com/semlayer/semlayer/core/logger"
)

// Execute runs the CLI, logs a failure once under its tag and returns the
// process exit code
func Execute() int {
	err := cmd.Execute()
	if err == nil {
		return logger.ExitOK
	}

	tag := logger.ErrorTag(err)
	if tag == "" {
		tag = "cli"
	}
	logger.New(tag).Error(err.Error())
	return exitCode(err)
}

// exitCode maps gateway API failures onto exit codes unless the command set
// one explicitly
func exitCode(err error) int {
	if code := logger.ExitCode(err); code != logger.ExitFailure {
		return code
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized, apiErr.StatusCode == http.StatusForbidden:
			return logger.ExitAuth
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return logger.ExitUpstream
		}
	}
	return logger.ExitFailure
}
