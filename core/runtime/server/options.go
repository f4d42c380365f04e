package server

import "strings"

type RuntimeOption func(*Runtime)

// WithVersion sets the version reported by /heartbeat and telemetry
func WithVersion(version string) RuntimeOption {
	return func(r *Runtime) {
		r.version = version
	}
}

// WithBaseURL overrides the externally reachable URL used in results links
func WithBaseURL(baseURL string) RuntimeOption {
	return func(r *Runtime) {
		r.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}
