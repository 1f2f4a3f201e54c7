package config

import "time"

const defaultRequestTimeout = 10 * time.Second

type TransportConfig interface {
	// GetAPIURLOverride is the explicit backend endpoint, empty when unset.
	GetAPIURLOverride() string
	// GetHost is the name of the host the client runs on, used to detect
	// local development.
	GetHost() string
	GetBaseEndpoint() string
	GetRequestTimeout() time.Duration
}
