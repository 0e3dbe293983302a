package sdk

import (
	"errors"
	"os"
	"strconv"
)

// DefaultAddr is used when COMPLYX_ADDR is unset.
const DefaultAddr = "http://localhost:7002"

// ErrNoUser is returned by NewFromEnv when COMPLYX_USER is unset.
var ErrNoUser = errors.New("COMPLYX_USER is not set")

// NewFromEnv builds a client from the environment:
// COMPLYX_ADDR, COMPLYX_USER, COMPLYX_GATEWAY_TOKEN and COMPLYX_INSECURE_TLS.
func NewFromEnv(opts ...Option) (*Client, error) {
	// 1. Resolve the daemon address
	addr := os.Getenv("COMPLYX_ADDR")
	if addr == "" {
		addr = DefaultAddr
	}

	// 2. Identify the acting user
	user := os.Getenv("COMPLYX_USER")
	if user == "" {
		return nil, ErrNoUser
	}

	// 3. Optional transport settings
	var base []Option
	if token := os.Getenv("COMPLYX_GATEWAY_TOKEN"); token != "" {
		base = append(base, WithGatewayToken(token))
	}
	if insecure, _ := strconv.ParseBool(os.Getenv("COMPLYX_INSECURE_TLS")); insecure {
		base = append(base, WithInsecureTLS())
	}
	return NewClient(addr, user, append(base, opts...)...), nil
}
