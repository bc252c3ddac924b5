package provision

import "errors"

var (
	ErrAuthentication      = errors.New("invalid credentials")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrKeyGeneration       = errors.New("key generation failed")
	ErrAllocationExhausted = errors.New("no free address in VPN subnet")
	ErrUpstreamCreate      = errors.New("firewall peer creation failed")
	ErrUpstreamDelete      = errors.New("firewall peer deletion failed")
	ErrRegistration        = errors.New("peer registration failed")
)
