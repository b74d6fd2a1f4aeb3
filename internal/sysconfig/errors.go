package sysconfig

import "errors"

var (
	// ErrInvalidRequest marks request-validation failures: bad fields,
	// unknown references, parallel-unit violations. Never retried.
	ErrInvalidRequest = errors.New("invalid configuration request")

	ErrProjectNotFound      = errors.New("project not found")
	ErrPVModuleNotFound     = errors.New("pv module not found")
	ErrInverterNotFound     = errors.New("inverter not found")
	ErrBatteryNotFound      = errors.New("battery not found")
	ErrNotParallelable      = errors.New("inverter does not support parallel units")
	ErrTooManyParallelUnits = errors.New("inverter count exceeds max parallel units")

	// ErrInfeasibleStringing means no layout exists for the panel count on
	// the selected inverter, so no rank can be computed.
	ErrInfeasibleStringing = errors.New("cannot calculate valid stringing")

	ErrConfigurationNotFound = errors.New("configuration not found")
	ErrConfigurationBlocked  = errors.New("configuration validation is BLOCK")
)

// IsRequestError reports whether err is a request-validation failure.
func IsRequestError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}
