package satellite

// Result represents the outcome of a controller or modem operation.
type Result uint8

const (
	// ResultSuccess indicates the operation completed successfully.
	ResultSuccess Result = 0

	// ResultError indicates an unspecified failure.
	ResultError Result = 1

	// ResultNotSupported indicates the modem does not support satellite
	// service.
	ResultNotSupported Result = 2

	// ResultServiceNotProvisioned indicates the subscription has not been
	// provisioned with a satellite provider.
	ResultServiceNotProvisioned Result = 3

	// ResultInvalidState indicates a required fact about the modem is not
	// yet known, or the modem is in a state that forbids the operation.
	ResultInvalidState Result = 4

	// ResultRequestInProgress indicates a conflicting enable/disable
	// request is already outstanding.
	ResultRequestInProgress Result = 5

	// ResultServiceProvisionInProgress indicates a provisioning request
	// for the same subscription is already outstanding.
	ResultServiceProvisionInProgress Result = 6

	// ResultInvalidArguments indicates the request arguments conflict with
	// the current session (e.g. demo mode mismatch while enabled).
	ResultInvalidArguments Result = 7

	// ResultRequestNotSupported indicates the modem rejected the request
	// kind itself.
	ResultRequestNotSupported Result = 8
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "SUCCESS"
	case ResultError:
		return "ERROR"
	case ResultNotSupported:
		return "NOT_SUPPORTED"
	case ResultServiceNotProvisioned:
		return "SERVICE_NOT_PROVISIONED"
	case ResultInvalidState:
		return "INVALID_STATE"
	case ResultRequestInProgress:
		return "REQUEST_IN_PROGRESS"
	case ResultServiceProvisionInProgress:
		return "SERVICE_PROVISION_IN_PROGRESS"
	case ResultInvalidArguments:
		return "INVALID_ARGUMENTS"
	case ResultRequestNotSupported:
		return "REQUEST_NOT_SUPPORTED"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the result indicates success.
func (r Result) IsSuccess() bool {
	return r == ResultSuccess
}

// IsError returns true if the result indicates an error.
func (r Result) IsError() bool {
	return r != ResultSuccess
}
