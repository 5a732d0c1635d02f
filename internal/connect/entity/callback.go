package entity

import "time"

// State is the position of a callback flow.
type State string

const (
	StateProcessing         State = "processing"
	StateSuccess            State = "success"
	StatePinRequired        State = "pin_required"
	StateRegistrationFailed State = "registration_failed"
	StateGenericError       State = "generic_error"
	// StateHandedOff means the browser was sent to the backend callback and
	// the outcome is no longer observed here.
	StateHandedOff State = "handed_off"
)

func (s State) String() string {
	return string(s)
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s != StateProcessing && s != StatePinRequired
}

// Error codes carried to the settings page.
const (
	ErrCodeInvalidCallback    = "invalid_callback"
	ErrCodeSetupFailed        = "setup_failed"
	ErrCodeRegistrationFailed = "registration_failed"
	ErrCodePinRequired        = "pin_required"
	ErrCodeDuplicateCallback  = "duplicate_callback"
	ErrCodeInvalidState       = "invalid_state"
	ErrCodeConnectionFailed   = "connection_failed"
)

// CallbackResult is the outcome of one step of a callback flow.
// ErrorCode is set on GenericError and RegistrationFailed.
type CallbackResult struct {
	State         State
	Message       string
	PhoneNumber   string
	ErrorCode     string
	RedirectURL   string
	RedirectDelay time.Duration
}

// CallbackParams are the parameters found on the callback URL.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
	Shop             string
	Setup            SetupContext
	// SignupData is the raw embedded signup blob when the URL carried one.
	SignupData string
}

// ExchangeRequest is sent to the backend to redeem an authorization code.
type ExchangeRequest struct {
	Code  string
	State string
	Setup SetupContext
}

// ExchangeResponse is the backend answer to ExchangeRequest.
type ExchangeResponse struct {
	StatusCode  int
	Success     bool
	Message     string
	Error       string
	PhoneNumber string
}

// RegisterResponse is the backend answer to a PIN submission.
// The backend detail is either a string (Detail) or an object carrying
// message, user_message and requires_pin.
type RegisterResponse struct {
	StatusCode  int
	Success     bool
	Registered  bool
	Message     string
	Error       string
	Detail      string
	DetailMsg   string
	DetailUser  string
	RequiresPIN bool
}

// ConnectorResponse is the backend answer to a connector callback.
type ConnectorResponse struct {
	StatusCode int
	Success    bool
	Message    string
	Error      string
}
