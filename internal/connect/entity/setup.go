package entity

import "strings"

// Session storage keys shared by the signup listener and the callback flow.
const (
	KeyWabaID               = "waba_id"
	KeyPhoneNumberID        = "phone_number_id"
	KeyBusinessID           = "business_id"
	KeySignupData           = "embedded_signup_data"
	KeySignupCancelled      = "embedded_signup_cancelled"
	KeySignupError          = "embedded_signup_error"
	KeyPendingPIN           = "pin_pending"
	KeyConnectorStatePrefix = "oauth_state_"
)

// SetupKeys are removed together once the account is linked.
var SetupKeys = []string{
	KeyWabaID,
	KeyPhoneNumberID,
	KeyBusinessID,
	KeySignupData,
	KeySignupCancelled,
	KeySignupError,
}

// SetupContext holds the identifiers produced by Embedded Signup.
type SetupContext struct {
	WabaID        string `json:"waba_id,omitempty"`
	PhoneNumberID string `json:"phone_number_id,omitempty"`
	BusinessID    string `json:"business_id,omitempty"`
}

func (s SetupContext) IsEmpty() bool {
	return s.WabaID == "" && s.PhoneNumberID == "" && s.BusinessID == ""
}

// Values returns the present identifiers keyed by their session storage key.
func (s SetupContext) Values() map[string]string {
	out := make(map[string]string, 3)
	for k, v := range map[string]string{
		KeyWabaID:        s.WabaID,
		KeyPhoneNumberID: s.PhoneNumberID,
		KeyBusinessID:    s.BusinessID,
	} {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	return out
}

// Merge fills the empty identifiers of s from other.
func (s SetupContext) Merge(other SetupContext) SetupContext {
	if s.WabaID == "" {
		s.WabaID = other.WabaID
	}
	if s.PhoneNumberID == "" {
		s.PhoneNumberID = other.PhoneNumberID
	}
	if s.BusinessID == "" {
		s.BusinessID = other.BusinessID
	}
	return s
}

// PendingPIN is kept in session storage while the flow waits for the
// registration PIN, so a later request of the same session can finish it.
type PendingPIN struct {
	Code        string       `json:"code"`
	State       string       `json:"state"`
	Setup       SetupContext `json:"setup"`
	PhoneNumber string       `json:"phone_number,omitempty"`
}
