package entity

import "encoding/json"

// Signup origins allowed to post embedded signup messages.
var SignupOrigins = []string{
	"https://www.facebook.com",
	"https://web.facebook.com",
}

const SignupMessageType = "EMBEDDED_SIGNUP"

type SignupEvent string

const (
	SignupEventFinish                   SignupEvent = "FINISH"
	SignupEventFinishOnlyWaba           SignupEvent = "FINISH_ONLY_WABA"
	SignupEventFinishBusinessAppOnboard SignupEvent = "FINISH_WHATSAPP_BUSINESS_APP_ONBOARDING"
	SignupEventCancel                   SignupEvent = "CANCEL"
	SignupEventError                    SignupEvent = "ERROR"
)

// IsFinish reports whether the event completes the signup.
func (e SignupEvent) IsFinish() bool {
	switch e {
	case SignupEventFinish, SignupEventFinishOnlyWaba, SignupEventFinishBusinessAppOnboard:
		return true
	default:
		return false
	}
}

// SignupMessage is a cross-document message forwarded by the hosting page.
// Data is either a JSON string or a JSON value.
type SignupMessage struct {
	Origin string
	Data   json.RawMessage
}

// SignupPayload is the only payload shape the listener accepts.
type SignupPayload struct {
	Type  string                     `json:"type"`
	Event SignupEvent                `json:"event"`
	Data  map[string]json.RawMessage `json:"data"`
}

// Connector providers.
const (
	ProviderMeta         = "meta"
	ProviderInstagram    = "instagram"
	ProviderShopify      = "shopify"
	ProviderGoogleSheets = "google_sheets"
)
