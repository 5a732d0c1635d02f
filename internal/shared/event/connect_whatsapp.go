package event

const ConnectWhatsAppDestination string = "connect.whatsapp"
const ConnectWhatsAppConsumerNotification string = "connect_whatsapp_notification"

// Outcomes carried by ConnectWhatsAppMessage.Outcome.
const (
	ConnectOutcomeConnected          = "connected"
	ConnectOutcomePinRequired        = "pin_required"
	ConnectOutcomeRegistrationFailed = "registration_failed"
	ConnectOutcomeFailed             = "failed"
)

type ConnectWhatsAppMessage struct {
	SessionID     string `json:"session_id"`
	Outcome       string `json:"outcome"`
	Message       string `json:"message,omitempty"`
	WabaID        string `json:"waba_id,omitempty"`
	PhoneNumberID string `json:"phone_number_id,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
}
