package inbound

import "encoding/json"

type CallbackRequest struct {
	URL string `json:"url"`
}

type PinRequest struct {
	PIN string `json:"pin"`
}

type SignupEventsRequest struct {
	Messages []SignupEventMessage `json:"messages"`
}

// SignupEventMessage is one window message relayed by the browser. Data is
// the message payload as received, either an object or a JSON string.
type SignupEventMessage struct {
	Origin string          `json:"origin"`
	Data   json.RawMessage `json:"data"`
}

type CallbackResponse struct {
	State           string `json:"state"`
	Message         string `json:"message"`
	PhoneNumber     string `json:"phoneNumber,omitempty"`
	ErrorCode       string `json:"errorCode,omitempty"`
	RedirectURL     string `json:"redirectUrl,omitempty"`
	RedirectAfterMs int64  `json:"redirectAfterMs,omitempty"`
}

type AuthorizeResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}
