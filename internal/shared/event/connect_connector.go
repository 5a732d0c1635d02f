package event

const ConnectConnectorDestination string = "connect.connector"
const ConnectConnectorConsumerNotification string = "connect_connector_notification"

type ConnectConnectorMessage struct {
	SessionID string `json:"session_id"`
	Provider  string `json:"provider"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}
