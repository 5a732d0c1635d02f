package inbound

import "time"

type LinkResponse struct {
	Phone string `json:"phone"`
	URL   string `json:"url"`
}

type ShareQRCodeRequest struct {
	Phone string `json:"phone"`
	Text  string `json:"text"`
	Size  int    `json:"size"`
}

type ShareQRCodeResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
