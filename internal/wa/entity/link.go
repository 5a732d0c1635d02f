package entity

import (
	"net/url"
	"strings"
)

// LinkBase is the click-to-chat endpoint.
const LinkBase = "https://wa.me/"

// NormalizePhone keeps the digits of raw, so "+62 812-3456" becomes "628123456".
func NormalizePhone(raw string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
}

// Link returns the click-to-chat URL of a normalized phone number. Spaces in
// text are encoded as %20 since a literal plus is kept by WhatsApp.
func Link(phone, text string) string {
	if text == "" {
		return LinkBase + phone
	}
	return LinkBase + phone + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
