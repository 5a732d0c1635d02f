package inbound

import (
	"time"

	"github.com/shandysiswandi/wapilot/internal/pkg/clock"
)

// page is the view of one HTTP response. The browser waits out a delayed
// navigation through the Refresh header, so a scheduled function runs at
// once and only its delay is kept.
type page struct {
	url   string
	delay time.Duration

	scheduling time.Duration
}

func (p *page) Schedule(delay time.Duration, fn func()) clock.Cancel {
	p.scheduling = delay
	fn()
	p.scheduling = 0

	return func() bool { return false }
}

// Navigate keeps the first target only.
func (p *page) Navigate(url string) {
	if p.url != "" {
		return
	}
	p.url = url
	p.delay = p.scheduling
}
