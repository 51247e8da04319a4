package events

import "time"

// ConnectionResolved is emitted after a connection field computed a page.
// Start and End bound the window of returned edges.
type ConnectionResolved struct {
	Type     string
	Total    int
	Start    int
	End      int
	Duration time.Duration
}
