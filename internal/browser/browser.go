package browser

import (
	"context"
	"time"
)

// Page is the slice of browser page behavior the scrape engines need. Keeping
// it narrow lets engine tests run against canned HTML instead of Chrome.
type Page interface {
	// Navigate loads a URL and waits for the load event, bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// HTML returns the full serialized DOM of the current page.
	HTML() (string, error)
	// Eval runs a JavaScript function expression on the current page.
	Eval(js string) error
	// Close releases the page. The underlying browser stays alive.
	Close()
}

// Sessions hands out pages backed by a shared browser process.
type Sessions interface {
	// Acquire returns a fresh page, launching the browser on first use.
	Acquire(ctx context.Context) (Page, error)
	// Shutdown closes the browser. A later Acquire launches a new one.
	Shutdown() error
}
