package browser

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"pricewatch/internal/config"
	"pricewatch/internal/logging"
)

// Manager owns a single browser process shared by all scrape workers. The
// launch is lazy and memoized: the first Acquire starts Chrome, every later
// Acquire reuses the same process until Shutdown. A failed launch is not
// memoized, so the next Acquire retries from scratch.
type Manager struct {
	cfg    *config.Config
	logger logging.Logger

	mu      sync.Mutex
	browser *rod.Browser

	// launch, newPage and closeFn are swappable in tests
	launch  func() (*rod.Browser, error)
	newPage func(*rod.Browser) (Page, error)
	closeFn func(*rod.Browser) error
}

// NewManager creates a browser session manager. Chrome is not started until
// the first Acquire.
func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: logging.GetGlobalLogger(),
	}
	m.launch = m.launchBrowser
	m.newPage = func(browser *rod.Browser) (Page, error) {
		page, err := m.createStealthPage(browser)
		if err != nil {
			return nil, err
		}
		router, err := blockHeavyResources(page)
		if err != nil {
			m.logger.Warn("Failed to enable resource blocking", map[string]interface{}{
				"error": err.Error(),
			})
			router = nil
		}
		return &rodPage{page: page, router: router, logger: m.logger}, nil
	}
	m.closeFn = func(browser *rod.Browser) error {
		return browser.Close()
	}
	return m
}

// Acquire returns a fresh stealth page from the shared browser.
func (m *Manager) Acquire(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		browser, err := m.launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		m.browser = browser
		m.logger.Info("Browser session started", map[string]interface{}{
			"headless": m.cfg.Scraper.HeadlessMode,
		})
	}

	page, err := m.newPage(m.browser)
	if err != nil {
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}
	return page, nil
}

// Shutdown closes the shared browser process.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return nil
	}

	err := m.closeFn(m.browser)
	m.browser = nil
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}

	m.logger.Info("Browser session closed")
	return nil
}

// launchBrowser starts Chrome and connects to it over the devtools protocol.
func (m *Manager) launchBrowser() (*rod.Browser, error) {
	l := launcher.New().
		Headless(m.cfg.Scraper.HeadlessMode).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-web-security").
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	if chromePath := systemChromePath(); chromePath != "" {
		l = l.Bin(chromePath)
		m.logger.Info("Using system Chrome browser", map[string]interface{}{
			"chrome_path": chromePath,
		})
	} else {
		m.logger.Warn("System Chrome not found, Rod will download browser", map[string]interface{}{})
	}

	if m.cfg.Scraper.UserAgent != "" {
		l = l.Set("user-agent", m.cfg.Scraper.UserAgent)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, err
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, err
	}
	return browser, nil
}

// createStealthPage creates a new page with automation fingerprints masked.
func (m *Manager) createStealthPage(browser *rod.Browser) (*rod.Page, error) {
	if !m.cfg.Scraper.StealthMode {
		return browser.Page(proto.TargetCreateTarget{})
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, err
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		m.logger.Warn("Failed to set viewport", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if m.cfg.Scraper.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: m.cfg.Scraper.UserAgent,
		}); err != nil {
			m.logger.Warn("Failed to set user agent", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	headers := map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "de-DE,de;q=0.9,en;q=0.8",
		"Upgrade-Insecure-Requests": "1",
	}
	for name, value := range headers {
		if _, err := page.SetExtraHeaders([]string{name, value}); err != nil {
			m.logger.Debug("Failed to set header", map[string]interface{}{
				"error":  err.Error(),
				"header": name,
			})
		}
	}

	return page, nil
}

// blockHeavyResources aborts image, media and font requests on the page.
// Markup, style and script requests pass through untouched so client-side
// rendering the extraction depends on keeps working.
func blockHeavyResources(page *rod.Page) (*rod.HijackRouter, error) {
	router := page.HijackRequests()
	for _, rt := range []proto.NetworkResourceType{
		proto.NetworkResourceTypeImage,
		proto.NetworkResourceTypeMedia,
		proto.NetworkResourceTypeFont,
	} {
		if err := router.Add("*", rt, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		}); err != nil {
			return nil, err
		}
	}
	go router.Run()
	return router, nil
}

// rodPage adapts a rod page to the Page interface.
type rodPage struct {
	page   *rod.Page
	router *rod.HijackRouter
	logger logging.Logger
}

func (p *rodPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := rod.Try(func() {
		p.page.Context(navCtx).MustNavigate(url).MustWaitLoad()
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	p.logger.Debug("Navigated to URL", map[string]interface{}{
		"url": url,
	})
	return nil
}

func (p *rodPage) HTML() (string, error) {
	html, err := p.page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get page HTML: %w", err)
	}
	return html, nil
}

func (p *rodPage) Eval(js string) error {
	return rod.Try(func() {
		p.page.MustEval(js)
	})
}

func (p *rodPage) Close() {
	if p.router != nil {
		_ = p.router.Stop()
	}
	_ = p.page.Close()
}

// systemChromePath finds an installed Chrome/Chromium binary.
func systemChromePath() string {
	if chromeBin := os.Getenv("CHROME_BIN"); chromeBin != "" {
		if _, err := os.Stat(chromeBin); err == nil {
			return chromeBin
		}
	}

	if chromePath := os.Getenv("CHROME_PATH"); chromePath != "" {
		if _, err := os.Stat(chromePath); err == nil {
			return chromePath
		}
	}

	commonPaths := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/opt/google/chrome/chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
