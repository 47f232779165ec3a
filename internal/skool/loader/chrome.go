package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	windowWidth  = 1366
	windowHeight = 900
	browserTZ    = "America/New_York"
	browserLang  = "en-US"
	// networkIdleSettle approximates "no requests in flight" since chromedp
	// does not expose a network idle lifecycle wait directly.
	networkIdleSettle = 500 * time.Millisecond
)

const nextDataScript = `window.__NEXT_DATA__ ?? null`

const ldJSONScript = `Array.from(
	document.querySelectorAll('script[type="application/ld+json"]')
).map((el) => el.textContent || "")`

// stealthScript runs before any page script so the automation markers the
// site checks for are already hidden.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {
	get: () => undefined,
	configurable: true
});
delete navigator.webdriver;

Object.defineProperty(navigator, 'languages', {
	get: () => ['en-US', 'en'],
	configurable: true
});

Object.defineProperty(navigator, 'plugins', {
	get: () => [1, 2, 3, 4, 5],
	configurable: true
});

window.chrome = { runtime: {} };
`

const (
	acceptHeader         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	acceptLanguageHeader = "en-US,en;q=0.9"
)

var browserHeaders = network.Headers{
	"Accept":          acceptHeader,
	"Accept-Language": acceptLanguageHeader,
}

// ChromeRenderer renders a page in a fresh headless Chrome per call. The
// browser is torn down before Render returns regardless of outcome.
type ChromeRenderer struct {
	// ExecPath overrides the Chrome binary chromedp would otherwise find.
	ExecPath string
}

type browserFlag struct {
	name  string
	value any
}

// browserFlags hide the automation switches headless Chrome exposes by
// default.
var browserFlags = []browserFlag{
	{"headless", "new"},
	{"no-sandbox", true},
	{"disable-dev-shm-usage", true},
	{"disable-gpu", true},
	{"disable-blink-features", "AutomationControlled"},
	{"exclude-switches", "enable-automation"},
	{"disable-infobars", true},
	{"lang", browserLang},
}

func (r ChromeRenderer) allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	chromeOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, flag := range browserFlags {
		chromeOpts = append(chromeOpts, chromedp.Flag(flag.name, flag.value))
	}
	chromeOpts = append(chromeOpts,
		chromedp.WindowSize(windowWidth, windowHeight),
		chromedp.UserAgent(opts.UserAgent),
	)
	if r.ExecPath != "" {
		chromeOpts = append(chromeOpts, chromedp.ExecPath(r.ExecPath))
	}
	return chromeOpts
}

// navigateAction navigates to url and returns once the waitUntil event has
// been reached. chromedp.Navigate always blocks until the load event, so the
// domcontentloaded case issues the navigation itself and only waits for the
// document body.
func navigateAction(url string, waitUntil WaitUntil) chromedp.Action {
	switch waitUntil {
	case WaitLoad:
		return chromedp.Navigate(url)
	case WaitNetworkIdle:
		return chromedp.Tasks{
			chromedp.Navigate(url),
			chromedp.Sleep(networkIdleSettle),
		}
	default:
		return chromedp.Tasks{
			chromedp.ActionFunc(func(ctx context.Context) error {
				_, _, errorText, err := page.Navigate(url).Do(ctx)
				if err != nil {
					return err
				}
				if errorText != "" {
					return fmt.Errorf("page load error %s", errorText)
				}
				return nil
			}),
			chromedp.WaitReady("body", chromedp.ByQuery),
		}
	}
}

func (r ChromeRenderer) Render(ctx context.Context, url string, opts Options) (Payload, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions(opts)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	var nextData any
	var ldBlocks []string

	tasks := chromedp.Tasks{
		network.Enable(),
		network.SetExtraHTTPHeaders(browserHeaders),
		emulation.SetTimezoneOverride(browserTZ),
		emulation.SetLocaleOverride().WithLocale(browserLang),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		navigateAction(url, opts.WaitUntil),
	}
	if opts.WaitFor > 0 {
		tasks = append(tasks, chromedp.Sleep(opts.WaitFor))
	}
	tasks = append(tasks,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Evaluate(nextDataScript, &nextData),
		chromedp.Evaluate(ldJSONScript, &ldBlocks),
	)

	err := chromedp.Run(browserCtx, tasks)
	if err != nil {
		return Payload{}, fmt.Errorf("chrome: render %s: %w", url, err)
	}

	return Payload{
		HTML:     html,
		NextData: nextData,
		LdJSON:   ParseLdJSON(ldBlocks),
	}, nil
}
