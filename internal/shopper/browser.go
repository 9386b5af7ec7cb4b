package shopper

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"mspro-labs/weekly-shop/internal/basket"
	"mspro-labs/weekly-shop/internal/config"
	"mspro-labs/weekly-shop/internal/matcher"
	"mspro-labs/weekly-shop/internal/models"
	"mspro-labs/weekly-shop/internal/report"
	"mspro-labs/weekly-shop/internal/retry"
)

// ErrNoMatch means the search returned nothing that fits the item.
var ErrNoMatch = errors.New("no matching product in search results")

const (
	loginSettle  = 500 * time.Millisecond
	searchSettle = 1 * time.Second // laggy javascript on the search box
	stableWindow = 1 * time.Second

	confirmTimeout    = 5 * time.Second
	navigationTimeout = 30 * time.Second
)

// Browser is a Session backed by a real browser driven through rod.
type Browser struct {
	cfg     *config.SiteConfig
	sel     config.Selectors
	policy  retry.Policy
	matcher *matcher.Matcher

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

var _ Session = (*Browser)(nil)

// Run launches the browser, shops and always releases the browser.
func Run(ctx context.Context, cfg *config.SiteConfig, m *matcher.Matcher, items []models.Item, opts Options) (*report.Report, error) {
	logger.Println("Launching browser...")
	b, err := Open(ctx, cfg, m)
	if err != nil {
		return report.New(items), fmt.Errorf("failed to launch browser: %w", err)
	}
	defer b.Close()

	return Shop(ctx, b, items, opts)
}

// Open starts a browser with a stealth page. Callers must Close it.
func Open(ctx context.Context, cfg *config.SiteConfig, m *matcher.Matcher) (*Browser, error) {
	l := launcher.New().Headless(cfg.Browser.Headless).NoSandbox(true)
	if cfg.Browser.Bin != "" {
		l = l.Bin(cfg.Browser.Bin)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, err
	}

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		browser.Close()
		l.Kill()
		return nil, err
	}

	return &Browser{
		cfg:      cfg,
		sel:      cfg.Selectors,
		policy:   cfg.RetryPolicy(),
		matcher:  m,
		launcher: l,
		browser:  browser,
		page:     page,
	}, nil
}

// Close shuts the browser down and removes its temporary profile.
func (b *Browser) Close() {
	if err := b.browser.Close(); err != nil {
		logger.Printf("Failed to close browser: %v", err)
		b.launcher.Kill()
	}
	b.launcher.Cleanup()
}

func (b *Browser) Login() error {
	if err := b.page.Navigate(b.cfg.LoginURL); err != nil {
		return err
	}
	if err := b.page.WaitLoad(); err != nil {
		return err
	}
	time.Sleep(loginSettle)

	username, err := b.waitElement(b.sel.Username)
	if err != nil {
		return err
	}
	if err := username.Input(b.cfg.Username); err != nil {
		return err
	}

	password, err := b.waitElement(b.sel.Password)
	if err != nil {
		return err
	}
	if err := password.Input(b.cfg.Password); err != nil {
		return err
	}

	submit, err := b.waitElement(b.sel.LoginSubmit)
	if err != nil {
		return err
	}
	return b.clickAndWait(submit)
}

// EmptyBasket uses the empty-trolley link when the page offers it, then
// deletes whatever is left line by line since that button is unreliable.
func (b *Browser) EmptyBasket() error {
	has, link, err := b.page.Has(b.sel.EmptyTrolleyLink)
	if err != nil {
		return err
	}
	if has {
		if err := link.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
		pattern := `^\s*` + regexp.QuoteMeta(b.sel.ConfirmButtonText) + `\s*$`
		p := b.page.Timeout(confirmTimeout)
		err = rod.Try(func() {
			p.MustElementR(b.sel.ConfirmButton, pattern).MustClick()
			p.MustWaitStable()
		})
		p.CancelTimeout()
		if err != nil {
			logger.Printf("Empty trolley confirmation not found (ignoring): %v", err)
		}
	}

	return deleteAll(pageTrolley{page: b.page, selector: b.sel.DeleteTrolleyItem}, b.policy.Attempts)
}

// pageTrolley drives the delete links on the live trolley page. The whole
// table is reloaded by Ajax whenever a line changes, so links are looked up
// again on every call.
type pageTrolley struct {
	page     *rod.Page
	selector string
}

func (t pageTrolley) Count() (int, error) {
	links, err := t.page.Elements(t.selector)
	return len(links), err
}

func (t pageTrolley) DeleteFirst() error {
	links, err := t.page.Elements(t.selector)
	if err != nil {
		return err
	}
	if links.Empty() {
		return nil
	}
	if err := links.First().Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	if err := t.page.Reload(); err != nil {
		return err
	}
	return t.page.WaitLoad()
}

// AddItem searches for the item and adds the chosen result with the
// requested quantity.
func (b *Browser) AddItem(ctx context.Context, item models.Item) error {
	// 1. Search
	search, err := b.waitElement(b.sel.SearchInput)
	if err != nil {
		return err
	}
	if err := search.SelectAllText(); err != nil {
		return err
	}
	if err := search.Input(""); err != nil {
		return err
	}
	time.Sleep(searchSettle)
	if err := search.Input(item.Name); err != nil {
		return err
	}

	submit, err := b.waitElement(b.sel.SearchSubmit)
	if err != nil {
		return err
	}
	if err := b.clickAndWait(submit); err != nil {
		return err
	}

	// 2. Pick a result
	lister, err := b.waitElement(b.sel.ProductLister)
	if err != nil {
		return err
	}
	html, err := lister.HTML()
	if err != nil {
		return err
	}
	names, err := basket.ParseSearchResults(html, b.sel)
	if err != nil {
		return err
	}
	idx, err := b.matcher.Pick(ctx, names, item)
	if err != nil {
		return err
	}
	if idx < 0 {
		return fmt.Errorf("%w: %q among %d results", ErrNoMatch, item.Name, len(names))
	}

	products, err := lister.Elements(b.sel.Product)
	if err != nil {
		return err
	}
	if idx >= len(products) {
		return fmt.Errorf("result %d of %q is no longer on the page", idx, item.Name)
	}
	product := products[idx].Sleeper(rod.NotFoundSleeper)

	// 3. Set quantity and add
	qty, err := product.Element(b.sel.Quantity)
	if err != nil {
		return err
	}
	if err := qty.SelectAllText(); err != nil {
		return err
	}
	if err := qty.Input(strconv.Itoa(item.Quantity)); err != nil {
		return err
	}

	add, err := product.Element(b.sel.AddButton)
	if err != nil {
		return err
	}
	if err := add.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	return b.page.WaitStable(stableWindow)
}

// ReadBasket opens the full trolley view and scrapes it.
func (b *Browser) ReadBasket() ([]models.Item, error) {
	link, err := b.waitElement(b.sel.FullTrolleyLink)
	if err != nil {
		return nil, err
	}
	if err := b.clickAndWait(link); err != nil {
		return nil, err
	}
	if err := b.page.WaitStable(stableWindow); err != nil {
		return nil, err
	}

	html, err := b.page.HTML()
	if err != nil {
		return nil, err
	}
	return basket.ParseBasketHTML(html, b.sel)
}

// Checkout opens the delivery panel; slot choice and payment stay manual.
func (b *Browser) Checkout() error {
	link, err := b.waitElement(b.sel.Checkout)
	if err != nil {
		return err
	}
	return b.clickAndWait(link)
}

// waitElement polls for selector under the retry policy. The page's own
// waiting is disabled so each attempt is a single lookup.
func (b *Browser) waitElement(selector string) (*rod.Element, error) {
	var el *rod.Element
	err := retry.Poll(b.policy, func() error {
		var err error
		el, err = b.page.Sleeper(rod.NotFoundSleeper).Element(selector)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", selector, err)
	}
	return el, nil
}

// clickAndWait clicks el and waits for the page load it triggers.
func (b *Browser) clickAndWait(el *rod.Element) error {
	p := b.page.Timeout(navigationTimeout)
	defer p.CancelTimeout()

	wait := p.WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	wait()
	return nil
}
