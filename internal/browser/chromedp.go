package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"jortega/reviewscout/logger"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"

// Config controls how the Chrome session is launched
type Config struct {
	Headless     bool
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	ProxyServer  string
}

// Chrome owns one Chrome process and the single tab the engine drives
type Chrome struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	log         *logger.Logger
}

var _ Page = (*Chrome)(nil)

// New launches Chrome and returns a ready page handle
func New(parent context.Context, cfg Config) (*Chrome, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.WindowWidth == 0 {
		cfg.WindowWidth = 1366
	}
	if cfg.WindowHeight == 0 {
		cfg.WindowHeight = 900
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if cfg.ProxyServer != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.ProxyServer))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	hideWebdriver := chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(
			"Object.defineProperty(navigator, 'webdriver', {get: () => undefined});",
		).Do(ctx)
		return err
	})
	if err := chromedp.Run(ctx, hideWebdriver); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	return &Chrome{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		log:         logger.Component("browser"),
	}, nil
}

// Close shuts down the Chrome process
func (c *Chrome) Close() {
	c.cancel()
	c.allocCancel()
}

func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(c.ctx, actions...)
}

func (c *Chrome) eval(ctx context.Context, js string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(c.ctx, chromedp.Evaluate(js, out))
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func jsStrings(values []string) string {
	b, _ := json.Marshal(values)
	return string(b)
}

// Navigate loads url and waits for the document to be interactive
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	c.log.Debug().Str("url", url).Msg("Navigating")
	return c.run(ctx, chromedp.Navigate(url))
}

// WaitVisible blocks until the first match of sel is visible or the timeout
// elapses
func (c *Chrome) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

// Visible reports whether the index-th match of sel is currently visible
func (c *Chrome) Visible(ctx context.Context, sel string, index int) (bool, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%s)[%d];
		if (!el) return false;
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		return rect.width > 0 && rect.height > 0 &&
			style.visibility !== 'hidden' && style.display !== 'none';
	})()`, jsString(sel), index)

	var visible bool
	if err := c.eval(ctx, js, &visible); err != nil {
		return false, err
	}
	return visible, nil
}

// Count returns how many elements match sel
func (c *Chrome) Count(ctx context.Context, sel string) (int, error) {
	js := fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(sel))
	var count int
	if err := c.eval(ctx, js, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// Text returns the rendered text of the index-th match, "" when absent
func (c *Chrome) Text(ctx context.Context, sel string, index int) (string, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%s)[%d];
		if (!el) return "";
		return el.innerText || el.textContent || "";
	})()`, jsString(sel), index)

	var text string
	if err := c.eval(ctx, js, &text); err != nil {
		return "", err
	}
	return text, nil
}

// Attribute returns the named attribute of the index-th match, "" when absent
func (c *Chrome) Attribute(ctx context.Context, sel string, index int, name string) (string, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%s)[%d];
		if (!el) return "";
		return el.getAttribute(%s) || "";
	})()`, jsString(sel), index, jsString(name))

	var value string
	if err := c.eval(ctx, js, &value); err != nil {
		return "", err
	}
	return value, nil
}

// TagName returns the upper-case tag name of the index-th match
func (c *Chrome) TagName(ctx context.Context, sel string, index int) (string, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%s)[%d];
		return el ? el.tagName : "";
	})()`, jsString(sel), index)

	var tag string
	if err := c.eval(ctx, js, &tag); err != nil {
		return "", err
	}
	return tag, nil
}

// InTablist reports whether the index-th match sits inside a tablist
func (c *Chrome) InTablist(ctx context.Context, sel string, index int) (bool, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%s)[%d];
		return !!(el && el.closest('[role="tablist"]'));
	})()`, jsString(sel), index)

	var inside bool
	if err := c.eval(ctx, js, &inside); err != nil {
		return false, err
	}
	return inside, nil
}

// NestedDivTextCount counts div descendants of the index-th match whose text
// contains any of the terms
func (c *Chrome) NestedDivTextCount(ctx context.Context, sel string, index int, terms []string) (int, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%s)[%d];
		if (!el) return 0;
		const terms = %s.map(t => t.toLowerCase());
		let hits = 0;
		for (const div of el.querySelectorAll('div')) {
			const text = (div.innerText || div.textContent || '').toLowerCase();
			if (terms.some(t => text.includes(t))) hits++;
		}
		return hits;
	})()`, jsString(sel), index, jsStrings(terms))

	var hits int
	if err := c.eval(ctx, js, &hits); err != nil {
		return 0, err
	}
	return hits, nil
}

// OuterHTML returns the full markup of the index-th match, "" when absent
func (c *Chrome) OuterHTML(ctx context.Context, sel string, index int) (string, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%s)[%d];
		return el ? el.outerHTML : "";
	})()`, jsString(sel), index)

	var markup string
	if err := c.eval(ctx, js, &markup); err != nil {
		return "", err
	}
	return markup, nil
}

// DescendantText returns the text of the first childSel descendant of the
// index-th match of sel
func (c *Chrome) DescendantText(ctx context.Context, sel string, index int, childSel string) (string, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%s)[%d];
		if (!el) return "";
		const child = el.querySelector(%s);
		if (!child) return "";
		return child.innerText || child.textContent || "";
	})()`, jsString(sel), index, jsString(childSel))

	var text string
	if err := c.eval(ctx, js, &text); err != nil {
		return "", err
	}
	return text, nil
}

// DescendantAttr returns the named attribute of the first childSel
// descendant of the index-th match of sel
func (c *Chrome) DescendantAttr(ctx context.Context, sel string, index int, childSel, name string) (string, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%s)[%d];
		if (!el) return "";
		const child = el.querySelector(%s);
		if (!child) return "";
		return child.getAttribute(%s) || "";
	})()`, jsString(sel), index, jsString(childSel), jsString(name))

	var value string
	if err := c.eval(ctx, js, &value); err != nil {
		return "", err
	}
	return value, nil
}

// DescendantAttrs returns the named attribute of every childSel descendant
// of the index-th match of sel, in document order
func (c *Chrome) DescendantAttrs(ctx context.Context, sel string, index int, childSel, name string) ([]string, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%s)[%d];
		if (!el) return [];
		const values = [];
		for (const child of el.querySelectorAll(%s)) {
			const v = child.getAttribute(%s);
			if (v) values.push(v);
		}
		return values;
	})()`, jsString(sel), index, jsString(childSel), jsString(name))

	values := []string{}
	if err := c.eval(ctx, js, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// Click scrolls the index-th match into view and clicks it. Clicking through
// the page script keeps SPA handlers working where a synthetic mouse event
// at stale coordinates would not.
func (c *Chrome) Click(ctx context.Context, sel string, index int) error {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%s)[%d];
		if (!el) return false;
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;
	})()`, jsString(sel), index)

	var clicked bool
	if err := c.eval(ctx, js, &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("no element at index %d for selector %q", index, sel)
	}
	return nil
}

// DescendantClick clicks the first childSel descendant of the index-th
// match of sel, so the click stays inside that match even when other
// matches contain the same descendant shape
func (c *Chrome) DescendantClick(ctx context.Context, sel string, index int, childSel string) error {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%s)[%d];
		if (!el) return false;
		const child = el.querySelector(%s);
		if (!child) return false;
		child.scrollIntoView({block: 'center'});
		child.click();
		return true;
	})()`, jsString(sel), index, jsString(childSel))

	var clicked bool
	if err := c.eval(ctx, js, &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("no %q descendant at index %d for selector %q", childSel, index, sel)
	}
	return nil
}

// ClearInput empties the first input matching sel
func (c *Chrome) ClearInput(ctx context.Context, sel string) error {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.focus();
		el.value = '';
		el.dispatchEvent(new Event('input', {bubbles: true}));
		return true;
	})()`, jsString(sel))

	var ok bool
	if err := c.eval(ctx, js, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no input for selector %q", sel)
	}
	return nil
}

// TypeChar sends one character to the first input matching sel
func (c *Chrome) TypeChar(ctx context.Context, sel string, ch rune) error {
	return c.run(ctx, chromedp.SendKeys(sel, string(ch), chromedp.ByQuery))
}

// ScrollFeedStep locates the scrollable ancestor of the first review card and
// scrolls it by stepPx. When no card or scrollable ancestor exists it falls
// back to scrolling the window so late-rendering feeds still get a chance to
// load.
func (c *Chrome) ScrollFeedStep(ctx context.Context, cardSelectors []string, stepPx int) (FeedState, error) {
	js := fmt.Sprintf(`(() => {
		const selectors = %s;
		const requestedStep = %d;

		let card = null;
		for (const selector of selectors) {
			card = document.querySelector(selector);
			if (card) break;
		}

		if (!card) {
			window.scrollBy(0, Math.max(480, window.innerHeight * 0.6));
			return {found: false, scrolled: false, at_bottom: true,
				scroll_top: 0, scroll_height: 0, client_height: 0, review_count: 0};
		}

		let parent = card.parentElement;
		while (parent) {
			const style = window.getComputedStyle(parent);
			const overflowY = style.overflowY;
			const canScroll = parent.scrollHeight > parent.clientHeight + 20;
			if ((overflowY === 'auto' || overflowY === 'scroll') && canScroll) {
				const before = parent.scrollTop;
				const step = requestedStep > 0
					? requestedStep
					: Math.max(420, parent.clientHeight * 0.9);
				parent.scrollBy(0, step);
				if (parent.scrollTop === before) {
					parent.scrollTop = Math.min(parent.scrollTop + step, parent.scrollHeight);
				}
				const after = parent.scrollTop;
				const atBottom = after + parent.clientHeight >= parent.scrollHeight - 4;
				return {found: true, scrolled: after > before, at_bottom: atBottom,
					scroll_top: Math.round(after),
					scroll_height: Math.round(parent.scrollHeight),
					client_height: Math.round(parent.clientHeight), review_count: 0};
			}
			parent = parent.parentElement;
		}

		window.scrollBy(0, Math.max(480, window.innerHeight * 0.6));
		return {found: false, scrolled: true, at_bottom: true,
			scroll_top: 0, scroll_height: 0, client_height: 0, review_count: 0};
	})()`, jsStrings(cardSelectors), stepPx)

	var state FeedState
	if err := c.eval(ctx, js, &state); err != nil {
		return FeedState{}, err
	}
	return state, nil
}

// CaptureFeedHTML returns the outerHTML of the scrollable reviews container,
// or a synthetic wrapper around the bare cards when none exists
func (c *Chrome) CaptureFeedHTML(ctx context.Context, cardSelectors []string) (string, error) {
	js := fmt.Sprintf(`(() => {
		const selectors = %s;

		let card = null;
		for (const selector of selectors) {
			card = document.querySelector(selector);
			if (card) break;
		}

		const findScrollableParent = (node) => {
			let parent = node ? node.parentElement : null;
			while (parent) {
				const style = window.getComputedStyle(parent);
				const overflowY = style.overflowY;
				const canScroll = parent.scrollHeight > parent.clientHeight + 20;
				if ((overflowY === 'auto' || overflowY === 'scroll') && canScroll) {
					return parent;
				}
				parent = parent.parentElement;
			}
			return null;
		};

		const feed = findScrollableParent(card);
		if (feed) return feed.outerHTML;

		const cards = [];
		for (const selector of selectors) {
			for (const node of document.querySelectorAll(selector)) {
				cards.push(node.outerHTML);
			}
		}
		if (cards.length > 0) {
			return '<div data-review-feed-fallback="true">' + cards.join('') + '</div>';
		}
		return '';
	})()`, jsStrings(cardSelectors))

	var snapshot string
	if err := c.eval(ctx, js, &snapshot); err != nil {
		return "", err
	}
	return snapshot, nil
}

// BodyTextContains reports whether the page body text contains any term
func (c *Chrome) BodyTextContains(ctx context.Context, terms []string) (bool, error) {
	js := fmt.Sprintf(`(() => {
		const text = (document.body ? document.body.innerText : '').toLowerCase();
		return %s.some(t => text.includes(t.toLowerCase()));
	})()`, jsStrings(terms))

	var found bool
	if err := c.eval(ctx, js, &found); err != nil {
		return false, err
	}
	return found, nil
}
