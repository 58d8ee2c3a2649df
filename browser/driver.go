package browser

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Element is a handle to a single DOM node on a live page.
type Element interface {
	// Text returns the visible text content of the node.
	Text() (string, error)
	// Attribute returns the value of an attribute, or "" when absent.
	Attribute(name string) (string, error)
	// HTML returns the outer HTML of the node.
	HTML() (string, error)
	// Click dispatches a native click on the node.
	Click() error
	// Visible reports whether the node is rendered (not display:none).
	Visible() (bool, error)
	// Element finds the first descendant matching the selector.
	Element(selector string) (Element, error)
	// Elements finds all descendants matching the selector.
	Elements(selector string) ([]Element, error)
}

// Driver is the narrow command surface the platform adapters drive a live
// page through. The target portals are uncontrolled asynchronous client
// applications, so every operation here is black-box: selector presence,
// visibility, text content, and injected script evaluation. Keeping the
// surface this small lets tests substitute a fake page.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitLoad(ctx context.Context) error

	Has(selector string) (bool, error)
	Element(selector string) (Element, error)
	Elements(selector string) ([]Element, error)

	// Eval evaluates a script in the page for its side effects.
	Eval(ctx context.Context, js string) error
	// EvalBool evaluates a script and interprets the result as a boolean.
	EvalBool(ctx context.Context, js string) (bool, error)
	// EvalString evaluates a script and interprets the result as a string.
	EvalString(ctx context.Context, js string) (string, error)

	// SetField applies a value to an input in two phases: write the value
	// property, then dispatch native input and change events so listeners
	// observe the write.
	SetField(ctx context.Context, selector, value string) error
	// Click clicks the first element matching the selector.
	Click(ctx context.Context, selector string) error

	// HTML returns the full serialized page HTML.
	HTML(ctx context.Context) (string, error)

	// OpenTab opens an isolated tab on the same browser, navigated to url.
	// The caller owns the returned driver and must Close it.
	OpenTab(ctx context.Context, url string) (Driver, error)
	Close() error
}

const setFieldScript = `(sel, val) => {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.value = val;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

// Page adapts a rod page to the Driver interface.
type Page struct {
	page    *rod.Page
	timeout time.Duration
}

// NewPage wraps a rod page. elementTimeout bounds element lookups; zero
// means a 10 second default.
func NewPage(p *rod.Page, elementTimeout time.Duration) *Page {
	if elementTimeout <= 0 {
		elementTimeout = 10 * time.Second
	}
	return &Page{page: p, timeout: elementTimeout}
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	return p.page.Context(ctx).Navigate(url)
}

func (p *Page) WaitLoad(ctx context.Context) error {
	return p.page.Context(ctx).WaitLoad()
}

func (p *Page) Has(selector string) (bool, error) {
	has, _, err := p.page.Has(selector)
	return has, err
}

func (p *Page) Element(selector string) (Element, error) {
	el, err := p.page.Timeout(p.timeout).Element(selector)
	if err != nil {
		return nil, err
	}
	return &pageElement{el: el.CancelTimeout()}, nil
}

func (p *Page) Elements(selector string) ([]Element, error) {
	els, err := p.page.Elements(selector)
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &pageElement{el: el})
	}
	return out, nil
}

func (p *Page) Eval(ctx context.Context, js string) error {
	_, err := p.page.Context(ctx).Eval(js)
	return err
}

func (p *Page) EvalBool(ctx context.Context, js string) (bool, error) {
	res, err := p.page.Context(ctx).Eval(js)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (p *Page) EvalString(ctx context.Context, js string) (string, error) {
	res, err := p.page.Context(ctx).Eval(js)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (p *Page) SetField(ctx context.Context, selector, value string) error {
	_, err := p.page.Context(ctx).Eval(setFieldScript, selector, value)
	return err
}

func (p *Page) Click(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Timeout(p.timeout).Element(selector)
	if err != nil {
		return err
	}
	return el.CancelTimeout().Click(proto.InputMouseButtonLeft, 1)
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *Page) OpenTab(ctx context.Context, url string) (Driver, error) {
	tab, err := p.page.Browser().Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, err
	}
	if err := tab.Context(ctx).WaitLoad(); err != nil {
		// Navigation already happened; a load-wait error is not fatal for
		// scraping, the caller polls readiness anyway.
		return NewPage(tab, p.timeout), nil
	}
	return NewPage(tab, p.timeout), nil
}

func (p *Page) Close() error {
	return p.page.Close()
}

type pageElement struct {
	el *rod.Element
}

func (e *pageElement) Text() (string, error) {
	return e.el.Text()
}

func (e *pageElement) Attribute(name string) (string, error) {
	attr, err := e.el.Attribute(name)
	if err != nil {
		return "", err
	}
	if attr == nil {
		return "", nil
	}
	return *attr, nil
}

func (e *pageElement) HTML() (string, error) {
	return e.el.HTML()
}

func (e *pageElement) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *pageElement) Visible() (bool, error) {
	return e.el.Visible()
}

func (e *pageElement) Element(selector string) (Element, error) {
	el, err := e.el.Element(selector)
	if err != nil {
		return nil, err
	}
	return &pageElement{el: el}, nil
}

func (e *pageElement) Elements(selector string) ([]Element, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &pageElement{el: el})
	}
	return out, nil
}
