// Package drivertest provides an in-memory browser.Driver for adapter tests.
// Pages are described as selector-to-node tables; hooks let a test script the
// portal's asynchronous behavior (rows appearing after a search click, panels
// mounting after a toggle).
package drivertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/civiclens/permit-crawler/browser"
)

// Node is a fake DOM node.
type Node struct {
	TextValue  string
	Attrs      map[string]string
	OuterHTML  string
	Hidden     bool
	ClickErr   error
	ClickCount int
	Kids       map[string][]*Node

	// OnClick runs when the node is clicked, before ClickErr is returned.
	OnClick func()
}

// TextNode builds a node holding only text.
func TextNode(text string) *Node {
	return &Node{TextValue: text}
}

func (n *Node) Text() (string, error) { return n.TextValue, nil }

func (n *Node) Attribute(name string) (string, error) {
	if n.Attrs == nil {
		return "", nil
	}
	return n.Attrs[name], nil
}

func (n *Node) HTML() (string, error) { return n.OuterHTML, nil }

func (n *Node) Click() error {
	n.ClickCount++
	if n.OnClick != nil {
		n.OnClick()
	}
	return n.ClickErr
}

func (n *Node) Visible() (bool, error) { return !n.Hidden, nil }

func (n *Node) Element(selector string) (browser.Element, error) {
	kids := n.Kids[selector]
	if len(kids) == 0 {
		return nil, fmt.Errorf("element not found: %s", selector)
	}
	return kids[0], nil
}

func (n *Node) Elements(selector string) ([]browser.Element, error) {
	kids := n.Kids[selector]
	out := make([]browser.Element, 0, len(kids))
	for _, k := range kids {
		out = append(out, k)
	}
	return out, nil
}

// Page is a fake browser page.
type Page struct {
	mu sync.Mutex

	nodes       map[string][]*Node
	fields      map[string]string
	clicked     []string
	navigations []string
	html        string
	closed      bool

	// Script hooks. Nil hooks return zero values without error.
	EvalFunc       func(js string) error
	EvalBoolFunc   func(js string) (bool, error)
	EvalStringFunc func(js string) (string, error)

	// OnClick runs after any driver-level click on the page.
	OnClick func(p *Page, selector string)
	// OnNavigate runs after every navigation.
	OnNavigate func(p *Page, url string)

	// Tabs maps exact URLs to the page OpenTab returns. TabFunc is consulted
	// when no exact entry exists.
	Tabs    map[string]*Page
	TabFunc func(url string) (*Page, error)

	openedTabs []*Page
	NavErr     error
}

// NewPage creates an empty fake page.
func NewPage() *Page {
	return &Page{
		nodes:  make(map[string][]*Node),
		fields: make(map[string]string),
		Tabs:   make(map[string]*Page),
	}
}

// SetNodes replaces the nodes a selector resolves to.
func (p *Page) SetNodes(selector string, nodes ...*Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodes[selector] = nodes
}

// RemoveNodes clears a selector.
func (p *Page) RemoveNodes(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.nodes, selector)
}

// SetHTML sets what HTML returns.
func (p *Page) SetHTML(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
}

// Fields returns the values applied through SetField, keyed by selector.
func (p *Page) Fields() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.fields))
	for k, v := range p.fields {
		out[k] = v
	}
	return out
}

// Clicked returns the selectors clicked through the driver, in order.
func (p *Page) Clicked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicked...)
}

// Navigations returns every URL navigated to, in order.
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// OpenedTabs returns every tab handed out by OpenTab.
func (p *Page) OpenedTabs() []*Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Page(nil), p.openedTabs...)
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

/* browser.Driver implementation */

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.navigations = append(p.navigations, url)
	hook := p.OnNavigate
	p.mu.Unlock()

	if p.NavErr != nil {
		return p.NavErr
	}
	if hook != nil {
		hook(p, url)
	}
	return nil
}

func (p *Page) WaitLoad(ctx context.Context) error { return nil }

func (p *Page) Has(selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.nodes[selector]) > 0, nil
}

func (p *Page) Element(selector string) (browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	nodes := p.nodes[selector]
	if len(nodes) == 0 {
		return nil, fmt.Errorf("element not found: %s", selector)
	}
	return nodes[0], nil
}

func (p *Page) Elements(selector string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	nodes := p.nodes[selector]
	out := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n)
	}
	return out, nil
}

func (p *Page) Eval(ctx context.Context, js string) error {
	if p.EvalFunc != nil {
		return p.EvalFunc(js)
	}
	return nil
}

func (p *Page) EvalBool(ctx context.Context, js string) (bool, error) {
	if p.EvalBoolFunc != nil {
		return p.EvalBoolFunc(js)
	}
	return false, nil
}

func (p *Page) EvalString(ctx context.Context, js string) (string, error) {
	if p.EvalStringFunc != nil {
		return p.EvalStringFunc(js)
	}
	return "", nil
}

func (p *Page) SetField(ctx context.Context, selector, value string) error {
	p.mu.Lock()
	p.fields[selector] = value
	p.mu.Unlock()
	return nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	p.clicked = append(p.clicked, selector)
	nodes := p.nodes[selector]
	hook := p.OnClick
	p.mu.Unlock()

	if len(nodes) == 0 {
		return fmt.Errorf("element not found: %s", selector)
	}
	if err := nodes[0].Click(); err != nil {
		return err
	}
	if hook != nil {
		hook(p, selector)
	}
	return nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *Page) OpenTab(ctx context.Context, url string) (browser.Driver, error) {
	p.mu.Lock()
	tab, ok := p.Tabs[url]
	fn := p.TabFunc
	p.mu.Unlock()

	if !ok && fn != nil {
		var err error
		tab, err = fn(url)
		if err != nil {
			return nil, err
		}
	}
	if tab == nil {
		tab = NewPage()
	}

	p.mu.Lock()
	p.openedTabs = append(p.openedTabs, tab)
	p.mu.Unlock()
	return tab, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
