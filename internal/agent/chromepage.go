package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/chromedp"
)

// ChromePage reads from the browser tab the interceptor is attached to.
type ChromePage struct {
	tabCtx context.Context
}

func NewChromePage(tabCtx context.Context) *ChromePage {
	return &ChromePage{tabCtx: tabCtx}
}

func (p *ChromePage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(p.tabCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", err
	}
	return html, nil
}

// ShowBanner injects a transient confirmation into the page, keyed off the
// captured product's display name. The banner removes itself after 2.5s.
func (p *ChromePage) ShowBanner(ctx context.Context, productName string) error {
	name, err := json.Marshal(productName)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(`(() => {
		const old = document.getElementById('dcard-auto-capture-banner');
		if (old) old.remove();
		const el = document.createElement('div');
		el.id = 'dcard-auto-capture-banner';
		el.textContent = 'Captured: ' + %s;
		el.style.cssText = 'position:fixed;top:20px;right:20px;z-index:999999;' +
			'background:#3B82F6;color:#fff;padding:12px 20px;border-radius:8px;' +
			'font-size:14px;font-family:sans-serif;';
		document.body.appendChild(el);
		setTimeout(() => el.remove(), 2500);
		return true;
	})()`, name)

	var shown bool
	return chromedp.Run(p.tabCtx, chromedp.Evaluate(script, &shown))
}
