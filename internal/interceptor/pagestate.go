package interceptor

import (
	"context"
	"regexp"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/t86xu3/dcard-auto/internal/bus"
)

// productPathPattern matches client-side navigations that land on a product
// page, either the canonical path or the short "-i.<shop>.<item>" form.
var productPathPattern = regexp.MustCompile(`/product/|-i\.\d+\.\d+`)

// readEmbeddedState pulls the page-embedded initial render state, if any.
const readEmbeddedStateJS = `(() => {
	const el = document.getElementById('__NEXT_DATA__');
	return el ? el.textContent : '';
})()`

// Run drives the embedded-state scan: once after the settle delay, then
// again after every detected client-side navigation onto a product URL. The
// watcher polls location.href; a full reload is already covered by the frame
// navigation events. Run blocks until the context is cancelled.
func (i *Interceptor) Run(ctx context.Context) {
	timer := time.NewTimer(i.settle)
	defer timer.Stop()
	select {
	case <-timer.C:
		i.scanEmbeddedState(ctx)
	case <-ctx.Done():
		return
	}

	lastURL := i.pageURL(ctx)
	ticker := time.NewTicker(i.navPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := i.pageURL(ctx)
			if current == "" || current == lastURL {
				continue
			}
			lastURL = current
			if !productPathPattern.MatchString(current) {
				continue
			}
			i.logger.Debug("product navigation detected", zap.String("url", current))
			select {
			case <-time.After(i.settle + 500*time.Millisecond):
				i.scanEmbeddedState(ctx)
			case <-ctx.Done():
				return
			}
		}
	}
}

func (i *Interceptor) pageURL(ctx context.Context) string {
	var href string
	if err := chromedp.Run(ctx, chromedp.Evaluate(`location.href`, &href)); err != nil {
		return ""
	}
	return href
}

// scanEmbeddedState reads the embedded render state and, when it holds an
// identified product, broadcasts it like an intercepted response. Absent or
// malformed state is silently ignored.
func (i *Interceptor) scanEmbeddedState(ctx context.Context) {
	var text string
	if err := chromedp.Run(ctx, chromedp.Evaluate(readEmbeddedStateJS, &text)); err != nil || text == "" {
		return
	}

	state, err := decodeBody([]byte(text))
	if err != nil {
		return
	}

	props := child(state, "props")
	item := child(child(props, "pageProps"), "itemData")
	if item == nil {
		item = child(child(props, "initialProps"), "itemData")
	}
	if !hasItemID(item) {
		return
	}
	normalizeAliases(item)

	i.logger.Info("product payload found in embedded page state")
	i.events.Publish(bus.Event{
		Topic:   bus.TopicProductDetected,
		Origin:  i.currentOrigin(),
		Payload: item,
	})
}
