package agent

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/t86xu3/dcard-auto/internal/bus"
	"github.com/t86xu3/dcard-auto/internal/domain"
)

// ErrNoProductData reports a capture request before any payload was observed.
var ErrNoProductData = errors.New("no product data")

// Capturer persists a captured payload. Implemented by the controller.
type Capturer interface {
	Capture(ctx context.Context, raw domain.RawPayload) (domain.Product, error)
}

// Page supplies snapshots of the attached live page and user-visible hints.
type Page interface {
	HTML(ctx context.Context) (string, error)
	ShowBanner(ctx context.Context, productName string) error
}

// Agent bridges the interceptor's broadcasts and the controller. It holds
// exactly one "current" payload, overwritten on every broadcast, and forwards
// it only on an explicit capture command. All of its state is owned by the
// Run goroutine; commands and broadcasts are serialized through it.
type Agent struct {
	events   <-chan bus.Event
	commands chan captureCommand
	capturer Capturer
	page     Page
	logger   *zap.Logger

	current domain.RawPayload
}

type captureCommand struct {
	ctx   context.Context
	reply chan captureResult
}

type captureResult struct {
	product domain.Product
	err     error
}

func New(events *bus.Bus, capturer Capturer, page Page, logger *zap.Logger) *Agent {
	return &Agent{
		events:   events.Subscribe(bus.TopicProductDetected),
		commands: make(chan captureCommand),
		capturer: capturer,
		page:     page,
		logger:   logger,
	}
}

// Run processes broadcasts and capture commands until the context is
// cancelled. Each event runs to completion before the next is taken.
func (a *Agent) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-a.events:
			payload, ok := ev.Payload.(domain.RawPayload)
			if !ok {
				continue
			}
			// Last write wins; no queue, no history.
			a.current = payload
			a.logger.Info("product payload ready",
				zap.String("name", payloadName(payload)))
		case cmd := <-a.commands:
			cmd.reply <- a.capture(cmd.ctx)
		}
	}
}

// Capture forwards the currently held payload to the controller, enriched
// with description images scraped from the live DOM. It fails with
// ErrNoProductData when nothing has been observed yet.
func (a *Agent) Capture(ctx context.Context) (domain.Product, error) {
	cmd := captureCommand{ctx: ctx, reply: make(chan captureResult, 1)}
	select {
	case a.commands <- cmd:
	case <-ctx.Done():
		return domain.Product{}, ctx.Err()
	}
	select {
	case res := <-cmd.reply:
		return res.product, res.err
	case <-ctx.Done():
		return domain.Product{}, ctx.Err()
	}
}

func (a *Agent) capture(ctx context.Context) captureResult {
	if a.current == nil {
		return captureResult{err: ErrNoProductData}
	}

	// DOM enrichment is best-effort; a capture must not fail because the
	// page snapshot did.
	if html, err := a.page.HTML(ctx); err != nil {
		a.logger.Warn("page snapshot failed, capturing without DOM images", zap.Error(err))
	} else if scraped := ScrapeDescriptionImages(html); len(scraped) > 0 {
		added := enrichDescriptionImages(a.current, scraped)
		if added > 0 {
			a.logger.Info("description images found in DOM", zap.Int("added", added))
		}
	}

	product, err := a.capturer.Capture(ctx, a.current)
	if err != nil {
		return captureResult{err: err}
	}

	if err := a.page.ShowBanner(ctx, product.Name); err != nil {
		a.logger.Debug("could not show capture banner", zap.Error(err))
	}
	return captureResult{product: product}
}

// enrichDescriptionImages appends scraped URLs to the payload's description
// image list, skipping any whose thumbnail-stripped form is already present.
// Returns the number of images added.
func enrichDescriptionImages(raw domain.RawPayload, scraped []string) int {
	var existing []string
	if arr, ok := raw["description_images"].([]any); ok {
		for _, entry := range arr {
			if s, ok := entry.(string); ok {
				existing = append(existing, s)
			}
		}
	}

	merged := domain.MergeDescriptionImages(existing, scraped)
	added := len(merged) - len(existing)
	if added == 0 {
		return 0
	}

	out := make([]any, len(merged))
	for i, url := range merged {
		out[i] = url
	}
	raw["description_images"] = out
	return added
}

func payloadName(raw domain.RawPayload) string {
	for _, key := range []string{"title", "name"} {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return "(unnamed product)"
}
