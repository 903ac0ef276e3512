package interceptor

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/t86xu3/dcard-auto/internal/bus"
)

// Interceptor passively observes the attached page's own network traffic and
// its embedded render state, and broadcasts every product payload it finds.
// It never alters a request or response; bodies are read from the protocol's
// response cache after the page has consumed them.
type Interceptor struct {
	events  *bus.Bus
	logger  *zap.Logger
	settle  time.Duration
	navPoll time.Duration

	mu      sync.Mutex
	origin  string
	pending map[network.RequestID]observedResponse
}

// observedResponse is a matched product-API response awaiting its body.
type observedResponse struct {
	url          string
	resourceType network.ResourceType
}

func New(events *bus.Bus, origin string, settle, navPoll time.Duration, logger *zap.Logger) *Interceptor {
	return &Interceptor{
		events:  events,
		logger:  logger,
		settle:  settle,
		navPoll: navPoll,
		origin:  origin,
		pending: make(map[network.RequestID]observedResponse),
	}
}

// Attach installs the network and navigation observers on the page context.
// Must be called once before Run.
func (i *Interceptor) Attach(ctx context.Context) error {
	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		return err
	}

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev := ev.(type) {
		case *network.EventResponseReceived:
			if ev.Type != network.ResourceTypeXHR && ev.Type != network.ResourceTypeFetch {
				return
			}
			if !isProductAPI(ev.Response.URL) {
				return
			}
			i.track(ev.RequestID, ev.Response.URL, ev.Type)
		case *network.EventLoadingFinished:
			if observed, ok := i.take(ev.RequestID); ok {
				go i.harvest(ctx, ev.RequestID, observed)
			}
		case *page.EventFrameNavigated:
			if ev.Frame.ParentID != "" {
				return
			}
			i.setOrigin(bus.OriginOf(ev.Frame.URL))
		}
	})
	return nil
}

func (i *Interceptor) track(id network.RequestID, url string, rt network.ResourceType) {
	i.mu.Lock()
	i.pending[id] = observedResponse{url: url, resourceType: rt}
	i.mu.Unlock()
}

func (i *Interceptor) take(id network.RequestID) (observedResponse, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	observed, ok := i.pending[id]
	if ok {
		delete(i.pending, id)
	}
	return observed, ok
}

func (i *Interceptor) setOrigin(origin string) {
	if origin == "" {
		return
	}
	i.mu.Lock()
	i.origin = origin
	i.mu.Unlock()
}

func (i *Interceptor) currentOrigin() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.origin
}

// harvest reads the finished response's body and runs the extraction
// strategy for its resource type. Every failure is swallowed with a log; the
// page's own consumption of the response is unaffected either way.
func (i *Interceptor) harvest(ctx context.Context, id network.RequestID, observed observedResponse) {
	c := chromedp.FromContext(ctx)
	if c == nil || c.Target == nil {
		return
	}
	body, err := network.GetResponseBody(id).Do(cdp.WithExecutor(ctx, c.Target))
	if err != nil {
		i.logger.Debug("response body unavailable", zap.String("url", observed.url), zap.Error(err))
		return
	}

	payload, err := decodeBody(body)
	if err != nil {
		i.logger.Debug("could not parse product API response", zap.String("url", observed.url), zap.Error(err))
		return
	}

	extract := extractFetch
	if observed.resourceType == network.ResourceTypeXHR {
		extract = extractXHR
	}
	item, ok := extract(payload)
	if !ok {
		return
	}

	i.logger.Info("product payload observed",
		zap.String("url", observed.url),
		zap.String("via", string(observed.resourceType)))
	i.events.Publish(bus.Event{
		Topic:   bus.TopicProductDetected,
		Origin:  i.currentOrigin(),
		Payload: item,
	})
}
