package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/t86xu3/dcard-auto/internal/backend"
	"github.com/t86xu3/dcard-auto/internal/domain"
	"github.com/t86xu3/dcard-auto/internal/monitoring"
)

// Store is the persisted local state owned by the controller.
type Store interface {
	Products(ctx context.Context) ([]domain.Product, error)
	SaveProducts(ctx context.Context, products []domain.Product) error
	Token(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
	SavePendingArticle(ctx context.Context, article domain.Article) error
	PendingArticle(ctx context.Context) (domain.Article, error)
}

// Backend is the remote sync boundary.
type Backend interface {
	CreateProduct(ctx context.Context, token string, p domain.Product) (backend.Outcome, error)
	Login(ctx context.Context, username, password string) (token, resolvedName string, err error)
	Me(ctx context.Context, token string) (string, error)
}

// Archiver mirrors captured products into a secondary store, best-effort.
type Archiver interface {
	SaveProduct(ctx context.Context, p domain.Product) error
}

var (
	// ErrLoginRequired aborts a bulk resync when the backend rejects the token.
	ErrLoginRequired = errors.New("please log in")
	// ErrNothingToSync reports a bulk resync over an empty collection.
	ErrNothingToSync = errors.New("no products to sync")
)

// Controller owns the local product collection and the sync boundary. All
// token mutation goes through it; nothing else touches the collection.
type Controller struct {
	store   Store
	backend Backend
	archive Archiver // may be nil
	metrics *monitoring.Metrics
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	token string
}

func New(store Store, be Backend, archive Archiver, m *monitoring.Metrics, logger *zap.Logger) *Controller {
	return &Controller{
		store:   store,
		backend: be,
		archive: archive,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Hydrate loads persisted state into memory after a restart: the cached
// token, and the badge gauge from the current collection size.
func (c *Controller) Hydrate(ctx context.Context) {
	if token, err := c.store.Token(ctx); err == nil && token != "" {
		c.setToken(token)
	}
	if products, err := c.store.Products(ctx); err == nil {
		c.metrics.SetCollectionSize(len(products))
	}
}

// Capture normalizes a raw payload and merges it into the collection. A
// record with the same item id is replaced in place; a new one is appended.
// The local write always precedes the sync attempt and is never rolled back
// by a sync failure.
func (c *Controller) Capture(ctx context.Context, raw domain.RawPayload) (domain.Product, error) {
	product, err := domain.Normalize(raw, c.now())
	if err != nil {
		return domain.Product{}, err
	}

	products, err := c.store.Products(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	replaced := false
	for i := range products {
		if products[i].ItemID == product.ItemID {
			products[i] = product
			replaced = true
			break
		}
	}
	if !replaced {
		products = append(products, product)
	}

	// Local persistence is the source of truth; a failure here propagates.
	if err := c.store.SaveProducts(ctx, products); err != nil {
		return domain.Product{}, err
	}

	c.metrics.IncCaptures()
	c.metrics.SetCollectionSize(len(products))
	c.logger.Info("product captured",
		zap.String("item_id", product.ItemID),
		zap.String("name", product.Name),
		zap.Int("collection_size", len(products)))

	if c.archive != nil {
		if err := c.archive.SaveProduct(ctx, product); err != nil {
			c.logger.Warn("capture archive write failed", zap.String("item_id", product.ItemID), zap.Error(err))
		}
	}

	c.syncOne(ctx, product)
	return product, nil
}

// syncOne pushes a single product to the backend. Every outcome is advisory:
// the local record stays regardless.
func (c *Controller) syncOne(ctx context.Context, product domain.Product) {
	outcome, err := c.backend.CreateProduct(ctx, c.currentToken(), product)
	c.metrics.IncSync(outcome.String())

	switch outcome {
	case backend.OutcomeSynced:
		c.logger.Info("synced to backend", zap.String("name", product.Name))
	case backend.OutcomeSkipped:
		c.logger.Info("backend already holds product", zap.String("name", product.Name))
	case backend.OutcomeUnauthorized:
		c.logger.Warn("not logged in or token expired")
	default:
		c.logger.Warn("backend unavailable, keeping product local only", zap.Error(err))
	}
}

// Products returns the current collection in stored order.
func (c *Controller) Products(ctx context.Context) ([]domain.Product, error) {
	return c.store.Products(ctx)
}

// Delete removes the record with the given item id and reports how many
// records remain. Deleting an unknown id leaves the collection unchanged.
func (c *Controller) Delete(ctx context.Context, itemID string) (int, error) {
	products, err := c.store.Products(ctx)
	if err != nil {
		return 0, err
	}

	remaining := products[:0:0]
	for _, p := range products {
		if p.ItemID != itemID {
			remaining = append(remaining, p)
		}
	}

	if err := c.store.SaveProducts(ctx, remaining); err != nil {
		return 0, err
	}
	c.metrics.SetCollectionSize(len(remaining))
	return len(remaining), nil
}

// Clear empties the collection.
func (c *Controller) Clear(ctx context.Context) error {
	if err := c.store.SaveProducts(ctx, nil); err != nil {
		return err
	}
	c.metrics.SetCollectionSize(0)
	return nil
}

// SyncAll re-submits every record sequentially and aggregates the outcomes.
// Requests are issued one at a time so the counts stay deterministic and the
// backend is never burst. A 401 aborts the batch immediately.
func (c *Controller) SyncAll(ctx context.Context) (domain.SyncReport, error) {
	products, err := c.store.Products(ctx)
	if err != nil {
		return domain.SyncReport{}, err
	}
	if len(products) == 0 {
		return domain.SyncReport{}, ErrNothingToSync
	}

	report := domain.SyncReport{Total: len(products)}
	token := c.currentToken()

	for _, product := range products {
		outcome, err := c.backend.CreateProduct(ctx, token, product)
		c.metrics.IncSync(outcome.String())

		switch outcome {
		case backend.OutcomeSynced:
			report.Synced++
		case backend.OutcomeSkipped:
			report.Skipped++
		case backend.OutcomeUnauthorized:
			return domain.SyncReport{}, ErrLoginRequired
		default:
			c.logger.Warn("sync failed", zap.String("item_id", product.ItemID), zap.Error(err))
			report.Failed++
		}
	}

	c.logger.Info("bulk resync finished",
		zap.Int("total", report.Total),
		zap.Int("synced", report.Synced),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

// Login exchanges credentials for a token and caches it in memory and in the
// store.
func (c *Controller) Login(ctx context.Context, username, password string) (string, error) {
	token, resolvedName, err := c.backend.Login(ctx, username, password)
	if err != nil {
		return "", err
	}
	c.setToken(token)
	if err := c.store.SaveToken(ctx, token); err != nil {
		c.logger.Warn("could not persist token", zap.Error(err))
	}
	return resolvedName, nil
}

// Logout clears both token stores immediately. It never needs the backend.
func (c *Controller) Logout(ctx context.Context) {
	c.setToken("")
	if err := c.store.ClearToken(ctx); err != nil {
		c.logger.Warn("could not clear persisted token", zap.Error(err))
	}
}

// AuthStatus verifies the cached token against the identity endpoint. An
// empty in-memory token is rehydrated from the store first, covering a
// restarted process. An invalid token clears both stores.
func (c *Controller) AuthStatus(ctx context.Context) domain.AuthStatus {
	token := c.currentToken()
	if token == "" {
		stored, err := c.store.Token(ctx)
		if err != nil || stored == "" {
			return domain.AuthStatus{LoggedIn: false}
		}
		token = stored
		c.setToken(token)
	}

	username, err := c.backend.Me(ctx, token)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			c.setToken("")
			if clearErr := c.store.ClearToken(ctx); clearErr != nil {
				c.logger.Warn("could not clear persisted token", zap.Error(clearErr))
			}
			return domain.AuthStatus{LoggedIn: false}
		}
		return domain.AuthStatus{LoggedIn: false, Error: err.Error()}
	}
	return domain.AuthStatus{LoggedIn: true, Username: username}
}

// SavePendingArticle stores the article handed to the paste flow.
func (c *Controller) SavePendingArticle(ctx context.Context, article domain.Article) error {
	return c.store.SavePendingArticle(ctx, article)
}

// PendingArticle returns the stored article, or nil when none is pending.
func (c *Controller) PendingArticle(ctx context.Context) (domain.Article, error) {
	return c.store.PendingArticle(ctx)
}

func (c *Controller) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Controller) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}
