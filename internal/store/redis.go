package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/t86xu3/dcard-auto/internal/domain"
)

// Persisted state lives under fixed keys. The product collection is written
// as a whole (read-modify-write), never appended to.
const (
	productsKey       = "products"
	tokenKey          = "auth_token"
	pendingArticleKey = "pending_article"
)

// RedisStore owns the agent's persisted local state: the ordered product
// collection, the cached bearer token, and the pending-article scratch value.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisStore{client: rdb}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Products loads the whole collection. A missing key is an empty collection.
func (s *RedisStore) Products(ctx context.Context) ([]domain.Product, error) {
	raw, err := s.client.Get(ctx, productsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	var products []domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

// SaveProducts persists the whole collection, replacing the previous value.
func (s *RedisStore) SaveProducts(ctx context.Context, products []domain.Product) error {
	if products == nil {
		products = []domain.Product{}
	}
	raw, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("encode products: %w", err)
	}
	if err := s.client.Set(ctx, productsKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("save products: %w", err)
	}
	return nil
}

// Token returns the cached bearer token, or "" when none is stored.
func (s *RedisStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, tokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

func (s *RedisStore) SaveToken(ctx context.Context, token string) error {
	return s.client.Set(ctx, tokenKey, token, 0).Err()
}

func (s *RedisStore) ClearToken(ctx context.Context) error {
	return s.client.Del(ctx, tokenKey).Err()
}

// SavePendingArticle stores the article waiting to be pasted into the forum
// tab. It belongs to the paste flow, not the capture pipeline.
func (s *RedisStore) SavePendingArticle(ctx context.Context, article domain.Article) error {
	raw, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("encode pending article: %w", err)
	}
	return s.client.Set(ctx, pendingArticleKey, raw, 0).Err()
}

// PendingArticle returns the stored article, or nil when none is pending.
func (s *RedisStore) PendingArticle(ctx context.Context) (domain.Article, error) {
	raw, err := s.client.Get(ctx, pendingArticleKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var article domain.Article
	if err := json.Unmarshal(raw, &article); err != nil {
		return nil, fmt.Errorf("decode pending article: %w", err)
	}
	return article, nil
}
