package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/t86xu3/dcard-auto/internal/domain"
)

// Archive mirrors captured products into Postgres. It is an optional,
// best-effort side channel for offline analysis; the Redis collection stays
// the source of truth.
type Archive struct {
	db *pgxpool.Pool
}

func NewArchive(connStr string) (*Archive, error) {
	db, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Ping(ctx context.Context) error {
	return a.db.Ping(ctx)
}

func (a *Archive) Close() {
	a.db.Close()
}

// SaveProduct upserts one captured product keyed by its item id.
func (a *Archive) SaveProduct(ctx context.Context, p domain.Product) error {
	_, err := a.db.Exec(ctx,
		`INSERT INTO captured_products
		   (item_id, shop_id, name, price, original_price, discount, description,
		    sold, rating, shop_name, images, description_images, product_url, captured_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (item_id) DO UPDATE SET
		   shop_id = EXCLUDED.shop_id, name = EXCLUDED.name, price = EXCLUDED.price,
		   original_price = EXCLUDED.original_price, discount = EXCLUDED.discount,
		   description = EXCLUDED.description, sold = EXCLUDED.sold,
		   rating = EXCLUDED.rating, shop_name = EXCLUDED.shop_name,
		   images = EXCLUDED.images, description_images = EXCLUDED.description_images,
		   product_url = EXCLUDED.product_url, captured_at = EXCLUDED.captured_at`,
		p.ItemID, p.ShopID, p.Name, p.Price, p.OriginalPrice, p.Discount, p.Description,
		p.Sold, p.Rating, p.ShopName, p.Images, p.DescriptionImages, p.URL, p.CapturedAt,
	)
	return err
}
