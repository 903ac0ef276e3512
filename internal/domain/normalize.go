package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// Shopee prices arrive as integer minor units scaled by this divisor.
	priceDivisor = 100000

	imageCDNPrefix   = "https://down-tw.img.susercontent.com/file/"
	productURLFormat = "https://shopee.tw/product/%s/%s"

	// thumbnailSuffix marks the small variant of an image URL.
	thumbnailSuffix = "_tn"
)

// ErrNoItemID is returned when a payload carries no usable item identifier.
var ErrNoItemID = errors.New("payload has no item identifier")

// Normalize builds the canonical Product from a raw marketplace payload.
func Normalize(raw RawPayload, now time.Time) (Product, error) {
	itemID := raw.id("itemid", "item_id", "itemID")
	if itemID == "" {
		return Product{}, ErrNoItemID
	}
	shopID := raw.id("shopid", "shop_id", "shopID")

	return Product{
		ItemID:            itemID,
		ShopID:            shopID,
		Name:              raw.str("name", "title"),
		Price:             raw.num("price") / priceDivisor,
		OriginalPrice:     raw.num("price_before_discount") / priceDivisor,
		Discount:          raw.integer("raw_discount", "show_discount"),
		Description:       raw.str("description"),
		Sold:              int64(raw.num("historical_sold", "sold")),
		Rating:            raw.object("item_rating").num("rating_star"),
		ShopName:          raw.object("shop_info").str("name"),
		Images:            normalizeImages(raw),
		DescriptionImages: normalizeDescriptionImages(raw),
		URL:               fmt.Sprintf(productURLFormat, shopID, itemID),
		CapturedAt:        now,
	}, nil
}

// ImageURL rewrites a bare content hash to an absolute CDN URL. Entries that
// are already absolute pass through unchanged.
func ImageURL(entry string) string {
	if strings.HasPrefix(entry, "http") {
		return entry
	}
	return imageCDNPrefix + entry
}

// StripThumbnail removes the thumbnail suffix so full-size and thumbnail
// variants of the same image compare equal.
func StripThumbnail(url string) string {
	return strings.TrimSuffix(url, thumbnailSuffix)
}

// MergeDescriptionImages appends scraped URLs to the existing list, skipping
// any whose thumbnail-stripped form is already present. Order is preserved on
// both sides.
func MergeDescriptionImages(existing, scraped []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, url := range existing {
		seen[StripThumbnail(url)] = struct{}{}
	}
	merged := existing
	for _, url := range scraped {
		clean := StripThumbnail(url)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		merged = append(merged, clean)
	}
	return merged
}

func normalizeImages(raw RawPayload) []string {
	if entries, ok := raw["images"].([]any); ok {
		return normalizeImageList(entries)
	}
	if single := raw.str("image"); single != "" {
		return []string{ImageURL(single)}
	}
	return nil
}

func normalizeDescriptionImages(raw RawPayload) []string {
	for _, key := range []string{"description_images", "desc_images", "item_description_images"} {
		if entries, ok := raw[key].([]any); ok && len(entries) > 0 {
			return normalizeImageList(entries)
		}
	}
	return nil
}

// normalizeImageList rewrites each entry to an absolute URL, dropping
// non-string entries and deduplicating in encounter order.
func normalizeImageList(entries []any) []string {
	var urls []string
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		hash, ok := entry.(string)
		if !ok || hash == "" {
			continue
		}
		url := ImageURL(hash)
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}
	return urls
}

// --- raw payload accessors ---

// id returns the first present identifier rendered as a string. Numeric ids
// are expected to be json.Number so large values survive verbatim.
func (r RawPayload) id(keys ...string) string {
	for _, key := range keys {
		switch v := r[key].(type) {
		case json.Number:
			return v.String()
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func (r RawPayload) str(keys ...string) string {
	for _, key := range keys {
		if v, ok := r[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func (r RawPayload) num(keys ...string) float64 {
	for _, key := range keys {
		switch v := r[key].(type) {
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f
			}
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}
	}
	return 0
}

func (r RawPayload) integer(keys ...string) int {
	for _, key := range keys {
		switch v := r[key].(type) {
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return int(f)
			}
		case float64:
			return int(v)
		case int:
			return v
		case string:
			if n, err := strconv.Atoi(strings.TrimSuffix(v, "%")); err == nil {
				return n
			}
		}
	}
	return 0
}

func (r RawPayload) object(key string) RawPayload {
	if v, ok := r[key].(map[string]any); ok {
		return RawPayload(v)
	}
	return nil
}
