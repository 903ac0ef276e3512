package domain

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestNormalizePriceScaling(t *testing.T) {
	raw := RawPayload{
		"itemid": json.Number("123"),
		"price":  json.Number("1250000"),
	}
	p, err := Normalize(raw, time.Now())
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if p.Price != 12.5 {
		t.Errorf("Price = %v; want 12.5", p.Price)
	}
}

func TestNormalizeFields(t *testing.T) {
	capturedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	raw := RawPayload{
		"item_id":               json.Number("8841520233"),
		"shop_id":               json.Number("55"),
		"title":                 "Mechanical Keyboard",
		"price":                 json.Number("159000000"),
		"price_before_discount": json.Number("200000000"),
		"raw_discount":          json.Number("21"),
		"description":           "hot-swappable switches",
		"historical_sold":       json.Number("3210"),
		"item_rating":           map[string]any{"rating_star": json.Number("4.8")},
		"shop_info":             map[string]any{"name": "KeebShop"},
		"images":                []any{"abc123", "https://cdn.example.com/full.jpg", "abc123"},
	}

	p, err := Normalize(raw, capturedAt)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}

	if p.ItemID != "8841520233" {
		t.Errorf("ItemID = %q; want 8841520233", p.ItemID)
	}
	if p.ShopID != "55" {
		t.Errorf("ShopID = %q; want 55", p.ShopID)
	}
	if p.Name != "Mechanical Keyboard" {
		t.Errorf("Name = %q", p.Name)
	}
	if p.Price != 1590 || p.OriginalPrice != 2000 {
		t.Errorf("Price/OriginalPrice = %v/%v; want 1590/2000", p.Price, p.OriginalPrice)
	}
	if p.Discount != 21 {
		t.Errorf("Discount = %d; want 21", p.Discount)
	}
	if p.Sold != 3210 {
		t.Errorf("Sold = %d; want 3210", p.Sold)
	}
	if p.Rating != 4.8 {
		t.Errorf("Rating = %v; want 4.8", p.Rating)
	}
	if p.ShopName != "KeebShop" {
		t.Errorf("ShopName = %q; want KeebShop", p.ShopName)
	}
	wantImages := []string{
		"https://down-tw.img.susercontent.com/file/abc123",
		"https://cdn.example.com/full.jpg",
	}
	if !reflect.DeepEqual(p.Images, wantImages) {
		t.Errorf("Images = %v; want %v", p.Images, wantImages)
	}
	if p.URL != "https://shopee.tw/product/55/8841520233" {
		t.Errorf("URL = %q", p.URL)
	}
	if !p.CapturedAt.Equal(capturedAt) {
		t.Errorf("CapturedAt = %v; want %v", p.CapturedAt, capturedAt)
	}
}

func TestNormalizeNoItemID(t *testing.T) {
	if _, err := Normalize(RawPayload{"name": "x"}, time.Now()); err != ErrNoItemID {
		t.Errorf("Normalize() error = %v; want ErrNoItemID", err)
	}
}

func TestNormalizeSingleImageFallback(t *testing.T) {
	raw := RawPayload{"itemid": json.Number("1"), "image": "deadbeef"}
	p, err := Normalize(raw, time.Now())
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	want := []string{"https://down-tw.img.susercontent.com/file/deadbeef"}
	if !reflect.DeepEqual(p.Images, want) {
		t.Errorf("Images = %v; want %v", p.Images, want)
	}
}

func TestImageURL(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Bare Hash", "abc123", "https://down-tw.img.susercontent.com/file/abc123"},
		{"Absolute HTTP", "http://img.example.com/a.jpg", "http://img.example.com/a.jpg"},
		{"Absolute HTTPS", "https://img.example.com/a.jpg", "https://img.example.com/a.jpg"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ImageURL(tc.input); got != tc.expected {
				t.Errorf("ImageURL(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestMergeDescriptionImages(t *testing.T) {
	existing := []string{"https://x/A", "https://x/B"}
	scraped := []string{"https://x/B_tn", "https://x/C"}

	got := MergeDescriptionImages(existing, scraped)
	want := []string{"https://x/A", "https://x/B", "https://x/C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeDescriptionImages() = %v; want %v", got, want)
	}
}

func TestMergeDescriptionImagesKeepsScrapeOrder(t *testing.T) {
	got := MergeDescriptionImages(nil, []string{"https://x/2", "https://x/1", "https://x/2_tn"})
	want := []string{"https://x/2", "https://x/1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeDescriptionImages() = %v; want %v", got, want)
	}
}

func TestNormalizeDescriptionImageAliases(t *testing.T) {
	for _, key := range []string{"description_images", "desc_images", "item_description_images"} {
		raw := RawPayload{"itemid": json.Number("9"), key: []any{"h1", "h2"}}
		p, err := Normalize(raw, time.Now())
		if err != nil {
			t.Fatalf("Normalize() error for %s: %v", key, err)
		}
		want := []string{
			"https://down-tw.img.susercontent.com/file/h1",
			"https://down-tw.img.susercontent.com/file/h2",
		}
		if !reflect.DeepEqual(p.DescriptionImages, want) {
			t.Errorf("DescriptionImages via %s = %v; want %v", key, p.DescriptionImages, want)
		}
	}
}
