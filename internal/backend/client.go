package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/t86xu3/dcard-auto/internal/domain"
)

// Outcome classifies a single product sync attempt.
type Outcome int

const (
	OutcomeSynced       Outcome = iota // backend accepted the product
	OutcomeSkipped                     // backend already holds it
	OutcomeUnauthorized                // token missing, invalid or expired
	OutcomeFailed                      // anything else, including an unreachable backend
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSynced:
		return "synced"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeUnauthorized:
		return "unauthorized"
	default:
		return "failed"
	}
}

// ErrUnauthorized reports an invalid or expired token on the identity check.
var ErrUnauthorized = errors.New("unauthorized")

// Client talks to the dcard-auto backend. Calls are paced by a rate limiter
// so a bulk resync cannot burst a cold-started backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL string, rps int) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// syncPayload is the backend's create-product schema. Identifiers are
// stringified and the discount is rendered as a percent string or null.
type syncPayload struct {
	ItemID            string   `json:"item_id"`
	ShopID            string   `json:"shop_id"`
	Name              string   `json:"name"`
	Price             float64  `json:"price"`
	OriginalPrice     float64  `json:"original_price"`
	Discount          *string  `json:"discount"`
	Description       string   `json:"description"`
	Images            []string `json:"images"`
	DescriptionImages []string `json:"description_images"`
	Rating            float64  `json:"rating"`
	Sold              int64    `json:"sold"`
	ShopName          string   `json:"shop_name"`
	ProductURL        string   `json:"product_url"`
}

func newSyncPayload(p domain.Product) syncPayload {
	var discount *string
	if p.Discount != 0 {
		d := fmt.Sprintf("%d%%", p.Discount)
		discount = &d
	}
	return syncPayload{
		ItemID:            p.ItemID,
		ShopID:            p.ShopID,
		Name:              p.Name,
		Price:             p.Price,
		OriginalPrice:     p.OriginalPrice,
		Discount:          discount,
		Description:       p.Description,
		Images:            p.Images,
		DescriptionImages: p.DescriptionImages,
		Rating:            p.Rating,
		Sold:              p.Sold,
		ShopName:          p.ShopName,
		ProductURL:        p.URL,
	}
}

// CreateProduct submits one product and classifies the response. The error
// carries detail for logging; callers decide everything off the Outcome.
func (c *Client) CreateProduct(ctx context.Context, token string, p domain.Product) (Outcome, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return OutcomeFailed, err
	}

	body, err := json.Marshal(newSyncPayload(p))
	if err != nil {
		return OutcomeFailed, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/products", bytes.NewReader(body))
	if err != nil {
		return OutcomeFailed, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return OutcomeSynced, nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusConflict:
		return OutcomeSkipped, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return OutcomeUnauthorized, nil
	default:
		return OutcomeFailed, fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (token, resolvedName string, err error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", errors.New("cannot reach backend")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&detail)
		if detail.Detail == "" {
			detail.Detail = "invalid username or password"
		}
		return "", "", errors.New(detail.Detail)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		Username    string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", fmt.Errorf("decode login response: %w", err)
	}
	if payload.Username == "" {
		payload.Username = username
	}
	return payload.AccessToken, payload.Username, nil
}

// Me validates the token against the identity endpoint and returns the
// display name. Any non-2xx response means the token is no longer valid.
func (c *Client) Me(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cannot reach backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", ErrUnauthorized
	}

	var user struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("decode identity response: %w", err)
	}
	return user.Username, nil
}
