package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/t86xu3/dcard-auto/internal/agent"
	"github.com/t86xu3/dcard-auto/internal/config"
	"github.com/t86xu3/dcard-auto/internal/controller"
	"github.com/t86xu3/dcard-auto/internal/domain"
)

type fakeController struct {
	products  []domain.Product
	deleted   string
	remaining int
	cleared   bool
	report    domain.SyncReport
	syncErr   error
	loginName string
	loginErr  error
	loggedOut bool
	status    domain.AuthStatus
	article   domain.Article
}

func (f *fakeController) Products(ctx context.Context) ([]domain.Product, error) {
	return f.products, nil
}

func (f *fakeController) Delete(ctx context.Context, itemID string) (int, error) {
	f.deleted = itemID
	return f.remaining, nil
}

func (f *fakeController) Clear(ctx context.Context) error { f.cleared = true; return nil }

func (f *fakeController) SyncAll(ctx context.Context) (domain.SyncReport, error) {
	return f.report, f.syncErr
}

func (f *fakeController) Login(ctx context.Context, username, password string) (string, error) {
	return f.loginName, f.loginErr
}

func (f *fakeController) Logout(ctx context.Context) { f.loggedOut = true }

func (f *fakeController) AuthStatus(ctx context.Context) domain.AuthStatus { return f.status }

func (f *fakeController) SavePendingArticle(ctx context.Context, a domain.Article) error {
	f.article = a
	return nil
}

func (f *fakeController) PendingArticle(ctx context.Context) (domain.Article, error) {
	return f.article, nil
}

type fakeTrigger struct {
	product domain.Product
	err     error
}

func (f *fakeTrigger) Capture(ctx context.Context) (domain.Product, error) {
	return f.product, f.err
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func newTestServer(ctrl Controller, trigger CaptureTrigger, store, archive Pinger) *Server {
	cfg := &config.Config{ServerPort: "0"}
	return NewServer(cfg, ctrl, trigger, store, archive, zap.NewNop())
}

func doRequest(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	decoded := make(map[string]any)
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestHandleCapture(t *testing.T) {
	trigger := &fakeTrigger{product: domain.Product{ItemID: "1", Name: "Radio"}}
	s := newTestServer(&fakeController{}, trigger, &fakePinger{}, nil)

	rec, body := doRequest(t, s, http.MethodPost, "/api/capture", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if body["success"] != true {
		t.Errorf("body = %v", body)
	}
	product := body["product"].(map[string]any)
	if product["itemid"] != "1" {
		t.Errorf("product.itemid = %v; want 1", product["itemid"])
	}
}

func TestHandleCaptureWithoutProduct(t *testing.T) {
	trigger := &fakeTrigger{err: agent.ErrNoProductData}
	s := newTestServer(&fakeController{}, trigger, &fakePinger{}, nil)

	rec, body := doRequest(t, s, http.MethodPost, "/api/capture", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", rec.Code)
	}
	if body["success"] != false || body["error"] == "" {
		t.Errorf("body = %v", body)
	}
}

func TestHandleCaptureUnidentifiedPayload(t *testing.T) {
	trigger := &fakeTrigger{err: domain.ErrNoItemID}
	s := newTestServer(&fakeController{}, trigger, &fakePinger{}, nil)

	rec, _ := doRequest(t, s, http.MethodPost, "/api/capture", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}

func TestHandleListProductsEmptyCollection(t *testing.T) {
	s := newTestServer(&fakeController{}, &fakeTrigger{}, &fakePinger{}, nil)

	rec, body := doRequest(t, s, http.MethodGet, "/api/products", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	// An empty collection must serialize as [], not null.
	products, ok := body["products"].([]any)
	if !ok || len(products) != 0 {
		t.Errorf("products = %v; want []", body["products"])
	}
}

func TestHandleDeleteProduct(t *testing.T) {
	ctrl := &fakeController{remaining: 4}
	s := newTestServer(ctrl, &fakeTrigger{}, &fakePinger{}, nil)

	rec, body := doRequest(t, s, http.MethodDelete, "/api/products/8841520233", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if ctrl.deleted != "8841520233" {
		t.Errorf("deleted id = %q", ctrl.deleted)
	}
	if body["remaining"] != float64(4) {
		t.Errorf("remaining = %v; want 4", body["remaining"])
	}
}

func TestHandleClearProducts(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(ctrl, &fakeTrigger{}, &fakePinger{}, nil)

	rec, _ := doRequest(t, s, http.MethodDelete, "/api/products", "")
	if rec.Code != http.StatusOK || !ctrl.cleared {
		t.Errorf("status = %d cleared = %v", rec.Code, ctrl.cleared)
	}
}

func TestHandleSyncAll(t *testing.T) {
	ctrl := &fakeController{report: domain.SyncReport{Total: 5, Synced: 3, Skipped: 1, Failed: 1}}
	s := newTestServer(ctrl, &fakeTrigger{}, &fakePinger{}, nil)

	rec, body := doRequest(t, s, http.MethodPost, "/api/sync", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	for key, want := range map[string]float64{"total": 5, "synced": 3, "skipped": 1, "failed": 1} {
		if body[key] != want {
			t.Errorf("%s = %v; want %v", key, body[key], want)
		}
	}
}

func TestHandleSyncAllErrors(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"Nothing To Sync", controller.ErrNothingToSync, http.StatusBadRequest},
		{"Login Required", controller.ErrLoginRequired, http.StatusUnauthorized},
		{"Backend Down", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(&fakeController{syncErr: tc.err}, &fakeTrigger{}, &fakePinger{}, nil)
			rec, _ := doRequest(t, s, http.MethodPost, "/api/sync", "")
			if rec.Code != tc.expected {
				t.Errorf("status = %d; want %d", rec.Code, tc.expected)
			}
		})
	}
}

func TestHandleLogin(t *testing.T) {
	ctrl := &fakeController{loginName: "amy"}
	s := newTestServer(ctrl, &fakeTrigger{}, &fakePinger{}, nil)

	rec, body := doRequest(t, s, http.MethodPost, "/api/auth/login", `{"username":"amy","password":"pw"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if body["username"] != "amy" {
		t.Errorf("username = %v; want amy", body["username"])
	}
}

func TestHandleLoginRejected(t *testing.T) {
	ctrl := &fakeController{loginErr: errors.New("bad credentials")}
	s := newTestServer(ctrl, &fakeTrigger{}, &fakePinger{}, nil)

	rec, body := doRequest(t, s, http.MethodPost, "/api/auth/login", `{"username":"amy","password":"x"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want 401", rec.Code)
	}
	if body["error"] != "bad credentials" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestHandleLoginMalformedBody(t *testing.T) {
	s := newTestServer(&fakeController{}, &fakeTrigger{}, &fakePinger{}, nil)
	rec, _ := doRequest(t, s, http.MethodPost, "/api/auth/login", `{broken`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}

func TestHandleLogout(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(ctrl, &fakeTrigger{}, &fakePinger{}, nil)

	rec, _ := doRequest(t, s, http.MethodPost, "/api/auth/logout", "")
	if rec.Code != http.StatusOK || !ctrl.loggedOut {
		t.Errorf("status = %d loggedOut = %v", rec.Code, ctrl.loggedOut)
	}
}

func TestHandleAuthStatus(t *testing.T) {
	ctrl := &fakeController{status: domain.AuthStatus{LoggedIn: true, Username: "amy"}}
	s := newTestServer(ctrl, &fakeTrigger{}, &fakePinger{}, nil)

	rec, body := doRequest(t, s, http.MethodGet, "/api/auth/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if body["loggedIn"] != true || body["username"] != "amy" {
		t.Errorf("body = %v", body)
	}
}

func TestHandlePasteRoundTrip(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(ctrl, &fakeTrigger{}, &fakePinger{}, nil)

	rec, _ := doRequest(t, s, http.MethodPost, "/api/paste", `{"title":"deal of the day","body":"..."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("paste status = %d; want 200", rec.Code)
	}
	if ctrl.article["title"] != "deal of the day" {
		t.Fatalf("stored article = %v", ctrl.article)
	}

	rec, body := doRequest(t, s, http.MethodGet, "/api/paste/pending", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("pending status = %d; want 200", rec.Code)
	}
	article := body["article"].(map[string]any)
	if article["title"] != "deal of the day" {
		t.Errorf("pending article = %v", article)
	}
}

func TestHandlePing(t *testing.T) {
	s := newTestServer(&fakeController{}, &fakeTrigger{}, &fakePinger{}, nil)

	rec, body := doRequest(t, s, http.MethodGet, "/api/ping", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if body["pong"] != true || body["name"] != AgentName || body["version"] != AgentVersion {
		t.Errorf("body = %v", body)
	}
}

func TestHandleHealthCheck(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		s := newTestServer(&fakeController{}, &fakeTrigger{}, &fakePinger{}, nil)
		rec, body := doRequest(t, s, http.MethodGet, "/api/health", "")
		if rec.Code != http.StatusOK || body["redis"] != "healthy" {
			t.Errorf("status = %d body = %v", rec.Code, body)
		}
	})

	t.Run("Redis Down", func(t *testing.T) {
		s := newTestServer(&fakeController{}, &fakeTrigger{}, &fakePinger{err: errors.New("refused")}, nil)
		rec, body := doRequest(t, s, http.MethodGet, "/api/health", "")
		if rec.Code != http.StatusServiceUnavailable || body["redis"] != "unhealthy" {
			t.Errorf("status = %d body = %v", rec.Code, body)
		}
	})

	t.Run("Archive Down", func(t *testing.T) {
		s := newTestServer(&fakeController{}, &fakeTrigger{}, &fakePinger{}, &fakePinger{err: errors.New("refused")})
		rec, body := doRequest(t, s, http.MethodGet, "/api/health", "")
		if rec.Code != http.StatusServiceUnavailable || body["postgres"] != "unhealthy" {
			t.Errorf("status = %d body = %v", rec.Code, body)
		}
	})
}
