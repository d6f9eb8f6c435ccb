package happiness

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/app/store/localstate"
	"github.com/dalemusser/stratatrack/internal/app/system/auth"
	hap "github.com/dalemusser/stratatrack/internal/app/system/happiness"
	"github.com/dalemusser/stratatrack/internal/app/system/syncer"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := localstate.Open(filepath.Join(t.TempDir(), "state.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return Routes(NewHandler(hap.NewManager(store, zap.NewNop()), zap.NewNop()))
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req = auth.WithTestUser(req, &auth.SessionUser{UID: "u1", Role: syncer.RoleViewer})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestItemsLifecycle(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/items", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get items status = %d", rec.Code)
	}
	if items := decode[[]string](t, rec); len(items) != 0 {
		t.Errorf("fresh items = %v, want empty", items)
	}

	rec = do(t, router, http.MethodPut, "/items",
		`{"items":["Exercise","<b>Read</b>","  ","Meditate"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put items status = %d, body %s", rec.Code, rec.Body.String())
	}
	items := decode[[]string](t, rec)
	want := []string{"Exercise", "Read", "Meditate"}
	if len(items) != len(want) {
		t.Fatalf("items = %v, want %v", items, want)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("items[%d] = %q, want %q", i, items[i], want[i])
		}
	}

	rec = do(t, router, http.MethodPut, "/items",
		`{"items":["a","b","c","d","e","f","g"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("seven items status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDayStatus(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPut, "/items", `{"items":["Exercise","Read"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put items status = %d", rec.Code)
	}

	rec = do(t, router, http.MethodPut, "/day/2024-03-10", `{"checked":[true,false]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body %s", rec.Code, rec.Body.String())
	}
	checked := decode[[]bool](t, rec)
	if len(checked) != 2 || !checked[0] || checked[1] {
		t.Errorf("checked = %v, want [true false]", checked)
	}

	rec = do(t, router, http.MethodPut, "/day/2024-03-10", `{"checked":[true]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("mismatched length status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = do(t, router, http.MethodPost, "/day/2024-03-10/toggle", `{"index":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", rec.Code)
	}
	checked = decode[[]bool](t, rec)
	if !checked[1] {
		t.Errorf("checked = %v, want index 1 flipped on", checked)
	}

	rec = do(t, router, http.MethodPost, "/day/2024-03-10/toggle", `{"index":9}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-range toggle status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = do(t, router, http.MethodGet, "/day/2024-3-10", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad day key status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSummary(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, http.MethodPut, "/items", `{"items":["Exercise","Read"]}`)
	do(t, router, http.MethodPut, "/day/2024-03-10", `{"checked":[true,true]}`)
	do(t, router, http.MethodPut, "/day/2024-03-11", `{"checked":[true,false]}`)

	rec := do(t, router, http.MethodGet, "/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	sum := decode[[]int](t, rec)
	if len(sum) != 2 || sum[0] != 2 || sum[1] != 1 {
		t.Errorf("summary = %v, want [2 1]", sum)
	}
}

func TestRequiresSession(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
