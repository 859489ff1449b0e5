package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"photobox/internal/database"
	"photobox/internal/logging"
	"photobox/internal/storage"
	"photobox/internal/token"
)

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	blobs, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	tokens := token.NewService("access-secret", "refresh-secret")
	srv := New(db, tokens, blobs, Config{}, logging.Setup("error"))
	return srv.Router()
}

func do(t *testing.T, router http.Handler, method, path, bearer string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body, err)
	}
}

func TestHealth(t *testing.T) {
	router := setupServer(t)
	rec := do(t, router, http.MethodGet, "/health", "", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := setupServer(t)
	for _, path := range []string{"/api/gallery", "/api/upload/file"} {
		method := http.MethodGet
		if strings.Contains(path, "upload") {
			method = http.MethodPost
		}
		if rec := do(t, router, method, path, "", nil, ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status = %d, want 401", method, path, rec.Code)
		}
	}
}

// Walks the whole surface: register, login, upload, gallery, QR login
// from a second device, delete.
func TestEndToEndFlow(t *testing.T) {
	router := setupServer(t)

	creds := strings.NewReader(`{"username":"alice","password":"hunter22"}`)
	if rec := do(t, router, http.MethodPost, "/api/auth/register", "", creds, "application/json"); rec.Code != http.StatusOK {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body)
	}

	creds = strings.NewReader(`{"username":"alice","password":"hunter22"}`)
	rec := do(t, router, http.MethodPost, "/api/auth/login", "", creds, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body)
	}
	var login struct {
		Token string `json:"token"`
	}
	decode(t, rec, &login)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("media", "photo.jpg")
	part.Write([]byte("pixels"))
	mw.Close()
	rec = do(t, router, http.MethodPost, "/api/upload/file", login.Token, &buf, mw.FormDataContentType())
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body)
	}
	var uploaded struct {
		ID       int64  `json:"id"`
		Filename string `json:"filename"`
	}
	decode(t, rec, &uploaded)

	rec = do(t, router, http.MethodGet, "/api/gallery", login.Token, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("gallery status = %d: %s", rec.Code, rec.Body)
	}
	var gallery struct {
		Media []struct {
			URL string `json:"url"`
		} `json:"media"`
	}
	decode(t, rec, &gallery)
	if len(gallery.Media) != 1 {
		t.Fatalf("gallery has %d items, want 1", len(gallery.Media))
	}

	// The local blob is reachable through the static route.
	rec = do(t, router, http.MethodGet, gallery.Media[0].URL, "", nil, "")
	if rec.Code != http.StatusOK || rec.Body.String() != "pixels" {
		t.Errorf("static fetch = (%d, %q)", rec.Code, rec.Body)
	}

	// QR login from a second device.
	rec = do(t, router, http.MethodPost, "/api/qr-auth/generate", login.Token, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("qr generate status = %d: %s", rec.Code, rec.Body)
	}
	var gen struct {
		TicketKey string `json:"ticketKey"`
	}
	decode(t, rec, &gen)

	rec = do(t, router, http.MethodGet, "/api/qr-auth/status/"+gen.TicketKey, "", nil, "")
	var st struct {
		Status string `json:"status"`
	}
	decode(t, rec, &st)
	if st.Status != "pending" {
		t.Errorf("qr status = %q, want pending", st.Status)
	}

	rec = do(t, router, http.MethodPost, "/api/qr-auth/scan/"+gen.TicketKey, "", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("qr scan status = %d: %s", rec.Code, rec.Body)
	}
	var redeemed struct {
		AccessToken string `json:"accessToken"`
	}
	decode(t, rec, &redeemed)

	// The scanned device's token works on protected routes.
	rec = do(t, router, http.MethodGet, "/api/gallery", redeemed.AccessToken, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("gallery with redeemed token status = %d", rec.Code)
	}

	if rec := do(t, router, http.MethodPost, "/api/qr-auth/scan/"+gen.TicketKey, "", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second scan status = %d, want 404", rec.Code)
	}

	rec = do(t, router, http.MethodDelete, "/api/gallery/1", login.Token, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body)
	}
}

func TestQRScanRateLimited(t *testing.T) {
	router := setupServer(t)

	var last int
	for i := 0; i < 11; i++ {
		rec := do(t, router, http.MethodPost, "/api/qr-auth/scan/nope", "", nil, "")
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("11th scan status = %d, want 429", last)
	}
}
