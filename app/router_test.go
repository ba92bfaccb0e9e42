package app

import (
	"bitwise74/dropgate/db"
	"bitwise74/dropgate/internal"
	"bitwise74/dropgate/internal/model"
	"bitwise74/dropgate/internal/service"
	"bitwise74/dropgate/internal/storage"
	"bitwise74/dropgate/pkg/middleware"
	"bitwise74/dropgate/pkg/security"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.t = f.t.Add(d)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	deps   *internal.Deps
	clock  *fakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	return newTestServerWith(t, Options{})
}

func newTestServerWith(t *testing.T, o Options) *testServer {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.New("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})

	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	argon := &security.ArgonHash{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	tokens, err := security.NewTokenIssuer("test-secret", 30*time.Minute, clock.Now)
	require.NoError(t, err)

	store := storage.NewMemStore()

	d := &internal.Deps{
		DB:            conn,
		Store:         store,
		Registry:      service.NewRegistry(conn, store, service.SlugConfig{}, clock.Now),
		Admins:        service.NewAdmins(conn, argon, clock.Now),
		AdGate:        &service.AdGate{Path: adPath, Seconds: 5},
		Tokens:        tokens,
		Argon:         argon,
		Now:           clock.Now,
		MaxUploadSize: 1 << 20,
	}

	require.NoError(t, d.Admins.EnsureAdmin(context.Background(), "root", "correct horse"))

	viewerHash, err := argon.Hash("viewer pw")
	require.NoError(t, err)
	require.NoError(t, conn.Create(&model.AdminPrincipal{
		ID:           "viewer-1",
		Username:     "guest",
		PasswordHash: viewerHash,
		Role:         model.RoleViewer,
		CreatedAt:    clock.Now().UnixMilli(),
	}).Error)

	return &testServer{
		t:      t,
		router: NewRouter(d, o),
		deps:   d,
		clock:  clock,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	return w
}

type uploadResponse struct {
	Slug      string `json:"slug"`
	URL       string `json:"url"`
	Filename  string `json:"filename"`
	IsPrivate bool   `json:"isPrivate"`
	ExpiresAt *int64 `json:"expiresAt"`
}

func (s *testServer) uploadRequest(name string, content []byte, fields map[string]string) *http.Request {
	s.t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	for k, v := range fields {
		require.NoError(s.t, mw.WriteField(k, v))
	}

	if content != nil {
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(s.t, err)
		_, err = fw.Write(content)
		require.NoError(s.t, err)
	}

	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func (s *testServer) upload(name string, content []byte, fields map[string]string) uploadResponse {
	s.t.Helper()

	w := s.do(s.uploadRequest(name, content, fields))
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var res uploadResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &res))

	return res
}

// fetch retrieves a slug as if the ad page was already seen
func (s *testServer) fetch(slug string, query url.Values) *httptest.ResponseRecorder {
	if query == nil {
		query = url.Values{}
	}
	query.Set("ad", "seen")

	return s.do(httptest.NewRequest(http.MethodGet, "/d/"+slug+"?"+query.Encode(), nil))
}

func (s *testServer) login(username, password string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(gin.H{"username": username, "password": password})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	return s.do(req)
}

func (s *testServer) adminToken() string {
	s.t.Helper()

	w := s.login("root", "correct horse")
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &res))

	return res.Token
}

func (s *testServer) adminRequest(method, path, token string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

func TestPublicUploadAndRetrieve(t *testing.T) {
	s := newTestServer(t)

	content := []byte("0123456789")
	res := s.upload("ten.txt", content, nil)

	assert.Len(t, res.Slug, 8)
	assert.Equal(t, "/d/"+res.Slug, res.URL)
	assert.Equal(t, "ten.txt", res.Filename)
	assert.False(t, res.IsPrivate)
	assert.Nil(t, res.ExpiresAt)

	w := s.fetch(res.Slug, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.Bytes())
	assert.Equal(t, "10", w.Header().Get("Content-Length"))
	assert.Equal(t, `attachment; filename=ten.txt`, w.Header().Get("Content-Disposition"))
	assert.NotEmpty(t, w.Header().Get("Content-Type"))
}

func TestPrivateUploadAndRetrieve(t *testing.T) {
	s := newTestServer(t)

	res := s.upload("secret.txt", []byte("top secret"), map[string]string{
		"isPrivate": "true",
		"passcode":  "abc",
	})
	assert.True(t, res.IsPrivate)

	assert.Equal(t, http.StatusUnauthorized, s.fetch(res.Slug, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.fetch(res.Slug, url.Values{"passcode": {""}}).Code)

	w := s.fetch(res.Slug, url.Values{"passcode": {"abc"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "top secret", w.Body.String())

	assert.Equal(t, http.StatusForbidden, s.fetch(res.Slug, url.Values{"passcode": {"xyz"}}).Code)
}

func TestPrivateUploadWithoutPasscode(t *testing.T) {
	s := newTestServer(t)

	w := s.do(s.uploadRequest("a.txt", []byte("a"), map[string]string{"isPrivate": "true"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicUploadIgnoresPasscode(t *testing.T) {
	s := newTestServer(t)

	res := s.upload("a.txt", []byte("a"), map[string]string{"passcode": "abc"})
	assert.False(t, res.IsPrivate)
	assert.Equal(t, http.StatusOK, s.fetch(res.Slug, nil).Code)
}

func TestPasscodePromptForBrowsers(t *testing.T) {
	s := newTestServer(t)

	res := s.upload("secret.txt", []byte("top secret"), map[string]string{
		"isPrivate": "true",
		"passcode":  "abc",
	})

	req := httptest.NewRequest(http.MethodGet, "/d/"+res.Slug+"?ad=seen", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	w := s.do(req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `name="ad" value="seen"`)
	assert.Contains(t, w.Body.String(), `action="/d/`+res.Slug+`"`)
}

func TestExpiry(t *testing.T) {
	s := newTestServer(t)

	forever := s.upload("a.txt", []byte("a"), map[string]string{"expiryDays": "0"})
	assert.Nil(t, forever.ExpiresAt)

	omitted := s.upload("b.txt", []byte("b"), nil)
	assert.Nil(t, omitted.ExpiresAt)

	daily := s.upload("c.txt", []byte("c"), map[string]string{"expiryDays": "1"})
	require.NotNil(t, daily.ExpiresAt)
	assert.Equal(t, s.clock.Now().UnixMilli()+model.DayMillis, *daily.ExpiresAt)

	assert.Equal(t, http.StatusOK, s.fetch(daily.Slug, nil).Code)

	s.clock.Advance(time.Duration(model.DayMillis) * time.Millisecond)
	assert.Equal(t, http.StatusOK, s.fetch(daily.Slug, nil).Code, "expiry instant itself is still valid")

	s.clock.Advance(time.Millisecond)
	assert.Equal(t, http.StatusGone, s.fetch(daily.Slug, nil).Code)

	s.clock.Advance(365 * 24 * time.Hour)
	assert.Equal(t, http.StatusOK, s.fetch(forever.Slug, nil).Code)
	assert.Equal(t, http.StatusOK, s.fetch(omitted.Slug, nil).Code)
}

func TestUploadRejects(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		content []byte
		fields  map[string]string
		want    int
	}{
		{name: "no file", content: nil, want: http.StatusBadRequest},
		{name: "bad expiry", content: []byte("a"), fields: map[string]string{"expiryDays": "tomorrow"}, want: http.StatusBadRequest},
		{name: "bad privacy flag", content: []byte("a"), fields: map[string]string{"isPrivate": "maybe"}, want: http.StatusBadRequest},
		{name: "too large", content: bytes.Repeat([]byte("a"), 1<<20+1), want: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(s.uploadRequest("a.txt", tt.content, tt.fields))
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRetrieveUnknownSlug(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, s.fetch("missing0", nil).Code)
}

func TestAdGateFlow(t *testing.T) {
	s := newTestServer(t)

	res := s.upload("a.txt", []byte("hello"), nil)

	// First hop goes to the interstitial
	w := s.do(httptest.NewRequest(http.MethodGet, "/d/"+res.Slug, nil))
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/ad", loc.Path)
	assert.Equal(t, "/d/"+res.Slug, loc.Query().Get("next"))

	// The interstitial points back with the marker set
	w = s.do(httptest.NewRequest(http.MethodGet, loc.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/d/`+res.Slug+`?ad=seen"`)

	// Second hop downloads
	w = s.do(httptest.NewRequest(http.MethodGet, "/d/"+res.Slug+"?ad=seen", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
}

func TestAdGateRejectsForeignTargets(t *testing.T) {
	s := newTestServer(t)

	for _, next := range []string{"", "https://evil.example/", "//evil.example/x"} {
		w := s.do(httptest.NewRequest(http.MethodGet, "/ad?next="+url.QueryEscape(next), nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, "next=%q", next)
	}
}

// keyRecorder remembers every key written to the cache
type keyRecorder struct {
	persist.CacheStore

	mu   sync.Mutex
	keys []string
}

func (r *keyRecorder) Set(key string, value any, expire time.Duration) error {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()

	return r.CacheStore.Set(key, value, expire)
}

func (r *keyRecorder) written() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.keys...)
}

func TestAdPageNeverCachesPasscodes(t *testing.T) {
	rec := &keyRecorder{CacheStore: persist.NewMemoryStore(time.Minute)}
	s := newTestServerWith(t, Options{Cache: rec, CacheTTL: time.Minute})

	private := "/ad?next=" + url.QueryEscape("/d/AbC12345?passcode=hunter2")
	w := s.do(httptest.NewRequest(http.MethodGet, private, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "passcode=hunter2")

	public := "/ad?next=" + url.QueryEscape("/d/AbC12345")
	w = s.do(httptest.NewRequest(http.MethodGet, public, nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{public}, rec.written())
}

func TestRateLimitedAPI(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{RequestsPerSecond: 1, Burst: 1})
	t.Cleanup(limiter.Stop)

	s := newTestServerWith(t, Options{RateLimiter: limiter})

	heartbeat := func() int {
		return s.do(httptest.NewRequest(http.MethodHead, "/api/heartbeat", nil)).Code
	}

	assert.Equal(t, http.StatusOK, heartbeat())
	assert.Equal(t, http.StatusTooManyRequests, heartbeat())

	// The download route isn't behind the limiter
	w := s.do(httptest.NewRequest(http.MethodGet, "/d/missing", nil))
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestAdminLogin(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.login("root", "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, s.login("nobody", "correct horse").Code)
	assert.Equal(t, http.StatusForbidden, s.login("guest", "viewer pw").Code)
	assert.Equal(t, http.StatusBadRequest, s.login("root", "").Code)

	token := s.adminToken()

	s.upload("a.txt", []byte("a"), nil)

	w := s.do(s.adminRequest(http.MethodGet, "/api/admin/files", token, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var list struct {
		Files []map[string]any `json:"files"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Files, 1)
	assert.Equal(t, "a.txt", list.Files[0]["filename"])
	assert.NotContains(t, list.Files[0], "passcodeHash")
}

func TestAdminRoutesNeedToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(s.adminRequest(http.MethodGet, "/api/admin/files", "", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	viewerToken, _, err := s.deps.Tokens.Issue("viewer-1", "guest", model.RoleViewer)
	require.NoError(t, err)

	w = s.do(s.adminRequest(http.MethodGet, "/api/admin/files", viewerToken, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Tokens die with their TTL
	token := s.adminToken()
	s.clock.Advance(31 * time.Minute)

	w = s.do(s.adminRequest(http.MethodGet, "/api/admin/files", token, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminUpdate(t *testing.T) {
	s := newTestServer(t)
	token := s.adminToken()
	ctx := context.Background()

	private := s.upload("p.txt", []byte("p"), map[string]string{"isPrivate": "true", "passcode": "abc"})
	public := s.upload("q.txt", []byte("q"), nil)

	rec, err := s.deps.Registry.Lookup(ctx, private.Slug)
	require.NoError(t, err)

	w := s.do(s.adminRequest(http.MethodPut, "/api/admin/files/"+rec.ID, token, gin.H{"isPrivate": false}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusOK, s.fetch(private.Slug, nil).Code, "file is public now")

	w = s.do(s.adminRequest(http.MethodPut, "/api/admin/files/"+rec.ID, token, gin.H{"isPrivate": true}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusUnauthorized, s.fetch(private.Slug, nil).Code, "old passcode applies again")

	pub, err := s.deps.Registry.Lookup(ctx, public.Slug)
	require.NoError(t, err)

	w = s.do(s.adminRequest(http.MethodPut, "/api/admin/files/"+pub.ID, token, gin.H{"isPrivate": true}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(s.adminRequest(http.MethodPut, "/api/admin/files/"+pub.ID, token, gin.H{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(s.adminRequest(http.MethodPut, "/api/admin/files/missing", token, gin.H{"isPrivate": false}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminDelete(t *testing.T) {
	s := newTestServer(t)
	token := s.adminToken()

	res := s.upload("a.txt", []byte("a"), nil)
	rec, err := s.deps.Registry.Lookup(context.Background(), res.Slug)
	require.NoError(t, err)

	w := s.do(s.adminRequest(http.MethodDelete, "/api/admin/files/"+rec.ID, token, nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNotFound, s.fetch(res.Slug, nil).Code)

	w = s.do(s.adminRequest(http.MethodDelete, "/api/admin/files/"+rec.ID, token, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHeartbeatAndMetrics(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(httptest.NewRequest(http.MethodHead, "/api/heartbeat", nil)).Code)

	s.upload("a.txt", []byte("a"), nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dropgate_uploads_total")
	assert.Contains(t, w.Body.String(), "dropgate_http_requests_total")
}
