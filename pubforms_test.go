package pubforms

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pubforms/backend"
	"github.com/eringen/pubforms/drafts"
	"github.com/eringen/pubforms/forms"
)

type fakeBackend struct {
	mu sync.Mutex

	categories    []forms.Category
	categoriesErr error
	createErr     error
	registerErr   error
	tokenErr      error
	token         backend.TokenPair

	blogs       []forms.Blog
	blogTokens  []string
	signUps     []forms.SignUp
	tokenLogins []string
}

func (f *fakeBackend) Categories(ctx context.Context) ([]forms.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.categories, f.categoriesErr
}

func (f *fakeBackend) CreateBlog(ctx context.Context, accessToken string, b *forms.Blog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blogs = append(f.blogs, *b)
	f.blogTokens = append(f.blogTokens, accessToken)
	return f.createErr
}

func (f *fakeBackend) Register(ctx context.Context, u *forms.SignUp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUps = append(f.signUps, *u)
	return f.registerErr
}

func (f *fakeBackend) ObtainToken(ctx context.Context, username, password string) (backend.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenLogins = append(f.tokenLogins, username)
	return f.token, f.tokenErr
}

// testClient drives the app in-process and carries cookies between requests
// like a browser would.
type testClient struct {
	t       *testing.T
	app     *App
	cookies map[string]*http.Cookie
}

var draftIDRe = regexp.MustCompile(`name="draft_id" value="([0-9a-f]+)"`)

func newTestApp(t *testing.T, fb *fakeBackend) *testClient {
	t.Helper()
	cfg := SiteConfig{
		Name:               "Test Site",
		SessionSecret:      "test-session-secret-test-session-secret",
		DraftsDatabasePath: filepath.Join(t.TempDir(), "drafts.db"),
	}
	app := New(cfg, DefaultViews(), WithBackend(fb))
	require.NoError(t, app.Setup())
	t.Cleanup(func() { _ = app.Close() })
	return &testClient{t: t, app: app, cookies: map[string]*http.Cookie{}}
}

func (tc *testClient) do(req *http.Request) *httptest.ResponseRecorder {
	tc.t.Helper()
	for _, c := range tc.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	tc.app.Echo.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(tc.cookies, c.Name)
			continue
		}
		tc.cookies[c.Name] = c
	}
	return rec
}

func (tc *testClient) get(path string) *httptest.ResponseRecorder {
	return tc.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (tc *testClient) csrfToken() string {
	tc.t.Helper()
	if c, ok := tc.cookies["_csrf"]; ok {
		return c.Value
	}
	tc.get("/login/")
	c, ok := tc.cookies["_csrf"]
	require.True(tc.t, ok, "no csrf cookie issued")
	return c.Value
}

func (tc *testClient) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRF-Token", tc.csrfToken())
	return tc.do(req)
}

func (tc *testClient) postMultipart(path string, values map[string]string, files map[string]*forms.File) *httptest.ResponseRecorder {
	tc.t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range values {
		require.NoError(tc.t, w.WriteField(k, v))
	}
	for field, f := range files {
		part, err := w.CreateFormFile(field, f.Name)
		require.NoError(tc.t, err)
		_, err = part.Write(f.Data)
		require.NoError(tc.t, err)
	}
	require.NoError(tc.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-CSRF-Token", tc.csrfToken())
	return tc.do(req)
}

func (tc *testClient) draftID(rec *httptest.ResponseRecorder) string {
	tc.t.Helper()
	m := draftIDRe.FindStringSubmatch(rec.Body.String())
	require.Len(tc.t, m, 2, "no draft id in page")
	return m[1]
}

func (tc *testClient) login(fb *fakeBackend) {
	tc.t.Helper()
	fb.token = backend.TokenPair{Access: testAccessToken(tc.t, 7), Refresh: "refresh"}
	rec := tc.postForm("/login/", url.Values{"username": {"alice"}, "password": {"secret1"}})
	require.Equal(tc.t, http.StatusSeeOther, rec.Code)
	require.Equal(tc.t, "/blogs/create/", rec.Header().Get("Location"))
}

func testAccessToken(t *testing.T, userID int) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    userID,
		"token_type": "access",
	}).SignedString([]byte("backend-key"))
	require.NoError(t, err)
	return token
}

func testPNG(t *testing.T, w, h int) *forms.File {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &forms.File{Name: "picture.png", ContentType: "image/png", Data: buf.Bytes()}
}

func TestSignUp_Success(t *testing.T) {
	fb := &fakeBackend{}
	tc := newTestApp(t, fb)

	page := tc.get("/register/")
	require.Equal(t, http.StatusOK, page.Code)
	draftID := tc.draftID(page)

	photo := testPNG(t, 8, 8)
	rec := tc.postMultipart("/register/photo/", map[string]string{"draft_id": draftID}, map[string]*forms.File{"photo": photo})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "picture.png")
	assert.NotContains(t, rec.Body.String(), "<img", "sign-up has no preview")

	bio := gofakeit.Sentence(5)
	rec = tc.postMultipart("/register/", map[string]string{
		"draft_id":         draftID,
		"username":         "alice",
		"email":            "",
		"password":         "secret1",
		"confirm_password": "secret1",
		"bio":              bio,
	}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login/", rec.Header().Get("Location"))

	require.Len(t, fb.signUps, 1)
	got := fb.signUps[0]
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "secret1", got.Password)
	assert.Equal(t, bio, got.Bio)
	require.NotNil(t, got.Photo)
	assert.Equal(t, photo.Data, got.Photo.Data)

	login := tc.get("/login/")
	assert.Contains(t, login.Body.String(), "Successfully registered!")

	// the flash is shown once
	login = tc.get("/login/")
	assert.NotContains(t, login.Body.String(), "Successfully registered!")
}

func TestSignUp_PhotoSentWithSubmit(t *testing.T) {
	fb := &fakeBackend{}
	tc := newTestApp(t, fb)

	draftID := tc.draftID(tc.get("/register/"))
	rec := tc.postMultipart("/register/", map[string]string{
		"draft_id":         draftID,
		"username":         gofakeit.Username(),
		"password":         "secret1",
		"confirm_password": "secret1",
	}, map[string]*forms.File{"photo": testPNG(t, 4, 4)})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, fb.signUps, 1)
	assert.Equal(t, "picture.png", fb.signUps[0].Photo.Name)
}

func TestSignUp_ShortPassword(t *testing.T) {
	fb := &fakeBackend{}
	tc := newTestApp(t, fb)

	draftID := tc.draftID(tc.get("/register/"))
	rec := tc.postMultipart("/register/", map[string]string{
		"draft_id":         draftID,
		"username":         "alice",
		"password":         "abc",
		"confirm_password": "abc",
	}, map[string]*forms.File{"photo": testPNG(t, 4, 4)})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password should be at least 6 characters")
	assert.Contains(t, rec.Body.String(), `value="alice"`)
	assert.Empty(t, fb.signUps, "no network call on validation failure")
}

func TestSignUp_CorrectedPasswordClearsError(t *testing.T) {
	fb := &fakeBackend{registerErr: &backend.APIError{Status: http.StatusBadRequest, Detail: "Registration is closed."}}
	tc := newTestApp(t, fb)

	draftID := tc.draftID(tc.get("/register/"))
	fields := map[string]string{
		"draft_id":         draftID,
		"username":         "alice",
		"password":         "abc",
		"confirm_password": "abc",
	}
	photo := map[string]*forms.File{"photo": testPNG(t, 4, 4)}

	rec := tc.postMultipart("/register/", fields, photo)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password should be at least 6 characters")
	assert.Empty(t, fb.signUps)

	fields["password"] = "secret1"
	fields["confirm_password"] = "secret1"
	rec = tc.postMultipart("/register/", fields, photo)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "Password should be at least 6 characters")
	assert.Contains(t, body, "Registration is closed.")
	assert.Len(t, fb.signUps, 1)
}

func TestSignUp_AllErrorsShown(t *testing.T) {
	fb := &fakeBackend{}
	tc := newTestApp(t, fb)

	draftID := tc.draftID(tc.get("/register/"))
	rec := tc.postMultipart("/register/", map[string]string{
		"draft_id":         draftID,
		"password":         "secret1",
		"confirm_password": "secret2",
	}, nil)

	body := rec.Body.String()
	assert.Contains(t, body, "Username is required")
	assert.Contains(t, body, "Passwords do not match")
	assert.Contains(t, body, "Photo is required")
	assert.Empty(t, fb.signUps)
}

func TestSignUp_BackendDetail(t *testing.T) {
	fb := &fakeBackend{registerErr: &backend.APIError{Status: http.StatusBadRequest, Detail: "Registration is closed."}}
	tc := newTestApp(t, fb)

	draftID := tc.draftID(tc.get("/register/"))
	rec := tc.postMultipart("/register/", map[string]string{
		"draft_id":         draftID,
		"username":         "alice",
		"password":         "secret1",
		"confirm_password": "secret1",
	}, map[string]*forms.File{"photo": testPNG(t, 4, 4)})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registration is closed.")
	assert.Len(t, fb.signUps, 1)
}

func TestSignUp_BackendFieldErrors(t *testing.T) {
	fb := &fakeBackend{registerErr: &backend.APIError{
		Status: http.StatusBadRequest,
		Fields: map[string]string{"username": "A user with that username already exists."},
	}}
	tc := newTestApp(t, fb)

	draftID := tc.draftID(tc.get("/register/"))
	rec := tc.postMultipart("/register/", map[string]string{
		"draft_id":         draftID,
		"username":         "alice",
		"password":         "secret1",
		"confirm_password": "secret1",
	}, map[string]*forms.File{"photo": testPNG(t, 4, 4)})

	assert.Contains(t, rec.Body.String(), "A user with that username already exists.")
}

func TestSignUp_ServerUnreachable(t *testing.T) {
	fb := &fakeBackend{registerErr: errors.New("dial tcp 127.0.0.1:8000: connection refused")}
	tc := newTestApp(t, fb)

	draftID := tc.draftID(tc.get("/register/"))
	rec := tc.postMultipart("/register/", map[string]string{
		"draft_id":         draftID,
		"username":         "alice",
		"password":         "secret1",
		"confirm_password": "secret1",
	}, map[string]*forms.File{"photo": testPNG(t, 4, 4)})

	assert.Contains(t, rec.Body.String(), "Could not reach the server. Please try again.")
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestSignUp_RejectedFileIsStillSelected(t *testing.T) {
	fb := &fakeBackend{}
	tc := newTestApp(t, fb)

	draftID := tc.draftID(tc.get("/register/"))
	notes := &forms.File{Name: "notes.txt", Data: []byte("plain text, not an image")}
	rec := tc.postMultipart("/register/photo/", map[string]string{"draft_id": draftID}, map[string]*forms.File{"photo": notes})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Only image files are allowed (jpg, png, gif, webp)")

	rec = tc.postMultipart("/register/", map[string]string{
		"draft_id":         draftID,
		"username":         "alice",
		"password":         "secret1",
		"confirm_password": "secret1",
	}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, fb.signUps, 1)
	assert.Equal(t, "notes.txt", fb.signUps[0].Photo.Name)
}

func TestFileSelection_ExpiredDraft(t *testing.T) {
	tc := newTestApp(t, &fakeBackend{})

	rec := tc.postMultipart("/register/photo/", map[string]string{"draft_id": "gone"}, map[string]*forms.File{"photo": testPNG(t, 4, 4)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "This form has expired. Please reload the page.")
}

func TestBlogCreate_RequiresAuth(t *testing.T) {
	tc := newTestApp(t, &fakeBackend{})

	rec := tc.get("/blogs/create/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login/", rec.Header().Get("Location"))
}

func TestBlogCreate_Success(t *testing.T) {
	fb := &fakeBackend{categories: []forms.Category{{ID: "1", Label: "Tech"}, {ID: "2", Label: "Travel"}}}
	tc := newTestApp(t, fb)
	tc.login(fb)

	page := tc.get("/blogs/create/")
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), `<option value="Tech">`)
	assert.Contains(t, page.Body.String(), `<option value="Travel">`)
	draftID := tc.draftID(page)

	rec := tc.postMultipart("/blogs/create/image/", map[string]string{"draft_id": draftID}, map[string]*forms.File{"image": testPNG(t, 16, 8)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `src="data:image/jpeg;base64,`)

	title := gofakeit.Sentence(3)
	rec = tc.postMultipart("/blogs/create/", map[string]string{
		"draft_id": draftID,
		"title":    title,
		"content":  "Hello **world**",
		"category": "Travel",
	}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile/", rec.Header().Get("Location"))

	require.Len(t, fb.blogs, 1)
	got := fb.blogs[0]
	assert.Equal(t, title, got.Title)
	assert.Contains(t, got.Content, "<strong>world</strong>")
	assert.Equal(t, "Travel", got.Category)
	assert.Equal(t, "7", got.Author)
	require.NotNil(t, got.Image)
	assert.Equal(t, "picture.png", got.Image.Name)
	assert.Equal(t, fb.token.Access, fb.blogTokens[0])

	profile := tc.get("/profile/")
	assert.Contains(t, profile.Body.String(), "Blog created successfully!")
	assert.Contains(t, profile.Body.String(), "alice")
}

func TestBlogCreate_MissingCategory(t *testing.T) {
	fb := &fakeBackend{categories: []forms.Category{{ID: "1", Label: "Tech"}}}
	tc := newTestApp(t, fb)
	tc.login(fb)

	draftID := tc.draftID(tc.get("/blogs/create/"))
	rec := tc.postMultipart("/blogs/create/", map[string]string{
		"draft_id": draftID,
		"title":    "A title",
		"content":  "Some content",
	}, map[string]*forms.File{"image": testPNG(t, 4, 4)})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please select a category")
	assert.Contains(t, rec.Body.String(), `value="A title"`)
	assert.Empty(t, fb.blogs, "no network call on validation failure")
}

func TestBlogCreate_CorrectedCategoryClearsError(t *testing.T) {
	fb := &fakeBackend{
		categories: []forms.Category{{ID: "1", Label: "Tech"}},
		createErr:  &backend.APIError{Status: http.StatusBadRequest, Detail: "Title already used."},
	}
	tc := newTestApp(t, fb)
	tc.login(fb)

	draftID := tc.draftID(tc.get("/blogs/create/"))
	fields := map[string]string{
		"draft_id": draftID,
		"title":    "A title",
		"content":  "Some content",
	}
	image := map[string]*forms.File{"image": testPNG(t, 4, 4)}

	rec := tc.postMultipart("/blogs/create/", fields, image)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please select a category")

	fields["category"] = "Tech"
	rec = tc.postMultipart("/blogs/create/", fields, image)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "Please select a category")
	assert.Contains(t, body, "Title already used.")
	require.Len(t, fb.blogs, 1)
	assert.Equal(t, "Tech", fb.blogs[0].Category)
}

func TestBlogCreate_FirstFailureOnly(t *testing.T) {
	fb := &fakeBackend{}
	tc := newTestApp(t, fb)
	tc.login(fb)

	draftID := tc.draftID(tc.get("/blogs/create/"))
	rec := tc.postMultipart("/blogs/create/", map[string]string{"draft_id": draftID, "title": "   "}, nil)

	body := rec.Body.String()
	assert.Contains(t, body, "Title is required")
	assert.NotContains(t, body, "Content is required")
	assert.NotContains(t, body, "Please upload an image")
}

func TestBlogCreate_BackendRejects(t *testing.T) {
	fb := &fakeBackend{
		categories: []forms.Category{{ID: "1", Label: "Tech"}},
		createErr:  &backend.APIError{Status: http.StatusUnauthorized, Detail: "Given token not valid for any token type"},
	}
	tc := newTestApp(t, fb)
	tc.login(fb)

	draftID := tc.draftID(tc.get("/blogs/create/"))
	rec := tc.postMultipart("/blogs/create/", map[string]string{
		"draft_id": draftID,
		"title":    "t",
		"content":  "c",
		"category": "Tech",
	}, map[string]*forms.File{"image": testPNG(t, 4, 4)})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Given token not valid for any token type")
	assert.Contains(t, rec.Body.String(), `<option value="Tech" selected>`)
}

func TestBlogCreate_BackendRejectsWithoutDetail(t *testing.T) {
	fb := &fakeBackend{createErr: &backend.APIError{Status: http.StatusInternalServerError}}
	tc := newTestApp(t, fb)
	tc.login(fb)

	draftID := tc.draftID(tc.get("/blogs/create/"))
	rec := tc.postMultipart("/blogs/create/", map[string]string{
		"draft_id": draftID,
		"title":    "t",
		"content":  "c",
		"category": "Tech",
	}, map[string]*forms.File{"image": testPNG(t, 4, 4)})

	assert.Contains(t, rec.Body.String(), "Failed to create blog. Please try again.")
}

func TestBlogCreate_CategoriesUnavailable(t *testing.T) {
	fb := &fakeBackend{categoriesErr: errors.New("connection refused")}
	tc := newTestApp(t, fb)
	tc.login(fb)

	rec := tc.get("/blogs/create/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not load categories.")
}

func TestBlogContentPreview(t *testing.T) {
	fb := &fakeBackend{}
	tc := newTestApp(t, fb)
	tc.login(fb)

	rec := tc.postForm("/blogs/create/content/", url.Values{"content": {"# Title\n\n*soft*"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<em>soft</em>")
	assert.Contains(t, rec.Body.String(), `id="content-preview"`)
}

func TestLogin_Failure(t *testing.T) {
	fb := &fakeBackend{tokenErr: &backend.APIError{Status: http.StatusUnauthorized, Detail: "No active account found with the given credentials"}}
	tc := newTestApp(t, fb)

	rec := tc.postForm("/login/", url.Values{"username": {"alice"}, "password": {"nope"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No active account found with the given credentials")

	rec = tc.get("/blogs/create/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestLogin_TokenWithoutUserID(t *testing.T) {
	noUserID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"}).SignedString([]byte("k"))
	require.NoError(t, err)
	fb := &fakeBackend{token: backend.TokenPair{Access: noUserID, Refresh: "refresh"}}
	tc := newTestApp(t, fb)

	rec := tc.postForm("/login/", url.Values{"username": {"alice"}, "password": {"secret1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgNoAccountID)

	rec = tc.get("/blogs/create/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login/", rec.Header().Get("Location"))
	assert.Empty(t, fb.blogs)
}

func TestLogin_MissingFields(t *testing.T) {
	fb := &fakeBackend{}
	tc := newTestApp(t, fb)

	rec := tc.postForm("/login/", url.Values{"username": {"alice"}})
	assert.Contains(t, rec.Body.String(), "Username and password are required.")
	assert.Empty(t, fb.tokenLogins)
}

func TestLogout(t *testing.T) {
	fb := &fakeBackend{}
	tc := newTestApp(t, fb)
	tc.login(fb)

	require.Equal(t, http.StatusOK, tc.get("/profile/").Code)

	rec := tc.postForm("/logout/", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = tc.get("/profile/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestCSRFRequired(t *testing.T) {
	fb := &fakeBackend{}
	tc := newTestApp(t, fb)

	req := httptest.NewRequest(http.MethodPost, "/login/", strings.NewReader("username=a&password=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := tc.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, fb.tokenLogins)
}

func TestNotFound(t *testing.T) {
	tc := newTestApp(t, &fakeBackend{})

	rec := tc.get("/nope/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
}

func TestMetricsEndpoint(t *testing.T) {
	fb := &fakeBackend{}
	tc := newTestApp(t, fb)

	draftID := tc.draftID(tc.get("/register/"))
	tc.postMultipart("/register/", map[string]string{"draft_id": draftID}, nil)

	rec := tc.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pubforms_web_form_validation_failures{page="signup"} 1`)
	assert.Contains(t, string(body), "pubforms_web_request_duration_seconds")
}

func TestOptions_DraftsAndCustomRoutes(t *testing.T) {
	store, err := drafts.NewStore(filepath.Join(t.TempDir(), "shared.db"))
	require.NoError(t, err)

	cfg := SiteConfig{SessionSecret: "test-session-secret-test-session-secret"}
	app := New(cfg, DefaultViews(),
		WithBackend(&fakeBackend{}),
		WithDrafts(store),
		WithCustomRoutes(func(a *App) {
			a.Echo.GET("/healthz/", func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			})
		}),
	)
	require.NoError(t, app.Setup())
	t.Cleanup(func() { _ = app.Close() })
	assert.Same(t, store, app.Drafts)

	tc := &testClient{t: t, app: app, cookies: map[string]*http.Cookie{}}
	rec := tc.get("/healthz/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	id := tc.draftID(tc.get("/register/"))
	d, err := store.Get(id, drafts.PageSignUp)
	require.NoError(t, err)
	assert.Equal(t, id, d.ID)
}

func TestSetupRequiresSessionSecret(t *testing.T) {
	app := New(SiteConfig{}, DefaultViews(), WithBackend(&fakeBackend{}))
	assert.Error(t, app.Setup())
}

func TestUserIDFromToken(t *testing.T) {
	id, err := userIDFromToken(testAccessToken(t, 42))
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	noClaim, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = userIDFromToken(noClaim)
	assert.Error(t, err)

	_, err = userIDFromToken("not-a-token")
	assert.Error(t, err)
}

func TestRegisterErrors(t *testing.T) {
	msg, errs := registerErrors(&backend.APIError{
		Status: http.StatusBadRequest,
		Fields: map[string]string{
			"username":         "Taken.",
			"non_field_errors": "Try later.",
		},
	})
	assert.Equal(t, "Try later.", msg)
	assert.Equal(t, "Taken.", errs.Get(forms.FieldUsername))

	msg, errs = registerErrors(&backend.APIError{Status: http.StatusBadRequest})
	assert.Equal(t, msgRegisterFailed, msg)
	assert.Empty(t, errs)

	msg, _ = registerErrors(&backend.APIError{Status: http.StatusConflict, Detail: "Nope."})
	assert.Equal(t, "Nope.", msg)
}
