package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"student_forms/internal/client"
	"student_forms/internal/config"
	"student_forms/internal/middleware"
	"student_forms/internal/model"
	"student_forms/internal/repository"
	"student_forms/internal/service"
	"student_forms/internal/util"
	"student_forms/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUpstream struct {
	mu          sync.Mutex
	registerErr error
	formErr     error
	schema      *model.FormSchema
	fetches     int
}

func (s *stubUpstream) RegisterUser(_ context.Context, _ model.UserData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registerErr
}

func (s *stubUpstream) GetForm(_ context.Context, _ string) (*model.FormSchema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.formErr != nil {
		return nil, s.formErr
	}
	schema := *s.schema
	return &schema, nil
}

func (s *stubUpstream) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func (s *stubUpstream) set(registerErr, formErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerErr = registerErr
	s.formErr = formErr
}

func surveySchema() *model.FormSchema {
	return &model.FormSchema{
		FormTitle: "Student Survey",
		FormID:    "survey-1",
		Sections: []model.FormSection{
			{
				SectionID:   1,
				Title:       "About you",
				Description: "<p>Basics</p>",
				Fields: []model.FormField{
					{FieldID: "name", Type: model.FieldText, Label: "Name", Required: true, MinLength: 2},
					{FieldID: "age", Type: "number", Label: "Age"},
				},
			},
			{
				SectionID: 2,
				Title:     "Interests",
				Fields: []model.FormField{
					{FieldID: "skills", Type: model.FieldCheckbox, Label: "Skills", Required: true, Options: []model.FieldOption{
						{Value: "go", Label: "Go"},
						{Value: "sql", Label: "SQL"},
					}},
				},
			},
		},
	}
}

// newTestServer wires the pages and JSON API the same way the app does.
func newTestServer(t *testing.T, upstream *stubUpstream) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{Session: config.SessionConfig{
		Secret:     "0123456789abcdef0123456789abcdef",
		CookieName: "sf_session",
		TTL:        time.Hour,
	}}
	sessions := repository.NewMemorySessionStore()
	forms := service.NewFormService(sessions, upstream)
	auth := service.NewAuthService(upstream, sessions, forms)
	pages := NewPageController(auth, forms)
	api := NewFormController(auth, forms)

	tmpl, err := web.Templates()
	require.NoError(t, err)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	g := r.Group("/")
	g.Use(middleware.SessionMiddleware(cfg))
	g.GET("/login", pages.LoginPage)
	g.POST("/login", pages.Login)
	g.GET("/form", pages.FormPage)
	g.POST("/form/section", pages.Section)
	g.POST("/form/retry", pages.Retry)
	g.POST("/form/return", pages.ReturnToLogin)
	g.POST("/api/session/login", api.Login)
	g.GET("/api/session", api.Session)
	g.GET("/api/form", api.GetForm)
	g.PUT("/api/form/fields/:fieldId", api.SetField)
	g.POST("/api/form/next", api.Next)
	g.POST("/api/form/prev", api.Previous)
	g.POST("/api/form/retry", api.Retry)
	g.POST("/api/form/return", api.ReturnToLogin)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// browser keeps cookies and does not follow redirects.
type browser struct {
	t    *testing.T
	base string
	c    *http.Client
}

func newBrowser(t *testing.T, srv *httptest.Server) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: srv.URL, c: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (b *browser) do(method, path, contentType, body string) (*http.Response, string) {
	b.t.Helper()
	req, err := http.NewRequest(method, b.base+path, strings.NewReader(body))
	require.NoError(b.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := b.c.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, string(raw)
}

func (b *browser) postForm(path string, values url.Values) (*http.Response, string) {
	return b.do(http.MethodPost, path, "application/x-www-form-urlencoded", values.Encode())
}

type apiReply struct {
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Data    service.FormView `json:"data"`
}

func (b *browser) api(method, path, body string) (int, apiReply) {
	b.t.Helper()
	resp, raw := b.do(method, path, "application/json", body)
	var reply apiReply
	require.NoError(b.t, json.Unmarshal([]byte(raw), &reply), raw)
	return resp.StatusCode, reply
}

func TestAPI_FullFlow(t *testing.T) {
	upstream := &stubUpstream{schema: surveySchema()}
	b := newBrowser(t, newTestServer(t, upstream))

	status, _ := b.api(http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, reply := b.api(http.MethodGet, "/api/form", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, service.StateRedirect, reply.Data.State)
	assert.Zero(t, upstream.fetchCount())

	status, _ = b.api(http.MethodPost, "/api/session/login", `{"rollNumber":"21CS001"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = b.api(http.MethodPost, "/api/session/login", `{"rollNumber":"21CS001","name":"Asha"}`)
	require.Equal(t, http.StatusOK, status)

	status, reply = b.api(http.MethodGet, "/api/form", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, service.StateReady, reply.Data.State)
	assert.Equal(t, "About you", reply.Data.Section.Title)

	status, reply = b.api(http.MethodPost, "/api/form/next", "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "This field is required", reply.Data.Errors["name"])

	status, reply = b.api(http.MethodPut, "/api/form/fields/name", `{"value":"A"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, reply.Data.Errors)

	status, _ = b.api(http.MethodPut, "/api/form/fields/nope", `{"value":"A"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = b.api(http.MethodPut, "/api/form/fields/name", `{"value":["A"]}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, reply = b.api(http.MethodPost, "/api/form/next", "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "Minimum length is 2 characters", reply.Data.Errors["name"])

	b.api(http.MethodPut, "/api/form/fields/name", `{"value":"Asha"}`)
	status, reply = b.api(http.MethodPost, "/api/form/next", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, reply.Data.SectionIndex)
	assert.True(t, reply.Data.IsLast)

	status, reply = b.api(http.MethodPost, "/api/form/prev", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, reply.Data.SectionIndex)
	assert.Equal(t, "Asha", reply.Data.Values["name"].String())

	status, _ = b.api(http.MethodPost, "/api/form/prev", "")
	assert.Equal(t, http.StatusConflict, status)

	b.api(http.MethodPost, "/api/form/next", "")
	b.api(http.MethodPut, "/api/form/fields/skills", `{"value":["go","sql"]}`)
	status, reply = b.api(http.MethodPost, "/api/form/next", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, service.StateSubmitted, reply.Data.State)

	status, _ = b.api(http.MethodPost, "/api/form/next", "")
	assert.Equal(t, http.StatusConflict, status)

	status, reply = b.api(http.MethodPost, "/api/form/return", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, service.StateRedirect, reply.Data.State)

	status, _ = b.api(http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 1, upstream.fetchCount())
}

func TestAPI_RegistrationFailure(t *testing.T) {
	upstream := &stubUpstream{schema: surveySchema()}
	upstream.set(&client.Error{Op: "create-user", Status: http.StatusInternalServerError}, nil)
	b := newBrowser(t, newTestServer(t, upstream))

	status, reply := b.api(http.MethodPost, "/api/session/login", `{"rollNumber":"21CS001","name":"Asha"}`)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, util.MsgRegistrationFailed, reply.Message)

	status, _ = b.api(http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_LoadFailureAndRetry(t *testing.T) {
	upstream := &stubUpstream{schema: surveySchema()}
	b := newBrowser(t, newTestServer(t, upstream))
	b.api(http.MethodPost, "/api/session/login", `{"rollNumber":"21CS001","name":"Asha"}`)

	upstream.set(nil, errors.New("connection refused"))
	status, reply := b.api(http.MethodGet, "/api/form", "")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, util.MsgFormLoadFailed, reply.Message)
	assert.Equal(t, service.StateError, reply.Data.State)

	// The failure is reported the same way until a retry.
	upstream.set(nil, nil)
	status, reply = b.api(http.MethodGet, "/api/form", "")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, service.StateError, reply.Data.State)
	status, _ = b.api(http.MethodPost, "/api/form/next", "")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, 1, upstream.fetchCount())

	status, reply = b.api(http.MethodPost, "/api/form/retry", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, service.StateReady, reply.Data.State)

	status, _ = b.api(http.MethodPost, "/api/form/retry", "")
	assert.Equal(t, http.StatusConflict, status)
}

func TestPages_LoginAndForm(t *testing.T) {
	upstream := &stubUpstream{schema: surveySchema()}
	b := newBrowser(t, newTestServer(t, upstream))

	resp, _ := b.do(http.MethodGet, "/form", "", "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, body := b.do(http.MethodGet, "/login", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Welcome Student")

	resp, body = b.postForm("/login", url.Values{"rollNumber": {"21CS001"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, util.ErrMissingCredentials.Error())
	assert.Contains(t, body, `value="21CS001"`)

	resp, _ = b.postForm("/login", url.Values{"rollNumber": {"21CS001"}, "name": {"Asha"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/form", resp.Header.Get("Location"))

	resp, body = b.do(http.MethodGet, "/form", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Student Survey")
	assert.Contains(t, body, "Section 1 of 2")
	assert.Contains(t, body, "<p>Basics</p>")
	assert.Contains(t, body, `type="number" id="age" name="age"`)

	// Errors survive the redirect back to the section page.
	resp, _ = b.postForm("/form/section", url.Values{"action": {"next"}, "name": {""}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body = b.do(http.MethodGet, "/form", "", "")
	assert.Contains(t, body, "This field is required")
	assert.Contains(t, body, "Section 1 of 2")

	resp, _ = b.postForm("/form/section", url.Values{"action": {"prev"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = b.postForm("/form/section", url.Values{"action": {"next"}, "name": {"Asha"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body = b.do(http.MethodGet, "/form", "", "")
	assert.Contains(t, body, "Section 2 of 2")
	assert.Contains(t, body, "Submit")

	resp, _ = b.postForm("/form/section", url.Values{"action": {"next"}, "skills": {"go", "sql"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body = b.do(http.MethodGet, "/form", "", "")
	assert.Contains(t, body, "Return to Login")

	resp, _ = b.postForm("/form/return", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, _ = b.do(http.MethodGet, "/form", "", "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestPages_LoadFailureShowsRetry(t *testing.T) {
	upstream := &stubUpstream{schema: surveySchema()}
	b := newBrowser(t, newTestServer(t, upstream))
	b.postForm("/login", url.Values{"rollNumber": {"21CS001"}, "name": {"Asha"}})

	upstream.set(nil, errors.New("timeout"))
	resp, body := b.do(http.MethodGet, "/form", "", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, util.MsgFormLoadFailed)
	assert.Contains(t, body, "Try Again")

	upstream.set(nil, nil)
	resp, body = b.postForm("/form/retry", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "About you")
}

func TestSessionCookieIsolation(t *testing.T) {
	upstream := &stubUpstream{schema: surveySchema()}
	srv := newTestServer(t, upstream)

	alice := newBrowser(t, srv)
	status, _ := alice.api(http.MethodPost, "/api/session/login", `{"rollNumber":"21CS001","name":"Asha"}`)
	require.Equal(t, http.StatusOK, status)

	// A forged cookie is replaced by a fresh, empty session.
	mallory := newBrowser(t, srv)
	u, _ := url.Parse(srv.URL)
	mallory.c.Jar.SetCookies(u, []*http.Cookie{{Name: "sf_session", Value: "forged.token.value", Path: "/"}})
	status, _ = mallory.api(http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = alice.api(http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{util.ErrNoSession, http.StatusUnauthorized},
		{util.ErrMissingCredentials, http.StatusBadRequest},
		{fmt.Errorf("%w: boom", util.ErrRegistrationFailed), http.StatusBadGateway},
		{fmt.Errorf("%w: boom", util.ErrFormLoad), http.StatusBadGateway},
		{&client.Error{Op: "get-form", Status: 500}, http.StatusBadGateway},
		{util.ErrAtFirstSection, http.StatusConflict},
		{util.ErrInvalidState, http.StatusConflict},
		{util.ErrUnknownField, http.StatusBadRequest},
		{util.ErrStudentNotFound, http.StatusNotFound},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, msg := statusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.NotEmpty(t, msg)
	}
}
