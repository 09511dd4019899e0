package app

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"student_forms/internal/client"
	"student_forms/internal/config"
	"student_forms/internal/controller"
	"student_forms/internal/model"
	"student_forms/internal/repository"
	"student_forms/internal/service"
	"student_forms/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routerTestForm = `formTitle: Profile
formId: profile
sections:
  - sectionId: 1
    title: About you
    fields:
      - fieldId: name
        type: text
        required: true
`

// The upstream client, pointed at <server>/registry as in the default
// config, talks to the registry routes this process mounts.
func TestRegistryRoutesServeUpstreamClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profile.yaml"), []byte(routerTestForm), 0o644))

	db, err := database.InitDB(&config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(dir, "registry.db")})
	require.NoError(t, err)
	forms, err := repository.NewFormRepository(dir)
	require.NoError(t, err)

	cfg := &config.Config{Session: config.SessionConfig{
		Secret:     "0123456789abcdef0123456789abcdef",
		CookieName: "sf_session",
		TTL:        time.Hour,
	}}
	sessions := repository.NewMemorySessionStore()
	formSvc := service.NewFormService(sessions, nil)
	authSvc := service.NewAuthService(nil, sessions, formSvc)
	registry := service.NewRegistryService(repository.NewStudentRepository(db), forms, "profile")

	a := &App{Config: cfg}
	router := gin.New()
	a.registerRoutes(router, &controllers{
		page:     controller.NewPageController(authSvc, formSvc),
		form:     controller.NewFormController(authSvc, formSvc),
		registry: controller.NewRegistryController(registry),
		health:   controller.NewHealthController(nil),
	}, cfg)

	srv := httptest.NewServer(router)
	defer srv.Close()

	upstream := client.NewUpstreamClient(srv.URL+"/registry", time.Second)
	ctx := context.Background()

	_, err = upstream.GetForm(ctx, "21CS001")
	assert.ErrorIs(t, err, client.ErrUpstream)

	require.NoError(t, upstream.RegisterUser(ctx, model.UserData{RollNumber: "21CS001", Name: "Asha"}))
	form, err := upstream.GetForm(ctx, "21CS001")
	require.NoError(t, err)
	assert.Equal(t, "profile", form.FormID)
	assert.Equal(t, "About you", form.Sections[0].Title)
}
