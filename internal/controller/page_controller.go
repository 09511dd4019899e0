package controller

import (
	"errors"
	"net/http"
	"student_forms/internal/model"
	"student_forms/internal/service"
	"student_forms/internal/util"

	"github.com/gin-gonic/gin"
)

// PageController serves the server-rendered login and form pages.
type PageController struct {
	AuthService *service.AuthService
	FormService *service.FormService
}

func NewPageController(authService *service.AuthService, formService *service.FormService) *PageController {
	return &PageController{
		AuthService: authService,
		FormService: formService,
	}
}

type loginPage struct {
	RollNumber string
	Name       string
	Error      string
}

type formPage struct {
	View service.FormView
}

func (c *PageController) Index(ctx *gin.Context) {
	ctx.Redirect(http.StatusFound, "/login")
}

func (c *PageController) LoginPage(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "login.html", loginPage{})
}

func (c *PageController) Login(ctx *gin.Context) {
	var req model.UserData
	page := loginPage{
		RollNumber: ctx.PostForm("rollNumber"),
		Name:       ctx.PostForm("name"),
	}
	if err := ctx.ShouldBind(&req); err != nil {
		page.Error = util.ErrMissingCredentials.Error()
		ctx.HTML(http.StatusBadRequest, "login.html", page)
		return
	}

	if err := c.AuthService.Login(ctx.Request.Context(), util.GetSessionID(ctx), req); err != nil {
		status, msg := statusFor(err)
		page.Error = msg
		ctx.HTML(status, "login.html", page)
		return
	}

	ctx.Redirect(http.StatusSeeOther, "/form")
}

func (c *PageController) FormPage(ctx *gin.Context) {
	view, err := c.FormService.Open(ctx.Request.Context(), util.GetSessionID(ctx))
	c.renderForm(ctx, view, err)
}

// Section handles the Previous and Next buttons of a section page.
func (c *PageController) Section(ctx *gin.Context) {
	sessionID := util.GetSessionID(ctx)
	current, err := c.FormService.Open(ctx.Request.Context(), sessionID)
	if err != nil || current.State != service.StateReady {
		c.renderForm(ctx, current, err)
		return
	}

	values := sectionValues(ctx, current.Section)

	var view service.FormView
	switch ctx.PostForm("action") {
	case "prev":
		view, err = c.FormService.RetreatSection(ctx.Request.Context(), sessionID, values)
	default:
		view, _, err = c.FormService.SubmitSection(ctx.Request.Context(), sessionID, values)
	}
	if errors.Is(err, util.ErrAtFirstSection) {
		err = nil
	}
	if err == nil {
		ctx.Redirect(http.StatusSeeOther, "/form")
		return
	}
	c.renderForm(ctx, view, err)
}

func (c *PageController) Retry(ctx *gin.Context) {
	view, err := c.FormService.Retry(ctx.Request.Context(), util.GetSessionID(ctx))
	if errors.Is(err, util.ErrInvalidState) {
		ctx.Redirect(http.StatusSeeOther, "/form")
		return
	}
	c.renderForm(ctx, view, err)
}

func (c *PageController) ReturnToLogin(ctx *gin.Context) {
	_, err := c.FormService.ReturnToLogin(ctx.Request.Context(), util.GetSessionID(ctx))
	if err != nil && !errors.Is(err, util.ErrNoSession) {
		status, msg := statusFor(err)
		ctx.String(status, msg)
		return
	}
	ctx.Redirect(http.StatusSeeOther, "/login")
}

func (c *PageController) renderForm(ctx *gin.Context, view service.FormView, err error) {
	if view.State == service.StateRedirect || errors.Is(err, util.ErrNoSession) {
		ctx.Redirect(http.StatusSeeOther, "/login")
		return
	}
	status := http.StatusOK
	if err != nil {
		status, _ = statusFor(err)
	}
	ctx.HTML(status, "form.html", formPage{View: view})
}

// sectionValues reads the posted values of the fields on section.
func sectionValues(ctx *gin.Context, section *model.FormSection) model.FormData {
	values := make(model.FormData)
	if section == nil {
		return values
	}
	for _, f := range section.Fields {
		if f.Type.IsMulti() {
			values[f.FieldID] = model.List(ctx.PostFormArray(f.FieldID)...)
			continue
		}
		values[f.FieldID] = model.Text(ctx.PostForm(f.FieldID))
	}
	return values
}
