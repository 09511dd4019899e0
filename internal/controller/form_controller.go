package controller

import (
	"net/http"
	"student_forms/internal/model"
	"student_forms/internal/service"
	"student_forms/internal/util"

	"github.com/gin-gonic/gin"
)

// FormController exposes the form runtime as a JSON API for script clients.
type FormController struct {
	AuthService *service.AuthService
	FormService *service.FormService
}

func NewFormController(authService *service.AuthService, formService *service.FormService) *FormController {
	return &FormController{
		AuthService: authService,
		FormService: formService,
	}
}

// Login godoc
// @Summary Log a student in
// @Description Registers the student upstream and stores roll number and name for the session
// @Tags session
// @Accept json
// @Produce json
// @Param body body model.UserData true "Student identity"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 502 {object} util.Response
// @Router /api/session/login [post]
func (c *FormController) Login(ctx *gin.Context) {
	var req model.UserData
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.ErrMissingCredentials.Error())
		return
	}

	if err := c.AuthService.Login(ctx.Request.Context(), util.GetSessionID(ctx), req); err != nil {
		c.fail(ctx, err, nil)
		return
	}
	util.Success(ctx, gin.H{"rollNumber": req.RollNumber, "name": req.Name})
}

// Session godoc
// @Summary Current session identity
// @Tags session
// @Produce json
// @Success 200 {object} util.Response
// @Failure 401 {object} util.Response
// @Router /api/session [get]
func (c *FormController) Session(ctx *gin.Context) {
	user, ok, err := c.AuthService.CurrentUser(ctx.Request.Context(), util.GetSessionID(ctx))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if !ok {
		util.Unauthorized(ctx)
		return
	}
	util.Success(ctx, user)
}

// GetForm godoc
// @Summary Current form view
// @Description Loads the form on first access and returns the displayed section
// @Tags form
// @Produce json
// @Success 200 {object} util.Response{data=service.FormView}
// @Failure 401 {object} util.Response
// @Failure 502 {object} util.Response
// @Router /api/form [get]
func (c *FormController) GetForm(ctx *gin.Context) {
	view, err := c.FormService.Open(ctx.Request.Context(), util.GetSessionID(ctx))
	c.respond(ctx, view, err)
}

type setFieldRequest struct {
	Value model.FieldValue `json:"value"`
}

// SetField godoc
// @Summary Update one field
// @Description Stores the value and clears the field's current error
// @Tags form
// @Accept json
// @Produce json
// @Param fieldId path string true "Field id"
// @Success 200 {object} util.Response{data=service.FormView}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/form/fields/{fieldId} [put]
func (c *FormController) SetField(ctx *gin.Context) {
	var req setFieldRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	view, err := c.FormService.SetField(ctx.Request.Context(), util.GetSessionID(ctx), ctx.Param("fieldId"), req.Value)
	c.respond(ctx, view, err)
}

// Next godoc
// @Summary Validate and advance
// @Description Validates the displayed section, then advances or submits
// @Tags form
// @Produce json
// @Success 200 {object} util.Response{data=service.FormView}
// @Failure 422 {object} util.Response{data=service.FormView}
// @Router /api/form/next [post]
func (c *FormController) Next(ctx *gin.Context) {
	view, valid, err := c.FormService.Next(ctx.Request.Context(), util.GetSessionID(ctx))
	if err == nil && !valid {
		util.ErrorWithData(ctx, http.StatusUnprocessableEntity, "section has validation errors", view)
		return
	}
	c.respond(ctx, view, err)
}

// Previous godoc
// @Summary Go back one section
// @Tags form
// @Produce json
// @Success 200 {object} util.Response{data=service.FormView}
// @Failure 409 {object} util.Response
// @Router /api/form/prev [post]
func (c *FormController) Previous(ctx *gin.Context) {
	view, err := c.FormService.Previous(ctx.Request.Context(), util.GetSessionID(ctx))
	c.respond(ctx, view, err)
}

// Retry godoc
// @Summary Reload a form that failed to load
// @Tags form
// @Produce json
// @Success 200 {object} util.Response{data=service.FormView}
// @Router /api/form/retry [post]
func (c *FormController) Retry(ctx *gin.Context) {
	view, err := c.FormService.Retry(ctx.Request.Context(), util.GetSessionID(ctx))
	c.respond(ctx, view, err)
}

// ReturnToLogin godoc
// @Summary Leave a submitted form
// @Description Clears the stored roll number and name
// @Tags form
// @Produce json
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/form/return [post]
func (c *FormController) ReturnToLogin(ctx *gin.Context) {
	view, err := c.FormService.ReturnToLogin(ctx.Request.Context(), util.GetSessionID(ctx))
	c.respond(ctx, view, err)
}

func (c *FormController) respond(ctx *gin.Context, view service.FormView, err error) {
	if err != nil {
		c.fail(ctx, err, &view)
		return
	}
	util.Success(ctx, view)
}

func (c *FormController) fail(ctx *gin.Context, err error, view *service.FormView) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		util.LogInternalError(ctx, err)
		return
	}
	if view != nil {
		util.ErrorWithData(ctx, status, msg, view)
		return
	}
	util.Error(ctx, status, msg)
}
