package controller

import (
	"errors"
	"net/http"
	"student_forms/internal/model"
	"student_forms/internal/service"
	"student_forms/internal/util"

	"github.com/gin-gonic/gin"
)

// RegistryController serves the upstream API contract: create-user and
// get-form.
type RegistryController struct {
	RegistryService *service.RegistryService
}

func NewRegistryController(registryService *service.RegistryService) *RegistryController {
	return &RegistryController{RegistryService: registryService}
}

// CreateUser godoc
// @Summary Register a student
// @Tags registry
// @Accept json
// @Produce json
// @Param body body model.UserData true "Student identity"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /registry/create-user [post]
func (c *RegistryController) CreateUser(ctx *gin.Context) {
	var req model.UserData
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	student, err := c.RegistryService.RegisterStudent(req)
	if err != nil {
		if errors.Is(err, util.ErrMissingCredentials) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"rollNumber": student.RollNumber, "name": student.Name})
}

// GetForm godoc
// @Summary Form assigned to a student
// @Tags registry
// @Produce json
// @Param rollNumber query string true "Roll number"
// @Success 200 {object} model.FormResponse
// @Failure 404 {object} util.Response
// @Router /registry/get-form [get]
func (c *RegistryController) GetForm(ctx *gin.Context) {
	roll := ctx.Query("rollNumber")
	if roll == "" {
		util.BadRequest(ctx, "rollNumber is required")
		return
	}

	form, err := c.RegistryService.FormFor(roll)
	if err != nil {
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			util.LogInternalError(ctx, err)
			return
		}
		util.Error(ctx, status, msg)
		return
	}
	ctx.JSON(http.StatusOK, model.FormResponse{Message: "Form fetched successfully", Form: *form})
}
