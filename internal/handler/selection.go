package handler // handler package contains selection endpoints

import (
	"database/sql" // sentinel errors such as sql.ErrNoRows
	"net/http"     // http defines status codes

	"github.com/labstack/echo/v4" // echo provides the web context and JSON helpers

	"github.com/avorland/course-registration/internal/model"
	"github.com/avorland/course-registration/internal/repository"
	"github.com/avorland/course-registration/internal/validation"
)

// SelectionHandler serves the selection collection: preliminary course
// choices made before signups open.  Selections share the uniqueness
// and overlap rules with signups but carry no status and never touch
// the allocation engine.
type SelectionHandler struct {
	Selections *repository.SelectionRepo
	Courses    *repository.CourseRepo
	Valid      *validation.Validator
}

func NewSelectionHandler(selections *repository.SelectionRepo, courses *repository.CourseRepo, valid *validation.Validator) *SelectionHandler {
	if selections == nil || courses == nil || valid == nil {
		panic("nil dependency passed to NewSelectionHandler")
	}
	return &SelectionHandler{Selections: selections, Courses: courses, Valid: valid}
}

type selectionBody struct {
	Nethz  *string    `json:"nethz"`
	Course *courseRef `json:"course"`
}

// CreateSelection handles POST /v1/selections.
func (h *SelectionHandler) CreateSelection(c echo.Context) error {
	var body selectionBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()
	ident := identityFrom(c)

	if body.Course == nil || body.Course.ID == 0 {
		return respondViolations(c, []validation.Violation{{Field: "course", Reason: "course is required"}})
	}
	if _, err := h.Courses.GetByID(ctx, body.Course.ID); err != nil {
		if err == sql.ErrNoRows {
			return respondViolations(c, []validation.Violation{{Field: "course", Reason: "course does not exist"}})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load course"})
	}
	nethz := ident.Nethz
	if body.Nethz != nil {
		nethz = *body.Nethz
	}

	candidate := validation.SignupCandidate{Nethz: &nethz, CourseID: &body.Course.ID}
	conflicts, err := h.Valid.ValidateSignup(ctx, candidate, nil, validation.KindSelections, ident)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to validate selection"})
	}
	if len(conflicts) > 0 {
		return respondViolations(c, conflicts)
	}

	s := &model.Selection{Nethz: nethz, CourseID: body.Course.ID}
	if err := h.Selections.Create(ctx, s); err != nil {
		if err == repository.ErrDuplicate {
			return c.JSON(http.StatusConflict, echo.Map{"error": "selection already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create selection"})
	}
	return c.JSON(http.StatusCreated, renderSelection(*s))
}

// ListSelections handles GET /v1/selections.  Admins see every
// selection, everyone else only their own.
func (h *SelectionHandler) ListSelections(c echo.Context) error {
	ident := identityFrom(c)
	owner := ident.Nethz
	if ident.Admin {
		owner = ""
	}
	selections, err := h.Selections.ListByOwner(c.Request().Context(), owner)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load selections"})
	}
	items := make([]selectionResp, 0, len(selections))
	for _, s := range selections {
		items = append(items, renderSelection(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetSelection handles GET /v1/selections/:id.
func (h *SelectionHandler) GetSelection(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	s, err := h.Selections.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "selection not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load selection"})
	}
	ident := identityFrom(c)
	if !ident.Admin && s.Nethz != ident.Nethz {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, renderSelection(*s))
}

// UpdateSelection handles PATCH /v1/selections/:id.  Only the course
// can change.
func (h *SelectionHandler) UpdateSelection(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()

	existing, err := h.Selections.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "selection not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load selection"})
	}
	ident := identityFrom(c)
	if !ident.Admin && existing.Nethz != ident.Nethz {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	var body selectionBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Nethz != nil && *body.Nethz != existing.Nethz {
		return respondViolations(c, []validation.Violation{{Field: "nethz", Reason: "nethz is not patchable"}})
	}
	if body.Course == nil || body.Course.ID == existing.CourseID {
		return c.JSON(http.StatusOK, renderSelection(*existing))
	}
	if _, err := h.Courses.GetByID(ctx, body.Course.ID); err != nil {
		if err == sql.ErrNoRows {
			return respondViolations(c, []validation.Violation{{Field: "course", Reason: "course does not exist"}})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load course"})
	}

	// Selections share the rule set with signups; the overlap check
	// just runs against the selections of the owner.
	shadow := model.Signup{ID: existing.ID, Nethz: existing.Nethz, CourseID: existing.CourseID}
	candidate := validation.SignupCandidate{ID: id, CourseID: &body.Course.ID}
	conflicts, err := h.Valid.ValidateSignup(ctx, candidate, &shadow, validation.KindSelections, ident)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to validate selection"})
	}
	if len(conflicts) > 0 {
		return respondViolations(c, conflicts)
	}

	if err := h.Selections.UpdateCourse(ctx, id, body.Course.ID); err != nil {
		if err == repository.ErrDuplicate {
			return c.JSON(http.StatusConflict, echo.Map{"error": "selection already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	fresh, err := h.Selections.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load selection"})
	}
	return c.JSON(http.StatusOK, renderSelection(*fresh))
}

// DeleteSelection handles DELETE /v1/selections/:id.
func (h *SelectionHandler) DeleteSelection(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()

	existing, err := h.Selections.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "selection not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load selection"})
	}
	ident := identityFrom(c)
	if !ident.Admin && existing.Nethz != ident.Nethz {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Selections.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "selection not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
