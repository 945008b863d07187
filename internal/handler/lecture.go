package handler // handler package contains lecture endpoints

import (
	"database/sql" // sentinel errors such as sql.ErrNoRows
	"net/http"     // http defines status codes
	"strings"      // strings helps with trimming whitespace

	"github.com/labstack/echo/v4" // echo provides the web context and JSON helpers

	"github.com/avorland/course-registration/internal/model"
	"github.com/avorland/course-registration/internal/repository"
	"github.com/avorland/course-registration/internal/validation"
)

// LectureHandler serves the lecture catalogue.  Reads are public;
// writes are admin-only (enforced in the router).
type LectureHandler struct {
	Lectures *repository.LectureRepo
}

func NewLectureHandler(lectures *repository.LectureRepo) *LectureHandler {
	if lectures == nil {
		panic("nil repository passed to NewLectureHandler")
	}
	return &LectureHandler{Lectures: lectures}
}

// CreateLecture handles POST /v1/lectures.  Department and year are
// constrained to the values the department offers courses for.
func (h *LectureHandler) CreateLecture(c echo.Context) error {
	var body struct {
		Title      string   `json:"title"`
		Department string   `json:"department"`
		Year       int      `json:"year"`
		Assistants []string `json:"assistants"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	violations := make([]validation.Violation, 0)
	body.Title = strings.TrimSpace(body.Title)
	if body.Title == "" {
		violations = append(violations, validation.Violation{Field: "title", Reason: "title is required"})
	}
	switch strings.ToLower(strings.TrimSpace(body.Department)) {
	case "itet", "mavt":
		body.Department = strings.ToLower(strings.TrimSpace(body.Department))
	default:
		violations = append(violations, validation.Violation{Field: "department", Reason: "department must be itet or mavt"})
	}
	if body.Year < 1 || body.Year > 3 {
		violations = append(violations, validation.Violation{Field: "year", Reason: "year must be between 1 and 3"})
	}
	if len(violations) > 0 {
		return respondViolations(c, violations)
	}

	l := &model.Lecture{
		Title:      body.Title,
		Department: body.Department,
		Year:       body.Year,
		Assistants: body.Assistants,
	}
	if err := h.Lectures.Create(c.Request().Context(), l); err != nil {
		if err == repository.ErrDuplicate {
			return c.JSON(http.StatusConflict, echo.Map{"error": "lecture title already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create lecture"})
	}
	return c.JSON(http.StatusCreated, renderLecture(*l))
}

// ListLectures handles GET /v1/lectures.
func (h *LectureHandler) ListLectures(c echo.Context) error {
	lectures, err := h.Lectures.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load lectures"})
	}
	items := make([]lectureResp, 0, len(lectures))
	for _, l := range lectures {
		items = append(items, renderLecture(l))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetLecture handles GET /v1/lectures/:id.
func (h *LectureHandler) GetLecture(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	l, err := h.Lectures.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "lecture not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load lecture"})
	}
	return c.JSON(http.StatusOK, renderLecture(*l))
}

// DeleteLecture handles DELETE /v1/lectures/:id.  A lecture that still
// has courses cannot be removed; the courses must go first.
func (h *LectureHandler) DeleteLecture(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	err = h.Lectures.Delete(c.Request().Context(), id)
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "lecture not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "cannot delete lecture with courses"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
