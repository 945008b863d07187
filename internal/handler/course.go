package handler // handler package contains course endpoints

import (
	"database/sql" // sentinel errors such as sql.ErrNoRows
	"net/http"     // http defines status codes
	"strconv"      // strconv parses the lecture query filter
	"strings"      // strings helps with trimming whitespace

	"github.com/labstack/echo/v4" // echo provides the web context and JSON helpers

	"github.com/avorland/course-registration/internal/allocation"
	"github.com/avorland/course-registration/internal/model"
	"github.com/avorland/course-registration/internal/repository"
	"github.com/avorland/course-registration/internal/validation"
)

// CourseHandler serves the course catalogue.  Reads are public; writes
// are admin-only (enforced in the router).  Writes run the conflict
// validator first; changing the spot count afterwards hands the course
// to the allocation engine so freed capacity is granted immediately.
type CourseHandler struct {
	Courses  *repository.CourseRepo
	Lectures *repository.LectureRepo
	Valid    *validation.Validator
	Engine   *allocation.Engine
	Notifier *PromotionNotifier
}

func NewCourseHandler(courses *repository.CourseRepo, lectures *repository.LectureRepo, valid *validation.Validator, engine *allocation.Engine, notifier *PromotionNotifier) *CourseHandler {
	if courses == nil || lectures == nil || valid == nil || engine == nil {
		panic("nil dependency passed to NewCourseHandler")
	}
	return &CourseHandler{Courses: courses, Lectures: lectures, Valid: valid, Engine: engine, Notifier: notifier}
}

// courseBody is the JSON shape shared by create and update.  Pointer
// fields distinguish "absent" from zero values on partial updates.
type courseBody struct {
	Lecture   *courseRef        `json:"lecture"`
	Assistant *string           `json:"assistant"`
	Room      *string           `json:"room"`
	Spots     *int              `json:"spots"`
	Signup    *model.Timespan   `json:"signup"`
	Datetimes *[]model.Timespan `json:"datetimes"`
}

// CreateCourse handles POST /v1/courses.
func (h *CourseHandler) CreateCourse(c echo.Context) error {
	var body courseBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()

	violations := make([]validation.Violation, 0)
	if body.Lecture == nil || body.Lecture.ID == 0 {
		violations = append(violations, validation.Violation{Field: "lecture", Reason: "lecture is required"})
	} else if _, err := h.Lectures.GetByID(ctx, body.Lecture.ID); err != nil {
		if err == sql.ErrNoRows {
			violations = append(violations, validation.Violation{Field: "lecture", Reason: "lecture does not exist"})
		} else {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to verify lecture"})
		}
	}
	if body.Room == nil || strings.TrimSpace(*body.Room) == "" {
		violations = append(violations, validation.Violation{Field: "room", Reason: "room is required"})
	}
	if body.Spots == nil || *body.Spots < 1 {
		violations = append(violations, validation.Violation{Field: "spots", Reason: "spots must be at least 1"})
	}
	if body.Signup == nil || !body.Signup.Valid() {
		violations = append(violations, validation.Violation{Field: "signup", Reason: "signup window must have start before end"})
	}
	if body.Datetimes == nil || len(*body.Datetimes) == 0 {
		violations = append(violations, validation.Violation{Field: "datetimes", Reason: "at least one time slot is required"})
	}
	if len(violations) > 0 {
		return respondViolations(c, violations)
	}

	candidate := validation.CourseCandidate{
		Room:      body.Room,
		Assistant: body.Assistant,
		Datetimes: *body.Datetimes,
	}
	conflicts, err := h.Valid.ValidateCourse(ctx, candidate, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check conflicts"})
	}
	if len(conflicts) > 0 {
		return respondViolations(c, conflicts)
	}

	course := &model.Course{
		LectureID: body.Lecture.ID,
		Room:      strings.TrimSpace(*body.Room),
		Spots:     *body.Spots,
		Signup:    *body.Signup,
		Datetimes: *body.Datetimes,
	}
	if body.Assistant != nil {
		course.Assistant = strings.TrimSpace(*body.Assistant)
	}
	if err := h.Courses.Create(ctx, course); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create course"})
	}
	return c.JSON(http.StatusCreated, renderCourse(*course))
}

// ListCourses handles GET /v1/courses with an optional ?lecture= filter.
func (h *CourseHandler) ListCourses(c echo.Context) error {
	var lectureID uint64
	if q := c.QueryParam("lecture"); q != "" {
		n, err := strconv.ParseUint(q, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lecture filter"})
		}
		lectureID = n
	}
	courses, err := h.Courses.List(c.Request().Context(), lectureID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load courses"})
	}
	items := make([]courseResp, 0, len(courses))
	for _, course := range courses {
		items = append(items, renderCourse(course))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetCourse handles GET /v1/courses/:id.
func (h *CourseHandler) GetCourse(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	course, err := h.Courses.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load course"})
	}
	return c.JSON(http.StatusOK, renderCourse(*course))
}

// coursePatchViolations checks the fields of a partial update.  A field
// that is absent keeps its stored value; a field that is supplied must
// satisfy the same requiredness as on creation, so a patch cannot blank
// out the room or strip a course of all its time slots.
func coursePatchViolations(body courseBody, existingLectureID uint64) []validation.Violation {
	violations := make([]validation.Violation, 0)
	if body.Lecture != nil && body.Lecture.ID != existingLectureID {
		violations = append(violations, validation.Violation{Field: "lecture", Reason: "lecture is not patchable"})
	}
	if body.Room != nil && strings.TrimSpace(*body.Room) == "" {
		violations = append(violations, validation.Violation{Field: "room", Reason: "room is required"})
	}
	if body.Spots != nil && *body.Spots < 1 {
		violations = append(violations, validation.Violation{Field: "spots", Reason: "spots must be at least 1"})
	}
	if body.Signup != nil && !body.Signup.Valid() {
		violations = append(violations, validation.Violation{Field: "signup", Reason: "signup window must have start before end"})
	}
	if body.Datetimes != nil && len(*body.Datetimes) == 0 {
		violations = append(violations, validation.Violation{Field: "datetimes", Reason: "at least one time slot is required"})
	}
	return violations
}

// UpdateCourse handles PATCH /v1/courses/:id.  The lecture reference is
// immutable.  When the update raises the spot count, the freed capacity
// is handed to the allocation engine and the promoted signups are
// reported in the response.
func (h *CourseHandler) UpdateCourse(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()

	existing, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load course"})
	}

	var body courseBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if violations := coursePatchViolations(body, existing.LectureID); len(violations) > 0 {
		return respondViolations(c, violations)
	}

	candidate := validation.CourseCandidate{
		ID:        id,
		Room:      body.Room,
		Assistant: body.Assistant,
	}
	if body.Datetimes != nil {
		candidate.Datetimes = *body.Datetimes
	}
	conflicts, err := h.Valid.ValidateCourse(ctx, candidate, existing)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check conflicts"})
	}
	if len(conflicts) > 0 {
		return respondViolations(c, conflicts)
	}

	// Merge the patch into the stored record.
	updated := *existing
	if body.Assistant != nil {
		updated.Assistant = strings.TrimSpace(*body.Assistant)
	}
	if body.Room != nil {
		updated.Room = strings.TrimSpace(*body.Room)
	}
	if body.Spots != nil {
		updated.Spots = *body.Spots
	}
	if body.Signup != nil {
		updated.Signup = *body.Signup
	}
	if body.Datetimes != nil {
		updated.Datetimes = *body.Datetimes
	}
	if err := h.Courses.Update(ctx, &updated); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	promoted := []uint64{}
	if body.Spots != nil && *body.Spots != existing.Spots {
		promoted, err = h.Engine.Rebalance(ctx, id)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rebalance failed"})
		}
		h.Notifier.Notify(promoted)
	}

	fresh, err := h.Courses.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load course"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"course":   renderCourse(*fresh),
		"promoted": promoted,
	})
}

// DeleteCourse handles DELETE /v1/courses/:id.  A course that still has
// signups cannot be removed; the signups must be deleted first.
func (h *CourseHandler) DeleteCourse(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	err = h.Courses.Delete(c.Request().Context(), id)
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "cannot delete course with signups"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
