package handler // handler package contains signup endpoints

import (
	"database/sql"  // sentinel errors such as sql.ErrNoRows
	"encoding/json" // json decodes single-or-batch request bodies
	"net/http"      // http defines status codes

	"github.com/labstack/echo/v4" // echo provides the web context and JSON helpers

	"github.com/avorland/course-registration/internal/allocation"
	"github.com/avorland/course-registration/internal/model"
	"github.com/avorland/course-registration/internal/repository"
	"github.com/avorland/course-registration/internal/validation"
)

// SignupHandler serves the signup collection.  Every write that can
// change a course's capacity balance ends in a rebalance, and the
// promotions it caused are reflected in the same response.
type SignupHandler struct {
	Signups  *repository.SignupRepo
	Courses  *repository.CourseRepo
	Valid    *validation.Validator
	Engine   *allocation.Engine
	Notifier *PromotionNotifier
}

func NewSignupHandler(signups *repository.SignupRepo, courses *repository.CourseRepo, valid *validation.Validator, engine *allocation.Engine, notifier *PromotionNotifier) *SignupHandler {
	if signups == nil || courses == nil || valid == nil || engine == nil {
		panic("nil dependency passed to NewSignupHandler")
	}
	return &SignupHandler{Signups: signups, Courses: courses, Valid: valid, Engine: engine, Notifier: notifier}
}

// signupBody is one signup in a create or update request.
type signupBody struct {
	Nethz  *string    `json:"nethz"`
	Course *courseRef `json:"course"`
	Status *string    `json:"status"`
}

// batchDuplicateViolations flags batch items whose (nethz, course)
// pair repeats an earlier item in the same request.  Such a batch can
// never be inserted in full, so it is rejected before the first write.
// fallback is the caller's own nethz, used when an item names none.
func batchDuplicateViolations(items []signupBody, fallback string) []validation.Violation {
	type key struct {
		nethz    string
		courseID uint64
	}
	seen := make(map[key]bool, len(items))
	violations := make([]validation.Violation, 0)
	for _, item := range items {
		if item.Course == nil || item.Course.ID == 0 {
			continue
		}
		nethz := fallback
		if item.Nethz != nil {
			nethz = *item.Nethz
		}
		k := key{nethz: nethz, courseID: item.Course.ID}
		if seen[k] {
			violations = append(violations, validation.Violation{Field: "course", Reason: "duplicate signup in batch"})
			continue
		}
		seen[k] = true
	}
	return violations
}

// CreateSignups handles POST /v1/signups.  The body is either a single
// signup object or an array of them; batch items are validated as a
// whole before anything is written.  After insertion every referenced
// course is rebalanced once, so a signup to a course with free spots
// comes back already reserved.
func (h *SignupHandler) CreateSignups(c echo.Context) error {
	var raw json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	batch := false
	items := make([]signupBody, 0, 1)
	if len(raw) > 0 && raw[0] == '[' {
		batch = true
		if err := json.Unmarshal(raw, &items); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
		}
		if len(items) == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "empty batch"})
		}
	} else {
		var one signupBody
		if err := json.Unmarshal(raw, &one); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
		}
		items = append(items, one)
	}

	ctx := c.Request().Context()
	ident := identityFrom(c)

	// Validate the whole batch before the first insert.
	violations := make([]validation.Violation, 0)
	for _, item := range items {
		if item.Status != nil {
			violations = append(violations, validation.Violation{Field: "status", Reason: "status is managed by the backend"})
			continue
		}
		if item.Course == nil || item.Course.ID == 0 {
			violations = append(violations, validation.Violation{Field: "course", Reason: "course is required"})
			continue
		}
		if _, err := h.Courses.GetByID(ctx, item.Course.ID); err != nil {
			if err == sql.ErrNoRows {
				violations = append(violations, validation.Violation{Field: "course", Reason: "course does not exist"})
				continue
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load course"})
		}
		nethz := ident.Nethz
		if item.Nethz != nil {
			nethz = *item.Nethz
		}
		candidate := validation.SignupCandidate{Nethz: &nethz, CourseID: &item.Course.ID}
		vs, err := h.Valid.ValidateSignup(ctx, candidate, nil, validation.KindSignups, ident)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to validate signup"})
		}
		violations = append(violations, vs...)
	}
	violations = append(violations, batchDuplicateViolations(items, ident.Nethz)...)
	if len(violations) > 0 {
		return respondViolations(c, violations)
	}

	created := make([]*model.Signup, 0, len(items))
	courseIDs := make([]uint64, 0, len(items))
	for _, item := range items {
		nethz := ident.Nethz
		if item.Nethz != nil {
			nethz = *item.Nethz
		}
		s := &model.Signup{Nethz: nethz, CourseID: item.Course.ID}
		if err := h.Signups.Create(ctx, s); err != nil {
			// An insert that fails mid-batch leaves the earlier
			// signups in place; hand their courses to the engine so
			// none of them sits waiting on a free spot.
			if len(courseIDs) > 0 {
				if promoted, rerr := h.Engine.RebalanceAll(ctx, courseIDs...); rerr == nil {
					h.Notifier.Notify(promoted)
				}
			}
			if err == repository.ErrDuplicate {
				return c.JSON(http.StatusConflict, echo.Map{"error": "signup already exists"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create signup"})
		}
		created = append(created, s)
		courseIDs = append(courseIDs, s.CourseID)
	}

	promoted, err := h.Engine.RebalanceAll(ctx, courseIDs...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rebalance failed"})
	}
	h.Notifier.Notify(promoted)

	// Reload so promotions from this request show up in the response.
	out := make([]signupResp, 0, len(created))
	for _, s := range created {
		fresh, err := h.Signups.GetByID(ctx, s.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load signup"})
		}
		out = append(out, renderSignup(*fresh))
	}
	if batch {
		return c.JSON(http.StatusCreated, echo.Map{"items": out})
	}
	return c.JSON(http.StatusCreated, out[0])
}

// ListSignups handles GET /v1/signups.  Admins see every signup,
// everyone else only their own.
func (h *SignupHandler) ListSignups(c echo.Context) error {
	ident := identityFrom(c)
	owner := ident.Nethz
	if ident.Admin {
		owner = ""
	}
	signups, err := h.Signups.ListByOwner(c.Request().Context(), owner)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load signups"})
	}
	items := make([]signupResp, 0, len(signups))
	for _, s := range signups {
		items = append(items, renderSignup(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetSignup handles GET /v1/signups/:id.
func (h *SignupHandler) GetSignup(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	s, err := h.Signups.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "signup not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load signup"})
	}
	ident := identityFrom(c)
	if !ident.Admin && s.Nethz != ident.Nethz {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, renderSignup(*s))
}

// UpdateSignup handles PATCH /v1/signups/:id.  Only the course can
// change; nethz and status are immutable from the outside.  A course
// change drops the signup back to waiting and rebalances both the old
// and the new course, since the move frees a spot in one and contends
// for one in the other.
func (h *SignupHandler) UpdateSignup(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()

	existing, err := h.Signups.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "signup not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load signup"})
	}
	ident := identityFrom(c)
	if !ident.Admin && existing.Nethz != ident.Nethz {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	var body signupBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	violations := make([]validation.Violation, 0)
	if body.Nethz != nil && *body.Nethz != existing.Nethz {
		violations = append(violations, validation.Violation{Field: "nethz", Reason: "nethz is not patchable"})
	}
	if body.Status != nil {
		violations = append(violations, validation.Violation{Field: "status", Reason: "status is managed by the backend"})
	}
	if len(violations) > 0 {
		return respondViolations(c, violations)
	}

	if body.Course == nil || body.Course.ID == existing.CourseID {
		// Nothing to change.
		return c.JSON(http.StatusOK, renderSignup(*existing))
	}
	if _, err := h.Courses.GetByID(ctx, body.Course.ID); err != nil {
		if err == sql.ErrNoRows {
			return respondViolations(c, []validation.Violation{{Field: "course", Reason: "course does not exist"}})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load course"})
	}

	candidate := validation.SignupCandidate{ID: id, CourseID: &body.Course.ID}
	conflicts, err := h.Valid.ValidateSignup(ctx, candidate, existing, validation.KindSignups, ident)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to validate signup"})
	}
	if len(conflicts) > 0 {
		return respondViolations(c, conflicts)
	}

	if err := h.Signups.UpdateCourse(ctx, id, body.Course.ID); err != nil {
		if err == repository.ErrDuplicate {
			return c.JSON(http.StatusConflict, echo.Map{"error": "signup already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	promoted, err := h.Engine.RebalanceAll(ctx, existing.CourseID, body.Course.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rebalance failed"})
	}
	h.Notifier.Notify(promoted)

	fresh, err := h.Signups.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load signup"})
	}
	return c.JSON(http.StatusOK, renderSignup(*fresh))
}

// DeleteSignup handles DELETE /v1/signups/:id.  The freed spot is
// immediately handed to the oldest waiting signup of the course.
func (h *SignupHandler) DeleteSignup(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()

	existing, err := h.Signups.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "signup not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load signup"})
	}
	ident := identityFrom(c)
	if !ident.Admin && existing.Nethz != ident.Nethz {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	courseID, err := h.Signups.Delete(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "signup not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	promoted, err := h.Engine.Rebalance(ctx, courseID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rebalance failed"})
	}
	h.Notifier.Notify(promoted)

	return c.NoContent(http.StatusNoContent)
}
