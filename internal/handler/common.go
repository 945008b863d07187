package handler // handler defines http handlers

import (
	"encoding/json" // json decodes request bodies and the flexible course reference
	"net/http"      // status code constants
	"strconv"       // strconv converts path params to numeric types

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/avorland/course-registration/internal/validation" // validation supplies the identity type
)

// identityFrom builds the caller identity from the claims JWTAuth
// stored in the echo context.  JWTAuth rejects tokens without a nethz
// claim, so behind it the identity always names an owner; the validator
// still refuses an empty nethz as its own backstop.
func identityFrom(c echo.Context) validation.Identity {
	ident := validation.Identity{}
	if v, ok := c.Get("nethz").(string); ok {
		ident.Nethz = v
	}
	if v, ok := c.Get("admin").(bool); ok {
		ident.Admin = v
	}
	return ident
}

// pathID parses the numeric :id path parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// courseRef is a course reference in a request body.  Clients may send
// either a bare numeric identifier or an embedded object carrying an
// "id" field; both decode to the referenced course's ID.
type courseRef struct {
	ID uint64
}

func (r *courseRef) UnmarshalJSON(data []byte) error {
	var id uint64
	if err := json.Unmarshal(data, &id); err == nil {
		r.ID = id
		return nil
	}
	var obj struct {
		ID uint64 `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	return nil
}

// respondViolations writes the 422 response shared by all validated
// writes.  Violations carry the offending field and a reason.
func respondViolations(c echo.Context, violations []validation.Violation) error {
	return c.JSON(http.StatusUnprocessableEntity, echo.Map{
		"error":  "validation failed",
		"issues": violations,
	})
}
