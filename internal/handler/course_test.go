package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avorland/course-registration/internal/model"
)

func intptr(v int) *int { return &v }

func slots(n int) *[]model.Timespan {
	out := make([]model.Timespan, n)
	day := time.Date(2019, 1, 9, 10, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = model.Timespan{
			Start: day.Add(time.Duration(i) * 2 * time.Hour),
			End:   day.Add(time.Duration(i)*2*time.Hour + time.Hour),
		}
	}
	return &out
}

func TestCoursePatchAllowsOmittedFields(t *testing.T) {
	assert.Empty(t, coursePatchViolations(courseBody{}, 1))
}

func TestCoursePatchRejectsBlankRoom(t *testing.T) {
	room := "   "
	vs := coursePatchViolations(courseBody{Room: &room}, 1)
	assert.Len(t, vs, 1)
	assert.Equal(t, "room", vs[0].Field)
}

func TestCoursePatchRejectsEmptyDatetimes(t *testing.T) {
	vs := coursePatchViolations(courseBody{Datetimes: slots(0)}, 1)
	assert.Len(t, vs, 1)
	assert.Equal(t, "datetimes", vs[0].Field)
}

func TestCoursePatchRejectsLectureChange(t *testing.T) {
	vs := coursePatchViolations(courseBody{Lecture: ref(2)}, 1)
	assert.Len(t, vs, 1)
	assert.Equal(t, "lecture", vs[0].Field)
}

func TestCoursePatchRejectsNonPositiveSpots(t *testing.T) {
	vs := coursePatchViolations(courseBody{Spots: intptr(0)}, 1)
	assert.Len(t, vs, 1)
	assert.Equal(t, "spots", vs[0].Field)
}

func TestCoursePatchAcceptsValidFields(t *testing.T) {
	room := "ETZ E 6"
	vs := coursePatchViolations(courseBody{
		Room:      &room,
		Spots:     intptr(20),
		Datetimes: slots(2),
	}, 1)
	assert.Empty(t, vs)
}
