package validation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avorland/course-registration/internal/model"
)

// fakeStore implements CourseStore, RegistrationStore and
// SignupStatusStore over plain maps.
type fakeStore struct {
	courses       map[uint64]model.Course
	registrations map[string][]regEntry // kind -> entries
	statuses      map[uint64]string
}

type regEntry struct {
	id       uint64
	nethz    string
	courseID uint64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		courses:       make(map[uint64]model.Course),
		registrations: make(map[string][]regEntry),
		statuses:      make(map[uint64]string),
	}
}

func (f *fakeStore) Datetimes(_ context.Context, courseID uint64) ([]model.Timespan, error) {
	return f.courses[courseID].Datetimes, nil
}

func (f *fakeStore) ByRoomExcluding(_ context.Context, room string, excludeID uint64) ([]model.Course, error) {
	out := make([]model.Course, 0)
	for _, c := range f.courses {
		if c.Room == room && c.ID != excludeID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ByAssistantExcluding(_ context.Context, assistant string, excludeID uint64) ([]model.Course, error) {
	out := make([]model.Course, 0)
	for _, c := range f.courses {
		if c.Assistant == assistant && c.ID != excludeID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) CourseIDsByOwner(_ context.Context, kind, nethz string, excludeID uint64) ([]uint64, error) {
	out := make([]uint64, 0)
	for _, r := range f.registrations[kind] {
		if r.nethz == nethz && r.id != excludeID {
			out = append(out, r.courseID)
		}
	}
	return out, nil
}

func (f *fakeStore) Exists(_ context.Context, kind, nethz string, courseID, excludeID uint64) (bool, error) {
	for _, r := range f.registrations[kind] {
		if r.nethz == nethz && r.courseID == courseID && r.id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) StatusByIDs(_ context.Context, ids []uint64) (map[uint64]string, error) {
	out := make(map[uint64]string, len(ids))
	for _, id := range ids {
		if s, ok := f.statuses[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func span(startHour, endHour int) model.Timespan {
	day := time.Date(2019, 1, 9, 0, 0, 0, 0, time.UTC)
	return model.Timespan{
		Start: day.Add(time.Duration(startHour) * time.Hour),
		End:   day.Add(time.Duration(endHour) * time.Hour),
	}
}

func strptr(s string) *string { return &s }

func idptr(v uint64) *uint64 { return &v }

func fields(vs []Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Field)
	}
	return out
}

// ----- course rules -----

func TestValidateCourseStartBeforeEnd(t *testing.T) {
	v := NewValidator(newFakeStore(), newFakeStore(), newFakeStore())
	vs, err := v.ValidateCourse(context.Background(), CourseCandidate{
		Room:      strptr("ETZ E 6"),
		Datetimes: []model.Timespan{span(13, 10)},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"datetimes"}, fields(vs))
}

func TestValidateCourseSelfOverlap(t *testing.T) {
	v := NewValidator(newFakeStore(), newFakeStore(), newFakeStore())
	vs, err := v.ValidateCourse(context.Background(), CourseCandidate{
		Room:      strptr("ETZ E 6"),
		Datetimes: []model.Timespan{span(10, 12), span(11, 13)},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"datetimes"}, fields(vs))

	// Touching slots are fine.
	vs, err = v.ValidateCourse(context.Background(), CourseCandidate{
		Room:      strptr("ETZ E 6"),
		Datetimes: []model.Timespan{span(10, 12), span(12, 14)},
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestValidateCourseRoomBooking(t *testing.T) {
	store := newFakeStore()
	store.courses[1] = model.Course{ID: 1, Room: "ETZ E 6", Datetimes: []model.Timespan{span(10, 13)}}
	v := NewValidator(store, store, store)
	ctx := context.Background()

	// Same room, overlapping interval: rejected.
	vs, err := v.ValidateCourse(ctx, CourseCandidate{
		Room:      strptr("ETZ E 6"),
		Datetimes: []model.Timespan{span(12, 15)},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"room"}, fields(vs))

	// Distinct room: accepted.
	vs, err = v.ValidateCourse(ctx, CourseCandidate{
		Room:      strptr("ETZ E 8"),
		Datetimes: []model.Timespan{span(12, 15)},
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, vs)

	// Same room but only touching: accepted.
	vs, err = v.ValidateCourse(ctx, CourseCandidate{
		Room:      strptr("ETZ E 6"),
		Datetimes: []model.Timespan{span(13, 15)},
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestValidateCourseExcludesItselfOnUpdate(t *testing.T) {
	store := newFakeStore()
	existing := model.Course{ID: 7, Room: "ETZ E 6", Datetimes: []model.Timespan{span(10, 13)}}
	store.courses[7] = existing
	v := NewValidator(store, store, store)

	// Re-submitting a course's own times must not conflict with itself.
	vs, err := v.ValidateCourse(context.Background(), CourseCandidate{
		ID:        7,
		Room:      strptr("ETZ E 6"),
		Datetimes: []model.Timespan{span(10, 13)},
	}, &existing)
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestValidateCourseAssistantBooking(t *testing.T) {
	store := newFakeStore()
	store.courses[1] = model.Course{ID: 1, Room: "ETZ E 6", Assistant: "pablo", Datetimes: []model.Timespan{span(10, 13)}}
	v := NewValidator(store, store, store)

	vs, err := v.ValidateCourse(context.Background(), CourseCandidate{
		Room:      strptr("ETZ E 8"),
		Assistant: strptr("pablo"),
		Datetimes: []model.Timespan{span(11, 12)},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"assistant"}, fields(vs))
}

func TestValidateCoursePartialUpdateResolvesStoredFields(t *testing.T) {
	store := newFakeStore()
	store.courses[1] = model.Course{ID: 1, Room: "ETZ E 6", Datetimes: []model.Timespan{span(10, 13)}}
	existing := model.Course{ID: 2, Room: "ETZ E 6", Datetimes: []model.Timespan{span(14, 16)}}
	store.courses[2] = existing
	v := NewValidator(store, store, store)

	// Only datetimes supplied; the stored room must still be checked.
	vs, err := v.ValidateCourse(context.Background(), CourseCandidate{
		ID:        2,
		Datetimes: []model.Timespan{span(11, 12)},
	}, &existing)
	require.NoError(t, err)
	assert.Equal(t, []string{"room"}, fields(vs))
}

// ----- signup/selection rules -----

func TestValidateSignupOwnNethzOnly(t *testing.T) {
	store := newFakeStore()
	store.courses[1] = model.Course{ID: 1, Datetimes: []model.Timespan{span(10, 13)}}
	v := NewValidator(store, store, store)
	ctx := context.Background()

	vs, err := v.ValidateSignup(ctx, SignupCandidate{
		Nethz:    strptr("bob"),
		CourseID: idptr(1),
	}, nil, KindSignups, Identity{Nethz: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"nethz"}, fields(vs))

	// Admins may sign up anyone.
	vs, err = v.ValidateSignup(ctx, SignupCandidate{
		Nethz:    strptr("bob"),
		CourseID: idptr(1),
	}, nil, KindSignups, Identity{Nethz: "alice", Admin: true})
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestValidateSignupEmptyNethzRejected(t *testing.T) {
	store := newFakeStore()
	store.courses[1] = model.Course{ID: 1, Datetimes: []model.Timespan{span(10, 13)}}
	v := NewValidator(store, store, store)

	// Even an admin cannot create a signup owned by nobody.
	vs, err := v.ValidateSignup(context.Background(), SignupCandidate{
		Nethz:    strptr(""),
		CourseID: idptr(1),
	}, nil, KindSignups, Identity{Nethz: "alice", Admin: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"nethz"}, fields(vs))
}

func TestValidateSignupDuplicateCombination(t *testing.T) {
	store := newFakeStore()
	store.courses[1] = model.Course{ID: 1, Datetimes: []model.Timespan{span(10, 13)}}
	store.registrations[KindSignups] = []regEntry{{id: 5, nethz: "alice", courseID: 1}}
	v := NewValidator(store, store, store)
	ctx := context.Background()

	vs, err := v.ValidateSignup(ctx, SignupCandidate{
		Nethz:    strptr("alice"),
		CourseID: idptr(1),
	}, nil, KindSignups, Identity{Nethz: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"course"}, fields(vs))

	// Updating the existing signup itself is not a duplicate.
	existing := model.Signup{ID: 5, Nethz: "alice", CourseID: 1}
	vs, err = v.ValidateSignup(ctx, SignupCandidate{ID: 5, CourseID: idptr(1)}, &existing,
		KindSignups, Identity{Nethz: "alice"})
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestValidateSignupCourseOverlap(t *testing.T) {
	store := newFakeStore()
	store.courses[1] = model.Course{ID: 1, Datetimes: []model.Timespan{span(10, 13)}}
	store.courses[2] = model.Course{ID: 2, Datetimes: []model.Timespan{span(12, 15)}}
	store.courses[3] = model.Course{ID: 3, Datetimes: []model.Timespan{span(14, 16)}}
	store.registrations[KindSignups] = []regEntry{{id: 5, nethz: "alice", courseID: 1}}
	v := NewValidator(store, store, store)
	ctx := context.Background()
	ident := Identity{Nethz: "alice"}

	// Course B overlaps alice's signup to course A: rejected.
	vs, err := v.ValidateSignup(ctx, SignupCandidate{
		Nethz:    strptr("alice"),
		CourseID: idptr(2),
	}, nil, KindSignups, ident)
	require.NoError(t, err)
	assert.Equal(t, []string{"course"}, fields(vs))

	// Course C is disjoint: accepted.
	vs, err = v.ValidateSignup(ctx, SignupCandidate{
		Nethz:    strptr("alice"),
		CourseID: idptr(3),
	}, nil, KindSignups, ident)
	require.NoError(t, err)
	assert.Empty(t, vs)

	// Another user is unaffected by alice's commitments.
	vs, err = v.ValidateSignup(ctx, SignupCandidate{
		Nethz:    strptr("bob"),
		CourseID: idptr(2),
	}, nil, KindSignups, Identity{Nethz: "bob"})
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestValidateSelectionScopedToOwnCollection(t *testing.T) {
	store := newFakeStore()
	store.courses[1] = model.Course{ID: 1, Datetimes: []model.Timespan{span(10, 13)}}
	store.courses[2] = model.Course{ID: 2, Datetimes: []model.Timespan{span(12, 15)}}
	store.registrations[KindSignups] = []regEntry{{id: 5, nethz: "alice", courseID: 1}}
	v := NewValidator(store, store, store)

	// A signup to course 1 does not block a selection of course 2:
	// overlap is checked within one collection kind.
	vs, err := v.ValidateSignup(context.Background(), SignupCandidate{
		Nethz:    strptr("alice"),
		CourseID: idptr(2),
	}, nil, KindSelections, Identity{Nethz: "alice"})
	require.NoError(t, err)
	assert.Empty(t, vs)
}

// ----- payment rules -----

func TestValidatePayment(t *testing.T) {
	store := newFakeStore()
	store.statuses[1] = model.StatusReserved
	store.statuses[2] = model.StatusWaiting
	store.statuses[3] = model.StatusAccepted
	v := NewValidator(store, store, store)
	ctx := context.Background()
	user := Identity{Nethz: "alice"}
	admin := Identity{Nethz: "root", Admin: true}

	vs, err := v.ValidatePayment(ctx, PaymentCandidate{Token: "tok"}, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"signups"}, fields(vs))

	vs, err = v.ValidatePayment(ctx, PaymentCandidate{SignupIDs: []uint64{1, 1}, Token: "tok"}, user)
	require.NoError(t, err)
	assert.Contains(t, fields(vs), "signups")

	vs, err = v.ValidatePayment(ctx, PaymentCandidate{SignupIDs: []uint64{2}, Token: "tok"}, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"signups"}, fields(vs))

	vs, err = v.ValidatePayment(ctx, PaymentCandidate{SignupIDs: []uint64{3}, Token: "tok"}, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"signups"}, fields(vs))

	vs, err = v.ValidatePayment(ctx, PaymentCandidate{SignupIDs: []uint64{1}}, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"token"}, fields(vs))

	// Admins may omit the token.
	vs, err = v.ValidatePayment(ctx, PaymentCandidate{SignupIDs: []uint64{1}}, admin)
	require.NoError(t, err)
	assert.Empty(t, vs)

	vs, err = v.ValidatePayment(ctx, PaymentCandidate{SignupIDs: []uint64{1}, Token: "tok"}, user)
	require.NoError(t, err)
	assert.Empty(t, vs)
}
