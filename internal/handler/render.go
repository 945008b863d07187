package handler

// render.go defines the JSON response shapes.  The model package keeps
// its structs free of transport tags, so every resource gets a small
// response type here together with a conversion from the model.

import (
	"time"

	"github.com/avorland/course-registration/internal/model"
)

type lectureResp struct {
	ID         uint64    `json:"id"`
	Title      string    `json:"title"`
	Department string    `json:"department"`
	Year       int       `json:"year"`
	Assistants []string  `json:"assistants"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func renderLecture(l model.Lecture) lectureResp {
	if l.Assistants == nil {
		l.Assistants = []string{}
	}
	return lectureResp{
		ID:         l.ID,
		Title:      l.Title,
		Department: l.Department,
		Year:       l.Year,
		Assistants: l.Assistants,
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
}

type courseResp struct {
	ID        uint64           `json:"id"`
	Lecture   uint64           `json:"lecture"`
	Assistant string           `json:"assistant,omitempty"`
	Room      string           `json:"room"`
	Spots     int              `json:"spots"`
	Signup    model.Timespan   `json:"signup"`
	Datetimes []model.Timespan `json:"datetimes"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func renderCourse(c model.Course) courseResp {
	if c.Datetimes == nil {
		c.Datetimes = []model.Timespan{}
	}
	return courseResp{
		ID:        c.ID,
		Lecture:   c.LectureID,
		Assistant: c.Assistant,
		Room:      c.Room,
		Spots:     c.Spots,
		Signup:    c.Signup,
		Datetimes: c.Datetimes,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type signupResp struct {
	ID        uint64    `json:"id"`
	Nethz     string    `json:"nethz"`
	Course    uint64    `json:"course"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func renderSignup(s model.Signup) signupResp {
	return signupResp{
		ID:        s.ID,
		Nethz:     s.Nethz,
		Course:    s.CourseID,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type selectionResp struct {
	ID        uint64    `json:"id"`
	Nethz     string    `json:"nethz"`
	Course    uint64    `json:"course"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func renderSelection(s model.Selection) selectionResp {
	return selectionResp{
		ID:        s.ID,
		Nethz:     s.Nethz,
		Course:    s.CourseID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// paymentResp never echoes the card token back to the client.
type paymentResp struct {
	ID        uint64    `json:"id"`
	Signups   []uint64  `json:"signups"`
	ChargeID  string    `json:"charge_id,omitempty"`
	Amount    int       `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

func renderPayment(p model.Payment) paymentResp {
	if p.SignupIDs == nil {
		p.SignupIDs = []uint64{}
	}
	return paymentResp{
		ID:        p.ID,
		Signups:   p.SignupIDs,
		ChargeID:  p.ChargeID,
		Amount:    p.Amount,
		CreatedAt: p.CreatedAt,
	}
}
