package handler

import (
	"context"
	"log"
	"time"

	"github.com/avorland/course-registration/internal/queue"
	"github.com/avorland/course-registration/internal/repository"
)

// PromotionNotifier publishes a broker event for every signup the
// allocation engine promoted.  Publishing happens in the background so
// a slow or absent broker never delays the response; failures are
// logged and otherwise ignored.
type PromotionNotifier struct {
	Signups *repository.SignupRepo
	Courses *repository.CourseRepo
}

func NewPromotionNotifier(signups *repository.SignupRepo, courses *repository.CourseRepo) *PromotionNotifier {
	return &PromotionNotifier{Signups: signups, Courses: courses}
}

// Notify fires one signup.promoted event per ID.
func (n *PromotionNotifier) Notify(ids []uint64) {
	if n == nil || len(ids) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		now := time.Now().UTC().Format(time.RFC3339)
		for _, id := range ids {
			s, err := n.Signups.GetByID(ctx, id)
			if err != nil {
				continue
			}
			ev := queue.SignupPromotedEvent{
				SignupID:   s.ID,
				Nethz:      s.Nethz,
				CourseID:   s.CourseID,
				PromotedAt: now,
			}
			if course, err := n.Courses.GetByID(ctx, s.CourseID); err == nil {
				ev.LectureID = course.LectureID
				ev.Room = course.Room
			}
			if err := queue.PublishSignupPromoted(ctx, ev); err != nil {
				log.Printf("signup queue: %v", err)
			}
		}
	}()
}
