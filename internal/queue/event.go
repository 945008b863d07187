// Package queue carries promotion events over RabbitMQ: the payload
// type, a persistent publisher, and the background consumer that
// writes the promotion log.
package queue

// SignupPromotedEvent is published when a waiting signup is granted a
// spot. It carries enough information for downstream consumers to log
// or notify without querying the primary database.
type SignupPromotedEvent struct {
	SignupID   uint64 `json:"signup_id"`
	Nethz      string `json:"nethz"`
	CourseID   uint64 `json:"course_id"`
	LectureID  uint64 `json:"lecture_id"`
	Room       string `json:"room"`
	PromotedAt string `json:"promoted_at"`
}
