package validation

import (
	"context"
	"fmt"

	"github.com/avorland/course-registration/internal/model"
)

// PaymentCandidate is a payment as submitted by the client.
type PaymentCandidate struct {
	SignupIDs []uint64
	Token     string
}

// ValidatePayment runs the payment rules: the signup list must be
// non-empty and free of duplicates, every referenced signup must
// currently be reserved (neither waiting nor already accepted), and
// non-admin callers must supply a card token.
func (v *Validator) ValidatePayment(ctx context.Context, candidate PaymentCandidate, ident Identity) ([]Violation, error) {
	violations := make([]Violation, 0)

	if len(candidate.SignupIDs) == 0 {
		violations = append(violations, Violation{
			Field:  "signups",
			Reason: "payment must be for at least one signup",
		})
		return violations, nil
	}
	seen := make(map[uint64]struct{}, len(candidate.SignupIDs))
	for _, id := range candidate.SignupIDs {
		if _, ok := seen[id]; ok {
			violations = append(violations, Violation{
				Field:  "signups",
				Reason: "the same signup may not appear twice in a payment",
			})
			break
		}
		seen[id] = struct{}{}
	}
	if candidate.Token == "" && !ident.Admin {
		violations = append(violations, Violation{
			Field:  "token",
			Reason: "a card token is required",
		})
	}

	statuses, err := v.statuses.StatusByIDs(ctx, candidate.SignupIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range candidate.SignupIDs {
		status, ok := statuses[id]
		if !ok {
			violations = append(violations, Violation{
				Field:  "signups",
				Reason: fmt.Sprintf("signup %d does not exist", id),
			})
			continue
		}
		switch status {
		case model.StatusWaiting:
			violations = append(violations, Violation{
				Field:  "signups",
				Reason: fmt.Sprintf("signup %d is still on the waiting list", id),
			})
		case model.StatusAccepted:
			violations = append(violations, Violation{
				Field:  "signups",
				Reason: fmt.Sprintf("signup %d has already been paid", id),
			})
		}
	}
	return violations, nil
}
