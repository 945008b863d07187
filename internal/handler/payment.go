package handler // handler package contains payment endpoints

import (
	"database/sql" // sentinel errors such as sql.ErrNoRows
	"errors"
	"fmt"
	"net/http" // http defines status codes
	"strings"  // strings helps with trimming whitespace

	"github.com/labstack/echo/v4" // echo provides the web context and JSON helpers

	"github.com/avorland/course-registration/internal/config"
	"github.com/avorland/course-registration/internal/model"
	"github.com/avorland/course-registration/internal/payments"
	"github.com/avorland/course-registration/internal/repository"
	"github.com/avorland/course-registration/internal/validation"
)

// PaymentHandler charges cards for reserved signups and flips them to
// accepted.  Listing and deleting payments is admin-only (enforced in
// the router); deletion demotes the covered signups back to reserved.
type PaymentHandler struct {
	Cfg      config.Config
	Payments *repository.PaymentRepo
	Signups  *repository.SignupRepo
	Valid    *validation.Validator
	Charger  payments.Charger
}

func NewPaymentHandler(cfg config.Config, pay *repository.PaymentRepo, signups *repository.SignupRepo, valid *validation.Validator, charger payments.Charger) *PaymentHandler {
	if pay == nil || signups == nil || valid == nil || charger == nil {
		panic("nil dependency passed to NewPaymentHandler")
	}
	return &PaymentHandler{Cfg: cfg, Payments: pay, Signups: signups, Valid: valid, Charger: charger}
}

type paymentBody struct {
	Signups []uint64 `json:"signups"`
	Token   string   `json:"token"`
}

// CreatePayment handles POST /v1/payments.  The referenced signups must
// all be reserved and, for non-admins, owned by the caller.  When a
// card token is present the provider is charged before anything is
// written; admins may record a payment without a token (e.g. cash) and
// no external charge is made.
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	var body paymentBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Token = strings.TrimSpace(body.Token)
	ctx := c.Request().Context()
	ident := identityFrom(c)

	candidate := validation.PaymentCandidate{SignupIDs: body.Signups, Token: body.Token}
	violations, err := h.Valid.ValidatePayment(ctx, candidate, ident)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to validate payment"})
	}
	if len(violations) > 0 {
		return respondViolations(c, violations)
	}

	// Non-admins can only pay for their own signups.
	if !ident.Admin {
		for _, id := range body.Signups {
			s, err := h.Signups.GetByID(ctx, id)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load signup"})
			}
			if s.Nethz != ident.Nethz {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
		}
	}

	amount := uint64(len(body.Signups)) * h.Cfg.CoursePrice
	chargeID := ""
	if body.Token != "" {
		desc := fmt.Sprintf("course registration, %d signup(s)", len(body.Signups))
		chargeID, err = h.Charger.Charge(ctx, body.Token, amount, desc)
		if err != nil {
			if errors.Is(err, payments.ErrCardDeclined) {
				return respondViolations(c, []validation.Violation{{Field: "token", Reason: "card was declined"}})
			}
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable"})
		}
	}

	p := &model.Payment{
		SignupIDs: body.Signups,
		Token:     body.Token,
		ChargeID:  chargeID,
		Amount:    int(amount),
	}
	if err := h.Payments.Create(ctx, p); err != nil {
		if err == repository.ErrDuplicate {
			return c.JSON(http.StatusConflict, echo.Map{"error": "token already used"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create payment"})
	}
	return c.JSON(http.StatusCreated, renderPayment(*p))
}

// ListPayments handles GET /v1/payments (admin).
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	list, err := h.Payments.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load payments"})
	}
	items := make([]paymentResp, 0, len(list))
	for _, p := range list {
		items = append(items, renderPayment(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetPayment handles GET /v1/payments/:id (admin).
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	p, err := h.Payments.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load payment"})
	}
	return c.JSON(http.StatusOK, renderPayment(*p))
}

// DeletePayment handles DELETE /v1/payments/:id (admin).  The covered
// signups drop from accepted back to reserved; they keep their spot.
func (h *PaymentHandler) DeletePayment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if _, err := h.Payments.Delete(c.Request().Context(), id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
