// internal/api/handlers.go
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sol-flywheel/internal/flywheel"
	"github.com/rovshanmuradov/sol-flywheel/internal/lease"
)

// TimeLayout - ISO-8601 в UTC с миллисекундами.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type stepView struct {
	Status    flywheel.Status `json:"status"`
	Reason    string          `json:"reason,omitempty"`
	Signature *string         `json:"signature,omitempty"`
}

// TriggerResponse - ответ на успешно начатый запуск. Подпись шага равна null,
// если шаг не дошёл до подтверждённой транзакции.
type TriggerResponse struct {
	OK         bool    `json:"ok"`
	ClaimedSig *string `json:"claimedSig"`
	SwapSig    *string `json:"swapSig"`
	BurnSig    *string `json:"burnSig"`
	Time       string  `json:"time"`

	RunID string              `json:"runId,omitempty"`
	Steps map[string]stepView `json:"steps,omitempty"`
}

func (s *Server) handleTrigger(c echo.Context) error {
	// Запуск не прерывается при обрыве соединения: транзакции уже могут быть в сети.
	ctx := context.WithoutCancel(c.Request().Context())

	res, err := s.trigger.Trigger(ctx)
	if errors.Is(err, lease.ErrHeld) {
		if s.recorder != nil {
			s.recorder.LeaseDenied()
		}
		return c.JSON(http.StatusConflict, errorResponse{OK: false, Error: err.Error()})
	}
	if err != nil {
		s.logger.Error("Flywheel run failed to start", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{OK: false, Error: err.Error()})
	}

	return c.JSON(http.StatusOK, NewTriggerResponse(res, isVerbose(c)))
}

func handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// NewTriggerResponse переводит Result в JSON-контракт. verbose добавляет runId и steps.
func NewTriggerResponse(res *flywheel.Result, verbose bool) TriggerResponse {
	finished := res.Finished
	if finished.IsZero() {
		finished = time.Now()
	}
	resp := TriggerResponse{
		OK:         true,
		ClaimedSig: confirmedSig(res.Claim),
		SwapSig:    confirmedSig(res.Swap),
		BurnSig:    confirmedSig(res.Burn),
		Time:       finished.UTC().Format(TimeLayout),
	}
	if verbose {
		resp.RunID = res.RunID
		resp.Steps = make(map[string]stepView, 3)
		for name, o := range res.Steps() {
			view := stepView{Status: o.Status, Reason: o.Reason}
			if !o.Signature.IsZero() {
				sig := o.Signature.String()
				view.Signature = &sig
			}
			resp.Steps[name] = view
		}
	}
	return resp
}

func confirmedSig(o flywheel.Outcome) *string {
	sig, ok := o.ConfirmedSignature()
	if !ok {
		return nil
	}
	s := sig.String()
	return &s
}

func isVerbose(c echo.Context) bool {
	switch c.QueryParam("verbose") {
	case "1", "true":
		return true
	}
	return false
}
