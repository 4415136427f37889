package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/padraicbc/rallyapi/recalc"
)

type recalculateRequest struct {
	Scope         string `json:"scope"`
	ID            int64  `json:"id"`
	All           bool   `json:"all"`
	CompletedOnly bool   `json:"completedOnly"`
	DryRun        bool   `json:"dryRun"`
}

// Recalculate runs a cascade on operator request. Either scope and id, or all
// (optionally restricted to completed championships) must be given.
func (h *Handler) Recalculate(c echo.Context) error {
	var req recalculateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var opts []recalc.Option
	if req.DryRun {
		opts = append(opts, recalc.WithDryRun())
	}
	requester, _ := c.Get("username").(string)

	if req.All {
		reports, err := h.recalc.RecalculateAll(c.Request().Context(), req.CompletedOnly, opts...)
		if err != nil {
			return httpError(err)
		}
		h.logger.Info("full recalculation",
			zap.String("requested_by", requester),
			zap.Int("championships", len(reports)),
			zap.Bool("dry_run", req.DryRun),
		)
		return c.JSON(http.StatusOK, reports)
	}

	scope, err := recalc.ParseScope(req.Scope)
	if err != nil {
		return httpError(err)
	}
	if req.ID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "id is required")
	}

	rep, err := h.recalc.Recalculate(c.Request().Context(), scope, req.ID, opts...)
	if err != nil {
		return httpError(err)
	}
	h.logger.Info("recalculation",
		zap.String("requested_by", requester),
		zap.String("scope", string(scope)),
		zap.Int64("id", req.ID),
		zap.String("run_id", rep.RunID.String()),
	)
	return c.JSON(http.StatusOK, rep)
}
