package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/padraicbc/rallyapi/ingest"
	"github.com/padraicbc/rallyapi/models"
	"github.com/padraicbc/rallyapi/recalc"
	"github.com/padraicbc/rallyapi/standings"
)

// stageResultRequest is the JSON body of a stage result write. Time is a
// clock string such as "00:12:34.5"; pointsEarned defaults to the standard
// schema for the position when omitted.
type stageResultRequest struct {
	StageID      int64            `json:"stageID"`
	RiderID      int64            `json:"riderID"`
	Position     int              `json:"position"`
	Time         string           `json:"time"`
	PointsEarned *decimal.Decimal `json:"pointsEarned"`
	Penalties    decimal.Decimal  `json:"penalties"`
	DNF          bool             `json:"dnf"`
	DSQ          bool             `json:"dsq"`
	Notes        string           `json:"notes"`
}

func (r stageResultRequest) input() (ingest.StageResultInput, error) {
	in := ingest.StageResultInput{
		StageID:   r.StageID,
		RiderID:   r.RiderID,
		Position:  r.Position,
		Penalties: r.Penalties,
		DNF:       r.DNF,
		DSQ:       r.DSQ,
		Notes:     r.Notes,
	}
	if r.Time != "" {
		d, err := models.ParseClock(r.Time)
		if err != nil {
			return in, &standings.ValidationError{Field: "time", Reason: err.Error()}
		}
		in.TimeTaken = &d
	}
	if r.PointsEarned != nil {
		in.Points = *r.PointsEarned
	} else {
		in.Points = standings.DefaultPointSchema.Points(r.Position)
	}
	return in, nil
}

// PutStageResult stores one rider's result on a stage and returns the cascade report.
func (h *Handler) PutStageResult(c echo.Context) error {
	stageID, err := paramID(c, "stage")
	if err != nil {
		return err
	}
	riderID, err := paramID(c, "rider")
	if err != nil {
		return err
	}

	var req stageResultRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.StageID, req.RiderID = stageID, riderID

	in, err := req.input()
	if err != nil {
		return httpError(err)
	}
	rep, err := h.results.UpsertStageResult(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rep)
}

// DeleteStageResult removes one rider's result on a stage.
func (h *Handler) DeleteStageResult(c echo.Context) error {
	stageID, err := paramID(c, "stage")
	if err != nil {
		return err
	}
	riderID, err := paramID(c, "rider")
	if err != nil {
		return err
	}

	rep, err := h.results.DeleteStageResult(c.Request().Context(), stageID, riderID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rep)
}

type batchRequest struct {
	Entries []stageResultRequest `json:"entries"`
}

// BatchStageResults stores many stage results in one transaction. With
// ?dryRun=true nothing is committed and the report shows what would change.
func (h *Handler) BatchStageResults(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	batch := make([]ingest.StageResultInput, len(req.Entries))
	for i, e := range req.Entries {
		in, err := e.input()
		if err != nil {
			return httpError(err)
		}
		batch[i] = in
	}

	var opts []recalc.Option
	if dry, _ := strconv.ParseBool(c.QueryParam("dryRun")); dry {
		opts = append(opts, recalc.WithDryRun())
	}

	start := time.Now()
	rep, err := h.results.ApplyBatch(c.Request().Context(), batch, opts...)
	if err != nil {
		return httpError(err)
	}
	h.logger.Info("stage result batch applied",
		zap.Int("entries", len(batch)),
		zap.String("run_id", rep.RunID.String()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return c.JSON(http.StatusOK, rep)
}
