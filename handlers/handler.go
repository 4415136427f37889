package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/padraicbc/rallyapi/ingest"
	"github.com/padraicbc/rallyapi/models"
	"github.com/padraicbc/rallyapi/recalc"
	"github.com/padraicbc/rallyapi/standings"
	"github.com/padraicbc/rallyapi/store"
)

// Store is the read side the handlers serve from.
type Store interface {
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	RaceResults(ctx context.Context, raceID int64, f store.Filter) ([]store.RaceResultRow, error)
	ChampionshipStandings(ctx context.Context, championshipID int64, f store.Filter) ([]store.StandingRow, error)
	ClubStandings(ctx context.Context, championshipID int64) ([]store.ClubStandingRow, error)
}

// StageResults writes raw stage results and runs their cascades.
type StageResults interface {
	UpsertStageResult(ctx context.Context, in ingest.StageResultInput) (*recalc.Report, error)
	DeleteStageResult(ctx context.Context, stageID, riderID int64) (*recalc.Report, error)
	ApplyBatch(ctx context.Context, batch []ingest.StageResultInput, opts ...recalc.Option) (*recalc.Report, error)
}

// Recalculator runs operator triggered cascades.
type Recalculator interface {
	Recalculate(ctx context.Context, scope recalc.Scope, id int64, opts ...recalc.Option) (*recalc.Report, error)
	RecalculateAll(ctx context.Context, completedOnly bool, opts ...recalc.Option) ([]*recalc.Report, error)
}

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	JWTKey []byte

	store   Store
	results StageResults
	recalc  Recalculator
	isAdmin func(username string) bool
	logger  *zap.Logger
}

// New creates a Handler. isAdmin reports usernames granted admin rights by
// configuration in addition to users flagged admin in the database.
func New(jwtKey []byte, st Store, results StageResults, rc Recalculator, isAdmin func(string) bool, logger *zap.Logger) *Handler {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		JWTKey:  jwtKey,
		store:   st,
		results: results,
		recalc:  rc,
		isAdmin: isAdmin,
		logger:  logger,
	}
}

// httpError maps engine errors onto HTTP status codes.
func httpError(err error) error {
	var (
		verr *standings.ValidationError
		cerr *standings.ComputationError
	)
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &cerr):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// filterFromQuery reads the optional category and rider query parameters.
func filterFromQuery(c echo.Context) (store.Filter, error) {
	var f store.Filter
	if s := c.QueryParam("category"); s != "" {
		cat, err := models.ParseCategory(s)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		f.Category = cat
	}
	if s := c.QueryParam("rider"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid rider")
		}
		f.RiderID = id
	}
	return f, nil
}
