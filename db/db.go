package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/padraicbc/rallyapi/config"
	"github.com/padraicbc/rallyapi/models"
)

// Setup opens a PostgreSQL connection using the provided config.
func Setup(cfg *config.Config) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.PostgresDSN())))
	db := bun.NewDB(sqldb, pgdialect.New())

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(context.Background()); err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	return db
}

// Models lists every table in dependency order.
var Models = []interface{}{
	(*models.User)(nil),
	(*models.Club)(nil),
	(*models.Rider)(nil),
	(*models.Race)(nil),
	(*models.Stage)(nil),
	(*models.RaceParticipation)(nil),
	(*models.Championship)(nil),
	(*models.ChampionshipRace)(nil),
	(*models.StageResult)(nil),
	(*models.RaceResult)(nil),
	(*models.ChampionshipResult)(nil),
	(*models.ClubResult)(nil),
}

// constraint adds a named constraint unless it already exists.
func constraint(name, table, def string) string {
	return fmt.Sprintf(
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN ALTER TABLE %s ADD CONSTRAINT %s %s; END IF; END $$`,
		name, table, name, def,
	)
}

// Constraints are applied after the tables exist. Foreign keys keep stage and
// derived rows tied to their race, rider and championship.
var Constraints = []string{
	constraint("riders_club_fk", "riders", "FOREIGN KEY (club_id) REFERENCES clubs (id) ON DELETE SET NULL"),
	constraint("stages_race_fk", "stages", "FOREIGN KEY (race_id) REFERENCES races (id) ON DELETE CASCADE"),
	constraint("race_participations_race_fk", "race_participations", "FOREIGN KEY (race_id) REFERENCES races (id) ON DELETE CASCADE"),
	constraint("race_participations_rider_fk", "race_participations", "FOREIGN KEY (rider_id) REFERENCES riders (id) ON DELETE CASCADE"),
	constraint("championship_races_championship_fk", "championship_races", "FOREIGN KEY (championship_id) REFERENCES championships (id) ON DELETE CASCADE"),
	constraint("championship_races_race_fk", "championship_races", "FOREIGN KEY (race_id) REFERENCES races (id) ON DELETE CASCADE"),
	constraint("stage_results_stage_fk", "stage_results", "FOREIGN KEY (stage_id) REFERENCES stages (id) ON DELETE CASCADE"),
	constraint("stage_results_rider_fk", "stage_results", "FOREIGN KEY (rider_id) REFERENCES riders (id) ON DELETE CASCADE"),
	constraint("stage_results_non_negative", "stage_results", "CHECK (position >= 0 AND points_earned >= 0 AND penalties >= 0 AND (time_taken IS NULL OR time_taken >= 0))"),
	constraint("race_results_race_fk", "race_results", "FOREIGN KEY (race_id) REFERENCES races (id) ON DELETE CASCADE"),
	constraint("race_results_rider_fk", "race_results", "FOREIGN KEY (rider_id) REFERENCES riders (id) ON DELETE CASCADE"),
	constraint("race_results_rank_unique", "race_results", "UNIQUE (race_id, category, overall_position) DEFERRABLE INITIALLY DEFERRED"),
	constraint("championship_results_championship_fk", "championship_results", "FOREIGN KEY (championship_id) REFERENCES championships (id) ON DELETE CASCADE"),
	constraint("championship_results_rider_fk", "championship_results", "FOREIGN KEY (rider_id) REFERENCES riders (id) ON DELETE CASCADE"),
	constraint("club_results_championship_fk", "club_results", "FOREIGN KEY (championship_id) REFERENCES championships (id) ON DELETE CASCADE"),
	constraint("club_results_club_fk", "club_results", "FOREIGN KEY (club_id) REFERENCES clubs (id) ON DELETE CASCADE"),
}

// CreateTables creates all tables in dependency order.
func CreateTables(ctx context.Context, db *bun.DB) error {
	for _, model := range Models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}

	for _, stmt := range Constraints {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Printf("constraint: %v", err)
		}
	}

	return nil
}
