package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"team-event-service/internal/config"
)

// NewSeedCmd loads the roster and question bank into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var seedPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load participants and quiz questions from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, seedPath)
		},
	}
	cmd.Flags().StringVar(&seedPath, "file", "config/seed.yaml", "path to seed YAML")
	return cmd
}

func runSeed(ctx context.Context, configPath, seedPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	seed, err := config.LoadSeed(seedPath)
	if err != nil {
		return err
	}

	conns, err := connectPostgres(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer conns.Close()

	if err := runMigrations(ctx, conns.db); err != nil {
		return err
	}
	if err := conns.store.InsertParticipants(ctx, seed.Roster()); err != nil {
		return err
	}
	if err := conns.questions.InsertQuestions(ctx, seed.Questions); err != nil {
		return err
	}
	remaining, err := conns.questions.Remaining(ctx)
	if err != nil {
		return err
	}
	log.Printf("seeded %d participants, %d unused questions", len(seed.Participants), remaining)
	return nil
}
