package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/welldanyogia/svp-backend/internal/database"
	"github.com/welldanyogia/svp-backend/internal/repository"
	"github.com/welldanyogia/svp-backend/internal/services"
	"github.com/welldanyogia/svp-backend/internal/storage"
)

func newSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-uploads",
		Short: "Delete stored files no attachment references",
		Long:  "Runs the orphan upload sweep once, honouring UPLOAD_SWEEP_GRACE.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, db, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer database.Close(db)

			uploads, err := storage.NewLocalStorage(cfg.UploadsDir)
			if err != nil {
				return err
			}

			sweeper := services.NewUploadSweeper(repository.NewStore(db), uploads, cfg.UploadSweepGrace, log)
			n, err := sweeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d orphan files\n", n)
			return nil
		},
	}
}
