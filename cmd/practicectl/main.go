package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/practice-api/internal/config"
	"github.com/jwalitptl/practice-api/internal/repository/postgres"
	patientService "github.com/jwalitptl/practice-api/internal/service/patient"
	"github.com/jwalitptl/practice-api/internal/slug"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "practicectl",
		Short:        "Operator tools for the practice API",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "path to config.yaml")

	rootCmd.AddCommand(slugCmd())
	rootCmd.AddCommand(importPatientsCmd())
	return rootCmd
}

func slugCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slug <name...>",
		Short: "Print the slug a clinic or dentist name would get",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			unique, _ := cmd.Flags().GetBool("unique")
			if !unique {
				fmt.Fprintln(cmd.OutOrStdout(), slug.Base(name))
				return nil
			}

			ns, _ := cmd.Flags().GetString("namespace")
			if ns != string(slug.Clinics) && ns != string(slug.Dentists) {
				return fmt.Errorf("namespace must be %q or %q", slug.Clinics, slug.Dentists)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := postgres.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			base := postgres.NewBaseRepository(db)
			resolver := slug.NewResolver(postgres.NewClinicRepository(base), postgres.NewDentistRepository(base))
			s, err := resolver.Unique(cmd.Context(), slug.Namespace(ns), name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().Bool("unique", false, "resolve against existing slugs in the database")
	cmd.Flags().String("namespace", string(slug.Clinics), "clinics or dentists")
	return cmd
}

func importPatientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-patients <file.csv>",
		Short: "Import a patient CSV into a clinic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("clinic")
			clinicID, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("invalid --clinic: %w", err)
			}

			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := postgres.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			log := logger.NewLogger(&logger.Config{Level: logger.ParseLevel(cfg.Log.Level), Output: os.Stderr, Console: true})
			svc := patientService.NewService(postgres.NewPatientRepository(postgres.NewBaseRepository(db)), metrics.NewNop(), log)

			result, err := svc.ImportCSV(cmd.Context(), clinicID, file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d duplicates, %d invalid\n",
				result.Imported, result.SkippedDuplicates, result.SkippedInvalid)
			return nil
		},
	}
	cmd.Flags().String("clinic", "", "clinic id")
	_ = cmd.MarkFlagRequired("clinic")
	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
