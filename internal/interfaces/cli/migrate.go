package cli

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/QuestionBank/internal/infrastructure/database/postgres"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// MigrationResult is the output of every migrate subcommand.
type MigrationResult struct {
	Action string `json:"action"`
	postgres.MigrationStatus
}

func (r MigrationResult) TableHeaders() []string { return []string{"Action", "Version", "Dirty"} }

func (r MigrationResult) TableRows() [][]string {
	dirty := "no"
	if r.Dirty {
		dirty = color.RedString("yes")
	}
	return [][]string{{r.Action, strconv.FormatUint(uint64(r.Version), 10), dirty}}
}

func (r MigrationResult) Summary() string {
	if r.Dirty {
		return color.YellowString("schema is dirty at version %d; fix it and run migrate force", r.Version)
	}
	return ""
}

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the question store schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, "down", func(m Migrator) error { return m.Down(steps) })
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(cmd, "up", Migrator.Up)
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(cmd, "status", nil)
			},
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return errors.InvalidParam(fmt.Sprintf("invalid version %q", args[0]))
				}
				return runMigration(cmd, "force", func(m Migrator) error { return m.Force(version) })
			},
		},
	)
	return cmd
}

// runMigration applies action, if any, and prints the resulting version.
func runMigration(cmd *cobra.Command, name string, action func(Migrator) error) error {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	m := cc.migrator(cc.Config, cc.Logger)
	if action != nil {
		if err := action(m); err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "migrate "+name)
		}
	}
	st, err := m.Status()
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "migration status")
	}
	return PrintResult(cmd, MigrationResult{Action: name, MigrationStatus: st})
}

//Personal.AI order the ending
