// Package cli implements attendancectl, an operator tool that works on the
// CSV attendance tables directly without going through the HTTP API.
package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/attendance-tracker-api/internal/identity"
	"github.com/attendance-tracker-api/internal/models"
	"github.com/attendance-tracker-api/internal/repository"
	"github.com/attendance-tracker-api/internal/service"
	"github.com/attendance-tracker-api/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// RootOptions holds the persistent flags shared by every command.
type RootOptions struct {
	DataDir  string
	Email    string
	Timezone string
	NoDedup  bool
	Verbose  bool

	// Clock overrides the current time; nil means time.Now.
	Clock func() time.Time
}

// NewRootCommand creates the attendancectl root command with all subcommands.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attendancectl",
		Short: "Manage student attendance tables",
		Long: `attendancectl marks, lists, deletes, clears and exports attendance
records stored as CSV files, one file per scope.

Without --email the shared attendance.csv table is used. With --email the
table is derived from the address, the same way the server does it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "./data", "directory holding the CSV tables")
	cmd.PersistentFlags().StringVar(&opts.Email, "email", "", "use the table of this email instead of the shared one")
	cmd.PersistentFlags().StringVar(&opts.Timezone, "timezone", "", "IANA time zone for recorded dates (default: local)")
	cmd.PersistentFlags().BoolVar(&opts.NoDedup, "no-dedup", false, "allow several records per student per day")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log to stderr")

	cmd.AddCommand(
		newMarkCommand(opts),
		newListCommand(opts),
		newDeleteCommand(opts),
		newClearCommand(opts),
		newExportCommand(opts),
		newSummaryCommand(opts),
		newMigrateCommand(opts),
	)

	return cmd
}

// env is what every command needs to run.
type env struct {
	services *service.Services
	scope    models.Scope
}

func (o *RootOptions) setup(cmd *cobra.Command) (*env, error) {
	log := zerolog.Nop()
	if o.Verbose {
		log = logger.NewWithWriter(cmd.ErrOrStderr(), "debug", logger.FormatPretty)
	}

	loc := time.Local
	if o.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(o.Timezone); err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", o.Timezone, err)
		}
	}

	var resolver identity.Resolver = identity.Static(models.GlobalScope)
	if o.Email != "" {
		resolver = identity.NewEmailResolver()
	}
	scope, err := resolver.Resolve(o.Email)
	if err != nil {
		return nil, err
	}

	services := service.NewServices(
		repository.NewCSV(o.DataDir, log),
		service.Options{Dedup: !o.NoDedup, Location: loc, Clock: o.Clock},
		log,
	)
	return &env{services: services, scope: scope}, nil
}

func printRecords(w io.Writer, records []models.AttendanceRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No attendance records found.")
		return
	}
	fmt.Fprintln(w, "NAME\tDATE\tTIME\tSTATUS")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Date, r.Time, r.Status)
	}
}
