package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/attendance-tracker-api/internal/models"
	"github.com/spf13/cobra"
)

func newMarkCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mark <name> <Present|Absent>",
		Short: "Mark a student present or absent now",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			rec, err := e.services.Attendance.Mark(cmd.Context(), e.scope, args[0], parseStatus(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s %s on %s at %s\n", rec.Name, rec.Status, rec.Date, rec.Time)
			return nil
		},
	}
}

func newListCommand(opts *RootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded attendance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			if err := e.services.Attendance.Open(cmd.Context(), e.scope); err != nil {
				return err
			}
			records, err := e.services.Attendance.List(cmd.Context(), e.scope)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			case "text":
				printRecords(cmd.OutOrStdout(), records)
				return nil
			default:
				return fmt.Errorf("unknown format %q (text, json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}

func newDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name> <date> <time> <status>",
		Short: "Delete one record matching all four fields",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			record := models.AttendanceRecord{Name: args[0], Date: args[1], Time: args[2], Status: models.Status(args[3])}
			deleted, err := e.services.Attendance.Delete(cmd.Context(), e.scope, record)
			if err != nil {
				return err
			}
			if deleted {
				fmt.Fprintln(cmd.OutOrStdout(), "Attendance deleted successfully")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching record")
			}
			return nil
		},
	}
}

func newClearCommand(opts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every record, keeping the header",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("clear is irreversible, pass --yes to confirm")
			}
			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			if err := e.services.Attendance.Clear(cmd.Context(), e.scope); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All attendance cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing the table")
	return cmd
}

func newExportCommand(opts *RootOptions) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the table as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}

			var data []byte
			switch format {
			case "csv":
				if data, err = e.services.Export.ExportCSV(cmd.Context(), e.scope); err != nil {
					return err
				}
			case "xlsx":
				var buf bytes.Buffer
				if err := e.services.Export.ExportXLSX(cmd.Context(), e.scope, &buf); err != nil {
					return err
				}
				data = buf.Bytes()
			default:
				return fmt.Errorf("unknown format %q (csv, xlsx)", format)
			}

			// The target is only touched once the export succeeded.
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return writeFile(output, data)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "export format: csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newSummaryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show attendance counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			sum, err := e.services.Attendance.Summary(cmd.Context(), e.scope)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scope=%s total=%d present=%d absent=%d today=%d\n",
				sum.Scope, sum.Total, sum.Present, sum.Absent, sum.Today)
			return nil
		},
	}
}

// parseStatus accepts any casing of Present/Absent
func parseStatus(s string) models.Status {
	for status := range models.ValidStatuses {
		if strings.EqualFold(s, string(status)) {
			return status
		}
	}
	return models.Status(s)
}

// writeFile writes data to a sibling temp file and renames it over path,
// so a failed write never leaves a truncated export behind.
func writeFile(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
