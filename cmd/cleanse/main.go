// Command cleanse runs the cleanser headless against a spreadsheet on disk and prints JSON.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mmdatafocus/cmdb_cleanser/config"
	"github.com/mmdatafocus/cmdb_cleanser/models"
	"github.com/mmdatafocus/cmdb_cleanser/reference"
	"github.com/mmdatafocus/cmdb_cleanser/session"
	"github.com/spf13/cobra"
)

// fileReferenceTable names the table a --reference-file stands in for.
const fileReferenceTable = "file"

type columnFlags struct {
	columnType     string
	subtype        string
	unique         bool
	referenceTable string
	referenceFile  string
	listAll        bool
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var flags columnFlags

	root := &cobra.Command{
		Use:          "cleanse",
		Short:        "Profile, scan and export CMDB spreadsheets",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// stdout carries the JSON result.
			config.GetLogger().SetOutput(cmd.ErrOrStderr())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&flags.referenceFile, "reference-file", "",
		"file with one valid reference value per line, used instead of the reference API")

	columnOpts := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&flags.columnType, "type", "", "column type (string, number, date, alphanumeric, boolean); inferred when empty")
		cmd.Flags().StringVar(&flags.subtype, "subtype", "", "subtype id; detected from the column name when empty")
		cmd.Flags().BoolVar(&flags.unique, "unique", false, "treat the column as a unique qualifier")
		cmd.Flags().StringVar(&flags.referenceTable, "reference-table", "", "reference table holding the column's valid values")
	}

	profileCmd := &cobra.Command{
		Use:   "profile FILE",
		Short: "Print the column profiles of a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openWorkbook(cmd, args[0], flags)
			if err != nil {
				return err
			}
			defer cleanup()
			info, err := svc.Workbook(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), info)
		},
	}

	actionsCmd := &cobra.Command{
		Use:   "actions FILE COLUMN",
		Short: "List the remediation actions that apply to one column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openColumn(cmd, args[0], args[1], flags)
			if err != nil {
				return err
			}
			defer cleanup()
			actions, err := svc.Actions(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), actions)
		},
	}
	columnOpts(actionsCmd)

	scanCmd := &cobra.Command{
		Use:   "scan FILE COLUMN ACTION",
		Short: "List the issues one action finds in one column",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openColumn(cmd, args[0], args[1], flags)
			if err != nil {
				return err
			}
			defer cleanup()
			res, err := svc.Scan(cmd.Context(), args[1], models.ActionType(args[2]), flags.listAll)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	columnOpts(scanCmd)
	scanCmd.Flags().BoolVar(&flags.listAll, "list-all", false, "also list valid and empty cells for reference validation")

	exportCmd := &cobra.Command{
		Use:   "export FILE OUT",
		Short: "Replay the change log of FILE and write the cleaned workbook to OUT",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openWorkbook(cmd, args[0], flags)
			if err != nil {
				return err
			}
			defer cleanup()
			res, err := svc.Export(cmd.Context())
			if err != nil {
				return err
			}
			if err := copyFile(res.Path, args[1]); err != nil {
				return err
			}
			res.FileName = args[1]
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	root.AddCommand(profileCmd, actionsCmd, scanCmd, exportCmd)
	return root
}

// openWorkbook loads path into a service backed by a private work dir. Export side effects
// (archive and event) are switched off; the optional backends follow the environment.
func openWorkbook(cmd *cobra.Command, path string, flags columnFlags) (*session.Service, func(), error) {
	workDir, err := os.MkdirTemp("", "cleanse-*")
	if err != nil {
		return nil, nil, err
	}
	opts, closeBackends := session.OptionsFromSettings(config.LoadSettings())
	cleanup := func() {
		closeBackends()
		_ = os.RemoveAll(workDir)
	}
	opts.WorkDir = workDir
	opts.ArchiveBucket = ""
	opts.PubSubTopic = ""

	if flags.referenceFile != "" {
		src, err := reference.LoadFile(flags.referenceFile)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts.Reference = src
	}

	svc, err := session.New(opts)
	if err == nil {
		_, err = svc.Load(cmd.Context(), path, path)
	}
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	config.GetLogger().WithField("file", path).Debug("workbook loaded")
	return svc, cleanup, nil
}

// openColumn loads path and configures column from the command flags.
func openColumn(cmd *cobra.Command, path, column string, flags columnFlags) (*session.Service, func(), error) {
	svc, cleanup, err := openWorkbook(cmd, path, flags)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := columnConfig(svc, cmd, column, flags)
	if err == nil {
		_, err = svc.Configure(cmd.Context(), []models.ColumnConfig{cfg})
	}
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

func columnConfig(svc *session.Service, cmd *cobra.Command, column string, flags columnFlags) (models.ColumnConfig, error) {
	cfg := models.ColumnConfig{
		Name:              column,
		Subtype:           flags.subtype,
		IsUniqueQualifier: flags.unique,
		ReferenceTable:    flags.referenceTable,
	}
	if cfg.ReferenceTable == "" && flags.referenceFile != "" {
		cfg.ReferenceTable = fileReferenceTable
	}
	cfg.IsReferenceData = cfg.ReferenceTable != ""

	if flags.columnType != "" {
		t, err := models.ParseColumnType(flags.columnType)
		if err != nil {
			return cfg, err
		}
		cfg.Type = t
		return cfg, nil
	}
	info, err := svc.Workbook(cmd.Context())
	if err != nil {
		return cfg, err
	}
	for _, p := range info.Columns {
		if p.Name == column {
			cfg.Type = p.InferredType
			return cfg, nil
		}
	}
	// Configure reports the unknown column.
	cfg.Type = models.ColumnTypeString
	return cfg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
