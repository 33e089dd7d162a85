// Package main provides the CLI entry point for the spreadsheet service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/osmaviation/spreadsheet/internal/config"
	"github.com/osmaviation/spreadsheet/internal/container"
	"github.com/osmaviation/spreadsheet/internal/httpapi"
	"github.com/osmaviation/spreadsheet/internal/telemetry"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/models"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/output"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/parser"
)

var (
	envFile       string
	disk          string
	sheet         string
	outputPath    string
	pretty        bool
	mode          string
	sheetsDir     string
	printAreasDir string
	fromDisk      string
	toDisk        string
	addr          string
)

// app holds what the root command builds before a subcommand runs.
var app struct {
	cfg      *config.Config
	log      *zap.Logger
	c        *container.Container
	shutdown func(context.Context) error
}

func main() {
	err := newRootCmd().Execute()
	if cerr := cleanup(); cerr != nil {
		fmt.Fprintln(os.Stderr, "Error:", cerr)
		err = errors.Join(err, cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spreadsheet",
		Short: "Read, convert and store spreadsheets",
		Long: `spreadsheet reads xlsx, xlsm, xls and csv workbooks, maps their rows
onto header keys, extracts structured JSON and stores workbooks on named disks.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file read before the environment")

	associateCmd := &cobra.Command{
		Use:   "associate [file]",
		Short: "Print the rows of a sheet keyed by its header row",
		Args:  cobra.ExactArgs(1),
		RunE:  runAssociate,
	}
	associateCmd.Flags().StringVar(&disk, "disk", "", "Disk to read from (default: local filesystem path)")
	associateCmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name (default: first sheet)")
	associateCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")

	inspectCmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Extract structured data from a workbook",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	inspectCmd.Flags().StringVar(&disk, "disk", "", "Disk to read from (default: local filesystem path)")
	inspectCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	inspectCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	inspectCmd.Flags().StringVar(&mode, "mode", "standard", "Extraction mode: light, standard, verbose")
	inspectCmd.Flags().StringVar(&sheetsDir, "sheets-dir", "", "Directory for per-sheet output files")
	inspectCmd.Flags().StringVar(&printAreasDir, "print-areas-dir", "", "Directory for per-print-area output files")

	convertCmd := &cobra.Command{
		Use:   "convert [source] [destination]",
		Short: "Load a workbook and store it under a new name or format",
		Args:  cobra.ExactArgs(2),
		RunE:  runConvert,
	}
	convertCmd.Flags().StringVar(&fromDisk, "from-disk", "", "Disk to load from (default: local filesystem path)")
	convertCmd.Flags().StringVar(&toDisk, "to-disk", "", "Disk to store to (default: SPREADSHEET_DEFAULT_DISK)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: SPREADSHEET_HTTP_ADDR)")

	rootCmd.AddCommand(associateCmd, inspectCmd, convertCmd, serveCmd)
	return rootCmd
}

// setup records each resource in app as soon as it exists so cleanup can
// release it whether or not the command succeeds.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	app.cfg = cfg
	log, err := container.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	app.log = log
	shutdown, err := telemetry.Setup(cmd.Context(), cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	app.shutdown = shutdown
	c, err := container.New(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	app.c = c
	return nil
}

// cleanup closes the container, flushes spans and syncs the logger. It runs
// after Execute on every path, including failed commands and a failed setup.
func cleanup() error {
	var errs []error
	if app.c != nil {
		errs = append(errs, app.c.Close())
	}
	if app.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, app.shutdown(ctx))
		cancel()
	}
	if app.log != nil {
		_ = app.log.Sync()
	}
	app.cfg, app.log, app.c, app.shutdown = nil, nil, nil, nil
	return errors.Join(errs...)
}

func runAssociate(cmd *cobra.Command, args []string) error {
	svc := app.c.Spreadsheet()
	var jsonData []byte
	err := svc.ReadFrom(cmd.Context(), disk, args[0], func(r spreadsheet.Reader) error {
		name := sheet
		if name == "" {
			name = spreadsheet.FirstSheet(r)
		}
		rows, err := r.Rows(name)
		if err != nil {
			return err
		}
		jsonData, err = output.ToJSON(svc.Associate(cmd.Context(), rows), pretty)
		return err
	})
	if err != nil {
		return fmt.Errorf("associate failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	if disk == "" {
		if _, err := os.Stat(inputPath); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", inputPath)
		}
	}

	extractMode, ok := spreadsheet.ParseMode(mode)
	if !ok {
		return fmt.Errorf("invalid mode: %s (must be light, standard, or verbose)", mode)
	}

	wb, err := app.c.Spreadsheet().Extract(cmd.Context(), disk, inputPath, spreadsheet.ExtractOptions{Mode: extractMode})
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	jsonData, err := output.ToJSON(wb, pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else if sheetsDir == "" && printAreasDir == "" {
		fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
	}

	if sheetsDir != "" {
		if err := writeSheetFiles(wb, sheetsDir); err != nil {
			return fmt.Errorf("failed to write sheet files: %w", err)
		}
	}

	if printAreasDir != "" {
		if err := writePrintAreaFiles(wb, printAreasDir); err != nil {
			return fmt.Errorf("failed to write print area files: %w", err)
		}
	}

	return nil
}

func writeSheetFiles(wb *models.WorkbookData, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for _, sheetName := range wb.SheetOrder {
		data := wb.Sheets[sheetName]
		jsonData, err := output.SheetToJSON(&data, pretty)
		if err != nil {
			return err
		}

		filename := filepath.Join(dir, output.FileName(sheetName)+".json")
		if err := os.WriteFile(filename, jsonData, 0644); err != nil {
			return err
		}
	}

	return nil
}

func writePrintAreaFiles(wb *models.WorkbookData, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for _, sheetName := range wb.SheetOrder {
		data := wb.Sheets[sheetName]
		for i, area := range data.PrintAreas {
			view := parser.ViewOf(wb.BookName, sheetName, data.Rows, area)
			jsonData, err := output.PrintAreaViewToJSON(&view, pretty)
			if err != nil {
				return err
			}

			filename := filepath.Join(dir, fmt.Sprintf("%s_area%d.json", output.FileName(sheetName), i+1))
			if err := os.WriteFile(filename, jsonData, 0644); err != nil {
				return err
			}
		}
	}

	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	src, dst := args[0], args[1]
	target := toDisk
	if target == "" {
		target = app.c.DefaultDisk()
	}

	format, err := spreadsheet.DetectFormat(dst)
	if err != nil {
		return err
	}

	svc := app.c.Spreadsheet()
	if err := svc.Load(cmd.Context(), src, fromDisk, nil); err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	if err := svc.StoreAs(cmd.Context(), target, dst, format); err != nil {
		return fmt.Errorf("store failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored %s on disk %s\n", dst, target)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	listen := addr
	if listen == "" {
		listen = app.cfg.HTTP.Addr
	}
	handler := httpapi.New(app.c.NewSpreadsheet, app.cfg.HTTP.MaxUploadMB<<20, app.log.Named("http"))
	srv := &http.Server{
		Addr:         listen,
		Handler:      handler,
		ReadTimeout:  app.cfg.HTTP.ReadTimeout,
		WriteTimeout: app.cfg.HTTP.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		app.log.Info("listening", zap.String("addr", listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
