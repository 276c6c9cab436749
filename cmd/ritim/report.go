package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritimapp/ritim/internal/model"
	"github.com/ritimapp/ritim/internal/stats"
)

var (
	statsDays        int
	statsCurveWindow int

	exportOut string
	exportAll bool
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().IntVar(&statsDays, "days", defaultStatsDays, "window in days")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWin, "moving average window")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	applyIntConfig(cmd, "days", &statsDays, loadedConfig.Study.Days)
	if statsDays <= 0 {
		return fmt.Errorf("--days must be > 0")
	}
	if statsCurveWindow <= 0 {
		return fmt.Errorf("--curve-window must be > 0")
	}
	return withApp(cmd.Context(), func(a *app) error {
		report := stats.BuildReport(a.records.All(), a.exams.All(), a.track(), statsDays, time.Now())
		if err := printHeading(cmd, report.Track.Label()); err != nil {
			return err
		}
		return stats.Render(cmd.OutOrStdout(), report, statsCurveWindow)
	})
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records and exams to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: ritim-<track>-<date>.xlsx)")
	cmd.Flags().BoolVar(&exportAll, "all", false, "export every track")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		track := a.track()
		var records []model.DailyRecord
		for _, rec := range a.records.All() {
			if exportAll || rec.TrackID == track {
				records = append(records, rec)
			}
		}
		var listTrack model.TrackID
		if !exportAll {
			listTrack = track
		}
		exams := a.exams.List(listTrack)

		var buf bytes.Buffer
		if err := stats.ExportXLSX(&buf, records, exams, a.exams.DisplayNames()); err != nil {
			return fmt.Errorf("failed to build workbook: %w", err)
		}
		path := exportOut
		if path == "" {
			path = stats.ExportFileName(track, model.FormatDate(time.Now()))
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d kayıt, %d deneme)\n", path, len(records), len(exams))
		return err
	})
}
