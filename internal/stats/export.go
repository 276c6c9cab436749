package stats

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ritimapp/ritim/internal/model"
)

// Sheet names of the export workbook.
const (
	RecordsSheet = "Kayıtlar"
	ExamsSheet   = "Denemeler"
)

var recordHeaders = []any{"Tarih", "Alan", "Odak (dk)", "Etkinlik", "Soru", "Dersler"}

var examHeaders = []any{"ID", "Tarih", "Alan", "Deneme", "Tür", "Ders", "Doğru", "Yanlış", "Boş", "Net", "Süre (dk)"}

// ExportXLSX writes records and live exams to an XLSX workbook, oldest
// first.
func ExportXLSX(w io.Writer, records []model.DailyRecord, exams []model.ExamRecord, names map[string]string) error {
	f := excelize.NewFile()
	defer func() {
		// Best-effort close.
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", RecordsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ExamsSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	sortedRecords := make([]model.DailyRecord, len(records))
	copy(sortedRecords, records)
	sort.Slice(sortedRecords, func(i, j int) bool {
		if sortedRecords[i].Date == sortedRecords[j].Date {
			return sortedRecords[i].TrackID < sortedRecords[j].TrackID
		}
		return sortedRecords[i].Date < sortedRecords[j].Date
	})
	recordRows := make([][]any, 0, len(sortedRecords))
	for _, rec := range sortedRecords {
		var questions any = ""
		if rec.QuestionCount != nil {
			questions = *rec.QuestionCount
		}
		recordRows = append(recordRows, []any{
			rec.Date,
			string(rec.TrackID),
			rec.FocusMinutes,
			activityLabel(rec.ActivityType),
			questions,
			breakdownCell(rec),
		})
	}
	if err := writeSheet(f, RecordsSheet, recordHeaders, recordRows, bold); err != nil {
		return err
	}

	sortedExams := make([]model.ExamRecord, 0, len(exams))
	for _, e := range exams {
		if !e.IsDeleted {
			sortedExams = append(sortedExams, e)
		}
	}
	sort.Slice(sortedExams, func(i, j int) bool {
		if sortedExams[i].Date == sortedExams[j].Date {
			return sortedExams[i].CreatedAtMs < sortedExams[j].CreatedAtMs
		}
		return sortedExams[i].Date < sortedExams[j].Date
	})
	examRows := make([][]any, 0, len(sortedExams))
	for _, e := range sortedExams {
		kind, subject := "Genel", ""
		if e.Type == model.ExamBranch {
			kind, subject = "Branş", e.TrackID.SubjectLabel(e.SubjectKey)
		}
		var duration any = ""
		if e.DurationMinutes != nil {
			duration = *e.DurationMinutes
		}
		examRows = append(examRows, []any{
			e.ID,
			e.Date,
			string(e.TrackID),
			names[e.ID],
			kind,
			subject,
			e.CorrectTotal,
			e.WrongTotal,
			e.BlankTotal,
			e.Net(),
			duration,
		})
	}
	if err := writeSheet(f, ExamsSheet, examHeaders, examRows, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

// ExportFileName suggests a file name for an export made on date.
func ExportFileName(track model.TrackID, date string) string {
	return fmt.Sprintf("ritim-%s-%s.xlsx", strings.ToLower(string(track)), date)
}
