// Package export renders history rows as spreadsheets.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"io.winapps.healthjournal/internal/aggregator"
	"io.winapps.healthjournal/internal/dates"
	"io.winapps.healthjournal/internal/richtext"
)

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"

	SheetName = "History"
)

// Header is the first row of every export.
var Header = []string{
	"Date", "Time", "Category", "Summary",
	"Calories", "Protein", "Carbs", "Fats", "Alcohol",
	"Systolic", "Diastolic", "Pulse",
	"Exercise", "Duration", "Intensity",
	"Mood", "Notes",
}

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	if format == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Write renders rows to w in format, which must be FormatCSV or FormatXLSX.
func Write(w io.Writer, format string, cal dates.Calendar, rows []aggregator.HistoryRow) error {
	if format == FormatCSV {
		return WriteCSV(w, cal, rows)
	}
	return WriteXLSX(w, cal, rows)
}

// Record flattens one history row into the Header columns. Columns that do
// not apply to the row's category are left blank.
func Record(cal dates.Calendar, r aggregator.HistoryRow) []string {
	rec := make([]string, len(Header))
	rec[0] = r.DateKey
	if !r.SortKey.IsZero() {
		rec[1] = cal.LocalDateTime(r.SortKey)[len(dates.DateLayout)+1:]
	}
	rec[2] = string(r.Category)
	rec[3] = r.Preview

	itoa := strconv.Itoa
	e := r.Entry
	switch {
	case e.Nutrition != nil:
		rec[4], rec[5], rec[6], rec[7], rec[8] = itoa(e.Nutrition.Calories.Int()), itoa(e.Nutrition.Protein.Int()),
			itoa(e.Nutrition.Carbs.Int()), itoa(e.Nutrition.Fats.Int()), itoa(e.Nutrition.Alcohol.Int())
	case e.Health != nil:
		rec[9], rec[10], rec[11] = itoa(e.Health.Systolic.Int()), itoa(e.Health.Diastolic.Int()), itoa(e.Health.Pulse.Int())
		rec[16] = e.Health.Notes
	case e.Exercise != nil:
		rec[12], rec[13], rec[14] = e.Exercise.Type, itoa(e.Exercise.Duration.Int()), e.Exercise.Intensity
		rec[16] = e.Exercise.Notes
	case e.Diary != nil:
		rec[15] = e.Diary.Mood
		rec[16] = richtext.PlainText(e.Diary.Entry)
	}
	return rec
}

func WriteCSV(w io.Writer, cal dates.Calendar, rows []aggregator.HistoryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(Record(cal, r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteXLSX(w io.Writer, cal dates.Calendar, rows []aggregator.HistoryRow) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", toCells(Header)); err != nil {
		return err
	}
	for i, r := range rows {
		cellAddr, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cellAddr, toCells(Record(cal, r))); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

func toCells(rec []string) []interface{} {
	cells := make([]interface{}, len(rec))
	for i, v := range rec {
		cells[i] = v
	}
	return cells
}
