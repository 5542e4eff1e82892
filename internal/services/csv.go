package services

import (
	"sort"
	"strconv"
	"strings"

	"productivity-timer/internal/database"
	"productivity-timer/internal/utils"
)

// Column layout of the daily CSV: Date, Day, 17 buckets, Total Minutes,
// Total Hours, Notes.
const (
	colDate        = 0
	colFirstBucket = 2
	colTotal       = colFirstBucket + 17
	colNotes       = colTotal + 2
)

var weeklyHeader = []string{"Week", "Year", "Date Range", "Total Minutes", "Total Hours", "Rank"}

// CSVExport carries both interchange files.
type CSVExport struct {
	Daily  string
	Weekly string
}

// ImportResult summarizes one CSV import.
type ImportResult struct {
	ImportedCount int
	ErrorCount    int
	TotalRows     int
	Errors        []*database.ImportError
}

// DailyHeader returns the header row of the daily CSV.
func DailyHeader() []string {
	header := []string{"Date", "Day"}
	for _, id := range database.Buckets {
		header = append(header, database.BucketLabels[id])
	}
	return append(header, "Total Minutes", "Total Hours", "Notes")
}

// EncodeField quotes a field that contains a comma, a double quote or a
// line break, doubling inner quotes.
func EncodeField(field string) string {
	if !strings.ContainsAny(field, ",\"\n\r") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func encodeRow(b *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(EncodeField(field))
	}
	b.WriteByte('\n')
}

// EncodeDaily writes one row per day, ordered by date.
func EncodeDaily(days map[string]*database.DailyRecord) string {
	dates := make([]string, 0, len(days))
	for date := range days {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var b strings.Builder
	encodeRow(&b, DailyHeader())
	for _, date := range dates {
		rec := days[date]
		row := []string{date, rec.DayName}
		for _, id := range database.Buckets {
			row = append(row, strconv.Itoa(rec.Slots[id]))
		}
		row = append(row,
			strconv.Itoa(rec.TotalMinutes),
			utils.FormatMinutes(rec.TotalMinutes),
			rec.Notes,
		)
		encodeRow(&b, row)
	}
	return b.String()
}

// EncodeWeekly writes the weekly rollups in the order given.
func EncodeWeekly(weeks []*database.WeeklyRecord) string {
	var b strings.Builder
	encodeRow(&b, weeklyHeader)
	for _, week := range weeks {
		rank := "Unranked"
		if week.Rank > 0 {
			rank = strconv.Itoa(week.Rank)
		}
		encodeRow(&b, []string{
			"Week " + strconv.Itoa(week.WeekNumber),
			strconv.Itoa(week.Year),
			week.DateRange,
			strconv.Itoa(week.TotalMinutes),
			week.TotalHours,
			rank,
		})
	}
	return b.String()
}

// ParseCSV splits text into records. A double quote toggles the quoted
// state unless it is doubled inside quotes; commas and line breaks only
// separate outside quotes. Every field is trimmed and blank lines are
// dropped.
func ParseCSV(text string) [][]string {
	var (
		records  [][]string
		fields   []string
		field    strings.Builder
		inQuotes bool
	)

	endField := func() {
		fields = append(fields, strings.TrimSpace(field.String()))
		field.Reset()
	}
	endRecord := func() {
		endField()
		if len(fields) > 1 || fields[0] != "" {
			records = append(records, fields)
		}
		fields = nil
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(text) && text[i+1] == '"' {
				field.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case inQuotes:
			field.WriteByte(c)
		case c == ',':
			endField()
		case c == '\n':
			endRecord()
		case c == '\r':
			// CRLF endings; a lone CR outside quotes is dropped
		default:
			field.WriteByte(c)
		}
	}
	if field.Len() > 0 || len(fields) > 0 {
		endRecord()
	}
	return records
}

func isDailyHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(record[colDate], "Date")
}

// parseDailyRow builds a record from one CSV row. The stored total column
// is ignored; the total always comes from the bucket columns.
func parseDailyRow(row int, fields []string) (*database.DailyRecord, *database.ImportError) {
	if len(fields) < colTotal {
		return nil, &database.ImportError{Row: row, Reason: "expected at least " + strconv.Itoa(colTotal) + " columns, got " + strconv.Itoa(len(fields))}
	}
	date, err := database.ParseDate(fields[colDate])
	if err != nil {
		return nil, &database.ImportError{Row: row, Reason: err.Error()}
	}

	rec := database.NewDailyRecord(date)
	for i, id := range database.Buckets {
		raw := fields[colFirstBucket+i]
		if raw == "" {
			continue
		}
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes < 0 {
			return nil, &database.ImportError{
				Row:    row,
				Reason: "column " + database.BucketLabels[id] + ": expected a non-negative integer, got " + strconv.Quote(raw),
			}
		}
		rec.Slots[id] = minutes
	}
	if len(fields) > colNotes {
		rec.Notes = fields[colNotes]
	}
	recomputeTotal(rec)
	return rec, nil
}

// ImportDaily stores every valid row of a daily CSV, replacing existing
// days with the same date. Invalid rows are skipped and counted. It fails
// only when the text holds no data rows at all.
func ImportDaily(text string, slots *SlotService) (ImportResult, error) {
	records := ParseCSV(text)
	start := 0
	if len(records) > 0 && isDailyHeader(records[0]) {
		start = 1
	}
	if len(records)-start == 0 {
		return ImportResult{}, &database.ValidationError{Field: "csv", Value: "", Reason: "no data rows found"}
	}

	result := ImportResult{TotalRows: len(records) - start}
	for i := start; i < len(records); i++ {
		row := i + 1
		rec, rowErr := parseDailyRow(row, records[i])
		if rowErr == nil {
			if err := slots.Put(rec); err != nil {
				rowErr = &database.ImportError{Row: row, Reason: err.Error()}
			}
		}
		if rowErr != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, rowErr)
			continue
		}
		result.ImportedCount++
	}
	return result, nil
}
