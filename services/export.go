package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-content-platform/internal/logger"
	"social-content-platform/models"
)

const (
	ExportFormatJSON  = "json"
	ExportFormatExcel = "xlsx"

	suggestionsSheet = "Suggestions"
	exportTimeLayout = "2006-01-02 15:04:05"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// SuggestionLister reads a stored batch without regenerating it.
type SuggestionLister interface {
	List(ctx context.Context, userID primitive.ObjectID, source models.Source) ([]models.ContentSuggestion, error)
}

// ExportFile is a rendered export ready to be written to a response.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Records     int
}

type SuggestionExport struct {
	ExportInfo  ExportInfo                 `json:"export_info"`
	Suggestions []models.ContentSuggestion `json:"suggestions"`
}

type ExportInfo struct {
	ExportDate   time.Time     `json:"export_date"`
	TotalRecords int           `json:"total_records"`
	Source       models.Source `json:"source"`
	Format       string        `json:"format"`
}

type ExportService struct {
	suggestions SuggestionLister
	now         func() time.Time
}

func NewExportService(suggestions SuggestionLister) *ExportService {
	return &ExportService{suggestions: suggestions, now: time.Now}
}

// Export renders the user's current batch for source in format ("json" or "xlsx").
func (es *ExportService) Export(ctx context.Context, userID primitive.ObjectID, source models.Source, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" || format == "excel" {
		format = ExportFormatExcel
	}
	if format != ExportFormatJSON && format != ExportFormatExcel {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	suggestions, err := es.suggestions.List(ctx, userID, source)
	if err != nil {
		return nil, err
	}

	data := &SuggestionExport{
		ExportInfo: ExportInfo{
			ExportDate:   es.now().UTC(),
			TotalRecords: len(suggestions),
			Source:       source,
			Format:       format,
		},
		Suggestions: suggestions,
	}

	base := fmt.Sprintf("suggestions_%s_%s", source, data.ExportInfo.ExportDate.Format("20060102"))
	if format == ExportFormatJSON {
		return es.exportJSON(data, base+".json")
	}
	return es.exportExcel(data, base+".xlsx")
}

func (es *ExportService) exportJSON(data *SuggestionExport, filename string) (*ExportFile, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return &ExportFile{
		Filename:    filename,
		ContentType: "application/json",
		Data:        jsonData,
		Records:     data.ExportInfo.TotalRecords,
	}, nil
}

func (es *ExportService) exportExcel(data *SuggestionExport, filename string) (*ExportFile, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("Failed to close Excel file", "error", err)
		}
	}()

	index, err := f.NewSheet(suggestionsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headers := []string{
		"ID", "Title", "Content", "Hashtags", "Content Type", "Image URL", "Refreshed", "Source", "Created At",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(suggestionsSheet, cell, header)
	}

	for rowIdx, s := range data.Suggestions {
		row := rowIdx + 2

		image := ""
		if len(s.ImageURLs) > 0 {
			image = s.ImageURLs[0]
		}
		tags := make([]string, 0, len(s.Hashtags))
		for _, h := range s.Hashtags {
			tags = append(tags, "#"+h)
		}

		f.SetCellValue(suggestionsSheet, fmt.Sprintf("A%d", row), s.ID.Hex())
		f.SetCellValue(suggestionsSheet, fmt.Sprintf("B%d", row), s.Title)
		f.SetCellValue(suggestionsSheet, fmt.Sprintf("C%d", row), s.Content)
		f.SetCellValue(suggestionsSheet, fmt.Sprintf("D%d", row), strings.Join(tags, " "))
		f.SetCellValue(suggestionsSheet, fmt.Sprintf("E%d", row), string(s.ContentType))
		f.SetCellValue(suggestionsSheet, fmt.Sprintf("F%d", row), image)
		f.SetCellValue(suggestionsSheet, fmt.Sprintf("G%d", row), s.Refreshed)
		f.SetCellValue(suggestionsSheet, fmt.Sprintf("H%d", row), string(s.Source))
		f.SetCellValue(suggestionsSheet, fmt.Sprintf("I%d", row), s.CreatedAt.Format(exportTimeLayout))
	}

	f.SetColWidth(suggestionsSheet, "A", "B", 26)
	f.SetColWidth(suggestionsSheet, "C", "C", 60)
	f.SetColWidth(suggestionsSheet, "D", "I", 20)

	summarySheet := "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Export Date", data.ExportInfo.ExportDate.Format(exportTimeLayout)},
		{"Total Records", data.ExportInfo.TotalRecords},
		{"Source", string(data.ExportInfo.Source)},
	}
	for i, row := range summary {
		for j, cell := range row {
			f.SetCellValue(summarySheet, fmt.Sprintf("%c%d", 'A'+j, i+1), cell)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	return &ExportFile{
		Filename:    filename,
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        buf.Bytes(),
		Records:     data.ExportInfo.TotalRecords,
	}, nil
}
