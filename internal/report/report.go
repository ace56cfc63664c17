package report

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

const (
	rowHeight    = 6
	headerHeight = 10
	timeLayout   = "2006-01-02 15:04:05 MST"
)

var (
	titleProps   = props.Text{Size: 14, Style: fontstyle.Bold}
	sectionProps = props.Text{Size: 11, Style: fontstyle.Bold, Top: 3}
	labelProps   = props.Text{Size: 9, Style: fontstyle.Bold}
	valueProps   = props.Text{Size: 9}
)

// Input is everything rendered into an upload processing report.
type Input struct {
	Upload      *domain.Upload
	Rows        domain.RowCounts
	RecordTypes map[string]int
}

// Generator renders upload processing reports as PDF.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) GenerateReport(in Input) ([]byte, error) {
	if in.Upload == nil {
		return nil, fmt.Errorf("failed to generate report: no upload")
	}

	m := maroto.New(config.NewBuilder().Build())

	u := in.Upload

	m.AddRows(text.NewRow(headerHeight, "TDDF upload report", titleProps))

	m.AddRows(section("Upload"))
	m.AddRows(
		pair("ID", u.ID),
		pair("Filename", u.Filename),
		pair("File type", string(u.FileType)),
		pair("Phase", string(u.Phase)),
		pair("Size", strconv.FormatInt(u.ByteSize, 10)+" bytes"),
		pair("Lines", lineCount(u.LineCount)),
		pair("Progress", strconv.Itoa(u.Progress)+"%"),
	)
	if u.LastError != "" {
		m.AddRows(pair("Last error", u.LastError))
	}

	m.AddRows(section("Timeline"))
	m.AddRows(pair("Created", stamp(&u.CreatedAt)))
	for _, s := range timeline(u) {
		if s.at != nil {
			m.AddRows(pair(s.name, stamp(s.at)))
		}
	}

	m.AddRows(section("Rows"))
	m.AddRows(
		pair("Total", strconv.Itoa(in.Rows.Total)),
		pair("Pending", strconv.Itoa(in.Rows.Pending)),
		pair("Claimed", strconv.Itoa(in.Rows.Claimed)),
		pair("Processed", strconv.Itoa(in.Rows.Processed)),
		pair("Skipped", strconv.Itoa(in.Rows.Skipped)),
		pair("Failed", strconv.Itoa(in.Rows.Failed)),
	)

	if len(in.RecordTypes) > 0 {
		m.AddRows(section("Record types"))
		for _, code := range slices.Sorted(maps.Keys(in.RecordTypes)) {
			m.AddRows(pair(code, strconv.Itoa(in.RecordTypes[code])))
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate report for upload %s: %w", u.ID, err)
	}

	return doc.GetBytes(), nil
}

func section(title string) core.Row {
	return text.NewRow(headerHeight, title, sectionProps)
}

func pair(label, value string) core.Row {
	return row.New(rowHeight).Add(
		text.NewCol(4, label, labelProps),
		text.NewCol(8, value, valueProps),
	)
}

type step struct {
	name string
	at   *time.Time
}

func timeline(u *domain.Upload) []step {
	return []step{
		{"Uploading", u.UploadingAt},
		{"Uploaded", u.UploadedAt},
		{"Identified", u.IdentifiedAt},
		{"Encoding started", u.EncodingStartedAt},
		{"Encoding completed", u.EncodingCompletedAt},
		{"Completed", u.CompletedAt},
		{"Failed", u.FailedAt},
		{"Cancelled", u.CancelledAt},
		{"Deleted", u.DeletedAt},
	}
}

func stamp(t *time.Time) string {
	return t.UTC().Format(timeLayout)
}

func lineCount(n *int) string {
	if n == nil {
		return "-"
	}

	return strconv.Itoa(*n)
}
