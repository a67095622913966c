package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/user/pq_analyzer_go/internal/analysis"
)

const (
	pdfPageWidth  = 210.0 // A4 portrait, mm
	pdfPageHeight = 297.0
	pdfMargin     = 15.0
	pdfContent    = pdfPageWidth - (2 * pdfMargin)
)

// styler holds reusable styling and the running vertical cursor for
// flowing content across pages.
type styler struct {
	pdf        *gofpdf.Fpdf
	styles     map[string]func()
	lineHeight float64
	y          float64 // current vertical offset
	bottom     float64 // printable bottom edge
}

func newStyler(pdf *gofpdf.Fpdf) *styler {
	s := &styler{
		pdf:        pdf,
		styles:     make(map[string]func()),
		lineHeight: 6,
		bottom:     pdfPageHeight - pdfMargin,
	}
	s.y = pdfMargin
	s.defineStyles()
	return s
}

func (s *styler) defineStyles() {
	s.styles["h1"] = func() {
		s.pdf.SetFont("Arial", "B", 16)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["h2"] = func() {
		s.pdf.SetFont("Arial", "B", 13)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["h3"] = func() {
		s.pdf.SetFont("Arial", "B", 11)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["normal"] = func() {
		s.pdf.SetFont("Arial", "", 10)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["rowLabel"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetFillColor(235, 235, 235)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["rowValue"] = func() {
		s.pdf.SetFont("Arial", "", 9)
		s.pdf.SetTextColor(50, 50, 50)
	}
	s.styles["rowFail"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetTextColor(200, 0, 0)
	}
	s.styles["rowPass"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetTextColor(0, 130, 0)
	}
}

func (s *styler) applyStyle(name string) {
	if fn, ok := s.styles[name]; ok {
		fn()
	} else {
		s.styles["normal"]()
	}
}

// ensureSpace starts a new page when the next block would cross the
// printable bottom. Invoked before every content block commits ink.
func (s *styler) ensureSpace(needed float64) {
	if s.y+needed > s.bottom {
		s.pdf.AddPage()
		s.y = pdfMargin
	}
}

// pageBreak forces a new page regardless of remaining space.
func (s *styler) pageBreak() {
	s.pdf.AddPage()
	s.y = pdfMargin
}

func (s *styler) addSpacer(height float64) {
	s.ensureSpace(height)
	s.y += height
}

// writeParagraph flows word-wrapped text at the cursor, measuring the real
// wrapped height before committing.
func (s *styler) writeParagraph(text, styleName, align string) {
	s.applyStyle(styleName)
	lines := s.pdf.SplitText(text, pdfContent)
	height := float64(len(lines)) * s.lineHeight
	s.ensureSpace(height)

	s.pdf.SetXY(pdfMargin, s.y)
	s.pdf.MultiCell(pdfContent, s.lineHeight, text, "", align, false)
	s.y = s.pdf.GetY()
	s.y += 1
}

// writeBullet writes an indented bulleted line, word-wrapped.
func (s *styler) writeBullet(text, styleName string) {
	s.applyStyle(styleName)
	const indent = 6.0
	lines := s.pdf.SplitText(text, pdfContent-indent)
	height := float64(len(lines)) * s.lineHeight
	s.ensureSpace(height)

	s.pdf.SetXY(pdfMargin, s.y)
	s.pdf.CellFormat(indent, s.lineHeight, "-", "", 0, "L", false, 0, "")
	s.pdf.SetXY(pdfMargin+indent, s.y)
	s.pdf.MultiCell(pdfContent-indent, s.lineHeight, text, "", "L", false)
	s.y = s.pdf.GetY()
}

// writeRow writes one fixed-height label/value row of the summary table.
func (s *styler) writeRow(label, value, valueStyle string) {
	const rowHeight = 7.0
	s.ensureSpace(rowHeight)
	labelWidth := pdfContent * 0.55

	s.applyStyle("rowLabel")
	s.pdf.SetXY(pdfMargin, s.y)
	s.pdf.CellFormat(labelWidth, rowHeight, label, "1", 0, "L", true, 0, "")

	s.applyStyle(valueStyle)
	s.pdf.SetXY(pdfMargin+labelWidth, s.y)
	s.pdf.CellFormat(pdfContent-labelWidth, rowHeight, value, "1", 0, "L", false, 0, "")
	s.y += rowHeight
}

// addImage embeds PNG bytes at the cursor. The name keys gofpdf's image
// registry and must be unique per distinct image.
func (s *styler) addImage(img []byte, name string, width, height float64) {
	if width > pdfContent {
		ratio := pdfContent / width
		width = pdfContent
		height *= ratio
	}
	s.ensureSpace(height)
	s.pdf.RegisterImageReader(name, "PNG", bytes.NewReader(img))
	s.pdf.Image(name, pdfMargin, s.y, width, height, false, "PNG", 0, "")
	s.y += height
	s.addSpacer(2)
}

// TrendChartImage is one captured chart panel ready for embedding.
type TrendChartImage struct {
	Title string
	PNG   []byte
}

// TrendSection groups the captured charts of one category page.
type TrendSection struct {
	Heading string
	Charts  []TrendChartImage
}

// ReportInput carries everything the composer needs: the analysis result
// plus the already-captured chart surfaces.
type ReportInput struct {
	Result             *analysis.AnalysisResult
	VoltageSpectrumPNG []byte
	CurrentSpectrumPNG []byte
	TrendSections      []TrendSection
}

// summaryRowDefs selects and orders the summary_stats entries shown in the
// compliance summary table. Keys missing from the payload are skipped.
var summaryRowDefs = []struct {
	Key   string
	Label string
}{
	{"u1_rms_avg", "Avg Voltage U1 (V)"},
	{"u2_rms_avg", "Avg Voltage U2 (V)"},
	{"u3_rms_avg", "Avg Voltage U3 (V)"},
	{"a1_rms_avg", "Avg Current A1 (A)"},
	{"a2_rms_avg", "Avg Current A2 (A)"},
	{"a3_rms_avg", "Avg Current A3 (A)"},
	{"active_power_avg", "Avg Active Power (W)"},
	{"reactive_power_avg", "Avg Reactive Power (var)"},
	{"apparent_power_avg", "Avg Apparent Power (VA)"},
	{"active_energy_total", "Total Active Energy (Wh)"},
	{"power_factor_avg", "Avg Power Factor"},
}

func complianceStyle(pass bool) string {
	if pass {
		return "rowPass"
	}
	return "rowFail"
}

func complianceText(verdict string) string {
	if verdict == "" {
		return "Unknown"
	}
	return verdict
}

// ComposeReport walks the analysis result plus the captured chart surfaces
// and produces the paginated PDF. Section order is fixed: title,
// compliance summary, recommendations, compliance issues, harmonic
// spectra (own page), then one page per trend category that has at least
// one non-empty chart.
func ComposeReport(in ReportInput) ([]byte, error) {
	res := in.Result
	if res == nil {
		return nil, fmt.Errorf("no analysis result to compose")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.AddPage()
	s := newStyler(pdf)

	s.writeParagraph("IEEE 519 Power Quality Compliance Report", "h1", "C")
	if res.FileName != "" {
		s.writeParagraph(res.FileName, "normal", "C")
	}
	s.addSpacer(4)

	s.writeParagraph("Compliance Summary", "h2", "L")
	s.writeRow("Voltage Compliance", complianceText(res.VoltageCompliance), complianceStyle(res.VoltagePass()))
	s.writeRow("Current Compliance", complianceText(res.CurrentCompliance), complianceStyle(res.CurrentPass()))
	s.writeRow("THDv (95th, 10 min)", fmt.Sprintf("%.2f %%", res.THDVPercent), "rowValue")
	s.writeRow("TDD", fmt.Sprintf("%.2f %%", res.TDDPercent), "rowValue")
	for _, def := range summaryRowDefs {
		if v, ok := res.SummaryStats[def.Key]; ok {
			s.writeRow(def.Label, fmt.Sprintf("%.2f", v), "rowValue")
		}
	}
	s.addSpacer(5)

	s.writeParagraph("Recommendations", "h2", "L")
	if len(res.Recommendations) == 0 {
		s.writeParagraph("No recommendations.", "normal", "L")
	}
	for _, rec := range res.Recommendations {
		s.writeBullet(rec, "normal")
	}
	s.addSpacer(5)

	s.writeParagraph("Key Compliance Issues", "h2", "L")
	if len(res.FailingPoints) == 0 {
		s.writeParagraph("No compliance issues were detected.", "normal", "L")
	} else {
		categories := make([]string, 0, len(res.FailingPoints))
		for cat := range res.FailingPoints {
			categories = append(categories, cat)
		}
		sort.Strings(categories)
		for _, cat := range categories {
			s.writeParagraph(cat, "h3", "L")
			points := res.FailingPoints[cat]
			descriptions := make([]string, 0, len(points))
			for desc := range points {
				descriptions = append(descriptions, desc)
			}
			sort.Strings(descriptions)
			for _, desc := range descriptions {
				line := desc
				if phases := points[desc].Phases; len(phases) > 0 {
					line = fmt.Sprintf("%s (%s)", desc, strings.Join(phases, ", "))
				}
				s.writeBullet(line, "normal")
			}
			s.addSpacer(2)
		}
	}

	s.pageBreak()
	s.writeParagraph("Harmonic Spectrum Analysis", "h1", "C")
	s.addSpacer(3)

	spectrumWidth := pdfContent
	spectrumHeight := spectrumWidth * (350.0 / 900.0)
	spectra := []struct {
		title string
		png   []byte
	}{
		{"Voltage Harmonics", in.VoltageSpectrumPNG},
		{"Current Harmonics", in.CurrentSpectrumPNG},
	}
	for _, sp := range spectra {
		s.writeParagraph(sp.title, "h2", "L")
		if len(sp.png) > 0 {
			s.addImage(sp.png, "spectrum_"+sp.title, spectrumWidth, spectrumHeight)
		} else {
			s.writeParagraph(fmt.Sprintf("Chart for %s not available.", sp.title), "normal", "L")
		}
		s.addSpacer(3)
	}

	chartWidth := pdfContent
	chartHeight := chartWidth * (float64(trendChartHeight) / float64(trendChartWidth))
	for _, section := range in.TrendSections {
		if len(section.Charts) == 0 {
			// No non-empty charts: no page break, no blank page.
			continue
		}
		s.pageBreak()
		s.writeParagraph(section.Heading, "h1", "L")
		s.addSpacer(2)
		for _, ch := range section.Charts {
			s.writeParagraph(ch.Title, "h2", "L")
			s.addImage(ch.PNG, "trend_"+ch.Title, chartWidth, chartHeight)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}
