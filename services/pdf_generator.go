package services

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"

	"ain_oman_legal/models"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// PDFOptions contains options for PDF generation
type PDFOptions struct {
	ChromePath      string // Empty uses the chromedp default lookup
	PageOrientation string // portrait, landscape
	PageSize        string // letter, legal, A4
	MarginTop       int    // points (72 = 1 inch)
	MarginBottom    int
	MarginLeft      int
	MarginRight     int
}

// DefaultPDFOptions returns A4 portrait with one inch margins
func DefaultPDFOptions(chromePath string) PDFOptions {
	return PDFOptions{
		ChromePath:      chromePath,
		PageOrientation: "portrait",
		PageSize:        "A4",
		MarginTop:       72,
		MarginBottom:    72,
		MarginLeft:      72,
		MarginRight:     72,
	}
}

// paperSize returns width and height in inches
func (o PDFOptions) paperSize() (float64, float64) {
	var w, h float64
	switch o.PageSize {
	case "legal":
		w, h = 8.5, 14.0
	case "letter":
		w, h = 8.5, 11.0
	default: // A4
		w, h = 8.27, 11.69
	}
	if o.PageOrientation == "landscape" {
		w, h = h, w
	}
	return w, h
}

// GeneratePDF renders HTML content to PDF using headless Chrome
func GeneratePDF(ctx context.Context, htmlContent string, options PDFOptions) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	// Custom Chrome path (headless-shell in Docker)
	if options.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(options.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	paperWidth, paperHeight := options.paperSize()

	var pdfBuf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				WithMarginTop(float64(options.MarginTop) / 72.0).
				WithMarginBottom(float64(options.MarginBottom) / 72.0).
				WithMarginLeft(float64(options.MarginLeft) / 72.0).
				WithMarginRight(float64(options.MarginRight) / 72.0).
				WithPrintBackground(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfBuf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return pdfBuf, nil
}

const predictionReportHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
body { font-family: "Times New Roman", Times, serif; font-size: 12pt; line-height: 1.5; color: #000; }
h1 { font-size: 16pt; text-align: center; margin-bottom: 24pt; }
h2 { font-size: 14pt; margin-top: 18pt; }
table { width: 100%; border-collapse: collapse; }
th, td { border: 1px solid #444; padding: 4pt 6pt; text-align: left; }
</style>
</head>
<body>
<h1>Case outcome prediction</h1>
<p><strong>{{.Case.ID}}</strong> {{.Case.Title}}</p>
<table>
<tr><th>Estimated outcome</th><td>{{.Prediction.EstimatedOutcome}}</td></tr>
<tr><th>Confidence</th><td>{{percent .Prediction.Confidence}}</td></tr>
<tr><th>Estimated duration</th><td>{{.Prediction.EstimatedDurationDays}} days</td></tr>
<tr><th>Estimated cost</th><td>{{printf "%.2f" .Prediction.EstimatedCost}} {{.Prediction.Currency}}</td></tr>
<tr><th>Model</th><td>{{.Prediction.Model}}</td></tr>
<tr><th>Generated</th><td>{{.Prediction.GeneratedAt.Format "2006-01-02 15:04 MST"}}</td></tr>
</table>
{{if .Prediction.RiskFactors}}<h2>Risk factors</h2>
<ul>{{range .Prediction.RiskFactors}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{if .Prediction.RecommendedStrategy}}<h2>Recommended strategy</h2>
<ul>{{range .Prediction.RecommendedStrategy}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{if .Prediction.SimilarCases}}<h2>Similar cases</h2>
<table>
<tr><th>Case</th><th>Outcome</th><th>Duration (days)</th><th>Cost</th></tr>
{{range .Prediction.SimilarCases}}<tr><td>{{.CaseID}} {{.Title}}</td><td>{{.Outcome}}</td><td>{{.DurationDays}}</td><td>{{printf "%.2f" .Cost}}</td></tr>
{{end}}</table>{{end}}
</body>
</html>`

var predictionReportTmpl = htmltemplate.Must(htmltemplate.New("prediction_report").Funcs(htmltemplate.FuncMap{
	"percent": func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
}).Parse(predictionReportHTML))

// RenderPredictionHTML produces the printable prediction report
func RenderPredictionHTML(c *models.LegalCase, p *models.CasePrediction) (string, error) {
	var buf bytes.Buffer
	err := predictionReportTmpl.Execute(&buf, struct {
		Case       *models.LegalCase
		Prediction *models.CasePrediction
	}{c, p})
	if err != nil {
		return "", fmt.Errorf("failed to render prediction report: %w", err)
	}
	return buf.String(), nil
}

// GeneratePredictionPDF renders the cached prediction of a case as a PDF
func GeneratePredictionPDF(ctx context.Context, c *models.LegalCase, p *models.CasePrediction, options PDFOptions) ([]byte, error) {
	html, err := RenderPredictionHTML(c, p)
	if err != nil {
		return nil, err
	}
	return GeneratePDF(ctx, html, options)
}
