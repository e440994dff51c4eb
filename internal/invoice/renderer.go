// Package invoice renders sale invoices to PDF through Gotenberg and stores
// the resulting documents on disk.
package invoice

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/invoice.html
var templates embed.FS

// Document is the payload rendered into an invoice.
type Document struct {
	OrderID       string
	Number        string
	CustomerName  string
	CustomerEmail string
	ShippingCity  string
	ShippingLine  string
	Items         []Line
	Subtotal      float64
	Total         float64
	IssuedAt      time.Time
}

// Line is one invoiced product.
type Line struct {
	ProductName string
	UnitPrice   float64
	Quantity    int
	LineTotal   float64
}

// RenderResult carries the rendered artefacts.
type RenderResult struct {
	HTML   string
	PDF    []byte
	Length int64
}

// PDFClient exposes the subset of the Gotenberg client used by the renderer.
type PDFClient interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Renderer turns a Document into PDF bytes via html/template + PDF conversion.
type Renderer struct {
	tpl    *template.Template
	client PDFClient
}

// NewRenderer parses the invoice template and wires the PDF client.
func NewRenderer(client PDFClient) (*Renderer, error) {
	if client == nil {
		return nil, fmt.Errorf("invoice renderer: pdf client required")
	}
	// Prices are shown the Colombian way, digit groups separated by dots.
	printer := message.NewPrinter(language.MustParse("es-CO"))
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006")
		},
		"formatCOP": func(v float64) string {
			return printer.Sprintf("$ %.0f", v)
		},
	}
	tpl, err := template.New("invoice.html").Funcs(funcMap).ParseFS(templates, "templates/invoice.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tpl: tpl, client: client}, nil
}

// RenderHTML executes the template without converting to PDF.
func (r *Renderer) RenderHTML(doc Document) (string, error) {
	if r == nil || r.tpl == nil {
		return "", fmt.Errorf("invoice renderer not initialised")
	}
	buf := &bytes.Buffer{}
	if err := r.tpl.Execute(buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render executes the template and converts the HTML to PDF bytes.
func (r *Renderer) Render(ctx context.Context, doc Document) (RenderResult, error) {
	if r == nil || r.tpl == nil || r.client == nil {
		return RenderResult{}, fmt.Errorf("invoice renderer not initialised")
	}
	html, err := r.RenderHTML(doc)
	if err != nil {
		return RenderResult{}, err
	}
	pdf, err := r.client.RenderHTML(ctx, html)
	if err != nil {
		return RenderResult{}, err
	}
	return RenderResult{HTML: html, PDF: pdf, Length: int64(len(pdf))}, nil
}
