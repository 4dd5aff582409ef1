package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ExportService Excel / PDF 导出
type ExportService struct {
	repos *repository.Repositories
	now   func() time.Time
}

func NewExportService(repos *repository.Repositories) *ExportService {
	return &ExportService{repos: repos, now: time.Now}
}

// titleCase Caser 有状态，每次新建
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// HumanizeKey labDip -> Lab Dip, bulk_swatch -> Bulk Swatch
func HumanizeKey(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
			continue
		case i > 0 && unicode.IsUpper(r):
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return titleCase(strings.TrimSpace(b.String()))
}

func dateCell(d *entity.Date) string {
	if d == nil || d.IsZero() {
		return ""
	}
	return d.String()
}

func decimalCell(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return ""
	}
	v, _ := d.Decimal.Float64()
	return v
}

var orderExportHeaders = []string{
	"UID", "PO Number", "Customer", "Buyer", "Style", "Color Code", "Color", "CAD Code",
	"Quantity", "Unit", "Mill", "Mill Price", "Prova Price", "Currency",
	"Status", "Stage", "Category", "Order Type", "ETD", "ETA", "Merchandiser",
}

var orderExportWidths = []float64{14, 16, 22, 18, 14, 12, 14, 12, 10, 8, 18, 10, 10, 8, 14, 14, 10, 10, 12, 12, 18}

func newSheet(name string, headers []string, widths []float64) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		f.Close()
		return nil, err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(name, cell, h)
		f.SetCellStyle(name, cell, cell, headerStyle)
	}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(name, col, col, w)
	}
	f.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return f, nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	f.SetSheetRow(sheet, cell, &values)
}

// ExportOrders 导出订单（每行一条订单行；无行的订单单独一行）
func (s *ExportService) ExportOrders(ctx context.Context, actor Actor, filters map[string]string) (*excelize.File, string, error) {
	orders, err := s.repos.Order.FindAllUnpaged(ctx, actor.Scope(filters))
	if err != nil {
		return nil, "", fmt.Errorf("find orders: %w", err)
	}

	const sheet = "Orders"
	f, err := newSheet(sheet, orderExportHeaders, orderExportWidths)
	if err != nil {
		return nil, "", err
	}

	row := 2
	for i := range orders {
		o := &orders[i]
		merch := ""
		if o.Merchandiser != nil {
			merch = o.Merchandiser.FullName
		}
		base := []interface{}{o.UID, o.OrderNumber, o.CustomerName, o.BuyerName}
		tail := []interface{}{o.Status, o.CurrentStage, o.Category, o.OrderType}

		lines := 0
		for _, st := range o.Styles {
			for _, l := range st.Lines {
				currency := l.Currency
				if currency == "" {
					currency = o.Currency
				}
				etd, eta := l.ETD, l.ETA
				if etd == nil {
					etd = o.ETD
				}
				if eta == nil {
					eta = o.ETA
				}
				values := append(append([]interface{}{}, base...),
					st.StyleNumber, deref(l.ColorCode), l.ColorName, deref(l.CADCode),
					l.Quantity, l.Unit, l.MillName, decimalCell(l.MillPrice), decimalCell(l.ProvaPrice), currency,
				)
				values = append(values, tail...)
				values = append(values, dateCell(etd), dateCell(eta), merch)
				setRow(f, sheet, row, values)
				row++
				lines++
			}
		}
		if lines == 0 {
			values := append(append([]interface{}{}, base...),
				"", "", "", "",
				o.Quantity, o.Unit, o.MillName, decimalCell(o.MillPrice), decimalCell(o.ProvaPrice), o.Currency,
			)
			values = append(values, tail...)
			values = append(values, dateCell(o.ETD), dateCell(o.ETA), merch)
			setRow(f, sheet, row, values)
			row++
		}
	}

	filename := fmt.Sprintf("orders_%s.xlsx", s.now().Format("20060102"))
	return f, filename, nil
}

// TNAHeaders TNA 表头：基础列 + 每个审批关卡
func TNAHeaders() []string {
	headers := []string{"PO Number", "UID", "Customer", "Style", "Color Code", "CAD Code", "Line Status",
		"Submission Date", "Approval Date", "ETD", "ETA"}
	for _, t := range entity.ApprovalTypes {
		headers = append(headers, HumanizeKey(t))
	}
	return headers
}

// ExportTNA 导出 Time & Action 表，每行一条订单行
func (s *ExportService) ExportTNA(ctx context.Context, actor Actor, filters map[string]string) (*excelize.File, string, error) {
	orders, err := s.repos.Order.FindAllUnpaged(ctx, actor.Scope(filters))
	if err != nil {
		return nil, "", fmt.Errorf("find orders: %w", err)
	}

	const sheet = "TNA"
	headers := TNAHeaders()
	widths := make([]float64, len(headers))
	for i := range widths {
		widths[i] = 14
	}
	f, err := newSheet(sheet, headers, widths)
	if err != nil {
		return nil, "", err
	}

	approvedStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#C6EFCE"}},
	})
	rejectedStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFC7CE"}},
	})
	gateOffset := len(headers) - len(entity.ApprovalTypes)

	row := 2
	for i := range orders {
		o := &orders[i]
		for _, st := range o.Styles {
			for _, l := range st.Lines {
				etd, eta := l.ETD, l.ETA
				if etd == nil {
					etd = o.ETD
				}
				if eta == nil {
					eta = o.ETA
				}
				submission := l.SubmissionDate
				if submission == nil {
					submission = st.SubmissionDate
				}
				values := []interface{}{o.OrderNumber, o.UID, o.CustomerName, st.StyleNumber,
					deref(l.ColorCode), deref(l.CADCode), l.Status,
					dateCell(submission), dateCell(l.ApprovalDate), dateCell(etd), dateCell(eta)}
				for _, t := range entity.ApprovalTypes {
					values = append(values, HumanizeKey(l.ApprovalStatus[t]))
				}
				setRow(f, sheet, row, values)

				for j, t := range entity.ApprovalTypes {
					var style int
					switch l.ApprovalStatus[t] {
					case entity.ApprovalStatusApproved:
						style = approvedStyle
					case entity.ApprovalStatusRejected:
						style = rejectedStyle
					default:
						continue
					}
					cell, _ := excelize.CoordinatesToCellName(gateOffset+j+1, row)
					f.SetCellStyle(sheet, cell, cell, style)
				}
				row++
			}
		}
	}

	filename := fmt.Sprintf("tna_%s.xlsx", s.now().Format("20060102"))
	return f, filename, nil
}

// RenderPO 生成订单 PO 的 PDF
func (s *ExportService) RenderPO(ctx context.Context, actor Actor, orderID string) ([]byte, string, error) {
	order, err := loadVisibleOrder(ctx, s.repos, actor, orderID, false)
	if err != nil {
		return nil, "", err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("PO "+order.OrderNumber, true)
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Purchase Order "+order.OrderNumber), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s  |  %s", order.UID, s.now().Format("2006-01-02"))), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	field := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(value), "", 1, "L", false, 0, "")
	}
	field("Customer", order.CustomerName)
	field("Buyer", order.BuyerName)
	field("Fabric", strings.TrimSpace(order.FabricType+" "+order.Composition))
	field("Stage", order.CurrentStage)
	field("Order Type", titleCase(order.OrderType))
	field("Quantity", fmt.Sprintf("%.2f %s", order.Quantity, order.Unit))
	field("ETD", dateCell(EffectiveETD(order)))
	field("ETA", dateCell(EffectiveETA(order)))
	if order.Merchandiser != nil {
		field("Merchandiser", order.Merchandiser.FullName)
	}
	pdf.Ln(4)

	cols := []struct {
		title string
		width float64
	}{
		{"Style", 28}, {"Color", 30}, {"CAD", 24}, {"Qty", 22}, {"Unit", 16}, {"Price", 24}, {"ETD", 24}, {"Status", 18},
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(217, 225, 242)
	for _, c := range cols {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	total := 0.0
	for _, st := range order.Styles {
		for _, l := range st.Lines {
			color := deref(l.ColorCode)
			if l.ColorName != "" {
				color = strings.TrimSpace(color + " " + l.ColorName)
			}
			price := ""
			if l.ProvaPrice.Valid {
				price = l.ProvaPrice.Decimal.StringFixed(2)
			}
			etd := l.ETD
			if etd == nil {
				etd = st.ETD
			}
			cells := []string{st.StyleNumber, color, deref(l.CADCode), fmt.Sprintf("%.2f", l.Quantity), l.Unit, price, dateCell(etd), HumanizeKey(l.Status)}
			for i, c := range cols {
				align := "L"
				if i == 3 || i == 5 {
					align = "R"
				}
				pdf.CellFormat(c.width, 6, tr(cells[i]), "1", 0, align, false, 0, "")
			}
			pdf.Ln(-1)
			total += l.Quantity
		}
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(cols[0].width+cols[1].width+cols[2].width, 7, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(cols[3].width, 7, fmt.Sprintf("%.2f", total), "1", 1, "R", false, 0, "")

	if order.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, tr("Notes: "+order.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("render pdf: %w", err)
	}
	filename := fmt.Sprintf("PO_%s.pdf", safeFileName(order.OrderNumber))
	return buf.Bytes(), filename, nil
}

// safeFileName 仅保留字母数字和 -_.
func safeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "order"
	}
	return b.String()
}
