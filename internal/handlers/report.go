package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/barbershop/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves financial reports.
type ReportHandler struct {
	reports  *services.ReportService
	location *time.Location
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *services.ReportService, loc *time.Location) *ReportHandler {
	return &ReportHandler{reports: reports, location: loc}
}

// Financial returns the report for ?from=YYYY-MM-DD&to=YYYY-MM-DD, the last
// 30 days by default.
func (h *ReportHandler) Financial(c *fiber.Ctx) error {
	from, to, err := parseDateRange(c, h.location, 30)
	if err != nil {
		return err
	}

	report, err := h.reports.Financial(c.UserContext(), from, to)
	if err != nil {
		return err
	}
	return ok(c, report)
}

// ExportFinancial sends the same report as an .xlsx download.
func (h *ReportHandler) ExportFinancial(c *fiber.Ctx) error {
	from, to, err := parseDateRange(c, h.location, 30)
	if err != nil {
		return err
	}

	report, err := h.reports.Financial(c.UserContext(), from, to)
	if err != nil {
		return err
	}

	data, err := h.reports.ExportXLSX(report)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("financial-report-%s-%s.xlsx",
		from.In(h.location).Format("20060102"),
		to.In(h.location).AddDate(0, 0, -1).Format("20060102"))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(data)
}
