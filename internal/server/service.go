// Package server exposes the processing pipeline over HTTP: upload a PDF,
// get back the combined document record, and turn records into spreadsheet
// downloads.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/wvf-labs/docparse/internal/common"
	"github.com/wvf-labs/docparse/internal/document"
	"github.com/wvf-labs/docparse/internal/export"
	"github.com/wvf-labs/docparse/internal/pipeline"
)

type Service struct {
	processor *pipeline.Processor
	exporter  *export.Adapter
	logger    *slog.Logger
}

func NewService(processor *pipeline.Processor, exporter *export.Adapter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{processor: processor, exporter: exporter, logger: logger}
}

// RegisterRoutes mounts the service's handlers on the app.
func (s *Service) RegisterRoutes(app *fiber.App) {
	app.Get("/healthz", s.handleHealth)
	app.Post("/process", s.handleProcess)
	app.Post("/export", s.handleExport)
}

func (s *Service) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleProcess accepts a multipart PDF upload and returns the combined
// document record as JSON. The optional "mode" query parameter selects the
// aggregation shape (preserve-pages by default).
func (s *Service) handleProcess(c *fiber.Ctx) error {
	reqID := uuid.New().String()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "no file uploaded")
	}

	mode, err := document.ParseMode(c.Query("mode"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot read uploaded file")
	}
	defer file.Close()

	pdf, err := io.ReadAll(file)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot read uploaded file")
	}
	if err := common.ValidatePDFUpload(fileHeader.Filename, pdf, 0); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	s.logger.Info("server.process.start",
		"req_id", reqID,
		"filename", fileHeader.Filename,
		"bytes", fileHeader.Size,
		"mode", string(mode),
	)

	ctx := common.WithRequestID(c.Context(), reqID)
	doc, err := s.processor.Process(ctx, pdf, fileHeader.Filename, mode)
	if err != nil {
		s.logger.Error("server.process.failed", "req_id", reqID, "error", err)
		switch {
		case errors.Is(err, common.ErrExtraction):
			return fiber.NewError(fiber.StatusUnprocessableEntity, "failed to process PDF")
		case errors.Is(err, common.ErrNoPages):
			return fiber.NewError(fiber.StatusUnprocessableEntity, "no pages produced a record")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to process PDF")
	}

	return c.JSON(doc)
}

// handleExport takes a document record (as previously returned by /process,
// possibly hand-edited) and responds with an XLSX download. Export failures
// fail the whole operation; no partial workbook is written.
func (s *Service) handleExport(c *fiber.Ctx) error {
	reqID := uuid.New().String()

	var doc document.DocumentRecord
	if err := json.Unmarshal(c.Body(), &doc); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid document record")
	}

	out, err := s.exporter.Render(doc, export.FormatXLSX)
	if err != nil {
		s.logger.Error("server.export.failed", "req_id", reqID, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "export failed")
	}

	filename := export.OutputFilename("xlsx")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	return c.Send(out)
}
