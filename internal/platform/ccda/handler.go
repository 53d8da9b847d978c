package ccda

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Handler provides HTTP endpoints for document generation, parsing and
// reconciliation.
type Handler struct {
	svc *Service
	log zerolog.Logger
}

// NewHandler creates a new clinical document handler.
func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes registers the document endpoints on the provided route group.
//
//	GET  /patients/:id/ccd                                       - continuity of care document
//	POST /patients/:id/referral-note                             - referral note from JSON details
//	GET  /patients/:id/encounters/:encounterId/discharge-summary - discharge summary
//	GET  /patients/:id/encounters/:encounterId/transfer-summary  - transfer summary
//	POST /ccda/parse                                             - parse a received document
//	POST /patients/:id/ccda/reconcile                            - reconcile a received document
//
// chart middleware wraps only the routes that read the patient's chart.
func (h *Handler) RegisterRoutes(g *echo.Group, chart ...echo.MiddlewareFunc) {
	g.GET("/patients/:id/ccd", h.GenerateCCD, chart...)
	g.POST("/patients/:id/referral-note", h.GenerateReferralNote, chart...)
	g.GET("/patients/:id/encounters/:encounterId/discharge-summary", h.GenerateDischargeSummary, chart...)
	g.GET("/patients/:id/encounters/:encounterId/transfer-summary", h.GenerateTransferSummary, chart...)
	g.POST("/ccda/parse", h.ParseCCDA)
	g.POST("/patients/:id/ccda/reconcile", h.Reconcile, chart...)
}

// GenerateCCD handles GET /patients/:id/ccd.
func (h *Handler) GenerateCCD(c echo.Context) error {
	patientID := c.Param("id")
	if patientID == "" {
		return badRequest(c, "patient ID is required")
	}
	out, err := h.svc.GenerateContinuityDocument(c.Request().Context(), patientID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Blob(http.StatusOK, "application/xml", out)
}

// GenerateReferralNote handles POST /patients/:id/referral-note.
func (h *Handler) GenerateReferralNote(c echo.Context) error {
	patientID := c.Param("id")
	if patientID == "" {
		return badRequest(c, "patient ID is required")
	}
	var details ReferralDetails
	if err := c.Bind(&details); err != nil {
		return badRequest(c, "invalid referral details")
	}
	out, err := h.svc.GenerateReferralNote(c.Request().Context(), patientID, details)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Blob(http.StatusOK, "application/xml", out)
}

// GenerateDischargeSummary handles GET /patients/:id/encounters/:encounterId/discharge-summary.
func (h *Handler) GenerateDischargeSummary(c echo.Context) error {
	patientID, encounterID := c.Param("id"), c.Param("encounterId")
	if patientID == "" || encounterID == "" {
		return badRequest(c, "patient ID and encounter ID are required")
	}
	out, err := h.svc.GenerateDischargeSummary(c.Request().Context(), patientID, encounterID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Blob(http.StatusOK, "application/xml", out)
}

// GenerateTransferSummary handles GET /patients/:id/encounters/:encounterId/transfer-summary.
func (h *Handler) GenerateTransferSummary(c echo.Context) error {
	patientID, encounterID := c.Param("id"), c.Param("encounterId")
	if patientID == "" || encounterID == "" {
		return badRequest(c, "patient ID and encounter ID are required")
	}
	out, err := h.svc.GenerateTransferSummary(c.Request().Context(), patientID, encounterID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Blob(http.StatusOK, "application/xml", out)
}

// ParseCCDA handles POST /ccda/parse.
// It accepts an XML body and returns the parsed document as JSON.
func (h *Handler) ParseCCDA(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return readFailure(c, err)
	}
	doc, err := h.svc.ParseDocument(c.Request().Context(), body)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// Reconcile handles POST /patients/:id/ccda/reconcile.
// An unknown patient is a 404 before the XML body is parsed.
func (h *Handler) Reconcile(c echo.Context) error {
	patientID := c.Param("id")
	if patientID == "" {
		return badRequest(c, "patient ID is required")
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return readFailure(c, err)
	}
	res, err := h.svc.ReconcileDocument(c.Request().Context(), patientID, body)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// fail maps a service error to its HTTP status.
func (h *Handler) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrValidation):
		status = http.StatusBadRequest
	default:
		h.log.Error().Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("clinical document request failed")
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

// readFailure answers 413 when a body limit rejected the read and 400 for
// any other read failure.
func readFailure(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
	}
	return badRequest(c, "failed to read request body")
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}
