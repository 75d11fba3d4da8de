// Package server provides HTTP handlers and server setup for the shipping service.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"shipping/internal/auditlog"
	"shipping/internal/core"
)

// Handler holds the HTTP handlers
type Handler struct {
	service     core.ShippingService
	auditReader auditlog.Reader
}

// NewHandler creates a new handler backed by the shipping service.
// auditReader may be nil when audit logging is disabled.
func NewHandler(service core.ShippingService, auditReader auditlog.Reader) *Handler {
	return &Handler{
		service:     service,
		auditReader: auditReader,
	}
}

// GetQuote handles GET /get-quote
//
// @Summary      Get a shipping quote
// @Description  Returns the quote as a plain decimal string, e.g. 5.99
// @Tags         shipping
// @Produce      plain
// @Security     BearerAuth
// @Param        items  query     int  false  "Number of items to ship (default 0)"
// @Success      200    {string}  string  "5.99"
// @Failure      400    {object}  core.ShippingError
// @Failure      502    {object}  core.ShippingError
// @Failure      503    {object}  core.ShippingError
// @Router       /get-quote [get]
func (h *Handler) GetQuote(c echo.Context) error {
	items := 0
	if raw := c.QueryParam("items"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return handleError(c, core.NewInvalidRequestError("items must be a non-negative integer", err))
		}
		items = n
	}

	quote, err := h.service.GetQuote(c.Request().Context(), items)
	if err != nil {
		return handleError(c, err)
	}

	auditlog.EnrichEntryWithQuote(c, items, quote.String())
	return c.String(http.StatusOK, quote.String())
}

// PostQuote handles POST /get-quote
//
// @Summary      Get a shipping quote for a cart
// @Description  Quotes the sum of item quantities and returns the cost as Money
// @Tags         shipping
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      core.QuoteRequest  true  "Address and cart items"
// @Success      200      {object}  core.QuoteResponse
// @Failure      400      {object}  core.ShippingError
// @Failure      502      {object}  core.ShippingError
// @Failure      503      {object}  core.ShippingError
// @Router       /get-quote [post]
func (h *Handler) PostQuote(c echo.Context) error {
	var req core.QuoteRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body", err))
	}

	items, err := req.ItemCount()
	if err != nil {
		return handleError(c, core.NewInvalidRequestError(err.Error(), err))
	}
	quote, err := h.service.GetQuote(c.Request().Context(), items)
	if err != nil {
		return handleError(c, err)
	}

	auditlog.EnrichEntryWithQuote(c, items, quote.String())
	return c.JSON(http.StatusOK, core.QuoteResponse{CostUSD: quote.Money()})
}

// ShipOrder handles POST /ship-order
//
// @Summary      Ship an order
// @Tags         shipping
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        order  body      core.Order  true  "Destination address and cart items"
// @Success      200    {object}  core.ShipmentConfirmation
// @Failure      400    {object}  core.ShippingError
// @Router       /ship-order [post]
func (h *Handler) ShipOrder(c echo.Context) error {
	var order core.Order
	if err := c.Bind(&order); err != nil {
		return handleError(c, core.NewInvalidOrderPayloadError("invalid order payload", err))
	}

	confirmation, err := h.service.ShipOrder(c.Request().Context(), &order)
	if err != nil {
		return handleError(c, err)
	}

	auditlog.EnrichEntryWithShipment(c, confirmation.TrackingID, len(order.Items))
	return c.JSON(http.StatusOK, confirmation)
}

// Health handles GET /health
//
// @Summary      Liveness probe
// @Tags         system
// @Produce      json
// @Success      200  {object}  core.HealthResponse
// @Router       /health [get]
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, core.HealthResponse{Status: "ok"})
}

// ListAuditLogs handles GET /admin/audit-logs
//
// @Summary      List audit log entries
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        operation    query     string  false  "get_quote or ship_order"
// @Param        error_type   query     string  false  "Error type"
// @Param        request_id   query     string  false  "Request ID"
// @Param        tracking_id  query     string  false  "Tracking ID"
// @Param        status_code  query     int     false  "HTTP status code"
// @Param        since        query     string  false  "RFC 3339 lower bound (inclusive)"
// @Param        until        query     string  false  "RFC 3339 upper bound (exclusive)"
// @Param        limit        query     int     false  "Page size (default 25, max 100)"
// @Param        offset       query     int     false  "Page offset"
// @Success      200  {object}  auditlog.LogListResult
// @Failure      400  {object}  core.ShippingError
// @Failure      401  {object}  core.ShippingError
// @Failure      404  {object}  core.ShippingError
// @Router       /admin/audit-logs [get]
func (h *Handler) ListAuditLogs(c echo.Context) error {
	if h.auditReader == nil {
		return auditDisabled(c)
	}

	params, err := parseLogQueryParams(c)
	if err != nil {
		return handleError(c, err)
	}

	result, err := h.auditReader.GetLogs(c.Request().Context(), params)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetAuditLog handles GET /admin/audit-logs/:id
//
// @Summary      Get one audit log entry
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Entry ID"
// @Success      200  {object}  auditlog.LogEntry
// @Failure      401  {object}  core.ShippingError
// @Failure      404  {object}  core.ShippingError
// @Router       /admin/audit-logs/{id} [get]
func (h *Handler) GetAuditLog(c echo.Context) error {
	if h.auditReader == nil {
		return auditDisabled(c)
	}

	entry, err := h.auditReader.GetLogByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	if entry == nil {
		return notFound(c, "audit log entry not found")
	}
	return c.JSON(http.StatusOK, entry)
}

func parseLogQueryParams(c echo.Context) (auditlog.LogQueryParams, error) {
	params := auditlog.LogQueryParams{
		Operation:  c.QueryParam("operation"),
		ErrorType:  c.QueryParam("error_type"),
		RequestID:  c.QueryParam("request_id"),
		TrackingID: c.QueryParam("tracking_id"),
	}

	if raw := c.QueryParam("status_code"); raw != "" {
		code, err := strconv.Atoi(raw)
		if err != nil {
			return params, core.NewInvalidRequestError("status_code must be an integer", err)
		}
		params.StatusCode = &code
	}

	for _, tp := range []struct {
		name string
		dst  *time.Time
	}{{"since", &params.Since}, {"until", &params.Until}} {
		raw := c.QueryParam(tp.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, core.NewInvalidRequestError(tp.name+" must be an RFC 3339 timestamp", err)
		}
		*tp.dst = t
	}

	for _, ip := range []struct {
		name string
		dst  *int
	}{{"limit", &params.Limit}, {"offset", &params.Offset}} {
		raw := c.QueryParam(ip.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return params, core.NewInvalidRequestError(ip.name+" must be a non-negative integer", err)
		}
		*ip.dst = n
	}

	return params, nil
}

func auditDisabled(c echo.Context) error {
	return notFound(c, "audit logging is disabled")
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "not_found_error",
			"message": message,
		},
	})
}

// handleError converts shipping errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var shippingErr *core.ShippingError
	if errors.As(err, &shippingErr) {
		auditlog.EnrichEntryWithError(c, string(shippingErr.Type), shippingErr.Message)
		if shippingErr.HTTPStatusCode() >= http.StatusInternalServerError {
			slog.Warn("request failed",
				"path", c.Path(),
				"error_type", shippingErr.Type,
				"error", shippingErr,
				"request_id", core.GetRequestID(c.Request().Context()),
			)
		}
		return c.JSON(shippingErr.HTTPStatusCode(), shippingErr.ToJSON())
	}

	slog.Error("unexpected error", "path", c.Path(), "error", err)
	auditlog.EnrichEntryWithError(c, "internal_error", "an unexpected error occurred")
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
