package validation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tenant-validation/internal/shared/server/middleware"
	"tenant-validation/internal/shared/server/respond"
)

const maxPayloadSize = 1 << 20

// Handler exposes validation runs over HTTP.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches validation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/owners/:ownerId/validations/run", h.runAll)
	rg.POST("/owners/:ownerId/validations/enqueue", h.enqueue)
	rg.GET("/owners/:ownerId/validations/status", h.status)
	rg.POST("/owners/:ownerId/validations/resumen_full", h.resummarizeOwner)
	rg.POST("/owners/:ownerId/validations/:category/run", h.run)
	rg.POST("/owners/:ownerId/validations/:category", h.record)
	rg.POST("/validations/resumen_full", h.resummarizeAll)
}

// Proceso is the per-category response body.
type Proceso struct {
	Proceso string          `json:"proceso"`
	Resumen string          `json:"resumen"`
	Estado  string          `json:"estado"`
	Payload json.RawMessage `json:"payload"`
}

func proceso(rec Record) Proceso {
	return Proceso{
		Proceso: string(rec.Category),
		Resumen: rec.Summary,
		Estado:  rec.Verdict.String(),
		Payload: rec.Payload,
	}
}

func (h *Handler) run(c *gin.Context) {
	category, err := ParseCategory(c.Param("category"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	rec, err := h.Svc.Run(ctx, middleware.ActorFromContext(c), c.Param("ownerId"), category)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, proceso(rec))
}

func (h *Handler) record(c *gin.Context) {
	category, err := ParseCategory(c.Param("category"))
	if err != nil {
		h.fail(c, err)
		return
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadSize))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read body")
		return
	}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	rec, err := h.Svc.Record(ctx, middleware.ActorFromContext(c), c.Param("ownerId"), category, raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, proceso(rec))
}

func (h *Handler) runAll(c *gin.Context) {
	only, err := ParseCategories(c.Query("only"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ownerID := c.Param("ownerId")
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	records, err := h.Svc.RunCategories(ctx, middleware.ActorFromContext(c), ownerID, only)
	if err != nil {
		h.fail(c, err)
		return
	}
	procesos := make([]Proceso, 0, len(records))
	for _, rec := range records {
		procesos = append(procesos, proceso(rec))
	}
	status, err := h.Svc.Status(ctx, ownerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{"procesos": procesos, "estado": status.Estado, "resumen": status.Resumen})
}

func (h *Handler) enqueue(c *gin.Context) {
	only, err := ParseCategories(c.Query("only"))
	if err != nil {
		h.fail(c, err)
		return
	}
	requestID := middleware.RequestIDFromContext(c)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	id, err := h.Svc.Enqueue(c.Request.Context(), middleware.ActorFromContext(c), c.Param("ownerId"), requestID, only)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.JSON(c, http.StatusAccepted, gin.H{"ok": true, "requestId": id})
}

func (h *Handler) status(c *gin.Context) {
	status, err := h.Svc.Status(c.Request.Context(), c.Param("ownerId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, status)
}

func (h *Handler) resummarizeOwner(c *gin.Context) {
	h.resummarize(c, c.Param("ownerId"))
}

func (h *Handler) resummarizeAll(c *gin.Context) {
	h.resummarize(c, "")
}

func (h *Handler) resummarize(c *gin.Context, ownerID string) {
	only, err := ParseCategories(c.Query("only"))
	if err != nil {
		h.fail(c, err)
		return
	}
	opts := ResummarizeOptions{OwnerID: ownerID, Only: only, DryRun: isTruthy(c.Query("dry"))}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	report, err := h.Svc.Resummarize(ctx, middleware.ActorFromContext(c), opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, report)
}

func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "si", "sí":
		return true
	}
	return false
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnknownCategory), errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrNotAutomatic), errors.Is(err, ErrNotManual):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, ErrOwnerNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "propietario no encontrado")
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "validación no encontrada")
	case errors.Is(err, ErrQueueUnavailable):
		respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "cola de validación no configurada")
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "error al procesar la validación")
	}
}
