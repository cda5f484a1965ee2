package owners

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tenant-validation/internal/shared/server/respond"
)

type Handler struct {
	Dir Directory
}

func NewHandler(dir Directory) *Handler {
	return &Handler{Dir: dir}
}

// RegisterRoutes attaches owner routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/owners/:ownerId", h.get)
	rg.PUT("/owners/:ownerId", h.put)
}

type ownerRequest struct {
	GivenNames            string   `json:"givenNames"`
	PaternalSurname       string   `json:"paternalSurname"`
	MaternalSurname       string   `json:"maternalSurname"`
	CURP                  string   `json:"curp"`
	DeclaredMonthlyIncome *float64 `json:"declaredMonthlyIncome"`
	ExpectedDeposit       *float64 `json:"expectedDeposit"`
	IDType                string   `json:"idType"`
}

func (h *Handler) get(c *gin.Context) {
	owner, err := h.Dir.Get(c.Request.Context(), c.Param("ownerId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "propietario no encontrado")
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "error al consultar el propietario")
		return
	}
	respond.OK(c, owner)
}

func (h *Handler) put(c *gin.Context) {
	var req ownerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "cuerpo invalido")
		return
	}
	idType, ok := ParseIDType(strings.TrimSpace(req.IDType))
	if !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "idType invalido")
		return
	}
	owner := Owner{
		ID:                    strings.TrimSpace(c.Param("ownerId")),
		GivenNames:            strings.TrimSpace(req.GivenNames),
		PaternalSurname:       strings.TrimSpace(req.PaternalSurname),
		MaternalSurname:       strings.TrimSpace(req.MaternalSurname),
		CURP:                  strings.ToUpper(strings.TrimSpace(req.CURP)),
		DeclaredMonthlyIncome: req.DeclaredMonthlyIncome,
		ExpectedDeposit:       req.ExpectedDeposit,
		IDType:                idType,
	}
	if err := h.Dir.Upsert(c.Request.Context(), owner); err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "error al guardar el propietario")
		return
	}
	stored, err := h.Dir.Get(c.Request.Context(), owner.ID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "error al consultar el propietario")
		return
	}
	respond.OK(c, stored)
}
