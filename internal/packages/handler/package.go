package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"classbook/internal/packages/service"
	httputil "classbook/pkg/http"
	"classbook/pkg/logger"
	"classbook/pkg/model"
)

type PackageHandler struct {
	service service.PackageService
	log     *logger.Logger
}

func NewPackageHandler(service service.PackageService, log *logger.Logger) *PackageHandler {
	return &PackageHandler{
		service: service,
		log:     log,
	}
}

func (h *PackageHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var pkg model.Package
	if err := json.NewDecoder(r.Body).Decode(&pkg); err != nil {
		h.writeBadRequest(w, "Create")
		return
	}

	if err := h.service.Create(r.Context(), &pkg); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, pkg); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *PackageHandler) ListAvailable(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	pkgs, err := h.service.ListAvailable(r.Context(), ps.ByName("country"))
	if err != nil {
		h.writeError(w, "ListAvailable", err)
		return
	}

	if err := httputil.WriteSuccess(w, pkgs); err != nil {
		h.log.Error("failed to write success response", "handler", "ListAvailable", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PackageHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := httputil.UserID(r)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	ups, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WriteSuccess(w, ups); err != nil {
		h.log.Error("failed to write success response", "handler", "ListMine", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PackageHandler) Purchase(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, err := httputil.UserID(r)
	if err != nil {
		h.writeError(w, "Purchase", err)
		return
	}

	var req model.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "Purchase")
		return
	}

	up, err := h.service.Purchase(r.Context(), userID, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Purchase", err)
		return
	}

	if err := httputil.WriteCreated(w, up); err != nil {
		h.log.Error("failed to write created response", "handler", "Purchase", "operation", "WriteCreated", "error", err)
	}
}

func (h *PackageHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *PackageHandler) writeBadRequest(w http.ResponseWriter, handler string) {
	if writeErr := httputil.WriteBadRequest(w, "Invalid request body"); writeErr != nil {
		h.log.Error("failed to write JSON response", "handler", handler, "operation", "WriteBadRequest", "error", writeErr)
	}
}

func (h *PackageHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/packages", h.Create)
	router.GET("/api/v1/packages/country/:country", h.ListAvailable)
	router.GET("/api/v1/packages/mine", h.ListMine)
	router.POST("/api/v1/packages/id/:id/purchase", h.Purchase)
}
