package config

import (
	"net/http"

	"rental_valuation/pkg/api/response"
)

type Response struct {
	MockEnabled     bool     `json:"mockEnabled"`
	RegistryEnabled bool     `json:"registryEnabled"`
	ModelEnabled    bool     `json:"modelEnabled"`
	Models          []string `json:"models"`
	RegistryKeySet  bool     `json:"registryKeySet"`
	ModelKeySet     bool     `json:"modelKeySet"`
}

// Handler holds the deployment view reported by GET /config. It never
// exposes credential values, only whether they are set.
type Handler struct {
	view Response
}

// NewHandler creates a new config handler
func NewHandler(view Response) *Handler {
	if view.Models == nil {
		view.Models = []string{}
	}
	return &Handler{view: view}
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if response.Preflight(w, r, "GET") || !response.Allow(w, r, http.MethodGet) {
		return
	}
	response.JSON(w, http.StatusOK, h.view)
}
