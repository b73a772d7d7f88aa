package handlers

import (
	"net/http"

	"setka/internal/domain"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

type aspectInfo struct {
	Ratio       domain.AspectRatio `json:"ratio"`
	Resolutions []string           `json:"resolutions"`
}

// Models lists the registered providers with their capabilities.
func (a *App) Models(w http.ResponseWriter, r *http.Request) {
	aspects := make([]aspectInfo, 0, len(domain.AllAspectRatios))
	for _, ar := range domain.AllAspectRatios {
		aspects = append(aspects, aspectInfo{Ratio: ar, Resolutions: ar.Resolutions()})
	}
	a.json(w, http.StatusOK, map[string]any{
		"models":        a.Providers.Catalog(),
		"aspect_ratios": aspects,
	})
}
