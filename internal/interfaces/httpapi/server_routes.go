package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	guard := func(fn http.HandlerFunc) http.Handler {
		return RequireInternalJobToken(internalJobToken, fn)
	}

	mux.Handle("POST /v1/internal/jobs/sync", guard(handler.RunSyncJob))
	mux.Handle("POST /v1/internal/jobs/competitions/{competitionID}/recalculate", guard(handler.RecalculateCompetitionJob))
	mux.Handle("GET /v1/internal/competitions/{competitionID}/duplicates", guard(handler.GetDuplicateReport))
}
