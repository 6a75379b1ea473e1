package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"grievance/internal/grievance"
)

func (app *App) getAuditByComplaint(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	events, err := app.Audit.ByEntity(r.Context(), "COMPLAINT", strconv.FormatInt(id, 10))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (app *App) getAuditRecent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	events, err := app.Audit.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (app *App) getAuditByAction(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	events, err := app.Audit.ByAction(r.Context(), grievance.AuditAction(action))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (app *App) getAuditByActor(w http.ResponseWriter, r *http.Request) {
	actorID, err := pathInt64(r, "actorId")
	if err != nil {
		writeError(w, err)
		return
	}
	events, err := app.Audit.ByActor(r.Context(), actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
