package api

import (
	"net/http"

	"grievance/internal/actor"
	"grievance/internal/grievance"
)

func (app *App) getEscalationsOverdue(w http.ResponseWriter, r *http.Request) {
	overdue, err := app.Scheduler.Overdue(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overdue)
}

func (app *App) getEscalationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := app.Scheduler.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// postEscalationTrigger runs one sweep synchronously and returns once it
// completes, for an admin who wants to force a sweep outside the cron
// cadence rather than wait for it.
func (app *App) postEscalationTrigger(w http.ResponseWriter, r *http.Request) {
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	switch a.Role {
	case actor.RoleAdmin, actor.RoleSuperAdmin, actor.RoleMunicipalCommissioner:
	default:
		writeError(w, grievance.NewError(grievance.KindUnauthorized, "only an admin may trigger a sweep", "role="+string(a.Role)))
		return
	}
	app.Scheduler.TriggerSweep(r.Context())
	writeNoContent(w)
}
