package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"grievance/internal/audit"
	"grievance/internal/complaint"
	"grievance/internal/duplicate"
	"grievance/internal/escalation"
	"grievance/internal/external"
	"grievance/internal/httpauth"
	"grievance/internal/intake"
	"grievance/internal/policy"
	"grievance/internal/proof"
)

// App bundles every internal/* component the HTTP surface dispatches to.
type App struct {
	Engine       *complaint.Engine
	Protocol     *proof.Protocol
	Resolver     *duplicate.Resolver
	Scheduler    *escalation.Scheduler
	Audit        *audit.Sink
	Orchestrator *intake.Orchestrator
	Policy       *policy.Policy
	Auth         *httpauth.Middleware
	Store        external.ObjectStore
	// Metrics serves GET /metrics for the registry main.go registered the
	// service's collectors against.
	Metrics http.Handler
}

// NewRouter registers every endpoint under /api/v1. All routes require the
// verified actor context supplied by httpauth.Middleware; /metrics sits
// outside the prefix and outside auth, for the scraper.
func NewRouter(app *App) *mux.Router {
	top := mux.NewRouter()
	if app.Metrics != nil {
		top.Handle("/metrics", app.Metrics).Methods(http.MethodGet)
	}

	r := top.PathPrefix("/api/v1").Subrouter()
	r.Use(app.Auth.Require)

	r.HandleFunc("/complaints/citizen/{citizenId}", app.submitComplaintJSON).Methods(http.MethodPost)
	r.HandleFunc("/complaints/citizen/{citizenId}/with-image", app.submitComplaintMultipart).Methods(http.MethodPost)
	r.HandleFunc("/complaints/{id}", app.getComplaint).Methods(http.MethodGet)
	r.HandleFunc("/complaints/{id}/details", app.getComplaintDetails).Methods(http.MethodGet)
	r.HandleFunc("/complaints/{id}/state", app.putTargetState).Methods(http.MethodPut)
	r.HandleFunc("/complaints/{id}/start", app.putStart).Methods(http.MethodPut)
	r.HandleFunc("/complaints/{id}/resolve", app.putResolve).Methods(http.MethodPut)
	r.HandleFunc("/complaints/{id}/close", app.putClose).Methods(http.MethodPut)
	r.HandleFunc("/complaints/{id}/cancel", app.putCancel).Methods(http.MethodPut)
	r.HandleFunc("/complaints/{id}/rate", app.putRate).Methods(http.MethodPut)
	r.HandleFunc("/complaints/{id}/assign-department", app.putAssignDepartment).Methods(http.MethodPut)
	r.HandleFunc("/complaints/{id}/assign-staff/{staffId}", app.putAssignStaff).Methods(http.MethodPut)
	r.HandleFunc("/complaints/{id}/allowed-transitions", app.getAllowedTransitions).Methods(http.MethodGet)

	r.HandleFunc("/complaints/{id}/resolution-proof", app.postResolutionProof).Methods(http.MethodPost)
	r.HandleFunc("/complaints/{id}/resolution-proofs", app.getResolutionProofs).Methods(http.MethodGet)
	r.HandleFunc("/complaints/{id}/signoff", app.postSignoff).Methods(http.MethodPost)
	r.HandleFunc("/complaints/{id}/dispute/{signoffId}/approve", app.postApproveDispute).Methods(http.MethodPost)
	r.HandleFunc("/complaints/{id}/dispute/{signoffId}/reject", app.postRejectDispute).Methods(http.MethodPost)

	r.HandleFunc("/community/complaints/{id}/upvote", app.postUpvote).Methods(http.MethodPost)
	r.HandleFunc("/community/complaints/{id}/upvote", app.deleteUpvote).Methods(http.MethodDelete)
	r.HandleFunc("/community/complaints/nearby", app.getNearby).Methods(http.MethodGet)
	r.HandleFunc("/community/complaints/trending", app.getTrending).Methods(http.MethodGet)
	r.HandleFunc("/complaints/check-duplicates", app.postCheckDuplicates).Methods(http.MethodPost)

	r.HandleFunc("/escalations/overdue", app.getEscalationsOverdue).Methods(http.MethodGet)
	r.HandleFunc("/escalations/stats", app.getEscalationStats).Methods(http.MethodGet)
	r.HandleFunc("/escalations/trigger", app.postEscalationTrigger).Methods(http.MethodPost)

	r.HandleFunc("/audit/complaint/{id}", app.getAuditByComplaint).Methods(http.MethodGet)
	r.HandleFunc("/audit/recent", app.getAuditRecent).Methods(http.MethodGet)
	r.HandleFunc("/audit/action/{action}", app.getAuditByAction).Methods(http.MethodGet)
	r.HandleFunc("/audit/actor/{actorId}", app.getAuditByActor).Methods(http.MethodGet)

	return top
}
