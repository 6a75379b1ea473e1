package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"grievance/internal/grievance"
	"grievance/internal/intake"
	"grievance/internal/policy"
)

// submitComplaintRequest is the JSON body for POST /complaints/citizen/{citizenId}.
type submitComplaintRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Location        string   `json:"location"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	ConsentToUpvote bool     `json:"consent_to_upvote,omitempty"`
}

func (app *App) submitComplaintJSON(w http.ResponseWriter, r *http.Request) {
	citizenID, err := pathInt64(r, "citizenId")
	if err != nil {
		writeError(w, err)
		return
	}
	var body submitComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, grievance.NewError(grievance.KindValidation, "malformed JSON body", err.Error()))
		return
	}

	result, err := app.Orchestrator.Submit(r.Context(), intake.Request{
		CitizenID:       citizenID,
		Title:           body.Title,
		Description:     body.Description,
		Location:        body.Location,
		Latitude:        body.Latitude,
		Longitude:       body.Longitude,
		ConsentToUpvote: body.ConsentToUpvote,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// submitComplaintMultipart accepts the multipart form variant: title,
// description, location, latitude?, longitude?, image?.
func (app *App) submitComplaintMultipart(w http.ResponseWriter, r *http.Request) {
	citizenID, err := pathInt64(r, "citizenId")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, grievance.NewError(grievance.KindValidation, "malformed multipart form", err.Error()))
		return
	}

	req := intake.Request{
		CitizenID:       citizenID,
		Title:           r.FormValue("title"),
		Description:     r.FormValue("description"),
		Location:        r.FormValue("location"),
		ConsentToUpvote: r.FormValue("consent_to_upvote") == "true",
	}
	if lat := r.FormValue("latitude"); lat != "" {
		if v, perr := strconv.ParseFloat(lat, 64); perr == nil {
			req.Latitude = &v
		}
	}
	if lng := r.FormValue("longitude"); lng != "" {
		if v, perr := strconv.ParseFloat(lng, 64); perr == nil {
			req.Longitude = &v
		}
	}
	if file, header, ferr := r.FormFile("image"); ferr == nil {
		defer file.Close()
		data, rerr := io.ReadAll(file)
		if rerr == nil {
			req.ImageBytes = data
			req.ImageMIME = header.Header.Get("Content-Type")
		}
	}

	result, err := app.Orchestrator.Submit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (app *App) getComplaint(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := app.Engine.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// complaintDetails bundles the complaint with its proofs and audit trail,
// the single-call read the citizen detail view needs.
type complaintDetails struct {
	Complaint *grievance.Complaint       `json:"complaint"`
	Proofs    []grievance.ResolutionProof `json:"proofs"`
	Audit     []grievance.AuditEvent     `json:"audit"`
}

func (app *App) getComplaintDetails(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := app.Engine.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	proofs, err := app.Protocol.Proofs(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	events, err := app.Audit.ByEntity(r.Context(), "COMPLAINT", strconv.FormatInt(id, 10))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, complaintDetails{Complaint: c, Proofs: proofs, Audit: events})
}

type targetStateRequest struct {
	TargetState grievance.Status `json:"targetState"`
}

func (app *App) putTargetState(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body targetStateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, grievance.NewError(grievance.KindValidation, "malformed JSON body", err.Error()))
		return
	}
	c, err := app.Engine.Transition(r.Context(), id, body.TargetState, a, "manual transition request")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (app *App) putStart(w http.ResponseWriter, r *http.Request) {
	app.transitionTo(w, r, grievance.StatusInProgress, "manual start")
}

func (app *App) putClose(w http.ResponseWriter, r *http.Request) {
	app.transitionTo(w, r, grievance.StatusClosed, "manual close")
}

func (app *App) putCancel(w http.ResponseWriter, r *http.Request) {
	app.transitionTo(w, r, grievance.StatusCancelled, "citizen/admin cancellation")
}

func (app *App) transitionTo(w http.ResponseWriter, r *http.Request, target grievance.Status, reason string) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	c, err := app.Engine.Transition(r.Context(), id, target, a, reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// putResolve goes through the proof protocol, not a bare transition, since
// it gates on the proof precondition.
func (app *App) putResolve(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	c, err := app.Protocol.Resolve(r.Context(), id, a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type rateRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}

func (app *App) putRate(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body rateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, grievance.NewError(grievance.KindValidation, "malformed JSON body", err.Error()))
		return
	}
	c, err := app.Engine.RecordRating(r.Context(), id, body.Rating, body.Feedback, a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type assignDepartmentRequest struct {
	DepartmentID int64  `json:"departmentId"`
	Reason       string `json:"reason,omitempty"`
}

func (app *App) putAssignDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body assignDepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, grievance.NewError(grievance.KindValidation, "malformed JSON body", err.Error()))
		return
	}
	c, err := app.Engine.ManualRoute(r.Context(), id, body.DepartmentID, a, body.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (app *App) putAssignStaff(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	staffID, err := pathInt64(r, "staffId")
	if err != nil {
		writeError(w, err)
		return
	}
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	c, err := app.Engine.AssignStaff(r.Context(), id, staffID, a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (app *App) getAllowedTransitions(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	c, err := app.Engine.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	hasProof, err := app.Protocol.HasProof(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	subj := policy.SubjectFromComplaint(c, hasProof)
	allowed := app.Policy.AllowedTransitions(a, c.Status, subj)
	writeJSON(w, http.StatusOK, allowed)
}
