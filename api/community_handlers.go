package api

import (
	"encoding/json"
	"net/http"

	"grievance/internal/grievance"
)

func (app *App) postUpvote(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	var lat, lng *float64
	if q := r.URL.Query().Get("latitude"); q != "" {
		v := queryFloat64(r, "latitude", 0)
		lat = &v
	}
	if q := r.URL.Query().Get("longitude"); q != "" {
		v := queryFloat64(r, "longitude", 0)
		lng = &v
	}
	count, err := app.Resolver.Upvote(r.Context(), id, a.UserID, lat, lng)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, upvoteResponse{ComplaintID: id, UpvoteCount: count})
}

func (app *App) deleteUpvote(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	count, err := app.Resolver.RemoveUpvote(r.Context(), id, a.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, upvoteResponse{ComplaintID: id, UpvoteCount: count})
}

type upvoteResponse struct {
	ComplaintID int64 `json:"complaintId"`
	UpvoteCount int   `json:"upvoteCount"`
}

func (app *App) getNearby(w http.ResponseWriter, r *http.Request) {
	lat := queryFloat64(r, "latitude", 0)
	lng := queryFloat64(r, "longitude", 0)
	radius := queryFloat64(r, "radiusMeters", 1000)
	limit := queryInt(r, "limit", 20)
	complaints, err := app.Resolver.Nearby(r.Context(), lat, lng, radius, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, complaints)
}

func (app *App) getTrending(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	complaints, err := app.Resolver.Trending(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, complaints)
}

type checkDuplicatesRequest struct {
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

func (app *App) postCheckDuplicates(w http.ResponseWriter, r *http.Request) {
	var body checkDuplicatesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, grievance.NewError(grievance.KindValidation, "malformed JSON body", err.Error()))
		return
	}
	matches, err := app.Resolver.FindDuplicates(r.Context(), body.Description, body.Latitude, body.Longitude)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}
