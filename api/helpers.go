package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"grievance/internal/actor"
	"grievance/internal/grievance"
	"grievance/internal/httpauth"
)

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, grievance.NewError(grievance.KindValidation, "invalid path parameter", name+"="+raw)
	}
	return v, nil
}

func queryFloat64(r *http.Request, name string, def float64) float64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// requireActor pulls the verified actor off the request context; absence
// means httpauth.Middleware wasn't applied to this route, a programming
// error rather than a client error, so handlers that hit this treat it as
// an internal failure.
func requireActor(w http.ResponseWriter, r *http.Request) (actor.Context, bool) {
	a, ok := httpauth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "InternalError", Message: "no actor context on request"})
		return actor.Context{}, false
	}
	return a, true
}
