package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"grievance/internal/grievance"
)

func (app *App) getResolutionProofs(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	proofs, err := app.Protocol.Proofs(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proofs)
}

type signoffRequest struct {
	IsAccepted           bool    `json:"isAccepted"`
	Rating               int     `json:"rating,omitempty"`
	Feedback             string  `json:"feedback,omitempty"`
	DisputeReason        string  `json:"disputeReason,omitempty"`
	DisputeImageS3Key    *string `json:"disputeImageS3Key,omitempty"`
}

func (app *App) postSignoff(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body signoffRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, grievance.NewError(grievance.KindValidation, "malformed JSON body", err.Error()))
		return
	}

	if body.IsAccepted {
		c, err := app.Protocol.Accept(r.Context(), id, a, body.Rating, body.Feedback)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
		return
	}

	signoff, err := app.Protocol.Dispute(r.Context(), id, a, body.DisputeReason, body.DisputeImageS3Key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, signoff)
}

func (app *App) postApproveDispute(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	signoffID, err := pathInt64(r, "signoffId")
	if err != nil {
		writeError(w, err)
		return
	}
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	c, err := app.Protocol.ApproveDispute(r.Context(), id, signoffID, a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (app *App) postRejectDispute(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	signoffID, err := pathInt64(r, "signoffId")
	if err != nil {
		writeError(w, err)
		return
	}
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	reason := r.URL.Query().Get("reason")
	if err := app.Protocol.RejectDispute(r.Context(), id, signoffID, a, reason); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}

// postResolutionProof accepts a multipart form: image, remarks, optional
// coords. The image upload uses App.Store, the same ObjectStore
// the intake orchestrator uploads citizen-submitted images to.
func (app *App) postResolutionProof(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, grievance.NewError(grievance.KindValidation, "malformed multipart form", err.Error()))
		return
	}
	remarks := r.FormValue("remarks")
	var lat, lng *float64
	if v := r.FormValue("latitude"); v != "" {
		if f, perr := strconv.ParseFloat(v, 64); perr == nil {
			lat = &f
		}
	}
	if v := r.FormValue("longitude"); v != "" {
		if f, perr := strconv.ParseFloat(v, 64); perr == nil {
			lng = &f
		}
	}
	var imageKey string
	var imageBytes []byte
	if file, _, ferr := r.FormFile("image"); ferr == nil {
		defer file.Close()
		data, rerr := io.ReadAll(file)
		if rerr == nil {
			key, perr := app.Store.Put(r.Context(), data, "image/jpeg")
			if perr != nil {
				writeError(w, grievance.Wrap(grievance.KindExternalUnavailable, "failed to upload proof image", perr))
				return
			}
			imageKey = key
			imageBytes = data
		}
	}
	proof, err := app.Protocol.SubmitProof(r.Context(), id, a, imageKey, remarks, lat, lng, imageBytes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, proof)
}
