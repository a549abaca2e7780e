package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/linkboard/linkboard/internal/domain"
	"github.com/linkboard/linkboard/internal/httpserver/deps"
	"github.com/linkboard/linkboard/internal/httpserver/mw"
	"github.com/linkboard/linkboard/internal/lists"
)

// CreateList handles POST /lists.
func CreateList(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in lists.CreateListInput
		if err := decodeBody(r, &in); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}
		if strings.TrimSpace(in.Title) == "" {
			writeBadRequest(w, "title is required")
			return
		}

		list, err := d.Lists.CreateList(r.Context(), mw.IdentityFrom(r.Context()), in)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, list)
	}
}

// UpdateList handles PATCH /lists/{slug}: metadata and visibility.
func UpdateList(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in lists.UpdateListInput
		if err := decodeBody(r, &in); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}

		list, err := d.Lists.UpdateList(r.Context(), chi.URLParam(r, "slug"), mw.IdentityFrom(r.Context()), in)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// DeleteList handles DELETE /lists/{slug}.
func DeleteList(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Lists.DeleteList(r.Context(), chi.URLParam(r, "slug"), mw.IdentityFrom(r.Context())); err != nil {
			writeError(w, d, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AddURL handles POST /lists/{slug}/urls.
func AddURL(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in lists.AddURLInput
		if err := decodeBody(r, &in); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}
		if strings.TrimSpace(in.Address) == "" {
			writeBadRequest(w, "address is required")
			return
		}

		entry, err := d.Lists.AddURL(r.Context(), chi.URLParam(r, "slug"), mw.IdentityFrom(r.Context()), in)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	}
}

// UpdateURL handles PATCH /lists/{slug}/urls/{urlID}.
func UpdateURL(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in lists.UpdateURLInput
		if err := decodeBody(r, &in); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}

		entry, err := d.Lists.UpdateURL(r.Context(),
			chi.URLParam(r, "slug"), chi.URLParam(r, "urlID"),
			mw.IdentityFrom(r.Context()), in)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

// DeleteURL handles DELETE /lists/{slug}/urls/{urlID}.
func DeleteURL(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := d.Lists.DeleteURL(r.Context(),
			chi.URLParam(r, "slug"), chi.URLParam(r, "urlID"),
			mw.IdentityFrom(r.Context()))
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type reorderRequest struct {
	Order []string `json:"order"`
}

// ReorderURLs handles POST /lists/{slug}/urls/reorder with the full new
// id order.
func ReorderURLs(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in reorderRequest
		if err := decodeBody(r, &in); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}

		err := d.Lists.ReorderURLs(r.Context(), chi.URLParam(r, "slug"), mw.IdentityFrom(r.Context()), in.Order)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type clickResponse struct {
	URLID  string `json:"urlId"`
	Clicks int64  `json:"clicks"`
}

// RecordClick handles POST /lists/{slug}/urls/{urlID}/click.
func RecordClick(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		urlID := chi.URLParam(r, "urlID")
		clicks, err := d.Lists.RecordClick(r.Context(), chi.URLParam(r, "slug"), urlID, mw.IdentityFrom(r.Context()))
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, clickResponse{URLID: urlID, Clicks: clicks})
	}
}

type healthResponse struct {
	URLID  string              `json:"urlId"`
	Status domain.HealthStatus `json:"status"`
}

// CheckHealth handles POST /lists/{slug}/urls/{urlID}/health.
func CheckHealth(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		urlID := chi.URLParam(r, "urlID")
		status, err := d.Lists.CheckHealth(r.Context(), chi.URLParam(r, "slug"), urlID, mw.IdentityFrom(r.Context()))
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{URLID: urlID, Status: status})
	}
}

type commentRequest struct {
	URLID string `json:"urlId,omitempty"`
	Text  string `json:"text"`
}

// AddComment handles POST /lists/{slug}/comments.
func AddComment(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in commentRequest
		if err := decodeBody(r, &in); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}
		if strings.TrimSpace(in.Text) == "" {
			writeBadRequest(w, "text is required")
			return
		}

		rec, err := d.Lists.AddComment(r.Context(), chi.URLParam(r, "slug"), in.URLID, mw.IdentityFrom(r.Context()), in.Text)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

type collaboratorRequest struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// AddCollaborator handles POST /lists/{slug}/collaborators.
func AddCollaborator(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in collaboratorRequest
		if err := decodeBody(r, &in); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}
		if strings.TrimSpace(in.Email) == "" {
			writeBadRequest(w, "email is required")
			return
		}
		if in.Role != domain.RoleEditor && in.Role != domain.RoleViewer {
			writeBadRequest(w, "role must be editor or viewer")
			return
		}

		err := d.Lists.AddCollaborator(r.Context(), chi.URLParam(r, "slug"), mw.IdentityFrom(r.Context()), in.Email, in.Role)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RemoveCollaborator handles DELETE /lists/{slug}/collaborators/{email}.
func RemoveCollaborator(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := d.Lists.RemoveCollaborator(r.Context(),
			chi.URLParam(r, "slug"), mw.IdentityFrom(r.Context()),
			chi.URLParam(r, "email"))
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Activities handles GET /lists/{slug}/activities: the ledger page on
// its own, newest first.
func Activities(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		list, err := d.Updates.ResolveList(r.Context(), slug, mw.IdentityFrom(r.Context()))
		if err != nil {
			writeError(w, d, r, err)
			return
		}

		recs, err := d.Ledger.List(r.Context(), list.ID, d.ActivityLimit)
		if err != nil {
			writeError(w, d, r, err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}
