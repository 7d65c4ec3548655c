package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkowalczyk/schemasync/domain/param"
	"github.com/mkowalczyk/schemasync/domain/reconcile"
	"github.com/mkowalczyk/schemasync/domain/schemadoc"
	"github.com/mkowalczyk/schemasync/ports"
)

// BuildVersion is the build version, set at link time.
var BuildVersion = "dev"

// Liveness reports that the process is up.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Version reports the running build.
func Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "schemasync",
		"version": BuildVersion,
	})
}

// ListDocuments returns the names of all schema documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	names, err := h.docs.List(r.Context(), h.storageContext(r))
	if err != nil {
		h.logger.Error().Err(err).Msg("list documents")
		writeError(w, http.StatusInternalServerError, "list documents failed")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": names})
}

// GetDocument returns one schema document.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	doc, err := h.docs.Read(r.Context(), name, h.storageContext(r))
	if err != nil {
		h.writeStoreError(w, err, name)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// PutDocument stores a document and records parameter usage.
func (h *Handler) PutDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var doc schemadoc.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid document body: "+err.Error())
		return
	}

	sc := h.storageContext(r)
	if err := h.sync.PublishDocument(r.Context(), name, doc, sc, r.URL.Query().Get("message")); err != nil {
		h.logger.Error().Err(err).Str("document", name).Msg("publish document")
		writeError(w, http.StatusInternalServerError, "publish failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored", "document": name})
}

// DocumentHealth returns the drift report for one document.
func (h *Handler) DocumentHealth(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	report, err := h.health.CheckDocument(r.Context(), name, h.storageContext(r))
	if err != nil {
		h.writeStoreError(w, err, name)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// SchemaHealth checks every document against the repository.
func (h *Handler) SchemaHealth(w http.ResponseWriter, r *http.Request) {
	snap, err := h.health.CheckAll(r.Context(), h.storageContext(r))
	if err != nil {
		h.logger.Error().Err(err).Msg("schema health check")
		writeError(w, http.StatusInternalServerError, "health check failed")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ResyncDocument reconciles one document with the repository.
func (h *Handler) ResyncDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	changed, err := h.sync.ResyncDocument(r.Context(), name, h.storageContext(r), h.resyncOptions(r))
	if err != nil {
		h.writeStoreError(w, err, name)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": name, "changed": changed})
}

// ResyncAll reconciles every document with the repository.
func (h *Handler) ResyncAll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.sync.ResyncAll(r.Context(), h.storageContext(r), h.resyncOptions(r))
	if err != nil {
		h.logger.Error().Err(err).Msg("batch resync")
		writeError(w, http.StatusInternalServerError, "resync failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) resyncOptions(r *http.Request) reconcile.Options {
	opts := reconcile.Options{PreserveValues: h.PreserveValues}
	if v := r.URL.Query().Get("preserve_values"); v != "" {
		opts.PreserveValues = v == "true" || v == "1"
	}
	return opts
}

// GetRepository returns the full parameter repository.
func (h *Handler) GetRepository(w http.ResponseWriter, r *http.Request) {
	repo, err := h.repo.Read(r.Context(), h.storageContext(r))
	if err != nil {
		h.logger.Error().Err(err).Msg("read repository")
		writeError(w, http.StatusInternalServerError, "read repository failed")
		return
	}
	writeJSON(w, http.StatusOK, repo.Clean())
}

// GetCategories returns the category labels in use.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	repo, err := h.repo.Read(r.Context(), h.storageContext(r))
	if err != nil {
		h.logger.Error().Err(err).Msg("read repository")
		writeError(w, http.StatusInternalServerError, "read repository failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": repo.Categories()})
}

// PutParameter submits a parameter edit. Edits with no impacted
// documents commit immediately; others return 202 with a pending
// change to confirm or cancel.
func (h *Handler) PutParameter(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var draft param.Parameter
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid parameter body: "+err.Error())
		return
	}

	res, err := h.mutation.Submit(r.Context(), name, draft, h.storageContext(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if res.Committed {
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

// ListChanges returns all pending parameter changes.
func (h *Handler) ListChanges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"changes": h.mutation.List()})
}

// GetChange returns one pending change.
func (h *Handler) GetChange(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	change, err := h.mutation.Get(id)
	if err != nil {
		h.writeStoreError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

type confirmRequest struct {
	// Documents selects a subset of the impacted documents to rewrite.
	// Empty means all of them.
	Documents []string `json:"documents"`
}

// ConfirmChange commits a pending change.
func (h *Handler) ConfirmChange(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req confirmRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid confirm body: "+err.Error())
			return
		}
	}

	result, err := h.mutation.Confirm(r.Context(), id, req.Documents)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("change", id).Msg("confirm change")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CancelChange discards a pending change.
func (h *Handler) CancelChange(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.mutation.Cancel(id); err != nil {
		h.writeStoreError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled", "change": id})
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error, name string) {
	if errors.Is(err, ports.ErrNotFound) {
		writeError(w, http.StatusNotFound, name+" not found")
		return
	}
	h.logger.Error().Err(err).Str("name", name).Msg("request failed")
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"status":  status,
			"message": msg,
		},
	})
}
