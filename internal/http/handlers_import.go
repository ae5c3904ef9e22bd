package http

import (
	"net/http"

	"financeiro/internal/services"
)

// handleReceipt extracts an uploaded receipt and records it as an expense.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	file, err := readUpload(w, r, s.maxUpload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := ws.QuickReceipt(r.Context(), file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+tx.ID).
		Body(tx).Write(w)
}

// handleStatement extracts an uploaded card statement into staging.
func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	file, err := readUpload(w, r, s.maxUpload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := ws.AnalyzeStatement(r.Context(), file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}

func (s *Server) handleGetStaging(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	NewJSONResponse().Body(ws.Staging()).Write(w)
}

func (s *Server) handleCancelStaging(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	NewJSONResponse().Body(map[string]int{"discarded": ws.CancelStaging()}).Write(w)
}

func (s *Server) handleCommitStaging(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	txs, err := ws.CommitStaging()
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(map[string]any{
		"imported":     len(txs),
		"transactions": txs,
	}).Write(w)
}

type stagedFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (s *Server) handleUpdateStaged(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	var req stagedFieldRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := ws.UpdateStaged(r.PathValue("tempId"), req.Field, sanitizeInput(req.Value))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}

func (s *Server) handleRemoveStaged(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	view, err := ws.RemoveStaged(r.PathValue("tempId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}

func (s *Server) handleStagedCategory(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cat, err := ws.CreateStagedCategory(r.PathValue("tempId"), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(map[string]any{
		"category": cat,
		"staging":  ws.Staging(),
	}).Write(w)
}
