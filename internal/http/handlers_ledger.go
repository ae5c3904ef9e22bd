package http

import (
	"net/http"

	"financeiro/internal/core"
	"financeiro/internal/services"
)

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	q, err := ParseLedgerQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"view":         q.View,
		"member":       ws.Member(),
		"transactions": ws.Ledger(q.View, q.Sort, q.Desc),
		"pendingSync":  ws.PendingSync(),
	}).Write(w)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	var in services.TransactionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Description = sanitizeInput(in.Description)
	tx, err := ws.AddTransaction(in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+tx.ID).
		Body(tx).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	tx, err := ws.Transaction(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(tx).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	var in services.TransactionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Description = sanitizeInput(in.Description)
	tx, err := ws.UpdateTransaction(r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	if err := ws.DeleteTransaction(r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}

// handleListCategories lists categories, optionally filtered by ?type=.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	all := ws.Categories()
	t := core.TransactionType(r.URL.Query().Get("type"))
	if t == "" {
		NewJSONResponse().Body(map[string]any{"categories": all}).Write(w)
		return
	}
	if !t.IsValid() {
		BadRequestError("type must be income or expense").Write(w)
		return
	}
	filtered := make([]core.Category, 0, len(all))
	for _, c := range all {
		if c.Type == t {
			filtered = append(filtered, c)
		}
	}
	NewJSONResponse().Body(map[string]any{"categories": filtered}).Write(w)
}

type categoryRequest struct {
	Name string               `json:"name"`
	Type core.TransactionType `json:"type"`
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cat, err := ws.AddCategory(sanitizeInput(req.Name), req.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(cat).Write(w)
}

type renameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t := core.TransactionType(r.PathValue("type"))
	cat, err := ws.RenameCategory(t, r.PathValue("id"), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(cat).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	t := core.TransactionType(r.PathValue("type"))
	if err := ws.DeleteCategory(t, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleGetMembers(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	NewJSONResponse().Body(map[string]any{
		"names":  ws.MemberNames(),
		"member": ws.Member(),
	}).Write(w)
}

func (s *Server) handleUpdateMembers(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	var req core.MemberNames
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.MemberA = sanitizeInput(req.MemberA)
	req.MemberB = sanitizeInput(req.MemberB)
	names, err := ws.SetMemberNames(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"names": names}).Write(w)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, ws *services.Workspace) {
	view, err := ParseView(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(ws.Report(view)).Write(w)
}
