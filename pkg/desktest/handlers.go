package desktest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/deskkit/pkg/apiclient"
	"github.com/dmitrymomot/deskkit/pkg/identity"
)

type errorPayload struct {
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field, message string) {
	writeJSON(w, status, map[string]errorPayload{
		"error": {Code: code, Field: field, Message: message},
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", "", "malformed request body")
		return false
	}
	return true
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.byEmail[strings.TrimSpace(in.Email)]
	if !ok || u.Password != in.Password {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "", "invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, apiclient.LoginResponse{
		Token: b.issueTokenLocked(u),
		Email: u.Email,
		Role:  u.Role,
		Name:  u.Name,
	})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in apiclient.Registration
	if !decode(w, r, &in) {
		return
	}
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		writeError(w, http.StatusBadRequest, "VALIDATION", "name", "name is required")
		return
	case in.Email == "":
		writeError(w, http.StatusBadRequest, "VALIDATION", "email", "email is required")
		return
	case in.Password == "":
		writeError(w, http.StatusBadRequest, "VALIDATION", "password", "password is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.byEmail[in.Email]; taken {
		writeError(w, http.StatusBadRequest, "EMAIL_TAKEN", "email", "email already registered")
		return
	}
	u := b.addUserLocked(in.Name, in.Email, in.Password, identity.RoleUser)
	writeJSON(w, http.StatusCreated, u.ref())
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r).ref())
}

func (b *Backend) handleAgents(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if !isAgent(u) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "", "agents only")
		return
	}

	b.mu.Lock()
	out := make([]apiclient.Agent, 0)
	for _, candidate := range b.users {
		if isAgent(candidate) {
			out = append(out, *candidate.ref())
		}
	}
	b.mu.Unlock()
	sortAgents(out)
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), defaultLimit)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION", "limit", "limit must be a positive integer")
		return
	}
	limit = min(limit, maxLimit)
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION", "offset", "offset must be a non-negative integer")
		return
	}
	status := apiclient.Status(q.Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "VALIDATION", "status", "unknown status")
		return
	}
	search := strings.TrimSpace(q.Get("q"))

	b.mu.Lock()
	var matched []apiclient.Ticket
	for _, t := range b.visibleLocked(currentUser(r)) {
		if t.matches(search, status) {
			matched = append(matched, t.Ticket)
		}
	}
	b.mu.Unlock()

	out := apiclient.TicketList{Items: []apiclient.Ticket{}}
	if offset < len(matched) {
		end := min(offset+limit, len(matched))
		out.Items = matched[offset:end]
		if end < len(matched) {
			out.NextOffset = end
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleBreached(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if u.Role != identity.RoleAdmin {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "", "admins only")
		return
	}

	b.mu.Lock()
	now := b.now()
	items := []apiclient.Ticket{}
	for _, t := range b.visibleLocked(u) {
		if t.Breached(now) {
			items = append(items, t.Ticket)
		}
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (b *Backend) handleGet(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.lookupLocked(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, apiclient.TicketDetail{
		Ticket:     t.Ticket,
		Comments:   append([]apiclient.Comment{}, t.comments...),
		Activities: append([]apiclient.Activity{}, t.activities...),
	})
}

// lookupLocked resolves {id} among the tickets the caller may see and writes 404 otherwise.
func (b *Backend) lookupLocked(w http.ResponseWriter, r *http.Request) (*ticket, bool) {
	u := currentUser(r)
	t, ok := b.tickets[chi.URLParam(r, "id")]
	if !ok || (!isAgent(u) && t.ownerID != u.ID) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "", "ticket not found")
		return nil, false
	}
	return t, true
}

func (b *Backend) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in apiclient.NewTicket
	if !decode(w, r, &in) {
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Priority == "" {
		in.Priority = apiclient.PriorityMedium
	}
	switch {
	case in.Title == "":
		writeError(w, http.StatusBadRequest, "VALIDATION", "title", "title is required")
		return
	case in.Description == "":
		writeError(w, http.StatusBadRequest, "VALIDATION", "description", "description is required")
		return
	case !in.Priority.Valid():
		writeError(w, http.StatusBadRequest, "VALIDATION", "priority", "unknown priority")
		return
	}

	u := currentUser(r)
	key := strings.TrimSpace(r.Header.Get(apiclient.IdempotencyHeader))

	b.mu.Lock()
	defer b.mu.Unlock()
	if key != "" {
		if id, seen := b.idempotent[u.ID+"/"+key]; seen {
			writeJSON(w, http.StatusCreated, b.tickets[id].Ticket)
			return
		}
	}
	t := b.createLocked(u, in)
	if key != "" {
		b.idempotent[u.ID+"/"+key] = t.ID
	}
	writeJSON(w, http.StatusCreated, t.Ticket)
}

func (b *Backend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var in map[string]json.RawMessage
	if !decode(w, r, &in) {
		return
	}
	rawVersion, ok := in["version"]
	if !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION", "version", "version is required")
		return
	}
	var version int64
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "version", "version must be an integer")
		return
	}
	delete(in, "version")

	u := currentUser(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	t, found := b.lookupLocked(w, r)
	if !found {
		return
	}
	if version != t.Version {
		writeError(w, http.StatusConflict, "VERSION_CONFLICT", "version",
			"ticket was modified, current version is "+strconv.FormatInt(t.Version, 10))
		return
	}

	next := t.Ticket
	var acts []apiclient.Activity
	for field, raw := range in {
		act, status, err := b.applyLocked(u, &next, field, raw)
		if err != nil {
			writeError(w, status, "VALIDATION", field, err.Error())
			return
		}
		if act != nil {
			acts = append(acts, *act)
		}
	}

	next.Version++
	next.UpdatedAt = b.now()
	t.Ticket = next
	if next.Agent != nil {
		t.agentID = next.Agent.ID
	} else {
		t.agentID = ""
	}
	t.activities = append(t.activities, acts...)
	writeJSON(w, http.StatusOK, t.Ticket)
}

type fieldError string

func (e fieldError) Error() string { return string(e) }

// applyLocked applies one PATCH field to t and returns the timeline entry it produces.
func (b *Backend) applyLocked(u *user, t *apiclient.Ticket, field string, raw json.RawMessage) (*apiclient.Activity, int, error) {
	act := func(action string, oldV, newV any) *apiclient.Activity {
		return &apiclient.Activity{
			Action:    action,
			Details:   apiclient.ActivityDetails{Field: field, OldValue: oldV, NewValue: newV},
			User:      u.ref(),
			CreatedAt: b.now(),
		}
	}

	switch field {
	case "title", "description":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
			return nil, http.StatusBadRequest, fieldError(field + " must be a non-empty string")
		}
		s = strings.TrimSpace(s)
		if field == "title" {
			old := t.Title
			t.Title = s
			return act("updated", old, s), 0, nil
		}
		t.Description = s
		return act("updated", nil, nil), 0, nil

	case "status":
		if !isAgent(u) {
			return nil, http.StatusForbidden, fieldError("only agents may change status")
		}
		var s apiclient.Status
		if err := json.Unmarshal(raw, &s); err != nil || !s.Valid() {
			return nil, http.StatusBadRequest, fieldError("unknown status")
		}
		old := t.Status
		t.Status = s
		return act("status_changed", old, s), 0, nil

	case "priority":
		if !isAgent(u) {
			return nil, http.StatusForbidden, fieldError("only agents may change priority")
		}
		var p apiclient.Priority
		if err := json.Unmarshal(raw, &p); err != nil || !p.Valid() {
			return nil, http.StatusBadRequest, fieldError("unknown priority")
		}
		old := t.Priority
		t.Priority = p
		return act("priority_changed", old, p), 0, nil

	case "agent":
		if !isAgent(u) {
			return nil, http.StatusForbidden, fieldError("only agents may assign tickets")
		}
		var id *string
		if err := json.Unmarshal(raw, &id); err != nil {
			return nil, http.StatusBadRequest, fieldError("agent must be an id or null")
		}
		var oldEmail any
		if t.Agent != nil {
			oldEmail = t.Agent.Email
		}
		if id == nil || *id == "" {
			t.Agent = nil
			return act("unassigned", oldEmail, nil), 0, nil
		}
		a, ok := b.users[*id]
		if !ok || !isAgent(a) {
			return nil, http.StatusBadRequest, fieldError("unknown agent")
		}
		t.Agent = a.ref()
		return act("assigned", oldEmail, a.Email), 0, nil
	}
	return nil, http.StatusBadRequest, fieldError("field is not editable")
}

func (b *Backend) handleComment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Message string `json:"message"`
	}
	if !decode(w, r, &in) {
		return
	}
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION", "message", "message is required")
		return
	}
	if utf8.RuneCountInString(msg) > maxCommentRunes {
		writeError(w, http.StatusBadRequest, "VALIDATION", "message", "message is too long")
		return
	}

	u := currentUser(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.lookupLocked(w, r)
	if !ok {
		return
	}
	c := apiclient.Comment{ID: newID(), Message: msg, User: u.ref(), CreatedAt: b.now()}
	t.comments = append(t.comments, c)
	t.activities = append(t.activities, apiclient.Activity{
		Action:    "commented",
		Details:   apiclient.ActivityDetails{Message: msg},
		User:      u.ref(),
		CreatedAt: c.CreatedAt,
	})
	writeJSON(w, http.StatusCreated, c)
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
