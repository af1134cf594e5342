package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/miding/internal/index"
	"github.com/starford/miding/internal/models"
	"github.com/starford/miding/internal/testutil"
)

// testEnv wires a temp notes directory, SQLite DB, service and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*testutil.Env, http.Handler) {
	t.Helper()
	env := testutil.NewEnv(t)
	router := NewRouter(env.Service, authToken != "", authToken, nil)
	return env, router
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	} else {
		r = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createNote(t *testing.T, router http.Handler, journal bool) NoteDetail {
	t.Helper()
	w := do(t, router, http.MethodPost, "/notes", map[string]bool{"journal": journal})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var note NoteDetail
	if err := json.Unmarshal(w.Body.Bytes(), &note); err != nil {
		t.Fatal(err)
	}
	return note
}

func TestCreateAndGetNote(t *testing.T) {
	_, router := testEnv(t, "")

	created := createNote(t, router, false)
	if created.Title != "New Note" || !created.Focused {
		t.Errorf("created = %+v", created)
	}

	w := do(t, router, http.MethodGet, "/notes/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.ID != created.ID {
		t.Errorf("id = %q, want %q", note.ID, created.ID)
	}
	if note.Parsed.Tasks == nil {
		t.Error("parse result missing")
	}
}

func TestCreateNote_EmptyBody(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/notes", nil)
	if w.Code != http.StatusCreated {
		t.Errorf("create without body = %d, want 201", w.Code)
	}
}

func TestCreateJournalNote(t *testing.T) {
	_, router := testEnv(t, "")
	note := createNote(t, router, true)
	want := "Journal " + time.Now().Format("2006-01-02")
	if note.Title != want || note.JournalDate == nil {
		t.Errorf("journal note = %+v", note.Note)
	}

	w := do(t, router, http.MethodGet, "/journal", nil)
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Notes) != 1 || resp.Notes[0].ID != note.ID {
		t.Errorf("journal = %+v", resp.Notes)
	}
}

func TestUpdateContentIsDebounced(t *testing.T) {
	env, router := testEnv(t, "")
	note := createNote(t, router, false)

	w := do(t, router, http.MethodPut, "/notes/"+note.ID+"/content", map[string]string{"content": "- [ ] ship it @priority(high)"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("update content = %d, body = %s", w.Code, w.Body.String())
	}

	testutil.Eventually(t, func() bool {
		_, res, _ := env.Store.Note(note.ID)
		return len(res.Tasks) == 1
	})

	w = do(t, router, http.MethodGet, "/tasks", nil)
	var resp TaskListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Tasks) != 1 || resp.Tasks[0].Task.Priority != models.PriorityHigh {
		t.Errorf("tasks = %+v", resp.Tasks)
	}
}

func TestUpdateContent_MissingField(t *testing.T) {
	_, router := testEnv(t, "")
	note := createNote(t, router, false)
	w := do(t, router, http.MethodPut, "/notes/"+note.ID+"/content", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing content = %d, want 400", w.Code)
	}
}

func TestToggleTask(t *testing.T) {
	env, router := testEnv(t, "")
	note := createNote(t, router, false)
	_ = env.Service.UpdateContent(context.Background(), note.ID, "- [ ] write tests")
	env.Store.Flush()

	tasks := env.Store.AllTasks()
	if len(tasks) != 1 {
		t.Fatalf("tasks = %+v", tasks)
	}
	w := do(t, router, http.MethodPost, "/tasks/toggle", ToggleTaskRequest{NoteID: note.ID, TaskID: tasks[0].Task.ID})
	if w.Code != http.StatusNoContent {
		t.Fatalf("toggle = %d, body = %s", w.Code, w.Body.String())
	}
	n, _, _ := env.Store.Note(note.ID)
	if !strings.HasPrefix(n.Content, "- [x] write tests") {
		t.Errorf("content = %q", n.Content)
	}

	// The old id no longer matches the toggled line.
	w = do(t, router, http.MethodPost, "/tasks/toggle", ToggleTaskRequest{NoteID: note.ID, TaskID: tasks[0].Task.ID})
	if w.Code != http.StatusConflict {
		t.Errorf("stale toggle = %d, want 409", w.Code)
	}
	w = do(t, router, http.MethodGet, "/error", nil)
	var last LastErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &last)
	if last.Message == "" {
		t.Error("stale toggle did not surface an error")
	}
	if w = do(t, router, http.MethodDelete, "/error", nil); w.Code != http.StatusNoContent {
		t.Errorf("clear error = %d", w.Code)
	}
	if env.Store.LastError() != "" {
		t.Error("error not cleared")
	}
}

func TestGetNote_ContentVersion(t *testing.T) {
	env, router := testEnv(t, "")
	note := createNote(t, router, false)
	_ = env.Service.UpdateContent(context.Background(), note.ID, "- [ ] reload me")
	env.Store.Flush()

	get := func() NoteDetail {
		t.Helper()
		w := do(t, router, http.MethodGet, "/notes/"+note.ID, nil)
		var d NoteDetail
		if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
			t.Fatalf("decode %s: %v", w.Body.String(), err)
		}
		return d
	}
	before := get()
	if !strings.Contains(do(t, router, http.MethodGet, "/notes/"+note.ID, nil).Body.String(), `"contentVersion":`) {
		t.Fatal("contentVersion missing from note body")
	}

	tasks := env.Store.AllTasks()
	if len(tasks) != 1 {
		t.Fatalf("tasks = %+v", tasks)
	}
	if w := do(t, router, http.MethodPost, "/tasks/toggle", ToggleTaskRequest{NoteID: note.ID, TaskID: tasks[0].Task.ID}); w.Code != http.StatusNoContent {
		t.Fatalf("toggle = %d", w.Code)
	}
	if after := get(); after.ContentVersion <= before.ContentVersion {
		t.Errorf("contentVersion = %d after toggle, was %d", after.ContentVersion, before.ContentVersion)
	}
}

func TestToggleTask_Validation(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/tasks/toggle", map[string]string{"noteId": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing taskId = %d, want 400", w.Code)
	}
}

func TestSetTicketStatus(t *testing.T) {
	env, router := testEnv(t, "")
	note := createNote(t, router, false)
	_ = env.Service.UpdateContent(context.Background(), note.ID, ":::ticket\nID: T-9\nStatus: open\n:::")
	env.Store.Flush()

	start := 0
	w := do(t, router, http.MethodPut, "/tickets/status", TicketStatusRequest{NoteID: note.ID, BlockStart: &start, Status: "in-progress"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("set status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/tickets", nil)
	var resp TicketListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Tickets) != 1 || resp.Tickets[0].Ticket.Status != models.StatusInProgress {
		t.Errorf("tickets = %+v", resp.Tickets)
	}

	w = do(t, router, http.MethodPut, "/tickets/status", TicketStatusRequest{NoteID: note.ID, BlockStart: &start, Status: "done"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown status = %d, want 400", w.Code)
	}
	other := 7
	w = do(t, router, http.MethodPut, "/tickets/status", TicketStatusRequest{NoteID: note.ID, BlockStart: &other, Status: "closed"})
	if w.Code != http.StatusConflict {
		t.Errorf("wrong block = %d, want 409", w.Code)
	}
	w = do(t, router, http.MethodPut, "/tickets/status", map[string]string{"noteId": note.ID, "status": "closed"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing blockStart = %d, want 400", w.Code)
	}
}

func TestTicketsByKey(t *testing.T) {
	env, router := testEnv(t, "")
	note := createNote(t, router, false)
	_ = env.Service.UpdateContent(context.Background(), note.ID, ":::ticket\nID: T-42\nStatus: blocked\n:::")
	env.Store.Flush()

	testutil.Eventually(t, func() bool {
		rows, _ := env.DB.TicketsByKey("T-42")
		return len(rows) == 1
	})
	w := do(t, router, http.MethodGet, "/tickets/by-key/T-42", nil)
	var resp TicketsByKeyResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Key != "T-42" || len(resp.Tickets) != 1 || resp.Tickets[0].NoteID != note.ID {
		t.Errorf("by key = %+v", resp)
	}

	w = do(t, router, http.MethodGet, "/tickets/by-key/NOPE", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"tickets":[]`) {
		t.Errorf("unknown key = %d %s", w.Code, w.Body.String())
	}
}

func TestTitleTagsAndTemplates(t *testing.T) {
	_, router := testEnv(t, "")
	note := createNote(t, router, false)
	base := "/notes/" + note.ID

	w := do(t, router, http.MethodPut, base+"/title", UpdateTitleRequest{Title: "Plans"})
	if w.Code != http.StatusOK {
		t.Fatalf("title = %d", w.Code)
	}
	w = do(t, router, http.MethodPut, base+"/title", UpdateTitleRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty title = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodPost, base+"/tags", TagRequest{Tag: "#Work"})
	var got NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Title != "Plans" || len(got.Tags) != 1 || got.Tags[0] != "work" {
		t.Errorf("after tag = %+v", got.Note)
	}
	w = do(t, router, http.MethodDelete, base+"/tags/work", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if len(got.Tags) != 0 {
		t.Errorf("tag not removed: %v", got.Tags)
	}

	w = do(t, router, http.MethodPost, base+"/templates/ticket", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if len(got.Parsed.Tickets) != 1 {
		t.Errorf("ticket template not parsed: %+v", got.Parsed)
	}
	w = do(t, router, http.MethodPost, base+"/templates/task", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if !strings.HasSuffix(got.Content, "\n- [ ] \n") {
		t.Errorf("task template not appended: %q", got.Content)
	}
	w = do(t, router, http.MethodPost, base+"/templates/poem", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown template = %d, want 400", w.Code)
	}
}

func TestSnapshotCommitAndHistory(t *testing.T) {
	_, router := testEnv(t, "")
	note := createNote(t, router, false)

	w := do(t, router, http.MethodPost, "/notes/"+note.ID+"/snapshots", SnapshotRequest{Summary: "checkpoint"})
	if w.Code != http.StatusCreated {
		t.Fatalf("snapshot = %d", w.Code)
	}
	// Version control is disabled, so commit only snapshots.
	w = do(t, router, http.MethodPost, "/notes/"+note.ID+"/commit", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("commit = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/history", nil)
	var resp HistoryResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.History) != 3 {
		t.Fatalf("history = %+v", resp.History)
	}
	summaries := map[string]bool{}
	for _, h := range resp.History {
		summaries[h.Entry.Summary] = true
	}
	for _, s := range []string{models.SummaryCreated, "checkpoint", models.SummarySaved} {
		if !summaries[s] {
			t.Errorf("missing history entry %q", s)
		}
	}

	w = do(t, router, http.MethodGet, "/vcs/log", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"commits":[]`) {
		t.Errorf("vcs log = %d %s", w.Code, w.Body.String())
	}
}

func TestDeleteNote(t *testing.T) {
	_, router := testEnv(t, "")
	note := createNote(t, router, false)

	if w := do(t, router, http.MethodDelete, "/notes/"+note.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/notes/"+note.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/notes/"+note.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestListNotesAndFocus(t *testing.T) {
	env, router := testEnv(t, "")
	first := createNote(t, router, false)
	second := createNote(t, router, false)

	w := do(t, router, http.MethodGet, "/notes", nil)
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Notes) != 2 || resp.Notes[0].ID != second.ID {
		t.Fatalf("notes = %+v", resp.Notes)
	}

	if w := do(t, router, http.MethodPost, "/notes/"+first.ID+"/focus", nil); w.Code != http.StatusNoContent {
		t.Errorf("focus = %d", w.Code)
	}
	if env.Store.FocusedID() != first.ID {
		t.Errorf("focused = %q, want %q", env.Store.FocusedID(), first.ID)
	}
	if w := do(t, router, http.MethodPost, "/notes/missing/focus", nil); w.Code != http.StatusNotFound {
		t.Errorf("focus missing = %d, want 404", w.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	env, router := testEnv(t, "")
	note := createNote(t, router, false)
	_ = env.Service.UpdateContent(context.Background(), note.ID, "- [x] done @done("+time.Now().Format("2006-01-02")+")")
	env.Store.Flush()

	w := do(t, router, http.MethodGet, "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats = %d", w.Code)
	}
	var s Summary
	_ = json.Unmarshal(w.Body.Bytes(), &s)
	if s.TotalCompletedTasks != 1 || s.Counts.Notes != 1 {
		t.Errorf("summary = %+v", s)
	}
}

func TestSearchEndpoint(t *testing.T) {
	env, router := testEnv(t, "")
	note := createNote(t, router, false)
	_ = env.Service.UpdateContent(context.Background(), note.ID, "the quick brown fox")
	env.Store.Flush()

	var results []index.SearchResult
	testutil.Eventually(t, func() bool {
		w := do(t, router, http.MethodGet, "/search?q=fox", nil)
		var resp SearchResponse
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		results = resp.Results
		return len(results) == 1
	})
	if results[0].NoteID != note.ID {
		t.Errorf("hit = %+v", results[0])
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodPost, "/notes", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	if w := do(t, router, http.MethodGet, "/notes", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	env := testutil.NewEnv(t)
	sse := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	router := NewRouter(env.Service, true, "tok", sse)

	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	if w := do(t, router, http.MethodGet, "/notes?access_token=secret123", nil); w.Code != http.StatusOK {
		t.Errorf("query token GET = %d, want 200", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/notes?access_token=secret123", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("query token POST = %d, want 401", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/notes?access_token=wrong", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong query token = %d, want 401", w.Code)
	}
}
