// Package backendtest provides a scripted double of the admin backend for
// the test suite: login, CAPTCHA, the session event stream and the paginated
// admin resources, with knobs for failure injection.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ledgerops/go-console-auth/internal/utils"
)

// StatusUpdate records one status transition received by the double.
type StatusUpdate struct {
	Resource string
	ID       string
	Status   string
	Reason   string
}

type streamEvent struct {
	name string
	data string
}

// Backend is the test double. Zero configuration yields a healthy backend
// that accepts any login with the ADMIN role.
type Backend struct {
	srv *httptest.Server

	mu            sync.Mutex
	role          string
	loginMessage  string // when set, login is rejected with this message
	refuseStreams bool   // when set, the events endpoint returns 500
	seeds         map[string][]any
	streams       map[int]chan streamEvent
	nextStreamID  int
	streamsSeen   int
	loginCalls    int
	statusUpdates []StatusUpdate
}

// New starts the double. Callers must Close it.
func New() *Backend {
	b := &Backend{
		role:    "ADMIN",
		seeds:   make(map[string][]any),
		streams: make(map[int]chan streamEvent),
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/admin/login", b.loginHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/captcha", b.captchaHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/events", b.eventsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/{resource}/{id}/status", b.statusHandler).Methods(http.MethodPatch)
	r.HandleFunc("/api/admin/{resource}", b.listHandler).Methods(http.MethodGet)

	b.srv = httptest.NewServer(r)
	return b
}

// URL is the backend's base URL.
func (b *Backend) URL() string {
	return b.srv.URL
}

// Close shuts the double down, dropping any live streams first.
func (b *Backend) Close() {
	b.DropStreams()
	b.srv.Close()
}

// SetRole changes the role returned by subsequent logins.
func (b *Backend) SetRole(role string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.role = role
}

// FailLogin makes subsequent logins fail with the given message; an empty
// message restores success.
func (b *Backend) FailLogin(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loginMessage = message
}

// RefuseStreams makes the events endpoint reject connections with a 500.
func (b *Backend) RefuseStreams(refuse bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refuseStreams = refuse
}

// Seed installs the canned items served for a listing resource.
func (b *Backend) Seed(resource string, items ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seeds[resource] = items
}

// EmitDuplicateLogin pushes the duplicate-login event to every live stream.
func (b *Backend) EmitDuplicateLogin() {
	b.Emit("duplicate-login", `{"reason":"another device"}`)
}

// Emit pushes a named event to every live stream.
func (b *Backend) Emit(name, data string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.streams {
		ch <- streamEvent{name: name, data: data}
	}
}

// DropStreams severs every live stream, as a transport failure would.
func (b *Backend) DropStreams() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.streams {
		close(ch)
		delete(b.streams, id)
	}
}

// OpenStreams is the number of currently connected streams.
func (b *Backend) OpenStreams() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.streams)
}

// StreamsSeen is the total number of stream connections accepted.
func (b *Backend) StreamsSeen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streamsSeen
}

// LoginCalls is the number of login attempts received.
func (b *Backend) LoginCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loginCalls
}

// StatusUpdates returns the status transitions received so far.
func (b *Backend) StatusUpdates() []StatusUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]StatusUpdate(nil), b.statusUpdates...)
}

func (b *Backend) loginHandler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.loginCalls++
	message := b.loginMessage
	role := b.role
	b.mu.Unlock()

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed login request"})
		return
	}
	if message != "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": message})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"accessToken":  "access-" + uuid.New().String(),
		"refreshToken": "refresh-" + uuid.New().String(),
		"role":         role,
	})
}

func (b *Backend) captchaHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"captchaKey":      "captcha-" + uuid.New().String(),
		"captchaImageUrl": b.srv.URL + "/captcha/image.png",
	})
}

func (b *Backend) eventsHandler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	if b.refuseStreams {
		b.mu.Unlock()
		http.Error(w, "stream unavailable", http.StatusInternalServerError)
		return
	}
	if r.URL.Query().Get("token") == "" {
		b.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing token"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		b.mu.Unlock()
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	id := b.nextStreamID
	b.nextStreamID++
	b.streamsSeen++
	ch := make(chan streamEvent, 16)
	b.streams[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		if existing, ok := b.streams[id]; ok && existing == ch {
			delete(b.streams, id)
		}
		b.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return // dropped by the test
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, ev.data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (b *Backend) listHandler(w http.ResponseWriter, r *http.Request) {
	if !bearerPresent(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing bearer token"})
		return
	}

	resource := mux.Vars(r)["resource"]
	b.mu.Lock()
	items := b.seeds[resource]
	b.mu.Unlock()

	page := intQuery(r, "page", 0)
	size := intQuery(r, "size", 20)

	start := page * size
	if start > len(items) {
		start = len(items)
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	pageItems := items[start:end]
	if pageItems == nil {
		pageItems = []any{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":      pageItems,
		"page":       page,
		"size":       size,
		"totalCount": len(items),
	})
}

func (b *Backend) statusHandler(w http.ResponseWriter, r *http.Request) {
	if !bearerPresent(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing bearer token"})
		return
	}

	vars := mux.Vars(r)
	var body struct {
		Status string  `json:"status"`
		Reason *string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed status update"})
		return
	}

	update := StatusUpdate{
		Resource: vars["resource"],
		ID:       vars["id"],
		Status:   body.Status,
		Reason:   utils.Value(body.Reason),
	}

	b.mu.Lock()
	b.statusUpdates = append(b.statusUpdates, update)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{})
}

func bearerPresent(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return len(auth) > len("Bearer ") && auth[:len("Bearer ")] == "Bearer "
}

func intQuery(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
