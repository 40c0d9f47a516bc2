package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"studytec-client/internal/domain"
)

func TestLoginSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var creds domain.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.User != "prof" || creds.Pass != "secret" {
			t.Errorf("unexpected credentials %+v", creds)
		}
		_, _ = w.Write([]byte(`{"message":"Sucesso","user":{"id":"t1","type":"teacher","name":"Prof","email":null}}`))
	}))
	defer srv.Close()

	user, err := NewClient(srv.Client(), srv.URL+"/").Login(context.Background(), domain.Credentials{User: "prof", Pass: "secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != "t1" || user.Type != "teacher" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestLoginRejectionCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Credenciais inválidas"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.Client(), srv.URL).Login(context.Background(), domain.Credentials{User: "x", Pass: "y"})
	var rej *domain.RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if rej.Status != http.StatusUnauthorized || rej.Message != "Credenciais inválidas" {
		t.Fatalf("unexpected rejection %+v", rej)
	}
}

func TestLoginMalformedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>proxy</html>`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.Client(), srv.URL).Login(context.Background(), domain.Credentials{User: "x", Pass: "y"})
	if !errors.Is(err, domain.ErrMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestTransportFailureIsNotRejection(t *testing.T) {
	c := NewClient(nil, "http://[::1")
	_, err := c.Login(context.Background(), domain.Credentials{User: "x", Pass: "y"})
	if err == nil {
		t.Fatalf("expected error for malformed base url")
	}
	var rej *domain.RejectionError
	if errors.As(err, &rej) || errors.Is(err, domain.ErrMalformed) {
		t.Fatalf("transport failure classified as rejection: %v", err)
	}
}

func TestListScopes(t *testing.T) {
	var classesQuery, historyQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/classes":
			classesQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(`[{"id":"c1","name":"9A","code":"ABC123","teacher_id":"t1"}]`))
		case "/api/history":
			historyQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	classes, err := c.ListClasses(context.Background(), "t1")
	if err != nil || len(classes) != 1 || classes[0].Code != "ABC123" {
		t.Fatalf("classes: %v %+v", err, classes)
	}
	if classesQuery != "teacherId=t1" {
		t.Fatalf("unexpected classes query %q", classesQuery)
	}

	history, err := c.ListHistory(context.Background(), "")
	if err != nil || history == nil || len(history) != 0 {
		t.Fatalf("history: %v %+v", err, history)
	}
	if historyQuery != "" {
		t.Fatalf("expected unscoped history, got %q", historyQuery)
	}
}

func TestJoinRegisterAndCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/api/join-class":
			if body["code"] != "ABC123" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"Turma não encontrada"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"c1","name":"9A","code":"ABC123"}`))
		case "/api/register":
			if _, ok := body["classCode"]; !ok {
				t.Errorf("classCode must always be sent")
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"s1","type":"student","name":"Ana"}`))
		case "/api/classes":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"c2","code":"XYZ789"}`))
		case "/api/history":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"msg":"Salvo"}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewClient(srv.Client(), srv.URL)

	ref, err := c.JoinClass(ctx, "ABC123")
	if err != nil || ref.ID != "c1" || ref.Name != "9A" {
		t.Fatalf("join: %v %+v", err, ref)
	}
	if _, err := c.JoinClass(ctx, "NOPE"); err == nil {
		t.Fatalf("expected rejection for unknown code")
	} else if msg, ok := domain.RejectionMessage(err); !ok || msg != "Turma não encontrada" {
		t.Fatalf("unexpected rejection %v", err)
	}

	user, err := c.Register(ctx, domain.Registration{Name: "Ana", Type: "student"})
	if err != nil || user.ID != "s1" {
		t.Fatalf("register: %v %+v", err, user)
	}

	code, err := c.CreateClass(ctx, domain.NewClass{Name: "9B", TeacherID: "t1"})
	if err != nil || code.Code != "XYZ789" {
		t.Fatalf("create class: %v %+v", err, code)
	}

	if err := c.SaveHistory(ctx, domain.HistoryEntry{Type: "quiz", Score: 1, Total: 2}); err != nil {
		t.Fatalf("save history: %v", err)
	}
}

func TestSetBaseURLTakesEffect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), "http://127.0.0.1:1")
	c.SetBaseURL(" " + srv.URL + "/ ")
	if c.BaseURL() != srv.URL {
		t.Fatalf("unexpected base url %q", c.BaseURL())
	}
	if _, err := c.ListClasses(context.Background(), ""); err != nil {
		t.Fatalf("list after base url change: %v", err)
	}
}
