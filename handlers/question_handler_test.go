package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ChristophStock/tvteam-ted/services"
	"github.com/ChristophStock/tvteam-ted/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, *services.SessionService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := services.NewSessionService(store.NewMemoryStore(), store.NewMemoryModeStore(), services.DefaultManifest())
	h := NewQuestionHandler(svc)

	router := gin.New()
	router.GET("/api/questions", h.ListQuestions)
	router.POST("/api/questions", h.CreateQuestion)
	router.DELETE("/api/questions/:id", h.DeleteQuestion)
	router.POST("/api/questions/:id/activate", h.ActivateQuestion)
	router.POST("/api/questions/:id/close", h.CloseQuestion)
	router.POST("/api/questions/:id/reset", h.ResetQuestion)
	router.POST("/api/questions/:id/vote", h.CastVote)
	router.GET("/api/voting-status", h.GetVotingStatus)

	return router, svc
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createQuestion(t *testing.T, svc *services.SessionService, activate bool) uint {
	t.Helper()
	q, err := svc.CreateQuestion(context.Background(), "2+2?", []services.OptionInput{
		{Text: "3"}, {Text: "4"}, {Text: "5"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if activate {
		if _, err := svc.ActivateQuestion(context.Background(), q.ID); err != nil {
			t.Fatalf("activate: %v", err)
		}
	}
	return q.ID
}

func TestCreateQuestionEndpoint(t *testing.T) {
	cases := []struct {
		name     string
		body     interface{}
		wantCode int
	}{
		{
			name:     "valid question",
			body:     gin.H{"text": "2+2?", "options": []gin.H{{"text": "3"}, {"text": "4"}}},
			wantCode: http.StatusCreated,
		},
		{
			name:     "missing options",
			body:     gin.H{"text": "2+2?"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "single option",
			body:     gin.H{"text": "2+2?", "options": []gin.H{{"text": "4"}}},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "not json",
			body:     nil,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := newTestRouter(t)
			w := doJSON(t, router, http.MethodPost, "/api/questions", tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.wantCode, w.Body.String())
			}
		})
	}
}

func TestCastVoteEndpoint(t *testing.T) {
	t.Run("vote on active question", func(t *testing.T) {
		router, svc := newTestRouter(t)
		id := createQuestion(t, svc, true)

		w := doJSON(t, router, http.MethodPost, "/api/questions/1/vote", gin.H{"option": 1})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
		}

		var payload struct {
			Results []int64 `json:"results"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		want := []int64{0, 1, 0}
		for i, r := range want {
			if payload.Results[i] != r {
				t.Fatalf("results = %v, want %v", payload.Results, want)
			}
		}
		_ = id
	})

	t.Run("vote for option index zero", func(t *testing.T) {
		router, svc := newTestRouter(t)
		createQuestion(t, svc, true)

		w := doJSON(t, router, http.MethodPost, "/api/questions/1/vote", gin.H{"option": 0})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
		}
	})

	t.Run("vote on inactive question hides the reason", func(t *testing.T) {
		router, svc := newTestRouter(t)
		createQuestion(t, svc, false)

		w := doJSON(t, router, http.MethodPost, "/api/questions/1/vote", gin.H{"option": 1})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		if !strings.Contains(w.Body.String(), "Voting not allowed") {
			t.Fatalf("body = %s, want the generic voting message", w.Body.String())
		}
	})

	t.Run("vote with out of range index", func(t *testing.T) {
		router, svc := newTestRouter(t)
		createQuestion(t, svc, true)

		w := doJSON(t, router, http.MethodPost, "/api/questions/1/vote", gin.H{"option": 9})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("vote on unknown question", func(t *testing.T) {
		router, _ := newTestRouter(t)

		w := doJSON(t, router, http.MethodPost, "/api/questions/99/vote", gin.H{"option": 0})
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
	})

	t.Run("vote without option field", func(t *testing.T) {
		router, svc := newTestRouter(t)
		createQuestion(t, svc, true)

		w := doJSON(t, router, http.MethodPost, "/api/questions/1/vote", gin.H{})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})
}

func TestLifecycleEndpoints(t *testing.T) {
	router, svc := newTestRouter(t)
	createQuestion(t, svc, false)

	if w := doJSON(t, router, http.MethodPost, "/api/questions/1/activate", nil); w.Code != http.StatusOK {
		t.Fatalf("activate status = %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodPost, "/api/questions/1/close", nil); w.Code != http.StatusOK {
		t.Fatalf("close status = %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodPost, "/api/questions/1/reset", nil); w.Code != http.StatusOK {
		t.Fatalf("reset status = %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodPost, "/api/questions/9/activate", nil); w.Code != http.StatusNotFound {
		t.Fatalf("activate unknown status = %d, want 404", w.Code)
	}

	// Delete is idempotent through the API as well.
	if w := doJSON(t, router, http.MethodDelete, "/api/questions/1", nil); w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := doJSON(t, router, http.MethodDelete, "/api/questions/1", nil); w.Code != http.StatusOK {
		t.Fatalf("second delete status = %d, want 200", w.Code)
	}
}

func TestVotingStatusEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/voting-status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var status struct {
		Active   bool            `json:"active"`
		Question json.RawMessage `json:"question"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Active || string(status.Question) != "null" {
		t.Fatalf("expected inactive null status, got %s", w.Body.String())
	}

	createQuestion(t, svc, true)
	w = doJSON(t, router, http.MethodGet, "/api/voting-status", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.Active {
		t.Fatalf("expected active status, got %s", w.Body.String())
	}
}
