package insight

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/insightboard/core/internal/models"
	"github.com/insightboard/core/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newRouter(st store.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewService(st, nil, nil)).RegisterRoutes(r.Group("/api"))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Status(t *testing.T) {
	existing := models.InsightModel{ID: primitive.NewObjectID(), Title: "Oil", Added: "2017"}
	r := newRouter(store.NewMemory(existing))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"list", http.MethodGet, "/api/insights", "", http.StatusOK},
		{"list bad page", http.MethodGet, "/api/insights?page=0", "", http.StatusBadRequest},
		{"list bad limit", http.MethodGet, "/api/insights?limit=500", "", http.StatusBadRequest},
		{"list bad year", http.MethodGet, "/api/insights?endYear=soon", "", http.StatusBadRequest},
		{"search short", http.MethodGet, "/api/insights/search?q=a", "", http.StatusBadRequest},
		{"search", http.MethodGet, "/api/insights/search?q=oi", "", http.StatusOK},
		{"get", http.MethodGet, "/api/insights/" + existing.ID.Hex(), "", http.StatusOK},
		{"get missing", http.MethodGet, "/api/insights/" + primitive.NewObjectID().Hex(), "", http.StatusNotFound},
		{"get malformed", http.MethodGet, "/api/insights/xyz", "", http.StatusBadRequest},
		{"bulk empty", http.MethodPost, "/api/insights/bulk-insert", `{"data":[]}`, http.StatusBadRequest},
		{"bulk malformed", http.MethodPost, "/api/insights/bulk-insert", `{"data":`, http.StatusBadRequest},
		{"create invalid", http.MethodPost, "/api/insights", `{"title":"x"}`, http.StatusBadRequest},
		{"delete missing", http.MethodDelete, "/api/insights/" + primitive.NewObjectID().Hex(), "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(r, tt.method, tt.path, tt.body); w.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (%s)", tt.method, tt.path, w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestHandler_BulkInsert(t *testing.T) {
	r := newRouter(store.NewMemory())
	body := `{"data":[
		{"intensity":6,"likelihood":3,"relevance":2,"insight":"a","title":"a","added":"2017","end_year":"","impact":""},
		{"likelihood":3,"relevance":2,"insight":"b","title":"b","added":"2017"}
	]}`

	w := do(r, http.MethodPost, "/api/insights/bulk-insert", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var got BulkResult
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Inserted != 1 || got.Total != 2 || got.Duplicates != 1 {
		t.Errorf("Unexpected result: %+v", got)
	}
}

func TestHandler_BulkInsertSkipsMistypedRecords(t *testing.T) {
	r := newRouter(store.NewMemory())
	body := `{"data":[
		{"intensity":6,"likelihood":3,"relevance":2,"insight":"a","title":"a","added":"2017"},
		{"intensity":"high","likelihood":3,"relevance":2,"insight":"b","title":"b","added":"2017"}
	]}`

	w := do(r, http.MethodPost, "/api/insights/bulk-insert", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var got BulkResult
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Inserted != 1 || got.Total != 2 || got.Duplicates != 1 {
		t.Errorf("Unexpected result: %+v", got)
	}
}

func TestHandler_ListEnvelope(t *testing.T) {
	r := newRouter(store.NewMemory())
	w := do(r, http.MethodGet, "/api/insights?page=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var got struct {
		Data       []json.RawMessage `json:"data"`
		Pagination struct {
			Current int   `json:"current"`
			Pages   int   `json:"pages"`
			Total   int64 `json:"total"`
			HasNext bool  `json:"hasNext"`
			HasPrev bool  `json:"hasPrev"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Data == nil || got.Pagination.Current != 2 || got.Pagination.Pages != 0 || got.Pagination.HasNext || !got.Pagination.HasPrev {
		t.Errorf("Unexpected envelope: %s", w.Body.String())
	}
}
