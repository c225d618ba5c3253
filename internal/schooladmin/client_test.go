package schooladmin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestServer(t *testing.T, failPath string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	guard := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			if r.Header.Get("Authorization") != "Bearer secret" {
				w.WriteHeader(http.StatusUnauthorized)
				write(w, map[string]string{"message": "Not authorized"})
				return
			}
			if r.URL.Path == failPath {
				w.WriteHeader(http.StatusInternalServerError)
				write(w, map[string]string{"message": "Server error"})
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("/api/school/admin/classes", guard(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grade") != "5" || r.URL.Query().Get("stream") != "Science" {
			write(w, map[string]interface{}{"classes": []interface{}{}})
			return
		}
		write(w, map[string]interface{}{"success": true, "classes": []map[string]interface{}{
			{"_id": "c5", "classNumber": 5, "stream": "Science", "totalStudents": 31,
				"sections": []map[string]interface{}{{"name": "A", "capacity": 40, "classTeacher": "t1"}}},
		}})
	}))
	mux.HandleFunc("/api/school/admin/classes/stats", guard(func(w http.ResponseWriter, r *http.Request) {
		write(w, map[string]interface{}{"success": true, "total": 3, "totalSections": 5, "totalSubjects": 9, "totalStudents": 88})
	}))
	mux.HandleFunc("/api/school/admin/classes/c5", guard(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			write(w, map[string]interface{}{"class": map[string]interface{}{
				"_id": "c5", "classNumber": 5,
				"sections": []map[string]interface{}{{"name": "A", "capacity": 40, "classTeacher": map[string]string{"_id": "t1", "name": "Asha"}}},
			}})
		case http.MethodDelete:
			write(w, map[string]interface{}{"success": true})
		}
	}))
	mux.HandleFunc("/api/school/admin/classes/c5/students", guard(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			StudentIDs []string `json:"studentIds"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.StudentIDs) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			write(w, map[string]string{"message": "No students provided"})
			return
		}
		write(w, map[string]interface{}{"success": true})
	}))
	mux.HandleFunc("/api/school/admin/classes/create", guard(func(w http.ResponseWriter, r *http.Request) {
		var form NewClass
		_ = json.NewDecoder(r.Body).Decode(&form)
		write(w, map[string]interface{}{"class": map[string]interface{}{"_id": "c9", "classNumber": form.ClassNumber, "academicYear": form.AcademicYear}})
	}))
	mux.HandleFunc("/api/school/admin/teachers", guard(func(w http.ResponseWriter, r *http.Request) {
		write(w, map[string]interface{}{"teachers": []map[string]string{{"_id": "t1", "name": "Asha"}}})
	}))
	mux.HandleFunc("/api/school/admin/students", guard(func(w http.ResponseWriter, r *http.Request) {
		write(w, map[string]interface{}{"students": []map[string]string{{"_id": "s1", "name": "Ravi"}, {"_id": "s2", "name": "Meera"}}})
	}))
	mux.HandleFunc("/api/school/admin/students/available", guard(func(w http.ResponseWriter, r *http.Request) {
		write(w, []map[string]string{{"_id": "s3", "name": "Kabir"}})
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestOverviewLoadsEverything(t *testing.T) {
	srv, _ := newTestServer(t, "")
	client := NewClient(srv.URL, "secret")

	ov, err := client.Overview(context.Background(), ClassFilter{Grade: "5", Stream: "Science"})
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(ov.Classes) != 1 || ov.Classes[0].TotalStudents != 31 {
		t.Fatalf("unexpected classes %+v", ov.Classes)
	}
	if ov.Classes[0].Sections[0].ClassTeacher.ID != "t1" {
		t.Fatalf("expected bare teacher id, got %+v", ov.Classes[0].Sections[0].ClassTeacher)
	}
	if len(ov.Teachers) != 1 || len(ov.Students) != 2 || ov.Stats.TotalStudents != 88 {
		t.Fatalf("unexpected overview %+v", ov)
	}
}

func TestOverviewFailsAsAWhole(t *testing.T) {
	srv, _ := newTestServer(t, "/api/school/admin/teachers")
	client := NewClient(srv.URL, "secret")

	ov, err := client.Overview(context.Background(), ClassFilter{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError || apiErr.Message != "Server error" {
		t.Fatalf("expected APIError 500, got %v", err)
	}
	if ov.Classes != nil || ov.Students != nil {
		t.Fatalf("expected no partial overview, got %+v", ov)
	}
}

func TestGetClassPopulatesTeacher(t *testing.T) {
	srv, _ := newTestServer(t, "")
	client := NewClient(srv.URL, "secret")

	class, err := client.GetClass(context.Background(), "c5")
	if err != nil {
		t.Fatalf("get class: %v", err)
	}
	ref := class.Sections[0].ClassTeacher
	if ref.ID != "t1" || ref.Name != "Asha" {
		t.Fatalf("expected populated teacher, got %+v", ref)
	}
}

func TestCreateClassValidatesBeforeSending(t *testing.T) {
	srv, calls := newTestServer(t, "")
	client := NewClient(srv.URL, "secret")

	_, err := client.CreateClass(context.Background(), NewClass{
		ClassNumber: 14,
		Stream:      "Music",
		Sections:    []NewSection{{Name: "", Capacity: 40}},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := map[string]bool{}
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"classNumber", "stream", "sections[0].name"} {
		if !fields[want] {
			t.Fatalf("expected %s in %+v", want, verr.Fields)
		}
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Fatalf("invalid form must not reach the server")
	}
}

func TestCreateClassDefaults(t *testing.T) {
	srv, _ := newTestServer(t, "")
	client := NewClient(srv.URL, "secret")

	class, err := client.CreateClass(context.Background(), NewClass{ClassNumber: 6})
	if err != nil {
		t.Fatalf("create class: %v", err)
	}
	if class.ID != "c9" || class.ClassNumber != 6 || len(class.AcademicYear) != 4 {
		t.Fatalf("unexpected class %+v", class)
	}
}

func TestAddStudentsAndDelete(t *testing.T) {
	srv, calls := newTestServer(t, "")
	client := NewClient(srv.URL, "secret")
	ctx := context.Background()

	var verr *ValidationError
	if err := client.AddStudents(ctx, "c5", "A", nil); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty selection, got %v", err)
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Fatalf("empty selection must not reach the server")
	}
	if err := client.AddStudents(ctx, "c5", "A", []string{"s1", "s2"}); err != nil {
		t.Fatalf("add students: %v", err)
	}
	if err := client.DeleteClass(ctx, "c5"); err != nil {
		t.Fatalf("delete class: %v", err)
	}
	if err := client.DeleteClass(ctx, ""); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty id, got %v", err)
	}
}

func TestUnauthorizedSurfacesMessage(t *testing.T) {
	srv, _ := newTestServer(t, "")
	client := NewClient(srv.URL, "wrong")

	_, err := client.ListAvailableStudents(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Message != "Not authorized" {
		t.Fatalf("expected 401 APIError, got %v", err)
	}

	students, err := NewClient(srv.URL, "secret").ListAvailableStudents(context.Background())
	if err != nil || len(students) != 1 || students[0].ID != "s3" {
		t.Fatalf("unexpected available students %+v err=%v", students, err)
	}
}
