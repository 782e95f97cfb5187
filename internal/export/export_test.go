package export

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/profileai/internal/resume"
	"github.com/kalambet/profileai/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func completeDocument() resume.Document {
	d := resume.UpdatePersonalInfo(resume.Default(), resume.FullName("Jane Doe"))
	return resume.UpdatePersonalInfo(d, resume.Email("jane@example.com"))
}

type notificationRecorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *notificationRecorder) record(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *notificationRecorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

func TestRequest_GateRejectsIncompleteDocument(t *testing.T) {
	svc := NewService(openTestStore(t))

	_, err := svc.Request(resume.Default(), KindExport, "pdf")
	var missing *resume.MissingFieldsError
	if !errors.As(err, &missing) {
		t.Fatalf("Request err = %v, want *resume.MissingFieldsError", err)
	}
	if len(missing.Fields) != 2 {
		t.Errorf("missing fields = %v, want fullName and email", missing.Fields)
	}
}

func TestRequest_UnsupportedTarget(t *testing.T) {
	svc := NewService(openTestStore(t))

	tests := []struct {
		kind   Kind
		target string
	}{
		{KindExport, "odt"},
		{KindShare, "fax"},
		{Kind("print"), "pdf"},
	}
	for _, tt := range tests {
		if _, err := svc.Request(completeDocument(), tt.kind, tt.target); !errors.Is(err, ErrUnsupportedTarget) {
			t.Errorf("Request(%s, %s) err = %v, want ErrUnsupportedTarget", tt.kind, tt.target, err)
		}
	}
}

func TestRequest_QueuesPendingJob(t *testing.T) {
	svc := NewService(openTestStore(t))

	st, err := svc.Request(completeDocument(), KindExport, " PDF ")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if st.ID == "" {
		t.Fatal("empty job id")
	}
	if st.Status != storage.JobPending || !st.Busy {
		t.Errorf("status = %q busy=%v, want pending busy", st.Status, st.Busy)
	}
	if st.Target != "pdf" || st.FileName != "Jane_Doe_Resume.pdf" {
		t.Errorf("Target = %q FileName = %q", st.Target, st.FileName)
	}

	if _, err := svc.Status("nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Status(nope) err = %v, want ErrNotFound", err)
	}
}

func TestWorker_CompletesAndNotifies(t *testing.T) {
	store := openTestStore(t)
	svc := NewService(store)
	rec := &notificationRecorder{}
	w := NewWorker(store, 0, 0)
	w.OnNotify(rec.record)

	exp, err := svc.Request(completeDocument(), KindExport, "docx")
	if err != nil {
		t.Fatalf("Request export: %v", err)
	}
	share, err := svc.Request(completeDocument(), KindShare, "link")
	if err != nil {
		t.Fatalf("Request share: %v", err)
	}

	for i := 0; i < 2; i++ {
		done, err := w.RunOnce(context.Background())
		if err != nil || !done {
			t.Fatalf("RunOnce #%d = %v, %v", i, done, err)
		}
	}
	if done, _ := w.RunOnce(context.Background()); done {
		t.Error("RunOnce on empty queue reported work")
	}

	for _, id := range []string{exp.ID, share.ID} {
		st, err := svc.Status(id)
		if err != nil {
			t.Fatalf("Status(%s): %v", id, err)
		}
		if st.Status != storage.JobCompleted || st.Busy {
			t.Errorf("job %s status = %q busy=%v, want completed", id, st.Status, st.Busy)
		}
	}

	notes := rec.all()
	if len(notes) != 2 {
		t.Fatalf("notifications = %d, want 2", len(notes))
	}
	for _, n := range notes {
		if !n.Success {
			t.Errorf("notification %+v not successful", n)
		}
	}
	if notes[0].FileName != "Jane_Doe_Resume.docx" {
		t.Errorf("export notification FileName = %q", notes[0].FileName)
	}
	if notes[1].Message != "Share link generated" {
		t.Errorf("share notification Message = %q", notes[1].Message)
	}
}

func TestWorker_MalformedPayloadEventuallyFails(t *testing.T) {
	store := openTestStore(t)
	rec := &notificationRecorder{}
	w := NewWorker(store, 0, 0)
	w.OnNotify(rec.record)

	if err := store.EnqueueJob(storage.Job{ID: "bad", Type: JobTypeExport, PayloadJSON: `{not json`, MaxAttempts: 1}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	done, err := w.RunOnce(context.Background())
	if err != nil || !done {
		t.Fatalf("RunOnce = %v, %v", done, err)
	}
	j, _ := store.GetJob("bad")
	if j.Status != storage.JobFailed {
		t.Errorf("status = %q, want failed", j.Status)
	}
	notes := rec.all()
	if len(notes) != 1 || notes[0].Success {
		t.Errorf("notifications = %+v, want one failure", notes)
	}
}

func TestWorker_DelayHonorsCancellation(t *testing.T) {
	store := openTestStore(t)
	svc := NewService(store)
	w := NewWorker(store, time.Hour, 0)

	st, err := svc.Request(completeDocument(), KindExport, "pdf")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("RunOnce ignored cancellation, took %v", elapsed)
	}

	got, _ := svc.Status(st.ID)
	if got.Status != storage.JobPending {
		t.Errorf("interrupted job status = %q, want pending for retry", got.Status)
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	store := openTestStore(t)
	svc := NewService(store)
	rec := &notificationRecorder{}
	w := NewWorker(store, 10*time.Millisecond, 5*time.Millisecond)
	w.OnNotify(rec.record)

	if _, err := svc.Request(completeDocument(), KindShare, "email"); err != nil {
		t.Fatalf("Request: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.all()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	notes := rec.all()
	if len(notes) != 1 || notes[0].Message != "Resume shared by email" {
		t.Errorf("notifications = %+v", notes)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(resume.Default(), "pdf"); got != "resume.pdf" {
		t.Errorf("FileName(default) = %q", got)
	}
	d := resume.UpdatePersonalInfo(resume.Default(), resume.FullName("  Mary  Ann Smith "))
	if got := FileName(d, "doc"); got != "Mary_Ann_Smith_Resume.doc" {
		t.Errorf("FileName = %q", got)
	}
}
