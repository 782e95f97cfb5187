// Package export queues simulated download and share requests for a resume
// and reports their progress. No document file is ever produced.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kalambet/profileai/internal/resume"
	"github.com/kalambet/profileai/internal/storage"
)

// Job types in the queue.
const (
	JobTypeExport = "export_resume"
	JobTypeShare  = "share_resume"
)

// Kind selects between a download and a share request.
type Kind string

const (
	KindExport Kind = "export"
	KindShare  Kind = "share"
)

var (
	// Formats are the download formats, in display order.
	Formats = []string{"pdf", "docx", "doc"}
	// Channels are the share channels.
	Channels = []string{"link", "email"}
)

// ErrUnsupportedTarget is returned for a format or channel outside
// Formats or Channels.
var ErrUnsupportedTarget = errors.New("unsupported target")

// JobStore abstracts the job queue operations.
type JobStore interface {
	EnqueueJob(job storage.Job) error
	GetJob(id string) (storage.Job, error)
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
}

// Payload is the queued request. The document is captured at request time
// so later edits do not change an export in flight.
type Payload struct {
	Kind       Kind            `json:"kind"`
	Target     string          `json:"target"`
	FileName   string          `json:"fileName"`
	TemplateID string          `json:"templateId,omitempty"`
	Document   resume.Document `json:"document"`
}

// Status is the externally visible state of a request.
type Status struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Target    string    `json:"target"`
	FileName  string    `json:"fileName,omitempty"`
	Status    string    `json:"status"`
	Busy      bool      `json:"busy"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Service accepts export and share requests.
type Service struct {
	store JobStore
}

func NewService(store JobStore) *Service {
	return &Service{store: store}
}

// Request checks that doc has its required fields, then queues a simulated
// export (target is a format) or share (target is a channel).
// A *resume.MissingFieldsError is returned when the gate fails.
func (s *Service) Request(doc resume.Document, kind Kind, target string) (Status, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	jobType, err := validateTarget(kind, target)
	if err != nil {
		return Status{}, err
	}
	if err := resume.CheckRequired(doc); err != nil {
		return Status{}, err
	}

	p := Payload{
		Kind:       kind,
		Target:     target,
		FileName:   FileName(doc, ""),
		TemplateID: doc.SelectedTemplate,
		Document:   doc.Clone(),
	}
	if kind == KindExport {
		p.FileName = FileName(doc, target)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return Status{}, fmt.Errorf("marshalling export payload: %w", err)
	}

	job := storage.Job{
		ID:          uuid.New().String(),
		Type:        jobType,
		PayloadJSON: string(data),
	}
	if err := s.store.EnqueueJob(job); err != nil {
		return Status{}, fmt.Errorf("enqueuing %s job: %w", kind, err)
	}
	return s.Status(job.ID)
}

// Status returns the current state of a request, or storage.ErrNotFound.
func (s *Service) Status(id string) (Status, error) {
	j, err := s.store.GetJob(id)
	if err != nil {
		return Status{}, err
	}
	return statusOf(j)
}

func statusOf(j storage.Job) (Status, error) {
	var p Payload
	if err := json.Unmarshal([]byte(j.PayloadJSON), &p); err != nil {
		return Status{}, fmt.Errorf("parsing payload of job %s: %w", j.ID, err)
	}
	st := Status{
		ID:        j.ID,
		Kind:      p.Kind,
		Target:    p.Target,
		Status:    j.Status,
		Busy:      j.Busy(),
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if p.Kind == KindExport {
		st.FileName = p.FileName
	}
	if j.Status == storage.JobFailed {
		st.Error = j.LastError
	}
	return st, nil
}

func validateTarget(kind Kind, target string) (string, error) {
	switch kind {
	case KindExport:
		if !slices.Contains(Formats, target) {
			return "", fmt.Errorf("%w: format %q (want one of %s)", ErrUnsupportedTarget, target, strings.Join(Formats, ", "))
		}
		return JobTypeExport, nil
	case KindShare:
		if !slices.Contains(Channels, target) {
			return "", fmt.Errorf("%w: channel %q (want one of %s)", ErrUnsupportedTarget, target, strings.Join(Channels, ", "))
		}
		return JobTypeShare, nil
	}
	return "", fmt.Errorf("%w: kind %q", ErrUnsupportedTarget, kind)
}

// FileName is the name a download of doc in format would be saved under.
func FileName(doc resume.Document, format string) string {
	base := strings.Join(strings.Fields(doc.PersonalInfo.FullName), "_")
	if base == "" {
		base = "resume"
	} else {
		base += "_Resume"
	}
	if format == "" {
		return base
	}
	return base + "." + format
}
