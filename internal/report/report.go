// Package report defines emergency reports and their persistence.
//
// A report is assembled from a finished recording, the kind of emergency
// the caller selected and an optional device location. Reports are stored
// through a [Store]; [PostgresStore] is the production implementation and
// [MemoryStore] serves deployments without a database.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/lingualert/pkg/translate"
)

var (
	// ErrInvalid wraps validation failures.
	ErrInvalid = errors.New("report: invalid")

	// ErrDuplicate is returned when a report id already exists.
	ErrDuplicate = errors.New("report: duplicate id")
)

// defaultRecentLimit applies when Recent is called with limit <= 0.
const defaultRecentLimit = 50

// EmergencyType is the kind of emergency being reported.
type EmergencyType string

const (
	Medical         EmergencyType = "medical"
	Fire            EmergencyType = "fire"
	NaturalDisaster EmergencyType = "natural-disaster"
	Crime           EmergencyType = "crime"
	Accident        EmergencyType = "accident"
	Other           EmergencyType = "other"
)

// Types lists every valid emergency type.
var Types = []EmergencyType{Medical, Fire, NaturalDisaster, Crime, Accident, Other}

// Valid reports whether t is a known emergency type.
func (t EmergencyType) Valid() bool {
	for _, v := range Types {
		if t == v {
			return true
		}
	}
	return false
}

// Location is a device position in WGS84 with its accuracy radius in
// meters.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// Validate checks coordinate ranges.
func (l *Location) Validate() error {
	var errs []error
	if l.Latitude < -90 || l.Latitude > 90 {
		errs = append(errs, fmt.Errorf("latitude %v out of range [-90, 90]", l.Latitude))
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		errs = append(errs, fmt.Errorf("longitude %v out of range [-180, 180]", l.Longitude))
	}
	if l.Accuracy < 0 {
		errs = append(errs, errors.New("accuracy must not be negative"))
	}
	return errors.Join(errs...)
}

// Report is an emergency report.
type Report struct {
	ID                    string           `json:"id"`
	RecordingID           string           `json:"recording_id,omitempty"`
	Audio                 []byte           `json:"-"`
	AudioType             string           `json:"audio_type,omitempty"`
	OriginalText          string           `json:"original_text"`
	TranslatedText        string           `json:"translated_text,omitempty"`
	SourceLanguage        string           `json:"source_language,omitempty"`
	TranslationStatus     translate.Status `json:"translation_status"`
	TranslationConfidence *float64         `json:"translation_confidence,omitempty"`
	Confidence            float64          `json:"confidence"`
	EmergencyType         EmergencyType    `json:"emergency_type"`
	Location              *Location        `json:"location,omitempty"`
	Timestamp             time.Time        `json:"timestamp"`
}

// Draft is the input to [New].
type Draft struct {
	RecordingID   string
	Audio         []byte
	AudioType     string
	Transcript    string
	Confidence    float64
	Translation   *translate.Result
	EmergencyType EmergencyType
	Location      *Location
}

// New builds a report with a fresh id and the current time. A missing
// translation leaves the status pending.
func New(d Draft) *Report {
	r := &Report{
		ID:                uuid.NewString(),
		RecordingID:       d.RecordingID,
		Audio:             d.Audio,
		AudioType:         d.AudioType,
		OriginalText:      d.Transcript,
		Confidence:        d.Confidence,
		EmergencyType:     d.EmergencyType,
		Location:          d.Location,
		TranslationStatus: translate.StatusPending,
		Timestamp:         time.Now().UTC(),
	}
	if t := d.Translation; t != nil {
		r.TranslatedText = t.TranslatedText
		r.SourceLanguage = t.SourceLanguage
		if t.Status != "" {
			r.TranslationStatus = t.Status
		}
		conf := t.Confidence
		r.TranslationConfidence = &conf
	}
	return r
}

// Validate reports every problem with r.
func (r *Report) Validate() error {
	var errs []error
	if _, err := uuid.Parse(r.ID); err != nil {
		errs = append(errs, fmt.Errorf("id %q is not a UUID", r.ID))
	}
	if len(r.Audio) == 0 {
		errs = append(errs, errors.New("no audio data available"))
	}
	if strings.TrimSpace(r.OriginalText) == "" {
		errs = append(errs, errors.New("original_text must not be empty"))
	}
	if !r.EmergencyType.Valid() {
		errs = append(errs, fmt.Errorf("emergency_type %q is not one of %v", r.EmergencyType, Types))
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		errs = append(errs, fmt.Errorf("confidence %v out of range [0, 1]", r.Confidence))
	}
	if r.Location != nil {
		if err := r.Location.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("location: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Store persists reports. Implementations must be safe for concurrent use.
type Store interface {
	// Create validates and inserts r. Inserting an existing id fails.
	Create(ctx context.Context, r *Report) error

	// Get returns the report with the given id, or (nil, nil) if none.
	Get(ctx context.Context, id string) (*Report, error)

	// Recent returns up to limit reports, newest first.
	Recent(ctx context.Context, limit int) ([]Report, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}
