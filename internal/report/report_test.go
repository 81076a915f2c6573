package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrWong99/lingualert/pkg/translate"
)

type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

type mockRows struct {
	rows   [][]any
	idx    int
	closed bool
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return nil }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }

func (r *mockRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error { return assign(r.rows[r.idx-1], dest) }

// assign copies row values into scan destinations.
func assign(row []any, dest []any) error {
	if len(row) != len(dest) {
		return fmt.Errorf("scan: %d columns, %d destinations", len(row), len(dest))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *[]byte:
			if v != nil {
				*d = v.([]byte)
			}
		case *float64:
			*d = v.(float64)
		case **float64:
			if v != nil {
				f := v.(float64)
				*d = &f
			}
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

type mockDB struct {
	queryRow func(sql string, args ...any) pgx.Row
	query    func(sql string, args ...any) (pgx.Rows, error)
	exec     func(sql string, args ...any) (pgconn.CommandTag, error)
	pingErr  error
}

func (m *mockDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if m.queryRow != nil {
		return m.queryRow(sql, args...)
	}
	return &mockRow{scanFunc: func(...any) error { return pgx.ErrNoRows }}
}

func (m *mockDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.query != nil {
		return m.query(sql, args...)
	}
	return &mockRows{}, nil
}

func (m *mockDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.exec != nil {
		return m.exec(sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func (m *mockDB) Ping(context.Context) error { return m.pingErr }

func validReport() *Report {
	return New(Draft{
		RecordingID:   "rec-1",
		Audio:         []byte("OggS"),
		AudioType:     "audio/ogg; codecs=opus",
		Transcript:    "necesito ayuda",
		Confidence:    0.9,
		EmergencyType: Medical,
		Translation: &translate.Result{
			TranslatedText: "I need help",
			SourceLanguage: "es",
			Confidence:     0.92,
			Status:         translate.StatusCompleted,
		},
		Location: &Location{Latitude: 52.52, Longitude: 13.405, Accuracy: 12},
	})
}

func TestNew(t *testing.T) {
	r := validReport()
	if r.TranslatedText != "I need help" || r.SourceLanguage != "es" || r.TranslationStatus != translate.StatusCompleted {
		t.Errorf("translation fields = (%q, %q, %q)", r.TranslatedText, r.SourceLanguage, r.TranslationStatus)
	}
	if r.TranslationConfidence == nil || *r.TranslationConfidence != 0.92 {
		t.Errorf("TranslationConfidence = %v, want 0.92", r.TranslationConfidence)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	bare := New(Draft{Audio: []byte("x"), Transcript: "Audio recorded", EmergencyType: Other})
	if bare.TranslationStatus != translate.StatusPending {
		t.Errorf("TranslationStatus = %q, want pending", bare.TranslationStatus)
	}
	if bare.TranslationConfidence != nil {
		t.Errorf("TranslationConfidence = %v, want nil", *bare.TranslationConfidence)
	}
	if bare.ID == r.ID {
		t.Error("reports share an id")
	}
}

func TestReport_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Report)
		wantErr []string
	}{
		{name: "valid", mutate: func(*Report) {}},
		{name: "no location", mutate: func(r *Report) { r.Location = nil }},
		{name: "bad id", mutate: func(r *Report) { r.ID = "abc" }, wantErr: []string{`id "abc" is not a UUID`}},
		{name: "no audio", mutate: func(r *Report) { r.Audio = nil }, wantErr: []string{"no audio data available"}},
		{name: "blank text", mutate: func(r *Report) { r.OriginalText = "  " }, wantErr: []string{"original_text must not be empty"}},
		{name: "unknown type", mutate: func(r *Report) { r.EmergencyType = "flood" }, wantErr: []string{`emergency_type "flood"`}},
		{name: "confidence", mutate: func(r *Report) { r.Confidence = 1.5 }, wantErr: []string{"confidence 1.5 out of range"}},
		{
			name:    "location",
			mutate:  func(r *Report) { r.Location = &Location{Latitude: 91, Longitude: -200} },
			wantErr: []string{"latitude 91 out of range", "longitude -200 out of range"},
		},
		{
			name:   "several",
			mutate: func(r *Report) {
				r.Audio = nil
				r.EmergencyType = ""
			},
			wantErr: []string{"no audio data available", "emergency_type"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validReport()
			tt.mutate(r)
			err := r.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() = %v, want ErrInvalid", err)
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not contain %q", err, want)
				}
			}
		})
	}
}

func TestEmergencyType_Valid(t *testing.T) {
	for _, et := range Types {
		if !et.Valid() {
			t.Errorf("%q.Valid() = false", et)
		}
	}
	if EmergencyType("Medical").Valid() {
		t.Error(`"Medical".Valid() = true, want case-sensitive match`)
	}
}

func TestPostgresStore_Migrate(t *testing.T) {
	var got string
	s := NewPostgresStore(&mockDB{exec: func(sql string, _ ...any) (pgconn.CommandTag, error) {
		got = sql
		return pgconn.CommandTag{}, nil
	}})
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !strings.Contains(got, "CREATE TABLE IF NOT EXISTS emergency_reports") {
		t.Errorf("Migrate executed %q", got)
	}

	s = NewPostgresStore(&mockDB{exec: func(string, ...any) (pgconn.CommandTag, error) {
		return pgconn.CommandTag{}, errors.New("permission denied")
	}})
	if err := s.Migrate(context.Background()); err == nil || !strings.Contains(err.Error(), "report: migrate") {
		t.Errorf("Migrate err = %v, want wrapped error", err)
	}
}

func TestPostgresStore_Create(t *testing.T) {
	var args []any
	s := NewPostgresStore(&mockDB{exec: func(_ string, a ...any) (pgconn.CommandTag, error) {
		args = a
		return pgconn.CommandTag{}, nil
	}})
	r := validReport()
	if err := s.Create(context.Background(), r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(args) != 13 {
		t.Fatalf("args = %d, want 13", len(args))
	}
	if args[0] != r.ID {
		t.Errorf("report_id = %v, want %v", args[0], r.ID)
	}
	if p, ok := args[5].(*string); !ok || *p != "I need help" {
		t.Errorf("translated_text = %v, want pointer to text", args[5])
	}
	if args[7] != "completed" || args[10] != "medical" {
		t.Errorf("status/type = %v/%v", args[7], args[10])
	}
	if loc, ok := args[11].([]byte); !ok || !strings.Contains(string(loc), `"latitude":52.52`) {
		t.Errorf("location_data = %s", args[11])
	}

	r.TranslatedText = ""
	r.Location = nil
	r.ID = New(Draft{}).ID
	if err := s.Create(context.Background(), r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p := args[5].(*string); p != nil {
		t.Errorf("translated_text = %q, want NULL", *p)
	}
	if loc := args[11].([]byte); loc != nil {
		t.Errorf("location_data = %s, want NULL", loc)
	}
}

func TestPostgresStore_CreateErrors(t *testing.T) {
	dup := NewPostgresStore(&mockDB{exec: func(string, ...any) (pgconn.CommandTag, error) {
		return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"}
	}})
	if err := dup.Create(context.Background(), validReport()); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate err = %v, want ErrDuplicate", err)
	}

	called := false
	invalid := NewPostgresStore(&mockDB{exec: func(string, ...any) (pgconn.CommandTag, error) {
		called = true
		return pgconn.CommandTag{}, nil
	}})
	r := validReport()
	r.Audio = nil
	if err := invalid.Create(context.Background(), r); !errors.Is(err, ErrInvalid) {
		t.Errorf("invalid err = %v, want ErrInvalid", err)
	}
	if called {
		t.Error("invalid report reached the database")
	}
}

func rowFor(r *Report, loc []byte) []any {
	var tc any
	if r.TranslationConfidence != nil {
		tc = *r.TranslationConfidence
	}
	var l any
	if loc != nil {
		l = loc
	}
	return []any{
		r.ID, r.RecordingID, r.Audio, r.AudioType, r.OriginalText,
		r.TranslatedText, r.SourceLanguage,
		string(r.TranslationStatus), tc, r.Confidence,
		string(r.EmergencyType), l, r.Timestamp,
	}
}

func TestPostgresStore_Get(t *testing.T) {
	want := validReport()
	row := rowFor(want, []byte(`{"latitude":52.52,"longitude":13.405,"accuracy":12}`))
	s := NewPostgresStore(&mockDB{queryRow: func(_ string, args ...any) pgx.Row {
		return &mockRow{scanFunc: func(dest ...any) error {
			if args[0] != want.ID {
				return pgx.ErrNoRows
			}
			return assign(row, dest)
		}}
	}})

	got, err := s.Get(context.Background(), want.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.OriginalText != want.OriginalText || got.EmergencyType != Medical || got.TranslationStatus != translate.StatusCompleted {
		t.Errorf("Get = %+v", got)
	}
	if got.Location == nil || *got.Location != *want.Location {
		t.Errorf("Location = %+v, want %+v", got.Location, want.Location)
	}
	if got.TranslationConfidence == nil || *got.TranslationConfidence != 0.92 {
		t.Errorf("TranslationConfidence = %v", got.TranslationConfidence)
	}

	missing, err := s.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	if err != nil || missing != nil {
		t.Errorf("Get(missing) = (%v, %v), want (nil, nil)", missing, err)
	}
}

func TestPostgresStore_Recent(t *testing.T) {
	a, b := validReport(), validReport()
	b.Location = nil
	b.TranslationConfidence = nil
	rows := &mockRows{rows: [][]any{rowFor(a, []byte(`{"latitude":1,"longitude":2,"accuracy":3}`)), rowFor(b, nil)}}
	var gotLimit any
	s := NewPostgresStore(&mockDB{query: func(_ string, args ...any) (pgx.Rows, error) {
		gotLimit = args[0]
		return rows, nil
	}})

	got, err := s.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if gotLimit != 50 {
		t.Errorf("limit = %v, want default 50", gotLimit)
	}
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != b.ID {
		t.Errorf("Recent = %d reports", len(got))
	}
	if got[1].Location != nil || got[1].TranslationConfidence != nil {
		t.Error("NULL columns decoded as values")
	}
	if !rows.closed {
		t.Error("rows not closed")
	}
}

func TestPostgresStore_Ping(t *testing.T) {
	if err := NewPostgresStore(&mockDB{}).Ping(context.Background()); err != nil {
		t.Errorf("Ping = %v, want nil", err)
	}
	down := NewPostgresStore(&mockDB{pingErr: errors.New("connection refused")})
	if err := down.Ping(context.Background()); err == nil || !strings.Contains(err.Error(), "report: ping") {
		t.Errorf("Ping = %v, want wrapped error", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	first := validReport()
	first.Timestamp = time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	if err := s.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, first); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate Create = %v, want ErrDuplicate", err)
	}
	if err := s.Create(ctx, &Report{ID: "nope"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("invalid Create = %v, want ErrInvalid", err)
	}

	got, err := s.Get(ctx, first.ID)
	if err != nil || got == nil || got.OriginalText != first.OriginalText {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if missing, err := s.Get(ctx, "00000000-0000-0000-0000-000000000000"); missing != nil || err != nil {
		t.Errorf("Get(missing) = %v, %v, want nil, nil", missing, err)
	}

	second, third := validReport(), validReport()
	second.Timestamp = first.Timestamp.Add(time.Hour)
	third.Timestamp = first.Timestamp.Add(2 * time.Hour)
	for _, r := range []*Report{second, third} {
		if err := s.Create(ctx, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2 after eviction", s.Len())
	}
	if got, _ := s.Get(ctx, first.ID); got != nil {
		t.Error("oldest report was not evicted")
	}

	recent, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != third.ID || recent[1].ID != second.ID {
		t.Errorf("Recent order = %v, want newest first", recent)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping = %v", err)
	}
}
