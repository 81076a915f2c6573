package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrWong99/lingualert/internal/events"
	"github.com/MrWong99/lingualert/internal/observe"
	"github.com/MrWong99/lingualert/internal/report"
	"github.com/MrWong99/lingualert/pkg/langdetect"
	"github.com/MrWong99/lingualert/pkg/language"
	"github.com/MrWong99/lingualert/pkg/provider/tts"
	"github.com/MrWong99/lingualert/pkg/translate"
)

const (
	maxBodyBytes = 1 << 20

	// maxDetectBatch bounds the texts accepted by one detect request.
	maxDetectBatch = 100
)

// Error codes of API responses that are not produced by a service.
const (
	codeInvalidRequest    = "invalid_request"
	codeUnconfigured      = "unconfigured"
	codeNotFound          = "not_found"
	codeRecordingNotFound = "recording_not_found"
	codeDuplicate         = "duplicate"
	codeInternal          = "internal"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// decodeJSON reads a size-limited JSON body into v. It writes a 400
// response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

type detectRequest struct {
	Text     string   `json:"text"`
	Texts    []string `json:"texts"`
	Enhanced bool     `json:"enhanced"`
}

type detectResponse struct {
	Detection  *langdetect.Detection   `json:"detection,omitempty"`
	Enhanced   *langdetect.Enhanced    `json:"enhanced,omitempty"`
	Detections []*langdetect.Detection `json:"detections,omitempty"`
}

func (a *App) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	det := a.current().detector
	if !det.Available() {
		writeError(w, http.StatusServiceUnavailable, codeUnconfigured, "Language detection is not configured.")
		return
	}
	ctx := r.Context()

	if len(req.Texts) > 0 {
		if len(req.Texts) > maxDetectBatch {
			writeError(w, http.StatusBadRequest, codeInvalidRequest,
				"At most "+strconv.Itoa(maxDetectBatch)+" texts per request.")
			return
		}
		writeJSON(w, http.StatusOK, detectResponse{Detections: det.DetectBatch(ctx, req.Texts)})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Text is required.")
		return
	}
	if req.Enhanced {
		writeJSON(w, http.StatusOK, detectResponse{Enhanced: det.DetectEnhanced(ctx, req.Text)})
		return
	}
	writeJSON(w, http.StatusOK, detectResponse{Detection: det.Detect(ctx, req.Text)})
}

type translateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
}

func (a *App) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := a.current().translator.TranslateToEnglish(r.Context(), req.Text, req.SourceLanguage)
	if err != nil {
		var te *translate.Error
		if errors.As(err, &te) {
			writeError(w, te.HTTPStatus(), string(te.Code), te.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternal, "Translation failed.")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type speechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

func (a *App) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	svc := a.current()
	voice := req.Voice
	if voice == "" {
		voice = svc.voice
	}
	out, err := svc.speech.Speak(r.Context(), req.Text, voice)
	if err != nil {
		var te *tts.Error
		if errors.As(err, &te) {
			writeError(w, speechStatus(te.Code), string(te.Code), te.Message)
			return
		}
		writeError(w, http.StatusBadGateway, string(tts.CodeUnknown), "Speech generation failed.")
		return
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}

// speechStatus maps a synthesis failure to the status returned to the
// browser.
func speechStatus(code tts.Code) int {
	switch code {
	case tts.CodeInvalidInput, tts.CodeInvalidVoice, tts.CodeInvalidRequest:
		return http.StatusBadRequest
	case tts.CodeAPIKeyMissing:
		return http.StatusServiceUnavailable
	case tts.CodeRateLimited:
		return http.StatusTooManyRequests
	case tts.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (a *App) handleVoices(w http.ResponseWriter, _ *http.Request) {
	svc := a.current()
	if !svc.speech.Available() {
		writeError(w, http.StatusServiceUnavailable, string(tts.CodeAPIKeyMissing), "Speech synthesis is not configured.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": svc.speech.Voices()})
}

type languagesResponse struct {
	Script    string          `json:"script,omitempty"`
	Languages []language.Info `json:"languages"`
}

// handleLanguages lists the catalogue, optionally narrowed to a script
// given directly or inferred from a text sample.
func (a *App) handleLanguages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	script := q.Get("script")
	if text := q.Get("text"); text != "" && script == "" {
		script, _ = language.ScriptOf(text)
	}
	if script == "" {
		writeJSON(w, http.StatusOK, languagesResponse{Languages: language.Supported()})
		return
	}
	langs := language.ByScript(script)
	if langs == nil {
		langs = []language.Info{}
	}
	writeJSON(w, http.StatusOK, languagesResponse{Script: script, Languages: langs})
}

func (a *App) handleLanguage(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	info, ok := language.Lookup(code)
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "Unsupported language: "+code)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (a *App) handleRecording(w http.ResponseWriter, r *http.Request) {
	res, ok := a.stash.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, codeRecordingNotFound, "Recording not found or expired.")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *App) handleRecordingAudio(w http.ResponseWriter, r *http.Request) {
	res, ok := a.stash.Get(r.PathValue("id"))
	if !ok || len(res.Audio) == 0 {
		writeError(w, http.StatusNotFound, codeRecordingNotFound, "Recording audio not found or expired.")
		return
	}
	w.Header().Set("Content-Type", res.AudioType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Audio)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Audio)
}

type createReportRequest struct {
	// RecordingID references a finished recording in the stash.
	RecordingID string `json:"recording_id"`

	// OriginalText replaces the recorded transcript when the person
	// corrected it.
	OriginalText string `json:"original_text"`

	EmergencyType report.EmergencyType `json:"emergency_type"`
	Location      *report.Location     `json:"location"`
}

func (a *App) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()
	log := observe.Logger(ctx)
	text := strings.TrimSpace(req.OriginalText)

	if req.RecordingID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "recording_id is required.")
		return
	}
	res, ok := a.stash.Get(req.RecordingID)
	if !ok {
		writeError(w, http.StatusNotFound, codeRecordingNotFound, "Recording not found or expired.")
		return
	}
	draft := report.Draft{
		RecordingID:   req.RecordingID,
		Audio:         res.Audio,
		AudioType:     res.AudioType,
		Transcript:    res.Transcript,
		Confidence:    res.Confidence,
		Translation:   res.Translation,
		EmergencyType: req.EmergencyType,
		Location:      req.Location,
	}
	if text != "" && text != res.Transcript {
		draft.Transcript = text
		draft.Translation = a.translateReport(r, text, res.Language)
	}

	rep := report.New(draft)
	if err := rep.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	if err := a.reports.Create(ctx, rep); err != nil {
		switch {
		case errors.Is(err, report.ErrInvalid):
			writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		case errors.Is(err, report.ErrDuplicate):
			writeError(w, http.StatusConflict, codeDuplicate, "Report already exists.")
		default:
			log.Error("report create failed", "err", err)
			writeError(w, http.StatusInternalServerError, codeInternal, "Report could not be saved.")
		}
		return
	}
	a.stash.Delete(req.RecordingID)

	a.metrics.RecordReport(ctx, string(rep.EmergencyType))
	a.publish(ctx, events.NewEvent(events.TypeReportCreated, rep.ID, rep))
	log.Info("report created",
		"id", rep.ID, "type", rep.EmergencyType, "recording", rep.RecordingID,
		"translation_status", rep.TranslationStatus)
	writeJSON(w, http.StatusCreated, rep)
}

// translateReport translates a corrected transcript. A failed or
// unavailable translation leaves the report pending.
func (a *App) translateReport(r *http.Request, text, hint string) *translate.Result {
	tr := a.current().translator
	if !tr.Available() {
		return nil
	}
	res, err := tr.TranslateToEnglish(r.Context(), text, hint)
	if err != nil {
		return nil
	}
	return &res
}

func (a *App) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rep, err := a.reports.Get(r.Context(), id)
	if err != nil {
		observe.Logger(r.Context()).Error("report lookup failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "Report lookup failed.")
		return
	}
	if rep == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "Report not found.")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *App) handleRecentReports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "limit must be a non-negative integer.")
			return
		}
		limit = n
	}
	reps, err := a.reports.Recent(r.Context(), limit)
	if err != nil {
		observe.Logger(r.Context()).Error("recent reports lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "Report lookup failed.")
		return
	}
	if reps == nil {
		reps = []report.Report{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reps})
}
