package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gyeh/codebook/internal/batch"
	"github.com/gyeh/codebook/internal/dictionary"
	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/resolve"
	"github.com/gyeh/codebook/internal/source"
)

// FamilyInfo describes one monthly family.
type FamilyInfo struct {
	Name     string `json:"name"`
	Base     string `json:"base"`
	Present  int    `json:"present"`
	Complete bool   `json:"complete"`
	Missing  []int  `json:"missing,omitempty"`
}

// DictionaryInfo is the body of GET /api/dictionary.
type DictionaryInfo struct {
	Ref             string       `json:"ref"`
	SHA256          string       `json:"sha256"`
	Fields          int          `json:"fields"`
	MonthlyFamilies []FamilyInfo `json:"monthly_families"`
}

func (s *Server) handleDictionary(w http.ResponseWriter, r *http.Request) {
	d := s.dict.Dict
	info := DictionaryInfo{
		Ref:             s.dict.Ref,
		SHA256:          s.dict.SHA256,
		Fields:          d.Len(),
		MonthlyFamilies: []FamilyInfo{},
	}
	for _, fam := range d.MonthlyFamilies() {
		fi := FamilyInfo{Name: fam.Name(), Base: fam.Base, Present: fam.Present(), Complete: fam.Complete()}
		for _, m := range fam.Missing() {
			fi.Missing = append(fi.Missing, int(m))
		}
		info.MonthlyFamilies = append(info.MonthlyFamilies, fi)
	}
	writeJSON(w, http.StatusOK, info)
}

// FieldInfo is the body of GET /api/fields/{key}.
type FieldInfo struct {
	Key           string            `json:"key"`
	Name          string            `json:"name"`
	FreeForm      bool              `json:"free_form"`
	CaseSensitive bool              `json:"case_sensitive"`
	Codes         []string          `json:"codes"`
	Values        map[string]string `json:"values"`
	NullLabel     *string           `json:"null_label,omitempty"`
	Family        string            `json:"family,omitempty"`
	Month         int               `json:"month,omitempty"`
}

func (s *Server) field(w http.ResponseWriter, r *http.Request) (*dictionary.FieldDefinition, bool) {
	def, err := s.dict.Dict.Field(chi.URLParam(r, "key"))
	if err != nil {
		s.respondError(w, r, http.StatusNotFound, "field_not_found", err)
		return nil, false
	}
	return def, true
}

func (s *Server) handleField(w http.ResponseWriter, r *http.Request) {
	def, ok := s.field(w, r)
	if !ok {
		return
	}
	info := FieldInfo{
		Key:           def.Key,
		Name:          def.Name,
		FreeForm:      def.FreeForm(),
		CaseSensitive: def.CaseSensitive(),
		Codes:         def.Codes(),
		Values:        def.Labels(),
	}
	if label, ok := def.NullLabel(); ok {
		info.NullLabel = &label
	}
	if fam, m, ok := s.dict.Dict.FamilyOf(def.Key); ok {
		info.Family = fam.Name()
		info.Month = int(m)
	}
	writeJSON(w, http.StatusOK, info)
}

// ResolveResponse is the body of GET /api/fields/{key}/resolve.
type ResolveResponse struct {
	Key    string       `json:"key"`
	Raw    *string      `json:"raw"`
	Result model.Result `json:"result"`
}

// handleResolve resolves ?raw=CODE; omitting raw resolves a null value. Keys
// the dictionary lacks resolve as unknown fields rather than failing.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	q := r.URL.Query()
	var raw *string
	if q.Has("raw") {
		raw = s.opts.Cleaner.CleanString(q.Get("raw"))
	}
	writeJSON(w, http.StatusOK, ResolveResponse{Key: key, Raw: raw, Result: resolve.Field(s.dict.Dict, key, raw)})
}

// CodesResponse is the body of GET /api/fields/{key}/codes.
type CodesResponse struct {
	Key   string            `json:"key"`
	Label string            `json:"label"`
	Codes []string          `json:"codes"`
	Match map[string]string `json:"labels"`
}

func (s *Server) handleCodes(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	if label == "" {
		s.respondError(w, r, http.StatusBadRequest, "missing_label", errors.New("label query parameter is required"))
		return
	}
	def, ok := s.field(w, r)
	if !ok {
		return
	}
	resp := CodesResponse{Key: def.Key, Label: label, Codes: def.CodesFor(label), Match: map[string]string{}}
	labels := def.Labels()
	for _, c := range resp.Codes {
		resp.Match[c] = labels[c]
	}
	if resp.Codes == nil {
		resp.Codes = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// DecodeResponse is the body of POST /api/decode.
type DecodeResponse struct {
	Records []model.DecodedRecord `json:"records"`
	Report  *batch.Report         `json:"report"`
}

// handleDecode decodes a JSON Lines body. ?anomalies=true returns only the
// records with an unknown code or field; the report always counts every record.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", err)
			return
		}
		s.respondError(w, r, http.StatusBadRequest, "bad_body", err)
		return
	}

	opts := batch.Options{SampleLimitPerKind: s.opts.SampleLimitPerKind}
	if v := r.URL.Query().Get("anomalies"); v != "" {
		only, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, "bad_query", fmt.Errorf("anomalies: %w", err))
			return
		}
		if only {
			opts.Filter = func(_ model.RawRecord, rec model.DecodedRecord) bool {
				return len(rec.Anomalies()) > 0
			}
		}
	}

	proc := batch.New(s.decoder, opts, s.log)
	seq, report := proc.Process(r.Context(), "request", source.JSONLRecords(bytes.NewReader(body), s.opts.Cleaner))
	resp := DecodeResponse{Records: []model.DecodedRecord{}, Report: report}
	for rec, err := range seq {
		if err != nil {
			status, code := decodeFailure(err)
			s.respondError(w, r, status, code, err)
			return
		}
		resp.Records = append(resp.Records, rec)
	}
	writeJSON(w, http.StatusOK, resp)
}

// StatusClientClosedRequest is reported when the client goes away mid-decode.
const StatusClientClosedRequest = 499

// decodeFailure maps a decode error to a status and error code. Only record
// errors are the client's fault; a cancelled or timed out request is not.
func decodeFailure(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled"
	default:
		return http.StatusBadRequest, "bad_record"
	}
}
