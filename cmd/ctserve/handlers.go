package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/carbocation/qpcr/analysis"
	"github.com/carbocation/qpcr/archive"
	"github.com/carbocation/qpcr/compileinfo"
	"github.com/carbocation/qpcr/ingest"
	"github.com/carbocation/qpcr/report"
	"github.com/carbocation/qpcr/rules"
	"github.com/carbocation/qpcr/samples"
	"github.com/gorilla/mux"
)

// Plates and panels are small; anything bigger than this is a mistake.
const maxBodyBytes = 32 << 20

type handler struct {
	*Global
	router *mux.Router
}

func writeJSON(h *handler, w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		h.log.Println(err)
	}
}

func HTTPError(h *handler, w http.ResponseWriter, r *http.Request, status int, err error) {
	h.log.Printf("%s %s: %v\n", r.Method, r.URL.Path, err)
	writeJSON(h, w, status, struct {
		Error string `json:"error"`
	}{err.Error()})
}

// storeStatus maps a store error onto a response code.
func storeStatus(err error) int {
	if errors.Is(err, rules.ErrInvalidName) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *handler) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(h, w, http.StatusOK, compileinfo.Get())
}

func (h *handler) ListPanels(w http.ResponseWriter, r *http.Request) {
	names, err := h.PanelNames()
	if err != nil {
		HTTPError(h, w, r, http.StatusInternalServerError, err)
		return
	}
	if names == nil {
		names = []string{}
	}

	writeJSON(h, w, http.StatusOK, names)
}

func (h *handler) GetPanel(w http.ResponseWriter, r *http.Request) {
	p, err := h.LoadPanel(mux.Vars(r)["name"])
	if err != nil {
		HTTPError(h, w, r, storeStatus(err), err)
		return
	}

	writeJSON(h, w, http.StatusOK, p)
}

func (h *handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	p, err := h.LoadPanel(mux.Vars(r)["name"])
	if err != nil {
		HTTPError(h, w, r, storeStatus(err), err)
		return
	}

	writeJSON(h, w, http.StatusOK, p.Channels)
}

func (h *handler) PutPanel(w http.ResponseWriter, r *http.Request) {
	p := &rules.Panel{}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(p); err != nil {
		HTTPError(h, w, r, http.StatusBadRequest, fmt.Errorf("panel document: %w", err))
		return
	}

	// The URL names the panel
	p.Name = mux.Vars(r)["name"]

	if err := h.SavePanel(p); err != nil {
		HTTPError(h, w, r, storeStatus(err), err)
		return
	}

	writeJSON(h, w, http.StatusOK, p)
}

type analysisResponse struct {
	Panel        string            `json:"panel"`
	PanelVersion string            `json:"panelVersion"`
	PanelDigest  string            `json:"panelDigest"`
	RunID        int64             `json:"runId,omitempty"`
	Results      []analysis.Result `json:"results"`
	Samples      []samples.Mapping `json:"samples"`
	Summary      []report.Summary  `json:"summary"`
}

// Analyze interprets the well list in the request body with the named panel.
// ?format=tsv returns the tab-delimited report instead of JSON; ?archive=false
// skips archiving when the server has an archive.
func (h *handler) Analyze(w http.ResponseWriter, r *http.Request) {
	panel, err := h.LoadPanel(mux.Vars(r)["name"])
	if err != nil {
		HTTPError(h, w, r, storeStatus(err), err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		HTTPError(h, w, r, http.StatusBadRequest, err)
		return
	}

	wells, err := ingest.ReadWells(body)
	if err != nil {
		HTTPError(h, w, r, http.StatusBadRequest, err)
		return
	}

	results, err := analysis.New(panel, analysis.WithLogger(h.log)).Analyze(r.Context(), wells)
	if err != nil {
		HTTPError(h, w, r, http.StatusServiceUnavailable, err)
		return
	}

	groups := samples.NewMapper(nil).Group(wells, results)
	results = samples.Annotate(results, groups)

	run, err := archive.NewRun(panel, r.RemoteAddr)
	if err != nil {
		HTTPError(h, w, r, http.StatusInternalServerError, err)
		return
	}

	if h.archive != nil && r.URL.Query().Get("archive") != "false" {
		if run.ID, err = h.archive.Record(r.Context(), run, results); err != nil {
			HTTPError(h, w, r, http.StatusInternalServerError, err)
			return
		}
	}

	if r.URL.Query().Get("format") == "tsv" {
		w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
		if err := report.WriteResults(w, results); err != nil {
			h.log.Println(err)
		}
		return
	}

	writeJSON(h, w, http.StatusOK, analysisResponse{
		Panel:        panel.Name,
		PanelVersion: panel.Version,
		PanelDigest:  run.PanelDigest,
		RunID:        run.ID,
		Results:      results,
		Samples:      groups,
		Summary:      report.Summarize(results),
	})
}

func (h *handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		HTTPError(h, w, r, http.StatusNotFound, fmt.Errorf("this server does not keep an archive"))
		return
	}

	runs, err := h.archive.Runs(r.Context())
	if err != nil {
		HTTPError(h, w, r, http.StatusInternalServerError, err)
		return
	}

	writeJSON(h, w, http.StatusOK, runs)
}

func (h *handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		HTTPError(h, w, r, http.StatusNotFound, fmt.Errorf("this server does not keep an archive"))
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		HTTPError(h, w, r, http.StatusBadRequest, err)
		return
	}

	run, err := h.archive.Run(r.Context(), id)
	if errors.Is(err, archive.ErrNoRun) {
		HTTPError(h, w, r, http.StatusNotFound, err)
		return
	} else if err != nil {
		HTTPError(h, w, r, http.StatusInternalServerError, err)
		return
	}

	results, err := h.archive.Results(r.Context(), id)
	if err != nil {
		HTTPError(h, w, r, http.StatusInternalServerError, err)
		return
	}

	writeJSON(h, w, http.StatusOK, struct {
		Run     archive.Run       `json:"run"`
		Results []analysis.Result `json:"results"`
	}{run, results})
}
