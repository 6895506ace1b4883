package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"

	rasterprofile "github.com/tingold/orb-rasterprofile"
)

// apiResponse is the JSON envelope of the catalog endpoints.
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: false, Error: message})
}

// statusOf maps catalog errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, rasterprofile.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	paths, err := s.engine.List()
	if err != nil {
		s.logger.Error("listing datasets", "error", err)
		sendError(w, err.Error(), statusOf(err))
		return
	}
	s.metrics.SetDatasets(len(paths))
	if paths == nil {
		paths = []string{}
	}
	sendSuccess(w, map[string]interface{}{"datasets": paths})
}

// handleGetDataset writes the derived profile of one dataset as YAML.
func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if path == "" {
		sendError(w, "dataset path is required", http.StatusBadRequest)
		return
	}

	ds, err := rasterprofile.Open(s.engine, path, rasterprofile.ModeRead, nil)
	if err != nil {
		sendError(w, err.Error(), statusOf(err))
		return
	}
	defer ds.Close()

	p, err := rasterprofile.FromDataset(ds)
	if err != nil {
		s.logger.Error("reading dataset", "path", path, "error", err)
		sendError(w, err.Error(), statusOf(err))
		return
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(data)
}

// handleFlatGeobuf serves the footprint index of the catalog, optionally
// limited to the datasets intersecting ?bbox=minx,miny,maxx,maxy.
func (s *Server) handleFlatGeobuf(w http.ResponseWriter, r *http.Request) {
	entries, err := s.entries(r)
	if err != nil {
		sendError(w, err.Error(), statusOf(err))
		return
	}
	if len(entries) == 0 {
		sendError(w, "no datasets", http.StatusNotFound)
		return
	}

	opts := rasterprofile.DefaultIndexOptions()
	opts.Name = s.indexName
	opts.CRS = rasterprofile.IndexCRS(entries)

	var buf bytes.Buffer
	if err := rasterprofile.WriteIndex(&buf, entries, opts); err != nil {
		s.logger.Error("writing index", "error", err)
		sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.metrics.RecordIndex("fgb", buf.Len())

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(buf.Bytes())
}

// handleGeoJSON serves the same footprints as a GeoJSON feature collection.
func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	entries, err := s.entries(r)
	if err != nil {
		sendError(w, err.Error(), statusOf(err))
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, e := range entries {
		f, ok := footprintFeature(e)
		if ok {
			fc.Append(f)
		}
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.metrics.RecordIndex("geojson", len(data))

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(data)
}

// entries returns the catalog entries, filtered by the bbox query parameter
// when present.
func (s *Server) entries(r *http.Request) ([]rasterprofile.IndexEntry, error) {
	var bbox *orb.Bound
	if q := r.URL.Query().Get("bbox"); q != "" {
		b, err := parseBBox(q)
		if err != nil {
			return nil, err
		}
		bbox = &b
	}

	entries, err := s.engine.Entries()
	if err != nil {
		s.logger.Error("reading catalog", "error", err)
		return nil, err
	}
	s.metrics.SetDatasets(len(entries))
	if bbox == nil {
		return entries, nil
	}

	filtered := entries[:0]
	for _, e := range entries {
		if fp, err := rasterprofile.Footprint(e.Profile); err == nil && fp.Bound().Intersects(*bbox) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func parseBBox(q string) (orb.Bound, error) {
	parts := strings.Split(q, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("%w: bbox needs 4 numbers, got %q", errBadRequest, q)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("%w: bbox: %v", errBadRequest, err)
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] {
		return orb.Bound{}, fmt.Errorf("%w: bbox minimum exceeds maximum", errBadRequest)
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}

func footprintFeature(e rasterprofile.IndexEntry) (*geojson.Feature, bool) {
	fp, err := rasterprofile.Footprint(e.Profile)
	if err != nil {
		return nil, false
	}

	f := geojson.NewFeature(fp)
	f.Properties = geojson.Properties{"location": e.Location}
	for _, key := range []string{
		rasterprofile.KeyDriver,
		rasterprofile.KeyDType,
		rasterprofile.KeyWidth,
		rasterprofile.KeyHeight,
		rasterprofile.KeyCount,
		rasterprofile.KeyTiled,
		rasterprofile.KeyCompress,
	} {
		if v, ok := e.Profile.Get(key); ok {
			f.Properties[key] = v.Interface()
		}
	}
	if c, ok := e.Profile.GetCRS(rasterprofile.KeyCRS); ok {
		f.Properties["crs"] = c.String()
	}
	return f, true
}
