// Package engine implements the inference worker: a single goroutine
// consuming a FIFO mailbox of requests and emitting responses in order. All
// model handles, the species table and the inference cache are owned by the
// worker goroutine, so no handler ever races another.
package engine

import (
	"github.com/google/uuid"

	"github.com/aviaudio/perch/internal/birdnet"
)

// RequestType identifies a worker request.
type RequestType string

const (
	RequestPredict     RequestType = "predict"
	RequestAreaScores  RequestType = "area-scores"
	RequestSpeciesList RequestType = "get_species_list"
	RequestLoadLabels  RequestType = "load_labels"
)

// Request is one worker mailbox message. PCM buffers are transferred, never
// shared: the producer must not touch the slice after submitting.
type Request struct {
	ID   uuid.UUID
	Type RequestType

	// predict fields
	PCM         []float32
	OverlapSec  float64
	Sensitivity float64

	// location fields (predict may carry an optional location update;
	// area-scores always carries one)
	HasLocation bool
	Latitude    float64
	Longitude   float64
	Week        int // 0 derives the week from the wall clock
	Hour        int // accepted on the wire, unused by the geo model

	// load_labels field
	Locale string
}

// NewPredictRequest builds a predict request with a fresh correlation id.
func NewPredictRequest(pcm []float32, overlapSec, sensitivity float64) Request {
	return Request{
		ID:          uuid.New(),
		Type:        RequestPredict,
		PCM:         pcm,
		OverlapSec:  overlapSec,
		Sensitivity: sensitivity,
	}
}

// WithLocation attaches a location to a request.
func (r Request) WithLocation(lat, lon float64) Request {
	r.HasLocation = true
	r.Latitude = lat
	r.Longitude = lon
	return r
}

// ResponseType identifies a worker response.
type ResponseType string

const (
	ResponseProgress     ResponseType = "progress"
	ResponseLoaded       ResponseType = "loaded"
	ResponseLabelsLoaded ResponseType = "labels_loaded"
	ResponseSegments     ResponseType = "segments"
	ResponsePooled       ResponseType = "pooled"
	ResponseAreaScores   ResponseType = "area-scores"
	ResponseSpeciesList  ResponseType = "species_list"
	ResponseError        ResponseType = "error"
)

// Initialization stages with their progress checkpoints. Progress is a
// percentage; the stage names match the wire protocol of the init sequence.
const (
	StageLoadModel    = "load_model"
	StageWarmup       = "warmup"
	StageLoadGeoModel = "load_geomodel"
	StageLoadLabels   = "load_labels"

	ProgressLoadModel    = 70
	ProgressWarmup       = 90
	ProgressLoadGeoModel = 95
	ProgressLoadLabels   = 100
)

// Detection is one ranked species hit. Confidence is the un-normalized
// log-mean-exp score; consumers clamp for display only.
type Detection struct {
	Index               int
	Confidence          float64
	GeoScore            float64
	ScientificName      string
	CommonName          string
	CommonNameLocalized string
}

// Segment is the per-frame view of one predict cycle.
type Segment struct {
	Start float64 // seconds from window start
	End   float64
	Preds []Detection
}

// Response is one worker output message. Exactly one payload field is
// populated according to Type.
type Response struct {
	RequestID uuid.UUID
	Type      ResponseType

	Stage    string
	Progress int

	Segments []Segment
	Pooled   []Detection
	Species  []birdnet.Species

	Err error
}
