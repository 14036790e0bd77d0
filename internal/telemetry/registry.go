package telemetry

import (
	"encoding/csv"
	"os"
	"strings"
	"sync"
)

// Logger is the logging interface used by this package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Fixed topic names for fields carrying distances in miles. These override
// whatever the mechanical derivation would produce: downstream consumers
// key on the "_km" names.
var distanceTopics = map[string]string{
	"EstBatteryRange":       "battery_range_estimated_km",
	"IdealBatteryRange":     "battery_range_ideal_km",
	"RatedRange":            "battery_range_rated_km",
	"RangeDisplay":          "battery_range_display_km",
	"MilesToArrival":        "navigation_distance_remaining_km",
	"MilesRemaining":        "navigation_distance_remaining_km",
	"Odometer":              "odometer_km",
	"ChargeRateMilePerHour": "charge_rate_kmh",
	"DistanceToArrival":     "navigation_distance_remaining_km",
}

// Fixed topic names for fields carrying speeds in mph.
var speedTopics = map[string]string{
	"VehicleSpeed":      "speed_kmh",
	"CruiseSetSpeed":    "cruise_speed_kmh",
	"CurrentLimitMph":   "speed_limit_kmh",
	"SpeedLimit":        "speed_limit_kmh",
	"SpeedLimitDisplay": "speed_limit_display_kmh",
	"SpeedLimitMode":    "speed_limit_mode_kmh",
}

// Fields reported in Fahrenheit (subject to the >50 heuristic in convert.go).
var temperatureFields = map[string]struct{}{
	"OutsideTemp": {},
	"InsideTemp":  {},
}

// Fields carrying structured coordinates, published as serialized JSON.
var locationFields = map[string]struct{}{
	"Location":            {},
	"DestinationLocation": {},
	"OriginLocation":      {},
}

func isDistanceField(name string) bool {
	_, ok := distanceTopics[name]
	return ok
}

func isSpeedField(name string) bool {
	_, ok := speedTopics[name]
	return ok
}

func isTemperatureField(name string) bool {
	_, ok := temperatureFields[name]
	return ok
}

func isLocationField(name string) bool {
	_, ok := locationFields[name]
	return ok
}

// Registry holds per-field metadata: canonical MQTT topic, semantic type and
// category for every known vendor field identifier.
//
// The metadata maps are immutable after LoadRegistry returns and shared by
// all vehicle sessions. The discovery set is the only mutable state and is
// guarded by a mutex so each previously-unseen identifier is recorded as
// new at most once across concurrent sessions.
type Registry struct {
	topics     map[string]string
	types      map[string]string
	categories map[string]string

	discovered   map[string]struct{}
	discoveredMu sync.Mutex

	logger Logger
}

// LoadRegistry reads field metadata from a CSV file.
//
// Expected columns: Field, Vehicle Data Equivalent, Type, Category.
// On any load failure (missing file, unreadable rows, missing columns) it
// falls back to the built-in table covering the distance, speed, temperature
// and location field sets and logs the degradation — it never returns an
// error to the caller.
func LoadRegistry(path string, logger Logger) *Registry {
	r := &Registry{
		topics:     make(map[string]string),
		types:      make(map[string]string),
		categories: make(map[string]string),
		discovered: make(map[string]struct{}),
		logger:     logger,
	}

	if err := r.loadCSV(path); err != nil {
		r.logWarn("field metadata unavailable, using built-in defaults",
			"path", path, "error", err)
		r.setDefaults()
	} else {
		r.logInfo("field metadata loaded", "path", path, "fields", len(r.topics))
	}

	return r
}

// loadCSV parses the metadata file. Rows missing required columns are
// skipped; a file with no usable rows counts as a load failure.
func (r *Registry) loadCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // tolerate ragged rows, validate per row

	records, err := reader.ReadAll()
	if err != nil {
		return err
	}
	if len(records) < 2 {
		return ErrNoMetadataRows
	}

	// Resolve column positions from the header row.
	header := records[0]
	fieldCol, typeCol, categoryCol := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "Field":
			fieldCol = i
		case "Type":
			typeCol = i
		case "Category":
			categoryCol = i
		}
	}
	if fieldCol < 0 || typeCol < 0 || categoryCol < 0 {
		return ErrMissingMetadataColumns
	}

	loaded := 0
	for _, row := range records[1:] {
		if len(row) <= fieldCol || len(row) <= typeCol || len(row) <= categoryCol {
			continue
		}
		field := strings.Trim(strings.TrimSpace(row[fieldCol]), `"`)
		if field == "" {
			continue
		}

		r.topics[field] = deriveTopic(field)
		r.types[field] = strings.ToLower(strings.Trim(strings.TrimSpace(row[typeCol]), `"`))
		r.categories[field] = strings.ToLower(strings.Trim(strings.TrimSpace(row[categoryCol]), `"`))
		loaded++
	}
	if loaded == 0 {
		return ErrNoMetadataRows
	}

	return nil
}

// deriveTopic applies the topic precedence rules: fixed distance topic,
// fixed speed topic, then mechanical derivation (location fields and
// everything else).
func deriveTopic(field string) string {
	if topic, ok := distanceTopics[field]; ok {
		return topic
	}
	if topic, ok := speedTopics[field]; ok {
		return topic
	}
	return CanonicalName(field)
}

// setDefaults installs the built-in minimal table.
func (r *Registry) setDefaults() {
	for field, topic := range distanceTopics {
		r.topics[field] = topic
		r.types[field] = "real"
		r.categories[field] = "distance"
	}
	for field, topic := range speedTopics {
		r.topics[field] = topic
		r.types[field] = "real"
		r.categories[field] = "speed"
	}
	for field := range locationFields {
		r.topics[field] = CanonicalName(field)
		r.types[field] = "object"
		r.categories[field] = "location"
	}
	for field := range temperatureFields {
		r.topics[field] = CanonicalName(field)
		r.types[field] = "real"
		r.categories[field] = "temperature"
	}
}

// Topic returns the canonical MQTT topic suffix for a field. Fields without
// metadata get a mechanically derived name and trigger a one-time discovery
// notice.
func (r *Registry) Topic(field string) string {
	if topic, ok := r.topics[field]; ok {
		return topic
	}

	topic := CanonicalName(field)
	if r.RecordIfNew(field) {
		r.logInfo("new telemetry field discovered",
			"field", field, "topic", topic)
	}
	return topic
}

// TypeOf returns the semantic type for a field (real, integer, boolean, …)
// and whether metadata exists for it.
func (r *Registry) TypeOf(field string) (string, bool) {
	t, ok := r.types[field]
	return t, ok
}

// CategoryOf returns the metadata category for a field.
func (r *Registry) CategoryOf(field string) (string, bool) {
	c, ok := r.categories[field]
	return c, ok
}

// IsKnown reports whether metadata was loaded for the field.
func (r *Registry) IsKnown(field string) bool {
	_, ok := r.topics[field]
	return ok
}

// RecordIfNew adds the field to the discovery set. It returns true only the
// first time an identifier is recorded, across all sessions for the life of
// the process.
func (r *Registry) RecordIfNew(field string) bool {
	r.discoveredMu.Lock()
	defer r.discoveredMu.Unlock()

	if _, seen := r.discovered[field]; seen {
		return false
	}
	r.discovered[field] = struct{}{}
	return true
}

// logInfo logs an info message if a logger is set.
func (r *Registry) logInfo(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

// logWarn logs a warning if a logger is set.
func (r *Registry) logWarn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
