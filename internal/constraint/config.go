package constraint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/geometry"
)

// ErrInvalidConfig is returned for a configuration that cannot build an
// evaluator: unknown kind, missing required field or out-of-range value.
var ErrInvalidConfig = errors.New("invalid constraint configuration")

// Configuration kinds, as they appear in the "type" field.
const (
	kindSun       = "sun"
	kindMoon      = "moon"
	kindBody      = "body"
	kindEarthLimb = "earth_limb"
	kindEclipse   = "eclipse"
	kindDaytime   = "daytime"
	kindAirmass   = "airmass"
	kindMoonPhase = "moon_phase"
	kindOrbitRam  = "orbit_ram"
	kindOrbitPole = "orbit_pole"
	kindSAA       = "saa"
	kindAltAz     = "alt_az"
	kindAnd       = "and"
	kindOr        = "or"
	kindXor       = "xor"
	kindNot       = "not"
)

// Config is a declarative, serializable constraint description. Build
// turns it into an Evaluator.
type Config interface {
	Kind() string
	Validate() error
	build() (*evaluator, error)
}

// Build validates c and returns its evaluator.
func Build(c Config) (Evaluator, error) {
	ev, err := buildChecked(c)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func buildChecked(c Config) (*evaluator, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: empty configuration", ErrInvalidConfig)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c.build()
}

func invalid(kind, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, kind, fmt.Sprintf(format, args...))
}

func checkAngles(kind string, min float64, max *float64) error {
	if min < 0 || min > 180 {
		return invalid(kind, "min_angle %v outside [0, 180]", min)
	}
	if max != nil {
		if *max < 0 || *max > 180 {
			return invalid(kind, "max_angle %v outside [0, 180]", *max)
		}
		if *max < min {
			return invalid(kind, "max_angle %v below min_angle %v", *max, min)
		}
	}
	return nil
}

// SunConfig keeps the target away from the Sun.
type SunConfig struct {
	MinAngle float64  `json:"min_angle"`
	MaxAngle *float64 `json:"max_angle,omitempty"`
}

func (SunConfig) Kind() string { return kindSun }
func (c SunConfig) Validate() error { return checkAngles(kindSun, c.MinAngle, c.MaxAngle) }
func (c SunConfig) build() (*evaluator, error) {
	band := angleRange{min: c.MinAngle, max: c.MaxAngle}
	return proximityEvaluator(kindSun, proximityName("SunProximity", "", band), "Sun", band,
		func(p ephemeris.Provider) ([]geometry.Vec3, error) { return p.SunPositions() }), nil
}

// MoonConfig keeps the target away from the Moon.
type MoonConfig struct {
	MinAngle float64  `json:"min_angle"`
	MaxAngle *float64 `json:"max_angle,omitempty"`
}

func (MoonConfig) Kind() string { return kindMoon }
func (c MoonConfig) Validate() error { return checkAngles(kindMoon, c.MinAngle, c.MaxAngle) }
func (c MoonConfig) build() (*evaluator, error) {
	band := angleRange{min: c.MinAngle, max: c.MaxAngle}
	return proximityEvaluator(kindMoon, proximityName("MoonProximity", "", band), "Moon", band,
		func(p ephemeris.Provider) ([]geometry.Vec3, error) { return p.MoonPositions() }), nil
}

// BodyConfig keeps the target away from any body the ephemeris can supply,
// named by NAIF id or name.
type BodyConfig struct {
	Body     string   `json:"body"`
	MinAngle float64  `json:"min_angle"`
	MaxAngle *float64 `json:"max_angle,omitempty"`
}

func (BodyConfig) Kind() string { return kindBody }
func (c BodyConfig) Validate() error {
	if c.Body == "" {
		return invalid(kindBody, "body is required")
	}
	return checkAngles(kindBody, c.MinAngle, c.MaxAngle)
}
func (c BodyConfig) build() (*evaluator, error) {
	band := angleRange{min: c.MinAngle, max: c.MaxAngle}
	name := proximityName("BodyProximity", fmt.Sprintf("body='%s', ", c.Body), band)
	body := c.Body
	return proximityEvaluator(kindBody, name, body, band,
		func(p ephemeris.Provider) ([]geometry.Vec3, error) { return p.BodyPositions(body) }), nil
}

// EarthLimbConfig keeps the target a margin above the Earth's limb.
type EarthLimbConfig struct {
	MinAngle          float64  `json:"min_angle"`
	MaxAngle          *float64 `json:"max_angle,omitempty"`
	IncludeRefraction bool     `json:"include_refraction,omitempty"`
	HorizonDip        bool     `json:"horizon_dip,omitempty"`
}

func (EarthLimbConfig) Kind() string { return kindEarthLimb }
func (c EarthLimbConfig) Validate() error {
	return checkAngles(kindEarthLimb, c.MinAngle, c.MaxAngle)
}
func (c EarthLimbConfig) build() (*evaluator, error) {
	name := fmt.Sprintf("EarthLimb(min=%s°)", num(c.MinAngle))
	if c.MaxAngle != nil {
		name = fmt.Sprintf("EarthLimb(min=%s°, max=%s°)", num(c.MinAngle), num(*c.MaxAngle))
	}
	return earthLimbEvaluator(name, earthLimbOptions{
		min:        c.MinAngle,
		max:        c.MaxAngle,
		refraction: c.IncludeRefraction,
		horizonDip: c.HorizonDip,
	}), nil
}

// EclipseConfig flags samples where the observer is in the Earth's shadow.
// UmbraOnly defaults to true.
type EclipseConfig struct {
	UmbraOnly *bool `json:"umbra_only,omitempty"`
}

func (EclipseConfig) Kind() string { return kindEclipse }
func (EclipseConfig) Validate() error { return nil }
func (c EclipseConfig) build() (*evaluator, error) {
	return eclipseEvaluator(c.UmbraOnly == nil || *c.UmbraOnly), nil
}

// DaytimeConfig restricts observation to night (or, with AllowDaytime, to
// day) relative to a twilight boundary. Twilight defaults to civil.
type DaytimeConfig struct {
	Twilight     Twilight `json:"twilight,omitempty"`
	AllowDaytime bool     `json:"allow_daytime,omitempty"`
}

func (DaytimeConfig) Kind() string { return kindDaytime }
func (c DaytimeConfig) Validate() error {
	_, err := c.Twilight.AltitudeDeg()
	return err
}
func (c DaytimeConfig) build() (*evaluator, error) {
	return daytimeEvaluator(c.Twilight, c.AllowDaytime)
}

// AirmassConfig bounds the target's air mass.
type AirmassConfig struct {
	MaxAirmass float64  `json:"max_airmass"`
	MinAirmass *float64 `json:"min_airmass,omitempty"`
}

func (AirmassConfig) Kind() string { return kindAirmass }
func (c AirmassConfig) Validate() error {
	if c.MaxAirmass < 1 {
		return invalid(kindAirmass, "max_airmass %v below 1", c.MaxAirmass)
	}
	if c.MinAirmass != nil {
		if *c.MinAirmass < 1 {
			return invalid(kindAirmass, "min_airmass %v below 1", *c.MinAirmass)
		}
		if *c.MinAirmass > c.MaxAirmass {
			return invalid(kindAirmass, "min_airmass %v above max_airmass %v", *c.MinAirmass, c.MaxAirmass)
		}
	}
	return nil
}
func (c AirmassConfig) build() (*evaluator, error) {
	name := fmt.Sprintf("AirmassConstraint(max=%.2f)", c.MaxAirmass)
	if c.MinAirmass != nil {
		name = fmt.Sprintf("AirmassConstraint(min=%.2f, max=%.2f)", *c.MinAirmass, c.MaxAirmass)
	}
	return airmassEvaluator(name, airmassBounds{max: c.MaxAirmass, min: c.MinAirmass}), nil
}

// MoonPhaseConfig bounds the Moon's illumination and, optionally, its
// distance from the target. Unless EnforceWhenBelowHorizon is set, samples
// with the Moon down are always satisfied.
type MoonPhaseConfig struct {
	MaxIllumination         float64        `json:"max_illumination"`
	MinIllumination         *float64       `json:"min_illumination,omitempty"`
	MinDistance             *float64       `json:"min_distance,omitempty"`
	MaxDistance             *float64       `json:"max_distance,omitempty"`
	EnforceWhenBelowHorizon bool           `json:"enforce_when_below_horizon,omitempty"`
	MoonVisibility          MoonVisibility `json:"moon_visibility,omitempty"`
}

func (MoonPhaseConfig) Kind() string { return kindMoonPhase }
func (c MoonPhaseConfig) Validate() error {
	if c.MaxIllumination < 0 || c.MaxIllumination > 1 {
		return invalid(kindMoonPhase, "max_illumination %v outside [0, 1]", c.MaxIllumination)
	}
	if c.MinIllumination != nil {
		if *c.MinIllumination < 0 || *c.MinIllumination > 1 {
			return invalid(kindMoonPhase, "min_illumination %v outside [0, 1]", *c.MinIllumination)
		}
		if *c.MinIllumination > c.MaxIllumination {
			return invalid(kindMoonPhase, "min_illumination %v above max_illumination %v", *c.MinIllumination, c.MaxIllumination)
		}
	}
	for _, d := range []*float64{c.MinDistance, c.MaxDistance} {
		if d != nil && (*d < 0 || *d > 180) {
			return invalid(kindMoonPhase, "distance %v outside [0, 180]", *d)
		}
	}
	if c.MinDistance != nil && c.MaxDistance != nil && *c.MaxDistance < *c.MinDistance {
		return invalid(kindMoonPhase, "max_distance %v below min_distance %v", *c.MaxDistance, *c.MinDistance)
	}
	_, err := c.MoonVisibility.horizonDeg()
	return err
}
func (c MoonPhaseConfig) build() (*evaluator, error) {
	name := fmt.Sprintf("MoonPhaseConstraint(max=%.2f)", c.MaxIllumination)
	if c.MinIllumination != nil {
		name = fmt.Sprintf("MoonPhaseConstraint(min=%.2f, max=%.2f)", *c.MinIllumination, c.MaxIllumination)
	}
	return moonPhaseEvaluator(name, moonPhaseOptions{
		maxIllum:     c.MaxIllumination,
		minIllum:     c.MinIllumination,
		minDist:      c.MinDistance,
		maxDist:      c.MaxDistance,
		enforceBelow: c.EnforceWhenBelowHorizon,
		visibility:   c.MoonVisibility,
	})
}

// OrbitRamConfig keeps the target a set angle from the velocity direction.
type OrbitRamConfig struct {
	MinAngle float64  `json:"min_angle"`
	MaxAngle *float64 `json:"max_angle,omitempty"`
}

func (OrbitRamConfig) Kind() string { return kindOrbitRam }
func (c OrbitRamConfig) Validate() error { return checkAngles(kindOrbitRam, c.MinAngle, c.MaxAngle) }
func (c OrbitRamConfig) build() (*evaluator, error) {
	return orbitRamEvaluator(angleRange{min: c.MinAngle, max: c.MaxAngle}), nil
}

// OrbitPoleConfig keeps the target away from the orbit normal.
type OrbitPoleConfig struct {
	MinAngle      float64  `json:"min_angle"`
	MaxAngle      *float64 `json:"max_angle,omitempty"`
	EarthLimbPole bool     `json:"earth_limb_pole,omitempty"`
}

func (OrbitPoleConfig) Kind() string { return kindOrbitPole }
func (c OrbitPoleConfig) Validate() error {
	return checkAngles(kindOrbitPole, c.MinAngle, c.MaxAngle)
}
func (c OrbitPoleConfig) build() (*evaluator, error) {
	return orbitPoleEvaluator(orbitPoleOptions{min: c.MinAngle, max: c.MaxAngle, earthLimbPole: c.EarthLimbPole}), nil
}

// SAAConfig flags samples where the sub-observer point is inside Polygon,
// a closed ring of (longitude, latitude) pairs in degrees.
type SAAConfig struct {
	Polygon [][2]float64 `json:"polygon"`
}

func (SAAConfig) Kind() string { return kindSAA }
func (c SAAConfig) Validate() error {
	if len(c.Polygon) < 3 {
		return invalid(kindSAA, "polygon needs at least 3 vertices, got %d", len(c.Polygon))
	}
	return nil
}
func (c SAAConfig) build() (*evaluator, error) {
	ring := make([]geometry.LonLat, len(c.Polygon))
	for i, v := range c.Polygon {
		ring[i] = geometry.LonLat{Lon: v[0], Lat: v[1]}
	}
	return saaEvaluator(ring), nil
}

// AltAzConfig bounds the target's topocentric altitude and azimuth. An
// azimuth range with min > max wraps through north.
type AltAzConfig struct {
	MinAltitude *float64 `json:"min_altitude,omitempty"`
	MaxAltitude *float64 `json:"max_altitude,omitempty"`
	MinAzimuth  *float64 `json:"min_azimuth,omitempty"`
	MaxAzimuth  *float64 `json:"max_azimuth,omitempty"`
}

func (AltAzConfig) Kind() string { return kindAltAz }
func (c AltAzConfig) Validate() error {
	for _, a := range []*float64{c.MinAltitude, c.MaxAltitude} {
		if a != nil && (*a < -90 || *a > 90) {
			return invalid(kindAltAz, "altitude %v outside [-90, 90]", *a)
		}
	}
	if c.MinAltitude != nil && c.MaxAltitude != nil && *c.MaxAltitude < *c.MinAltitude {
		return invalid(kindAltAz, "max_altitude %v below min_altitude %v", *c.MaxAltitude, *c.MinAltitude)
	}
	for _, a := range []*float64{c.MinAzimuth, c.MaxAzimuth} {
		if a != nil && (*a < 0 || *a > 360) {
			return invalid(kindAltAz, "azimuth %v outside [0, 360]", *a)
		}
	}
	return nil
}
func (c AltAzConfig) build() (*evaluator, error) {
	l := altAzLimits{maxAlt: c.MaxAltitude, minAz: c.MinAzimuth, maxAz: c.MaxAzimuth}
	if c.MinAltitude != nil {
		l.minAlt = *c.MinAltitude
	}
	return altAzEvaluator(l), nil
}

// AndConfig is violated whenever any child is violated.
type AndConfig struct {
	Constraints []Spec `json:"constraints"`
}

// OrConfig is violated only when every child is violated.
type OrConfig struct {
	Constraints []Spec `json:"constraints"`
}

// XorConfig is violated when exactly one child is violated.
type XorConfig struct {
	Constraints []Spec `json:"constraints"`
}

// NotConfig is violated when its child is satisfied.
type NotConfig struct {
	Constraint Spec `json:"constraint"`
}

func (AndConfig) Kind() string { return kindAnd }
func (c AndConfig) Validate() error { return validateChildren(kindAnd, c.Constraints) }
func (c AndConfig) build() (*evaluator, error) {
	return buildLogic(kindAnd, "AND", c.Constraints, combineAnd)
}

func (OrConfig) Kind() string { return kindOr }
func (c OrConfig) Validate() error { return validateChildren(kindOr, c.Constraints) }
func (c OrConfig) build() (*evaluator, error) {
	return buildLogic(kindOr, "OR", c.Constraints, combineOr)
}

func (XorConfig) Kind() string { return kindXor }
func (c XorConfig) Validate() error { return validateChildren(kindXor, c.Constraints) }
func (c XorConfig) build() (*evaluator, error) {
	return buildLogic(kindXor, "XOR", c.Constraints, combineXor)
}

func (NotConfig) Kind() string { return kindNot }
func (c NotConfig) Validate() error {
	if c.Constraint.Config == nil {
		return invalid(kindNot, "constraint is required")
	}
	return c.Constraint.Validate()
}
func (c NotConfig) build() (*evaluator, error) {
	return buildLogic(kindNot, "NOT", []Spec{c.Constraint}, combineNot)
}

func validateChildren(kind string, children []Spec) error {
	if len(children) < 2 {
		return invalid(kind, "needs at least 2 constraints, got %d", len(children))
	}
	for i, c := range children {
		if c.Config == nil {
			return invalid(kind, "constraint %d is empty", i)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%s constraint %d: %w", kind, i, err)
		}
	}
	return nil
}

func buildLogic(kind, op string, specs []Spec, combine combineFunc) (*evaluator, error) {
	children := make([]*evaluator, len(specs))
	for i, s := range specs {
		ev, err := buildChecked(s.Config)
		if err != nil {
			return nil, err
		}
		children[i] = ev
	}
	return logicEvaluator(kind, op, children, combine), nil
}

// kindInfo describes one registered configuration kind.
type kindInfo struct {
	blank    func() Config
	required []string
}

var kinds = map[string]kindInfo{
	kindSun:       {func() Config { return &SunConfig{} }, []string{"min_angle"}},
	kindMoon:      {func() Config { return &MoonConfig{} }, []string{"min_angle"}},
	kindBody:      {func() Config { return &BodyConfig{} }, []string{"body", "min_angle"}},
	kindEarthLimb: {func() Config { return &EarthLimbConfig{} }, []string{"min_angle"}},
	kindEclipse:   {func() Config { return &EclipseConfig{} }, nil},
	kindDaytime:   {func() Config { return &DaytimeConfig{} }, nil},
	kindAirmass:   {func() Config { return &AirmassConfig{} }, []string{"max_airmass"}},
	kindMoonPhase: {func() Config { return &MoonPhaseConfig{} }, []string{"max_illumination"}},
	kindOrbitRam:  {func() Config { return &OrbitRamConfig{} }, []string{"min_angle"}},
	kindOrbitPole: {func() Config { return &OrbitPoleConfig{} }, []string{"min_angle"}},
	kindSAA:       {func() Config { return &SAAConfig{} }, []string{"polygon"}},
	kindAltAz:     {func() Config { return &AltAzConfig{} }, nil},
	kindAnd:       {func() Config { return &AndConfig{} }, []string{"constraints"}},
	kindOr:        {func() Config { return &OrConfig{} }, []string{"constraints"}},
	kindXor:       {func() Config { return &XorConfig{} }, []string{"constraints"}},
	kindNot:       {func() Config { return &NotConfig{} }, []string{"constraint"}},
}

// Kinds lists every supported "type" value in sorted order.
func Kinds() []string {
	out := make([]string, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Spec carries a Config through JSON, tagged with its "type". Optional
// fields that were absent stay absent on re-encoding.
type Spec struct {
	Config
}

// Build validates the wrapped configuration and returns its evaluator.
func (s Spec) Build() (Evaluator, error) { return Build(s.Config) }

func (s Spec) MarshalJSON() ([]byte, error) {
	if s.Config == nil {
		return nil, fmt.Errorf("%w: empty configuration", ErrInvalidConfig)
	}
	body, err := json.Marshal(s.Config)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(s.Config.Kind())
	fields["type"] = kind
	return json.Marshal(fields)
}

func (s *Spec) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	rawKind, ok := fields["type"]
	if !ok {
		return fmt.Errorf("%w: missing \"type\"", ErrInvalidConfig)
	}
	var kind string
	if err := json.Unmarshal(rawKind, &kind); err != nil {
		return fmt.Errorf("%w: \"type\" must be a string", ErrInvalidConfig)
	}
	info, ok := kinds[kind]
	if !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidConfig, kind)
	}
	for _, f := range info.required {
		if _, ok := fields[f]; !ok {
			return invalid(kind, "missing required field %q", f)
		}
	}
	delete(fields, "type")
	body, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	cfg := info.blank()
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return invalid(kind, "%v", err)
	}
	s.Config = cfg
	return nil
}

// ParseJSON decodes one tagged configuration.
func ParseJSON(data []byte) (Spec, error) {
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return Spec{}, err
	}
	return s, nil
}
