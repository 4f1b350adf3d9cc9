package config

import "errors"

// Sentinel errors of document loading. Everything here is configuration
// time and fatal; nothing is skipped or retried.
var (
	// ErrParse is returned when the bytes are not a valid YAML document.
	ErrParse = errors.New("config: invalid YAML")

	// ErrDocument is returned when required document fields are missing
	// or malformed.
	ErrDocument = errors.New("config: invalid document")

	// ErrUnknownKind is returned for a generator kind outside
	// explicit/additive/multiplicative.
	ErrUnknownKind = errors.New("config: unknown generator kind")

	// ErrUnknownSharing is returned for a sharing policy outside
	// shared/reentrant.
	ErrUnknownSharing = errors.New("config: unknown sharing policy")

	// ErrUnknownInstance is returned when a declaration references an
	// instance name absent from the instances dictionary.
	ErrUnknownInstance = errors.New("config: unknown instance")

	// ErrUnknownConstraint is returned for a port constraint type outside
	// fix/tag/sort-tag.
	ErrUnknownConstraint = errors.New("config: unknown constraint type")

	// ErrUnknownEvaluator is returned for a loss evaluator name outside
	// size/count.
	ErrUnknownEvaluator = errors.New("config: unknown evaluator")

	// ErrUnknownDirection is returned for a loss direction outside
	// lower/higher.
	ErrUnknownDirection = errors.New("config: unknown direction")
)

// Document is the raw YAML shape of a search space. Generator entries stay
// generic maps here; their kind-specific payloads are decoded in a second
// pass once the kind is known.
type Document struct {
	Space      string                 `yaml:"space" validate:"required"`
	Seed       int64                  `yaml:"seed"`
	Schema     SchemaDoc              `yaml:"schema" validate:"required"`
	Instances  map[string]InstanceDoc `yaml:"instances"`
	Generators []map[string]any       `yaml:"generators" validate:"required,min=1"`
}

// SchemaDoc declares the sorts and unary functions of the space.
type SchemaDoc struct {
	Name      string   `yaml:"name" validate:"required"`
	Sorts     []string `yaml:"sorts" validate:"required,min=1"`
	Functions []FnDoc  `yaml:"functions" validate:"dive"`
}

// FnDoc is one typed unary function.
type FnDoc struct {
	Name string `yaml:"name" validate:"required"`
	Dom  string `yaml:"dom" validate:"required"`
	Cod  string `yaml:"cod" validate:"required"`
}

// InstanceDoc is one instance literal: elements per sort, function graphs,
// and optional tags per element.
type InstanceDoc struct {
	Elems     map[string][]string          `yaml:"elems"`
	Functions map[string]map[string]string `yaml:"functions"`
	Tags      map[string]map[string][]string `yaml:"tags"` // sort -> elem -> tags
}

// generatorDoc is the common head every generator entry carries.
type generatorDoc struct {
	Name    string   `mapstructure:"name"`
	Kind    string   `mapstructure:"kind"`
	Sharing string   `mapstructure:"sharing"`
	Loss    *lossDoc `mapstructure:"loss"`
}

// explicitDoc is the payload of kind: explicit.
type explicitDoc struct {
	Instances []string `mapstructure:"instances"`
}

// wiringDoc is the payload of kind: additive.
type wiringDoc struct {
	Wiring struct {
		Boxes     []boxDoc      `mapstructure:"boxes"`
		Ports     []portDoc     `mapstructure:"ports"`
		Junctions []junctionDoc `mapstructure:"junctions"`
		Wires     []wireDoc     `mapstructure:"wires"`
	} `mapstructure:"wiring"`
}

type boxDoc struct {
	ID        string `mapstructure:"id"`
	Generator string `mapstructure:"generator"`
}

type portDoc struct {
	ID          string          `mapstructure:"id"`
	Box         string          `mapstructure:"box"`
	Constraints []constraintDoc `mapstructure:"constraints"`
}

// constraintDoc is one interface constraint on a port. Type selects the
// fields that matter: fix uses sort/from/to, tag uses tag, sort-tag uses
// sort and tag.
type constraintDoc struct {
	Type string `mapstructure:"type"`
	Sort string `mapstructure:"sort"`
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
	Tag  string `mapstructure:"tag"`
}

type junctionDoc struct {
	ID      string `mapstructure:"id"`
	Overlap string `mapstructure:"overlap"` // instance name; empty means the empty overlap
}

type wireDoc struct {
	ID       string `mapstructure:"id"`
	Port     string `mapstructure:"port"`
	Junction string `mapstructure:"junction"`
}

// productDoc is the payload of kind: multiplicative.
type productDoc struct {
	Product struct {
		Dimensions []string `mapstructure:"dimensions"`
		Base       string   `mapstructure:"base"` // instance name; empty means terminal
	} `mapstructure:"product"`
}

// lossDoc attaches an evaluator and stop criteria to a generator.
type lossDoc struct {
	Evaluator string   `mapstructure:"evaluator"` // size | count
	Sort      string   `mapstructure:"sort"`      // for count
	Direction string   `mapstructure:"direction"` // lower (default) | higher
	Stop      *stopDoc `mapstructure:"stop"`
}

// stopDoc combines stop criteria; all present criteria are OR-ed.
type stopDoc struct {
	Threshold *float64    `mapstructure:"threshold"`
	After     int         `mapstructure:"after"`
	Plateau   *plateauDoc `mapstructure:"plateau"`
}

type plateauDoc struct {
	Window int     `mapstructure:"window"`
	Eps    float64 `mapstructure:"eps"`
}
