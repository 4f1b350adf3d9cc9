package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/amalgamlab/amalgam/generator"
	"github.com/amalgamlab/amalgam/hom"
	"github.com/amalgamlab/amalgam/loss"
	"github.com/amalgamlab/amalgam/model"
)

// validate checks required fields of the outer document shape.
var validate = validator.New()

// Space is one fully resolved search space: the schema, the named instance
// literals, and the declaration arena ready for schedule.Build.
type Space struct {
	Name      string
	Seed      int64
	Schema    *model.Schema
	Instances map[string]model.Instance
	Arena     *generator.Arena
}

// Load reads and parses a search-space document from disk.
func Load(path string) (*Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	return Parse(data)
}

// Parse resolves a YAML search-space document into a Space. Every error is
// fatal and names the offending document part.
func Parse(data []byte) (*Space, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocument, err)
	}

	schema, err := buildSchema(doc.Schema)
	if err != nil {
		return nil, err
	}
	instances, err := buildInstances(schema, doc.Instances)
	if err != nil {
		return nil, err
	}

	decls := make([]*generator.Decl, 0, len(doc.Generators))
	for i, raw := range doc.Generators {
		d, err := buildDecl(raw, instances)
		if err != nil {
			if name, _ := raw["name"].(string); name != "" {
				return nil, fmt.Errorf("config: generator %q: %w", name, err)
			}

			return nil, fmt.Errorf("config: generator %d: %w", i, err)
		}
		decls = append(decls, d)
	}
	arena, err := generator.NewArena(decls...)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &Space{
		Name:      doc.Space,
		Seed:      doc.Seed,
		Schema:    schema,
		Instances: instances,
		Arena:     arena,
	}, nil
}

func buildSchema(sd SchemaDoc) (*model.Schema, error) {
	fns := make([]model.Fn, 0, len(sd.Functions))
	for _, f := range sd.Functions {
		fns = append(fns, model.Fn{Name: f.Name, Dom: f.Dom, Cod: f.Cod})
	}
	s, err := model.NewSchema(sd.Name, sd.Sorts, fns)
	if err != nil {
		return nil, fmt.Errorf("config: schema %q: %w", sd.Name, err)
	}

	return s, nil
}

// buildInstances resolves every instance literal, in name order so error
// reporting is deterministic.
func buildInstances(s *model.Schema, docs map[string]InstanceDoc) (map[string]model.Instance, error) {
	out := make(map[string]model.Instance, len(docs))
	for _, name := range sortedKeys(docs) {
		inst, err := buildInstance(s, docs[name])
		if err != nil {
			return nil, fmt.Errorf("config: instance %q: %w", name, err)
		}
		out[name] = inst
	}

	return out, nil
}

func buildInstance(s *model.Schema, d InstanceDoc) (model.Instance, error) {
	b := model.NewBuilder(s)
	for _, srt := range sortedKeys(d.Elems) {
		for _, e := range d.Elems[srt] {
			b.AddElem(srt, e)
		}
	}
	for _, srt := range sortedKeys(d.Tags) {
		byElem := d.Tags[srt]
		for _, e := range sortedKeys(byElem) {
			b.Tag(srt, e, byElem[e]...)
		}
	}
	for _, fn := range sortedKeys(d.Functions) {
		graph := d.Functions[fn]
		for _, from := range sortedKeys(graph) {
			b.Set(fn, from, graph[from])
		}
	}

	return b.Build()
}

// buildDecl decodes one generic generator entry: the common head first,
// then the payload struct of the declared kind.
func buildDecl(raw map[string]any, instances map[string]model.Instance) (*generator.Decl, error) {
	var head generatorDoc
	if err := mapstructure.Decode(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocument, err)
	}
	if head.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrDocument)
	}

	d := &generator.Decl{Name: head.Name}
	switch head.Sharing {
	case "":
		d.Sharing = generator.SharingUnset
	case "shared":
		d.Sharing = generator.SharingShared
	case "reentrant":
		d.Sharing = generator.SharingReentrant
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSharing, head.Sharing)
	}

	switch head.Kind {
	case "explicit":
		var pd explicitDoc
		if err := mapstructure.Decode(raw, &pd); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDocument, err)
		}
		d.Kind = generator.KindExplicit
		for _, name := range pd.Instances {
			inst, ok := instances[name]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownInstance, name)
			}
			d.Explicit = append(d.Explicit, inst)
		}

	case "additive":
		var pd wiringDoc
		if err := mapstructure.Decode(raw, &pd); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDocument, err)
		}
		d.Kind = generator.KindAdditive
		pat, err := buildPattern(pd, instances)
		if err != nil {
			return nil, err
		}
		d.Wiring = pat

	case "multiplicative":
		var pd productDoc
		if err := mapstructure.Decode(raw, &pd); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDocument, err)
		}
		d.Kind = generator.KindMultiplicative
		spec := &generator.ProductSpec{Dimensions: pd.Product.Dimensions}
		if pd.Product.Base != "" {
			base, ok := instances[pd.Product.Base]
			if !ok {
				return nil, fmt.Errorf("%w: base %q", ErrUnknownInstance, pd.Product.Base)
			}
			spec.Base = base
		}
		d.Product = spec

	case "":
		return nil, fmt.Errorf("%w: missing kind", ErrDocument)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, head.Kind)
	}

	if head.Loss != nil {
		ls, err := buildLoss(head.Loss)
		if err != nil {
			return nil, err
		}
		d.Loss = ls
	}

	return d, nil
}

func buildPattern(pd wiringDoc, instances map[string]model.Instance) (*generator.Pattern, error) {
	pat := &generator.Pattern{}
	for _, b := range pd.Wiring.Boxes {
		pat.Boxes = append(pat.Boxes, generator.Box{ID: b.ID, Generator: b.Generator})
	}
	for _, p := range pd.Wiring.Ports {
		port := generator.Port{ID: p.ID, Box: p.Box}
		for j, c := range p.Constraints {
			built, err := buildConstraint(c)
			if err != nil {
				return nil, fmt.Errorf("port %q: constraint %d: %w", p.ID, j, err)
			}
			port.Constraints = append(port.Constraints, built)
		}
		pat.Ports = append(pat.Ports, port)
	}
	for _, j := range pd.Wiring.Junctions {
		jn := generator.Junction{ID: j.ID}
		if j.Overlap != "" {
			overlap, ok := instances[j.Overlap]
			if !ok {
				return nil, fmt.Errorf("junction %q: %w: %q", j.ID, ErrUnknownInstance, j.Overlap)
			}
			jn.Overlap = overlap
		}
		pat.Junctions = append(pat.Junctions, jn)
	}
	for i, w := range pd.Wiring.Wires {
		id := w.ID
		if id == "" {
			id = fmt.Sprintf("w%d", i)
		}
		pat.Wires = append(pat.Wires, generator.Wire{ID: id, Port: w.Port, Junction: w.Junction})
	}

	return pat, nil
}

func buildConstraint(c constraintDoc) (hom.Constraint, error) {
	switch c.Type {
	case "fix":
		return hom.FixElem(c.Sort, c.From, c.To), nil
	case "tag":
		return hom.TagConstraint(c.Tag), nil
	case "sort-tag":
		return hom.SortTagConstraint(c.Sort, c.Tag), nil
	default:
		return hom.Constraint{}, fmt.Errorf("%w: %q", ErrUnknownConstraint, c.Type)
	}
}

func buildLoss(ld *lossDoc) (*generator.LossSpec, error) {
	spec := &generator.LossSpec{}
	switch ld.Evaluator {
	case "size":
		spec.Evaluator = loss.Size()
	case "count":
		spec.Evaluator = loss.SortCount(ld.Sort)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvaluator, ld.Evaluator)
	}
	switch ld.Direction {
	case "", "lower":
		spec.Direction = loss.LowerIsBetter
	case "higher":
		spec.Direction = loss.HigherIsBetter
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDirection, ld.Direction)
	}
	if ld.Stop != nil {
		var cs []loss.StopCriterion
		if ld.Stop.Threshold != nil {
			cs = append(cs, loss.StopAtThreshold(*ld.Stop.Threshold))
		}
		if ld.Stop.After > 0 {
			cs = append(cs, loss.StopAfter(ld.Stop.After))
		}
		if ld.Stop.Plateau != nil {
			cs = append(cs, loss.StopOnPlateau(ld.Stop.Plateau.Window, ld.Stop.Plateau.Eps))
		}
		switch len(cs) {
		case 0:
		case 1:
			spec.Stop = cs[0]
		default:
			spec.Stop = loss.StopAny(cs...)
		}
	}

	return spec, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
