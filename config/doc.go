// Package config loads search-space documents: a YAML file declaring one
// schema, a dictionary of named instance literals, and the generator
// declarations wired over them.
//
// The document is parsed in three layers. The outer shape is decoded with
// gopkg.in/yaml.v3 and checked for required fields with
// go-playground/validator. Each generator entry is then decoded from its
// generic map into the payload struct of its declared kind with
// mitchellh/mapstructure, so explicit, additive, and multiplicative
// declarations can carry different fields under one list. Finally the
// payloads are resolved against the schema and the instance dictionary
// into a generator.Arena ready for schedule.Build.
//
// All errors are fatal and located: they name the generator, wire, or
// instance that failed, and wrap a package sentinel so callers can branch
// with errors.Is.
package config
