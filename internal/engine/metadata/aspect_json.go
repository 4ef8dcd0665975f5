package metadata

import (
	"encoding/json"
	"fmt"

	domainerrors "bazelcp/internal/core/errors"
	"bazelcp/internal/engine/label"
)

// AspectFileSuffix names the per-target files the aspect writes.
const AspectFileSuffix = ".bzljavasdk-data.json"

type aspectJar struct {
	Jar          string `json:"jar,omitempty"`
	InterfaceJar string `json:"interface_jar,omitempty"`
	SourceJar    string `json:"source_jar,omitempty"`
}

type aspectDoc struct {
	Label                     string      `json:"label"`
	Kind                      string      `json:"kind"`
	BuildFileArtifactLocation string      `json:"build_file_artifact_location,omitempty"`
	Dependencies              []string    `json:"dependencies,omitempty"`
	Jars                      []aspectJar `json:"jars,omitempty"`
	GeneratedJars             []aspectJar `json:"generated_jars,omitempty"`
	Sources                   []string    `json:"sources,omitempty"`
	MainClass                 string      `json:"main_class,omitempty"`
}

// ParseAspectRecord decodes one aspect output document.
func ParseAspectRecord(data []byte) (*Record, error) {
	var doc aspectDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeMetadataUnavailable, "malformed aspect output")
	}
	return doc.record()
}

func (d aspectDoc) record() (*Record, error) {
	own, err := label.Parse(d.Label)
	if err != nil {
		return nil, fmt.Errorf("aspect record label: %w", err)
	}
	deps := make([]label.Label, 0, len(d.Dependencies))
	for _, raw := range d.Dependencies {
		dep, err := label.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("aspect record %s dependency: %w", own, err)
		}
		deps = append(deps, dep)
	}
	return NewRecord(Spec{
		Label:     own,
		Rule:      d.Kind,
		Sources:   d.Sources,
		Deps:      deps,
		Produced:  toArtifacts(d.Jars),
		Generated: toArtifacts(d.GeneratedJars),
		BuildFile: d.BuildFileArtifactLocation,
		MainClass: d.MainClass,
	}), nil
}

// The full jar is used; the interface jar only stands in when it is the
// sole output.
func toArtifacts(jars []aspectJar) []Artifact {
	out := make([]Artifact, 0, len(jars))
	for _, j := range jars {
		bin := j.Jar
		if bin == "" {
			bin = j.InterfaceJar
		}
		if bin == "" {
			continue
		}
		out = append(out, Artifact{Binary: bin, Source: j.SourceJar})
	}
	return out
}

func docOf(r *Record) aspectDoc {
	doc := aspectDoc{
		Label:                     r.label.String(),
		Kind:                      r.rule,
		BuildFileArtifactLocation: r.buildFile,
		Sources:                   r.Sources(),
		MainClass:                 r.mainClass,
		Dependencies:              label.Strings(r.deps),
	}
	for _, a := range r.produced {
		doc.Jars = append(doc.Jars, aspectJar{Jar: a.Binary, SourceJar: a.Source})
	}
	for _, a := range r.generated {
		doc.GeneratedJars = append(doc.GeneratedJars, aspectJar{Jar: a.Binary, SourceJar: a.Source})
	}
	return doc
}

// MarshalRecords encodes records in the aspect document shape.
func MarshalRecords(records []*Record) ([]byte, error) {
	docs := make([]aspectDoc, len(records))
	for i, r := range records {
		docs[i] = docOf(r)
	}
	return json.Marshal(docs)
}

// UnmarshalRecords reverses MarshalRecords.
func UnmarshalRecords(data []byte) ([]*Record, error) {
	var docs []aspectDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeMetadataUnavailable, "malformed stored records")
	}
	out := make([]*Record, 0, len(docs))
	for _, d := range docs {
		rec, err := d.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
