package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Encoder encodes response values to a wire format.
type Encoder interface {
	ContentType() string
	Encode(w io.Writer, v any) error
}

// jsonCodec encodes JSON. It is the default encoder.
type jsonCodec struct{}

func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Encode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// yamlCodec encodes YAML. Values go through JSON first so json tags name
// the keys and object key order is kept.
type yamlCodec struct{}

func (yamlCodec) ContentType() string { return "application/yaml" }

func (yamlCodec) Encode(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeJSONAsYAML(w, raw)
}

// writeJSONAsYAML re-encodes a JSON document as block-style YAML.
func writeJSONAsYAML(w io.Writer, raw []byte) error {
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return fmt.Errorf("yaml: %w", err)
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("yaml: %w", err)
	}
	return enc.Close()
}

// blockStyle drops the flow style the JSON input gave every collection
// and the quoting of plain strings.
func blockStyle(n *yaml.Node) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		n.Style = 0
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" && n.Style == yaml.DoubleQuotedStyle {
		n.Style = 0
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// codecRegistry holds all registered encoders.
// Index 0 is always JSON (the default).
type codecRegistry struct {
	encoders []Encoder
}

// newCodecRegistry builds a registry with JSON first, YAML second, then any
// user-registered encoders.
func newCodecRegistry(userEncoders []Encoder) *codecRegistry {
	cr := &codecRegistry{
		encoders: make([]Encoder, 0, 2+len(userEncoders)),
	}
	cr.encoders = append(cr.encoders, jsonCodec{}, yamlCodec{})
	cr.encoders = append(cr.encoders, userEncoders...)
	return cr
}

// negotiate picks an encoder based on the Accept header value.
// Returns (JSON, true) for empty or */* accept values.
// Returns (nil, false) if an explicit Accept has no match.
func (cr *codecRegistry) negotiate(accept string) (Encoder, bool) {
	if accept == "" {
		return cr.encoders[0], true
	}

	type candidate struct {
		encoder Encoder
		quality float64
	}

	var best candidate
	best.quality = -1

	for part := range strings.SplitSeq(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}

		q := 1.0
		if qs, ok := params["q"]; ok {
			if parsed, err := strconv.ParseFloat(qs, 64); err == nil {
				q = parsed
			}
		}

		if q <= best.quality {
			continue
		}

		if mediaType == "*/*" {
			best = candidate{encoder: cr.encoders[0], quality: q}
			continue
		}

		for _, enc := range cr.encoders {
			if enc.ContentType() == mediaType {
				best = candidate{encoder: enc, quality: q}
				break
			}
		}
	}

	if best.encoder == nil {
		return nil, false
	}
	return best.encoder, true
}

// forContentType returns the encoder producing ct, if registered.
func (cr *codecRegistry) forContentType(ct string) (Encoder, bool) {
	for _, enc := range cr.encoders {
		if enc.ContentType() == ct {
			return enc, true
		}
	}
	return nil, false
}
