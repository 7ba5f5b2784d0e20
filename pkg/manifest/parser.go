// Package manifest provides YAML manifest parsing for codemode resources.
package manifest

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klubi/codemode/pkg/apis/v1alpha1"
	"gopkg.in/yaml.v3"
)

// ParseFile reads a YAML file at the given path and parses it into typed
// codemode resources. Multi-document YAML (separated by ---) is supported.
func ParseFile(path string) ([]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest file %s: %w", path, err)
	}
	return ParseBytes(data)
}

// ParseBytes parses raw YAML bytes into typed codemode resources.
// Multi-document YAML (separated by ---) is supported.
func ParseBytes(data []byte) ([]interface{}, error) {
	return parseDocuments(data)
}

// parseDocuments splits multi-document YAML and decodes each document into
// its concrete resource type.
func parseDocuments(data []byte) ([]interface{}, error) {
	var resources []interface{}

	decoder := yaml.NewDecoder(bytes.NewReader(data))

	for {
		// Decode into a generic yaml.Node so we can re-decode it.
		var node yaml.Node
		if err := decoder.Decode(&node); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("decoding yaml document: %w", err)
		}

		// Skip empty documents.
		if node.Kind == 0 {
			continue
		}

		// First pass: extract TypeMeta to determine the Kind.
		var meta v1alpha1.TypeMeta
		if err := node.Decode(&meta); err != nil {
			return nil, fmt.Errorf("decoding type meta: %w", err)
		}

		// Skip completely empty documents.
		if meta.Kind == "" && meta.APIVersion == "" {
			continue
		}

		// Second pass: decode into the concrete type based on Kind.
		resource, err := decodeResource(&node, meta.Kind)
		if err != nil {
			return nil, err
		}

		// Set default APIVersion if empty.
		setDefaultAPIVersion(resource)

		// Validate required fields.
		if err := validateResource(resource); err != nil {
			return nil, err
		}

		resources = append(resources, resource)
	}

	return resources, nil
}

// decodeResource unmarshals a yaml.Node into the correct concrete type
// based on the resource Kind.
func decodeResource(node *yaml.Node, kind string) (interface{}, error) {
	switch kind {
	case v1alpha1.KindToolset:
		var r v1alpha1.Toolset
		if err := node.Decode(&r); err != nil {
			return nil, fmt.Errorf("decoding Toolset: %w", err)
		}
		return &r, nil

	case v1alpha1.KindRun:
		var r v1alpha1.Run
		if err := node.Decode(&r); err != nil {
			return nil, fmt.Errorf("decoding Run: %w", err)
		}
		return &r, nil

	default:
		return nil, fmt.Errorf("unknown resource kind: %q", kind)
	}
}

// setDefaultAPIVersion sets the APIVersion to the default value if it is empty.
func setDefaultAPIVersion(resource interface{}) {
	switch r := resource.(type) {
	case *v1alpha1.Toolset:
		if r.APIVersion == "" {
			r.APIVersion = v1alpha1.APIVersion
		}
	case *v1alpha1.Run:
		if r.APIVersion == "" {
			r.APIVersion = v1alpha1.APIVersion
		}
	}
}

// validateResource checks that required fields are set on the resource.
func validateResource(resource interface{}) error {
	switch r := resource.(type) {
	case *v1alpha1.Toolset:
		if r.Metadata.Name == "" {
			return fmt.Errorf("validation failed: Toolset name must not be empty")
		}
		seen := make(map[string]bool, len(r.Spec.Tools))
		for i, tool := range r.Spec.Tools {
			if tool.Name == "" {
				return fmt.Errorf("validation failed: Toolset %s tool %d has no name", r.Metadata.Name, i)
			}
			if seen[tool.Name] {
				return fmt.Errorf("validation failed: Toolset %s declares tool %q twice", r.Metadata.Name, tool.Name)
			}
			seen[tool.Name] = true
			for j, p := range tool.Params {
				if p.Name == "" {
					return fmt.Errorf("validation failed: Toolset %s tool %s param %d has no name", r.Metadata.Name, tool.Name, j)
				}
			}
		}
	case *v1alpha1.Run:
		if r.Metadata.Name == "" {
			return fmt.Errorf("validation failed: Run name must not be empty")
		}
		if r.Spec.Prompt == "" {
			return fmt.Errorf("validation failed: Run %s has no prompt", r.Metadata.Name)
		}
	}
	return nil
}
