package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Matrix is the parsed strategy.matrix block. Axis order follows the
// document so that expansion is deterministic.
type Matrix struct {
	// Axes are the matrix dimensions in document order.
	Axes []Axis
	// Include entries extend matching cells or append standalone cells.
	Include []map[string]string
	// Exclude entries remove product cells matching all their keys.
	Exclude []map[string]string
}

// Axis is one matrix dimension.
type Axis struct {
	Name   string
	Values []string
}

// UnmarshalYAML decodes the matrix mapping. Axis values are kept as the
// raw scalar text, so `3.10` and `"3.10"` both come through as "3.10".
func (m *Matrix) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("matrix: expected a mapping, got %s at line %d", nodeKind(node), node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		switch keyNode.Value {
		case "include":
			entries, err := decodeEntryList(valNode)
			if err != nil {
				return fmt.Errorf("matrix include: %w", err)
			}
			m.Include = entries
		case "exclude":
			entries, err := decodeEntryList(valNode)
			if err != nil {
				return fmt.Errorf("matrix exclude: %w", err)
			}
			m.Exclude = entries
		default:
			values, err := decodeScalarList(valNode)
			if err != nil {
				return fmt.Errorf("matrix axis %q: %w", keyNode.Value, err)
			}
			m.Axes = append(m.Axes, Axis{Name: keyNode.Value, Values: values})
		}
	}
	return nil
}

// AxisNames returns the axis names in document order.
func (m *Matrix) AxisNames() []string {
	names := make([]string, len(m.Axes))
	for i, a := range m.Axes {
		names[i] = a.Name
	}
	return names
}

func decodeScalarList(node *yaml.Node) ([]string, error) {
	if node.Kind == yaml.ScalarNode {
		return []string{node.Value}, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("expected a sequence of scalars, got %s at line %d", nodeKind(node), node.Line)
	}
	values := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("expected a scalar, got %s at line %d", nodeKind(item), item.Line)
		}
		values = append(values, item.Value)
	}
	return values, nil
}

func decodeEntryList(node *yaml.Node) ([]map[string]string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("expected a sequence of mappings, got %s at line %d", nodeKind(node), node.Line)
	}
	entries := make([]map[string]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("expected a mapping, got %s at line %d", nodeKind(item), item.Line)
		}
		entry := make(map[string]string, len(item.Content)/2)
		for i := 0; i+1 < len(item.Content); i += 2 {
			keyNode, valNode := item.Content[i], item.Content[i+1]
			if valNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("key %q: expected a scalar, got %s at line %d", keyNode.Value, nodeKind(valNode), valNode.Line)
			}
			entry[keyNode.Value] = valNode.Value
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
