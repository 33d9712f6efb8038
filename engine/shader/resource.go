package shader

import (
	"fmt"
	"strings"
)

// ResourceKind is the coarse class of a bindable resource, inferred from the address
// space and type of its declaration. Two declarations of one semantic name must agree
// on it.
type ResourceKind int

const (
	// ResourceUnknown is any declaration that is not a bindable resource.
	ResourceUnknown ResourceKind = iota

	// ResourceUniform is a var<uniform> buffer.
	ResourceUniform

	// ResourceStorage is a var<storage, ...> buffer.
	ResourceStorage

	// ResourceTexture is a sampled, depth, multisampled or external texture.
	ResourceTexture

	// ResourceStorageTexture is a texture_storage_* texture.
	ResourceStorageTexture

	// ResourceSampler is a sampler or comparison sampler.
	ResourceSampler
)

var resourceKindNames = map[ResourceKind]string{
	ResourceUnknown:        "unknown",
	ResourceUniform:        "uniform",
	ResourceStorage:        "storage",
	ResourceTexture:        "texture",
	ResourceStorageTexture: "storage_texture",
	ResourceSampler:        "sampler",
}

func (k ResourceKind) String() string {
	if name, ok := resourceKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ResourceKind(%d)", int(k))
}

// MarshalText encodes the kind by name so serialized tables stay readable.
func (k ResourceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name produced by MarshalText.
func (k *ResourceKind) UnmarshalText(text []byte) error {
	for kind, name := range resourceKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown resource kind %q", text)
}

// ClassifyResource infers the resource kind of a declaration.
//
// Parameters:
//   - addressSpace: the var template list, e.g. "uniform" or "storage, read", empty for handle types
//   - typeName: the declared type, e.g. "texture_2d<f32>" or "sampler"
//
// Returns:
//   - ResourceKind: the inferred kind, ResourceUnknown for non-resource declarations
func ClassifyResource(addressSpace, typeName string) ResourceKind {
	if addressSpace != "" {
		space, _, _ := strings.Cut(addressSpace, ",")
		switch strings.TrimSpace(space) {
		case "uniform":
			return ResourceUniform
		case "storage":
			return ResourceStorage
		default:
			return ResourceUnknown
		}
	}

	switch {
	case typeName == "sampler" || typeName == "sampler_comparison":
		return ResourceSampler
	case strings.HasPrefix(typeName, "texture_storage_"):
		return ResourceStorageTexture
	case strings.HasPrefix(typeName, "texture_"):
		return ResourceTexture
	}
	return ResourceUnknown
}

// Resource is a native @group/@binding declaration found by the tag scanner, tagged or not.
type Resource struct {
	Group        int
	Binding      int
	Variable     string
	Type         string
	AddressSpace string
	Kind         ResourceKind

	// Semantic is the @tag name, or "" for an untagged declaration.
	Semantic string

	// Offset is the byte offset of the declaration's first attribute.
	Offset int
}
