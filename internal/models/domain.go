package models

import (
	"fmt"
	"strings"
)

// GeometryType defines the primitive or model category of a scene record.
type GeometryType string

const (
	TypeBox         GeometryType = "box"
	TypeSphere      GeometryType = "sphere"
	TypeCylinder    GeometryType = "cylinder"
	TypeCone        GeometryType = "cone"
	TypeTorus       GeometryType = "torus"
	TypePlane       GeometryType = "plane"
	TypeIcosahedron GeometryType = "icosahedron"
	TypeModel       GeometryType = "model"
)

// AssetKind selects the folder family an asset lives in.
type AssetKind string

const (
	KindModel   AssetKind = "model"
	KindTexture AssetKind = "texture"
)

// ProbeKind selects how a backend's candidates are checked for existence.
type ProbeKind string

const (
	ProbeHTTP ProbeKind = "http"
	ProbeGCS  ProbeKind = "gcs"
)

// Tier orders backends during resolution.
type Tier string

const (
	// TierPriority is only tried for names on the priority allow-list.
	TierPriority Tier = "priority"
	TierStore    Tier = "store"
	TierLocal    Tier = "local"
)

const (
	DefaultColor = "#000000"
)

var validGeometryTypes = map[GeometryType]string{
	TypeBox:         "Box",
	TypeSphere:      "Sphere",
	TypeCylinder:    "Cylinder",
	TypeCone:        "Cone",
	TypeTorus:       "Torus",
	TypePlane:       "Plane",
	TypeIcosahedron: "Icosahedron",
	TypeModel:       "3D model",
}

var geometryTypeOrder = []GeometryType{
	TypeBox,
	TypeSphere,
	TypeCylinder,
	TypeCone,
	TypeTorus,
	TypePlane,
	TypeIcosahedron,
	TypeModel,
}

// TypeInfo is one entry of the geometry type catalogue.
type TypeInfo struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

func IsValidGeometryType(value GeometryType) bool {
	_, ok := validGeometryTypes[value]
	return ok
}

func ParseGeometryType(raw string) (GeometryType, error) {
	value := GeometryType(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("type is required")
	}
	if !IsValidGeometryType(value) {
		return "", fmt.Errorf("invalid type: %s", value)
	}
	return value, nil
}

// GeometryTypes returns the type catalogue in display order.
func GeometryTypes() []TypeInfo {
	out := make([]TypeInfo, 0, len(geometryTypeOrder))
	for _, value := range geometryTypeOrder {
		out = append(out, TypeInfo{ID: string(value), Name: validGeometryTypes[value]})
	}
	return out
}

// ParseAssetKind accepts singular and plural spellings.
func ParseAssetKind(raw string) (AssetKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "model", "models":
		return KindModel, nil
	case "texture", "textures":
		return KindTexture, nil
	case "":
		return "", fmt.Errorf("kind is required")
	default:
		return "", fmt.Errorf("invalid kind: %s", raw)
	}
}

// Folder returns the kind-specific folder segment used by URL templates.
func (k AssetKind) Folder() string {
	switch k {
	case KindTexture:
		return "textures"
	default:
		return "models"
	}
}

// NormalizeColor prefixes a bare hex color with '#'.
func NormalizeColor(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(value, "#") {
		value = "#" + value
	}
	return value
}
