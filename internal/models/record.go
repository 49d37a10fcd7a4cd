package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Vec3 is a position, rotation, or scale triple.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// UnitScale is the scale applied to records that do not carry one.
var UnitScale = Vec3{X: 1, Y: 1, Z: 1}

// GeometryRecord is one renderable scene entity.
//
// When LocalBlobID is set, ModelURL holds a session handle minted by the vault
// and must not be written to durable storage.
type GeometryRecord struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Type        GeometryType `json:"type" yaml:"type"`
	Color       string       `json:"color" yaml:"color"`
	Position    Vec3         `json:"position" yaml:"position"`
	Rotation    Vec3         `json:"rotation" yaml:"rotation"`
	Scale       Vec3         `json:"scale" yaml:"scale"`
	Visible     bool         `json:"visible" yaml:"visible"`
	ModelURL    string       `json:"model_url,omitempty" yaml:"model_url,omitempty"`
	LocalBlobID string       `json:"local_blob_id,omitempty" yaml:"local_blob_id,omitempty"`
}

// LedgerEntry is a GeometryRecord as held by the override ledger.
type LedgerEntry = GeometryRecord

// DefaultRecord returns the record used when a lookup finds nothing.
func DefaultRecord() GeometryRecord {
	return GeometryRecord{
		Type:    TypeBox,
		Color:   DefaultColor,
		Scale:   UnitScale,
		Visible: true,
	}
}

// RecordOrDefault substitutes DefaultRecord for a missed lookup.
func RecordOrDefault(rec GeometryRecord, ok bool) GeometryRecord {
	if !ok {
		return DefaultRecord()
	}
	return rec
}

// ForPersistence returns a copy safe to write to the ledger.
func (r GeometryRecord) ForPersistence() GeometryRecord {
	if r.LocalBlobID != "" {
		r.ModelURL = ""
	}
	return r
}

// HasLocalBlob reports whether the record's model lives in the vault.
func (r GeometryRecord) HasLocalBlob() bool {
	return strings.TrimSpace(r.LocalBlobID) != ""
}

// UnmarshalJSON accepts numeric or string ids and fills defaults for
// scale and visibility when the payload omits them.
func (r *GeometryRecord) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID          json.RawMessage `json:"id"`
		Name        string          `json:"name"`
		Type        GeometryType    `json:"type"`
		Color       string          `json:"color"`
		Position    *Vec3           `json:"position"`
		Rotation    *Vec3           `json:"rotation"`
		Scale       *Vec3           `json:"scale"`
		Visible     *bool           `json:"visible"`
		ModelURL    *string         `json:"model_url"`
		LocalBlobID *string         `json:"local_blob_id"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	id, err := decodeID(wire.ID)
	if err != nil {
		return err
	}

	out := GeometryRecord{
		ID:      id,
		Name:    wire.Name,
		Type:    wire.Type,
		Color:   wire.Color,
		Scale:   UnitScale,
		Visible: true,
	}
	if wire.Position != nil {
		out.Position = *wire.Position
	}
	if wire.Rotation != nil {
		out.Rotation = *wire.Rotation
	}
	if wire.Scale != nil {
		out.Scale = *wire.Scale
	}
	if wire.Visible != nil {
		out.Visible = *wire.Visible
	}
	if wire.ModelURL != nil {
		out.ModelURL = *wire.ModelURL
	}
	if wire.LocalBlobID != nil {
		out.LocalBlobID = *wire.LocalBlobID
	}
	*r = out
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("invalid record id: %s", string(raw))
	}
	return n.String(), nil
}

// RecordInput is a record plus optional new model content.
type RecordInput struct {
	Record   GeometryRecord
	Content  []byte
	Filename string
}

// HasContent reports whether the input carries a new model file.
func (in RecordInput) HasContent() bool {
	return len(in.Content) > 0
}
