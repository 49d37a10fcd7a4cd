package server

import (
	"fmt"
	"regexp"
	"strings"

	"scenekit/internal/models"
)

// Record ids are server-assigned numbers or local tokens; blob ids carry
// a uuid. Both stay within URL-safe characters.
var idRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

func validateID(id string) bool {
	return idRegex.MatchString(id)
}

func normalizeType(value models.GeometryType) (models.GeometryType, error) {
	if strings.TrimSpace(string(value)) == "" {
		return models.TypeBox, nil
	}
	parsed, err := models.ParseGeometryType(string(value))
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidType)
	}
	return parsed, nil
}

func normalizeKind(value string) (models.AssetKind, error) {
	if strings.TrimSpace(value) == "" {
		return models.KindModel, nil
	}
	kind, err := models.ParseAssetKind(value)
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidKind)
	}
	return kind, nil
}

// normalizeRecordInput applies write-side validation and defaults.
func normalizeRecordInput(in models.RecordInput) (models.RecordInput, error) {
	rec := in.Record
	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Name == "" {
		return in, badRequestCode(fmt.Errorf("name is required"), ErrCodeMissingRequired)
	}
	typ, err := normalizeType(rec.Type)
	if err != nil {
		return in, err
	}
	rec.Type = typ
	rec.Color = models.NormalizeColor(rec.Color)
	if rec.Color == "" {
		rec.Color = models.DefaultColor
	}
	rec.ModelURL = strings.TrimSpace(rec.ModelURL)
	in.Record = rec
	return in, nil
}
