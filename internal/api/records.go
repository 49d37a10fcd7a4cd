package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	"scenekit/internal/models"
)

// Multipart field names shared with the remote collection API.
const (
	FieldName     = "name"
	FieldType     = "type"
	FieldColor    = "color"
	FieldVisible  = "visible"
	FieldPosition = "position"
	FieldRotation = "rotation"
	FieldScale    = "scale"
	FieldModelURL = "model_url"
	FieldFile     = "model_file"
	// FieldLocalBlobID is read from local clients only; it is never sent
	// to the remote.
	FieldLocalBlobID = "local_blob_id"
	// FieldColorPicker is accepted as an alias of color on read.
	FieldColorPicker = "color_picker"
)

// DecodeRecords accepts a bare array or a paginated {"results": [...]} body
// and returns one canonical slice.
func DecodeRecords(data []byte) ([]models.GeometryRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []models.GeometryRecord{}, nil
	}

	var records []models.GeometryRecord
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrMalformedPayload, err)
		}
	case '{':
		var page struct {
			Results *[]models.GeometryRecord `json:"results"`
		}
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrMalformedPayload, err)
		}
		if page.Results == nil {
			return nil, fmt.Errorf("%w: object without results", models.ErrMalformedPayload)
		}
		records = *page.Results
	default:
		return nil, fmt.Errorf("%w: unexpected collection body", models.ErrMalformedPayload)
	}
	if records == nil {
		records = []models.GeometryRecord{}
	}
	return records, nil
}

// WriteRecordForm encodes in as the multipart body accepted by create and
// update. Vectors are sent as JSON strings.
func WriteRecordForm(w *multipart.Writer, in models.RecordInput) error {
	rec := in.Record
	fields := [][2]string{
		{FieldName, rec.Name},
		{FieldType, string(rec.Type)},
		{FieldColor, models.NormalizeColor(rec.Color)},
		{FieldVisible, strconv.FormatBool(rec.Visible)},
	}
	for _, vec := range []struct {
		name string
		v    models.Vec3
	}{
		{FieldPosition, rec.Position},
		{FieldRotation, rec.Rotation},
		{FieldScale, rec.Scale},
	} {
		raw, err := json.Marshal(vec.v)
		if err != nil {
			return err
		}
		fields = append(fields, [2]string{vec.name, string(raw)})
	}
	if !in.HasContent() && !rec.HasLocalBlob() && rec.ModelURL != "" {
		fields = append(fields, [2]string{FieldModelURL, rec.ModelURL})
	}

	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := w.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}

	if in.HasContent() {
		filename := strings.TrimSpace(in.Filename)
		if filename == "" {
			filename = "model.glb"
		}
		part, err := w.CreateFormFile(FieldFile, path.Base(filename))
		if err != nil {
			return err
		}
		if _, err := part.Write(in.Content); err != nil {
			return err
		}
	}
	return nil
}

// ReadRecordForm decodes a multipart create/update request. Absent vectors
// keep their zero value except scale, which defaults to unit; absent
// visibility defaults to true.
func ReadRecordForm(r *http.Request, maxBytes int64) (models.RecordInput, error) {
	var in models.RecordInput
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return in, fmt.Errorf("%w: %w", models.ErrMalformedPayload, err)
	}

	rec := models.GeometryRecord{
		Name:     strings.TrimSpace(r.FormValue(FieldName)),
		Type:     models.GeometryType(strings.TrimSpace(r.FormValue(FieldType))),
		Color:    models.NormalizeColor(r.FormValue(FieldColor)),
		Scale:    models.UnitScale,
		Visible:  true,
		ModelURL: strings.TrimSpace(r.FormValue(FieldModelURL)),
	}
	rec.LocalBlobID = strings.TrimSpace(r.FormValue(FieldLocalBlobID))
	if picker := models.NormalizeColor(r.FormValue(FieldColorPicker)); picker != "" {
		rec.Color = picker
	}
	if raw := strings.TrimSpace(r.FormValue(FieldVisible)); raw != "" {
		visible, err := strconv.ParseBool(raw)
		if err != nil {
			return in, fmt.Errorf("%w: invalid visible %q", models.ErrMalformedPayload, raw)
		}
		rec.Visible = visible
	}
	for _, vec := range []struct {
		name string
		dst  *models.Vec3
	}{
		{FieldPosition, &rec.Position},
		{FieldRotation, &rec.Rotation},
		{FieldScale, &rec.Scale},
	} {
		raw := strings.TrimSpace(r.FormValue(vec.name))
		if raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), vec.dst); err != nil {
			return in, fmt.Errorf("%w: invalid %s: %w", models.ErrMalformedPayload, vec.name, err)
		}
	}
	in.Record = rec

	file, header, err := r.FormFile(FieldFile)
	if err == http.ErrMissingFile {
		return in, nil
	}
	if err != nil {
		return in, fmt.Errorf("%w: %w", models.ErrMalformedPayload, err)
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return in, err
	}
	in.Content = content
	in.Filename = header.Filename
	return in, nil
}
