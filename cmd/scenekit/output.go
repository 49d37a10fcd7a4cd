package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"scenekit/internal/format"
	"scenekit/internal/models"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeStructured(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeRecordList(records []models.GeometryRecord) error {
	for _, rec := range records {
		if err := writePlain("%s\n", formatRecordLine(rec)); err != nil {
			return err
		}
	}
	return nil
}

func writeRecordDetail(rec models.GeometryRecord) error {
	lines := []string{
		fmt.Sprintf("id: %s", rec.ID),
		fmt.Sprintf("name: %s", rec.Name),
		fmt.Sprintf("type: %s", rec.Type),
		fmt.Sprintf("color: %s", rec.Color),
		fmt.Sprintf("position: %s", formatVec3(rec.Position)),
		fmt.Sprintf("rotation: %s", formatVec3(rec.Rotation)),
		fmt.Sprintf("scale: %s", formatVec3(rec.Scale)),
		fmt.Sprintf("visible: %t", rec.Visible),
	}
	if rec.ModelURL != "" {
		lines = append(lines, fmt.Sprintf("model_url: %s", rec.ModelURL))
	}
	if rec.LocalBlobID != "" {
		lines = append(lines, fmt.Sprintf("local_blob_id: %s", rec.LocalBlobID))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatRecordLine(rec models.GeometryRecord) string {
	marker := "●"
	if !rec.Visible {
		marker = "○"
	}
	line := fmt.Sprintf("%s %s [%s] %s", marker, rec.ID, rec.Type, rec.Name)
	switch {
	case rec.LocalBlobID != "" && rec.ModelURL == "":
		line += " (model missing)"
	case rec.LocalBlobID != "":
		line += " (local model)"
	case rec.ModelURL != "":
		line += " -> " + rec.ModelURL
	}
	return line
}

func formatVec3(v models.Vec3) string {
	return fmt.Sprintf("%g,%g,%g", v.X, v.Y, v.Z)
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
