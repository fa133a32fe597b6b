// Package codec serializes compiled graphs as msgpack or JSON snapshots.
package codec

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/passbi/passbi_netex/internal/calendar"
	"github.com/passbi/passbi_netex/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// Format names a snapshot encoding
type Format string

const (
	MsgPack Format = "msgpack"
	JSON    Format = "json"
)

// FormatOf guesses the format from a file extension, msgpack by default
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return MsgPack
}

// Encode writes g to w
func Encode(w io.Writer, g *models.Graph, format Format) error {
	switch format {
	case MsgPack:
		if err := msgpack.NewEncoder(w).Encode(g); err != nil {
			return fmt.Errorf("failed to encode msgpack graph: %w", err)
		}
	case JSON:
		enc := json.NewEncoder(w)
		if err := enc.Encode(g); err != nil {
			return fmt.Errorf("failed to encode json graph: %w", err)
		}
	default:
		return fmt.Errorf("unknown graph format %q", format)
	}
	return nil
}

// Decode reads a graph from r. Raw day bitmaps are restored from their
// base64 form when the encoding does not carry them.
func Decode(r io.Reader, format Format) (*models.Graph, error) {
	var g models.Graph
	switch format {
	case MsgPack:
		if err := msgpack.NewDecoder(r).Decode(&g); err != nil {
			return nil, fmt.Errorf("failed to decode msgpack graph: %w", err)
		}
	case JSON:
		if err := json.NewDecoder(r).Decode(&g); err != nil {
			return nil, fmt.Errorf("failed to decode json graph: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown graph format %q", format)
	}

	if err := restoreBitmaps(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Marshal encodes g into a byte slice
func Marshal(g *models.Graph, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, g, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a graph from data
func Unmarshal(data []byte, format Format) (*models.Graph, error) {
	return Decode(bytes.NewReader(data), format)
}

// WriteFile writes g to path, replacing any existing file atomically
func WriteFile(path string, g *models.Graph, format Format) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.CreateTemp(dir, ".graph-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	bw := bufio.NewWriter(f)
	if err := Encode(bw, g, format); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write graph: %w", err)
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		return fmt.Errorf("failed to set graph file mode: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close graph file: %w", err)
	}
	return os.Rename(f.Name(), path)
}

// ReadFile reads a graph snapshot, the format is taken from the extension
func ReadFile(path string) (*models.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph: %w", err)
	}
	defer f.Close()

	return Decode(bufio.NewReader(f), FormatOf(path))
}

func restoreBitmaps(g *models.Graph) error {
	for i := range g.Edges {
		periods := g.Edges[i].Timetable.Periods
		for j := range periods {
			if periods[j].ValidDay != nil {
				continue
			}
			raw, err := calendar.Decode(periods[j].ValidDayBits)
			if err != nil {
				return fmt.Errorf("edge %d period %d: %w", i, j, err)
			}
			periods[j].ValidDay = raw
		}
	}
	return nil
}
