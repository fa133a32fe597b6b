package codec

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/passbi/passbi_netex/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph() *models.Graph {
	return &models.Graph{
		Nodes: []models.Node{
			{ShortName: "Central", Longitude: 7.44, Latitude: 46.95},
			{ShortName: "North", Longitude: 7.45, Latitude: 46.97},
		},
		Edges: []models.Edge{{
			StartNode: 0,
			EndNode:   1,
			Timetable: models.Timetable{
				Journeys: []models.Journey{
					{Departure: 480, Arrival: 487, TransportMode: "bus", OperatingPeriod: 0, Line: "10", Controller: "BERN"},
					{Departure: 500, Arrival: 507, TransportMode: "bus", OperatingPeriod: 0, Line: "10", Controller: "BERN"},
				},
				Periods: []models.OperatingPeriod{
					{From: 240101, To: 241231, ValidDayBits: "fwM=", ValidDay: []byte{0x7F, 0x03}},
				},
			},
		}},
	}
}

func TestEncodeDecode(t *testing.T) {
	for _, format := range []Format{MsgPack, JSON} {
		t.Run(string(format), func(t *testing.T) {
			data, err := Marshal(sampleGraph(), format)
			require.NoError(t, err)

			got, err := Unmarshal(data, format)
			require.NoError(t, err)
			assert.Equal(t, sampleGraph(), got)
		})
	}
}

func TestJSONUsesShortKeys(t *testing.T) {
	data, err := Marshal(sampleGraph(), JSON)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"tt":{"j":[{"d":480,"a":487,"t":"bus","o":0,"l":"10","c":"BERN"}`)
	assert.Contains(t, string(data), `"p":[{"f":240101,"t":241231,"v":"fwM="}]`)
}

func TestDecodeRejectsBadBitmap(t *testing.T) {
	_, err := Unmarshal([]byte(`{"nodes":[],"edges":[{"s":0,"e":0,"tt":{"j":[],"p":[{"f":1,"t":2,"v":"%%"}]}}]}`), JSON)
	assert.Error(t, err)
}

func TestUnknownFormat(t *testing.T) {
	_, err := Marshal(sampleGraph(), Format("xml"))
	assert.Error(t, err)
}

func TestWriteReadFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		file   string
		format Format
	}{
		{"graph.msgpack", MsgPack},
		{"out/graph.json", JSON},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			assert.Equal(t, tt.format, FormatOf(path))

			require.NoError(t, WriteFile(path, sampleGraph(), tt.format))
			got, err := ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, sampleGraph(), got)
		})
	}
}

func TestWriteFileIsWorldReadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "graph.msgpack")
	require.NoError(t, WriteFile(path, sampleGraph(), MsgPack))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}
