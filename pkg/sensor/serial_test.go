package sensor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Reading
		wantErr bool
	}{
		{
			name: "valid line without averages",
			line: "101,1577836800,1,2,35.5,36.25,77,33,1013.25",
			want: Reading{
				ID:           101,
				Timestamp:    time.Unix(1577836800, 0).UTC(),
				AgeA:         time.Minute,
				AgeB:         2 * time.Minute,
				PM25A:        35.5,
				PM25B:        36.25,
				TemperatureF: 77,
				Humidity:     33,
				Pressure:     1013.25,
			},
		},
		{
			name: "valid line with averages and spaces",
			line: " 7, 1577836800, 0, 0, 12, 12.5, -4, 90, 998.5, 10, 11, 12, 13, 14, 15",
			want: Reading{
				ID:           7,
				Timestamp:    time.Unix(1577836800, 0).UTC(),
				PM25A:        12,
				PM25B:        12.5,
				TemperatureF: -4,
				Humidity:     90,
				Pressure:     998.5,
				Averages:     [AveragesCount]float32{10, 11, 12, 13, 14, 15},
			},
		},
		{
			name:    "invalid - wrong number of fields",
			line:    "101,1577836800,1,2,35.5,36.25,77,33",
			wantErr: true,
		},
		{
			name:    "invalid - partial averages",
			line:    "101,1577836800,1,2,35.5,36.25,77,33,1013.25,10,11",
			wantErr: true,
		},
		{
			name:    "invalid - sensor id",
			line:    "abc,1577836800,1,2,35.5,36.25,77,33,1013.25",
			wantErr: true,
		},
		{
			name:    "invalid - negative sensor id",
			line:    "-1,1577836800,1,2,35.5,36.25,77,33,1013.25",
			wantErr: true,
		},
		{
			name:    "invalid - concentration",
			line:    "101,1577836800,1,2,high,36.25,77,33,1013.25",
			wantErr: true,
		},
		{
			name:    "invalid - average",
			line:    "101,1577836800,1,2,35.5,36.25,77,33,1013.25,1,2,3,x,5,6",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewSerial_Defaults(t *testing.T) {
	s := NewSerial("/dev/null", 0, 0, nil)
	assert.Equal(t, DefaultBaudRate, s.baudRate)
	assert.Equal(t, DefaultBufferSize, cap(s.readings))
	assert.False(t, s.IsConnected())
	assert.NoError(t, s.Close())
}

func TestSerial_ReconnectAfterClose(t *testing.T) {
	s := NewSerial("/dev/aqim-missing", 0, 4, nil)
	s.connected = true
	first := s.Readings()
	firstCtx := s.ctx
	require.NoError(t, s.Close())

	for range first {
	}
	assert.Error(t, firstCtx.Err())

	// The port does not exist, but the session state is renewed first.
	assert.Error(t, s.Connect())
	assert.False(t, s.IsConnected())
	assert.NoError(t, s.ctx.Err())
	assert.Equal(t, 4, cap(s.Readings()))

	select {
	case _, ok := <-s.Readings():
		t.Fatalf("fresh channel must be open and empty, got ok=%v", ok)
	default:
	}
	assert.NoError(t, s.Close())
}
