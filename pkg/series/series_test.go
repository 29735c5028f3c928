package series

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/goaqim/pkg/aqi"
	"github.com/itohio/goaqim/pkg/flash"
	"github.com/itohio/goaqim/pkg/ring"
	"github.com/itohio/goaqim/pkg/sample"
)

const (
	testOffset = 0xA0000
	testPeriod = 5 * time.Minute
	testLength = 8
)

var testNow = time.Unix(sample.Epoch+365*24*3600, 0).UTC()

type stored struct {
	age  time.Duration
	pm25 float32
}

// Stored oldest first. The sample 300s old sits on the edge between the two
// newest buckets and must land in the older one.
var testSamples = []stored{
	{1920 * time.Second, 35.4},
	{2040 * time.Second, 30.4},
	{1860 * time.Second, 40.4},
	{1620 * time.Second, 150.4},
	{1440 * time.Second, 290.4},
	{1260 * time.Second, 210.4},
	{540 * time.Second, 370.4},
	{300 * time.Second, 330.4},
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T) (*ring.Store[sample.Record], *flash.Sim) {
	t.Helper()
	sim := flash.NewSim(flash.DefaultGeometry)
	store, err := ring.New[sample.Record](sim, 64, testOffset, ring.WithLogger(quiet()))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, sim
}

func fillStore(t *testing.T, store *ring.Store[sample.Record], samples []stored) {
	t.Helper()
	for i, s := range samples {
		smp := sample.New(testNow.Add(-s.age), 0, s.pm25, float32(10*i), 1000, 77, 33, 3, 0.5)
		require.NoError(t, store.StoreSample(sample.Encode(smp)))
	}
}

func quantized(pm25 float32) float32 {
	return sample.DecodeConcentration(sample.EncodeConcentration(pm25))
}

func TestNew(t *testing.T) {
	s := New(testLength, testPeriod, nil)
	assert.Equal(t, testLength, s.Len())
	assert.Equal(t, testPeriod, s.Period())
	for i := range testLength {
		assert.Equal(t, NoData, s.Value(i))
	}

	assert.Equal(t, 0, New(-1, testPeriod, nil).Len())
}

func TestValue_OutOfRange(t *testing.T) {
	s := New(testLength, testPeriod, nil)
	assert.Equal(t, OutOfRange, s.Value(-1))
	assert.Equal(t, OutOfRange, s.Value(testLength))
	assert.Equal(t, OutOfRange, s.Value(1000))
}

func TestFill_Unscanned(t *testing.T) {
	sim := flash.NewSim(flash.DefaultGeometry)
	store, err := ring.New[sample.Record](sim, 64, testOffset, ring.WithLogger(quiet()))
	require.NoError(t, err)
	defer store.Close()

	s := New(testLength, testPeriod, nil)
	assert.Equal(t, 0, s.Fill(store, testNow))
	assert.Equal(t, int16(0), s.Min())
	assert.Equal(t, int16(0), s.Max())
	for i := range testLength {
		assert.Equal(t, NoData, s.Value(i))
	}
}

func TestFill_Empty(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Begin(true))

	s := New(testLength, testPeriod, nil)
	assert.Equal(t, 0, s.Fill(store, testNow))
	assert.Equal(t, int16(0), s.Min())
	assert.Equal(t, int16(0), s.Max())
}

func TestFill(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Begin(true))
	fillStore(t, store, testSamples)

	s := New(testLength, testPeriod, nil, WithLogger(quiet()))
	assert.Equal(t, 4, s.Fill(store, testNow))
	assert.Equal(t, []int16{NoData, 100, 200, 300, NoData, NoData, 400, NoData}, s.Values())
	assert.Equal(t, OutOfRange, s.Value(testLength))
	assert.Equal(t, int16(30), s.Min())
	assert.Equal(t, int16(370), s.Max())
	assert.Equal(t, 0, s.Invalid())

	// Refilling starts from scratch.
	assert.Equal(t, 4, s.Fill(store, testNow))
	assert.Equal(t, []int16{NoData, 100, 200, 300, NoData, NoData, 400, NoData}, s.Values())
}

func TestFill_OnePeriodLater(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Begin(true))
	fillStore(t, store, testSamples)

	// Every bucket moves one slot older and the newest one empties.
	s := New(testLength, testPeriod, nil)
	assert.Equal(t, 4, s.Fill(store, testNow.Add(testPeriod)))
	assert.Equal(t, []int16{100, 200, 300, NoData, NoData, 400, NoData, NoData}, s.Values())
}

func TestFill_OlderThanSeries(t *testing.T) {
	tests := []struct {
		name       string
		samples    []stored
		wantFilled int
		want       []int16
	}{
		{
			name: "newest in range",
			samples: []stored{
				{5000 * time.Second, 35.4},
				{4000 * time.Second, 35.4},
				{100 * time.Second, 150.4},
			},
			wantFilled: 1,
			want:       []int16{NoData, NoData, NoData, NoData, NoData, NoData, NoData, aqi.Value(quantized(150.4))},
		},
		{
			name: "all out of range",
			samples: []stored{
				{5000 * time.Second, 35.4},
				{2400 * time.Second, 35.4},
			},
			wantFilled: 0,
			want:       []int16{NoData, NoData, NoData, NoData, NoData, NoData, NoData, NoData},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newStore(t)
			require.NoError(t, store.Begin(true))
			fillStore(t, store, tt.samples)

			s := New(testLength, testPeriod, nil, WithLogger(quiet()))
			assert.Equal(t, tt.wantFilled, s.Fill(store, testNow))
			assert.Equal(t, tt.want, s.Values())
		})
	}
}

func TestFill_IgnoresFuture(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Begin(true))
	fillStore(t, store, append(testSamples[:len(testSamples):len(testSamples)], stored{-10 * time.Minute, 5}))

	s := New(testLength, testPeriod, nil)
	assert.Equal(t, 4, s.Fill(store, testNow))
	assert.Equal(t, []int16{NoData, 100, 200, 300, NoData, NoData, 400, NoData}, s.Values())
	assert.Equal(t, int16(5), s.Min())
}

func TestFill_MapFunc(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Begin(true))
	fillStore(t, store, testSamples)

	s := New(testLength, testPeriod, func(pm25 float32) int16 { return int16(pm25) })
	assert.Equal(t, 4, s.Fill(store, testNow))
	assert.Equal(t, []int16{NoData, 35, 150, 250, NoData, NoData, 350, NoData}, s.Values())
}

func TestFill_Invalid(t *testing.T) {
	store, sim := newStore(t)
	require.NoError(t, store.Begin(true))
	fillStore(t, store, testSamples)

	// Corrupt the checksum of the newest record.
	var crc [1]byte
	require.NoError(t, sim.Read(store.Last()+sample.RecordSize-1, crc[:]))
	crc[0] ^= 0x5A
	require.NoError(t, sim.Poke(store.Last()+sample.RecordSize-1, crc[:]))

	t.Run("used by default", func(t *testing.T) {
		s := New(testLength, testPeriod, nil, WithLogger(quiet()))
		assert.Equal(t, 4, s.Fill(store, testNow))
		assert.Equal(t, int16(400), s.Value(6))
		assert.Equal(t, 1, s.Invalid())
	})

	t.Run("skipped", func(t *testing.T) {
		s := New(testLength, testPeriod, nil, WithSkipInvalid(), WithLogger(quiet()))
		assert.Equal(t, 4, s.Fill(store, testNow))
		assert.Equal(t, aqi.Value(quantized(370.4)), s.Value(6))
		assert.Equal(t, []int16{NoData, 100, 200, 300, NoData, NoData}, s.Values()[:6])
		assert.Equal(t, 1, s.Invalid())
	})
}

type failingSource struct {
	*ring.Store[sample.Record]
	fail int
}

func (f failingSource) ReadSample(index int) (sample.Record, error) {
	if index == f.fail {
		return sample.Record{}, errors.New("read failed")
	}
	return f.Store.ReadSample(index)
}

func TestFill_ReadError(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Begin(true))
	fillStore(t, store, testSamples)

	// Index 2 is the 1260s sample, leaving the 1440s one alone in its bucket.
	s := New(testLength, testPeriod, nil, WithLogger(quiet()))
	assert.Equal(t, 4, s.Fill(failingSource{Store: store, fail: 2}, testNow))
	assert.Equal(t, aqi.Value(quantized(290.4)), s.Value(3))
	assert.Equal(t, int16(400), s.Value(6))
}
