package picaprs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRMC     = "$GPRMC,155146.00,A,3515.5466,N,11211.0917,W,12.3,270.00,010624,,,A*44"
	testGGAFull = "$GPGGA,155146.00,3515.5466,N,11211.0917,W,1,10,0.9,2059.0,M,,M,,*5A"
)

func TestParseSentence_RMC(t *testing.T) {
	var p = NewNMEAParser()

	var ok, err = p.ParseSentence(testRMC)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, p.DataReady())
	assert.False(t, p.DataReady(), "one shot")

	var d = p.Data()
	assert.Equal(t, Fix2D, d.Fix, "no altitude seen yet")
	assert.Equal(t, int32(352591100), d.Latitude)
	assert.Equal(t, int32(-1121848617), d.Longitude)
	assert.Equal(t, uint16(123), d.Speed)
	assert.Equal(t, uint16(27000), d.Heading)
	assert.Equal(t, [3]uint8{15, 51, 46}, [3]uint8{d.Hours, d.Minutes, d.Seconds})
	assert.Equal(t, uint8(1), d.Day)
	assert.Equal(t, uint8(6), d.Month)
	assert.Equal(t, uint16(2024), d.Year)
}

func TestParseSentence_GGAThenRMC(t *testing.T) {
	var p = NewNMEAParser()

	var _, err = p.ParseSentence(testRMC)
	require.NoError(t, err)
	_, err = p.ParseSentence(testGGAFull)
	require.NoError(t, err)

	var d = p.Data()
	assert.Equal(t, uint8(10), d.TrackedSats)
	assert.Equal(t, uint16(9), d.DOP)
	assert.Equal(t, int32(205900), d.Altitude)
	assert.Equal(t, Fix2D, d.Fix)

	_, err = p.ParseSentence(testRMC)
	require.NoError(t, err)
	assert.Equal(t, Fix3D, p.Data().Fix)
	assert.Equal(t, int32(205900), p.Data().Altitude, "carried from GGA")
}

func TestParseSentence_NoFix(t *testing.T) {
	var p = NewNMEAParser()

	var _, err = p.ParseSentence("$GPRMC,001431.00,V,,,,,,,121015,,,N*7C")
	require.NoError(t, err)
	assert.Equal(t, FixNone, p.Data().Fix)
	assert.Equal(t, uint16(2015), p.Data().Year)

	_, err = p.ParseSentence(testRMC)
	require.NoError(t, err)
	var d = p.Data()
	require.True(t, d.HasFix())

	_, err = p.ParseSentence("$GPGGA,001429.00,,,,,0,00,99.99,,,,,,*68")
	require.NoError(t, err)
	assert.Equal(t, FixNone, p.Data().Fix, "fix quality 0")
	assert.Equal(t, uint16(1000), p.Data().DOP)
}

func TestParseSentence_GN(t *testing.T) {
	var p = NewNMEAParser()

	var ok, err = p.ParseSentence("$GNRMC,120000,A,4000.0000,S,00030.0000,E,0.0,,311299,,,A*58")
	require.NoError(t, err)
	assert.True(t, ok)

	var d = p.Data()
	assert.Equal(t, int32(-400000000), d.Latitude)
	assert.Equal(t, int32(5000000), d.Longitude)
	assert.Zero(t, d.Heading)
	assert.Equal(t, uint16(2099), d.Year)
}

func TestParseSentence_Ignored(t *testing.T) {
	var p = NewNMEAParser()

	for _, s := range []string{
		"$GPGSV,1,1,00*79",
		"$GLRMC,155146.00,A,3515.5466,N,11211.0917,W,12.3,270.00,010624,,,A",
		"$PGRMZ,123,f,3",
	} {
		var ok, err = p.ParseSentence(s)
		require.NoError(t, err, s)
		assert.False(t, ok, s)
	}

	assert.False(t, p.DataReady())
}

func TestParseSentence_Errors(t *testing.T) {
	var tests = []struct {
		name    string
		in      string
		wantErr error
	}{
		{name: "no dollar", in: "GPRMC,1,2,3", wantErr: ErrNMEAFormat},
		{name: "short", in: "$GP", wantErr: ErrNMEAFormat},
		{name: "bad checksum", in: strings.Replace(testRMC, "*44", "*45", 1), wantErr: ErrNMEAChecksum},
		{name: "garbage checksum", in: strings.Replace(testRMC, "*44", "*zz", 1), wantErr: ErrNMEAChecksum},
		{name: "no status", in: "$GPRMC,155146.00", wantErr: ErrNMEAFormat},
		{name: "bad minutes", in: "$GPRMC,155146.00,A,3575.0000,N,11211.0917,W,,,010624", wantErr: ErrNMEAFormat},
		{name: "bad hemisphere", in: "$GPRMC,155146.00,A,3515.5466,Q,11211.0917,W,,,010624", wantErr: ErrNMEAFormat},
		{name: "bad altitude", in: "$GPGGA,155146.00,,,,,1,10,0.9,high,M", wantErr: ErrNMEAFormat},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var _, err = NewNMEAParser().ParseSentence(tc.in)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRemoveChecksum_NonASCII(t *testing.T) {
	// Line noise is not UTF-8.  The checksum is over raw bytes.
	var msg, err = removeChecksum("$GPTXT,\xfe\xff*62")
	require.NoError(t, err)
	assert.Equal(t, "$GPTXT,\xfe\xff", msg)

	_, err = removeChecksum("$GPTXT,\xfe\xff*63")
	require.ErrorIs(t, err, ErrNMEAChecksum)
}

func TestCoordFromNMEA(t *testing.T) {
	var tests = []struct {
		in   string
		hemi string
		lon  bool
		want int32
	}{
		{in: "4237.1240", hemi: "N", want: 426187333},
		{in: "4237.1240", hemi: "S", want: -426187333},
		{in: "07120.8333", hemi: "W", lon: true, want: -713472217},
		{in: "17959.9999", hemi: "E", lon: true, want: 1799999983},
		{in: "0000.0000", hemi: "N", want: 0},
	}

	for _, tc := range tests {
		var got int32
		var err error

		if tc.lon {
			got, err = longitudeFromNMEA(tc.in, tc.hemi)
		} else {
			got, err = latitudeFromNMEA(tc.in, tc.hemi)
		}

		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestReadNMEA(t *testing.T) {
	var store = NewGPSStore()
	var updates = store.Updates()

	var input = strings.Join([]string{
		"noise before the first sentence",
		testRMC,
		"$" + strings.Repeat("x", 2*NMEA_MAX_LEN),
		strings.Replace(testGGAFull, "*5A", "*00", 1),
		"$GPGSV,1,1,00*79",
		testGGAFull,
		testRMC,
		"",
	}, "\r\n")

	var err = ReadNMEA(context.Background(), strings.NewReader(input), store)
	require.ErrorIs(t, err, io.EOF)

	assert.Len(t, updates, 3)

	var d = store.Get()
	assert.Equal(t, Fix3D, d.Fix)
	assert.Equal(t, int32(205900), d.Altitude)
	assert.Equal(t, int32(352591100), d.Latitude)
}

func TestReadNMEA_Cancelled(t *testing.T) {
	var ctx, cancel = context.WithCancel(context.Background())
	cancel()

	var err = ReadNMEA(ctx, strings.NewReader(testRMC+"\r\n"), NewGPSStore())
	require.ErrorIs(t, err, context.Canceled)
}
