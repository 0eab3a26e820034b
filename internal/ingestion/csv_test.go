package ingestion

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-impact-lab/internal/idhash"
)

const eventsCSV = `ts_utc,country,currency,title,event_key,label,type,importance,unit,actual,forecast,previous
2024-06-07T12:30:00Z,us,usd,Non-Farm Payrolls,nfp,Payrolls,employment,3,K,272,180,165
2024-06-07 12:30:00,US,USD,Unemployment Rate,unemp,,,high,%,4.0,3.9,
2024-06-12 18:00,US,USD,Fed Interest Rate Decision,fomc,,,3,%,,5.5,5.5
not-a-date,US,USD,Broken Row,,,,,,,,
2024-06-13T12:30:00Z,,USD,No Country,,,,,,,,
`

func TestParseEventsCSV(t *testing.T) {
	events, stats, err := ParseEventsCSV(strings.NewReader(eventsCSV))
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Rows)
	assert.Equal(t, 2, stats.Dropped)
	require.Len(t, events, 3)

	nfp := events[0]
	ts := time.Date(2024, 6, 7, 12, 30, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, ts, nfp.TimestampMs)
	assert.Equal(t, "US", nfp.Country)
	assert.Equal(t, "USD", nfp.Currency)
	assert.Equal(t, "Non-Farm Payrolls", nfp.Title)
	assert.Equal(t, "nfp", nfp.EventKey)
	assert.Equal(t, 3, nfp.Importance)
	assert.Equal(t, idhash.ComputeEventID(ts, "US", "Non-Farm Payrolls"), nfp.EventID)
	require.NotNil(t, nfp.Actual)
	assert.Equal(t, 272.0, *nfp.Actual)
	surprise, ok := nfp.Surprise()
	assert.True(t, ok)
	assert.Equal(t, 92.0, surprise)

	unemp := events[1]
	assert.Equal(t, ts, unemp.TimestampMs, "zone-less timestamps are UTC")
	assert.Equal(t, 3, unemp.Importance, "textual importance")
	assert.Nil(t, unemp.Previous)

	fed := events[2]
	assert.Nil(t, fed.Actual)
	assert.Equal(t, time.Date(2024, 6, 12, 18, 0, 0, 0, time.UTC).UnixMilli(), fed.TimestampMs)
}

func TestParseEventsCSV_MissingColumn(t *testing.T) {
	_, _, err := ParseEventsCSV(strings.NewReader("ts_utc,country\n2024-01-01T00:00:00Z,US\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParsePricesCSV(t *testing.T) {
	input := "datetime,close\n" +
		"2024-06-07T12:29:00Z,1.08500\n" +
		"2024-06-07T12:30:00Z,1.08520\n" +
		"2024-06-07T12:31:00Z,\n" +
		"2024-06-07T12:32:00Z,-1\n" +
		"1717763580,1.08600\n"

	samples, stats, err := ParsePricesCSV(strings.NewReader(input), "EURUSD")
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Rows)
	assert.Equal(t, 2, stats.Dropped)
	require.Len(t, samples, 3)
	assert.Equal(t, "EURUSD", samples[0].Symbol)
	assert.Equal(t, 1.085, samples[0].Close)
	assert.Equal(t, int64(1717763580000), samples[2].TimestampMs, "epoch seconds are converted to ms")
}

func TestParsePricesCSV_SemicolonAndDecimalComma(t *testing.T) {
	input := "ts_utc;close\n2024-06-07 12:30:00;1,0852\n"

	samples, _, err := ParsePricesCSV(strings.NewReader(input), "EURUSD")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 1.0852, samples[0].Close)
}

func TestParsePricesCSV_RequiresSymbol(t *testing.T) {
	_, _, err := ParsePricesCSV(strings.NewReader("ts_utc,close\n"), "")
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 6, 7, 12, 30, 0, 0, time.UTC).UnixMilli()
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"2024-06-07T12:30:00Z", want, true},
		{"2024-06-07T14:30:00+02:00", want, true},
		{"2024-06-07 12:30:00", want, true},
		{"2024-06-07 12:30", want, true},
		{"1717763400", want, true},
		{"1717763400000", want, true},
		{"", 0, false},
		{"yesterday", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseTimestamp(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseTimestamp(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseNullableFloat(t *testing.T) {
	assert.Nil(t, parseNullableFloat(""))
	assert.Nil(t, parseNullableFloat("n/a"))
	assert.Nil(t, parseNullableFloat("NaN"))
	require.NotNil(t, parseNullableFloat("-0.5"))
	assert.Equal(t, -0.5, *parseNullableFloat("-0.5"))
	assert.Equal(t, 3.9, *parseNullableFloat("3,9"))
}
