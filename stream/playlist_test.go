package stream

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSynthesizeHappyPath(t *testing.T) {
	require := require.New(t)

	manifest := Synthesize(12.5, "abc12345", 5)

	expected := "#EXTM3U\r\n" +
		"#EXT-X-VERSION:3\r\n" +
		"#EXT-X-MEDIA-SEQUENCE:0\r\n" +
		"#EXT-X-TARGETDURATION: 5\r\n" +
		"#EXT-X-PLAYLIST-TYPE:VOD\r\n" +
		"#EXTINF:5.0000, nodesc\r\n" +
		"/segment.ts?file=abc123450.ts\r\n" +
		"#EXTINF:5.0000, nodesc\r\n" +
		"/segment.ts?file=abc123451.ts\r\n" +
		"#EXTINF:2.5000, nodesc\r\n" +
		"/segment.ts?file=abc123452.ts\r\n" +
		"#EXT-X-ENDLIST\r\n"
	require.Equal(expected, manifest)
}

func TestSynthesizeExactMultiple(t *testing.T) {
	require := require.New(t)

	manifest := Synthesize(10, "abc12345", 5)

	require.Equal(2, strings.Count(manifest, "#EXTINF:"))
	require.Equal(2, strings.Count(manifest, "#EXTINF:5.0000, nodesc\r\n"))
	require.Contains(manifest, "#EXT-X-ENDLIST\r\n")
}

func TestSynthesizeEntryCountAndDurationSum(t *testing.T) {
	require := require.New(t)

	testCases := []struct {
		duration      float64
		segmentLength int
	}{
		{duration: 12.5, segmentLength: 5},
		{duration: 0.4, segmentLength: 5},
		{duration: 5, segmentLength: 5},
		{duration: 3600, segmentLength: 5},
		{duration: 59.9, segmentLength: 10},
	}

	for _, tc := range testCases {
		manifest := Synthesize(tc.duration, "abc12345", tc.segmentLength)

		expectedEntries := int(math.Ceil(tc.duration / float64(tc.segmentLength)))
		require.Equal(expectedEntries, strings.Count(manifest, "#EXTINF:"), "duration %f", tc.duration)

		var sum float64
		for _, line := range strings.Split(manifest, "\r\n") {
			if !strings.HasPrefix(line, "#EXTINF:") {
				continue
			}
			var segLen float64
			_, err := fmt.Sscanf(line, "#EXTINF:%f, nodesc", &segLen)
			require.NoError(err)
			sum += segLen
		}
		require.InDelta(tc.duration, sum, 0.0001, "duration %f", tc.duration)
	}
}

func TestSynthesizedURIsRoundTrip(t *testing.T) {
	require := require.New(t)

	manifest := Synthesize(42.3, "deadbeef", 5)

	i := 0
	for _, line := range strings.Split(manifest, "\r\n") {
		if !strings.HasPrefix(line, "/segment.ts?file=") {
			continue
		}
		filename := strings.TrimPrefix(line, "/segment.ts?file=")
		id, index, err := ParseSegmentFilename(filename)
		require.NoError(err)
		require.Equal("deadbeef", id)
		require.Equal(i, index)
		i++
	}
	require.Equal(9, i)
}
