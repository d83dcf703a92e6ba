package stream

import (
	"fmt"
	"math"
	"strings"
)

// Synthesize builds the VOD manifest served to clients before a single
// segment exists on disk. Advertising every eventual segment up front makes
// the player treat the stream as VOD and request segments sequentially, which
// the poller then answers lazily.
//
// The output format (CRLF line endings, four decimal places, the " nodesc"
// title) is kept byte-compatible with what deployed players have been fed.
func Synthesize(durationSecs float64, id string, segmentLength int) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\r\n")
	b.WriteString("#EXT-X-VERSION:3\r\n")
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\r\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION: %d\r\n", segmentLength)
	b.WriteString("#EXT-X-PLAYLIST-TYPE:VOD\r\n")

	remaining := durationSecs
	for i := 0; remaining > 0; i++ {
		length := math.Min(remaining, float64(segmentLength))
		fmt.Fprintf(&b, "#EXTINF:%.4f, nodesc\r\n", length)
		fmt.Fprintf(&b, "/segment.ts?file=%s%d.ts\r\n", id, i)
		remaining -= length
	}

	b.WriteString("#EXT-X-ENDLIST\r\n")
	return b.String()
}
