// Package playlist builds the HLS master playlist that references the
// per-quality media playlists produced by the transcode step.
package playlist

import (
	"fmt"
	"strconv"
	"strings"

	"vodworks/internal/media/plan"
)

// Master renders a master playlist for the given renditions, in the order
// given. BANDWIDTH is the rendition's video bitrate in bits per second;
// each variant references the media playlist named after its quality label.
func Master(renditions []plan.Rendition) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	for _, r := range renditions {
		fmt.Fprintf(&b, "\n#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d\n%s.m3u8\n",
			bandwidth(r.VideoBitrate), r.Width, r.Height, r.Quality)
	}
	return b.String()
}

// bandwidth converts a bitrate like "2000k" to bits per second. Values
// without the k suffix are taken as bits per second already.
func bandwidth(bitrate string) int {
	s := strings.TrimSuffix(bitrate, "k")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	if len(s) != len(bitrate) {
		n *= 1000
	}
	return n
}
