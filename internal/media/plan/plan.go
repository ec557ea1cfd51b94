// Package plan computes per-rendition target dimensions for the fixed
// transcode ladder. Resolution targets preserve the source aspect ratio and
// never upscale past the source.
package plan

import "math"

// Profile is one rung of the quality ladder: a quality label, the maximum
// box the rendition may occupy, and its target bitrates.
type Profile struct {
	Quality      string
	MaxWidth     int
	MaxHeight    int
	VideoBitrate string
	AudioBitrate string
}

// Ladder is the fixed rendition ladder, highest quality first. The master
// playlist preserves this order.
var Ladder = []Profile{
	{Quality: "1080p", MaxWidth: 1920, MaxHeight: 1080, VideoBitrate: "2000k", AudioBitrate: "192k"},
	{Quality: "720p", MaxWidth: 1280, MaxHeight: 720, VideoBitrate: "1000k", AudioBitrate: "128k"},
	{Quality: "480p", MaxWidth: 854, MaxHeight: 480, VideoBitrate: "500k", AudioBitrate: "96k"},
	{Quality: "360p", MaxWidth: 640, MaxHeight: 360, VideoBitrate: "250k", AudioBitrate: "64k"},
}

// Rendition is a profile resolved against a concrete source: the actual
// encode target. Width and Height are always even integers >= 2.
type Rendition struct {
	Quality      string
	Width        int
	Height       int
	VideoBitrate string
	AudioBitrate string
}

// Resolve computes the encode target for one profile. Unknown or non-positive
// source dimensions fall back to the profile's maximum box. Otherwise the
// source is scaled by min(maxW/srcW, maxH/srcH, 1.0) so the result fits the
// box without upscaling. Both axes are rounded, then forced even (decrement
// by one if odd, as libx264 requires for 4:2:0 chroma) and clamped to 2.
func Resolve(srcWidth, srcHeight int, p Profile) Rendition {
	r := Rendition{
		Quality:      p.Quality,
		VideoBitrate: p.VideoBitrate,
		AudioBitrate: p.AudioBitrate,
	}

	if srcWidth <= 0 || srcHeight <= 0 {
		r.Width = evenAtLeast2(p.MaxWidth)
		r.Height = evenAtLeast2(p.MaxHeight)
		return r
	}

	ratio := math.Min(
		float64(p.MaxWidth)/float64(srcWidth),
		float64(p.MaxHeight)/float64(srcHeight),
	)
	if ratio > 1.0 {
		ratio = 1.0
	}

	r.Width = evenAtLeast2(int(math.Round(float64(srcWidth) * ratio)))
	r.Height = evenAtLeast2(int(math.Round(float64(srcHeight) * ratio)))
	return r
}

// Renditions resolves the full ladder against one source. Each profile is
// resolved independently; two profiles may yield identical dimensions when
// the source is small.
func Renditions(srcWidth, srcHeight int) []Rendition {
	out := make([]Rendition, 0, len(Ladder))
	for _, p := range Ladder {
		out = append(out, Resolve(srcWidth, srcHeight, p))
	}
	return out
}

func evenAtLeast2(v int) int {
	if v%2 != 0 {
		v--
	}
	if v < 2 {
		v = 2
	}
	return v
}
