// Package captions fetches subtitle tracks for videos and reduces them to
// plain text.
//
// Two sources are available: yt-dlp (the default, run as a subprocess that
// writes subtitle files into a scratch directory) and YouTube's timedtext
// endpoint. Both return cleaned text alongside the raw subtitle track;
// Validate applies the minimum-length gate measured in Unicode code points.
// Searcher lists video ids for a keyword through yt-dlp's flat search.
package captions
