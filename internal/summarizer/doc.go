// Package summarizer builds the summary prompt for a video's captions and
// asks the inference endpoint for a Chinese-language summary.
package summarizer
