// ABOUTME: Topic-analysis client package
// ABOUTME: Sends transcripts to the external segmentation service
// Package topics calls the external service that splits a transcript into
// topic segments. The segmentation itself happens server-side; this package
// only moves the transcript out and the segments back.
package topics
