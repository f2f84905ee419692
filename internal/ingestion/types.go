// Package ingestion defines the request and response types of the document
// ingestion pipeline.
package ingestion

// IngestRequest is one uploaded file. ContentType is the media type declared
// by the client and may be empty.
type IngestRequest struct {
	Filename    string
	ContentType string
	Data        []byte
}

// IngestResult is returned to the caller once the document is indexed and
// persisted.
type IngestResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Chunks int    `json:"chunks"`
}
