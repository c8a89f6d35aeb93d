package dto

type StatusResponse struct {
	Processing          bool   `json:"processing"`
	CurrentDocumentName string `json:"current_document_name"`
	QueueDepth          int    `json:"queue_depth"`
}
