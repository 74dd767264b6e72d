package models

import "skillbridge/resume-matcher/internal/pipeline"

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	DocType      string `json:"doc_type"`
}

type MatchRequest struct {
	ResumeID string `json:"resume_id" validate:"required,uuid"`
	JDID     string `json:"jd_id" validate:"required,uuid"`
}

type MatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type BatchMatchRequest struct {
	ResumeIDs []string `json:"resume_ids" validate:"required,min=1"`
	JDID      string   `json:"jd_id" validate:"required,uuid"`
}

type BatchMatchResponse struct {
	JDID             string                  `json:"jd_id"`
	HighMatches      []*pipeline.MatchResult `json:"high_matches"`
	CloseMatches     []*pipeline.MatchResult `json:"close_matches"`
	LowMatches       []*pipeline.MatchResult `json:"low_matches"`
	Failed           int                     `json:"failed"`
	AverageMatch     float64                 `json:"average_match"`
	ProcessingTimeMS int64                   `json:"processing_time_ms"`
}

type ResultResponse struct {
	ID           string                `json:"id"`
	Status       string                `json:"status"`
	Result       *pipeline.MatchResult `json:"result,omitempty"`
	ErrorMessage *string               `json:"error_message,omitempty"`
}

type SimilarResumeResponse struct {
	DocID string  `json:"doc_id"`
	Score float32 `json:"score"`
	Text  string  `json:"text"`
}
