package dto

// QueryRequest 法律问答请求
type QueryRequest struct {
	Question  string `json:"question" binding:"required"`
	SessionID string `json:"session_id"`
}

// QueryResponse 法律问答响应
type QueryResponse struct {
	Answer          string    `json:"answer"`
	Sources         []string  `json:"sources"`
	RelevanceScores []float64 `json:"relevance_scores"`
	UsedWebSearch   bool      `json:"used_web_search"`
}
