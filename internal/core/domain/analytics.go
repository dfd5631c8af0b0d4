package domain

// RiskSlice is one wedge of the dashboard risk distribution chart.
type RiskSlice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

type DashboardStats struct {
	TotalDocuments      int         `json:"total_documents"`
	CompletedAnalyses   int         `json:"completed_analyses"`
	ProcessingDocuments int         `json:"processing_documents"`
	FailedDocuments     int         `json:"failed_documents"`
	SuccessRate         float64     `json:"success_rate"`
	RiskDistribution    []RiskSlice `json:"risk_distribution"`
	RecentDocuments     []Document  `json:"recent_documents"`
}

type TypeCount struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type DetailedStats struct {
	DocumentsProcessed    int               `json:"documents_processed"`
	SuccessRate           float64           `json:"success_rate"`
	AverageProcessingSecs float64           `json:"average_processing_time"`
	DocumentTypes         []TypeCount       `json:"document_types"`
	RiskDistribution      map[RiskLevel]int `json:"risk_distribution"`
}
