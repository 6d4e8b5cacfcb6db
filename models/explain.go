package models

import "time"

const (
	STRATEGY_COLLSCAN = "COLLSCAN"
	STRATEGY_IXSCAN   = "IXSCAN"
)

// ExplainReport summarises how a store executed a find request.
type ExplainReport struct {
	Backend       string                 `json:"backend"`
	Strategy      string                 `json:"strategy"`
	IndexName     string                 `json:"index_name,omitempty"`
	KeysExamined  int64                  `json:"keys_examined"`
	DocsExamined  int64                  `json:"docs_examined"`
	Returned      int64                  `json:"returned"`
	ExecutionTime time.Duration          `json:"execution_time_ns"`
	Raw           map[string]interface{} `json:"raw,omitempty"`
}

// UsesIndex reports whether the winning plan read an index.
func (report ExplainReport) UsesIndex() bool {
	return report.IndexName != ""
}
