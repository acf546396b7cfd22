package index

import (
	"context"
	"log/slog"
	"time"

	"github.com/Aman-CERP/docsearch/internal/store"
)

// InconsistencyType categorizes a mismatch between documents and index records.
type InconsistencyType int

const (
	// InconsistencyOrphanRecord is an index record whose document is gone.
	InconsistencyOrphanRecord InconsistencyType = iota
	// InconsistencyMissingRecord is a document that has no index record.
	InconsistencyMissingRecord
)

// String returns the label used in logs and CLI output.
func (t InconsistencyType) String() string {
	switch t {
	case InconsistencyOrphanRecord:
		return "orphan_record"
	case InconsistencyMissingRecord:
		return "missing_record"
	default:
		return "unknown"
	}
}

// Inconsistency is one detected mismatch.
type Inconsistency struct {
	Type       InconsistencyType
	DocumentID string
}

// CheckResult is the outcome of a consistency check.
type CheckResult struct {
	Documents       int
	Records         int
	Inconsistencies []Inconsistency
	Duration        time.Duration
}

// Consistent reports whether no mismatch was found.
func (r *CheckResult) Consistent() bool {
	return len(r.Inconsistencies) == 0
}

// RecordLister lists indexed document ids.
type RecordLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// Repairer fixes individual mismatches. InteractiveIndexer implements it.
type Repairer interface {
	IndexDocument(ctx context.Context, id string) error
	DeleteIndex(ctx context.Context, id string) error
}

// ConsistencyChecker compares the document store, which is the source of
// truth, against the index records.
type ConsistencyChecker struct {
	documents store.DocumentStore
	records   RecordLister
	logger    *slog.Logger
}

// NewConsistencyChecker creates a checker.
func NewConsistencyChecker(documents store.DocumentStore, records RecordLister, logger *slog.Logger) *ConsistencyChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsistencyChecker{documents: documents, records: records, logger: logger}
}

// Check lists both sides and reports every id present on only one of them.
func (c *ConsistencyChecker) Check(ctx context.Context) (*CheckResult, error) {
	start := time.Now()

	docIDs, err := c.documents.ListAllIDs(ctx)
	if err != nil {
		return nil, err
	}
	recordIDs, err := c.records.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	docSet := make(map[string]struct{}, len(docIDs))
	for _, id := range docIDs {
		docSet[id] = struct{}{}
	}
	recordSet := make(map[string]struct{}, len(recordIDs))
	for _, id := range recordIDs {
		recordSet[id] = struct{}{}
	}

	var issues []Inconsistency
	for _, id := range recordIDs {
		if _, ok := docSet[id]; !ok {
			issues = append(issues, Inconsistency{Type: InconsistencyOrphanRecord, DocumentID: id})
		}
	}
	for _, id := range docIDs {
		if _, ok := recordSet[id]; !ok {
			issues = append(issues, Inconsistency{Type: InconsistencyMissingRecord, DocumentID: id})
		}
	}

	return &CheckResult{
		Documents:       len(docIDs),
		Records:         len(recordIDs),
		Inconsistencies: issues,
		Duration:        time.Since(start),
	}, nil
}

// Repair deletes orphan records and indexes missing documents. It is
// best-effort: failures are logged and the number of fixed issues returned.
func (c *ConsistencyChecker) Repair(ctx context.Context, issues []Inconsistency, r Repairer) int {
	fixed := 0
	for _, issue := range issues {
		var err error
		switch issue.Type {
		case InconsistencyOrphanRecord:
			err = r.DeleteIndex(ctx, issue.DocumentID)
		case InconsistencyMissingRecord:
			err = r.IndexDocument(ctx, issue.DocumentID)
		default:
			continue
		}
		if err != nil {
			c.logger.Warn("consistency repair failed",
				slog.String("type", issue.Type.String()),
				slog.String("document_id", issue.DocumentID),
				slog.String("error", err.Error()))
			continue
		}
		fixed++
	}
	if fixed > 0 {
		c.logger.Info("consistency repaired", slog.Int("fixed", fixed), slog.Int("issues", len(issues)))
	}
	return fixed
}
