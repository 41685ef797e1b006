package aggregation

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// RecordKind names the raw data-report quantity a row carries.  The detailed
// per-kind tables (imports, exports, production, destruction, non-party
// trade, emissions) are owned by the excluded CRUD layer; the engine only
// needs each row's kind, substance, and quantity.
type RecordKind string

const (
	KindProductionAllNew       RecordKind = "production_all_new"
	KindProductionFeedstock    RecordKind = "production_feedstock"
	KindProductionQuarantine   RecordKind = "production_quarantine"
	KindProductionProcessAgent RecordKind = "production_process_agent"
	KindDestroyed              RecordKind = "destroyed"
	KindImportNew              RecordKind = "import_new"
	KindImportFeedstock        RecordKind = "import_feedstock"
	KindImportProcessAgent     RecordKind = "import_process_agent"
	KindImportQuarantine       RecordKind = "import_quarantine"
	KindImportRecovered        RecordKind = "import_recovered"
	KindExportNew              RecordKind = "export_new"
	KindExportFeedstock        RecordKind = "export_feedstock"
	KindExportProcessAgent     RecordKind = "export_process_agent"
	KindExportRecovered        RecordKind = "export_recovered"
	KindNonPartyImport         RecordKind = "non_party_import"
	KindNonPartyExport         RecordKind = "non_party_export"
)

// RawRecord is one reported quantity, owned by exactly one submission.
type RawRecord struct {
	ID           int64
	SubmissionID string
	SubstanceID  int64
	Kind         RecordKind
	Quantity     decimal.Decimal // metric tonnes, unweighted
}

// Transfer is a production-rights transfer between two parties for a period.
// It contributes (signed) to the ProdTransfer component of both parties.
type Transfer struct {
	ID            int64
	SubmissionID  string
	SourcePartyID int64
	DestPartyID   int64
	PeriodID      int64
	SubstanceID   int64
	Quantity      decimal.Decimal // metric tonnes, unweighted
}

// Accumulate adds a weighted quantity to the component matching kind.
func (c *Components) Accumulate(kind RecordKind, qty decimal.Decimal) {
	switch kind {
	case KindProductionAllNew:
		c.ProductionAllNew = c.ProductionAllNew.Add(qty)
	case KindProductionFeedstock:
		c.ProductionFeedstock = c.ProductionFeedstock.Add(qty)
	case KindProductionQuarantine:
		c.ProductionQuarantine = c.ProductionQuarantine.Add(qty)
	case KindProductionProcessAgent:
		c.ProductionProcessAgent = c.ProductionProcessAgent.Add(qty)
	case KindDestroyed:
		c.Destroyed = c.Destroyed.Add(qty)
	case KindImportNew:
		c.ImportNew = c.ImportNew.Add(qty)
	case KindImportFeedstock:
		c.ImportFeedstock = c.ImportFeedstock.Add(qty)
	case KindImportProcessAgent:
		c.ImportProcessAgent = c.ImportProcessAgent.Add(qty)
	case KindImportQuarantine:
		c.ImportQuarantine = c.ImportQuarantine.Add(qty)
	case KindImportRecovered:
		c.ImportRecovered = c.ImportRecovered.Add(qty)
	case KindExportNew:
		c.ExportNew = c.ExportNew.Add(qty)
	case KindExportFeedstock:
		c.ExportFeedstock = c.ExportFeedstock.Add(qty)
	case KindExportProcessAgent:
		c.ExportProcessAgent = c.ExportProcessAgent.Add(qty)
	case KindExportRecovered:
		c.ExportRecovered = c.ExportRecovered.Add(qty)
	case KindNonPartyImport:
		c.NonPartyImport = c.NonPartyImport.Add(qty)
	case KindNonPartyExport:
		c.NonPartyExport = c.NonPartyExport.Add(qty)
	}
}

// Repository persists ProdCons rows.  Rows are mutated only by the
// aggregation engine.
type Repository interface {
	Find(ctx context.Context, partyID, periodID int64, group treaty.GroupID) (*ProdCons, error)
	ListByPeriod(ctx context.Context, periodID int64) ([]*ProdCons, error)
	ListByParty(ctx context.Context, partyID int64) ([]*ProdCons, error)
	Upsert(ctx context.Context, row *ProdCons) error
	Delete(ctx context.Context, partyID, periodID int64, group treaty.GroupID) error
}

// RawDataRepository enumerates the raw rows belonging to a submission.
type RawDataRepository interface {
	// ListForSubmission returns the raw rows of a submission whose
	// substances belong to the given group.
	ListForSubmission(ctx context.Context, submissionID string, groupID int64) ([]*RawRecord, error)

	// GroupsReported returns the distinct annex groups a submission reports.
	GroupsReported(ctx context.Context, submissionID string) ([]treaty.GroupID, error)

	// TransfersFor returns the transfer rows touching a party/period whose
	// substances belong to the given group.
	TransfersFor(ctx context.Context, partyID, periodID, groupID int64) ([]*Transfer, error)
}
