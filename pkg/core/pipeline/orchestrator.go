// Package pipeline resolves a company name to a FinancialRecord by trying
// the demo table, the EDINET registry and the generative model in series.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rental_valuation/pkg/core/aiextract"
	"rental_valuation/pkg/core/apperr"
	"rental_valuation/pkg/core/edinet"
	"rental_valuation/pkg/core/extract"
	"rental_valuation/pkg/core/mock"
	"rental_valuation/pkg/models"
)

// State is the terminal state of one query. Idle and Searching are only
// reported by Session.
type State string

const (
	StateIdle      State = "idle"
	StateSearching State = "searching"
	StateFound     State = "found"
	StateNotFound  State = "not_found"
	StateError     State = "error"
)

// User-facing messages.
const (
	MsgMissingName      = "企業名を入力してください"
	MsgConnectivity     = "EDINET APIへの接続に失敗しました"
	MsgNoDocuments      = "該当する有価証券報告書が見つかりませんでした"
	MsgMockFound        = "デモデータを表示しています"
	MsgModelFailed      = "AIによる分析に失敗しました"
	HintOfficialName    = "正式名称で検索してください（例：トヨタ自動車株式会社）"
	msgDocumentNotReady = "%sの有価証券報告書を発見しましたが、賃貸等不動産データの解析には追加実装が必要です。"
)

// Registry is the subset of the EDINET client the pipeline uses.
type Registry interface {
	SearchExtendedPeriod(ctx context.Context, companyName string) ([]models.RegistryDocumentRef, error)
	FetchDocumentContent(ctx context.Context, docID string) (edinet.DocumentContent, error)
}

// TextExtractor turns registry document text into figures.
type TextExtractor interface {
	Extract(text string) models.Extraction
}

// Analyzer is the model extraction client.
type Analyzer interface {
	Analyze(ctx context.Context, companyName string) (*aiextract.Analysis, error)
}

// Resolution is the outcome of one query. Exactly one of the terminal
// states is set and Message is always filled.
type Resolution struct {
	QueryID string                  `json:"queryId"`
	State   State                   `json:"state"`
	Message string                  `json:"message"`
	Hint    string                  `json:"hint,omitempty"`
	Detail  string                  `json:"detail,omitempty"`
	Record  *models.FinancialRecord `json:"record,omitempty"`
	Err     error                   `json:"-"`
}

// Sources wires the collaborators. A nil source is disabled.
type Sources struct {
	Mock      mock.Lookup
	Registry  Registry
	Extractor TextExtractor
	Analyzer  Analyzer
}

type Orchestrator struct {
	mock      mock.Lookup
	registry  Registry
	extractor TextExtractor
	analyzer  Analyzer
}

func NewOrchestrator(s Sources) *Orchestrator {
	o := &Orchestrator{
		mock:      s.Mock,
		registry:  s.Registry,
		extractor: s.Extractor,
		analyzer:  s.Analyzer,
	}
	if o.registry != nil && o.extractor == nil {
		o.extractor = extract.New()
	}
	return o
}

// Enabled reports which sources are wired, for the config endpoint.
func (o *Orchestrator) Enabled() (mockOn, registryOn, modelOn bool) {
	return o.mock != nil, o.registry != nil, o.analyzer != nil
}

// Resolve runs the decision tree for one company name.
func (o *Orchestrator) Resolve(ctx context.Context, companyName string) Resolution {
	res := Resolution{QueryID: uuid.NewString()}
	name := strings.TrimSpace(companyName)
	log := zap.L().With(zap.String("query_id", res.QueryID), zap.String("company", name))

	if name == "" {
		return res.fail(apperr.Validation(MsgMissingName), MsgMissingName)
	}

	if o.mock != nil {
		if rec, ok := o.mock.Lookup(name); ok {
			log.Info("pipeline: mock hit")
			return res.found(rec, MsgMockFound)
		}
	}

	// located is set when the registry had a filing we could not read.
	var located *models.RegistryDocumentRef

	if o.registry != nil {
		docs, err := o.registry.SearchExtendedPeriod(ctx, name)
		if err != nil {
			log.Warn("pipeline: registry search failed", zap.Error(err))
			return res.fail(err, MsgConnectivity)
		}
		log.Info("pipeline: registry search done", zap.Int("documents", len(docs)))

		if len(docs) > 0 {
			doc := docs[0]
			rec, err := o.fromDocument(ctx, doc)
			if err != nil {
				log.Warn("pipeline: document fetch failed", zap.String("doc_id", doc.DocID), zap.Error(err))
				return res.fail(err, MsgConnectivity)
			}
			if rec != nil {
				return res.found(rec, derefOr(rec.Note, extract.MessageExtracted))
			}
			located = &doc
		}
	}

	if o.analyzer != nil {
		return o.fromModel(ctx, log, res, name)
	}

	if located != nil {
		return res.notFound(fmt.Sprintf(msgDocumentNotReady, located.FilerName), "")
	}
	return res.notFound(MsgNoDocuments, HintOfficialName)
}

// fromDocument returns nil, nil when the document holds no usable figures.
func (o *Orchestrator) fromDocument(ctx context.Context, doc models.RegistryDocumentRef) (*models.FinancialRecord, error) {
	content, err := o.registry.FetchDocumentContent(ctx, doc.DocID)
	if err != nil {
		return nil, err
	}
	if !content.Available {
		zap.L().Info("pipeline: document content unavailable",
			zap.String("doc_id", doc.DocID), zap.String("reason", content.Reason))
		return nil, nil
	}

	ex := o.extractor.Extract(content.Text)
	if !ex.RawDataAvailable {
		return nil, nil
	}

	rec := &models.FinancialRecord{
		CompanyName:    doc.FilerName,
		BookValue:      ex.BookValue,
		MarketValue:    ex.MarketValue,
		UnrealizedGain: ex.UnrealizedGain,
		Properties:     ex.Properties,
		Source:         models.SourceRegistry,
		SourceDocument: models.StringPtr(doc.DocDescription),
		Note:           models.StringPtr(ex.Message),
		DocID:          doc.DocID,
	}
	if doc.PeriodEnd != nil {
		rec.FiscalYear = models.StringPtr(*doc.PeriodEnd)
	}
	models.AssignPropertyIDs(rec.CompanyName, rec.Properties)
	rec.Normalize()
	return rec, nil
}

func (o *Orchestrator) fromModel(ctx context.Context, log *zap.Logger, res Resolution, name string) Resolution {
	a, err := o.analyzer.Analyze(ctx, name)
	if err != nil {
		log.Warn("pipeline: model analysis failed", zap.Error(err))
		msg := MsgModelFailed
		if errors.Is(err, apperr.ErrConfiguration) || errors.Is(err, apperr.ErrUnparseable) {
			msg = apperr.MessageOf(err)
		}
		return res.fail(err, msg)
	}
	if !a.Found {
		log.Info("pipeline: model reported no disclosure")
		return res.notFound(a.Note, HintOfficialName)
	}
	log.Info("pipeline: model found figures", zap.String("model", a.Model))
	return res.found(a.Record, derefOr(a.Record.Note, a.Note))
}

func (r Resolution) found(rec *models.FinancialRecord, msg string) Resolution {
	r.State = StateFound
	r.Record = rec
	r.Message = msg
	return r
}

func (r Resolution) notFound(msg, hint string) Resolution {
	if msg == "" {
		msg = MsgNoDocuments
	}
	r.State = StateNotFound
	r.Message = msg
	r.Hint = hint
	r.Err = apperr.NotFound(msg, hint)
	return r
}

// fail keeps msg as the readable reason and the error text as diagnostic
// detail.
func (r Resolution) fail(err error, msg string) Resolution {
	r.State = StateError
	r.Message = msg
	r.Err = err
	if d := apperr.DetailOf(err); d != "" {
		r.Detail = d
	} else if err != nil {
		r.Detail = err.Error()
	}
	return r
}

func derefOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
