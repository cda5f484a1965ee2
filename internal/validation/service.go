package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tenant-validation/internal/documents"
	"tenant-validation/internal/face"
	"tenant-validation/internal/ocr"
	"tenant-validation/internal/owners"
	"tenant-validation/internal/queue"
	"tenant-validation/internal/shared/auth"
	"tenant-validation/internal/shared/metrics"
	"tenant-validation/internal/shared/telemetry"
)

// ErrorCodeFaceDisabled marks face payloads written without a comparer.
const ErrorCodeFaceDisabled = "FACE_SERVICE_DISABLED"

// DocumentSource resolves an owner's current, classified documents.
type DocumentSource interface {
	Current(ctx context.Context, ownerID string) (documents.Classified, error)
}

// Extractor runs OCR over a batch, returning results in input order.
type Extractor interface {
	ExtractAll(ctx context.Context, docs []ocr.Document) []ocr.ExtractionResult
}

type FaceComparer interface {
	Compare(ctx context.Context, sourceKey, targetKey string, threshold float64) (face.Result, error)
}

// Service runs validations and stores their records.
type Service struct {
	Repo          Repo
	Documents     DocumentSource
	Owners        owners.Directory
	Extractor     Extractor
	Faces         FaceComparer
	FaceThreshold float64
	Queue         queue.Client
	Now           func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// evidence is everything one run reads, gathered once.
type evidence struct {
	owner       owners.Owner
	docs        documents.Classified
	at          time.Time
	extractions map[string]ocr.ExtractionResult
}

func (s *Service) gather(ctx context.Context, ownerID string) (*evidence, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrInvalidInput
	}
	owner, err := s.Owners.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, owners.ErrNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("load owner: %w", err)
	}
	docs, err := s.Documents.Current(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	return &evidence{owner: owner, docs: docs, at: s.now(), extractions: make(map[string]ocr.ExtractionResult)}, nil
}

// extract runs OCR for docs not yet extracted in this run.
func (s *Service) extract(ctx context.Context, ev *evidence, docs ...documents.Document) {
	var pending []ocr.Document
	for _, d := range docs {
		if _, done := ev.extractions[d.ID]; done {
			continue
		}
		pending = append(pending, ocr.Document{ID: d.ID, StorageKey: d.StorageKey, MimeType: d.MimeType, FileName: d.FileName})
	}
	if len(pending) == 0 {
		return
	}
	for _, res := range s.Extractor.ExtractAll(ctx, pending) {
		ev.extractions[res.SourceDocumentID] = res
	}
}

func (ev *evidence) extraction(docID string) *ocr.ExtractionResult {
	res, ok := ev.extractions[docID]
	if !ok {
		return nil
	}
	return &res
}

// Run gathers evidence for one automatic category and stores the record.
func (s *Service) Run(ctx context.Context, actor auth.Actor, ownerID string, category Category) (Record, error) {
	if !category.Automatic() {
		return Record{}, fmt.Errorf("%w: %s", ErrNotAutomatic, category)
	}
	started := time.Now()
	defer func() { metrics.ObserveRunDurationMs(float64(time.Since(started).Milliseconds())) }()

	ev, err := s.gather(ctx, ownerID)
	if err != nil {
		return Record{}, err
	}
	payload, err := s.collect(ctx, ev, category)
	if err != nil {
		return Record{}, err
	}
	return s.write(ctx, actor, ownerID, category, payload)
}

// RunAll runs every automatic category, sharing one OCR batch.
func (s *Service) RunAll(ctx context.Context, actor auth.Actor, ownerID string) ([]Record, error) {
	return s.RunCategories(ctx, actor, ownerID, nil)
}

// RunCategories runs the given automatic categories, or all of them when
// categories is empty.
func (s *Service) RunCategories(ctx context.Context, actor auth.Actor, ownerID string, categories []Category) ([]Record, error) {
	if len(categories) == 0 {
		for _, c := range Categories {
			if c.Automatic() {
				categories = append(categories, c)
			}
		}
	}
	for _, c := range categories {
		if !c.Automatic() {
			return nil, fmt.Errorf("%w: %s", ErrNotAutomatic, c)
		}
	}
	started := time.Now()
	defer func() { metrics.ObserveRunDurationMs(float64(time.Since(started).Milliseconds())) }()

	ev, err := s.gather(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var batch []documents.Document
	for _, c := range categories {
		switch c {
		case CategoryIdentity, CategoryDocuments:
			if doc, ok := ev.docs.IdentityDocument(); ok {
				batch = append(batch, doc)
			}
		case CategoryIncome:
			batch = append(batch, ev.docs.IncomeProofs...)
		}
	}
	s.extract(ctx, ev, batch...)

	out := make([]Record, 0, len(categories))
	for _, c := range categories {
		payload, err := s.collect(ctx, ev, c)
		if err != nil {
			return out, err
		}
		rec, err := s.write(ctx, actor, ownerID, c, payload)
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Service) collect(ctx context.Context, ev *evidence, c Category) (any, error) {
	switch c {
	case CategoryFiles:
		return s.filesPayload(ev), nil
	case CategoryFace:
		return s.facePayload(ctx, ev), nil
	case CategoryIdentity:
		return s.identityPayload(ctx, ev), nil
	case CategoryDocuments:
		return s.documentsPayload(ctx, ev), nil
	case CategoryIncome:
		return s.incomePayload(ctx, ev), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotAutomatic, c)
}

func ref(d documents.Document) DocumentRef {
	return DocumentRef{ID: d.ID, Role: string(d.Role), FileName: d.FileName}
}

func (s *Service) filesPayload(ev *evidence) FilesPayload {
	var p FilesPayload
	if ev.docs.Empty() {
		return p
	}
	for _, role := range documents.Roles {
		if d, ok := ev.docs.Get(role); ok {
			p.Documents = append(p.Documents, ref(d))
		}
	}
	for _, d := range ev.docs.IncomeProofs {
		p.Documents = append(p.Documents, ref(d))
	}
	for _, d := range ev.docs.Other {
		p.Documents = append(p.Documents, ref(d))
	}
	return p
}

func (s *Service) facePayload(ctx context.Context, ev *evidence) FacePayload {
	var p FacePayload
	selfie, hasSelfie := ev.docs.Get(documents.RoleSelfie)
	idDoc, hasID := ev.docs.IdentityDocument()
	if !hasSelfie {
		p.Missing = append(p.Missing, MissingSelfie)
	} else {
		p.SelfieDocumentID = selfie.ID
	}
	if !hasID {
		p.Missing = append(p.Missing, MissingIDDocument)
	} else {
		p.IDDocumentID = idDoc.ID
	}
	if len(p.Missing) > 0 {
		return p
	}
	if s.Faces == nil {
		p.ErrorCode = ErrorCodeFaceDisabled
		return p
	}

	res, err := s.Faces.Compare(ctx, selfie.StorageKey, idDoc.StorageKey, s.FaceThreshold)
	if err != nil {
		p.Error = err.Error()
		p.ErrorCode = face.ErrorCode(err)
		return p
	}
	p.Result = &res
	return p
}

func (s *Service) identityPayload(ctx context.Context, ev *evidence) IdentityPayload {
	p := IdentityPayload{
		Declared: DeclaredIdentity{
			GivenNames:      ev.owner.GivenNames,
			PaternalSurname: ev.owner.PaternalSurname,
			MaternalSurname: ev.owner.MaternalSurname,
			CURP:            ev.owner.CURP,
		},
		EvaluatedAt: ev.at,
	}
	doc, ok := ev.docs.IdentityDocument()
	if !ok {
		return p
	}
	s.extract(ctx, ev, doc)
	p.DocumentID, p.Role = doc.ID, string(doc.Role)
	p.Extraction = ev.extraction(doc.ID)
	return p
}

func (s *Service) documentsPayload(ctx context.Context, ev *evidence) DocumentsPayload {
	p := DocumentsPayload{EvaluatedAt: ev.at}
	doc, ok := ev.docs.IdentityDocument()
	if !ok {
		return p
	}
	s.extract(ctx, ev, doc)
	p.DocumentID, p.Role = doc.ID, string(doc.Role)
	p.Extraction = ev.extraction(doc.ID)
	return p
}

func (s *Service) incomePayload(ctx context.Context, ev *evidence) IncomePayload {
	p := IncomePayload{DeclaredMonthlyIncome: ev.owner.DeclaredMonthlyIncome, EvaluatedAt: ev.at}
	s.extract(ctx, ev, ev.docs.IncomeProofs...)
	for _, d := range ev.docs.IncomeProofs {
		p.Proofs = append(p.Proofs, IncomeProof{DocumentID: d.ID, FileName: d.FileName, Extraction: ev.extraction(d.ID)})
	}
	return p
}

// Record stores an admin-supplied payload for a manual category.
func (s *Service) Record(ctx context.Context, actor auth.Actor, ownerID string, category Category, raw json.RawMessage) (Record, error) {
	if category.Automatic() {
		return Record{}, fmt.Errorf("%w: %s", ErrNotManual, category)
	}
	if strings.TrimSpace(ownerID) == "" {
		return Record{}, ErrInvalidInput
	}
	owner, err := s.Owners.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, owners.ErrNotFound) {
			return Record{}, ErrOwnerNotFound
		}
		return Record{}, fmt.Errorf("load owner: %w", err)
	}

	var payload any
	switch category {
	case CategoryDeposit:
		var p DepositPayload
		if err := decode(raw, &p); err != nil {
			return Record{}, err
		}
		if p.Expected == nil {
			p.Expected = owner.ExpectedDeposit
		}
		payload = p
	case CategoryLegalSearch:
		var p LegalSearchPayload
		if err := decode(raw, &p); err != nil {
			return Record{}, err
		}
		if p.Hits < 0 {
			return Record{}, fmt.Errorf("%w: hits must not be negative", ErrInvalidPayload)
		}
		payload = p
	case CategoryExternalIDCheck:
		var p ExternalIDCheckPayload
		if err := decode(raw, &p); err != nil {
			return Record{}, err
		}
		payload = p
	default:
		return Record{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	return s.write(ctx, actor, ownerID, category, payload)
}

func (s *Service) write(ctx context.Context, actor auth.Actor, ownerID string, c Category, payload any) (Record, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Record{}, fmt.Errorf("encode payload: %w", err)
	}
	verdict, summary, err := Reduce(c, raw)
	if err != nil {
		return Record{}, err
	}
	if actor.ID == "" {
		actor = auth.System
	}
	rec := Record{
		OwnerID:   ownerID,
		Category:  c,
		Verdict:   verdict,
		Payload:   raw,
		Summary:   summary,
		UpdatedAt: s.now(),
		UpdatedBy: actor.ID,
	}
	if err := s.Repo.Upsert(ctx, rec); err != nil {
		telemetry.Error("validation.write_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"owner_id":   ownerID,
			"category":   string(c),
			"error":      err.Error(),
		})
		return Record{}, fmt.Errorf("store %s record: %w", c, err)
	}

	metrics.IncValidationRun(string(c), verdict.String())
	telemetry.Info("validation.run", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"owner_id":   ownerID,
		"category":   string(c),
		"verdict":    verdict.String(),
		"actor_id":   actor.ID,
	})
	return rec, nil
}

// Status aggregates the owner's stored verdicts.
func (s *Service) Status(ctx context.Context, ownerID string) (GlobalStatus, error) {
	if strings.TrimSpace(ownerID) == "" {
		return GlobalStatus{}, ErrInvalidInput
	}
	records, err := s.Repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return GlobalStatus{}, err
	}
	idType := owners.IDTypeNational
	owner, err := s.Owners.Get(ctx, ownerID)
	switch {
	case err == nil:
		idType = owner.IDType
	case errors.Is(err, owners.ErrNotFound):
		if len(records) == 0 {
			return GlobalStatus{}, ErrOwnerNotFound
		}
	default:
		return GlobalStatus{}, fmt.Errorf("load owner: %w", err)
	}
	verdicts := make(map[Category]Verdict, len(records))
	for _, r := range records {
		verdicts[r.Category] = r.Verdict
	}
	return Aggregate(verdicts, idType), nil
}

// Enqueue publishes a full-run request for a worker. It returns the request
// ID carried by the message.
func (s *Service) Enqueue(ctx context.Context, actor auth.Actor, ownerID, requestID string, categories []Category) (string, error) {
	if s.Queue == nil {
		return "", ErrQueueUnavailable
	}
	if strings.TrimSpace(ownerID) == "" {
		return "", ErrInvalidInput
	}
	for _, c := range categories {
		if !c.Automatic() {
			return "", fmt.Errorf("%w: %s", ErrNotAutomatic, c)
		}
	}
	if _, err := s.Owners.Get(ctx, ownerID); err != nil {
		if errors.Is(err, owners.ErrNotFound) {
			return "", ErrOwnerNotFound
		}
		return "", fmt.Errorf("load owner: %w", err)
	}
	msg := queue.Message{
		OwnerID:    ownerID,
		ActorID:    actor.ID,
		RequestID:  requestID,
		EnqueuedAt: s.now().Format(time.RFC3339),
		Version:    queue.MessageVersion,
	}
	for _, c := range categories {
		msg.Categories = append(msg.Categories, string(c))
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	metrics.IncQueueEnqueued()
	telemetry.Info("validation.enqueued", map[string]any{
		"request_id": requestID,
		"owner_id":   ownerID,
		"actor_id":   actor.ID,
	})
	return requestID, nil
}
