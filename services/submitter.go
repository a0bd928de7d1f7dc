package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"inventory-sync/automation"
	"inventory-sync/metrics"
	"inventory-sync/models"
	"inventory-sync/storage"
	"inventory-sync/utils"
)

// SubmitResult summarizes one submission run for an account.
type SubmitResult struct {
	Account   string
	Pending   int
	Submitted int
	Failed    int
	// Skipped counts pending listings that never reached a form: they no
	// longer classify, have no margin band, or were left after an abort.
	Skipped int
	// Aborted is set when a connection failure stopped the run early.
	Aborted bool
}

// FormBuilder turns classified listings into submission forms.
type FormBuilder struct {
	margins     *MarginTable
	description *template.Template
}

// NewFormBuilder parses the description template once.
func NewFormBuilder(margins *MarginTable, descriptionTemplate string) (*FormBuilder, error) {
	tmpl, err := template.New("description").Parse(descriptionTemplate)
	if err != nil {
		return nil, fmt.Errorf("description template: %w", err)
	}
	return &FormBuilder{margins: margins, description: tmpl}, nil
}

// descriptionData is what the description template renders; listing
// fields are promoted, so {{.Title}} works.
type descriptionData struct {
	*models.Listing
	SalePrice int
	Account   string
}

// Build resolves every form field of one listing.
func (b *FormBuilder) Build(cl *models.ClassifiedListing, accountID string) (*models.SubmissionForm, error) {
	l := cl.Listing
	margin, err := b.margins.Resolve(cl.Origin, l.Price)
	if err != nil {
		return nil, err
	}
	salePrice := l.Price + margin

	var desc strings.Builder
	if err := b.description.Execute(&desc, descriptionData{Listing: l, SalePrice: salePrice, Account: accountID}); err != nil {
		return nil, fmt.Errorf("description of %s: %w", l.ID, err)
	}

	year, month, _ := strings.Cut(l.ModelYear, "-")
	colorCode, colorNote := ColorCode(l.Color)
	accidentCode, accidentNote := AccidentCode(l.HasAccident)

	form := &models.SubmissionForm{
		ListingID:          l.ID,
		Origin:             cl.Origin,
		SegmentName:        cl.Segment.Name,
		ManufacturerValue:  cl.Manufacturer.Value,
		ManufacturerIsEtc:  cl.Manufacturer.Name == etcName,
		Plate:              l.ID,
		PresentationNumber: l.PresentationNumber,
		Year:               year,
		Month:              month,
		Mileage:            l.Mileage,
		Displacement:       l.Displacement,
		Price:              salePrice,
		FuelCode:           FuelCode(l.FuelType),
		GearboxCode:        GearboxCode(l.GearBox),
		ColorCode:          colorCode,
		ColorNote:          colorNote,
		AccidentCode:       accidentCode,
		AccidentNote:       accidentNote,
		HasSeizure:         l.HasSeizure,
		HasMortgage:        l.HasMortgage,
		Description:        desc.String(),
		Images:             l.Images,
	}
	if cl.Model != nil {
		form.ModelValue = cl.Model.Value
	}
	if cl.DetailModel != nil {
		form.DetailModelValue = cl.DetailModel.Value
	}
	if cl.Model == nil || cl.DetailModel == nil {
		form.FreeTextTitle = l.Title
	}
	return form, nil
}

// Submitter posts an account's unconfirmed listings through the remote
// registration form.
type Submitter struct {
	store       storage.ListingStore
	accounts    AccountResolver
	factory     automation.Factory
	classifier  *Classifier
	forms       *FormBuilder
	workers     int
	rateLimitMs int
	metrics     *metrics.Pipeline
	logger      *utils.Logger
}

// SubmitterConfig sizes the browser pool.
type SubmitterConfig struct {
	Workers     int
	RateLimitMs int
}

func NewSubmitter(store storage.ListingStore, accounts AccountResolver, factory automation.Factory,
	classifier *Classifier, forms *FormBuilder, cfg SubmitterConfig, m *metrics.Pipeline, logger *utils.Logger) *Submitter {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Submitter{
		store:       store,
		accounts:    accounts,
		factory:     factory,
		classifier:  classifier,
		forms:       forms,
		workers:     cfg.Workers,
		rateLimitMs: cfg.RateLimitMs,
		metrics:     m,
		logger:      logger,
	}
}

// SubmitAccount submits every assigned, unconfirmed listing of the account.
// The listings are split into one contiguous chunk per worker and each
// worker drives its own browser session. A per-listing failure is logged
// and skipped; a connection failure stops every worker of the account.
// Submitted listings are marked confirmed and persisted.
func (s *Submitter) SubmitAccount(ctx context.Context, accountID string) (*SubmitResult, error) {
	acct, region, err := s.accounts.AccountAndRegion(accountID)
	if err != nil {
		return nil, err
	}
	log := s.logger.With("account", acct.ID)

	pending, err := s.store.ListByOwnerAndConfirmed(ctx, acct.ID, false)
	if err != nil {
		return nil, fmt.Errorf("submit %s: load pending: %w", acct.ID, err)
	}
	result := &SubmitResult{Account: acct.ID, Pending: len(pending)}
	if len(pending) == 0 {
		log.Info("[submitter] Nothing to submit")
		return result, nil
	}

	classified, dropped := s.classifier.ClassifyAll(pending)
	for _, d := range dropped {
		log.Warn("[submitter] Skipping %s: %s", d.Listing.ID, d.Reason)
	}
	result.Skipped += len(dropped)

	forms := make([]*models.SubmissionForm, 0, len(classified))
	byID := make(map[string]*models.Listing, len(classified))
	for _, cl := range classified {
		form, err := s.forms.Build(cl, acct.ID)
		if err != nil {
			log.Error("[submitter] Cannot build form for %s: %v", cl.Listing.ID, err)
			result.Skipped++
			continue
		}
		forms = append(forms, form)
		byID[form.ListingID] = cl.Listing
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	var submitted []*models.Listing
	pool := utils.NewWorkerPool(s.workers, s.rateLimitMs)
	for i, chunk := range utils.Chunk(forms, s.workers) {
		worker, chunk := i, chunk
		pool.Submit(runCtx, func() {
			ok, failed, aborted := s.runChunk(runCtx, log.With("worker", worker), acct, region, chunk)
			if aborted {
				cancel()
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ok {
				submitted = append(submitted, byID[id])
			}
			result.Failed += failed
			result.Aborted = result.Aborted || aborted
		})
	}
	pool.Wait()

	result.Submitted = len(submitted)
	result.Skipped += len(forms) - result.Submitted - result.Failed

	for _, l := range submitted {
		l.Confirmed = true
	}
	if len(submitted) > 0 {
		res := s.store.SaveOwnership(ctx, submitted)
		if !res.OK() {
			return result, fmt.Errorf("submit %s: persist: %w", acct.ID, res.Err())
		}
	}

	log.Info("[submitter] %d pending, %d submitted, %d failed, %d skipped",
		result.Pending, result.Submitted, result.Failed, result.Skipped)
	if result.Aborted {
		log.Warn("[submitter] Run aborted on connection failure; remaining listings wait for the next run")
	}
	return result, nil
}

// runChunk submits forms sequentially on one session. It returns the ids
// submitted, the number of domain failures and whether the run hit a
// connection failure.
func (s *Submitter) runChunk(ctx context.Context, log *utils.Logger, acct *models.Account,
	region models.RegionURL, forms []*models.SubmissionForm) (ok []string, failed int, aborted bool) {
	session, err := s.factory.NewSession(ctx, region)
	if err != nil {
		log.Error("[submitter] Cannot open session: %v", err)
		return nil, 0, true
	}
	defer session.Close()

	if err := session.Login(ctx, acct.ID, acct.Password, region.LoginRedirectRegister()); err != nil {
		log.Error("[submitter] Login failed: %v", err)
		return nil, 0, true
	}

	for _, form := range forms {
		if ctx.Err() != nil {
			return ok, failed, aborted
		}
		err := session.Submit(ctx, form)
		switch {
		case err == nil:
			ok = append(ok, form.ListingID)
			s.metrics.ObserveSubmission(acct.ID, true)
		case errors.Is(err, automation.ErrConnection):
			log.Error("[submitter] Connection lost at %s: %v", form.ListingID, err)
			s.metrics.ObserveSubmission(acct.ID, false)
			return ok, failed, true
		case ctx.Err() != nil:
			return ok, failed, aborted
		default:
			log.Warn("[submitter] Submission of %s failed: %v", form.ListingID, err)
			s.metrics.ObserveSubmission(acct.ID, false)
			failed++
		}
	}
	return ok, failed, false
}
