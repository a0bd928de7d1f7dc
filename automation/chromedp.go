package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"inventory-sync/models"
	"inventory-sync/utils"
)

// ChromeConfig tunes the browser sessions.
type ChromeConfig struct {
	ChromeBin     string
	Headless      bool
	ActionTimeout time.Duration
	SubmitTimeout time.Duration
	MaxRetries    int
}

// ChromeFactory launches one headless Chrome per session.
type ChromeFactory struct {
	cfg    ChromeConfig
	logger *utils.Logger
	http   *http.Client
}

// NewChromeFactory creates a factory with defaults filled in.
func NewChromeFactory(cfg ChromeConfig, logger *utils.Logger) *ChromeFactory {
	if cfg.ActionTimeout == 0 {
		cfg.ActionTimeout = 60 * time.Second
	}
	if cfg.SubmitTimeout == 0 {
		cfg.SubmitTimeout = 3 * time.Minute
	}
	return &ChromeFactory{
		cfg:    cfg,
		logger: logger,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// NewSession starts a browser and returns a session bound to region.
func (f *ChromeFactory) NewSession(ctx context.Context, region models.RegionURL) (Session, error) {
	chromeBin := findChromeBinary(f.cfg.ChromeBin)
	f.logger.Debug("[chrome] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	cancel := func() {
		cancelBrowser()
		cancelAlloc()
	}

	// Confirmation dialogs of the delete action are accepted unconditionally.
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if _, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			go func() { _ = chromedp.Run(browserCtx, page.HandleJavaScriptDialog(true)) }()
		}
	})

	startCtx, cancelStart := context.WithTimeout(browserCtx, f.cfg.ActionTimeout)
	defer cancelStart()
	stop := context.AfterFunc(ctx, cancelStart)
	defer stop()
	if err := chromedp.Run(startCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: start browser: %v", ErrConnection, err)
	}

	return &ChromeSession{
		region:  region,
		cfg:     f.cfg,
		logger:  f.logger.With("region", region.Region),
		http:    f.http,
		browser: browserCtx,
		cancel:  cancel,
		retry: &utils.RetryConfig{
			MaxAttempts: f.cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      f.logger,
			Retryable:   func(err error) bool { return !errors.Is(err, ErrConnection) },
		},
	}, nil
}

// ChromeSession implements Session over one chromedp browser tab.
type ChromeSession struct {
	region  models.RegionURL
	cfg     ChromeConfig
	logger  *utils.Logger
	http    *http.Client
	browser context.Context
	cancel  context.CancelFunc
	retry   *utils.RetryConfig
}

func (s *ChromeSession) run(ctx context.Context, timeout time.Duration, op string, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.browser, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.browser.Err() != nil || isConnectionError(err) {
			return fmt.Errorf("%w: %s: %v", ErrConnection, op, err)
		}
		return fmt.Errorf("automation: %s: %w", op, err)
	}
	return nil
}

func isConnectionError(err error) bool {
	msg := err.Error()
	for _, marker := range []string{"net::ERR_", "websocket", "connection reset", "broken pipe", "target closed"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (s *ChromeSession) Login(ctx context.Context, accountID, password, redirectURL string) error {
	return s.retry.Do(ctx, "login", func() error {
		var filled bool
		var landed string
		err := s.run(ctx, s.cfg.ActionTimeout, "login",
			chromedp.Navigate(redirectURL),
			chromedp.WaitVisible(loginIDInput, chromedp.ByQuery),
			chromedp.Evaluate(fmt.Sprintf(`
				(function() {
					var id = document.querySelector(%s);
					var pw = document.querySelector(%s);
					if (!id || !pw) return false;
					id.value = %s;
					pw.value = %s;
					return true;
				})()
			`, jsString(loginIDInput), jsString(loginPWInput), jsString(accountID), jsString(password)), &filled),
			chromedp.Click(loginSubmitInput, chromedp.ByQuery),
			chromedp.Sleep(2*time.Second),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Location(&landed),
		)
		if err != nil {
			return err
		}
		if !filled {
			return errors.New("automation: login form not found")
		}
		if strings.Contains(landed, "/membership/login") {
			return fmt.Errorf("automation: login rejected for %s", accountID)
		}
		s.logger.Info("[chrome] Logged in as %s", accountID)
		return nil
	})
}

func (s *ChromeSession) PageCount(ctx context.Context) (int, error) {
	var n int
	err := s.retry.Do(ctx, "page-count", func() error {
		return s.run(ctx, s.cfg.ActionTimeout, "page count",
			chromedp.Navigate(s.region.ManageURL()),
			chromedp.WaitVisible(manageTable, chromedp.ByQuery),
			chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(managePagination)), &n),
		)
	})
	if err != nil {
		return 0, err
	}
	if n < 1 {
		n = 1
	}
	return n, nil
}

func (s *ChromeSession) OpenPage(ctx context.Context, pageNum int) ([]string, error) {
	var ids []string
	err := s.retry.Do(ctx, fmt.Sprintf("open-page-%d", pageNum), func() error {
		ids = nil
		return s.run(ctx, s.cfg.ActionTimeout, fmt.Sprintf("open page %d", pageNum),
			chromedp.Navigate(s.region.ManagePageURL(pageNum)),
			chromedp.WaitVisible(manageTable, chromedp.ByQuery),
			chromedp.Evaluate(fmt.Sprintf(`
				(function() {
					var rows = document.querySelectorAll(%s);
					var ids = [];
					for (var i = 0; i < rows.length; i++) {
						var el = rows[i].querySelector(%s);
						ids.push(el ? el.textContent.trim() : '');
					}
					return ids;
				})()
			`, jsString(manageRows), jsString(manageRowID)), &ids),
		)
	})
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("automation: page %d row %d has no listing id", pageNum, i)
		}
	}
	return ids, nil
}

func (s *ChromeSession) DeleteRows(ctx context.Context, rows []int) error {
	if len(rows) == 0 {
		return nil
	}
	positions, _ := json.Marshal(rows)

	var ticked int
	err := s.run(ctx, s.cfg.ActionTimeout, "delete rows",
		chromedp.Evaluate(fmt.Sprintf(`
			(function() {
				var rows = document.querySelectorAll(%s);
				var picks = %s;
				var n = 0;
				for (var i = 0; i < picks.length; i++) {
					var tr = rows[picks[i]];
					var box = tr ? tr.querySelector(%s) : null;
					if (box) { box.checked = true; n++; }
				}
				return n;
			})()
		`, jsString(manageRows), positions, jsString(manageRowCheckbox)), &ticked),
	)
	if err != nil {
		return err
	}
	if ticked != len(rows) {
		return fmt.Errorf("automation: ticked %d of %d rows", ticked, len(rows))
	}

	return s.run(ctx, s.cfg.ActionTimeout, "confirm delete",
		chromedp.Click(manageDeleteButton, chromedp.ByQuery),
		chromedp.WaitVisible(manageConfirmButton, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(`
			document.querySelector(%s).dispatchEvent(new Event('click', { bubbles: true }))
		`, jsString(manageConfirmButton)), nil),
		chromedp.Sleep(3*time.Second),
		chromedp.WaitVisible(manageTable, chromedp.ByQuery),
	)
}

func (s *ChromeSession) Submit(ctx context.Context, form *models.SubmissionForm) error {
	files, cleanup, err := downloadImages(ctx, s.http, form.Images)
	if err != nil {
		return fmt.Errorf("automation: images of %s: %w", form.ListingID, err)
	}
	defer cleanup()

	segment, err := segmentLabel(form.SegmentName)
	if err != nil {
		return err
	}

	actions := []chromedp.Action{
		chromedp.Navigate(s.region.RegisterURL()),
		chromedp.WaitVisible(formBase, chromedp.ByQuery),
	}
	actions = append(actions, fillInformation(form)...)
	actions = append(actions, categorize(form, segment)...)
	if len(files) > 0 {
		actions = append(actions,
			chromedp.Focus(imageRegisterBtn, chromedp.ByQuery),
			chromedp.SetUploadFiles(imageFileInput, files, chromedp.ByQuery),
			chromedp.WaitVisible(imageFirstPreview, chromedp.ByQuery),
		)
	}

	var landed string
	actions = append(actions,
		chromedp.Click(submitButton, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&landed),
	)

	if err := s.run(ctx, s.cfg.SubmitTimeout, "submit "+form.ListingID, actions...); err != nil {
		return err
	}
	if strings.Contains(landed, "/car_post/new") {
		return fmt.Errorf("automation: form for %s was not accepted", form.ListingID)
	}
	return nil
}

func fillInformation(form *models.SubmissionForm) []chromedp.Action {
	actions := []chromedp.Action{
		setSelect(yearSelect, form.Year),
		setSelect(monthSelect, form.Month),
		setSelect(fuelSelect, form.FuelCode),
		chromedp.Click(gearboxLabel(form.GearboxCode), chromedp.ByQuery),
		chromedp.Click(liabilityLabel(1, form.HasSeizure), chromedp.ByQuery),
		chromedp.Click(liabilityLabel(2, form.HasMortgage), chromedp.ByQuery),
		chromedp.Click(accidentLabel(form.AccidentCode == "yes"), chromedp.ByQuery),
	}
	if form.AccidentCode == "yes" && form.AccidentNote != "" {
		actions = append(actions,
			chromedp.WaitVisible(accidentNoteTextarea, chromedp.ByQuery),
			chromedp.SendKeys(accidentNoteTextarea, form.AccidentNote, chromedp.ByQuery),
		)
	}

	actions = append(actions,
		chromedp.Click(colorToggle, chromedp.ByQuery),
		chromedp.WaitVisible(colorList, chromedp.ByQuery),
		chromedp.Click(colorItem(form.ColorCode), chromedp.ByQuery),
	)
	if form.ColorNote != "" {
		actions = append(actions,
			chromedp.WaitVisible(colorNoteInput, chromedp.ByQuery),
			chromedp.SendKeys(colorNoteInput, form.ColorNote, chromedp.ByQuery),
		)
	}

	return append(actions, setValues(map[string]string{
		presentationNumberInput: form.PresentationNumber,
		plateInput:              form.Plate,
		mileageInput:            fmt.Sprint(form.Mileage),
		displacementInput:       fmt.Sprint(form.Displacement),
		priceInput:              fmt.Sprint(form.Price),
		descriptionTextarea:     form.Description,
	}))
}

func categorize(form *models.SubmissionForm, segment string) []chromedp.Action {
	domestic := form.Origin == models.Domestic
	actions := []chromedp.Action{
		chromedp.Click(originLabel(domestic), chromedp.ByQuery),
		chromedp.Click(segment, chromedp.ByQuery),
	}

	if form.ManufacturerIsEtc {
		actions = append(actions, chromedp.WaitVisible(companyItems, chromedp.ByQuery), clickLast(companyItems))
	} else {
		sel := byValue(companyItems, form.ManufacturerValue)
		actions = append(actions, chromedp.WaitVisible(sel, chromedp.ByQuery), chromedp.Click(sel, chromedp.ByQuery))
	}

	switch {
	case form.ModelValue != "":
		sel := byValue(modelItems, form.ModelValue)
		actions = append(actions, chromedp.WaitVisible(sel, chromedp.ByQuery), chromedp.Click(sel, chromedp.ByQuery))
	case domestic:
		actions = append(actions, chromedp.WaitVisible(modelItems, chromedp.ByQuery), clickLast(modelItems))
	}

	if form.DetailModelValue != "" {
		sel := byValue(detailItems, form.DetailModelValue)
		actions = append(actions, chromedp.WaitVisible(sel, chromedp.ByQuery), chromedp.Click(sel, chromedp.ByQuery))
	}

	if form.FreeTextTitle != "" {
		actions = append(actions, setValues(map[string]string{freeTitleInput: form.FreeTextTitle}))
	}
	return actions
}

// setValues assigns input values in one round trip; a missing element fails
// the action.
func setValues(values map[string]string) chromedp.Action {
	payload, _ := json.Marshal(values)
	return chromedp.Evaluate(fmt.Sprintf(`
		(function(values) {
			for (var sel in values) {
				var el = document.querySelector(sel);
				if (!el) throw new Error('missing element ' + sel);
				el.value = values[sel];
			}
			return true;
		})(%s)
	`, payload), nil)
}

func setSelect(sel, value string) chromedp.Action {
	return chromedp.Evaluate(fmt.Sprintf(`
		(function() {
			var el = document.querySelector(%s);
			if (!el) throw new Error('missing select ' + %s);
			el.value = %s;
			el.dispatchEvent(new Event('change', { bubbles: true }));
			return true;
		})()
	`, jsString(sel), jsString(sel), jsString(value)), nil)
}

func clickLast(sel string) chromedp.Action {
	return chromedp.Evaluate(fmt.Sprintf(`
		(function() {
			var items = document.querySelectorAll(%s);
			if (!items.length) throw new Error('no items ' + %s);
			items[items.length - 1].click();
			return true;
		})()
	`, jsString(sel), jsString(sel)), nil)
}

// jsString quotes s as a JavaScript string literal. Selectors keep their
// combinators unescaped.
func jsString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

func (s *ChromeSession) Close() error {
	s.cancel()
	return nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
