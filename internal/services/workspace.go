// Package services hosts the per-identity workspaces and the session table
// that maps bearer tokens to them.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"financeiro/internal/core"
	"financeiro/internal/docstore"
	"financeiro/internal/extraction"
	"financeiro/internal/identity"
	"financeiro/internal/ledger"
	"financeiro/internal/log"
	"financeiro/internal/report"
	"financeiro/internal/staging"
	"financeiro/internal/syncer"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrCategoryConflict    = errors.New("category name already in use")
	ErrExtractionDisabled  = errors.New("extraction is not configured")
	ErrWorkspaceClosed     = errors.New("workspace is closed")
)

// Extractor turns uploaded files into expense data.
type Extractor interface {
	ExtractReceipt(ctx context.Context, file extraction.File, knownCategories []string) (core.ExpenseFields, error)
	ExtractStatement(ctx context.Context, file extraction.File, knownCategories []string, actingMember core.Member) ([]core.StagedTransaction, error)
}

// Deps are the collaborators shared by every workspace.
type Deps struct {
	Store     docstore.Store
	Extractor Extractor
	Notifier  syncer.Notifier
	Sync      syncer.Config
	LoadRetry syncer.RetryOptions
	// MemberAPrefix selects member A by email prefix; everyone else is B.
	MemberAPrefix string
	Logger        *log.Logger
}

// TransactionInput is a manually entered transaction before validation.
type TransactionInput struct {
	Owner       core.Member          `json:"owner"`
	Type        core.TransactionType `json:"type"`
	CategoryID  string               `json:"categoryId"`
	Description string               `json:"description"`
	Amount      string               `json:"amount"`
	Tags        string               `json:"tags"`
	Date        string               `json:"date"`
}

// StagingView is the state of the import buffer.
type StagingView struct {
	State   staging.State            `json:"state"`
	Items   []core.StagedTransaction `json:"items"`
	Total   string                   `json:"total"`
	Pending []string                 `json:"pendingCategories"`
}

// Workspace is the state of one signed-in identity. All mutations are
// serialized behind mu.
type Workspace struct {
	mu        sync.Mutex
	session   identity.Session
	household *ledger.Household
	staging   *staging.Buffer
	member    core.Member
	closed    bool

	coord     *syncer.Coordinator
	loader    *syncer.Loader
	notices   *Notices
	extractor Extractor
	prefix    string
	logger    *log.Logger
	now       func() time.Time
}

// NewWorkspace builds an empty workspace for session. Nothing is synced
// until Load has run.
func NewWorkspace(session identity.Session, deps Deps) *Workspace {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	retry := deps.LoadRetry
	if retry.MaxAttempts <= 0 {
		retry = syncer.DefaultLoadRetry()
	}
	w := &Workspace{
		session:   session,
		household: ledger.NewHousehold(),
		member:    core.MemberB,
		notices:   NewNotices(),
		extractor: deps.Extractor,
		prefix:    strings.ToLower(strings.TrimSpace(deps.MemberAPrefix)),
		logger:    logger.WithComponent(log.ComponentLedger).With(log.FieldUserID, session.UserID),
		now:       time.Now,
	}
	w.staging = staging.New(w.household.Transactions, w.household.Categories)
	w.coord = syncer.NewCoordinator(deps.Store, session.UserID, w.snapshot, deps.Sync, logger)
	if deps.Notifier != nil {
		w.coord.SetNotifier(deps.Notifier)
	}
	w.coord.OnResult(w.syncResult)
	w.household.SetOnChange(w.coord.Touch)
	w.loader = syncer.NewLoader(deps.Store, retry, logger)
	return w
}

// Load fetches the stored household once. Missing data and exhausted
// retries both leave the defaults in place. The push path is enabled in
// every case.
func (w *Workspace) Load(ctx context.Context) error {
	res, err := w.loader.Load(ctx, w.session.UserID)

	w.mu.Lock()
	switch {
	case err != nil:
		w.household.Reset()
		w.notices.Error(MsgLoadFailed)
	case res.Found:
		w.household.Load(res.Document)
		w.notices.Success(MsgLoaded)
	default:
		w.household.Reset()
	}
	w.member = w.memberFor(w.session.Email)
	w.mu.Unlock()

	w.coord.MarkLoaded()
	return err
}

func (w *Workspace) memberFor(email string) core.Member {
	if w.prefix != "" && strings.HasPrefix(strings.ToLower(email), w.prefix) {
		return core.MemberA
	}
	return core.MemberB
}

func (w *Workspace) snapshot() ledger.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.household.Snapshot(w.now())
}

func (w *Workspace) syncResult(err error) {
	if err != nil {
		w.notices.Error(MsgSyncFailed)
		return
	}
	w.notices.Success(MsgSynced)
}

func (w *Workspace) Session() identity.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

func (w *Workspace) setSession(s *identity.Session) {
	if s == nil {
		return
	}
	w.mu.Lock()
	w.session = *s
	w.mu.Unlock()
}

// Member is the member the signed-in identity acts as.
func (w *Workspace) Member() core.Member {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.member
}

func (w *Workspace) Notices() []Notice {
	return w.notices.Active()
}

func (w *Workspace) DismissNotice(id string) bool {
	return w.notices.Dismiss(id)
}

// CleanExpired drops expired notices.
func (w *Workspace) CleanExpired() int {
	return w.notices.CleanExpired()
}

func (w *Workspace) Transactions(view core.ViewFilter, key ledger.SortKey, desc bool) []core.Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.household.Transactions.Sorted(view, key, desc)
}

// LedgerEntry is a transaction with its category name resolved.
type LedgerEntry struct {
	core.Transaction
	CategoryName string `json:"categoryName"`
}

// Ledger is the sorted view with category names. Dangling category ids
// resolve to the "not found" placeholder.
func (w *Workspace) Ledger(view core.ViewFilter, key ledger.SortKey, desc bool) []LedgerEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	txs := w.household.Transactions.Sorted(view, key, desc)
	out := make([]LedgerEntry, len(txs))
	for i, tx := range txs {
		out[i] = LedgerEntry{
			Transaction:  tx,
			CategoryName: w.household.Categories.Lookup(tx.CategoryID, tx.Type).Name,
		}
	}
	return out
}

func (w *Workspace) Transaction(id string) (core.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	tx, ok := w.household.Transactions.Get(id)
	if !ok {
		return core.Transaction{}, ErrTransactionNotFound
	}
	return tx, nil
}

// AddTransaction validates in and prepends it. Invalid input never reaches
// the store.
func (w *Workspace) AddTransaction(in TransactionInput) (core.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return core.Transaction{}, ErrWorkspaceClosed
	}
	tx, err := w.parseInput(in)
	if err != nil {
		return core.Transaction{}, err
	}
	tx = w.household.Transactions.Add(tx)
	w.logger.Info("Transaction added",
		log.NewFields().WithTransaction(tx.ID, string(tx.Type), tx.Amount.String(), tx.CategoryID).ToSlice()...)
	return tx, nil
}

// UpdateTransaction replaces the editable fields of the transaction id.
func (w *Workspace) UpdateTransaction(id string, in TransactionInput) (core.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return core.Transaction{}, ErrWorkspaceClosed
	}
	existing, ok := w.household.Transactions.Get(id)
	if !ok {
		return core.Transaction{}, ErrTransactionNotFound
	}
	tx, err := w.parseInput(in)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.ID = existing.ID
	tx.CreatedAt = existing.CreatedAt
	w.household.Transactions.Update(tx)
	updated, _ := w.household.Transactions.Get(id)
	return updated, nil
}

func (w *Workspace) DeleteTransaction(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWorkspaceClosed
	}
	if !w.household.Transactions.Remove(id) {
		return ErrTransactionNotFound
	}
	return nil
}

func (w *Workspace) parseInput(in TransactionInput) (core.Transaction, error) {
	if strings.TrimSpace(in.Amount) == "" {
		return core.Transaction{}, &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "amount", Err: err}
	}
	if strings.TrimSpace(in.Date) == "" {
		return core.Transaction{}, &core.ValidationError{Field: "date", Err: core.ErrInvalidDate}
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "date", Err: err}
	}
	owner := in.Owner
	if owner == "" {
		owner = w.member
	}
	tx := core.Transaction{
		Owner:       owner,
		Type:        in.Type,
		CategoryID:  strings.TrimSpace(in.CategoryID),
		Description: strings.TrimSpace(in.Description),
		Amount:      amount,
		Date:        date,
	}
	if tx.Type == core.Expense {
		tx.Tags = core.SplitTags(in.Tags)
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if cat, ok := w.household.Categories.Get(tx.CategoryID); !ok || cat.Type != tx.Type {
		return core.Transaction{}, &core.ValidationError{Field: "category", Err: ErrCategoryNotFound}
	}
	return tx, nil
}

func (w *Workspace) Categories() []core.Category {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.household.Categories.All()
}

func (w *Workspace) AddCategory(name string, t core.TransactionType) (core.Category, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return core.Category{}, ErrWorkspaceClosed
	}
	if !t.IsValid() {
		return core.Category{}, &core.ValidationError{Field: "type", Err: core.ErrInvalidType}
	}
	if strings.TrimSpace(name) == "" {
		return core.Category{}, &core.ValidationError{Field: "name", Err: core.ErrEmptyCategory}
	}
	cat, ok := w.household.Categories.Add(name, t)
	if !ok {
		return core.Category{}, ErrCategoryConflict
	}
	return cat, nil
}

func (w *Workspace) RenameCategory(t core.TransactionType, id, name string) (core.Category, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return core.Category{}, ErrWorkspaceClosed
	}
	if strings.TrimSpace(name) == "" {
		return core.Category{}, &core.ValidationError{Field: "name", Err: core.ErrEmptyCategory}
	}
	if cat, ok := w.household.Categories.Get(id); !ok || cat.Type != t {
		return core.Category{}, ErrCategoryNotFound
	}
	if !w.household.Categories.Rename(id, name, t) {
		return core.Category{}, ErrCategoryConflict
	}
	cat, _ := w.household.Categories.Get(id)
	return cat, nil
}

// DeleteCategory removes the category. Transactions that reference it keep
// the id and show the "not found" placeholder.
func (w *Workspace) DeleteCategory(t core.TransactionType, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWorkspaceClosed
	}
	if !w.household.Categories.Delete(id, t) {
		return ErrCategoryNotFound
	}
	return nil
}

func (w *Workspace) MemberNames() core.MemberNames {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.household.MemberNames()
}

func (w *Workspace) SetMemberNames(n core.MemberNames) (core.MemberNames, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return core.MemberNames{}, ErrWorkspaceClosed
	}
	n.MemberA = strings.TrimSpace(n.MemberA)
	n.MemberB = strings.TrimSpace(n.MemberB)
	if n.IsZero() {
		return core.MemberNames{}, &core.ValidationError{Field: "names", Err: errors.New("at least one name is required")}
	}
	w.household.SetMemberNames(n)
	return w.household.MemberNames(), nil
}

// Report summarizes the transactions visible under view.
func (w *Workspace) Report(view core.ViewFilter) report.Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	txs := w.household.Transactions.FilterByUser(view)
	return report.Build(txs, w.household.Categories)
}

// QuickReceipt extracts a receipt and adds it as one expense of the acting
// member. An unknown suggested category is created first.
func (w *Workspace) QuickReceipt(ctx context.Context, file extraction.File) (core.Transaction, error) {
	if w.extractor == nil {
		return core.Transaction{}, &core.ExtractionError{Kind: core.ExtractionUnavailable, Err: ErrExtractionDisabled}
	}
	w.mu.Lock()
	vocabulary := w.household.Categories.Names(core.Expense)
	w.mu.Unlock()

	fields, err := w.extractor.ExtractReceipt(ctx, file, vocabulary)
	if err != nil {
		w.notices.Error(err.Error())
		return core.Transaction{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return core.Transaction{}, ErrWorkspaceClosed
	}
	cat, ok := w.household.Categories.FindByName(fields.Category, core.Expense)
	if !ok {
		if cat, ok = w.household.Categories.Add(fields.Category, core.Expense); !ok {
			return core.Transaction{}, &core.ValidationError{Field: "category", Err: core.ErrEmptyCategory}
		}
	}
	date, err := core.ParseDate(fields.Date)
	if err != nil {
		date = w.now()
	}
	tx := w.household.Transactions.Add(core.Transaction{
		Owner:       w.member,
		Type:        core.Expense,
		CategoryID:  cat.ID,
		Description: fields.Description,
		Amount:      fields.Amount,
		Tags:        fields.Tags,
		Date:        date,
	})
	w.notices.Success(MsgReceiptAnalyzed)
	return tx, nil
}

// AnalyzeStatement extracts a card statement into the staging buffer.
func (w *Workspace) AnalyzeStatement(ctx context.Context, file extraction.File) (StagingView, error) {
	if w.extractor == nil {
		return StagingView{}, &core.ExtractionError{Kind: core.ExtractionUnavailable, Err: ErrExtractionDisabled}
	}
	w.mu.Lock()
	if w.staging.State() == staging.Staged {
		w.mu.Unlock()
		return StagingView{}, staging.ErrAlreadyStaged
	}
	vocabulary := w.household.Categories.Names(core.Expense)
	member := w.member
	w.mu.Unlock()

	items, err := w.extractor.ExtractStatement(ctx, file, vocabulary, member)
	if err != nil {
		w.notices.Error(err.Error())
		return StagingView{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return StagingView{}, ErrWorkspaceClosed
	}
	staged, err := w.staging.Stage(items)
	if err != nil {
		return StagingView{}, err
	}
	w.notices.Success(fmt.Sprintf("%d transactions found", len(staged)))
	return w.stagingViewLocked(), nil
}

func (w *Workspace) Staging() StagingView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stagingViewLocked()
}

func (w *Workspace) stagingViewLocked() StagingView {
	return StagingView{
		State:   w.staging.State(),
		Items:   w.staging.Items(),
		Total:   core.FormatAmount(w.staging.Total()),
		Pending: w.staging.PendingCategories(),
	}
}

func (w *Workspace) UpdateStaged(tempID, field, value string) (StagingView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.staging.UpdateField(tempID, field, value); err != nil {
		return StagingView{}, err
	}
	return w.stagingViewLocked(), nil
}

func (w *Workspace) RemoveStaged(tempID string) (StagingView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.staging.Remove(tempID) {
		return StagingView{}, staging.ErrItemNotFound
	}
	return w.stagingViewLocked(), nil
}

// CreateStagedCategory creates an expense category and assigns it to the
// staged item.
func (w *Workspace) CreateStagedCategory(tempID, name string) (core.Category, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return core.Category{}, ErrWorkspaceClosed
	}
	return w.staging.CreateCategory(tempID, name)
}

// CommitStaging adds every staged item to the ledger.
func (w *Workspace) CommitStaging() ([]core.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrWorkspaceClosed
	}
	txs, err := w.staging.Commit()
	if err != nil {
		return nil, err
	}
	w.notices.Success(fmt.Sprintf("%d transactions imported", len(txs)))
	w.logger.Info("Staged transactions imported", log.FieldCount, len(txs))
	return txs, nil
}

// CancelStaging discards the buffer and returns how many items it held.
func (w *Workspace) CancelStaging() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.staging.Cancel()
}

// Flush writes the pending state now. It must not be called with mu held.
func (w *Workspace) Flush() bool {
	return w.coord.Flush()
}

// PendingSync reports whether a debounced write is scheduled.
func (w *Workspace) PendingSync() bool {
	return w.coord.Pending()
}

// Close cancels the pending write and waits for one in flight. Later
// mutations are rejected.
func (w *Workspace) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.coord.Close()
}

// Clear drops all local state. Call after Close.
func (w *Workspace) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.staging.Cancel()
	w.household.Reset()
	w.notices.Clear()
}
