package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/element-app/backend/internal/core/domain"
	"github.com/element-app/backend/internal/core/ports"
)

// stubProjectRepo guards its state with a mutex so the concurrency tests
// below exercise the services against an honest atomic store.
type stubProjectRepo struct {
	mu       sync.Mutex
	projects map[int64]*domain.Project
	nextID   int64
}

func newStubProjectRepo() *stubProjectRepo {
	return &stubProjectRepo{projects: make(map[int64]*domain.Project)}
}

func cloneProject(p *domain.Project) *domain.Project {
	clone := *p
	clone.DependsOn = append([]int64(nil), p.DependsOn...)
	clone.Milestones = append([]domain.Milestone(nil), p.Milestones...)
	return &clone
}

func (r *stubProjectRepo) Create(_ context.Context, p *domain.Project) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	created := cloneProject(p)
	created.ID = r.nextID
	r.projects[created.ID] = created
	return cloneProject(created), nil
}

func (r *stubProjectRepo) FindByID(_ context.Context, id int64) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[id]; ok {
		return cloneProject(p), nil
	}
	return nil, domain.ErrProjectNotFound
}

func (r *stubProjectRepo) List(_ context.Context) ([]*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Project
	for _, p := range r.projects {
		out = append(out, cloneProject(p))
	}
	return out, nil
}

func (r *stubProjectRepo) UpdateStatus(_ context.Context, id int64, status domain.ProjectStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.Status = status
	return nil
}

func (r *stubProjectRepo) AddDependency(_ context.Context, id, dependsOn int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return domain.ErrProjectNotFound
	}
	for _, d := range p.DependsOn {
		if d == dependsOn {
			return nil
		}
	}
	p.DependsOn = append(p.DependsOn, dependsOn)
	return nil
}

func (r *stubProjectRepo) RemoveDependency(_ context.Context, id, dependsOn int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return domain.ErrProjectNotFound
	}
	for i, d := range p.DependsOn {
		if d == dependsOn {
			p.DependsOn = append(p.DependsOn[:i], p.DependsOn[i+1:]...)
			break
		}
	}
	return nil
}

func (r *stubProjectRepo) CreditEscrow(_ context.Context, id int64, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.EscrowBalance += amount
	return nil
}

func (r *stubProjectRepo) DebitEscrow(_ context.Context, id int64, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return domain.ErrProjectNotFound
	}
	if p.EscrowBalance < amount {
		return domain.ErrInsufficientFunds
	}
	p.EscrowBalance -= amount
	return nil
}

func (r *stubProjectRepo) AddMilestone(_ context.Context, projectID int64, m *domain.Milestone) (*domain.Milestone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	added := *m
	added.ID = int64(len(p.Milestones) + 1)
	added.ProjectID = projectID
	p.Milestones = append(p.Milestones, added)
	return &added, nil
}

func (r *stubProjectRepo) RemoveMilestone(_ context.Context, projectID, milestoneID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	for i, m := range p.Milestones {
		if m.ID == milestoneID {
			p.Milestones = append(p.Milestones[:i], p.Milestones[i+1:]...)
			return nil
		}
	}
	return domain.ErrMilestoneNotFound
}

func (r *stubProjectRepo) CompleteMilestone(_ context.Context, projectID, milestoneID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, err := r.milestone(projectID, milestoneID)
	if err != nil {
		return err
	}
	m.Completed = true
	return nil
}

func (r *stubProjectRepo) ClaimMilestonePayment(_ context.Context, projectID, milestoneID int64) (*domain.Milestone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, err := r.milestone(projectID, milestoneID)
	if err != nil {
		return nil, err
	}
	if m.PaymentReleased {
		return nil, domain.ErrPaymentAlreadyReleased
	}
	m.PaymentReleased = true
	claimed := *m
	return &claimed, nil
}

func (r *stubProjectRepo) RevertMilestonePaymentClaim(_ context.Context, projectID, milestoneID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, err := r.milestone(projectID, milestoneID)
	if err != nil {
		return err
	}
	m.PaymentReleased = false
	return nil
}

// milestone assumes the caller holds the lock.
func (r *stubProjectRepo) milestone(projectID, milestoneID int64) (*domain.Milestone, error) {
	p, ok := r.projects[projectID]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	for i := range p.Milestones {
		if p.Milestones[i].ID == milestoneID {
			return &p.Milestones[i], nil
		}
	}
	return nil, domain.ErrMilestoneNotFound
}

type stubTxnRepo struct {
	mu   sync.Mutex
	txns map[string]*domain.Transaction
}

func newStubTxnRepo() *stubTxnRepo {
	return &stubTxnRepo{txns: make(map[string]*domain.Transaction)}
}

func (r *stubTxnRepo) Insert(_ context.Context, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *t
	r.txns[t.ID] = &clone
	return nil
}

func (r *stubTxnRepo) FindByID(_ context.Context, id string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.txns[id]; ok {
		clone := *t
		return &clone, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (r *stubTxnRepo) ListByProject(_ context.Context, projectID int64) ([]*domain.Transaction, error) {
	return r.filter(func(t *domain.Transaction) bool { return t.ProjectID == projectID })
}

func (r *stubTxnRepo) ListBySender(_ context.Context, senderID int64) ([]*domain.Transaction, error) {
	return r.filter(func(t *domain.Transaction) bool { return t.SenderID == senderID })
}

func (r *stubTxnRepo) ListByReceiver(_ context.Context, receiverID int64) ([]*domain.Transaction, error) {
	return r.filter(func(t *domain.Transaction) bool { return t.ReceiverID == receiverID })
}

func (r *stubTxnRepo) filter(keep func(*domain.Transaction) bool) ([]*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Transaction
	for _, t := range r.txns {
		if keep(t) {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *stubTxnRepo) List(_ context.Context, filter ports.TransactionFilter) ([]*domain.Transaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.Transaction
	for _, t := range r.txns {
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.SenderID != 0 && t.SenderID != filter.SenderID {
			continue
		}
		if filter.ReceiverID != 0 && t.ReceiverID != filter.ReceiverID {
			continue
		}
		clone := *t
		matched = append(matched, &clone)
	}
	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *stubTxnRepo) UpdateStatus(_ context.Context, id string, from, to domain.TransactionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txns[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if t.Status != from {
		return domain.ErrAlreadyProcessed
	}
	t.Status = to
	return nil
}

func (r *stubTxnRepo) SetFee(_ context.Context, id string, fee float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txns[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	t.Fee = fee
	return nil
}

type stubGateway struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (g *stubGateway) Release(_ context.Context, _ string, _ int64, _ float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.err
}

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func newTestLedger(feeRate float64) (*TransactionService, *stubTxnRepo, *stubProjectRepo, *stubGateway) {
	txns := newStubTxnRepo()
	projects := newStubProjectRepo()
	gateway := &stubGateway{}
	svc := NewTransactionService(txns, projects, gateway, feeRate, zerolog.Nop())
	return svc, txns, projects, gateway
}

func seedProject(t *testing.T, projects *stubProjectRepo, escrow float64) int64 {
	t.Helper()
	p, err := projects.Create(context.Background(), &domain.Project{
		Name:      "site redesign",
		Budget:    10000,
		Status:    domain.ProjectPending,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	if escrow > 0 {
		if err := projects.CreditEscrow(context.Background(), p.ID, escrow); err != nil {
			t.Fatalf("seed escrow: %v", err)
		}
	}
	return p.ID
}

func TestTransactionService_Create(t *testing.T) {
	svc, _, projects, _ := newTestLedger(0.05)
	projectID := seedProject(t, projects, 0)

	txn, err := svc.Create(context.Background(), ports.CreateTransactionInput{
		ProjectID: projectID,
		SenderID:  1,
		Amount:    250,
		Type:      domain.TypeDeposit,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !strings.HasPrefix(txn.ID, "TXN-") {
		t.Fatalf("unexpected id format: %s", txn.ID)
	}
	if txn.Status != domain.TxPending {
		t.Fatalf("expected pending, got %s", txn.Status)
	}
}

func TestTransactionService_Create_Validation(t *testing.T) {
	svc, _, projects, _ := newTestLedger(0.05)
	projectID := seedProject(t, projects, 0)

	cases := []struct {
		name  string
		input ports.CreateTransactionInput
		want  error
	}{
		{"zero amount", ports.CreateTransactionInput{ProjectID: projectID, Amount: 0, Type: domain.TypeDeposit}, domain.ErrInvalidAmount},
		{"negative amount", ports.CreateTransactionInput{ProjectID: projectID, Amount: -5, Type: domain.TypeDeposit}, domain.ErrInvalidAmount},
		{"unknown type", ports.CreateTransactionInput{ProjectID: projectID, Amount: 10, Type: "refund"}, domain.ErrInvalidInput},
		{"missing project", ports.CreateTransactionInput{ProjectID: 999, Amount: 10, Type: domain.TypeDeposit}, domain.ErrProjectNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestTransactionService_ProcessDeposit(t *testing.T) {
	svc, _, projects, _ := newTestLedger(0.05)
	projectID := seedProject(t, projects, 0)

	txn, _ := svc.Create(context.Background(), ports.CreateTransactionInput{
		ProjectID: projectID, SenderID: 1, Amount: 500, Type: domain.TypeDeposit,
	})

	processed, err := svc.Process(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if processed.Status != domain.TxCompleted {
		t.Fatalf("expected completed, got %s", processed.Status)
	}

	p, _ := projects.FindByID(context.Background(), projectID)
	if p.EscrowBalance != 500 {
		t.Fatalf("expected escrow 500, got %v", p.EscrowBalance)
	}
}

func TestTransactionService_ProcessFee(t *testing.T) {
	svc, _, projects, _ := newTestLedger(0.05)
	projectID := seedProject(t, projects, 1000)

	txn, _ := svc.Create(context.Background(), ports.CreateTransactionInput{
		ProjectID: projectID, Amount: 200, Type: domain.TypeFee,
	})

	processed, err := svc.Process(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if processed.Status != domain.TxCompleted {
		t.Fatalf("expected completed, got %s", processed.Status)
	}
	if processed.Fee != 10 {
		t.Fatalf("expected fee 10, got %v", processed.Fee)
	}

	p, _ := projects.FindByID(context.Background(), projectID)
	if p.EscrowBalance != 990 {
		t.Fatalf("expected escrow 990, got %v", p.EscrowBalance)
	}
}

func TestTransactionService_ProcessPayout(t *testing.T) {
	svc, _, projects, gateway := newTestLedger(0.05)
	projectID := seedProject(t, projects, 1000)

	txn, _ := svc.Create(context.Background(), ports.CreateTransactionInput{
		ProjectID: projectID, ReceiverID: 7, Amount: 400, Type: domain.TypePayout,
	})

	processed, err := svc.Process(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if processed.Status != domain.TxCompleted {
		t.Fatalf("expected completed, got %s", processed.Status)
	}
	if gateway.callCount() != 1 {
		t.Fatalf("expected one gateway call, got %d", gateway.callCount())
	}

	p, _ := projects.FindByID(context.Background(), projectID)
	if p.EscrowBalance != 600 {
		t.Fatalf("expected escrow 600, got %v", p.EscrowBalance)
	}
}

func TestTransactionService_Payout_InsufficientFunds(t *testing.T) {
	svc, _, projects, gateway := newTestLedger(0.05)
	projectID := seedProject(t, projects, 100)

	txn, _ := svc.Create(context.Background(), ports.CreateTransactionInput{
		ProjectID: projectID, ReceiverID: 7, Amount: 400, Type: domain.TypePayout,
	})

	processed, err := svc.Process(context.Background(), txn.ID)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if processed.Status != domain.TxFailed {
		t.Fatalf("expected failed, got %s", processed.Status)
	}
	// Overdraw is rejected before the provider is contacted.
	if gateway.callCount() != 0 {
		t.Fatalf("gateway must not be called, got %d calls", gateway.callCount())
	}

	p, _ := projects.FindByID(context.Background(), projectID)
	if p.EscrowBalance != 100 {
		t.Fatalf("escrow must be untouched, got %v", p.EscrowBalance)
	}
}

func TestTransactionService_Payout_GatewayFailure(t *testing.T) {
	svc, txns, projects, gateway := newTestLedger(0.05)
	gateway.err = errors.New("provider unavailable")
	projectID := seedProject(t, projects, 1000)

	txn, _ := svc.Create(context.Background(), ports.CreateTransactionInput{
		ProjectID: projectID, ReceiverID: 7, Amount: 400, Type: domain.TypePayout,
	})

	_, err := svc.Process(context.Background(), txn.ID)
	if !errors.Is(err, domain.ErrPaymentProcessing) {
		t.Fatalf("expected ErrPaymentProcessing, got %v", err)
	}

	// Escrow is credited back and the row stays queryable as failed.
	p, _ := projects.FindByID(context.Background(), projectID)
	if p.EscrowBalance != 1000 {
		t.Fatalf("escrow not restored, got %v", p.EscrowBalance)
	}
	stored, _ := txns.FindByID(context.Background(), txn.ID)
	if stored.Status != domain.TxFailed {
		t.Fatalf("expected failed row, got %s", stored.Status)
	}
}

func TestTransactionService_Process_Twice(t *testing.T) {
	svc, _, projects, _ := newTestLedger(0.05)
	projectID := seedProject(t, projects, 0)

	txn, _ := svc.Create(context.Background(), ports.CreateTransactionInput{
		ProjectID: projectID, Amount: 100, Type: domain.TypeDeposit,
	})

	if _, err := svc.Process(context.Background(), txn.ID); err != nil {
		t.Fatalf("first process failed: %v", err)
	}
	if _, err := svc.Process(context.Background(), txn.ID); err != domain.ErrAlreadyProcessed {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}

	p, _ := projects.FindByID(context.Background(), projectID)
	if p.EscrowBalance != 100 {
		t.Fatalf("escrow applied more than once: %v", p.EscrowBalance)
	}
}

func TestTransactionService_Process_ConcurrentPayout(t *testing.T) {
	svc, txns, projects, gateway := newTestLedger(0.05)
	projectID := seedProject(t, projects, 1000)

	txn, _ := svc.Create(context.Background(), ports.CreateTransactionInput{
		ProjectID: projectID, ReceiverID: 7, Amount: 400, Type: domain.TypePayout,
	})

	// Both processors race for the same pending row. Exactly one may reach
	// the gateway; the other must lose the claim without touching escrow.
	const workers = 2
	start := make(chan struct{})
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Process(context.Background(), txn.ID)
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	succeeded, lost := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrAlreadyProcessed):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || lost != 1 {
		t.Fatalf("expected 1 success and 1 lost claim, got %d/%d", succeeded, lost)
	}

	if gateway.callCount() != 1 {
		t.Fatalf("receiver must be paid exactly once, got %d gateway calls", gateway.callCount())
	}
	p, _ := projects.FindByID(context.Background(), projectID)
	if p.EscrowBalance != 600 {
		t.Fatalf("escrow must be debited exactly once, got %v", p.EscrowBalance)
	}
	stored, _ := txns.FindByID(context.Background(), txn.ID)
	if stored.Status != domain.TxCompleted {
		t.Fatalf("expected completed row, got %s", stored.Status)
	}
}

func TestTransactionService_Process_ConcurrentDeposit(t *testing.T) {
	svc, _, projects, _ := newTestLedger(0.05)
	projectID := seedProject(t, projects, 0)

	txn, _ := svc.Create(context.Background(), ports.CreateTransactionInput{
		ProjectID: projectID, SenderID: 1, Amount: 100, Type: domain.TypeDeposit,
	})

	const workers = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _ = svc.Process(context.Background(), txn.ID)
		}()
	}
	close(start)
	wg.Wait()

	p, _ := projects.FindByID(context.Background(), projectID)
	if p.EscrowBalance != 100 {
		t.Fatalf("escrow credited more than once: %v", p.EscrowBalance)
	}
}

func TestTransactionService_Process_Unknown(t *testing.T) {
	svc, _, _, _ := newTestLedger(0.05)

	if _, err := svc.Process(context.Background(), "TXN-MISSING"); err != domain.ErrTransactionNotFound {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestTransactionService_List_Pagination(t *testing.T) {
	svc, _, projects, _ := newTestLedger(0.05)
	projectID := seedProject(t, projects, 0)

	for i := 0; i < 5; i++ {
		if _, err := svc.Create(context.Background(), ports.CreateTransactionInput{
			ProjectID: projectID, SenderID: 1, Amount: 10, Type: domain.TypeDeposit,
		}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	result, err := svc.List(context.Background(), ports.TransactionFilter{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if result.Total != 5 {
		t.Fatalf("expected total 5, got %d", result.Total)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", result.TotalPages)
	}

	// Out-of-range values are normalised rather than rejected.
	result, err = svc.List(context.Background(), ports.TransactionFilter{Page: -1, Limit: 1000})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if result.Page != 1 || result.Limit != maxListLimit {
		t.Fatalf("expected normalised page/limit, got %d/%d", result.Page, result.Limit)
	}
}
