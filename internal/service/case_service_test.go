package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"casetrack/internal/domain"
	"casetrack/internal/store"
	"casetrack/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServices(t *testing.T) (*CaseService, *UserService, *store.Store, *sinkRecorder) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	sink := &sinkRecorder{}
	return NewCaseService(st, sink, workflow.DefaultWorkloadLimit), NewUserService(st), st, sink
}

func adminActor(t *testing.T, st *store.Store) Actor {
	t.Helper()
	now := time.Now().UTC()
	usr := &domain.User{
		Email: uuid.New().String() + "@example.com", Name: "admin",
		Role: domain.RoleAdmin, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	if err := st.Users().Create(context.Background(), usr); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return Actor{ID: usr.ID, Role: domain.RoleAdmin}
}

func TestCreateCaseWritesAuditEntry(t *testing.T) {
	cases, _, st, sink := setupServices(t)
	ctx := context.Background()
	admin := adminActor(t, st)

	cs, err := cases.Create(ctx, admin, CreateCaseInput{Title: "  broken printer  ", Description: "floor 3"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cs.Title != "broken printer" {
		t.Fatalf("expected trimmed title, got %q", cs.Title)
	}
	if cs.Status != domain.StatusOpen || cs.Priority != domain.PriorityMedium {
		t.Fatalf("unexpected defaults %+v", cs)
	}

	entries, err := cases.Trail(ctx, cs.ID)
	if err != nil {
		t.Fatalf("trail: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "create" {
		t.Fatalf("expected one create entry, got %+v", entries)
	}
	if sink.len() != 1 {
		t.Fatalf("expected 1 event, got %d", sink.len())
	}
}

func TestCreateCaseValidation(t *testing.T) {
	cases, _, st, _ := setupServices(t)
	admin := adminActor(t, st)

	if _, err := cases.Create(context.Background(), admin, CreateCaseInput{Title: "   "}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("empty title: expected ErrInvalidRequest, got %v", err)
	}
	if _, err := cases.Create(context.Background(), admin, CreateCaseInput{Title: "x", Priority: "WHENEVER"}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("bad priority: expected ErrInvalidRequest, got %v", err)
	}
}

func TestUpdateDetailsPermissions(t *testing.T) {
	cases, users, st, _ := setupServices(t)
	ctx := context.Background()
	admin := adminActor(t, st)

	clerkUser, err := users.Create(ctx, admin, CreateUserInput{Email: "clerk@example.com", Name: "clerk", Role: domain.RoleClerk})
	if err != nil {
		t.Fatalf("create clerk: %v", err)
	}
	clerk := Actor{ID: clerkUser.ID, Role: domain.RoleClerk}

	cs, err := cases.Create(ctx, admin, CreateCaseInput{Title: "case"})
	if err != nil {
		t.Fatalf("create case: %v", err)
	}

	// A clerk who is neither creator nor assignee may not edit.
	title := "renamed"
	if _, err := cases.UpdateDetails(ctx, clerk, cs.ID, UpdateCaseInput{Title: &title}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	got, err := cases.UpdateDetails(ctx, admin, cs.ID, UpdateCaseInput{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "renamed" {
		t.Fatalf("expected renamed title, got %q", got.Title)
	}
	if got.Status != domain.StatusOpen {
		t.Fatal("detail edits must not touch status")
	}
}

func TestDeleteCascadesAudit(t *testing.T) {
	cases, users, st, _ := setupServices(t)
	ctx := context.Background()
	admin := adminActor(t, st)

	clerkUser, err := users.Create(ctx, admin, CreateUserInput{Email: "clerk@example.com", Name: "clerk", Role: domain.RoleClerk})
	if err != nil {
		t.Fatalf("create clerk: %v", err)
	}
	clerk := Actor{ID: clerkUser.ID, Role: domain.RoleClerk}

	cs, err := cases.Create(ctx, admin, CreateCaseInput{Title: "to delete"})
	if err != nil {
		t.Fatalf("create case: %v", err)
	}

	// Neither admin nor creator → denied.
	if err := cases.Delete(ctx, clerk, cs.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if err := cases.Delete(ctx, admin, cs.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := cases.Get(ctx, cs.ID); !errors.Is(err, domain.ErrCaseNotFound) {
		t.Fatalf("expected ErrCaseNotFound, got %v", err)
	}
	entries, err := st.Audit().ListByCase(ctx, cs.ID)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected audit trail gone, got %d entries", len(entries))
	}
}

func TestWorkloadReportsActiveCount(t *testing.T) {
	cases, users, st, _ := setupServices(t)
	ctx := context.Background()
	admin := adminActor(t, st)

	worker, err := users.Create(ctx, admin, CreateUserInput{Email: "worker@example.com", Name: "w", Role: domain.RoleCaseworker})
	if err != nil {
		t.Fatalf("create worker: %v", err)
	}

	now := time.Now().UTC()
	for i, status := range []domain.CaseStatus{domain.StatusPendingAcceptance, domain.StatusInProgress, domain.StatusCompleted} {
		cs := &domain.Case{
			Title: fmt.Sprintf("case %d", i), Status: status, Priority: domain.PriorityLow,
			CreatorID: admin.ID, AssigneeID: &worker.ID, CreatedAt: now, UpdatedAt: now,
		}
		if status == domain.StatusCompleted {
			cs.AssigneeID = nil
		}
		if err := st.Cases().Create(ctx, cs); err != nil {
			t.Fatalf("seed case: %v", err)
		}
	}

	wl, err := cases.Workload(ctx, worker.ID)
	if err != nil {
		t.Fatalf("workload: %v", err)
	}
	if wl.Active != 2 || wl.Limit != workflow.DefaultWorkloadLimit {
		t.Fatalf("expected 2/%d, got %d/%d", workflow.DefaultWorkloadLimit, wl.Active, wl.Limit)
	}

	if _, err := cases.Workload(ctx, uuid.New()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserServiceGating(t *testing.T) {
	_, users, st, _ := setupServices(t)
	ctx := context.Background()
	admin := adminActor(t, st)

	worker, err := users.Create(ctx, admin, CreateUserInput{Email: "Worker@Example.com", Name: "w", Role: domain.RoleCaseworker})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if worker.Email != "worker@example.com" {
		t.Fatalf("expected lowercased email, got %q", worker.Email)
	}

	nonAdmin := Actor{ID: worker.ID, Role: domain.RoleCaseworker}
	if _, err := users.Create(ctx, nonAdmin, CreateUserInput{Email: "x@example.com", Role: domain.RoleClerk}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := users.SetActive(ctx, nonAdmin, worker.ID, false); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	got, err := users.SetActive(ctx, admin, worker.ID, false)
	if err != nil {
		t.Fatalf("set active: %v", err)
	}
	if got.IsActive {
		t.Fatal("expected user disabled")
	}
}
