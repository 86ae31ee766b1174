package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/roomie/internal/metrics"
	"github.com/mmeshcher/roomie/internal/model"
	"github.com/mmeshcher/roomie/internal/repository"
)

var (
	alice  = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	bob    = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	carol  = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	dave   = uuid.MustParse("00000000-0000-0000-0000-00000000000d")
	eve    = uuid.MustParse("00000000-0000-0000-0000-00000000000e")
	flatID = uuid.MustParse("00000000-0000-0000-0000-0000000000f1")

	fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
)

func newTestService(repo *stubRepo, sender *stubSender) *Service {
	svc := NewService(repo, sender, metrics.New(), zap.NewNop(), Options{
		ClientURL: "http://app.test",
		InviteTTL: 48 * time.Hour,
	})
	svc.now = func() time.Time { return fixedNow }
	return svc
}

// fourMemberFlat собирает квартиру, в которой балансы равны A=75, B=5, C=-40, D=-40.
func fourMemberFlat() *stubRepo {
	repo := newStubRepo()
	repo.addUser(alice, "alice@example.com", "Alice")
	repo.addUser(bob, "bob@example.com", "Bob")
	repo.addUser(carol, "carol@example.com", "Carol")
	repo.addUser(dave, "dave@example.com", "Dave")
	repo.addFlat(flatID, alice, bob, carol, dave)

	all := []uuid.UUID{alice, bob, carol, dave}
	repo.expenses = []model.Expense{
		{ID: uuid.New(), FlatID: flatID, Title: "groceries", Amount: dec("120"), PaidBy: alice, SplitBetween: all,
			Category: model.CategoryFood, Date: fixedNow.AddDate(0, 0, -1), CreatedBy: alice},
		{ID: uuid.New(), FlatID: flatID, Title: "internet", Amount: dec("40"), PaidBy: bob, SplitBetween: all,
			Category: model.CategoryBills, Date: fixedNow.AddDate(0, 0, -2), CreatedBy: bob},
		{ID: uuid.New(), FlatID: flatID, Title: "coffee", Amount: dec("5"), PaidBy: bob, SplitBetween: []uuid.UUID{alice},
			Category: model.CategoryFood, Date: fixedNow.AddDate(0, -1, 0), CreatedBy: bob},
	}
	return repo
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func TestRegisterUser_Validation(t *testing.T) {
	svc := newTestService(newStubRepo(), &stubSender{})

	tests := []struct {
		name     string
		email    string
		password string
		userName string
	}{
		{name: "missing name", email: "a@example.com", password: "Passw0rd", userName: " "},
		{name: "bad email", email: "not-an-email", password: "Passw0rd", userName: "A"},
		{name: "weak password", email: "a@example.com", password: "password", userName: "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterUser(context.Background(), tt.email, tt.password, tt.userName)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
}

func TestRegisterUser_PropagatesDuplicateError(t *testing.T) {
	repo := newStubRepo()
	repo.createUserErr = repository.ErrUserExists
	svc := newTestService(repo, &stubSender{})

	_, err := svc.RegisterUser(context.Background(), "user@example.com", "Passw0rd", "User")
	require.ErrorIs(t, err, repository.ErrUserExists)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &stubSender{})

	u, err := svc.RegisterUser(context.Background(), "  User@Example.com ", "Passw0rd", " User ")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", u.Email)
	assert.Equal(t, "User", u.Name)
	assert.NotEqual(t, "Passw0rd", string(u.PasswordHash))
	assert.Equal(t, []string{"user@example.com"}, repo.acceptedFor)

	got, err := svc.AuthenticateUser(context.Background(), "USER@example.com", "Passw0rd")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.AuthenticateUser(context.Background(), "user@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.AuthenticateUser(context.Background(), "nobody@example.com", "Passw0rd")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateFlat(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &stubSender{})

	_, err := svc.CreateFlat(context.Background(), alice, "  ", "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	f, err := svc.CreateFlat(context.Background(), alice, " Home ", " cozy ")
	require.NoError(t, err)
	assert.Equal(t, "Home", f.Name)
	assert.Equal(t, "cozy", f.Description)
	assert.Equal(t, []uuid.UUID{alice}, f.MemberIDs)
}

func TestFlatAccess(t *testing.T) {
	repo := fourMemberFlat()
	repo.addUser(eve, "eve@example.com", "Eve")
	svc := newTestService(repo, &stubSender{})
	ctx := context.Background()

	_, err := svc.GetFlat(ctx, eve, flatID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetFlat(ctx, alice, uuid.New())
	require.ErrorIs(t, err, repository.ErrFlatNotFound)

	details, err := svc.GetFlat(ctx, bob, flatID)
	require.NoError(t, err)
	assert.Len(t, details.Members, 4)
}

func TestAddAndRemoveMember(t *testing.T) {
	repo := fourMemberFlat()
	repo.addUser(eve, "eve@example.com", "Eve")
	svc := newTestService(repo, &stubSender{})
	ctx := context.Background()

	_, err := svc.AddMember(ctx, bob, flatID, "eve@example.com")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.AddMember(ctx, alice, flatID, "ghost@example.com")
	require.ErrorIs(t, err, repository.ErrUserNotFound)

	details, err := svc.AddMember(ctx, alice, flatID, " EVE@example.com")
	require.NoError(t, err)
	assert.True(t, details.HasMember(eve))

	_, err = svc.AddMember(ctx, alice, flatID, "eve@example.com")
	require.ErrorIs(t, err, repository.ErrAlreadyMember)

	_, err = svc.RemoveMember(ctx, alice, flatID, alice)
	require.ErrorIs(t, err, ErrOwnerRemoval)

	details, err = svc.RemoveMember(ctx, alice, flatID, eve)
	require.NoError(t, err)
	assert.False(t, details.HasMember(eve))
}

func TestCreateExpense(t *testing.T) {
	repo := fourMemberFlat()
	repo.addUser(eve, "eve@example.com", "Eve")
	svc := newTestService(repo, &stubSender{})
	ctx := context.Background()

	t.Run("empty split defaults to all members", func(t *testing.T) {
		e, err := svc.CreateExpense(ctx, bob, flatID, ExpenseInput{Title: "rent", Amount: dec("900"), PaidBy: alice})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{alice, bob, carol, dave}, e.SplitBetween)
		assert.Equal(t, model.CategoryGeneral, e.Category)
		assert.Equal(t, fixedNow, e.Date)
		assert.Equal(t, bob, e.CreatedBy)
		assert.Equal(t, "Alice", e.Payer.Name)
		assert.Len(t, e.Participants, 4)
	})

	invalid := []struct {
		name string
		in   ExpenseInput
	}{
		{name: "zero amount", in: ExpenseInput{Title: "x", Amount: decimal.Zero, PaidBy: alice}},
		{name: "fractional cents", in: ExpenseInput{Title: "x", Amount: dec("1.005"), PaidBy: alice}},
		{name: "amount beyond storable cents", in: ExpenseInput{Title: "x", Amount: dec("1e20"), PaidBy: alice}},
		{name: "missing title", in: ExpenseInput{Amount: dec("10"), PaidBy: alice}},
		{name: "payer not a member", in: ExpenseInput{Title: "x", Amount: dec("10"), PaidBy: eve}},
		{name: "participant not a member", in: ExpenseInput{Title: "x", Amount: dec("10"), PaidBy: alice, SplitBetween: []uuid.UUID{alice, eve}}},
		{name: "unknown category", in: ExpenseInput{Title: "x", Amount: dec("10"), PaidBy: alice, Category: "yachts"}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateExpense(ctx, alice, flatID, tt.in)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}

	_, err := svc.CreateExpense(ctx, eve, flatID, ExpenseInput{Title: "x", Amount: dec("10"), PaidBy: alice})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateAndDeleteExpense_CreatorOnly(t *testing.T) {
	repo := fourMemberFlat()
	svc := newTestService(repo, &stubSender{})
	ctx := context.Background()
	expenseID := repo.expenses[0].ID

	title := "big groceries"
	_, err := svc.UpdateExpense(ctx, bob, expenseID, ExpenseUpdate{Title: &title})
	require.ErrorIs(t, err, ErrForbidden)

	empty := []uuid.UUID{}
	_, err = svc.UpdateExpense(ctx, alice, expenseID, ExpenseUpdate{SplitBetween: &empty})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	huge := dec("100000000000000000")
	_, err = svc.UpdateExpense(ctx, alice, expenseID, ExpenseUpdate{Amount: &huge})
	require.ErrorAs(t, err, &vErr)

	amount := dec("0")
	updated, err := svc.UpdateExpense(ctx, alice, expenseID, ExpenseUpdate{Title: &title, Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assertDecimal(t, "0", updated.Amount)

	require.ErrorIs(t, svc.DeleteExpense(ctx, bob, expenseID), ErrForbidden)
	require.NoError(t, svc.DeleteExpense(ctx, alice, expenseID))
	require.ErrorIs(t, svc.DeleteExpense(ctx, alice, expenseID), repository.ErrExpenseNotFound)
}

func TestTasks(t *testing.T) {
	repo := fourMemberFlat()
	repo.addUser(eve, "eve@example.com", "Eve")
	svc := newTestService(repo, &stubSender{})
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, alice, flatID, TaskInput{Title: "trash", AssignedTo: &eve})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	_, err = svc.CreateTask(ctx, alice, flatID, TaskInput{Title: "trash", Status: "todo"})
	require.ErrorAs(t, err, &vErr)

	task, err := svc.CreateTask(ctx, alice, flatID, TaskInput{Title: " trash ", AssignedTo: &bob})
	require.NoError(t, err)
	assert.Equal(t, "trash", task.Title)
	assert.Equal(t, model.TaskStatusPending, task.Status)
	require.NotNil(t, task.Assignee)
	assert.Equal(t, "Bob", task.Assignee.Name)

	done := model.TaskStatusDone
	updated, err := svc.UpdateTask(ctx, carol, task.ID, TaskUpdate{Status: &done, ClearAssignee: true})
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusDone, updated.Status)
	assert.Nil(t, updated.AssignedTo)

	_, err = svc.UpdateTask(ctx, eve, task.ID, TaskUpdate{Status: &done})
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.DeleteTask(ctx, dave, task.ID))
	require.ErrorIs(t, svc.DeleteTask(ctx, dave, task.ID), repository.ErrTaskNotFound)
}

func TestFlatBalance(t *testing.T) {
	svc := newTestService(fourMemberFlat(), &stubSender{})

	b, err := svc.FlatBalance(context.Background(), carol, flatID)
	require.NoError(t, err)

	require.Len(t, b.Totals, 4)
	wantOrder := []uuid.UUID{alice, bob, carol, dave}
	wantNet := []string{"75", "5", "-40", "-40"}
	for i, tot := range b.Totals {
		assert.Equal(t, wantOrder[i], tot.User.ID)
		assertDecimal(t, wantNet[i], tot.Net)
		assert.False(t, tot.NonMember)
	}

	require.Len(t, b.Settlements, 3)
	assert.Equal(t, carol, b.Settlements[0].From.ID)
	assert.Equal(t, alice, b.Settlements[0].To.ID)
	assertDecimal(t, "40", b.Settlements[0].Amount)
	assert.Equal(t, dave, b.Settlements[1].From.ID)
	assert.Equal(t, alice, b.Settlements[1].To.ID)
	assertDecimal(t, "35", b.Settlements[1].Amount)
	assert.Equal(t, dave, b.Settlements[2].From.ID)
	assert.Equal(t, bob, b.Settlements[2].To.ID)
	assertDecimal(t, "5", b.Settlements[2].Amount)
	assert.Equal(t, "dave@example.com", b.Settlements[2].From.Email)
}

func TestFlatBalance_FormerMember(t *testing.T) {
	repo := fourMemberFlat()
	svc := newTestService(repo, &stubSender{})

	_, err := svc.RemoveMember(context.Background(), alice, flatID, carol)
	require.NoError(t, err)

	b, err := svc.FlatBalance(context.Background(), alice, flatID)
	require.NoError(t, err)
	require.Len(t, b.Totals, 4)

	for _, tot := range b.Totals {
		assert.Equal(t, tot.User.ID == carol, tot.NonMember, "user %s", tot.User.ID)
	}
}

func TestMyBalance(t *testing.T) {
	svc := newTestService(fourMemberFlat(), &stubSender{})

	b, err := svc.MyBalance(context.Background(), dave, flatID)
	require.NoError(t, err)

	assert.Equal(t, dave, b.Me.User.ID)
	assertDecimal(t, "-40", b.Me.Net)
	assert.Len(t, b.PerUser, 4)

	require.Len(t, b.SettlementsForUser, 1)
	assert.Equal(t, dave, b.SettlementsForUser[0].From.ID)
	assert.Equal(t, alice, b.SettlementsForUser[0].To.ID)
	assertDecimal(t, "40", b.SettlementsForUser[0].Amount)

	b, err = svc.MyBalance(context.Background(), bob, flatID)
	require.NoError(t, err)
	require.Len(t, b.SettlementsForUser, 1)
	assert.Equal(t, carol, b.SettlementsForUser[0].From.ID)
	assert.Equal(t, bob, b.SettlementsForUser[0].To.ID)
	assertDecimal(t, "5", b.SettlementsForUser[0].Amount)
}

func TestBalance_WarningsAreCounted(t *testing.T) {
	repo := fourMemberFlat()
	repo.expenses = append(repo.expenses, model.Expense{
		ID: uuid.New(), FlatID: flatID, Title: "legacy", Amount: dec("10"), PaidBy: alice, Date: fixedNow, CreatedBy: alice,
	})
	svc := newTestService(repo, &stubSender{})

	b, err := svc.FlatBalance(context.Background(), alice, flatID)
	require.NoError(t, err)
	assertDecimal(t, "75", b.Totals[0].Net)
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.BalanceWarnings.WithLabelValues("empty_split")))
}

func TestDashboard(t *testing.T) {
	repo := fourMemberFlat()
	repo.tasks[uuid.New()] = &model.Task{FlatID: flatID, Title: "a", Status: model.TaskStatusPending}
	repo.tasks[uuid.New()] = &model.Task{FlatID: flatID, Title: "b", Status: model.TaskStatusDoing}
	repo.tasks[uuid.New()] = &model.Task{FlatID: flatID, Title: "c", Status: model.TaskStatusDone}
	svc := newTestService(repo, &stubSender{})

	d, err := svc.Dashboard(context.Background(), bob, flatID)
	require.NoError(t, err)

	assert.Equal(t, 4, d.MembersCount)
	assert.Equal(t, 2, d.PendingTasksCount)
	assert.Equal(t, "March 2026", d.MonthLabel)
	assertDecimal(t, "160", d.MonthTotal)
	assert.Len(t, d.RecentExpenses, 3)
	assert.Equal(t, "groceries", d.RecentExpenses[0].Title)

	require.Len(t, d.ByCategory, 2)
	assert.Equal(t, model.CategoryFood, d.ByCategory[0].Name)
	assertDecimal(t, "120", d.ByCategory[0].Total)
	assert.Equal(t, model.CategoryBills, d.ByCategory[1].Name)

	require.Len(t, d.ByUser, 4)
	assert.Equal(t, alice, d.ByUser[0].User.ID)
	assertDecimal(t, "75", d.ByUser[0].Net)
}

func inviteToken(t *testing.T, sender *stubSender) string {
	t.Helper()
	require.NotEmpty(t, sender.sent)
	text := sender.sent[len(sender.sent)-1].Text
	_, after, ok := strings.Cut(text, "http://app.test/invite/")
	require.True(t, ok, "link not found in %q", text)
	return strings.Fields(after)[0]
}

func TestCreateInvitation(t *testing.T) {
	repo := fourMemberFlat()
	sender := &stubSender{}
	svc := newTestService(repo, sender)
	ctx := context.Background()

	_, err := svc.CreateInvitation(ctx, bob, flatID, "eve@example.com")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CreateInvitation(ctx, alice, flatID, "BOB@example.com")
	require.ErrorIs(t, err, repository.ErrAlreadyMember)

	first, err := svc.CreateInvitation(ctx, alice, flatID, "Eve@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", first.MessageID)
	assert.Equal(t, fixedNow.Add(48*time.Hour), first.ExpiresAt)

	token := inviteToken(t, sender)
	assert.Len(t, token, 64)
	assert.Equal(t, "eve@example.com", sender.sent[0].To)

	stored := repo.invitations[first.InvitationID]
	assert.Equal(t, hashToken(token), stored.TokenHash)
	assert.NotEqual(t, token, stored.TokenHash)

	second, err := svc.CreateInvitation(ctx, alice, flatID, "eve@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.InvitationStatusRevoked, repo.invitations[first.InvitationID].Status)
	assert.Equal(t, model.InvitationStatusPending, repo.invitations[second.InvitationID].Status)

	pending, err := svc.ListInvitations(ctx, alice, flatID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(svc.metrics.InvitationsSent))
}

func TestCreateInvitation_MailFailure(t *testing.T) {
	sender := &stubSender{err: errors.New("relay down")}
	svc := newTestService(fourMemberFlat(), sender)

	_, err := svc.CreateInvitation(context.Background(), alice, flatID, "eve@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay down")
}

func TestAcceptInvitation(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*stubRepo, *Service, string) {
		repo := fourMemberFlat()
		repo.addUser(eve, "eve@example.com", "Eve")
		sender := &stubSender{}
		svc := newTestService(repo, sender)
		_, err := svc.CreateInvitation(ctx, alice, flatID, "eve@example.com")
		require.NoError(t, err)
		return repo, svc, inviteToken(t, sender)
	}

	t.Run("success", func(t *testing.T) {
		repo, svc, token := setup(t)

		got, err := svc.AcceptInvitation(ctx, eve, "EVE@example.com", token)
		require.NoError(t, err)
		assert.Equal(t, flatID, got)
		assert.True(t, repo.flats[flatID].HasMember(eve))

		_, err = svc.AcceptInvitation(ctx, eve, "eve@example.com", token)
		require.ErrorIs(t, err, ErrInvitationNotPending)
	})

	t.Run("email mismatch", func(t *testing.T) {
		repo, svc, token := setup(t)

		_, err := svc.AcceptInvitation(ctx, bob, "bob@example.com", token)
		require.ErrorIs(t, err, ErrEmailMismatch)
		assert.Len(t, repo.flats[flatID].MemberIDs, 4)
	})

	t.Run("expired", func(t *testing.T) {
		repo, svc, token := setup(t)
		svc.now = func() time.Time { return fixedNow.Add(49 * time.Hour) }

		_, err := svc.AcceptInvitation(ctx, eve, "eve@example.com", token)
		require.ErrorIs(t, err, ErrInvitationExpired)
		assert.Equal(t, 1, repo.expireCalls)
		assert.False(t, repo.flats[flatID].HasMember(eve))
	})

	t.Run("unknown token", func(t *testing.T) {
		_, svc, _ := setup(t)

		_, err := svc.AcceptInvitation(ctx, eve, "eve@example.com", "deadbeef")
		require.ErrorIs(t, err, repository.ErrInvitationNotFound)
	})
}

func TestRegisterUser_AcceptsPendingInvitations(t *testing.T) {
	repo := fourMemberFlat()
	sender := &stubSender{}
	svc := newTestService(repo, sender)
	ctx := context.Background()

	_, err := svc.CreateInvitation(ctx, alice, flatID, "eve@example.com")
	require.NoError(t, err)

	u, err := svc.RegisterUser(ctx, "Eve@example.com", "Passw0rd", "Eve")
	require.NoError(t, err)
	assert.True(t, repo.flats[flatID].HasMember(u.ID))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.InvitationsAccepted))
}

func TestRevokeInvitation(t *testing.T) {
	repo := fourMemberFlat()
	sender := &stubSender{}
	svc := newTestService(repo, sender)
	ctx := context.Background()

	receipt, err := svc.CreateInvitation(ctx, alice, flatID, "eve@example.com")
	require.NoError(t, err)

	require.ErrorIs(t, svc.RevokeInvitation(ctx, bob, receipt.InvitationID), ErrForbidden)
	require.NoError(t, svc.RevokeInvitation(ctx, alice, receipt.InvitationID))
	require.ErrorIs(t, svc.RevokeInvitation(ctx, alice, receipt.InvitationID), ErrInvitationNotPending)
}

func TestRunInvitationSweeper(t *testing.T) {
	repo := fourMemberFlat()
	invID := uuid.New()
	repo.invitations[invID] = &model.Invitation{
		ID:        invID,
		FlatID:    flatID,
		Email:     "eve@example.com",
		Status:    model.InvitationStatusPending,
		ExpiresAt: fixedNow.Add(-time.Minute),
	}
	svc := newTestService(repo, &stubSender{})

	svc.sweepInvitations(context.Background())

	assert.Equal(t, model.InvitationStatusExpired, repo.invitations[invID].Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.InvitationsExpired))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, svc.RunInvitationSweeper(ctx, time.Hour))
}
