package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"bookhive/pkg/auth"
	"bookhive/pkg/domain"
	"bookhive/pkg/payment"
	"bookhive/pkg/store"
)

type sentMail struct {
	Recipient string
	Subject   string
	Body      string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) SendPlainText(_ context.Context, recipient, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

type otpRecord struct {
	code      string
	expiresAt time.Time
}

// fakeOTPLedger mirrors the redis ledger's contract in memory.
type fakeOTPLedger struct {
	mu     sync.Mutex
	codes  map[string]otpRecord
	next   int
	now    func() time.Time
	issued []string
}

func newFakeOTPLedger() *fakeOTPLedger {
	return &fakeOTPLedger{
		codes: make(map[string]otpRecord),
		next:  1000,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (l *fakeOTPLedger) Issue(_ context.Context, subjectID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	code := fmt.Sprintf("%04d", l.next)
	l.next++
	l.codes[subjectID] = otpRecord{code: code, expiresAt: l.now().Add(10 * time.Minute)}
	l.issued = append(l.issued, code)
	return code, nil
}

func (l *fakeOTPLedger) Consume(_ context.Context, subjectID, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.codes[subjectID]
	if !ok {
		return store.ErrOTPNotFound
	}
	if l.now().After(rec.expiresAt) {
		delete(l.codes, subjectID)
		return store.ErrOTPExpired
	}
	if rec.code != code {
		return store.ErrOTPInvalid
	}
	delete(l.codes, subjectID)
	return nil
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.test/presigned/" + key, nil
}

func (f *fakeObjects) PublicURL(key string) string {
	return "https://objects.test/public/" + key
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

type fakeGateway struct {
	failAuth bool
	orders   []string
}

func (g *fakeGateway) AuthToken(_ context.Context) (string, error) {
	if g.failAuth {
		return "", errors.New("gateway down")
	}
	return "auth-token", nil
}

func (g *fakeGateway) CreateOrder(_ context.Context, _, merchantOrderID string, _ int64) (int64, error) {
	g.orders = append(g.orders, merchantOrderID)
	return 777, nil
}

func (g *fakeGateway) PaymentKey(_ context.Context, _ string, _, _ int64, _ payment.BillingProfile, _ map[string]string) (string, error) {
	return "payment-key", nil
}

func (g *fakeGateway) IframeURL(paymentKey string) string {
	return "https://gateway.test/iframes/1?payment_token=" + paymentKey
}

type testEnv struct {
	app     *App
	store   *store.MemoryStore
	mailer  *fakeMailer
	ledger  *fakeOTPLedger
	gateway *fakeGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := store.NewMemoryStore()
	mailer := &fakeMailer{}
	ledger := newFakeOTPLedger()
	gateway := &fakeGateway{}
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	a, err := New(Config{
		Store:   mem,
		OTPs:    ledger,
		Objects: newFakeObjects(),
		Mailer:  mailer,
		Gateway: gateway,
		Tokens:  tokens,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testEnv{app: a, store: mem, mailer: mailer, ledger: ledger, gateway: gateway}
}

func (e *testEnv) registerVerified(t *testing.T, name, email, password string) domain.User {
	t.Helper()
	ctx := context.Background()
	pending, err := e.app.Register(ctx, RegisterInput{Name: name, Email: email, Password: password})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	code := e.ledger.issued[len(e.ledger.issued)-1]
	user, err := e.app.VerifyOTP(ctx, pending.UserID, code)
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	return user
}

func (e *testEnv) makeAdmin(t *testing.T, user domain.User) domain.User {
	t.Helper()
	user.Role = domain.RoleAdmin
	if err := e.store.SaveUser(user); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	return user
}

func (e *testEnv) createBook(t *testing.T, name string) domain.Book {
	t.Helper()
	book, err := e.app.CreateBook(BookInput{Name: &name})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	return book
}

func TestRegisterStagesPendingAndSendsOneCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending, err := env.app.Register(ctx, RegisterInput{Name: "Alaa Samir", Email: "alaa@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, ok, _ := env.store.GetUserByEmail("alaa@example.com"); ok {
		t.Fatal("user must not exist before verification")
	}
	if _, ok, _ := env.store.GetPendingByID(pending.UserID); !ok {
		t.Fatal("expected a staged registration")
	}
	if len(env.ledger.issued) != 1 {
		t.Fatalf("expected exactly one code issued, got %d", len(env.ledger.issued))
	}
	if len(env.mailer.sent) != 1 {
		t.Fatalf("expected exactly one mail, got %d", len(env.mailer.sent))
	}
	mailSent := env.mailer.sent[0]
	if mailSent.Recipient != "alaa@example.com" {
		t.Fatalf("mail recipient = %q", mailSent.Recipient)
	}
	if !strings.Contains(mailSent.Body, env.ledger.issued[0]) {
		t.Fatalf("mail body %q does not carry the code", mailSent.Body)
	}
}

func TestRegisterRejectsExistingEmail(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "Alaa", "alaa@example.com", "secret1")

	_, err := env.app.Register(context.Background(), RegisterInput{Name: "Other", Email: "alaa@example.com", Password: "secret2"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestVerifyOTPPromotesWithoutResidue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending, err := env.app.Register(ctx, RegisterInput{Name: "Alaa", Email: "alaa@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	user, err := env.app.VerifyOTP(ctx, pending.UserID, env.ledger.issued[0])
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if !user.Verified {
		t.Fatal("promoted user must be verified")
	}
	if _, ok, _ := env.store.GetPendingByID(pending.UserID); ok {
		t.Fatal("pending record must be removed on promotion")
	}
	if _, err := env.app.VerifyOTP(ctx, pending.UserID, env.ledger.issued[0]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on replay, got %v", err)
	}
}

func TestVerifyOTPExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending, err := env.app.Register(ctx, RegisterInput{Name: "Alaa", Email: "alaa@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	env.ledger.now = func() time.Time { return time.Now().UTC().Add(11 * time.Minute) }
	if _, err := env.app.VerifyOTP(ctx, pending.UserID, env.ledger.issued[0]); !errors.Is(err, store.ErrOTPExpired) {
		t.Fatalf("expected ErrOTPExpired, got %v", err)
	}
	// the expired challenge was cleaned up
	if _, err := env.app.VerifyOTP(ctx, pending.UserID, env.ledger.issued[0]); !errors.Is(err, store.ErrOTPNotFound) {
		t.Fatalf("expected ErrOTPNotFound after cleanup, got %v", err)
	}
}

func TestResendOTPSupersedes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending, err := env.app.Register(ctx, RegisterInput{Name: "Alaa", Email: "alaa@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := env.app.ResendOTP(ctx, pending.UserID, pending.Email); err != nil {
		t.Fatalf("ResendOTP: %v", err)
	}
	if _, err := env.app.ResendOTP(ctx, pending.UserID, "other@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for mismatched email, got %v", err)
	}
	oldCode, newCode := env.ledger.issued[0], env.ledger.issued[1]
	if _, err := env.app.VerifyOTP(ctx, pending.UserID, oldCode); !errors.Is(err, store.ErrOTPInvalid) {
		t.Fatalf("expected old code rejected, got %v", err)
	}
	if _, err := env.app.VerifyOTP(ctx, pending.UserID, newCode); err != nil {
		t.Fatalf("VerifyOTP with new code: %v", err)
	}
}

func TestResetPasswordRejectsSamePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "Alaa", "alaa@example.com", "secret1")

	if _, err := env.app.SendResetOTP(ctx, "alaa@example.com"); err != nil {
		t.Fatalf("SendResetOTP: %v", err)
	}
	code := env.ledger.issued[len(env.ledger.issued)-1]
	if err := env.app.ResetPassword(ctx, "alaa@example.com", code, "secret1"); !errors.Is(err, ErrSamePassword) {
		t.Fatalf("expected ErrSamePassword, got %v", err)
	}
	if err := env.app.ResetPassword(ctx, "alaa@example.com", code, "fresh-password"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := env.app.Login("alaa@example.com", "fresh-password"); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}
	if _, err := env.app.Login("alaa@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
}

func TestAdminLoginRequiresAdminRole(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerVerified(t, "Alaa", "alaa@example.com", "secret1")

	if _, err := env.app.AdminLogin("alaa@example.com", "secret1"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for non-admin, got %v", err)
	}
	env.makeAdmin(t, user)
	if _, err := env.app.AdminLogin("alaa@example.com", "secret1"); err != nil {
		t.Fatalf("AdminLogin: %v", err)
	}
}

func TestUpdateUserRoleAdminGated(t *testing.T) {
	env := newTestEnv(t)
	admin := env.makeAdmin(t, env.registerVerified(t, "Root", "root@example.com", "secret1"))
	user := env.registerVerified(t, "Alaa", "alaa@example.com", "secret1")

	role := "admin"
	if _, err := env.app.UpdateUser(user, user.ID, UserInput{Role: &role}); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for self-promotion, got %v", err)
	}
	bogus := "superuser"
	if _, err := env.app.UpdateUser(admin, user.ID, UserInput{Role: &bogus}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown role, got %v", err)
	}
	updated, err := env.app.UpdateUser(admin, user.ID, UserInput{Role: &role})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %q", updated.Role)
	}
	if _, err := env.app.AdminLogin("alaa@example.com", "secret1"); err != nil {
		t.Fatalf("AdminLogin after promotion: %v", err)
	}
}

func TestRatingRecompute(t *testing.T) {
	env := newTestEnv(t)
	book := env.createBook(t, "Dune")

	if _, err := env.app.RateBook("u1", book.ID, 5); err != nil {
		t.Fatalf("RateBook u1: %v", err)
	}
	if _, err := env.app.RateBook("u2", book.ID, 3); err != nil {
		t.Fatalf("RateBook u2: %v", err)
	}
	updated, err := env.app.RateBook("u3", book.ID, 4)
	if err != nil {
		t.Fatalf("RateBook u3: %v", err)
	}
	if updated.AverageRating != 4.0 || updated.RatingCount != 3 {
		t.Fatalf("after three ratings got avg=%v count=%d, want 4.0/3", updated.AverageRating, updated.RatingCount)
	}

	updated, err = env.app.DeleteRating("u2", book.ID)
	if err != nil {
		t.Fatalf("DeleteRating: %v", err)
	}
	if updated.AverageRating != 4.5 || updated.RatingCount != 2 {
		t.Fatalf("after delete got avg=%v count=%d, want 4.5/2", updated.AverageRating, updated.RatingCount)
	}
}

func TestRatingZeroResetWhenEmpty(t *testing.T) {
	env := newTestEnv(t)
	book := env.createBook(t, "Dune")

	if _, err := env.app.RateBook("u1", book.ID, 2); err != nil {
		t.Fatalf("RateBook: %v", err)
	}
	updated, err := env.app.DeleteRating("u1", book.ID)
	if err != nil {
		t.Fatalf("DeleteRating: %v", err)
	}
	if updated.AverageRating != 0 || updated.RatingCount != 0 {
		t.Fatalf("got avg=%v count=%d, want zero reset", updated.AverageRating, updated.RatingCount)
	}
}

func TestWebhookGrantsSubscription(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerVerified(t, "Alaa", "alaa@example.com", "secret1")

	var n Notification
	n.Type = "TRANSACTION"
	n.Obj.ID = 9001
	n.Obj.Success = true
	n.Obj.Order.MerchantOrderID = user.ID + "-monthly"
	if err := env.app.HandleGatewayNotification(n); err != nil {
		t.Fatalf("HandleGatewayNotification: %v", err)
	}
	sub, ok, err := env.store.GetSubscriptionByUser(user.ID)
	if err != nil || !ok {
		t.Fatalf("subscription missing after webhook: ok=%v err=%v", ok, err)
	}
	if sub.Status != domain.StatusPremium || !sub.IsActive || sub.PlanType != domain.PlanMonthly {
		t.Fatalf("unexpected subscription %+v", sub)
	}
	if sub.EndDate == nil || !sub.EndDate.After(time.Now().UTC().AddDate(0, 0, 27)) {
		t.Fatalf("end date not about a month out: %v", sub.EndDate)
	}
}

func TestWebhookDuplicateDeliveryInsertsOnce(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerVerified(t, "Alaa", "alaa@example.com", "secret1")
	book := env.createBook(t, "Dune")

	var n Notification
	n.Type = "TRANSACTION"
	n.Obj.ID = 5555
	n.Obj.Success = true
	n.Obj.Order.MerchantOrderID = user.ID + "-" + book.ID
	if err := env.app.HandleGatewayNotification(n); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := env.app.HandleGatewayNotification(n); !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected ErrDuplicateTransaction on redelivery, got %v", err)
	}
	purchases, err := env.app.ListPurchases(user.ID)
	if err != nil {
		t.Fatalf("ListPurchases: %v", err)
	}
	if len(purchases) != 1 {
		t.Fatalf("expected exactly one purchase, got %d", len(purchases))
	}
}

func TestWebhookRejectsNonTransaction(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerVerified(t, "Alaa", "alaa@example.com", "secret1")

	var n Notification
	n.Type = "TOKEN"
	n.Obj.Success = true
	n.Obj.Order.MerchantOrderID = user.ID + "-monthly"
	if err := env.app.HandleGatewayNotification(n); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for non-transaction event, got %v", err)
	}
	if _, ok, _ := env.store.GetSubscriptionByUser(user.ID); ok {
		t.Fatal("no grant expected for non-transaction event")
	}
	n.Type = "TRANSACTION"
	n.Obj.Success = false
	if err := env.app.HandleGatewayNotification(n); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for failed transaction, got %v", err)
	}
	if _, ok, _ := env.store.GetSubscriptionByUser(user.ID); ok {
		t.Fatal("no grant expected for failed transaction")
	}
}

func TestInitiatePaymentConflictWhenAlreadyEntitled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerVerified(t, "Alaa Samir", "alaa@example.com", "secret1")

	url, err := env.app.InitiatePayment(ctx, PaymentInput{UserID: user.ID, SubscriptionType: "monthly"})
	if err != nil {
		t.Fatalf("InitiatePayment: %v", err)
	}
	if !strings.Contains(url, "payment_token=payment-key") {
		t.Fatalf("unexpected iframe url %q", url)
	}
	if len(env.gateway.orders) != 1 || env.gateway.orders[0] != user.ID+"-monthly" {
		t.Fatalf("unexpected merchant order ids %v", env.gateway.orders)
	}

	var n Notification
	n.Type = "TRANSACTION"
	n.Obj.ID = 1
	n.Obj.Success = true
	n.Obj.Order.MerchantOrderID = user.ID + "-monthly"
	if err := env.app.HandleGatewayNotification(n); err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if _, err := env.app.InitiatePayment(ctx, PaymentInput{UserID: user.ID, SubscriptionType: "monthly"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for active subscriber, got %v", err)
	}
}

func TestInitiatePaymentUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerVerified(t, "Alaa", "alaa@example.com", "secret1")
	env.gateway.failAuth = true

	_, err := env.app.InitiatePayment(context.Background(), PaymentInput{UserID: user.ID, SubscriptionType: "yearly"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestPageGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerVerified(t, "Alaa", "alaa@example.com", "secret1")
	book := env.createBook(t, "Dune")
	if err := env.store.SetBookFile(book.ID, "books/"+book.ID+".pdf", 300); err != nil {
		t.Fatalf("SetBookFile: %v", err)
	}

	if _, err := env.app.BookContent(ctx, user, book.ID, 5); err != nil {
		t.Fatalf("free span rejected: %v", err)
	}
	if _, err := env.app.BookContent(ctx, user, book.ID, 15); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for 15 pages, got %v", err)
	}

	// a purchase of this exact book opens the gate
	var n Notification
	n.Type = "TRANSACTION"
	n.Obj.ID = 42
	n.Obj.Success = true
	n.Obj.Order.MerchantOrderID = user.ID + "-" + book.ID
	if err := env.app.HandleGatewayNotification(n); err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if _, err := env.app.BookContent(ctx, user, book.ID, 15); err != nil {
		t.Fatalf("purchased book still gated: %v", err)
	}
}

func TestPageGatePremiumSubscription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerVerified(t, "Alaa", "alaa@example.com", "secret1")
	book := env.createBook(t, "Dune")
	if err := env.store.SetBookFile(book.ID, "books/"+book.ID+".pdf", 300); err != nil {
		t.Fatalf("SetBookFile: %v", err)
	}

	var n Notification
	n.Type = "TRANSACTION"
	n.Obj.ID = 7
	n.Obj.Success = true
	n.Obj.Order.MerchantOrderID = user.ID + "-yearly"
	if err := env.app.HandleGatewayNotification(n); err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if _, err := env.app.BookContent(ctx, user, book.ID, 200); err != nil {
		t.Fatalf("premium subscriber gated: %v", err)
	}
}

func TestAuthorDeleteCascadesToBooks(t *testing.T) {
	env := newTestEnv(t)
	name := "Frank Herbert"
	author, err := env.app.CreateAuthor(AuthorInput{Name: &name})
	if err != nil {
		t.Fatalf("CreateAuthor: %v", err)
	}
	bookName := "Dune"
	book, err := env.app.CreateBook(BookInput{Name: &bookName, AuthorID: &author.ID})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	if book.AuthorName != "Frank Herbert" {
		t.Fatalf("author name not resolved onto book: %q", book.AuthorName)
	}
	if err := env.app.DeleteAuthor(author.ID); err != nil {
		t.Fatalf("DeleteAuthor: %v", err)
	}
	if _, err := env.app.GetBook(book.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected book removed with its author, got %v", err)
	}
}

func TestDuplicateAuthorNameConflicts(t *testing.T) {
	env := newTestEnv(t)
	name := "Frank Herbert"
	if _, err := env.app.CreateAuthor(AuthorInput{Name: &name}); err != nil {
		t.Fatalf("CreateAuthor: %v", err)
	}
	if _, err := env.app.CreateAuthor(AuthorInput{Name: &name}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate name, got %v", err)
	}
}

func TestReviewOwnerGate(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerVerified(t, "Owner", "owner@example.com", "secret1")
	other := env.registerVerified(t, "Other", "other@example.com", "secret1")
	book := env.createBook(t, "Dune")

	review, err := env.app.CreateReview(owner.ID, book.ID, "A classic.")
	if err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	if _, err := env.app.UpdateReview(other, review.ID, "mine now"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for non-owner, got %v", err)
	}
	if err := env.app.DeleteReview(other, review.ID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for non-owner delete, got %v", err)
	}
	admin := env.makeAdmin(t, other)
	if err := env.app.DeleteReview(admin, review.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestShelfLifecycle(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerVerified(t, "Alaa", "alaa@example.com", "secret1")
	book := env.createBook(t, "Dune")

	if _, err := env.app.AddToShelf(user.ID, book.ID, domain.ShelfWantToRead); err != nil {
		t.Fatalf("AddToShelf: %v", err)
	}
	if _, err := env.app.AddToShelf(user.ID, book.ID, domain.ShelfRead); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for double shelving, got %v", err)
	}
	moved, err := env.app.MoveShelf(user.ID, book.ID, domain.ShelfCurrentlyReading)
	if err != nil {
		t.Fatalf("MoveShelf: %v", err)
	}
	if moved.Shelf != domain.ShelfCurrentlyReading {
		t.Fatalf("entry on shelf %q", moved.Shelf)
	}
	onShelf, err := env.app.ListShelf(user.ID, domain.ShelfCurrentlyReading)
	if err != nil || len(onShelf) != 1 {
		t.Fatalf("ListShelf: %v (%d entries)", err, len(onShelf))
	}
	if _, err := env.app.AddToShelf(user.ID, book.ID, "Someday"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown shelf, got %v", err)
	}
	if err := env.app.RemoveFromShelf(user.ID, book.ID); err != nil {
		t.Fatalf("RemoveFromShelf: %v", err)
	}
	if err := env.app.RemoveFromShelf(user.ID, book.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second removal, got %v", err)
	}
}

func TestSubscriptionLazyDefault(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerVerified(t, "Alaa", "alaa@example.com", "secret1")

	sub, err := env.app.GetSubscription(user.ID)
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if sub.Status != domain.StatusFree {
		t.Fatalf("default status %q, want Free", sub.Status)
	}
	again, err := env.app.GetSubscription(user.ID)
	if err != nil {
		t.Fatalf("GetSubscription again: %v", err)
	}
	if again.ID != sub.ID {
		t.Fatal("lazy default must be created once")
	}
}

func TestCancelSubscriptionRevertsToFree(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerVerified(t, "Alaa", "alaa@example.com", "secret1")

	var n Notification
	n.Type = "TRANSACTION"
	n.Obj.ID = 11
	n.Obj.Success = true
	n.Obj.Order.MerchantOrderID = user.ID + "-monthly"
	if err := env.app.HandleGatewayNotification(n); err != nil {
		t.Fatalf("webhook: %v", err)
	}
	sub, err := env.app.CancelSubscription(user.ID)
	if err != nil {
		t.Fatalf("CancelSubscription: %v", err)
	}
	if sub.Status != domain.StatusFree {
		t.Fatalf("status after cancel %q, want Free", sub.Status)
	}
}

func TestListBooksPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 12; i++ {
		env.createBook(t, fmt.Sprintf("Book %02d", i))
	}
	page, err := env.app.ListBooks(ListQuery{Page: 2, Limit: 5})
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if page.Total != 12 || page.TotalPages != 3 || page.CurrentPage != 2 || len(page.Items) != 5 {
		t.Fatalf("unexpected page: total=%d totalPages=%d current=%d items=%d",
			page.Total, page.TotalPages, page.CurrentPage, len(page.Items))
	}
	found, err := env.app.ListBooks(ListQuery{Search: "book 03"})
	if err != nil {
		t.Fatalf("ListBooks search: %v", err)
	}
	if found.Total != 1 {
		t.Fatalf("case-insensitive search matched %d, want 1", found.Total)
	}
}
