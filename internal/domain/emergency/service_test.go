package emergency

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/swasthya/healthcard/internal/domain/healthprofile"
	"github.com/swasthya/healthcard/internal/domain/identity"
	"github.com/swasthya/healthcard/internal/domain/record"
	"github.com/swasthya/healthcard/internal/platform/db"
)

var fixedNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type countingObserver struct {
	mu       sync.Mutex
	views    map[string]int
	redeemed map[string]int
	issued   int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{views: map[string]int{}, redeemed: map[string]int{}}
}

func (o *countingObserver) EmergencyView(outcome string) {
	o.mu.Lock()
	o.views[outcome]++
	o.mu.Unlock()
}

func (o *countingObserver) ShareRedeemed(outcome string) {
	o.mu.Lock()
	o.redeemed[outcome]++
	o.mu.Unlock()
}

func (o *countingObserver) ShareIssued() {
	o.mu.Lock()
	o.issued++
	o.mu.Unlock()
}

// flakyLogs fails the first failures appends, then delegates.
type flakyLogs struct {
	AccessLogRepository
	mu       sync.Mutex
	failures int
}

func (f *flakyLogs) Append(ctx context.Context, l *AccessLog) error {
	f.mu.Lock()
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return f.AccessLogRepository.Append(ctx, l)
}

type fixture struct {
	svc      *Service
	users    identity.UserRepository
	profiles healthprofile.ProfileRepository
	records  record.RecordRepository
	tokens   ShareTokenRepository
	logs     *flakyLogs
	obs      *countingObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    identity.NewUserRepoMem(),
		profiles: healthprofile.NewProfileRepoMem(),
		records:  record.NewRecordRepoMem(),
		tokens:   NewShareTokenRepoMem(),
		logs:     &flakyLogs{AccessLogRepository: NewAccessLogRepoMem()},
		obs:      newCountingObserver(),
	}
	rec := NewRecorder(f.logs)
	rec.now = func() time.Time { return fixedNow }
	f.svc = NewService(Deps{
		Tokens:   f.tokens,
		Recorder: rec,
		Profiles: f.profiles,
		Users:    f.users,
		Records:  f.records,
		Tx:       db.NewMemTransactor(),
		Logger:   zerolog.Nop(),
	})
	f.svc.now = func() time.Time { return fixedNow }
	f.svc.SetObserver(f.obs)
	return f
}

func (f *fixture) user(t *testing.T, name, role string) identity.Actor {
	t.Helper()
	u := &identity.User{FullName: name, Email: uuid.NewString() + "@demo.com", Role: role, PasswordHash: "hash-value"}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return identity.Actor{ID: u.ID, Roles: []string{role}}
}

func (f *fixture) record(t *testing.T, owner uuid.UUID, title string) *record.Record {
	t.Helper()
	r := &record.Record{UserID: owner, Title: title, Type: record.TypeReport, Visibility: record.VisibilityPrivate, DateOfVisit: fixedNow}
	if err := f.records.Create(context.Background(), r); err != nil {
		t.Fatalf("create record: %v", err)
	}
	return r
}

func (f *fixture) entries(t *testing.T) []*AccessLog {
	t.Helper()
	items, _, err := f.svc.recorder.List(context.Background(), 1000, 0)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	return items
}

func strPtr(s string) *string { return &s }

var responder = Requester{IP: "203.0.113.7", UserAgent: "ScannerApp/1.0"}

// -- Resolver --

func TestResolve_EmergencyCardScenario(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Rajesh Kumar", "patient")
	dob := healthprofile.NewDate(1990, 1, 1)
	weight := 72.5
	f.svc.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := f.profiles.Create(context.Background(), &healthprofile.Profile{
		UserID:            owner.ID,
		DOB:               &dob,
		BloodGroup:        strPtr("O+"),
		WeightKg:          &weight,
		Allergies:         []string{"Peanuts"},
		Medications:       []healthprofile.Medication{{Name: "Metformin"}},
		PublicEmergencyID: strPtr("EMG001"),
	}); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	view, err := f.svc.Resolve(context.Background(), "EMG001", responder)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if view.Age == nil || *view.Age != 34 {
		t.Errorf("expected age 34, got %v", view.Age)
	}
	if len(view.Allergies) != 1 || view.Allergies[0] != "Peanuts" {
		t.Errorf("expected allergies [Peanuts], got %v", view.Allergies)
	}
	if len(view.ChronicConditions) != 0 {
		t.Errorf("expected no chronic conditions, got %v", view.ChronicConditions)
	}
	if view.Name != "Rajesh Kumar" || view.PublicID != "EMG001" {
		t.Errorf("unexpected identity %s %s", view.Name, view.PublicID)
	}

	b, _ := json.Marshal(view)
	var keys map[string]json.RawMessage
	_ = json.Unmarshal(b, &keys)
	want := []string{"public_id", "name", "age", "blood_group", "allergies", "chronic_conditions", "emergency_contacts", "note"}
	if len(keys) != len(want) {
		t.Errorf("expected exactly %v, got %s", want, b)
	}
	for _, k := range want {
		if _, ok := keys[k]; !ok {
			t.Errorf("missing field %s", k)
		}
	}

	logs := f.entries(t)
	if len(logs) != 1 {
		t.Fatalf("expected one access log entry, got %d", len(logs))
	}
	l := logs[0]
	if l.Method != MethodQR || l.IP != responder.IP || l.DeviceInfo != responder.UserAgent {
		t.Errorf("unexpected log entry %+v", l)
	}
	if l.UserID == nil || *l.UserID != owner.ID {
		t.Errorf("expected subject %s, got %v", owner.ID, l.UserID)
	}
	if len(l.DataReturned) != len(want) {
		t.Errorf("expected data_returned %v, got %v", want, l.DataReturned)
	}
	if f.obs.views["ok"] != 1 {
		t.Errorf("expected one ok view, got %v", f.obs.views)
	}
}

func TestResolve_WithoutDOBOmitsAge(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Priya Sharma", "patient")
	_ = f.profiles.Create(context.Background(), &healthprofile.Profile{UserID: owner.ID, PublicEmergencyID: strPtr("EMG002")})

	view, err := f.svc.Resolve(context.Background(), "EMG002", responder)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	b, _ := json.Marshal(view)
	var keys map[string]json.RawMessage
	_ = json.Unmarshal(b, &keys)
	if _, ok := keys["age"]; ok {
		t.Errorf("age must be omitted without dob: %s", b)
	}
	for _, k := range f.entries(t)[0].DataReturned {
		if k == "age" {
			t.Error("data_returned must match emitted fields")
		}
	}
}

func TestResolve_UnknownID(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"", "NOPE", "emg001"} {
		if _, err := f.svc.Resolve(context.Background(), id, responder); !errors.Is(err, ErrNotFound) {
			t.Errorf("%q: expected ErrNotFound, got %v", id, err)
		}
	}
	if n := len(f.entries(t)); n != 0 {
		t.Errorf("failed resolutions must not be logged, got %d", n)
	}
	if f.obs.views["not_found"] != 3 {
		t.Errorf("expected 3 not_found views, got %v", f.obs.views)
	}
}

func TestResolve_LogFailureWithholdsView(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Amit Patel", "patient")
	_ = f.profiles.Create(context.Background(), &healthprofile.Profile{UserID: owner.ID, PublicEmergencyID: strPtr("EMG003")})
	f.logs.failures = 1

	view, err := f.svc.Resolve(context.Background(), "EMG003", responder)
	if err == nil || view != nil {
		t.Fatalf("expected failure without view, got %v %v", view, err)
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrBadRequest) {
		t.Errorf("log failure must surface as an internal error, got %v", err)
	}
}

func TestAgeOn(t *testing.T) {
	d := func(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		dob, now time.Time
		want     int
	}{
		{d(1990, 1, 1), d(2024, 1, 1), 34},
		{d(1990, 1, 2), d(2024, 1, 1), 33},
		{d(1985, 3, 15), d(2024, 3, 14), 38},
		{d(1985, 3, 15), d(2024, 3, 15), 39},
		{d(2000, 2, 29), d(2023, 2, 28), 22},
		{d(2000, 2, 29), d(2023, 3, 1), 23},
		{d(2030, 1, 1), d(2024, 1, 1), 0},
	}
	for _, tt := range tests {
		if got := ageOn(tt.dob, tt.now); got != tt.want {
			t.Errorf("ageOn(%s, %s) = %d, want %d", tt.dob.Format("2006-01-02"), tt.now.Format("2006-01-02"), got, tt.want)
		}
	}
}

// -- Issuer --

func TestIssue_ScopeValidation(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Rajesh Kumar", "patient")
	r1 := f.record(t, owner.ID, "r1")

	tests := []struct {
		name string
		req  IssueRequest
	}{
		{"neither", IssueRequest{}},
		{"both", IssueRequest{RecordIDs: []uuid.UUID{r1.ID}, UserID: &owner.ID}},
		{"nil user", IssueRequest{UserID: &uuid.Nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Issue(context.Background(), owner, tt.req); !errors.Is(err, ErrInvalidScope) {
				t.Errorf("expected ErrInvalidScope, got %v", err)
			}
		})
	}
}

func TestIssue_Defaults(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Rajesh Kumar", "patient")
	r1 := f.record(t, owner.ID, "r1")

	tok, err := f.svc.Issue(context.Background(), owner, IssueRequest{RecordIDs: []uuid.UUID{r1.ID, r1.ID}})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !tok.SingleUse || tok.Used || tok.ExpiresAt != nil {
		t.Errorf("unexpected defaults %+v", tok)
	}
	if len(tok.Token) != 43 {
		t.Errorf("expected 43-char base64url token, got %d", len(tok.Token))
	}
	if len(tok.RecordIDs) != 1 {
		t.Errorf("expected duplicate ids collapsed, got %v", tok.RecordIDs)
	}
	if tok.CreatedBy != owner.ID {
		t.Errorf("expected creator %s, got %s", owner.ID, tok.CreatedBy)
	}
	if n := len(f.entries(t)); n != 0 {
		t.Errorf("issuance must not be access logged, got %d", n)
	}
	if f.obs.issued != 1 {
		t.Errorf("expected issued count 1, got %d", f.obs.issued)
	}
}

func TestIssue_Rejections(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Rajesh Kumar", "patient")
	other := f.user(t, "Priya Sharma", "patient")
	r1 := f.record(t, owner.ID, "r1")
	past := fixedNow.Add(-time.Minute)

	if _, err := f.svc.Issue(context.Background(), owner, IssueRequest{RecordIDs: []uuid.UUID{r1.ID}, ExpiresAt: &past}); !errors.Is(err, ErrInvalidExpiry) {
		t.Errorf("expected ErrInvalidExpiry, got %v", err)
	}
	if _, err := f.svc.Issue(context.Background(), owner, IssueRequest{RecordIDs: []uuid.UUID{r1.ID, uuid.New()}}); !errors.Is(err, ErrUnknownRecords) {
		t.Errorf("expected ErrUnknownRecords, got %v", err)
	}
	if _, err := f.svc.Issue(context.Background(), other, IssueRequest{RecordIDs: []uuid.UUID{r1.ID}}); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden sharing another user's record, got %v", err)
	}
	if _, err := f.svc.Issue(context.Background(), other, IssueRequest{UserID: &owner.ID}); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden sharing another user's profile, got %v", err)
	}
	ghost := uuid.New()
	doctor := f.user(t, "Dr. Mehta", "provider")
	if _, err := f.svc.Issue(context.Background(), doctor, IssueRequest{UserID: &ghost}); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("expected ErrUnknownUser, got %v", err)
	}

	_ = f.records.SoftDelete(context.Background(), r1.ID)
	if _, err := f.svc.Issue(context.Background(), owner, IssueRequest{RecordIDs: []uuid.UUID{r1.ID}}); !errors.Is(err, ErrUnknownRecords) {
		t.Errorf("deleted records cannot be shared, got %v", err)
	}
}

func TestIssue_ProviderMayShare(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Rajesh Kumar", "patient")
	doctor := f.user(t, "Dr. Mehta", "provider")
	r1 := f.record(t, owner.ID, "r1")

	if _, err := f.svc.Issue(context.Background(), doctor, IssueRequest{RecordIDs: []uuid.UUID{r1.ID}}); err != nil {
		t.Errorf("provider should be able to share, got %v", err)
	}
	if _, err := f.svc.Issue(context.Background(), doctor, IssueRequest{UserID: &owner.ID}); err != nil {
		t.Errorf("provider should be able to share a profile, got %v", err)
	}
}

func TestIssue_RetriesOnCollision(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Rajesh Kumar", "patient")
	draws := []string{"dup", "dup", "fresh"}
	f.svc.newToken = func() (string, error) {
		tok := draws[0]
		draws = draws[1:]
		return tok, nil
	}

	first, err := f.svc.Issue(context.Background(), owner, IssueRequest{UserID: &owner.ID})
	if err != nil || first.Token != "dup" {
		t.Fatalf("first issue: %v %v", first, err)
	}
	second, err := f.svc.Issue(context.Background(), owner, IssueRequest{UserID: &owner.ID})
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if second.Token != "fresh" {
		t.Errorf("expected regenerated token, got %s", second.Token)
	}
}

// -- Redeemer --

func TestRedeem_SingleUseRecordScenario(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Rajesh Kumar", "patient")
	r1 := f.record(t, owner.ID, "r1")
	r2 := f.record(t, owner.ID, "r2")
	single := true
	tok, err := f.svc.Issue(context.Background(), owner, IssueRequest{RecordIDs: []uuid.UUID{r1.ID, r2.ID}, SingleUse: &single})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	payload, err := f.svc.Redeem(context.Background(), tok.Token, responder)
	if err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if len(payload.Records) != 2 || payload.Records[0].ID != r1.ID || payload.Records[1].ID != r2.ID {
		t.Errorf("expected records [r1 r2], got %v", payload.Records)
	}
	if payload.User != nil || payload.Profile != nil {
		t.Error("record scope must only disclose records")
	}

	stored, _ := f.tokens.GetByToken(context.Background(), tok.Token)
	if !stored.Used {
		t.Error("expected token to be marked used")
	}

	if _, err := f.svc.Redeem(context.Background(), tok.Token, responder); !errors.Is(err, ErrGone) || !errors.Is(err, ErrTokenUsed) {
		t.Errorf("expected Gone on second redemption, got %v", err)
	}

	logs := f.entries(t)
	if len(logs) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(logs))
	}
	l := logs[0]
	if l.Method != MethodShareToken || l.ShareTokenID == nil || *l.ShareTokenID != tok.ID {
		t.Errorf("unexpected log %+v", l)
	}
	if l.UserID == nil || *l.UserID != owner.ID {
		t.Errorf("expected subject to be record owner, got %v", l.UserID)
	}
	if len(l.DataReturned) != 1 || l.DataReturned[0] != "records" {
		t.Errorf("expected data_returned [records], got %v", l.DataReturned)
	}
	if f.obs.redeemed["ok"] != 1 || f.obs.redeemed["used"] != 1 {
		t.Errorf("unexpected redemption outcomes %v", f.obs.redeemed)
	}
}

func TestRedeem_MultiUse(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Rajesh Kumar", "patient")
	r1 := f.record(t, owner.ID, "r1")
	multi := false
	tok, _ := f.svc.Issue(context.Background(), owner, IssueRequest{RecordIDs: []uuid.UUID{r1.ID}, SingleUse: &multi})

	const n = 4
	for i := 0; i < n; i++ {
		if _, err := f.svc.Redeem(context.Background(), tok.Token, responder); err != nil {
			t.Fatalf("redeem %d: %v", i, err)
		}
	}
	if got := len(f.entries(t)); got != n {
		t.Errorf("expected %d log entries, got %d", n, got)
	}
}

func TestRedeem_ExpiredRegardlessOfUse(t *testing.T) {
	for _, used := range []bool{false, true} {
		f := newFixture(t)
		owner := f.user(t, "Rajesh Kumar", "patient")
		past := fixedNow.Add(-time.Hour)
		st := &ShareToken{Token: "expired-token", UserID: &owner.ID, CreatedBy: owner.ID, ExpiresAt: &past, SingleUse: true}
		_ = f.tokens.Create(context.Background(), st)
		if used {
			_ = f.tokens.Consume(context.Background(), st.ID)
		}

		_, err := f.svc.Redeem(context.Background(), "expired-token", responder)
		if !errors.Is(err, ErrTokenExpired) {
			t.Errorf("used=%v: expected ErrTokenExpired, got %v", used, err)
		}
		if n := len(f.entries(t)); n != 0 {
			t.Errorf("used=%v: expected no log entries, got %d", used, n)
		}
	}
}

func TestRedeem_NotYetExpired(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Rajesh Kumar", "patient")
	later := fixedNow.Add(time.Hour)
	tok, err := f.svc.Issue(context.Background(), owner, IssueRequest{UserID: &owner.ID, ExpiresAt: &later})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := f.svc.Redeem(context.Background(), tok.Token, responder); err != nil {
		t.Errorf("expected redemption before expiry, got %v", err)
	}
}

func TestRedeem_UnknownToken(t *testing.T) {
	f := newFixture(t)
	for _, tok := range []string{"", "does-not-exist"} {
		if _, err := f.svc.Redeem(context.Background(), tok, responder); !errors.Is(err, ErrNotFound) {
			t.Errorf("%q: expected ErrNotFound, got %v", tok, err)
		}
	}
}

func TestRedeem_NothingToShare(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Rajesh Kumar", "patient")
	st := &ShareToken{Token: "empty", CreatedBy: owner.ID, SingleUse: true}
	_ = f.tokens.Create(context.Background(), st)

	if _, err := f.svc.Redeem(context.Background(), "empty", responder); !errors.Is(err, ErrNothingToShare) {
		t.Errorf("expected ErrNothingToShare, got %v", err)
	}
	stored, _ := f.tokens.GetByToken(context.Background(), "empty")
	if stored.Used {
		t.Error("scope check must happen before consumption")
	}
}

func TestRedeem_UserScope(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Rajesh Kumar", "patient")
	_ = f.profiles.Create(context.Background(), &healthprofile.Profile{UserID: owner.ID, BloodGroup: strPtr("O+"), PublicEmergencyID: strPtr("EMG001")})
	kept := f.record(t, owner.ID, "kept")
	gone := f.record(t, owner.ID, "gone")
	_ = f.records.SoftDelete(context.Background(), gone.ID)

	tok, _ := f.svc.Issue(context.Background(), owner, IssueRequest{UserID: &owner.ID})
	payload, err := f.svc.Redeem(context.Background(), tok.Token, responder)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if payload.User == nil || payload.User.ID != owner.ID || payload.Profile == nil {
		t.Fatalf("expected user and profile, got %+v", payload)
	}
	if len(payload.Records) != 1 || payload.Records[0].ID != kept.ID {
		t.Errorf("expected only the live record, got %v", payload.Records)
	}

	b, _ := json.Marshal(payload)
	if strings.Contains(string(b), "hash-value") {
		t.Error("password hash must never be disclosed")
	}
	keys := f.entries(t)[0].DataReturned
	sort.Strings(keys)
	if len(keys) != 3 || keys[0] != "profile" || keys[1] != "records" || keys[2] != "user" {
		t.Errorf("unexpected data_returned %v", keys)
	}
}

func TestRedeem_UserScopeWithoutProfile(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Rajesh Kumar", "patient")
	tok, _ := f.svc.Issue(context.Background(), owner, IssueRequest{UserID: &owner.ID})

	payload, err := f.svc.Redeem(context.Background(), tok.Token, responder)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if payload.Profile != nil {
		t.Error("expected no profile")
	}
	if keys := payload.Keys(); len(keys) != 2 || keys[0] != "user" || keys[1] != "records" {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestRedeem_LogFailureRollsBackConsumption(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Rajesh Kumar", "patient")
	r1 := f.record(t, owner.ID, "r1")
	tok, _ := f.svc.Issue(context.Background(), owner, IssueRequest{RecordIDs: []uuid.UUID{r1.ID}})
	f.logs.failures = 1

	if _, err := f.svc.Redeem(context.Background(), tok.Token, responder); err == nil {
		t.Fatal("expected redemption to fail when the log write fails")
	}
	stored, _ := f.tokens.GetByToken(context.Background(), tok.Token)
	if stored.Used {
		t.Fatal("failed redemption must leave the token unused")
	}

	if _, err := f.svc.Redeem(context.Background(), tok.Token, responder); err != nil {
		t.Errorf("retry after rollback should succeed, got %v", err)
	}
	if n := len(f.entries(t)); n != 1 {
		t.Errorf("expected one log entry after retry, got %d", n)
	}
}

func TestRedeem_ConcurrentSingleUse(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "Rajesh Kumar", "patient")
	r1 := f.record(t, owner.ID, "r1")
	tok, _ := f.svc.Issue(context.Background(), owner, IssueRequest{RecordIDs: []uuid.UUID{r1.ID}})

	const workers = 32
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		ok    int
		gone  int
		other []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Redeem(context.Background(), tok.Token, responder)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrGone):
				gone++
			default:
				other = append(other, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if ok != 1 || gone != workers-1 || len(other) != 0 {
		t.Errorf("expected 1 success and %d gone, got ok=%d gone=%d other=%v", workers-1, ok, gone, other)
	}
	if n := len(f.entries(t)); n != 1 {
		t.Errorf("expected exactly one log entry, got %d", n)
	}
}

// -- Recorder --

func TestRecorder_ValidatesMethod(t *testing.T) {
	r := NewRecorder(NewAccessLogRepoMem())
	if err := r.Record(context.Background(), &AccessLog{Method: "carrier-pigeon"}); !errors.Is(err, ErrInvalidMethod) {
		t.Errorf("expected ErrInvalidMethod, got %v", err)
	}
}

func TestRecorder_AssignsIDsNewestFirst(t *testing.T) {
	r := NewRecorder(NewAccessLogRepoMem())
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, m := range []string{MethodQR, MethodNFC, MethodLink} {
		at := base.Add(time.Duration(i) * time.Minute)
		r.now = func() time.Time { return at }
		if err := r.Record(context.Background(), &AccessLog{Method: m}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	items, total, err := r.List(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("expected 2 of 3, got %d of %d", len(items), total)
	}
	if items[0].Method != MethodLink || items[1].Method != MethodNFC {
		t.Errorf("expected newest first, got %s, %s", items[0].Method, items[1].Method)
	}
	if len(items[0].ID) != 26 || items[0].ID <= items[1].ID {
		t.Errorf("expected sortable ULIDs, got %s, %s", items[0].ID, items[1].ID)
	}
	if items[0].DataReturned == nil {
		t.Error("data_returned should never be nil")
	}
}

func TestRecorder_EmptyDisclosureListsAsEmptyArray(t *testing.T) {
	r := NewRecorder(NewAccessLogRepoMem())
	if err := r.Record(context.Background(), &AccessLog{Method: MethodQR}); err != nil {
		t.Fatalf("record: %v", err)
	}
	items, _, err := r.List(context.Background(), 10, 0)
	if err != nil || len(items) != 1 {
		t.Fatalf("list: %v (%d items)", err, len(items))
	}
	b, err := json.Marshal(items[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"data_returned":[]`) {
		t.Errorf("expected an empty data_returned array, got %s", b)
	}
}

func TestLogIDs_MonotonicWithinMillisecond(t *testing.T) {
	g := NewLogIDs()
	prev := ""
	for i := 0; i < 100; i++ {
		id, err := g.New(fixedNow)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if id <= prev {
			t.Fatalf("ids must increase: %s after %s", id, prev)
		}
		prev = id
	}
}
