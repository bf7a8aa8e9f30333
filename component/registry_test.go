package component

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aydenstechdungeon/formfield/field"
	"github.com/aydenstechdungeon/formfield/store"
	"github.com/google/go-cmp/cmp"
)

type countingObserver struct {
	mu       sync.Mutex
	events   []string
	failures []string
	mounts   int
	unmounts int
}

func (o *countingObserver) ObserveEvent(kind, event, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, kind+"/"+event+"/"+status)
}

func (o *countingObserver) ObserveFailure(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, reason)
}

func (o *countingObserver) ObserveMount() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mounts++
}

func (o *countingObserver) ObserveUnmount() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.unmounts++
}

type countingStorage struct {
	*store.MemoryStorage
	sets int
}

func (s *countingStorage) Set(ctx context.Context, key string, val []byte, exp time.Duration) error {
	s.sets++
	return s.MemoryStorage.Set(ctx, key, val, exp)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func signupForm() *Form {
	return &Form{
		Name: "signup",
		Fields: []FieldSpec{
			{Name: "email", Kind: field.KindEmail},
			{Name: "name", Kind: field.KindText, Label: strPtr("Full Name"), Required: boolPtr(true)},
			{Name: "password", Kind: field.KindPassword},
		},
	}
}

func newTestRegistry(t *testing.T, obs Observer) (*Registry, *store.MemoryStorage) {
	t.Helper()
	mem := store.NewMemoryStorage(0)
	t.Cleanup(func() { _ = mem.Close() })
	r := NewRegistry(RegistryConfig{Storage: mem, Codec: store.JSONCodec{}, Observer: obs})
	if err := r.Register(signupForm()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return r, mem
}

func TestFormValidate(t *testing.T) {
	tests := []struct {
		name string
		form Form
	}{
		{"empty name", Form{Fields: []FieldSpec{{Name: "a", Kind: field.KindText}}}},
		{"bad name", Form{Name: "a:b", Fields: []FieldSpec{{Name: "a", Kind: field.KindText}}}},
		{"no fields", Form{Name: "f"}},
		{"unnamed field", Form{Name: "f", Fields: []FieldSpec{{Kind: field.KindText}}}},
		{"duplicate", Form{Name: "f", Fields: []FieldSpec{{Name: "a", Kind: field.KindText}, {Name: "a", Kind: field.KindEmail}}}},
		{"unknown kind", Form{Name: "f", Fields: []FieldSpec{{Name: "a", Kind: "date"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.form.Validate(); !errors.Is(err, ErrInvalidForm) {
				t.Errorf("Expected ErrInvalidForm, got %v", err)
			}
		})
	}
	if err := signupForm().Validate(); err != nil {
		t.Errorf("Expected valid form, got %v", err)
	}
}

func TestMountRendersFieldsInOrder(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	inst, err := r.Mount(context.Background(), "s1", "signup")
	if err != nil {
		t.Fatalf("Mount failed: %v", err)
	}

	html := render(t, inst)
	if !strings.HasPrefix(html, `<form data-form="signup" method="post" novalidate>`) {
		t.Errorf("Unexpected form tag: %s", html)
	}
	e, n, p := strings.Index(html, `data-field="email"`), strings.Index(html, `data-field="name"`), strings.Index(html, `data-field="password"`)
	if e < 0 || n < e || p < n {
		t.Errorf("Expected fields in declaration order: %s", html)
	}
}

func TestDispatchPersistsState(t *testing.T) {
	obs := &countingObserver{}
	r, _ := newTestRegistry(t, obs)
	ctx := context.Background()

	comp, err := r.Dispatch(ctx, "s1", "signup", "email", field.NativeEvent{Type: field.EventBlur, Transport: "http"}, "a@b")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if html := render(t, comp); !strings.Contains(html, field.InvalidEmailFormat) {
		t.Errorf("Expected format error in fragment: %s", html)
	}

	inst, err := r.Mount(ctx, "s1", "signup")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]field.Snapshot{
		"email":    {Error: field.InvalidEmailFormat},
		"name":     {},
		"password": {},
	}
	if diff := cmp.Diff(want, inst.Snapshots()); diff != "" {
		t.Errorf("Snapshot mismatch (-want +got):\n%s", diff)
	}

	// another session is untouched
	other, _ := r.Mount(ctx, "s2", "signup")
	if b, _ := other.Binding("email"); b.Error() != "" {
		t.Errorf("Expected a fresh instance for another session, got %q", b.Error())
	}

	_, _ = r.Dispatch(ctx, "s1", "signup", "email", field.NativeEvent{Type: field.EventChange}, "a@b.c")
	inst, _ = r.Mount(ctx, "s1", "signup")
	b, _ := inst.Binding("email")
	if diff := cmp.Diff(field.Snapshot{Value: "a@b.c"}, b.State().Snapshot()); diff != "" {
		t.Errorf("Expected corrected state (-want +got):\n%s", diff)
	}

	wantEvents := []string{"email/blur/invalid-format", "email/change/valid"}
	if diff := cmp.Diff(wantEvents, obs.events); diff != "" {
		t.Errorf("Observed events mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchErrors(t *testing.T) {
	obs := &countingObserver{}
	r, _ := newTestRegistry(t, obs)
	ctx := context.Background()

	if _, err := r.Dispatch(ctx, "s", "login", "email", field.NativeEvent{Type: field.EventBlur}, ""); !errors.Is(err, ErrUnknownForm) {
		t.Errorf("Expected ErrUnknownForm, got %v", err)
	}
	if _, err := r.Dispatch(ctx, "s", "signup", "phone", field.NativeEvent{Type: field.EventBlur}, ""); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Expected ErrUnknownField, got %v", err)
	}
	if _, err := r.Dispatch(ctx, "s", "signup", "email", field.NativeEvent{Type: "keyup"}, ""); !errors.Is(err, field.ErrUnknownEvent) {
		t.Errorf("Expected ErrUnknownEvent, got %v", err)
	}
	if diff := cmp.Diff([]string{"unknown_form", "unknown_field", "unknown_event"}, obs.failures); diff != "" {
		t.Errorf("Failures mismatch (-want +got):\n%s", diff)
	}
}

func TestFormCallbacksForwarded(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	var mu sync.Mutex
	var seen []string
	form := signupForm()
	form.OnBlur = func(ev field.ChangeEvent) {
		mu.Lock()
		seen = append(seen, ev.FieldName+"="+ev.Value)
		mu.Unlock()
	}
	if err := r.Register(form); err != nil {
		t.Fatal(err)
	}

	_, _ = r.Dispatch(context.Background(), "s", "signup", "name", field.NativeEvent{Type: field.EventBlur}, "Ada")
	if diff := cmp.Diff([]string{"name=Ada"}, seen); diff != "" {
		t.Errorf("Callback mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceKeepsCallbacks(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	called := false
	form := signupForm()
	form.OnChange = func(field.ChangeEvent) { called = true }
	_ = r.Register(form)

	if err := r.Replace([]*Form{signupForm()}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	_, _ = r.Dispatch(context.Background(), "s", "signup", "name", field.NativeEvent{Type: field.EventChange}, "x")
	if !called {
		t.Error("Expected OnChange to survive Replace")
	}
	if err := r.Replace([]*Form{{Name: "bad"}}); err == nil {
		t.Error("Expected Replace to reject an invalid form")
	}
	if diff := cmp.Diff([]string{"signup"}, r.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmount(t *testing.T) {
	obs := &countingObserver{}
	r, mem := newTestRegistry(t, obs)
	ctx := context.Background()

	if err := r.Unmount(ctx, "s", "signup"); err != nil {
		t.Fatalf("Unmount of a form never mounted failed: %v", err)
	}
	if obs.unmounts != 0 {
		t.Errorf("Expected no unmount to be counted without stored state, got %d", obs.unmounts)
	}

	_, _ = r.Mount(ctx, "s", "signup")
	_, _ = r.Mount(ctx, "s", "signup")
	if mem.Len() != 1 || obs.mounts != 1 {
		t.Fatalf("Expected one stored instance, got len=%d mounts=%d", mem.Len(), obs.mounts)
	}
	if err := r.Unmount(ctx, "s", "signup"); err != nil {
		t.Fatalf("Unmount failed: %v", err)
	}
	_ = r.Unmount(ctx, "s", "signup")
	if mem.Len() != 0 || obs.unmounts != 1 {
		t.Errorf("Expected state removed once, got len=%d unmounts=%d", mem.Len(), obs.unmounts)
	}
}

func TestDispatchSkipsUnchangedWrites(t *testing.T) {
	mem := &countingStorage{MemoryStorage: store.NewMemoryStorage(0)}
	t.Cleanup(func() { _ = mem.Close() })
	obs := &countingObserver{}
	r := NewRegistry(RegistryConfig{Storage: mem, Observer: obs})
	if err := r.Register(signupForm()); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	blurEmail := field.NativeEvent{Type: field.EventBlur}

	// first event creates the instance
	_, _ = r.Dispatch(ctx, "s", "signup", "email", blurEmail, "a@b")
	if mem.sets != 1 || obs.mounts != 1 {
		t.Fatalf("Expected one write and one mount, got sets=%d mounts=%d", mem.sets, obs.mounts)
	}

	// the error is cleared and set again, ending where it started
	comp, err := r.Dispatch(ctx, "s", "signup", "email", blurEmail, "a@b")
	if err != nil {
		t.Fatal(err)
	}
	if mem.sets != 1 {
		t.Errorf("Expected no write for an unchanged field, got %d writes", mem.sets)
	}
	if html := render(t, comp); !strings.Contains(html, field.InvalidEmailFormat) {
		t.Errorf("Expected the fragment to keep the error: %s", html)
	}

	_, _ = r.Dispatch(ctx, "s", "signup", "email", field.NativeEvent{Type: field.EventChange}, "a@b.c")
	if mem.sets != 2 || obs.mounts != 1 {
		t.Errorf("Expected a write for the correction and no new mount, got sets=%d mounts=%d", mem.sets, obs.mounts)
	}
	if len(obs.events) != 3 {
		t.Errorf("Expected every event observed, got %v", obs.events)
	}
}

func TestUnreadableStateStartsOver(t *testing.T) {
	r, mem := newTestRegistry(t, nil)
	ctx := context.Background()
	_ = mem.Set(ctx, stateKey("s", "signup"), []byte("not json"), time.Minute)

	inst, err := r.Mount(ctx, "s", "signup")
	if err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	if b, _ := inst.Binding("email"); b.Value() != "" {
		t.Errorf("Expected fresh state, got %q", b.Value())
	}
}

func TestConcurrentDispatchSerializes(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Dispatch(ctx, "s", "signup", "name", field.NativeEvent{Type: field.EventChange}, "Ada")
		}()
	}
	wg.Wait()

	if n := r.locks.len(); n != 0 {
		t.Errorf("Expected lock table to drain, got %d keys", n)
	}
	inst, _ := r.Mount(ctx, "s", "signup")
	if b, _ := inst.Binding("name"); b.Value() != "Ada" {
		t.Errorf("Expected name=Ada, got %q", b.Value())
	}
}

func TestSanitizeEndContent(t *testing.T) {
	got := SanitizeEndContent(`<span class="icon" onclick="x()">@</span><script>alert(1)</script>`)
	if got != `<span class="icon">@</span>` {
		t.Errorf("Unexpected sanitized markup: %q", got)
	}
	if SanitizeEndContent("   ") != "" {
		t.Error("Expected blank input to stay empty")
	}

	form := &Form{Name: "f", Fields: []FieldSpec{{Name: "a", Kind: field.KindText, EndContent: `<b>!</b><img src=x onerror=y>`}}}
	if html := render(t, form.Binding(form.Fields[0])); !strings.Contains(html, `<div class="form-field-end"><b>!</b></div>`) {
		t.Errorf("Expected sanitized end content in %s", html)
	}
}

func TestFieldSpecDebounce(t *testing.T) {
	form := &Form{Name: "search", Fields: []FieldSpec{{Name: "q", Kind: field.KindText, DebounceMS: 250}}}
	if html := render(t, form.Binding(form.Fields[0])); !strings.Contains(html, `data-debounce="250"`) {
		t.Errorf("Expected debounce on the control, got %s", html)
	}
}
