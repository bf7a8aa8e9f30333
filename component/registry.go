package component

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/aydenstechdungeon/formfield/field"
	"github.com/aydenstechdungeon/formfield/internal/telemetry"
	"github.com/aydenstechdungeon/formfield/store"
)

// Observer receives dispatch outcomes. *telemetry.Metrics implements it.
type Observer interface {
	ObserveEvent(kind, event, status string)
	ObserveFailure(reason string)
	ObserveMount()
	ObserveUnmount()
}

type nopObserver struct{}

func (nopObserver) ObserveEvent(string, string, string) {}
func (nopObserver) ObserveFailure(string)               {}
func (nopObserver) ObserveMount()                       {}
func (nopObserver) ObserveUnmount()                     {}

// RegistryConfig configures a Registry. Zero values get defaults in
// NewRegistry.
type RegistryConfig struct {
	Storage  store.Storage
	Codec    store.Codec
	TTL      time.Duration
	Logger   *telemetry.Logger
	Observer Observer
}

// record is the persisted form of a mounted instance.
type record struct {
	Fields map[string]field.Snapshot `json:"fields" msgpack:"fields"`
}

// Registry holds form definitions and mounts them per session. Field state
// lives in storage between events, so any server sharing the storage can
// handle any event.
type Registry struct {
	mu    sync.RWMutex
	forms map[string]*Form

	storage  store.Storage
	codec    store.Codec
	ttl      time.Duration
	logger   *telemetry.Logger
	observer Observer
	locks    *keyedMutex
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Storage == nil {
		cfg.Storage = store.NewMemoryStorage(time.Minute)
	}
	if cfg.Codec == nil {
		cfg.Codec = store.MsgpackCodec{}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.Nop()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Registry{
		forms:    make(map[string]*Form),
		storage:  cfg.Storage,
		codec:    cfg.Codec,
		ttl:      cfg.TTL,
		logger:   cfg.Logger.NewComponentLogger("registry"),
		observer: cfg.Observer,
		locks:    newKeyedMutex(),
	}
}

// Register adds or replaces a form definition.
func (r *Registry) Register(form *Form) error {
	if err := form.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.forms[form.Name] = form
	r.mu.Unlock()
	r.logger.Debugf("registered form %s with %d fields", form.Name, len(form.Fields))
	return nil
}

// Replace swaps the declarative forms for a new set in one step. Forms with
// Go callbacks keep their callbacks when a replacement has the same name.
func (r *Registry) Replace(forms []*Form) error {
	next := make(map[string]*Form, len(forms))
	for _, f := range forms {
		if err := f.Validate(); err != nil {
			return err
		}
		next[f.Name] = f
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, old := range r.forms {
		if f, ok := next[name]; ok {
			if f.OnChange == nil {
				f.OnChange = old.OnChange
			}
			if f.OnBlur == nil {
				f.OnBlur = old.OnBlur
			}
		}
	}
	r.forms = next
	r.logger.Infof("replaced form set (%d forms)", len(next))
	return nil
}

// Form returns a registered form.
func (r *Registry) Form(name string) (*Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.forms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownForm, name)
	}
	return f, nil
}

// Names returns the registered form names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.forms))
	for name := range r.forms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func stateKey(sessionID, form string) string {
	return sessionID + ":" + form
}

// Mount returns the session's instance of form, restoring stored field
// state when present and persisting a fresh instance otherwise.
func (r *Registry) Mount(ctx context.Context, sessionID, formName string) (*Instance, error) {
	form, err := r.Form(formName)
	if err != nil {
		return nil, err
	}
	key := stateKey(sessionID, formName)
	unlock := r.locks.Lock(key)
	defer unlock()

	inst, found, err := r.load(ctx, key, form, sessionID)
	if err != nil {
		return nil, err
	}
	if found {
		return inst, nil
	}
	if err := r.save(ctx, key, inst); err != nil {
		return nil, err
	}
	r.observer.ObserveMount()
	r.logger.WithSession(sessionID, formName).Debug("mounted form")
	return inst, nil
}

// Dispatch routes one native event to a field of the session's instance,
// persists the result and returns the re-rendered field.
func (r *Registry) Dispatch(ctx context.Context, sessionID, formName, fieldName string, native field.NativeEvent, value string) (templ.Component, error) {
	form, err := r.Form(formName)
	if err != nil {
		r.observer.ObserveFailure("unknown_form")
		return nil, err
	}
	if _, ok := form.Spec(fieldName); !ok {
		r.observer.ObserveFailure("unknown_field")
		return nil, fmt.Errorf("%w: %q in form %q", ErrUnknownField, fieldName, formName)
	}
	if native.At.IsZero() {
		native.At = time.Now()
	}

	key := stateKey(sessionID, formName)
	unlock := r.locks.Lock(key)
	defer unlock()

	inst, found, err := r.load(ctx, key, form, sessionID)
	if err != nil {
		return nil, err
	}
	b, _ := inst.Binding(fieldName)
	before := b.State().Snapshot()
	var after *field.Snapshot
	unsub := b.State().Subscribe(func(snap field.Snapshot) { after = &snap })
	err = b.Dispatch(native, value)
	unsub()
	if err != nil {
		r.observer.ObserveFailure("unknown_event")
		return nil, err
	}
	// events that leave a stored field as it was skip the write
	if changed := after != nil && *after != before; changed || !found {
		if err := r.save(ctx, key, inst); err != nil {
			return nil, err
		}
	}
	if !found {
		r.observer.ObserveMount()
	}

	status := b.State().Status()
	r.observer.ObserveEvent(string(b.Kind()), string(native.Type), string(status))
	r.logger.WithSession(sessionID, formName).Debugf("%s %s on %s -> %s", native.Transport, native.Type, fieldName, status)
	comp, _ := inst.FieldComponent(fieldName)
	return comp, nil
}

// Unmount discards the session's state for form. Unmounting a form that
// has no stored state is a no-op.
func (r *Registry) Unmount(ctx context.Context, sessionID, formName string) error {
	key := stateKey(sessionID, formName)
	unlock := r.locks.Lock(key)
	defer unlock()

	if _, err := r.storage.Get(ctx, key); errors.Is(err, store.ErrNotFound) {
		return nil
	} else if err != nil {
		return fmt.Errorf("load form state: %w", err)
	}
	if err := r.storage.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete form state: %w", err)
	}
	r.observer.ObserveUnmount()
	r.logger.WithSession(sessionID, formName).Debug("unmounted form")
	return nil
}

func (r *Registry) load(ctx context.Context, key string, form *Form, sessionID string) (*Instance, bool, error) {
	inst := newInstance(form, sessionID)
	data, err := r.storage.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return inst, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load form state: %w", err)
	}
	var rec record
	if err := r.codec.Unmarshal(data, &rec); err != nil {
		// a stale or foreign payload starts the form over
		r.logger.WithSession(sessionID, form.Name).WithError(err).Warn("discarding unreadable form state")
		return inst, false, nil
	}
	inst.restore(rec.Fields)
	return inst, true, nil
}

func (r *Registry) save(ctx context.Context, key string, inst *Instance) error {
	data, err := r.codec.Marshal(record{Fields: inst.Snapshots()})
	if err != nil {
		return fmt.Errorf("encode form state: %w", err)
	}
	if err := r.storage.Set(ctx, key, data, r.ttl); err != nil {
		return fmt.Errorf("save form state: %w", err)
	}
	return nil
}
