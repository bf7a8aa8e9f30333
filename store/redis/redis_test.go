package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aydenstechdungeon/formfield/store"
	goredis "github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	s := NewStore(client, "ff:")
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestStoreRoundTrip(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "sess:signup", []byte("payload"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !mr.Exists("ff:sess:signup") {
		t.Error("Expected prefixed key in redis")
	}

	got, err := s.Get(ctx, "sess:signup")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("Expected 'payload', got %q", got)
	}

	if err := s.Delete(ctx, "sess:signup"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "sess:signup"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestStoreExpiry(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := s.Get(ctx, "k"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after expiry, got %v", err)
	}
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	s, err := Dial(context.Background(), addr, "", 0, "p:")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer s.Close()

	mr.Close()
	if _, err := Dial(context.Background(), addr, "", 0, "p:"); err == nil {
		t.Error("Expected Dial to fail against a closed server")
	}
}

func TestStorePubSub(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 1)
	if err := s.Subscribe(ctx, "renders", func(msg []byte) { received <- string(msg) }); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := s.Publish(ctx, "renders", []byte("hello")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-received:
		if msg != "hello" {
			t.Errorf("Expected 'hello', got %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for message")
	}
}

var (
	_ store.Storage = (*Store)(nil)
	_ store.PubSub  = (*Store)(nil)
)
