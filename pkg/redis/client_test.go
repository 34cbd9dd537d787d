package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/quickdelivery-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	allowed, count, err := client.FixedWindowAllow(ctx, "test-scope", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected allowed on first request")
	}
	if count != 1 {
		t.Fatalf("expected counter 1 got %d", count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expected expire for first increment")
	}

	allowed, count, err = client.FixedWindowAllow(ctx, "test-scope", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || count != 2 {
		t.Fatalf("unexpected second call state allowed=%v count=%d", allowed, count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expire should not be set again")
	}

	allowed, _, err = client.FixedWindowAllow(ctx, "test-scope", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("expected limit reached")
	}
}

func TestSetGetDelRoundTrip(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.CartSessionKey("sess-1")
	if err := client.Set(ctx, key, `{"items":[]}`, time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value, err := client.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != `{"items":[]}` {
		t.Fatalf("unexpected value %q", value)
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); err != Nil {
		t.Fatalf("expected Nil after delete, got %v", err)
	}
}

func TestSetNXOnlyOnce(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	ok, err := client.SetNX(ctx, "k", "a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "k", "b", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second setnx to lose, ok=%v err=%v", ok, err)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := client.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on uninitialized client should be a no-op, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	cases := map[string]string{
		client.IdempotencyKey("scope", "id"):      "qd:idempotency:scope:id",
		client.RateLimitKey("otp:9876543210"):     "qd:rate_limit:otp:9876543210",
		client.CartSessionKey("abc"):              "qd:cart:session:abc",
		client.OTPKey("h1"):                       "qd:otp:h1",
		client.PendingPaymentKey("abc"):           "qd:payment:pending:abc",
		client.GatewayTransactionKey("TXN_1_abc"): "qd:gateway:txn:TXN_1_abc",
		client.AccessSessionKey("jti"):            "qd:session:access:jti",
		client.CartSessionKey(" "):                "qd:cart:session",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected %s got %s", want, got)
		}
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
}

type mockCmdable struct {
	data        map[string]string
	incr        map[string]int64
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		incr: make(map[string]int64),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) EvalSha(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	current, held := m.data[keys[0]]
	owned := held && current == fmt.Sprint(args[0])
	switch sha1 {
	case delIfValue.Hash():
		if !owned {
			return redis.NewCmdResult(int64(0), nil)
		}
		delete(m.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	case swapIfValue.Hash():
		expected := fmt.Sprint(args[0])
		if (!held && expected != "") || (held && current != expected) {
			return redis.NewCmdResult(int64(0), nil)
		}
		m.data[keys[0]] = fmt.Sprint(args[1])
		return redis.NewCmdResult(int64(1), nil)
	case expireIfValue.Hash():
		if !owned {
			return redis.NewCmdResult(int64(0), nil)
		}
		m.expireCalls = append(m.expireCalls, expireCall{key: keys[0], ttl: time.Duration(args[1].(int64)) * time.Millisecond})
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(nil, fmt.Errorf("unexpected script %s", sha1))
}

func (m *mockCmdable) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	return m.EvalSha(ctx, sha1, keys, args...)
}

func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return redis.NewCmdResult(nil, fmt.Errorf("eval not supported"))
}

func (m *mockCmdable) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return m.Eval(ctx, script, keys, args...)
}

func (m *mockCmdable) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (m *mockCmdable) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func TestOwnerCheckedLockOps(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.CronLockKey("prod")
	if key != "qd:lock:cron:prod" {
		t.Fatalf("unexpected lock key %s", key)
	}
	if client.CronLockKey("") != "qd:lock:cron:local" {
		t.Fatal("expected local default")
	}

	_, _ = client.SetNX(ctx, key, "owner-a", time.Minute)

	ok, err := client.ExpireIfValue(ctx, key, "owner-b", time.Minute)
	if err != nil || ok {
		t.Fatalf("foreign extend should fail, ok=%v err=%v", ok, err)
	}
	ok, err = client.ExpireIfValue(ctx, key, "owner-a", 90*time.Second)
	if err != nil || !ok {
		t.Fatalf("owner extend should succeed, ok=%v err=%v", ok, err)
	}
	if last := mock.expireCalls[len(mock.expireCalls)-1]; last.ttl != 90*time.Second {
		t.Fatalf("unexpected ttl %s", last.ttl)
	}

	if ok, _ := client.DelIfValue(ctx, key, "owner-b"); ok {
		t.Fatal("foreign release removed the lock")
	}
	if ok, _ := client.DelIfValue(ctx, key, "owner-a"); !ok {
		t.Fatal("owner release failed")
	}
	if _, err := client.Get(ctx, key); err != Nil {
		t.Fatalf("expected lock gone, got %v", err)
	}
}

func TestSwapIfValueRejectsStaleWriter(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.CartSessionKey("sess-1")

	ok, err := client.SwapIfValue(ctx, key, "", "v1", time.Hour)
	if err != nil || !ok {
		t.Fatalf("create on missing key should succeed, ok=%v err=%v", ok, err)
	}
	if ok, _ := client.SwapIfValue(ctx, key, "", "v2", time.Hour); ok {
		t.Fatal("create over an existing key should fail")
	}
	if ok, _ := client.SwapIfValue(ctx, key, "v0", "v2", time.Hour); ok {
		t.Fatal("swap from a stale value should fail")
	}
	ok, err = client.SwapIfValue(ctx, key, "v1", "v2", time.Hour)
	if err != nil || !ok {
		t.Fatalf("swap from the current value should succeed, ok=%v err=%v", ok, err)
	}
	if v, _ := client.Get(ctx, key); v != "v2" {
		t.Fatalf("expected v2, got %q", v)
	}
}
