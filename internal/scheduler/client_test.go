package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubSchedulerConfig struct {
	redisURL    string
	tlsInsecure bool
	queue       string
}

func (c stubSchedulerConfig) GetRedisURL() string                        { return c.redisURL }
func (c stubSchedulerConfig) GetRedisTLSInsecure() bool                  { return c.tlsInsecure }
func (c stubSchedulerConfig) GetAsynqQueueName() string                  { return c.queue }
func (c stubSchedulerConfig) GetAsynqConcurrency() int                   { return 1 }
func (c stubSchedulerConfig) GetEscalationSweepInterval() time.Duration  { return time.Minute }
func (c stubSchedulerConfig) GetPenaltyExpirySweepInterval() time.Duration {
	return time.Minute
}

func TestClientOptFromConfigRequiresRedisURL(t *testing.T) {
	_, _, err := clientOptFromConfig(stubSchedulerConfig{})
	if err == nil {
		t.Fatal("expected an error for an empty redis url")
	}
}

func TestClientOptFromConfigDefaultsQueueName(t *testing.T) {
	s := miniredis.RunT(t)

	_, queue, err := clientOptFromConfig(stubSchedulerConfig{redisURL: "redis://" + s.Addr()})
	if err != nil {
		t.Fatalf("clientOptFromConfig: %v", err)
	}
	if queue != "default" {
		t.Errorf("queue = %q, want %q", queue, "default")
	}

	_, queue, err = clientOptFromConfig(stubSchedulerConfig{redisURL: "redis://" + s.Addr(), queue: "workflow"})
	if err != nil {
		t.Fatalf("clientOptFromConfig: %v", err)
	}
	if queue != "workflow" {
		t.Errorf("queue = %q, want %q", queue, "workflow")
	}
}

func TestRedisClientOptConnects(t *testing.T) {
	s := miniredis.RunT(t)

	opt, err := redisClientOpt("redis://"+s.Addr(), false)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.Addr != s.Addr() {
		t.Fatalf("Addr = %q, want %q", opt.Addr, s.Addr())
	}
	if opt.TLSConfig != nil {
		t.Fatal("plain redis url must not carry a TLS config")
	}

	client := redis.NewClient(&redis.Options{Addr: opt.Addr, Password: opt.Password, DB: opt.DB})
	defer client.Close()
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestRedisClientOptParsesDBAndPassword(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6379/3", false)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.Password != "secret" {
		t.Errorf("Password = %q", opt.Password)
	}
	if opt.DB != 3 {
		t.Errorf("DB = %d, want 3", opt.DB)
	}
}

func TestRedisClientOptTLSInsecure(t *testing.T) {
	opt, err := redisClientOpt("redis://localhost:6379", true)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("tlsInsecure must produce an insecure TLS config")
	}

	opt, err = redisClientOpt("rediss://localhost:6379", false)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.TLSConfig == nil {
		t.Fatal("rediss url must carry a TLS config")
	}
	if opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("verification must stay on unless explicitly disabled")
	}
}
