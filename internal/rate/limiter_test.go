package rate

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_AllowsUntilMax(t *testing.T) {
	l := NewMemoryLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("Allow err: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("hit %d debería pasar", i+1)
		}
	}

	res, err := l.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatalf("hit 4 debería bloquearse")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("RetryAfter debería ser positivo, got %v", res.RetryAfter)
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	ctx := context.Background()

	if res, _ := l.Allow(ctx, "a"); !res.Allowed {
		t.Fatal("primer hit de a")
	}
	if res, _ := l.Allow(ctx, "a"); res.Allowed {
		t.Fatal("segundo hit de a debería bloquearse")
	}
	if res, _ := l.Allow(ctx, "b"); !res.Allowed {
		t.Fatal("b no comparte ventana con a")
	}
}
