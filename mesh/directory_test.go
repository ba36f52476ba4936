package mesh

import (
	"context"
	"testing"
	"time"
)

func TestAdvertiseAndDiscover(t *testing.T) {
	dir, err := NewDirectory([]string{"localhost:2379"}, "/rpcmux-test")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := Advertisement{Addr: "127.0.0.1:9001", Weight: 10, Version: "1.0"}
	b := Advertisement{Addr: "127.0.0.1:9002", Weight: 5, Version: "1.0"}

	if err := dir.Advertise(ctx, "Calc", a, 10); err != nil {
		t.Fatal(err)
	}
	if err := dir.Advertise(ctx, "Calc", b, 10); err != nil {
		t.Fatal(err)
	}

	ads, err := dir.Discover(ctx, "Calc")
	if err != nil {
		t.Fatal(err)
	}
	if len(ads) != 2 {
		t.Fatalf("expected 2 advertisements, got %d", len(ads))
	}

	if err := dir.Withdraw(ctx, "Calc", a.Addr); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	ads, err = dir.Discover(ctx, "Calc")
	if err != nil {
		t.Fatal(err)
	}
	if len(ads) != 1 || ads[0].Addr != b.Addr {
		t.Fatalf("expected only %s left, got %v", b.Addr, ads)
	}

	dir.Withdraw(ctx, "Calc", b.Addr)
}
