// rlctl lists or clears the login/register rate-limit counters in Redis.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/redis"
)

type limiter interface {
	Buckets(ctx context.Context, scope, identity string) ([]redis.Bucket, error)
	Reset(ctx context.Context, scope, identity string) (int, error)
}

func main() {
	var (
		addr     = flag.String("addr", "127.0.0.1:6379", "redis address host:port")
		pass     = flag.String("pass", "", "redis password")
		db       = flag.Int("db", 0, "redis db")
		scope    = flag.String("scope", "", "login / register; empty matches all")
		identity = flag.String("ip", "", "client ip; empty matches all")
		doDel    = flag.Bool("del", false, "delete matched counters")
		timeout  = flag.Duration("timeout", 5*time.Second, "overall timeout")
	)
	flag.Parse()

	c := redis.New(*addr, *pass, *db)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "redis ping failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Connected: addr=%s db=%d\n", *addr, *db)

	// the HTTP limiter keys clients as "ip:<addr>"
	id := *identity
	if id != "" {
		id = "ip:" + id
	}
	if err := run(ctx, redis.NewFixedWindowLimiter(c), os.Stdout, *scope, id, *doDel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, l limiter, w io.Writer, scope, identity string, del bool) error {
	buckets, err := l.Buckets(ctx, scope, identity)
	if err != nil {
		return err
	}
	if len(buckets) == 0 {
		fmt.Fprintln(w, "No counters matched.")
		return nil
	}
	for i, b := range buckets {
		fmt.Fprintf(w, "%d) %s\n   count=%d ttl=%s\n", i+1, b.Key, b.Count, b.TTL)
	}

	if del {
		n, err := l.Reset(ctx, scope, identity)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "DEL ok: %d\n", n)
	}
	return nil
}
