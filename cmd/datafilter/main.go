// Command datafilter loads one survey file, applies missing-value and
// conditional filters, renames columns and writes the result. With -serve it
// instead exposes an interactive session over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/RC-CHN/CHARLS-FILTER/internal/server"
	"github.com/RC-CHN/CHARLS-FILTER/internal/session"

	_ "github.com/RC-CHN/CHARLS-FILTER/internal/fileio/all"
)

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string     { return strings.Join(*m, "; ") }
func (m *multiFlag) Set(v string) error { *m = append(*m, v); return nil }

func main() {
	var (
		in      string
		out     string
		dropna  string
		rename  string
		serve   string
		origins string
		where   multiFlag
	)
	flag.StringVar(&in, "in", "", "input file (.dta, .csv, .csv.gz, .tsv, .parquet)")
	flag.StringVar(&out, "out", "", "output file; .csv is appended when it has no extension")
	flag.StringVar(&dropna, "dropna", "", "comma-separated columns whose missing rows are dropped")
	flag.Var(&where, "where", `condition "column op value", e.g. "age >= 60" (repeatable)`)
	flag.StringVar(&rename, "rename", "", "comma-separated old=new column renames applied on export")
	flag.StringVar(&serve, "serve", "", "listen address for the HTTP API, e.g. :8080")
	flag.StringVar(&origins, "cors-origins", "*", "comma-separated CORS origins for -serve")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serve != "" {
		if err := runServer(ctx, serve, splitList(origins)); err != nil {
			fatalf("serve: %v", err)
		}
		return
	}

	if in == "" || out == "" {
		fatalf("usage: datafilter -in FILE [-dropna a,b] [-where \"col op value\"]... [-rename old=new] -out FILE")
	}
	job, err := newJob(in, out, dropna, where, rename)
	if err != nil {
		fatalf("%v", err)
	}
	start := time.Now()
	res, err := job.run(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	printResult(os.Stdout, res)
	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

func runServer(ctx context.Context, addr string, origins []string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(session.New(), server.Options{AllowedOrigins: origins}).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
