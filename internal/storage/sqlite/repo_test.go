package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
	"github.com/RC-CHN/CHARLS-FILTER/internal/storage"
)

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateTableSQL(storage.TableDef{
		FQN: "main.panel_2013",
		Columns: []storage.ColumnDef{
			{Name: "id", SQLType: "TEXT", Nullable: false},
			{Name: `we"ird`, SQLType: "REAL", Nullable: true},
		},
	})
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"main\".\"panel_2013\" (\n  \"id\" TEXT NOT NULL,\n  \"we\"\"ird\" REAL\n);"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
	if _, err := BuildCreateTableSQL(storage.TableDef{FQN: "t"}); err == nil {
		t.Fatalf("expected error without columns")
	}
}

func TestMapType(t *testing.T) {
	t.Parallel()

	cases := map[dataset.Kind]string{
		dataset.KindInt:         "INTEGER",
		dataset.KindFloat:       "REAL",
		dataset.KindText:        "TEXT",
		dataset.KindCategorical: "TEXT",
	}
	for k, want := range cases {
		if got := MapType(k); got != want {
			t.Fatalf("MapType(%v)=%q; want %q", k, got, want)
		}
	}
}

func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var (
		gotCfg Config
		closed bool
	)
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{}, func() { closed = true }, nil
	}
	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: "x.db", Table: "events"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if gotCfg.DSN != "x.db" || gotCfg.Table != "events" {
		t.Fatalf("hook cfg=%+v", gotCfg)
	}
	repo.Close()
	if !closed {
		t.Fatalf("Close did not call closeFn")
	}
}

// TestPublishRoundTrip loads a dataset into a real SQLite file and reads it
// back.
func TestPublishRoundTrip(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "panel.db")

	ds := dataset.MustNew(
		dataset.MustColumn("id", dataset.KindText, "1", "2"),
		dataset.MustColumn("age", dataset.KindInt, 61, nil),
		dataset.MustColumn("sex", dataset.KindCategorical, "female", "male"),
	)
	p := &storage.Publisher{Kind: "sqlite", DSN: dsn, TablePrefix: "panel_"}
	if err := p.Publish(ctx, "2013", ds); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	r, closeFn, err := NewRepository(ctx, Config{DSN: dsn, Table: "panel_2013"})
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	defer closeFn()

	rows, err := r.db.QueryContext(ctx, `SELECT "id", "age", "sex" FROM "panel_2013" ORDER BY "id"`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	var got []string
	for rows.Next() {
		var (
			id, sex string
			age     *int64
		)
		if err := rows.Scan(&id, &age, &sex); err != nil {
			t.Fatalf("scan: %v", err)
		}
		a := "NULL"
		if age != nil {
			a = dataset.FormatValue(*age)
		}
		got = append(got, strings.Join([]string{id, a, sex}, "|"))
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if want := []string{"1|61|female", "2|NULL|male"}; strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("rows=%v; want %v", got, want)
	}

	// Publishing again appends into the existing table.
	if err := p.Publish(ctx, "2013", ds); err != nil {
		t.Fatalf("second Publish: %v", err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "panel_2013"`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 4 {
		t.Fatalf("count=%d; want 4", n)
	}
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	if _, _, err := NewRepository(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

func TestInsertSQL(t *testing.T) {
	t.Parallel()

	got := insertSQL("main.panel_2015", []string{"id", "age"})
	want := `INSERT INTO "main"."panel_2015" ("id", "age") VALUES (?, ?)`
	if got != want {
		t.Fatalf("insertSQL=%q; want %q", got, want)
	}
}

func TestCopyFrom_RowWidthRollsBack(t *testing.T) {
	ctx := context.Background()
	r, closeFn, err := NewRepository(ctx, Config{DSN: filepath.Join(t.TempDir(), "w.db"), Table: "t"})
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	defer closeFn()
	if err := r.Exec(ctx, `CREATE TABLE "t" ("a" INTEGER, "b" TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	n, err := r.CopyFrom(ctx, []string{"a", "b"}, [][]any{{int64(1), "x"}, {int64(2)}})
	if err == nil || n != 0 {
		t.Fatalf("CopyFrom = %d, %v; want 0 and an error", n, err)
	}
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "t"`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("rows after failed batch=%d; want 0", count)
	}
}
