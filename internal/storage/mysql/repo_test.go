package mysql

import (
	"context"
	"reflect"
	"testing"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
	"github.com/RC-CHN/CHARLS-FILTER/internal/storage"
)

func TestBuildInsert(t *testing.T) {
	t.Parallel()

	query, args, err := buildInsert("charls.panel_2013", []string{"id", "age"}, [][]any{
		{"1", int64(50)},
		{"2", nil},
	})
	if err != nil {
		t.Fatalf("buildInsert: %v", err)
	}
	wantQuery := "INSERT INTO `charls`.`panel_2013` (`id`, `age`) VALUES (?, ?), (?, ?)"
	if query != wantQuery {
		t.Fatalf("query=%q; want %q", query, wantQuery)
	}
	if want := []any{"1", int64(50), "2", nil}; !reflect.DeepEqual(args, want) {
		t.Fatalf("args=%v; want %v", args, want)
	}

	if _, _, err := buildInsert("t", []string{"a"}, [][]any{{1, 2}}); err == nil {
		t.Fatalf("expected row length error")
	}
	if _, _, err := buildInsert("t", nil, [][]any{{1}}); err == nil {
		t.Fatalf("expected error without columns")
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateTableSQL(storage.TableDef{
		FQN: "panel_2013",
		Columns: []storage.ColumnDef{
			{Name: "id", SQLType: MapType(dataset.KindText), Nullable: true},
			{Name: "bmi", SQLType: MapType(dataset.KindFloat), Nullable: true},
		},
	})
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS `panel_2013` (\n  `id` LONGTEXT,\n  `bmi` DOUBLE\n) DEFAULT CHARSET=utf8mb4;"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestNewRepository_InvalidDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{DSN: "not a dsn"}); err == nil {
		t.Fatalf("expected DSN error")
	}
}

func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var gotCfg Config
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{cfg: cfg}, func() {}, nil
	}
	repo, err := storage.New(context.Background(), storage.Config{Kind: "mysql", DSN: "u:p@tcp(db)/x", Table: "panel_2015"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer repo.Close()
	if gotCfg.DSN != "u:p@tcp(db)/x" || gotCfg.Table != "panel_2015" {
		t.Fatalf("cfg=%+v", gotCfg)
	}
}
