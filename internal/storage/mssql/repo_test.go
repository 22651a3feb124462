package mssql

import (
	"context"
	"testing"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
	"github.com/RC-CHN/CHARLS-FILTER/internal/storage"
)

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateTableSQL(storage.TableDef{
		FQN: "dbo.panel_2018",
		Columns: []storage.ColumnDef{
			{Name: "id", SQLType: MapType(dataset.KindText), Nullable: true},
			{Name: "odd]name", SQLType: MapType(dataset.KindInt), Nullable: false},
		},
	})
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	want := "IF OBJECT_ID(N'[dbo].[panel_2018]', N'U') IS NULL\nCREATE TABLE [dbo].[panel_2018] (\n  [id] NVARCHAR(MAX) NULL,\n  [odd]]name] BIGINT NOT NULL\n);"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestMapType(t *testing.T) {
	t.Parallel()

	if MapType(dataset.KindFloat) != "FLOAT" || MapType(dataset.KindCategorical) != "NVARCHAR(MAX)" {
		t.Fatalf("unexpected mapping")
	}
}

func TestNewRepository_InvalidDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{DSN: "sqlserver://%zz"}); err == nil {
		t.Fatalf("expected DSN error")
	}
}

func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	called := false
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		called = cfg.Table == "dbo.panel_2013"
		return &Repository{cfg: cfg}, nil, nil
	}
	repo, err := storage.New(context.Background(), storage.Config{Kind: "mssql", Table: "dbo.panel_2013"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	repo.Close()
	if !called {
		t.Fatalf("hook not called with table")
	}
}
