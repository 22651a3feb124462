package storage

import "context"

// copyExecer is a backend repository before it is given a Close.
type copyExecer interface {
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	Exec(ctx context.Context, sql string) error
}

type closingRepo struct {
	copyExecer
	closeFn func()
}

func (c *closingRepo) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// WithClose turns r into a Repository whose Close calls closeFn. A nil
// closeFn is allowed.
func WithClose(r copyExecer, closeFn func()) Repository {
	return &closingRepo{copyExecer: r, closeFn: closeFn}
}

// ExecDDL returns a bootstrapper that renders the table with build and runs
// the statement on the repository.
func ExecDDL(build func(TableDef) (string, error)) DDLBootstrapper {
	return func(ctx context.Context, repo Repository, td TableDef) error {
		stmt, err := build(td)
		if err != nil {
			return err
		}
		return repo.Exec(ctx, stmt)
	}
}

// RegisterBackend registers the factory, type mapping and CREATE TABLE
// renderer of one kind.
func RegisterBackend(kind string, f Factory, mapType TypeMapper, build func(TableDef) (string, error)) {
	Register(kind, f)
	RegisterDDL(kind, mapType, ExecDDL(build))
}
